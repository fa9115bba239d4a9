package adapter

import (
	"fmt"
	"strings"

	"github.com/davharte/docbridge/internal/backend"
	"github.com/davharte/docbridge/internal/ir"
)

// markdownAdapter passes goldmark output through: the source already is the
// IR's content shape, and the outline pre-seeds the element cache.
type markdownAdapter struct{}

func (markdownAdapter) Adapt(native backend.Native) (*ir.Document, error) {
	res, ok := native.(*backend.MarkdownResult)
	if !ok {
		return nil, wrongPayload(backend.EngineMarkdown, native)
	}

	doc := ir.New(res.Source, map[string]any{"parser": backend.EngineMarkdown})

	elements := make([]ir.Element, 0, len(res.Items))
	for _, item := range res.Items {
		el := ir.Element{Type: ir.ElementType(item.Kind), Content: item.Text}
		if el.Type == ir.TypeHeading {
			el.Level = clampLevel(item.Level)
		}
		elements = append(elements, el)
	}
	if len(elements) > 0 {
		if err := doc.PopulateElements(elements); err != nil {
			// Malformed outline: drop the cache and let the lazy scan win.
			return doc, nil
		}
	}
	return doc, nil
}

// pdfAdapter joins page texts into content and records page provenance on
// each element.
type pdfAdapter struct{}

func (pdfAdapter) Adapt(native backend.Native) (*ir.Document, error) {
	res, ok := native.(*backend.PDFResult)
	if !ok {
		return nil, wrongPayload(backend.EnginePDF, native)
	}

	var sb strings.Builder
	var elements []ir.Element
	for i, page := range res.Pages {
		text := strings.TrimSpace(page)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
		elements = append(elements, ir.Element{
			Type:     ir.TypeParagraph,
			Content:  text,
			Metadata: map[string]any{"page": i + 1},
		})
	}

	doc := ir.New(sb.String(), map[string]any{
		"parser": backend.EnginePDF,
		"pages":  len(res.Pages),
	})
	if len(elements) > 0 {
		if err := doc.PopulateElements(elements); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// docxAdapter rebuilds markdown from styled paragraphs so heading levels
// survive into the content.
type docxAdapter struct{}

func (docxAdapter) Adapt(native backend.Native) (*ir.Document, error) {
	res, ok := native.(*backend.DocxResult)
	if !ok {
		return nil, wrongPayload(backend.EngineDocx, native)
	}

	var sb strings.Builder
	var elements []ir.Element
	for _, para := range res.Paragraphs {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if para.Level > 0 {
			level := clampLevel(para.Level)
			sb.WriteString(strings.Repeat("#", level))
			sb.WriteString(" ")
			sb.WriteString(para.Text)
			elements = append(elements, ir.Element{Type: ir.TypeHeading, Content: para.Text, Level: level})
		} else {
			sb.WriteString(para.Text)
			elements = append(elements, ir.Element{Type: ir.TypeParagraph, Content: para.Text})
		}
	}

	doc := ir.New(sb.String(), map[string]any{"parser": backend.EngineDocx})
	if len(elements) > 0 {
		if err := doc.PopulateElements(elements); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// xlsxAdapter renders each worksheet as a markdown table under a sheet
// heading.
type xlsxAdapter struct{}

func (xlsxAdapter) Adapt(native backend.Native) (*ir.Document, error) {
	res, ok := native.(*backend.XLSXResult)
	if !ok {
		return nil, wrongPayload(backend.EngineXLSX, native)
	}

	var sb strings.Builder
	var elements []ir.Element
	for _, sheet := range res.Sheets {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## %s\n\n", sheet.Name)
		elements = append(elements, ir.Element{Type: ir.TypeHeading, Content: sheet.Name, Level: 2})

		table := renderTable(sheet.Rows)
		sb.WriteString(table)
		elements = append(elements, ir.Element{
			Type:     ir.TypeTable,
			Content:  table,
			Metadata: map[string]any{"sheet": sheet.Name},
		})
	}

	doc := ir.New(sb.String(), map[string]any{
		"parser": backend.EngineXLSX,
		"sheets": len(res.Sheets),
	})
	if err := doc.PopulateElements(elements); err != nil {
		return nil, err
	}
	return doc, nil
}

func renderTable(rows [][]string) string {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	var sb strings.Builder
	for i, row := range rows {
		sb.WriteString("|")
		for c := 0; c < width; c++ {
			cell := ""
			if c < len(row) {
				cell = strings.ReplaceAll(row[c], "|", "\\|")
			}
			sb.WriteString(" " + cell + " |")
		}
		sb.WriteString("\n")
		if i == 0 {
			sb.WriteString("|" + strings.Repeat(" --- |", width) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// plaintextAdapter joins paragraphs; there is no structure to pre-seed.
type plaintextAdapter struct{}

func (plaintextAdapter) Adapt(native backend.Native) (*ir.Document, error) {
	res, ok := native.(*backend.PlainResult)
	if !ok {
		return nil, wrongPayload(backend.EnginePlaintext, native)
	}
	content := strings.Join(res.Paragraphs, "\n\n")
	return ir.New(content, map[string]any{"parser": backend.EnginePlaintext}), nil
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}
