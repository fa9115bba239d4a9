package adapter

import (
	"strings"

	"github.com/davharte/docbridge/internal/backend"
	"github.com/davharte/docbridge/internal/ir"
)

// RemoteAdapter normalizes a remote layout engine's block list into the IR.
// Register one per configured remote engine name.
type RemoteAdapter struct {
	Name string
}

func (a RemoteAdapter) Adapt(native backend.Native) (*ir.Document, error) {
	res, ok := native.(*backend.RemoteResult)
	if !ok {
		return nil, wrongPayload(a.Name, native)
	}

	var sb strings.Builder
	elements := make([]ir.Element, 0, len(res.Blocks))

	for _, block := range res.Blocks {
		text := strings.TrimSpace(block.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}

		el := ir.Element{Content: text}
		if block.Page > 0 {
			el.Metadata = map[string]any{"page": block.Page}
		}

		switch block.Type {
		case "heading":
			el.Type = ir.TypeHeading
			el.Level = clampLevel(block.Level)
			sb.WriteString(strings.Repeat("#", el.Level))
			sb.WriteString(" ")
			sb.WriteString(text)
		case "code_block":
			el.Type = ir.TypeCodeBlock
			sb.WriteString("```\n")
			sb.WriteString(text)
			sb.WriteString("\n```")
		case "table":
			el.Type = ir.TypeTable
			sb.WriteString(text)
		case "list":
			el.Type = ir.TypeList
			sb.WriteString(text)
		case "image":
			el.Type = ir.TypeImage
			sb.WriteString(text)
		default:
			el.Type = ir.TypeParagraph
			sb.WriteString(text)
		}
		elements = append(elements, el)
	}

	doc := ir.New(sb.String(), map[string]any{
		"parser": a.Name,
		"pages":  res.Pages,
		"model":  res.Model,
	})
	if len(elements) > 0 {
		if err := doc.PopulateElements(elements); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
