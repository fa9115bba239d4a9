package backend

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

// EngineDocx is the local DOCX engine name.
const EngineDocx = "docx"

// DocxParagraph is one paragraph with its resolved heading level (0 = body).
type DocxParagraph struct {
	Level int
	Text  string
}

// DocxResult is the native payload of the DOCX engine.
type DocxResult struct {
	Paragraphs []DocxParagraph
}

func (r *DocxResult) Engine() string { return EngineDocx }

// DocxEngine extracts styled paragraphs from .docx files.
type DocxEngine struct{}

func (DocxEngine) Name() string { return EngineDocx }

func (DocxEngine) Parse(ctx context.Context, req Request) (Native, error) {
	if err := ctx.Err(); err != nil {
		return nil, parseErr(EngineDocx, KindTimeout, err)
	}

	doc, err := docx.Parse(bytes.NewReader(req.Data), int64(len(req.Data)))
	if err != nil {
		return nil, parseErr(EngineDocx, KindMalformedInput, fmt.Errorf("parse docx: %w", err))
	}

	result := &DocxResult{}
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}
		result.Paragraphs = append(result.Paragraphs, DocxParagraph{
			Level: docxHeadingLevel(para),
			Text:  text,
		})
	}

	if len(result.Paragraphs) == 0 {
		return nil, parseErr(EngineDocx, KindMalformedInput, fmt.Errorf("no extractable text"))
	}
	return result, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := para.Properties.Style.Val
	for level := 1; level <= 6; level++ {
		if strings.EqualFold(style, fmt.Sprintf("Heading%d", level)) ||
			strings.EqualFold(style, fmt.Sprintf("heading %d", level)) {
			return level
		}
	}
	return 0
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
