package adapter

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/davharte/docbridge/internal/backend"
	"github.com/davharte/docbridge/internal/ir"
)

// htmlAdapter converts the sanitized markup to markdown so the chunker sees
// the same content shape regardless of backend.
type htmlAdapter struct {
	conv *converter.Converter
}

func newHTMLAdapter() *htmlAdapter {
	return &htmlAdapter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

func (a *htmlAdapter) Adapt(native backend.Native) (*ir.Document, error) {
	res, ok := native.(*backend.HTMLResult)
	if !ok {
		return nil, wrongPayload(backend.EngineHTML, native)
	}

	md, err := a.conv.ConvertString(res.Sanitized)
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}

	meta := map[string]any{"parser": backend.EngineHTML}
	if res.Title != "" {
		meta["title"] = res.Title
	}
	return ir.New(strings.TrimSpace(md), meta), nil
}
