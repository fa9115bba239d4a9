package backend

import (
	"context"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownItem is one top-level block from the goldmark AST.
type MarkdownItem struct {
	Kind  string // heading, paragraph, code_block, list, table
	Text  string
	Level int // headings only
}

// MarkdownResult is the native payload of the local markdown engine: the
// verbatim source plus a flat outline of its top-level blocks.
type MarkdownResult struct {
	Source string
	Items  []MarkdownItem
}

func (r *MarkdownResult) Engine() string { return EngineMarkdown }

// EngineMarkdown is the local goldmark-backed engine name.
const EngineMarkdown = "markdown"

// MarkdownEngine parses markdown locally with goldmark. Being in-process it
// never produces transient failures.
type MarkdownEngine struct{}

func (MarkdownEngine) Name() string { return EngineMarkdown }

func (MarkdownEngine) Parse(ctx context.Context, req Request) (Native, error) {
	if err := ctx.Err(); err != nil {
		return nil, parseErr(EngineMarkdown, KindTimeout, err)
	}
	src := req.Data

	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	result := &MarkdownResult{Source: string(src)}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			result.Items = append(result.Items, MarkdownItem{
				Kind:  "heading",
				Text:  string(node.Text(src)),
				Level: node.Level,
			})
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if t := blockText(n, src); t != "" {
				result.Items = append(result.Items, MarkdownItem{Kind: "code_block", Text: t})
			}
		case *ast.List:
			if t := blockText(n, src); t != "" {
				result.Items = append(result.Items, MarkdownItem{Kind: "list", Text: t})
			}
		default:
			if t := blockText(n, src); t != "" {
				result.Items = append(result.Items, MarkdownItem{Kind: "paragraph", Text: t})
			}
		}
	}
	return result, nil
}

// blockText gets the text content of a goldmark AST node. Blocks that carry
// raw source lines yield those directly; container blocks (lists, quotes)
// fall through to their children.
func blockText(n ast.Node, src []byte) string {
	var buf strings.Builder
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		if lines.Len() > 0 {
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				buf.Write(line.Value(src))
			}
			return strings.TrimSpace(buf.String())
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			part := blockText(c, src)
			if part != "" {
				if buf.Len() > 0 {
					buf.WriteByte('\n')
				}
				buf.WriteString(part)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
