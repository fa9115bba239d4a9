package backend

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

// EngineHTML is the local HTML engine name.
const EngineHTML = "html"

// HTMLResult is the native payload of the HTML engine: the page title and
// the sanitized body markup. Conversion to markdown happens in the adapter.
type HTMLResult struct {
	Title     string
	Sanitized string
}

func (r *HTMLResult) Engine() string { return EngineHTML }

// HTMLEngine parses HTML locally, stripping scripts, styles, and anything
// else bluemonday's UGC policy rejects before handing the markup on.
type HTMLEngine struct {
	policy *bluemonday.Policy
}

// NewHTMLEngine builds the engine with its sanitation policy.
func NewHTMLEngine() *HTMLEngine {
	return &HTMLEngine{policy: bluemonday.UGCPolicy()}
}

func (e *HTMLEngine) Name() string { return EngineHTML }

func (e *HTMLEngine) Parse(ctx context.Context, req Request) (Native, error) {
	if err := ctx.Err(); err != nil {
		return nil, parseErr(EngineHTML, KindTimeout, err)
	}

	doc, err := html.Parse(bytes.NewReader(req.Data))
	if err != nil {
		return nil, parseErr(EngineHTML, KindMalformedInput, fmt.Errorf("parse html: %w", err))
	}

	sanitized := e.policy.Sanitize(string(req.Data))
	if strings.TrimSpace(sanitized) == "" {
		return nil, parseErr(EngineHTML, KindMalformedInput, fmt.Errorf("no content after sanitation"))
	}

	return &HTMLResult{
		Title:     findTitle(doc),
		Sanitized: sanitized,
	}, nil
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		var buf strings.Builder
		var collect func(*html.Node)
		collect = func(n *html.Node) {
			if n.Type == html.TextNode {
				buf.WriteString(n.Data)
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				collect(c)
			}
		}
		collect(n)
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}
