package backend

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestMarkdownEngine_Outline(t *testing.T) {
	src := "# Title\n\nA paragraph.\n\n```go\ncode()\n```\n\n- one\n- two\n"
	native, err := MarkdownEngine{}.Parse(context.Background(), Request{Filename: "a.md", Data: []byte(src)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res, ok := native.(*MarkdownResult)
	if !ok {
		t.Fatalf("payload type %T", native)
	}
	if res.Source != src {
		t.Error("source must pass through verbatim")
	}

	kinds := make([]string, len(res.Items))
	for i, item := range res.Items {
		kinds[i] = item.Kind
	}
	want := []string{"heading", "paragraph", "code_block", "list"}
	if len(kinds) != len(want) {
		t.Fatalf("items = %v, want kinds %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("item %d: kind %q, want %q", i, kinds[i], want[i])
		}
	}
	if res.Items[0].Level != 1 || res.Items[0].Text != "Title" {
		t.Errorf("heading item = %+v", res.Items[0])
	}
}

func TestPlaintextEngine_ParagraphSplit(t *testing.T) {
	src := "first line\nsecond line\n\nnext paragraph\n\n\nlast"
	native, err := PlaintextEngine{}.Parse(context.Background(), Request{Data: []byte(src)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res := native.(*PlainResult)
	if len(res.Paragraphs) != 3 {
		t.Fatalf("paragraphs = %q", res.Paragraphs)
	}
	if res.Paragraphs[0] != "first line\nsecond line" {
		t.Errorf("first paragraph = %q", res.Paragraphs[0])
	}
}

func TestPlaintextEngine_RejectsBinary(t *testing.T) {
	_, err := PlaintextEngine{}.Parse(context.Background(), Request{Data: []byte{0xff, 0xfe, 0x00, 0x80}})
	if err == nil {
		t.Fatal("expected error for invalid UTF-8")
	}
	var perr *ParserError
	if !errors.As(err, &perr) || perr.Kind != KindUnsupportedFormat {
		t.Errorf("expected unsupported_format, got %v", err)
	}
	if IsRetryable(err) {
		t.Error("binary input must not be retried")
	}
}

func TestHTMLEngine_SanitizesAndFindsTitle(t *testing.T) {
	src := `<html><head><title>My Page</title></head>
<body><script>alert(1)</script><h1>Hello</h1><p>world</p></body></html>`
	native, err := NewHTMLEngine().Parse(context.Background(), Request{Data: []byte(src)})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	res := native.(*HTMLResult)
	if res.Title != "My Page" {
		t.Errorf("title = %q", res.Title)
	}
	if strings.Contains(res.Sanitized, "<script") || strings.Contains(res.Sanitized, "alert(1)") {
		t.Errorf("script survived sanitation: %q", res.Sanitized)
	}
	if !strings.Contains(res.Sanitized, "Hello") {
		t.Errorf("content lost in sanitation: %q", res.Sanitized)
	}
}

func TestHTMLEngine_EmptyAfterSanitation(t *testing.T) {
	_, err := NewHTMLEngine().Parse(context.Background(), Request{Data: []byte("<script>only()</script>")})
	var perr *ParserError
	if !errors.As(err, &perr) || perr.Kind != KindMalformedInput {
		t.Errorf("expected malformed_input, got %v", err)
	}
}

func TestEnginesHonorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	engines := []Engine{MarkdownEngine{}, PlaintextEngine{}, NewHTMLEngine()}
	for _, e := range engines {
		if _, err := e.Parse(ctx, Request{Data: []byte("x")}); err == nil {
			t.Errorf("%s: expected context error", e.Name())
		}
	}
}
