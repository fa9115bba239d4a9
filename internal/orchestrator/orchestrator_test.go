package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/davharte/docbridge/internal/adapter"
	"github.com/davharte/docbridge/internal/backend"
	"github.com/davharte/docbridge/internal/chunk"
)

// stubEngine returns a canned payload or error under a configurable name.
type stubEngine struct {
	name   string
	native backend.Native
	err    error
	calls  int
}

func (e *stubEngine) Name() string { return e.name }

func (e *stubEngine) Parse(ctx context.Context, req backend.Request) (backend.Native, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.native, nil
}

func newOrchestrator(engines ...*stubEngine) *Orchestrator {
	o := New(adapter.NewRegistry(), nil)
	policy := backend.RetryPolicy{MaxAttempts: 1}
	for _, e := range engines {
		o.RegisterClient(backend.NewClient(e, policy, nil))
	}
	return o
}

func markdownNative(src string) backend.Native {
	return &backend.MarkdownResult{Source: src}
}

func TestProcess_FallbackToSecondCandidate(t *testing.T) {
	failing := &stubEngine{
		name: "primary",
		err:  &backend.ParserError{Engine: "primary", Kind: backend.KindServerError, Err: errors.New("down")},
	}
	working := &stubEngine{name: "secondary", native: markdownNative("# Title\nbody")}
	o := newOrchestrator(failing, working)

	snap := Snapshot{Backends: []string{"primary", "secondary"}, Chunk: chunk.DefaultOptions()}
	res, err := o.Process(context.Background(), Request{Filename: "a.md", Data: []byte("x")}, snap)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Parser != "secondary" {
		t.Errorf("parser = %q, want secondary", res.Parser)
	}
	if failing.calls != 1 || working.calls != 1 {
		t.Errorf("calls = %d/%d, want 1/1", failing.calls, working.calls)
	}
	if len(res.Chunks) == 0 {
		t.Fatal("no chunks emitted")
	}
	if res.Strategy != "semantic" {
		t.Errorf("strategy = %q, want semantic for headed markdown", res.Strategy)
	}
}

func TestProcess_AllBackendsFailed(t *testing.T) {
	e1 := &stubEngine{name: "one", err: &backend.ParserError{Engine: "one", Kind: backend.KindTimeout, Err: errors.New("t")}}
	e2 := &stubEngine{name: "two", err: &backend.ParserError{Engine: "two", Kind: backend.KindServerError, Err: errors.New("s")}}
	o := newOrchestrator(e1, e2)

	snap := Snapshot{Backends: []string{"one", "two", "ghost"}, Chunk: chunk.DefaultOptions()}
	_, err := o.Process(context.Background(), Request{Filename: "a.md"}, snap)
	if err == nil {
		t.Fatal("expected error")
	}

	var oerr *OrchestrationError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected *OrchestrationError, got %T", err)
	}
	if oerr.Kind != AllBackendsFailed {
		t.Errorf("kind = %q, want %q", oerr.Kind, AllBackendsFailed)
	}
	if len(oerr.Attempts) != 3 {
		t.Fatalf("expected 3 attempt errors (2 failures + 1 unregistered), got %d", len(oerr.Attempts))
	}
	if oerr.CorrelationID == "" {
		t.Error("correlation id should be generated on failure too")
	}
	// The underlying parser errors stay reachable through the chain.
	var perr *backend.ParserError
	if !errors.As(err, &perr) {
		t.Error("underlying ParserError not unwrappable")
	}
	if !strings.Contains(err.Error(), "one") || !strings.Contains(err.Error(), "two") {
		t.Errorf("error should name every candidate: %v", err)
	}
}

func TestProcess_GeneratesAndPropagatesCorrelationID(t *testing.T) {
	e := &stubEngine{name: "md", native: markdownNative("# H\ntext")}
	o := newOrchestrator(e)
	snap := Snapshot{Backends: []string{"md"}, Chunk: chunk.DefaultOptions()}

	res, err := o.Process(context.Background(), Request{Filename: "a.md"}, snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.CorrelationID == "" {
		t.Fatal("no correlation id generated")
	}
	if got := res.Doc.Metadata["correlation_id"]; got != res.CorrelationID {
		t.Errorf("doc metadata correlation_id = %v, want %q", got, res.CorrelationID)
	}

	res, err = o.Process(context.Background(), Request{Filename: "a.md", CorrelationID: "given-id"}, snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.CorrelationID != "given-id" {
		t.Errorf("caller-supplied correlation id replaced: %q", res.CorrelationID)
	}
}

func TestProcess_SanitizesControlCharacters(t *testing.T) {
	dirty := "# H\r\nline with \x00 control\x08 chars"
	e := &stubEngine{name: "md", native: markdownNative(dirty)}
	o := newOrchestrator(e)
	snap := Snapshot{Backends: []string{"md"}, Chunk: chunk.DefaultOptions()}

	res, err := o.Process(context.Background(), Request{Filename: "a.md"}, snap)
	if err != nil {
		t.Fatalf("sanitizable content must not fail: %v", err)
	}
	if !res.Sanitized {
		t.Error("expected Sanitized flag")
	}
	if len(res.Warnings) == 0 {
		t.Error("expected repair warnings")
	}
	if strings.ContainsAny(res.Doc.Content(), "\x00\x08\r") {
		t.Errorf("control characters survived: %q", res.Doc.Content())
	}
}

func TestProcess_EmptyAfterSanitationIsInvalidIR(t *testing.T) {
	e := &stubEngine{name: "md", native: markdownNative("\x00\x01\x02")}
	o := newOrchestrator(e)
	snap := Snapshot{Backends: []string{"md"}, Chunk: chunk.DefaultOptions()}

	_, err := o.Process(context.Background(), Request{Filename: "a.md"}, snap)
	var oerr *OrchestrationError
	if !errors.As(err, &oerr) || oerr.Kind != InvalidIR {
		t.Errorf("expected InvalidIR, got %v", err)
	}
}

func TestProcess_FlatStrategyForUnstructuredText(t *testing.T) {
	e := &stubEngine{name: "plain", native: &backend.PlainResult{Paragraphs: []string{"just text", "more text"}}}
	o := newOrchestrator(e)
	snap := Snapshot{Backends: []string{"plain"}, Chunk: chunk.DefaultOptions()}

	res, err := o.Process(context.Background(), Request{Filename: "a.txt"}, snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != "flat" {
		t.Errorf("strategy = %q, want flat", res.Strategy)
	}
	for i, c := range res.Chunks {
		if len(c.HeaderPath) != 0 {
			t.Errorf("chunk %d: flat chunk has header path %v", i, c.HeaderPath)
		}
	}
}

func TestProcess_UseSemanticFlagForcesStructureAware(t *testing.T) {
	e := &stubEngine{name: "plain", native: &backend.PlainResult{Paragraphs: []string{"no headers here"}}}
	o := newOrchestrator(e)
	snap := Snapshot{Backends: []string{"plain"}, UseSemantic: true, Chunk: chunk.DefaultOptions()}

	res, err := o.Process(context.Background(), Request{Filename: "a.txt"}, snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != "semantic" {
		t.Errorf("strategy = %q, want semantic under the feature flag", res.Strategy)
	}
}

func TestChainFor(t *testing.T) {
	chain, ok := ChainFor("report.pdf")
	if !ok {
		t.Fatal("pdf should be supported")
	}
	if chain[0] != backend.EngineRemote || chain[1] != backend.EnginePDF {
		t.Errorf("pdf chain = %v", chain)
	}
	if IsSupportedExtension("archive.tar.gz") {
		t.Error("unknown extension reported as supported")
	}
	if !IsSupportedExtension("README.MD") {
		t.Error("extension matching must be case-insensitive")
	}
}
