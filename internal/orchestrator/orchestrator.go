package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/davharte/docbridge/internal/adapter"
	"github.com/davharte/docbridge/internal/backend"
	"github.com/davharte/docbridge/internal/chunk"
	"github.com/davharte/docbridge/internal/ir"
	"github.com/davharte/docbridge/internal/validate"
)

// Request is a single document submitted for processing.
type Request struct {
	Filename      string
	Data          []byte
	Options       map[string]string
	CorrelationID string // generated when empty
}

// Snapshot is the routing configuration captured once per request. Config
// reloads never affect a request already in flight.
type Snapshot struct {
	Backends    []string // fallback chain, tried in order
	UseSemantic bool     // route to structure-aware chunking even without explicit elements
	Chunk       chunk.Options
}

// Result is the full outcome of a processed document.
type Result struct {
	CorrelationID string
	Parser        string // backend that produced the accepted IR
	Strategy      string // "semantic" or "flat"
	Doc           *ir.Document
	Chunks        []chunk.Chunk
	Sanitized     bool // content was repaired before acceptance
	Warnings      []string
}

// Orchestrator routes documents through the parser chain, normalizes the
// winning output into IR and chunks it.
type Orchestrator struct {
	clients  map[string]*backend.Client
	adapters *adapter.Registry
	log      *slog.Logger
}

func New(adapters *adapter.Registry, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		clients:  make(map[string]*backend.Client),
		adapters: adapters,
		log:      log,
	}
}

// RegisterClient makes a retrying parser client available under its engine name.
func (o *Orchestrator) RegisterClient(c *backend.Client) {
	o.clients[c.Name()] = c
}

// Process runs the full pipeline for one document: fallback chain, adapter,
// validation and sanitation, chunking. The snapshot is read once and never
// mutated.
func (o *Orchestrator) Process(ctx context.Context, req Request, snap Snapshot) (*Result, error) {
	cid := req.CorrelationID
	if cid == "" {
		cid = uuid.NewString()
	}
	log := o.log.With("correlation_id", cid, "filename", req.Filename)

	native, parserName, attempts := o.parse(ctx, log, req, snap.Backends)
	if native == nil {
		log.Error("all backends failed", "attempts", len(attempts))
		return nil, &OrchestrationError{Kind: AllBackendsFailed, CorrelationID: cid, Attempts: attempts}
	}

	doc, err := o.adapters.Adapt(native)
	if err != nil {
		return nil, &OrchestrationError{
			Kind:          InvalidIR,
			CorrelationID: cid,
			Attempts:      []AttemptError{{Backend: parserName, Err: err}},
		}
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]any{}
	}
	doc.Metadata["correlation_id"] = cid
	doc.Metadata["parser"] = parserName

	res := &Result{CorrelationID: cid, Parser: parserName, Doc: doc}

	cleaned, warnings := validate.Sanitize(doc.Content())
	if len(warnings) > 0 {
		doc.SetContent(cleaned)
		res.Sanitized = true
		res.Warnings = append(res.Warnings, warnings...)
		log.Warn("document content sanitized", "repairs", warnings)
	}
	if strings.TrimSpace(doc.Content()) == "" {
		return nil, &OrchestrationError{
			Kind:          InvalidIR,
			CorrelationID: cid,
			Attempts:      []AttemptError{{Backend: parserName, Err: fmt.Errorf("empty content after sanitation")}},
		}
	}

	if err := validate.Document(doc); err != nil {
		if !doc.HasExplicitElements() {
			return nil, &OrchestrationError{
				Kind:          InvalidIR,
				CorrelationID: cid,
				Attempts:      []AttemptError{{Backend: parserName, Err: err}},
			}
		}
		// Discard the backend's elements and fall back to deriving structure
		// from content.
		doc.SetContent(doc.Content())
		res.Sanitized = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("discarded invalid explicit elements: %v", err))
		log.Warn("explicit elements rejected, deriving from content", "err", err)
		if err := validate.Document(doc); err != nil {
			return nil, &OrchestrationError{
				Kind:          InvalidIR,
				CorrelationID: cid,
				Attempts:      []AttemptError{{Backend: parserName, Err: err}},
			}
		}
	}

	if doc.HasExplicitElements() || snap.UseSemantic || hasHeadings(doc.Content()) {
		res.Strategy = "semantic"
		res.Chunks = chunk.Semantic(doc.Content(), snap.Chunk)
	} else {
		res.Strategy = "flat"
		res.Chunks = chunk.Flat(doc.Content(), snap.Chunk)
	}

	log.Info("document processed",
		"parser", parserName,
		"strategy", res.Strategy,
		"chunks", len(res.Chunks),
		"sanitized", res.Sanitized)
	return res, nil
}

// parse walks the fallback chain until one candidate succeeds. Each client
// already applies its own retry policy; a candidate failure here means that
// candidate is exhausted for good.
func (o *Orchestrator) parse(ctx context.Context, log *slog.Logger, req Request, chain []string) (backend.Native, string, []AttemptError) {
	var attempts []AttemptError
	breq := backend.Request{Filename: req.Filename, Data: req.Data, Options: req.Options}
	for _, name := range chain {
		client, ok := o.clients[name]
		if !ok {
			attempts = append(attempts, AttemptError{Backend: name, Err: fmt.Errorf("backend %q not registered", name)})
			continue
		}
		native, err := client.Parse(ctx, breq)
		if err != nil {
			log.Warn("backend exhausted, trying next candidate", "backend", name, "err", err)
			attempts = append(attempts, AttemptError{Backend: name, Err: err})
			continue
		}
		return native, name, attempts
	}
	return nil, "", attempts
}

func hasHeadings(content string) bool {
	inFence := false
	var marker string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			m := trimmed[:3]
			if !inFence {
				inFence, marker = true, m
			} else if m == marker {
				inFence = false
			}
			continue
		}
		if inFence {
			continue
		}
		if strings.HasPrefix(line, "#") {
			rest := strings.TrimLeft(line, "#")
			if hashes := len(line) - len(rest); hashes <= 6 && strings.HasPrefix(rest, " ") {
				return true
			}
		}
	}
	return false
}
