// Package adapter translates backend-native parser output into the
// Standardized Document IR. One adapter per backend, selected through an
// explicit registry rather than reflection.
package adapter

import (
	"fmt"

	"github.com/davharte/docbridge/internal/backend"
	"github.com/davharte/docbridge/internal/ir"
)

// Adapter converts one backend's native payload into the IR.
type Adapter interface {
	Adapt(native backend.Native) (*ir.Document, error)
}

// Registry maps engine names to their adapters.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry returns a registry pre-loaded with the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	r.Register(backend.EngineMarkdown, markdownAdapter{})
	r.Register(backend.EngineHTML, newHTMLAdapter())
	r.Register(backend.EnginePDF, pdfAdapter{})
	r.Register(backend.EngineDocx, docxAdapter{})
	r.Register(backend.EngineXLSX, xlsxAdapter{})
	r.Register(backend.EnginePlaintext, plaintextAdapter{})
	return r
}

// Register adds or replaces the adapter for an engine name. Remote engines
// register a RemoteAdapter under their configured name.
func (r *Registry) Register(engine string, a Adapter) {
	r.adapters[engine] = a
}

// Adapt dispatches the native payload to its engine's adapter.
func (r *Registry) Adapt(native backend.Native) (*ir.Document, error) {
	a, ok := r.adapters[native.Engine()]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for engine %q", native.Engine())
	}
	doc, err := a.Adapt(native)
	if err != nil {
		return nil, fmt.Errorf("adapt %s output: %w", native.Engine(), err)
	}
	return doc, nil
}

func wrongPayload(engine string, native backend.Native) error {
	return fmt.Errorf("engine %q produced unexpected payload %T", engine, native)
}
