// Package ir defines the Standardized Document: the intermediate
// representation every parser adapter produces and every chunking strategy
// consumes. Content is the single durable source of truth; the element
// sequence is a derived, invalidatable cache.
package ir

// Document is the contract between adapters and chunkers.
//
// Adapters construct it right after a successful parse. Chunkers read it and
// never mutate it. Only Content (and the emitted chunks) survive downstream;
// the document itself is discarded after chunk emission.
type Document struct {
	// Metadata holds document-level key/values: source parser, page count,
	// correlation id, provenance.
	Metadata map[string]any

	content  string
	elements []Element // nil means "not yet derived"
}

// New builds a Document around content. Metadata may be nil.
func New(content string, metadata map[string]any) *Document {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Document{content: content, Metadata: metadata}
}

// Content returns the full structured text.
func (d *Document) Content() string { return d.content }

// SetContent replaces the text and unconditionally invalidates the cached
// element sequence, so the two representations can never diverge.
func (d *Document) SetContent(content string) {
	d.content = content
	d.elements = nil
}

// Elements returns the ordered element sequence, deriving it from Content on
// first access. The returned slice is the cache itself: callers must not
// mutate it (replace it wholesale via PopulateElements instead).
func (d *Document) Elements() []Element {
	if d.elements == nil {
		d.elements = ParseElements(d.content)
	}
	return d.elements
}

// PopulateElements is the only sanctioned way to pre-seed the element cache.
// Adapters that already know the document structure use it to skip the lazy
// derivation. The list is shape-checked; on failure the cache is left
// untouched and an *ElementValidationError is returned.
func (d *Document) PopulateElements(elements []Element) error {
	if err := validateElements(elements); err != nil {
		return err
	}
	d.elements = elements
	return nil
}

// HasExplicitElements reports whether an adapter pre-seeded structure. Used
// by the orchestrator when selecting a chunking strategy.
func (d *Document) HasExplicitElements() bool { return d.elements != nil }
