// Package chunk turns a Standardized Document's content into retrieval-ready
// text units. The semantic strategy walks the markdown hierarchy and tags
// every chunk with its header path; the flat strategy is a plain token
// window fallback for unstructured text.
package chunk

// SchemaVersion tags the header-path shape emitted on every chunk.
const SchemaVersion = "v1"

// Chunk is an emitted output unit. Immutable once emitted.
type Chunk struct {
	// Text includes the section's own leading header line, when it has one.
	Text string `json:"text"`

	// HeaderPath is the ordered ancestor header texts, root first.
	HeaderPath []string `json:"header_path"`

	// Tokens is the estimated token count of Text.
	Tokens int `json:"tokens"`

	SchemaVersion string `json:"header_path_schema_version"`
}

// Options controls the token-limit secondary pass. It does not influence
// header-path assignment.
type Options struct {
	// ChunkTokenNum is the target maximum tokens per chunk.
	ChunkTokenNum int

	// OverlapPercent of a chunk's tokens are repeated at the start of the
	// next chunk split from the same section. Clamped to 0..100.
	OverlapPercent int
}

// DefaultOptions mirrors the service defaults.
func DefaultOptions() Options {
	return Options{ChunkTokenNum: 512, OverlapPercent: 10}
}

func (o Options) normalized() Options {
	if o.ChunkTokenNum <= 0 {
		o.ChunkTokenNum = 512
	}
	if o.OverlapPercent < 0 {
		o.OverlapPercent = 0
	}
	if o.OverlapPercent > 100 {
		o.OverlapPercent = 100
	}
	return o
}

func pathCopy(stack []frame) []string {
	if len(stack) == 0 {
		return []string{}
	}
	out := make([]string, len(stack))
	for i, f := range stack {
		out[i] = f.text
	}
	return out
}

// frame is one open header on the scan stack.
type frame struct {
	level int
	text  string
}
