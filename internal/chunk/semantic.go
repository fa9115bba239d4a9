package chunk

import (
	"regexp"
	"strings"
)

var headerRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

// Semantic runs the structure-aware scan over content and emits hierarchy
// tagged chunks in document order.
//
// The scan is a two-mode state machine over lines: in normal mode a header
// line closes the open section, adjusts the header stack, and starts a new
// section containing the header line itself; inside a code fence header
// parsing is suppressed. A fence line always belongs to the section buffer,
// and only the matching fence marker (``` or ~~~) closes a fence. Popping
// uses ">= level" so the stack is always a strictly increasing level
// sequence root to top.
//
// Sections larger than opts.ChunkTokenNum are split by a secondary pass that
// keeps the section's header path on every sub-chunk. A document with no
// headers at all becomes one chunk with an empty header path; Semantic never
// fails.
func Semantic(content string, opts Options) []Chunk {
	if content == "" {
		return []Chunk{}
	}
	opts = opts.normalized()

	var (
		chunks []Chunk
		stack  []frame
		buf    strings.Builder
		fence  string // "" in normal mode, else the open fence marker
	)

	emit := func(text string, path []string) {
		if strings.TrimSpace(text) == "" {
			return
		}
		chunks = append(chunks, splitSection(text, path, opts)...)
	}

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		stripped := strings.TrimLeft(line, " \t")

		if strings.HasPrefix(stripped, "```") || strings.HasPrefix(stripped, "~~~") {
			marker := stripped[:3]
			if fence == "" {
				fence = marker
			} else if fence == marker {
				fence = ""
			}
			// Mismatched markers inside a fence are just content.
			buf.WriteString(line)
			buf.WriteString("\n")
			continue
		}

		if fence == "" {
			if m := headerRe.FindStringSubmatch(line); m != nil {
				// Close the open section under the stack as it stood
				// before this header.
				emit(buf.String(), pathCopy(stack))

				level := len(m[1])
				text := strings.TrimSpace(m[2])

				for len(stack) > 0 && stack[len(stack)-1].level >= level {
					stack = stack[:len(stack)-1]
				}
				stack = append(stack, frame{level: level, text: text})

				buf.Reset()
				buf.WriteString(line)
				buf.WriteString("\n")
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteString("\n")
	}

	// The scan appends a newline per Split element, which is always one more
	// than the content carries: the last element is either the final
	// unterminated line or the empty string after a terminating newline.
	// Dropping exactly one lets chunk texts concatenate back to the
	// original content.
	tail := strings.TrimSuffix(buf.String(), "\n")
	emit(tail, pathCopy(stack))

	if chunks == nil {
		return []Chunk{}
	}
	return chunks
}

// splitSection applies the token-limit pass to one section. Every sub-chunk
// keeps the section's header path unchanged.
func splitSection(text string, path []string, opts Options) []Chunk {
	tokens := EstimateTokens(text)
	if tokens <= opts.ChunkTokenNum {
		return []Chunk{{Text: text, HeaderPath: path, Tokens: tokens, SchemaVersion: SchemaVersion}}
	}

	overlapTokens := opts.ChunkTokenNum * opts.OverlapPercent / 100
	parts := splitText(text, opts.ChunkTokenNum, overlapTokens)
	out := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		out = append(out, Chunk{
			Text:          part,
			HeaderPath:    path,
			Tokens:        EstimateTokens(part),
			SchemaVersion: SchemaVersion,
		})
	}
	return out
}
