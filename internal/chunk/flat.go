package chunk

// Flat is the naive fallback strategy for documents without usable
// structure: plain token windows with overlap and empty header paths.
func Flat(content string, opts Options) []Chunk {
	if content == "" {
		return []Chunk{}
	}
	opts = opts.normalized()

	overlapTokens := opts.ChunkTokenNum * opts.OverlapPercent / 100
	parts := splitText(content, opts.ChunkTokenNum, overlapTokens)

	out := make([]Chunk, 0, len(parts))
	for _, part := range parts {
		out = append(out, Chunk{
			Text:          part,
			HeaderPath:    []string{},
			Tokens:        EstimateTokens(part),
			SchemaVersion: SchemaVersion,
		})
	}
	return out
}
