package chunk

import "strings"

// splitText breaks an oversized section into pieces of approximately
// targetTokens, preferring paragraph boundaries, then sentence boundaries,
// then plain words. Consecutive pieces overlap by overlapTokens.
func splitText(text string, targetTokens, overlapTokens int) []string {
	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if currentTokens > 0 {
			result = append(result, current.String())
		}
		current.Reset()
		currentTokens = 0
	}

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)

		// A single paragraph over the target gets sentence-split on its own.
		if paraTokens > targetTokens {
			flush()
			result = append(result, splitBySentences(para, targetTokens, overlapTokens)...)
			continue
		}

		if currentTokens+paraTokens > targetTokens && currentTokens > 0 {
			prev := current.String()
			flush()
			if overlap := overlapTail(prev, overlapTokens); overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}
	flush()

	if result == nil {
		return []string{text}
	}
	return result
}

func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks one large paragraph into sentence groups, falling
// back to word grouping for a single oversized sentence.
func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	sentences := splitSentences(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if sentTokens > targetTokens {
			if currentTokens > 0 {
				result = append(result, current.String())
				current.Reset()
				currentTokens = 0
			}
			result = append(result, splitByWords(sent, targetTokens)...)
			continue
		}

		if currentTokens+sentTokens > targetTokens && currentTokens > 0 {
			prev := current.String()
			result = append(result, prev)
			current.Reset()
			currentTokens = 0
			if overlap := overlapTail(prev, overlapTokens); overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}
	return result
}

// splitSentences does basic sentence splitting on terminal punctuation.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitByWords is the last resort for a sentence with no usable boundaries.
func splitByWords(text string, targetTokens int) []string {
	words := strings.Fields(text)
	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, word := range words {
		wordTokens := EstimateTokens(word)
		if currentTokens+wordTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())
			current.Reset()
			currentTokens = 0
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(word)
		currentTokens += wordTokens
	}
	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}

// overlapTail extracts roughly the last targetTokens worth of text.
func overlapTail(text string, targetTokens int) string {
	if targetTokens <= 0 {
		return ""
	}
	words := strings.Fields(text)
	// Approximate: 1.33 tokens per word.
	targetWords := int(float64(targetTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}
