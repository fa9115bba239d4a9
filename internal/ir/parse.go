package ir

import (
	"regexp"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	listRe    = regexp.MustCompile(`^\s*(?:[-*+]|\d+[.)])\s+`)
	imageRe   = regexp.MustCompile(`^!\[[^\]]*\]\([^)]*\)\s*$`)
)

// ParseElements derives the ordered element sequence from markdown-ish
// content using the same fence-aware line scan the chunking engine runs.
// Headers inside fenced code blocks are never parsed as headings.
func ParseElements(content string) []Element {
	if content == "" {
		return []Element{}
	}

	var (
		elements []Element
		para     []string
		block    []string // current table, list, or code block lines
		blockTyp ElementType
		fence    string // "```" or "~~~" while inside a fence
	)

	flushPara := func() {
		text := strings.TrimSpace(strings.Join(para, "\n"))
		if text != "" {
			elements = append(elements, Element{Type: TypeParagraph, Content: text})
		}
		para = para[:0]
	}
	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		elements = append(elements, Element{Type: blockTyp, Content: strings.Join(block, "\n")})
		block = block[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		stripped := strings.TrimLeft(line, " \t")

		// Fence open/close. Only the matching marker closes a block.
		if strings.HasPrefix(stripped, "```") || strings.HasPrefix(stripped, "~~~") {
			marker := stripped[:3]
			switch {
			case fence == "":
				flushPara()
				flushBlock()
				fence = marker
				blockTyp = TypeCodeBlock
				block = append(block, line)
				continue
			case fence == marker:
				block = append(block, line)
				fence = ""
				flushBlock()
				continue
			}
			// Mismatched marker inside a fence is ordinary code content.
		}
		if fence != "" {
			block = append(block, line)
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			flushPara()
			flushBlock()
			elements = append(elements, Element{
				Type:    TypeHeading,
				Content: strings.TrimSpace(m[2]),
				Level:   len(m[1]),
			})
			continue
		}

		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushPara()
			flushBlock()
		case strings.HasPrefix(trimmed, "|"):
			flushPara()
			if blockTyp != TypeTable {
				flushBlock()
				blockTyp = TypeTable
			}
			block = append(block, line)
		case imageRe.MatchString(trimmed):
			flushPara()
			flushBlock()
			elements = append(elements, Element{Type: TypeImage, Content: trimmed})
		case listRe.MatchString(line):
			flushPara()
			if blockTyp != TypeList {
				flushBlock()
				blockTyp = TypeList
			}
			block = append(block, line)
		default:
			flushBlock()
			para = append(para, line)
		}
	}
	flushPara()
	flushBlock()

	if elements == nil {
		return []Element{}
	}
	return elements
}
