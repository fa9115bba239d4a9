package ir

import "fmt"

// ElementType tags a structural unit of a document.
type ElementType string

const (
	TypeHeading   ElementType = "heading"
	TypeParagraph ElementType = "paragraph"
	TypeTable     ElementType = "table"
	TypeCodeBlock ElementType = "code_block"
	TypeList      ElementType = "list"
	TypeImage     ElementType = "image"
)

// knownTypes is the set accepted by PopulateElements. The tag set is open on
// the read side: adapters from newer backends may emit types we merely pass
// through.
var knownTypes = map[ElementType]bool{
	TypeHeading:   true,
	TypeParagraph: true,
	TypeTable:     true,
	TypeCodeBlock: true,
	TypeList:      true,
	TypeImage:     true,
}

// Element is one semantic unit extracted from a document. Immutable once
// created.
type Element struct {
	Type     ElementType    `json:"type"`
	Content  string         `json:"content"`
	Level    int            `json:"level,omitempty"` // headings only, 1-6
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ElementValidationError rejects a malformed pre-populated element list.
type ElementValidationError struct {
	Index  int
	Reason string
}

func (e *ElementValidationError) Error() string {
	return fmt.Sprintf("element %d: %s", e.Index, e.Reason)
}

// validateElements applies the light shape checks PopulateElements promises.
func validateElements(elements []Element) error {
	for i, el := range elements {
		if !knownTypes[el.Type] {
			return &ElementValidationError{Index: i, Reason: fmt.Sprintf("unrecognized type %q", el.Type)}
		}
		if el.Type == TypeHeading && (el.Level < 1 || el.Level > 6) {
			return &ElementValidationError{Index: i, Reason: fmt.Sprintf("heading level %d out of range 1..6", el.Level)}
		}
		if el.Type != TypeImage && el.Content == "" {
			return &ElementValidationError{Index: i, Reason: "empty content"}
		}
	}
	return nil
}
