package ir

import (
	"errors"
	"testing"
)

func TestDocument_LazyElementDerivation(t *testing.T) {
	doc := New("# Title\n\nbody text", nil)

	if doc.HasExplicitElements() {
		t.Error("fresh document should not report explicit elements")
	}

	els := doc.Elements()
	if len(els) != 2 {
		t.Fatalf("expected 2 derived elements, got %d: %+v", len(els), els)
	}
	if els[0].Type != TypeHeading || els[0].Level != 1 {
		t.Errorf("first element = %+v, want level-1 heading", els[0])
	}
	if els[1].Type != TypeParagraph {
		t.Errorf("second element = %+v, want paragraph", els[1])
	}
}

func TestDocument_SetContentInvalidatesCache(t *testing.T) {
	doc := New("# Old", nil)
	if got := doc.Elements(); len(got) != 1 || got[0].Content != "Old" {
		t.Fatalf("unexpected initial elements: %+v", got)
	}

	doc.SetContent("# New\n\nparagraph")
	if doc.HasExplicitElements() {
		t.Error("SetContent must drop the element cache")
	}
	els := doc.Elements()
	if len(els) != 2 || els[0].Content != "New" {
		t.Errorf("elements not rederived after SetContent: %+v", els)
	}
}

func TestDocument_PopulateElements(t *testing.T) {
	doc := New("raw", nil)
	explicit := []Element{
		{Type: TypeHeading, Content: "Intro", Level: 1},
		{Type: TypeParagraph, Content: "text"},
	}
	if err := doc.PopulateElements(explicit); err != nil {
		t.Fatalf("PopulateElements: %v", err)
	}
	if !doc.HasExplicitElements() {
		t.Error("expected explicit elements after populate")
	}
	if got := doc.Elements(); len(got) != 2 || got[0].Content != "Intro" {
		t.Errorf("Elements() did not return the populated list: %+v", got)
	}
}

func TestDocument_PopulateElementsRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		els  []Element
	}{
		{"unknown type", []Element{{Type: "mystery", Content: "x"}}},
		{"heading level 0", []Element{{Type: TypeHeading, Content: "x", Level: 0}}},
		{"heading level 7", []Element{{Type: TypeHeading, Content: "x", Level: 7}}},
		{"empty content", []Element{{Type: TypeParagraph}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := New("# Real", nil)
			err := doc.PopulateElements(tc.els)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *ElementValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ElementValidationError, got %T", err)
			}
			if doc.HasExplicitElements() {
				t.Error("failed populate must leave the cache untouched")
			}
			// Lazy derivation still works afterwards.
			if got := doc.Elements(); len(got) != 1 {
				t.Errorf("lazy derivation broken after failed populate: %+v", got)
			}
		})
	}
}

func TestDocument_ImageMayHaveEmptyContent(t *testing.T) {
	doc := New("x", nil)
	err := doc.PopulateElements([]Element{{Type: TypeImage, Metadata: map[string]any{"src": "a.png"}}})
	if err != nil {
		t.Errorf("image with empty content should validate: %v", err)
	}
}
