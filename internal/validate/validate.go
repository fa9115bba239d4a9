// Package validate checks candidate Standardized Documents against the IR
// schema and repairs the recoverable problems (control characters, encoding
// artifacts) in place.
package validate

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/davharte/docbridge/internal/ir"
)

//go:embed schema.json
var schemaJSON string

var (
	once    sync.Once
	schema  *jsonschema.Schema
	loadErr error
)

func load() {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("ir.schema.json", strings.NewReader(schemaJSON)); err != nil {
		loadErr = err
		return
	}
	s, err := c.Compile("ir.schema.json")
	if err != nil {
		loadErr = err
		return
	}
	schema = s
}

// Document validates doc against the embedded IR schema. Elements are only
// checked when an adapter pre-populated them; a lazily derived cache is the
// scanner's own output and already well-typed.
func Document(doc *ir.Document) error {
	once.Do(load)
	if loadErr != nil {
		return fmt.Errorf("load IR schema: %w", loadErr)
	}

	shape := map[string]any{
		"content":  doc.Content(),
		"metadata": doc.Metadata,
	}
	if doc.HasExplicitElements() {
		shape["elements"] = doc.Elements()
	}

	b, err := json.Marshal(shape)
	if err != nil {
		return fmt.Errorf("marshal IR: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal IR: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("IR schema: %w", err)
	}
	return nil
}
