// Package metapath reconciles the two physical shapes of the persisted
// header_path field: the deprecated scalar delimited string and the
// versioned ordered array. Reads tolerate both; this system only ever writes
// the array shape with its version tag.
package metapath

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Version is the current header_path schema version tag.
const Version = "v1"

// legacy scalar grammar: '/' separates segments; '\/' is a literal slash
// inside a segment and '\\' a literal backslash. Any other escape, or a
// trailing backslash, is ambiguous and rejected rather than mis-split.
const (
	delimiter = '/'
	escape    = '\\'
)

// HeaderPath is the normalized ordered array shape.
type HeaderPath struct {
	Segments      []string `json:"header_path"`
	SchemaVersion string   `json:"header_path_schema_version"`
}

// MigrationErrorKind classifies a normalization failure.
type MigrationErrorKind string

const (
	// AmbiguousDelimiter marks a legacy scalar whose escapes cannot be
	// resolved unambiguously. The record stays in its legacy shape.
	AmbiguousDelimiter MigrationErrorKind = "ambiguous_delimiter"

	// UnsupportedShape marks a raw value that is neither shape.
	UnsupportedShape MigrationErrorKind = "unsupported_shape"
)

// MigrationError reports why a raw header_path value could not be
// normalized.
type MigrationError struct {
	Kind  MigrationErrorKind
	Value string
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("header_path migration: %s: %q", e.Kind, e.Value)
}

// Normalize turns any persisted header_path shape into the versioned array
// shape. It is idempotent: array-shaped input tagged with the current
// version is returned as-is, and normalizing its own output is a no-op.
func Normalize(raw any) (HeaderPath, error) {
	switch v := raw.(type) {
	case HeaderPath:
		if v.SchemaVersion == Version {
			return v, nil
		}
		return HeaderPath{Segments: v.Segments, SchemaVersion: Version}, nil

	case *HeaderPath:
		return Normalize(*v)

	case []string:
		return HeaderPath{Segments: append([]string(nil), v...), SchemaVersion: Version}, nil

	case []any:
		segments := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return HeaderPath{}, &MigrationError{Kind: UnsupportedShape, Value: fmt.Sprint(raw)}
			}
			segments = append(segments, s)
		}
		return HeaderPath{Segments: segments, SchemaVersion: Version}, nil

	case map[string]any:
		segs, ok := v["header_path"]
		if !ok {
			return HeaderPath{}, &MigrationError{Kind: UnsupportedShape, Value: fmt.Sprint(raw)}
		}
		return Normalize(segs)

	case string:
		return normalizeScalar(v)

	case nil:
		return HeaderPath{Segments: []string{}, SchemaVersion: Version}, nil
	}
	return HeaderPath{}, &MigrationError{Kind: UnsupportedShape, Value: fmt.Sprint(raw)}
}

// normalizeScalar handles string-typed raw values: JSON-encoded array shapes
// from the store, or the legacy delimited scalar.
func normalizeScalar(s string) (HeaderPath, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return HeaderPath{Segments: []string{}, SchemaVersion: Version}, nil
	}

	// Array shapes round-tripped through a text column.
	if trimmed[0] == '[' {
		var segments []string
		if err := json.Unmarshal([]byte(trimmed), &segments); err != nil {
			return HeaderPath{}, &MigrationError{Kind: UnsupportedShape, Value: s}
		}
		return HeaderPath{Segments: segments, SchemaVersion: Version}, nil
	}
	if trimmed[0] == '{' {
		var hp HeaderPath
		if err := json.Unmarshal([]byte(trimmed), &hp); err != nil || hp.Segments == nil {
			return HeaderPath{}, &MigrationError{Kind: UnsupportedShape, Value: s}
		}
		return Normalize(hp)
	}

	segments, err := splitLegacy(trimmed)
	if err != nil {
		return HeaderPath{}, err
	}
	return HeaderPath{Segments: segments, SchemaVersion: Version}, nil
}

// splitLegacy splits a legacy delimited scalar, resolving the escape
// sequences and rejecting anything genuinely ambiguous.
func splitLegacy(s string) ([]string, error) {
	segments := []string{}
	var current strings.Builder
	escaped := false

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, r := range s {
		if escaped {
			switch r {
			case delimiter, escape:
				current.WriteRune(r)
			default:
				return nil, &MigrationError{Kind: AmbiguousDelimiter, Value: s}
			}
			escaped = false
			continue
		}
		switch r {
		case escape:
			escaped = true
		case delimiter:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		// Trailing backslash: no way to tell what it was escaping.
		return nil, &MigrationError{Kind: AmbiguousDelimiter, Value: s}
	}
	flush()
	return segments, nil
}

// EncodeSegments renders segments as the JSON array text the store persists.
func EncodeSegments(segments []string) (string, error) {
	if segments == nil {
		segments = []string{}
	}
	b, err := json.Marshal(segments)
	if err != nil {
		return "", fmt.Errorf("encode header_path: %w", err)
	}
	return string(b), nil
}
