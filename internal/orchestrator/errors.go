package orchestrator

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a whole-document failure.
type ErrorKind string

const (
	// AllBackendsFailed: every candidate in the fallback chain failed.
	AllBackendsFailed ErrorKind = "all_backends_failed"

	// InvalidIR: the winning backend's output could not be turned into a
	// valid Standardized Document, even after sanitation.
	InvalidIR ErrorKind = "invalid_ir"
)

// AttemptError records one failed candidate.
type AttemptError struct {
	Backend string
	Err     error
}

// OrchestrationError is the structured final failure surfaced to the caller.
// It names the exhausted backend chain and carries every underlying error.
type OrchestrationError struct {
	Kind          ErrorKind
	CorrelationID string
	Attempts      []AttemptError
}

func (e *OrchestrationError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s", e.Kind)
	if len(e.Attempts) > 0 {
		sb.WriteString(": ")
		for i, a := range e.Attempts {
			if i > 0 {
				sb.WriteString("; ")
			}
			fmt.Fprintf(&sb, "%s: %v", a.Backend, a.Err)
		}
	}
	if e.CorrelationID != "" {
		fmt.Fprintf(&sb, " (correlation_id=%s)", e.CorrelationID)
	}
	return sb.String()
}

// Unwrap exposes the underlying error chain to errors.Is/As.
func (e *OrchestrationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			errs = append(errs, a.Err)
		}
	}
	return errs
}
