package backend

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a parse failure.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindRateLimited       ErrorKind = "rate_limited"
	KindServerError       ErrorKind = "server_error"
	KindMalformedInput    ErrorKind = "malformed_input"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
)

// ParserError is the typed failure every engine surfaces. Transient kinds
// (timeout, rate_limited, server_error) are retried by the Client; permanent
// kinds propagate immediately to the orchestrator's fallback loop.
type ParserError struct {
	Engine string
	Kind   ErrorKind
	Err    error
}

func (e *ParserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Engine, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Engine, e.Kind)
}

func (e *ParserError) Unwrap() error { return e.Err }

// Retryable reports whether re-invoking the same engine can help.
func (e *ParserError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindRateLimited, KindServerError:
		return true
	}
	return false
}

// IsRetryable checks whether an error is worth retrying on the same engine.
func IsRetryable(err error) bool {
	var perr *ParserError
	return errors.As(err, &perr) && perr.Retryable()
}

func parseErr(engine string, kind ErrorKind, err error) *ParserError {
	return &ParserError{Engine: engine, Kind: kind, Err: err}
}
