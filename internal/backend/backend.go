// Package backend holds the parser clients: one Engine per external
// extraction backend, a typed error taxonomy, and the retrying Client that
// wraps an Engine with backoff and deadline policy.
//
// Engines return backend-native output; translating that output into the
// Standardized Document IR is the adapter package's job.
package backend

import "context"

// Request is the uniform input to every engine: raw document bytes plus a
// filename (the format hint) and an opaque options map.
type Request struct {
	Filename string
	Data     []byte
	Options  map[string]string
}

// Native is the tagged union of backend-native outputs. Each engine returns
// its own concrete payload; adapters type-switch on it.
type Native interface {
	// Engine names the backend that produced this payload.
	Engine() string
}

// Engine is the capability interface implemented once per backend. Parse may
// perform network I/O and must honor ctx cancellation; it has no other
// observable side effect.
type Engine interface {
	Name() string
	Parse(ctx context.Context, req Request) (Native, error)
}
