package orchestrator

import (
	"path/filepath"
	"strings"

	"github.com/davharte/docbridge/internal/backend"
)

// chains maps a file extension to its fallback chain, highest fidelity
// first. Formats the remote engine handles better than the local ones list
// it first; if no remote client is registered the chain simply falls
// through to the local candidate.
var chains = map[string][]string{
	".md":       {backend.EngineMarkdown},
	".markdown": {backend.EngineMarkdown},
	".html":     {backend.EngineHTML},
	".htm":      {backend.EngineHTML},
	".pdf":      {backend.EngineRemote, backend.EnginePDF},
	".docx":     {backend.EngineRemote, backend.EngineDocx},
	".xlsx":     {backend.EngineXLSX},
	".txt":      {backend.EnginePlaintext},
	".text":     {backend.EnginePlaintext},
	".log":      {backend.EnginePlaintext},
}

// ChainFor returns the fallback chain for a filename's extension.
func ChainFor(filename string) ([]string, bool) {
	chain, ok := chains[strings.ToLower(filepath.Ext(filename))]
	return chain, ok
}

// IsSupportedExtension reports whether the filename maps to any chain.
func IsSupportedExtension(filename string) bool {
	_, ok := ChainFor(filename)
	return ok
}
