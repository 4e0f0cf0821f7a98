// Package symbols extracts hierarchical symbol paths from source files and
// registers extractors by file extension. The Go extractor walks go/ast;
// Python gets a lightweight indentation-based fallback since no AST library
// for it ships in this ecosystem.
package symbols

import "path/filepath"

// Extractor parses a source file into a set of hierarchical symbol paths,
// joined with "::" for nesting (e.g. "Outer::Inner::method").
type Extractor interface {
	Extract(path string) (map[string]struct{}, error)
}

// Registry maps a file extension (including the leading dot) to the
// Extractor responsible for it.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry returns a registry pre-populated with the extractors this
// module ships: Go (via go/ast) and Python (a minimal structural fallback,
// since no Python AST library ships in the ecosystem this module draws on).
func NewRegistry() *Registry {
	r := &Registry{extractors: map[string]Extractor{}}
	r.Register(".go", GoExtractor{})
	r.Register(".py", PythonExtractor{})
	return r
}

func (r *Registry) Register(ext string, e Extractor) {
	r.extractors[ext] = e
}

// Extract dispatches to the registered extractor for path's extension.
// Unregistered extensions return an empty set and no error.
func (r *Registry) Extract(path string) (map[string]struct{}, error) {
	ext := filepath.Ext(path)
	e, ok := r.extractors[ext]
	if !ok {
		return map[string]struct{}{}, nil
	}
	return e.Extract(path)
}
