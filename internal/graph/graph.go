// Package graph answers dependency questions over an index store: direct
// imports and importers, transitive impact, symbol lookup through barrel
// re-exports, and usage discovery.
package graph

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/DeusData/codebase-index/internal/store"
)

// DefaultImpactDepth bounds impact traversal when the caller passes no depth.
const DefaultImpactDepth = 3

// Status distinguishes empty and ambiguous outcomes from real results.
type Status string

const (
	StatusFound     Status = "found"
	StatusAmbiguous Status = "ambiguous"
	StatusNotFound  Status = "not_found"
)

// Engine runs read-only queries against one Store.
type Engine struct {
	store *store.Store
	// ImpactDepth is used when Impact is called with depth <= 0.
	ImpactDepth int
}

// New returns an Engine over s.
func New(s *store.Store) *Engine {
	return &Engine{store: s, ImpactDepth: DefaultImpactDepth}
}

// Dependencies returns the import edges declared by file.
func (e *Engine) Dependencies(ctx context.Context, file string) ([]*store.ImportEdge, error) {
	return e.store.ImportsOf(ctx, file)
}

// Dependents returns the edges of other files that resolve to file.
func (e *Engine) Dependents(ctx context.Context, file string) ([]*store.ImportEdge, error) {
	return e.store.ImportersOf(ctx, file)
}

// SearchSymbols ranks symbols by name, signature and doc comment relevance.
func (e *Engine) SearchSymbols(ctx context.Context, query string, limit int) ([]*store.SymbolHit, error) {
	return e.store.SearchSymbols(ctx, query, limit)
}

// SearchFiles ranks indexed files by path and summary.
func (e *Engine) SearchFiles(ctx context.Context, query string, limit int) ([]*store.FileHit, error) {
	return e.store.SearchFiles(ctx, query, limit)
}

// SearchContent runs a full-text query over indexed file contents and
// returns at most limit hits with a highlighted snippet each.
func (e *Engine) SearchContent(ctx context.Context, query string, limit int) ([]*store.ContentHit, error) {
	return e.store.SearchContent(ctx, query, limit)
}

// admits reports whether edge brings sym into the importing file. A default
// export is imported as "default" whatever it was declared as.
func admits(edge *store.ImportEdge, sym *store.Symbol) bool {
	if edge.Imports(sym.Name) {
		return true
	}
	return sym.Kind == "default" && edge.Imports("default")
}

// fileText returns the current content of path, preferring the file on disk
// and falling back to the indexed copy.
func (e *Engine) fileText(ctx context.Context, path string) (string, error) {
	if b, err := os.ReadFile(path); err == nil {
		return string(b), nil
	}
	text, err := e.store.Content(ctx, path)
	if errors.Is(err, store.ErrNotFound) {
		slog.Debug("graph.content.missing", "path", path)
		return "", nil
	}
	return text, err
}
