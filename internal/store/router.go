package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/DeusData/codebase-index/internal/vcs"
)

// Router caches one open Store per database path.
// Each root (and branch of that root) gets its own .db file in the cache directory.
type Router struct {
	dir    string
	stores map[string]*Store // db path → open Store (lazy)
	mu     sync.Mutex
}

// NewRouter creates a Router, ensuring the cache directory exists.
func NewRouter(dir string) (*Router, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir cache: %w", err)
	}
	return &Router{
		dir:    dir,
		stores: make(map[string]*Store),
	}, nil
}

// DBPath returns the database file used for root on its current branch.
func (r *Router) DBPath(ctx context.Context, root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", root, err)
	}
	name := StoreName(abs, vcs.Qualifier(ctx, abs))
	return filepath.Join(r.dir, name+".db"), nil
}

// ForRoot returns the Store for root, opening it lazily.
func (r *Router) ForRoot(ctx context.Context, root string) (*Store, error) {
	dbPath, err := r.DBPath(ctx, root)
	if err != nil {
		return nil, err
	}
	s, err := r.ForPath(dbPath)
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(root)
	if err := s.SetMeta(ctx, "root", abs); err != nil {
		return nil, err
	}
	return s, nil
}

// ForPath returns the Store at dbPath, opening it lazily.
func (r *Router) ForPath(dbPath string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[dbPath]; ok {
		return s, nil
	}
	s, err := OpenPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", dbPath, err)
	}
	slog.Debug("router.open", "path", dbPath)
	r.stores[dbPath] = s
	return s, nil
}

// Open returns the paths of the currently cached stores.
func (r *Router) Open() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.stores))
	for p := range r.stores {
		paths = append(paths, p)
	}
	return paths
}

// Dir returns the cache directory path.
func (r *Router) Dir() string {
	return r.dir
}

// CloseAll closes all open Store connections.
func (r *Router) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for path, s := range r.stores {
		if err := s.Close(); err != nil {
			slog.Warn("router.close", "path", path, "err", err)
		}
	}
	r.stores = make(map[string]*Store)
}
