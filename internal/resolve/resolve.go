// Package resolve maps raw module specifiers to indexed files.
//
// Resolution runs in a fixed order and the first success wins: relative
// paths, then tsconfig/jsconfig aliases and baseUrl, then workspace packages.
// Anything left is external. Project contexts are loaded once per config
// directory and cached on the Session, so one Session should be used for one
// sync pass (or one long-lived server) against one repository.
package resolve

import (
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/DeusData/codebase-index/internal/lang"
)

// cacheSize bounds each of the Session caches.
const cacheSize = 4096

// Session holds the resolver caches. It is safe for concurrent use.
type Session struct {
	contexts   *lru.Cache[string, *projectContext] // config dir → context
	workspaces *lru.Cache[string, *workspace]      // workspace root → registry
	locals     *lru.Cache[string, map[string]string]
	nearest    *lru.Cache[string, string] // kind+dir → ancestor dir ("" when none)
	group      singleflight.Group
}

// NewSession creates an empty resolver session.
func NewSession() *Session {
	contexts, _ := lru.New[string, *projectContext](cacheSize)
	workspaces, _ := lru.New[string, *workspace](cacheSize)
	locals, _ := lru.New[string, map[string]string](cacheSize)
	nearest, _ := lru.New[string, string](cacheSize)
	return &Session{
		contexts:   contexts,
		workspaces: workspaces,
		locals:     locals,
		nearest:    nearest,
	}
}

// Resolve returns the absolute path specifier denotes when imported from
// importingFile inside repoRoot, or false when it is external or unresolvable.
func (s *Session) Resolve(specifier, importingFile, repoRoot string) (string, bool) {
	if specifier == "" {
		return "", false
	}
	dir := filepath.Dir(importingFile)

	if isRelative(specifier) {
		target := joinSpecifier(dir, specifier)
		if specifier == "." || specifier == ".." || strings.HasSuffix(specifier, "/") {
			return probeIndex(target)
		}
		return probe(target)
	}

	if pc := s.contextFor(dir, repoRoot); pc != nil {
		if p, ok := pc.resolveAlias(specifier); ok {
			return p, true
		}
		if pc.baseURL != "" {
			if p, ok := probe(filepath.Join(pc.baseURL, filepath.FromSlash(specifier))); ok {
				return p, true
			}
		}
	}

	if p, ok := s.resolvePackage(specifier, dir, repoRoot); ok {
		return p, true
	}
	return "", false
}

func isRelative(spec string) bool {
	return spec == "." || spec == ".." ||
		strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		strings.HasPrefix(spec, "/")
}

func joinSpecifier(dir, spec string) string {
	if strings.HasPrefix(spec, "/") {
		return filepath.Clean(filepath.FromSlash(spec))
	}
	return filepath.Join(dir, filepath.FromSlash(spec))
}

// probe finds the file a path-like target denotes: sibling source extensions
// for an explicit .js-family extension, the exact path, the path plus each
// source extension, then the directory's index file.
func probe(target string) (string, bool) {
	ext := filepath.Ext(target)
	if siblings := lang.SourceSiblings(ext); len(siblings) > 0 {
		stem := strings.TrimSuffix(target, ext)
		for _, sib := range siblings {
			if isFile(stem + sib) {
				return stem + sib, true
			}
		}
	}
	if isFile(target) {
		return target, true
	}
	for _, e := range lang.ProbeExtensions {
		if isFile(target + e) {
			return target + e, true
		}
	}
	return probeIndex(target)
}

func probeIndex(dir string) (string, bool) {
	if !isDir(dir) {
		return "", false
	}
	for _, e := range lang.ProbeExtensions {
		index := filepath.Join(dir, "index"+e)
		if isFile(index) {
			return index, true
		}
	}
	return "", false
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

// ancestor walks from dir up to root (inclusive) and returns the first
// directory for which found reports true. Results are cached per kind.
func (s *Session) ancestor(kind, dir, root string, found func(dir string) bool) string {
	key := kind + "\x00" + root + "\x00" + dir
	if v, ok := s.nearest.Get(key); ok {
		return v
	}
	root = filepath.Clean(root)
	result := ""
	for d := filepath.Clean(dir); ; {
		if found(d) {
			result = d
			break
		}
		if d == root || !within(d, root) {
			break
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	s.nearest.Add(key, result)
	return result
}

// within reports whether p is root or below it.
func within(p, root string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
