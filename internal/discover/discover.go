package discover

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/DeusData/codebase-index/internal/infra"
	"github.com/DeusData/codebase-index/internal/lang"
)

// IGNORE_PATTERNS are directory names to skip during discovery.
var IGNORE_PATTERNS = map[string]bool{
	".cache": true, ".git": true, ".hg": true, ".svn": true,
	".idea": true, ".vscode": true, ".vs": true,
	".next": true, ".nuxt": true, ".svelte-kit": true, ".turbo": true,
	".parcel-cache": true, ".angular": true, ".expo": true,
	".npm": true, ".nyc_output": true, ".pnpm-store": true, ".yarn": true,
	".vercel": true, ".netlify": true, ".serverless": true,
	".tmp": true, "bower_components": true, "build": true,
	"coverage": true, "dist": true, "jspm_packages": true,
	"node_modules": true, "out": true, "storybook-static": true,
	"temp": true, "tmp": true, "vendor": true,
}

// IGNORE_SUFFIXES are file suffixes to skip.
var IGNORE_SUFFIXES = []string{
	".tmp", "~", ".min.js", ".bundle.js", ".map", ".chunk.js",
}

// IgnoreFileName is the per-repository ignore file read from the root.
const IgnoreFileName = ".codebase-indexignore"

// FileInfo represents a discovered file.
type FileInfo struct {
	Path     string        // absolute path
	RelPath  string        // relative to repo root, slash-separated
	Language lang.Language // lang.Config for infrastructure files
	MTime    int64         // modification time, unix nanoseconds
	Size     int64
}

// Options configures file discovery.
type Options struct {
	IgnoreFile  string   // path to an ignore file (optional)
	Ignore      []string // extra doublestar patterns
	MaxFileSize int64    // files larger than this are skipped; 0 disables
}

// rule is one ignore pattern. Patterns without a slash match any path
// component's base name; patterns with a slash are anchored to the root.
type rule struct {
	pattern  string
	dirOnly  bool
	anchored bool
}

func compileRules(patterns []string) []rule {
	rules := make([]rule, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		r := rule{}
		if strings.HasSuffix(p, "/") {
			r.dirOnly = true
			p = strings.TrimSuffix(p, "/")
		}
		if strings.Contains(p, "/") {
			r.anchored = true
			p = strings.TrimPrefix(p, "/")
		}
		r.pattern = p
		rules = append(rules, r)
	}
	return rules
}

func (r rule) match(name, rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	if r.anchored {
		ok, _ := doublestar.Match(r.pattern, rel)
		return ok
	}
	ok, _ := doublestar.Match(r.pattern, name)
	return ok
}

func ignored(rules []rule, name, rel string, isDir bool) bool {
	for _, r := range rules {
		if r.match(name, rel, isDir) {
			return true
		}
	}
	return false
}

// shouldSkipDir returns true if the directory should be skipped during discovery.
func shouldSkipDir(name, rel string, rules []rule) bool {
	if IGNORE_PATTERNS[name] {
		return true
	}
	return ignored(rules, name, rel, true)
}

func hasIgnoredSuffix(name string) bool {
	for _, suffix := range IGNORE_SUFFIXES {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Discover walks a repository and returns every source and infrastructure
// file together with its modification time.
func Discover(ctx context.Context, repoPath string, opts *Options) ([]FileInfo, error) {
	repoPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var patterns []string
	ignPath := filepath.Join(repoPath, IgnoreFileName)
	if opts != nil && opts.IgnoreFile != "" {
		ignPath = opts.IgnoreFile
	}
	patterns, _ = loadIgnoreFile(ignPath)
	var maxSize int64
	if opts != nil {
		patterns = append(patterns, opts.Ignore...)
		maxSize = opts.MaxFileSize
	}
	rules := compileRules(patterns)

	var files []FileInfo

	err = filepath.Walk(repoPath, func(path string, info os.FileInfo, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if walkErr != nil {
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, _ := filepath.Rel(repoPath, path)
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && shouldSkipDir(info.Name(), rel, rules) {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		name := info.Name()
		if hasIgnoredSuffix(name) || ignored(rules, name, rel, false) {
			return nil
		}
		if maxSize > 0 && info.Size() > maxSize {
			return nil
		}

		fi := FileInfo{
			Path:    path,
			RelPath: rel,
			MTime:   info.ModTime().UnixNano(),
			Size:    info.Size(),
		}
		if l, ok := lang.ForPath(path); ok {
			fi.Language = l
			files = append(files, fi)
			return nil
		}
		if infra.IsConfigFile(path) {
			fi.Language = lang.Config
			files = append(files, fi)
		}
		return nil
	})

	return files, err
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			patterns = append(patterns, line)
		}
	}
	return patterns, scanner.Err()
}
