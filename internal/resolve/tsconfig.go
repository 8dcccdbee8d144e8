package resolve

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tailscale/hujson"
)

// maxExtendsDepth bounds tsconfig "extends" chains.
const maxExtendsDepth = 8

// configNames are the project configuration files, in preference order.
var configNames = []string{"tsconfig.json", "jsconfig.json"}

// projectContext is the alias map and base directory of one config directory.
type projectContext struct {
	configDir  string
	configFile string
	baseURL    string // absolute; "" when neither baseUrl nor paths is set
	aliases    []alias
}

// alias is one compilerOptions.paths entry with absolute targets.
type alias struct {
	pattern  string
	prefix   string
	suffix   string
	wildcard bool
	targets  []string
}

func newAlias(pattern string, targets []string) alias {
	a := alias{pattern: pattern, targets: targets}
	if i := strings.IndexByte(pattern, '*'); i >= 0 {
		a.wildcard = true
		a.prefix, a.suffix = pattern[:i], pattern[i+1:]
	}
	return a
}

// match reports whether spec matches the pattern and returns the text the
// wildcard captured.
func (a alias) match(spec string) (string, bool) {
	if !a.wildcard {
		return "", spec == a.pattern
	}
	if len(spec) < len(a.prefix)+len(a.suffix) || !strings.HasPrefix(spec, a.prefix) || !strings.HasSuffix(spec, a.suffix) {
		return "", false
	}
	return spec[len(a.prefix) : len(spec)-len(a.suffix)], true
}

// resolveAlias tries every matching alias, most specific first, and probes
// each substituted target.
func (pc *projectContext) resolveAlias(spec string) (string, bool) {
	for _, a := range pc.aliases {
		capture, ok := a.match(spec)
		if !ok {
			continue
		}
		for _, t := range a.targets {
			if p, ok := probe(strings.Replace(t, "*", capture, 1)); ok {
				return p, true
			}
		}
	}
	return "", false
}

// matchingAlias returns the first alias pattern spec matches.
func (pc *projectContext) matchingAlias(spec string) (string, bool) {
	for _, a := range pc.aliases {
		if _, ok := a.match(spec); ok {
			return a.pattern, true
		}
	}
	return "", false
}

func hasProjectConfig(dir string) bool {
	for _, name := range configNames {
		if isFile(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}

// contextFor returns the context of the nearest config directory between dir
// and root, or nil when there is none.
func (s *Session) contextFor(dir, root string) *projectContext {
	configDir := s.ancestor("config", dir, root, hasProjectConfig)
	if configDir == "" {
		return nil
	}
	if pc, ok := s.contexts.Get(configDir); ok {
		return pc
	}
	v, _, _ := s.group.Do("config:"+configDir, func() (any, error) {
		if pc, ok := s.contexts.Get(configDir); ok {
			return pc, nil
		}
		pc := loadProjectContext(configDir)
		s.contexts.Add(configDir, pc)
		return pc, nil
	})
	return v.(*projectContext)
}

// loadProjectContext reads the config in dir. A malformed config yields a
// context without aliases.
func loadProjectContext(dir string) *projectContext {
	pc := &projectContext{configDir: dir}
	for _, name := range configNames {
		if f := filepath.Join(dir, name); isFile(f) {
			pc.configFile = f
			break
		}
	}
	opts, err := loadOptions(pc.configFile, 0, map[string]bool{})
	if err != nil {
		slog.Warn("resolve.context.err", "config", pc.configFile, "err", err)
		return pc
	}

	base := opts.baseURL
	if base == "" && len(opts.paths) > 0 {
		base = opts.pathsDir
	}
	pc.baseURL = base
	for pattern, targets := range opts.paths {
		abs := make([]string, 0, len(targets))
		for _, t := range targets {
			abs = append(abs, absJoin(base, t))
		}
		pc.aliases = append(pc.aliases, newAlias(pattern, abs))
	}
	sort.Slice(pc.aliases, func(i, j int) bool {
		a, b := pc.aliases[i], pc.aliases[j]
		if a.wildcard != b.wildcard {
			return !a.wildcard
		}
		if len(a.prefix) != len(b.prefix) {
			return len(a.prefix) > len(b.prefix)
		}
		return a.pattern < b.pattern
	})
	slog.Debug("resolve.context", "config", pc.configFile, "base_url", pc.baseURL, "aliases", len(pc.aliases))
	return pc
}

// tsconfig is the subset of tsconfig.json / jsconfig.json the resolver reads.
type tsconfig struct {
	Extends         json.RawMessage `json:"extends"`
	CompilerOptions struct {
		BaseURL *string             `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

func (c *tsconfig) extendsList() []string {
	if len(c.Extends) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(c.Extends, &one); err == nil {
		return []string{one}
	}
	var many []string
	_ = json.Unmarshal(c.Extends, &many)
	return many
}

// options are the effective compiler options after applying extends.
type options struct {
	baseURL  string
	paths    map[string][]string
	pathsDir string
}

func (o options) override(child options) options {
	if child.baseURL != "" {
		o.baseURL = child.baseURL
	}
	if child.paths != nil {
		o.paths, o.pathsDir = child.paths, child.pathsDir
	}
	return o
}

// loadOptions reads file and the configs it extends. Parents apply first and
// the child's own options override them.
func loadOptions(file string, depth int, stack map[string]bool) (options, error) {
	if depth > maxExtendsDepth {
		return options{}, fmt.Errorf("extends chain deeper than %d at %s", maxExtendsDepth, file)
	}
	if stack[file] {
		return options{}, fmt.Errorf("extends cycle at %s", file)
	}
	stack[file] = true
	defer delete(stack, file)

	cfg, err := readConfig(file)
	if err != nil {
		return options{}, err
	}
	dir := filepath.Dir(file)

	var opts options
	for _, parent := range cfg.extendsList() {
		parentFile, ok := findExtends(parent, dir)
		if !ok {
			slog.Debug("resolve.extends.missing", "config", file, "extends", parent)
			continue
		}
		parentOpts, err := loadOptions(parentFile, depth+1, stack)
		if err != nil {
			return options{}, err
		}
		opts = opts.override(parentOpts)
	}

	own := options{}
	if cfg.CompilerOptions.BaseURL != nil {
		own.baseURL = absJoin(dir, *cfg.CompilerOptions.BaseURL)
	}
	if cfg.CompilerOptions.Paths != nil {
		own.paths, own.pathsDir = cfg.CompilerOptions.Paths, dir
	}
	return opts.override(own), nil
}

// readConfig parses a JSON-with-comments config file.
func readConfig(file string) (*tsconfig, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", file, err)
	}
	std, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	var cfg tsconfig
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	return &cfg, nil
}

// findExtends locates the file an "extends" value names, relative to dir or
// inside an ancestor node_modules.
func findExtends(spec, dir string) (string, bool) {
	candidates := func(base string) []string {
		out := []string{base}
		if !strings.HasSuffix(base, ".json") {
			out = append(out, base+".json", filepath.Join(base, "tsconfig.json"))
		}
		return out
	}
	if isRelative(spec) || filepath.IsAbs(spec) {
		for _, c := range candidates(absJoin(dir, spec)) {
			if isFile(c) {
				return c, true
			}
		}
		return "", false
	}
	for d := dir; ; {
		for _, c := range candidates(filepath.Join(d, "node_modules", filepath.FromSlash(spec))) {
			if isFile(c) {
				return c, true
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", false
		}
		d = parent
	}
}

func absJoin(base, p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
