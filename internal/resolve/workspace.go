package resolve

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar"
	"gopkg.in/yaml.v3"

	"github.com/DeusData/codebase-index/internal/lang"
)

// manifest is the subset of package.json the resolver reads.
type manifest struct {
	Name                 string            `json:"name"`
	Source               string            `json:"source"`
	Main                 string            `json:"main"`
	Module               string            `json:"module"`
	Types                string            `json:"types"`
	Workspaces           json.RawMessage   `json:"workspaces"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// workspaceGlobs accepts both the array form and the {packages: [...]} form.
func (m *manifest) workspaceGlobs() []string {
	if len(m.Workspaces) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(m.Workspaces, &list); err == nil {
		return list
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	_ = json.Unmarshal(m.Workspaces, &obj)
	return obj.Packages
}

func readManifest(dir string) (*manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode %s/package.json: %w", dir, err)
	}
	return &m, nil
}

// pkg is a package the resolver can map a bare specifier to.
type pkg struct {
	name     string
	dir      string
	declared []string // source, main, module, types
}

func newPkg(name, dir string, m *manifest) *pkg {
	p := &pkg{name: name, dir: dir}
	if m != nil {
		p.declared = []string{m.Source, m.Main, m.Module, m.Types}
	}
	return p
}

// entry prefers a conventional source entry point over the declared
// (usually built) one.
func (p *pkg) entry() (string, bool) {
	for _, base := range []string{filepath.Join(p.dir, "src", "index"), filepath.Join(p.dir, "index")} {
		for _, ext := range lang.ProbeExtensions {
			if isFile(base + ext) {
				return base + ext, true
			}
		}
	}
	for _, decl := range p.declared {
		if decl == "" {
			continue
		}
		if f, ok := probe(absJoin(p.dir, decl)); ok {
			return f, true
		}
	}
	return "", false
}

// subpath resolves name/sub inside the package, source tree first.
func (p *pkg) subpath(sub string) (string, bool) {
	sub = filepath.FromSlash(sub)
	for _, base := range []string{filepath.Join(p.dir, "src", sub), filepath.Join(p.dir, sub)} {
		if f, ok := probe(base); ok {
			return f, true
		}
	}
	return "", false
}

// workspace is the package registry of one monorepo root.
type workspace struct {
	root     string
	packages map[string]*pkg
}

type pnpmWorkspace struct {
	Packages []string `yaml:"packages"`
}

func workspaceGlobs(dir string) []string {
	if raw, err := os.ReadFile(filepath.Join(dir, "pnpm-workspace.yaml")); err == nil {
		var pw pnpmWorkspace
		if err := yaml.Unmarshal(raw, &pw); err == nil && len(pw.Packages) > 0 {
			return pw.Packages
		}
	}
	if m, err := readManifest(dir); err == nil {
		return m.workspaceGlobs()
	}
	return nil
}

func isWorkspaceRoot(dir string) bool {
	return len(workspaceGlobs(dir)) > 0
}

// workspaceFor returns the registry of the nearest workspace root between dir
// and root, or nil.
func (s *Session) workspaceFor(dir, root string) *workspace {
	wsRoot := s.ancestor("workspace", dir, root, isWorkspaceRoot)
	if wsRoot == "" {
		return nil
	}
	if ws, ok := s.workspaces.Get(wsRoot); ok {
		return ws
	}
	v, _, _ := s.group.Do("workspace:"+wsRoot, func() (any, error) {
		if ws, ok := s.workspaces.Get(wsRoot); ok {
			return ws, nil
		}
		ws := loadWorkspace(wsRoot)
		s.workspaces.Add(wsRoot, ws)
		return ws, nil
	})
	return v.(*workspace)
}

func loadWorkspace(root string) *workspace {
	ws := &workspace{root: root, packages: make(map[string]*pkg)}
	var include, exclude []string
	for _, g := range workspaceGlobs(root) {
		if strings.HasPrefix(g, "!") {
			exclude = append(exclude, strings.TrimPrefix(g, "!"))
			continue
		}
		include = append(include, g)
	}

	for _, g := range include {
		matches, err := doublestar.Glob(filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(g, "/"))))
		if err != nil {
			slog.Warn("resolve.workspace.glob", "root", root, "pattern", g, "err", err)
			continue
		}
		for _, dir := range matches {
			rel, _ := filepath.Rel(root, dir)
			rel = filepath.ToSlash(rel)
			if strings.Contains("/"+rel+"/", "/node_modules/") || excluded(exclude, rel) {
				continue
			}
			m, err := readManifest(dir)
			if err != nil || m.Name == "" {
				continue
			}
			if _, dup := ws.packages[m.Name]; !dup {
				ws.packages[m.Name] = newPkg(m.Name, dir, m)
			}
		}
	}
	slog.Debug("resolve.workspace", "root", root, "packages", len(ws.packages))
	return ws
}

func excluded(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(strings.TrimSuffix(p, "/"), rel); ok {
			return true
		}
	}
	return false
}

// localDeps returns the file:/link: dependencies of the importing package's
// nearest manifest, name → absolute directory.
func (s *Session) localDeps(dir, root string) map[string]string {
	pkgDir := s.ancestor("manifest", dir, root, func(d string) bool {
		return isFile(filepath.Join(d, "package.json"))
	})
	if pkgDir == "" {
		return nil
	}
	if deps, ok := s.locals.Get(pkgDir); ok {
		return deps
	}
	deps := map[string]string{}
	if m, err := readManifest(pkgDir); err == nil {
		for _, group := range []map[string]string{m.Dependencies, m.DevDependencies, m.PeerDependencies, m.OptionalDependencies} {
			for name, version := range group {
				for _, proto := range []string{"file:", "link:"} {
					if strings.HasPrefix(version, proto) {
						deps[name] = absJoin(pkgDir, strings.TrimPrefix(version, proto))
					}
				}
			}
		}
	}
	s.locals.Add(pkgDir, deps)
	return deps
}

// splitPackage splits a bare specifier into package name and subpath.
// "@scope/ui/button" → ("@scope/ui", "button").
func splitPackage(spec string) (name, sub string) {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", ""
		}
		name = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			sub = parts[2]
		}
		return name, sub
	}
	name = parts[0]
	if len(parts) > 1 {
		sub = strings.Join(parts[1:], "/")
	}
	return name, sub
}

// lookupPackage finds the local or workspace package spec names.
func (s *Session) lookupPackage(spec, dir, root string) (*pkg, string, bool) {
	name, sub := splitPackage(spec)
	if name == "" {
		return nil, "", false
	}
	if pkgDir, ok := s.localDeps(dir, root)[name]; ok {
		m, _ := readManifest(pkgDir)
		return newPkg(name, pkgDir, m), sub, true
	}
	if ws := s.workspaceFor(dir, root); ws != nil {
		if p, ok := ws.packages[name]; ok {
			return p, sub, true
		}
	}
	return nil, "", false
}

func (s *Session) resolvePackage(spec, dir, root string) (string, bool) {
	p, sub, ok := s.lookupPackage(spec, dir, root)
	if !ok {
		return "", false
	}
	if sub == "" {
		return p.entry()
	}
	return p.subpath(sub)
}
