package graph

import (
	"context"
	"log/slog"
	"sort"

	"github.com/DeusData/codebase-index/internal/store"
)

// LookupResult is the outcome of resolving a symbol name to its definition.
type LookupResult struct {
	Status Status        `json:"status"`
	Symbol *store.Symbol `json:"symbol,omitempty"`
	// Source is the exact text of the definition.
	Source string `json:"source,omitempty"`
	// Via lists the barrel files followed to reach the definition.
	Via        []string        `json:"via,omitempty"`
	Candidates []*store.Symbol `json:"candidates,omitempty"`
}

// rank orders candidates best first: definitions before re-exports, then
// longer declarations, then path and position.
func rank(syms []*store.Symbol) {
	sort.SliceStable(syms, func(i, j int) bool {
		a, b := syms[i], syms[j]
		if a.IsReexport() != b.IsReexport() {
			return !a.IsReexport()
		}
		if a.Span() != b.Span() {
			return a.Span() > b.Span()
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.StartLine < b.StartLine
	})
}

// Lookup finds the definition of name. With a file hint only that file and
// the re-exports reachable from it are considered. Without one, genuine
// definitions in more than one file are reported as ambiguous.
func (e *Engine) Lookup(ctx context.Context, name, file string) (*LookupResult, error) {
	all, err := e.store.SymbolsByName(ctx, name)
	if err != nil {
		return nil, err
	}

	var candidates []*store.Symbol
	if file == "" {
		candidates = all
	} else {
		for _, sym := range all {
			if sym.Path == file {
				candidates = append(candidates, sym)
			}
		}
	}
	rank(candidates)

	if file == "" {
		files := map[string]bool{}
		var genuine []*store.Symbol
		for _, sym := range candidates {
			if !sym.IsReexport() {
				genuine = append(genuine, sym)
				files[sym.Path] = true
			}
		}
		if len(files) > 1 {
			return &LookupResult{Status: StatusAmbiguous, Candidates: genuine}, nil
		}
	}

	var found *store.Symbol
	var via []string
	switch {
	case len(candidates) == 0 && file != "":
		// The name may only arrive through `export * from` in the hinted file.
		found, via, err = e.debarrel(ctx, []target{{path: file, name: name}})
		if err != nil {
			return nil, err
		}
	case len(candidates) == 0:
	case !candidates[0].IsReexport():
		found = candidates[0]
	default:
		for _, sym := range candidates {
			next, err := e.forwardTargets(ctx, sym)
			if err != nil {
				return nil, err
			}
			found, via, err = e.debarrel(ctx, next)
			if err != nil {
				return nil, err
			}
			if found != nil {
				via = append([]string{sym.Path}, via...)
				break
			}
		}
		if found == nil {
			found, via = candidates[0], nil
		}
	}
	if found == nil {
		return &LookupResult{Status: StatusNotFound}, nil
	}

	res := &LookupResult{Status: StatusFound, Symbol: found, Via: via}
	res.Source, err = e.source(ctx, found)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// target is a name to look for in a file during de-barrelling.
type target struct {
	path string
	name string
	via  []string
}

func (t target) key() string { return t.path + "\x00" + t.name }

// forwardTargets returns where a re-export row points: the resolved files of
// the import edges in its file that share its source specifier.
func (e *Engine) forwardTargets(ctx context.Context, sym *store.Symbol) ([]target, error) {
	if sym.SourceSpecifier == "" {
		return nil, nil
	}
	name := sym.ImportedName
	switch name {
	case "*":
		// `export * as ns` forwards the module itself, not a declaration.
		return nil, nil
	case "":
		name = sym.Name
	}
	edges, err := e.store.ImportsOf(ctx, sym.Path)
	if err != nil {
		return nil, err
	}
	var out []target
	seen := map[string]bool{}
	for _, edge := range edges {
		if edge.Specifier != sym.SourceSpecifier || edge.ResolvedPath == "" || seen[edge.ResolvedPath] {
			continue
		}
		seen[edge.ResolvedPath] = true
		out = append(out, target{path: edge.ResolvedPath, name: name})
	}
	return out, nil
}

// debarrel walks re-export chains breadth first until it reaches a genuine
// definition. It returns nil when every chain dead-ends.
func (e *Engine) debarrel(ctx context.Context, start []target) (*store.Symbol, []string, error) {
	work := append([]target(nil), start...)
	visited := map[string]bool{}

	for i := 0; i < len(work); i++ {
		t := work[i]
		if visited[t.key()] {
			continue
		}
		visited[t.key()] = true

		syms, err := e.store.SymbolsInFile(ctx, t.path)
		if err != nil {
			return nil, nil, err
		}
		var named, stars []*store.Symbol
		for _, sym := range syms {
			switch {
			case sym.ParentID != 0:
			case sym.Name == t.name, t.name == "default" && sym.Kind == "default":
				named = append(named, sym)
			case sym.Kind == "reexport_all":
				stars = append(stars, sym)
			}
		}
		rank(named)

		if len(named) > 0 && !named[0].IsReexport() {
			return named[0], t.via, nil
		}
		via := append(append([]string(nil), t.via...), t.path)
		for _, sym := range named {
			next, err := e.forwardTargets(ctx, sym)
			if err != nil {
				return nil, nil, err
			}
			for _, n := range next {
				n.via = via
				work = append(work, n)
			}
		}
		if len(named) > 0 {
			continue
		}
		for _, star := range stars {
			next, err := e.forwardTargets(ctx, &store.Symbol{
				Path:            star.Path,
				Name:            t.name,
				SourceSpecifier: star.SourceSpecifier,
			})
			if err != nil {
				return nil, nil, err
			}
			for _, n := range next {
				n.via = via
				work = append(work, n)
			}
		}
	}
	slog.Debug("graph.debarrel.deadend", "targets", len(work))
	return nil, nil, nil
}

// source slices the definition out of its file using the stored byte span.
func (e *Engine) source(ctx context.Context, sym *store.Symbol) (string, error) {
	text, err := e.fileText(ctx, sym.Path)
	if err != nil {
		return "", err
	}
	if sym.StartByte < 0 || sym.EndByte > len(text) || sym.StartByte >= sym.EndByte {
		return "", nil
	}
	return text[sym.StartByte:sym.EndByte], nil
}
