package graph

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/DeusData/codebase-index/internal/store"
)

// usageWindow is the number of context lines shown around a usage.
const usageWindow = 2

// mentionLimit caps the full-text fallback.
const mentionLimit = 50

// ConfidenceLow labels mentions found by text search only.
const ConfidenceLow = "low"

// Usage is a file that imports the symbol, directly or through a proxy.
type Usage struct {
	Path string `json:"path"`
	// From is the file the import resolves to: the definition or a proxy.
	From    string   `json:"from"`
	Names   []string `json:"names,omitempty"`
	Line    int      `json:"line,omitempty"`
	Snippet string   `json:"snippet,omitempty"`
}

// Mention is a textual occurrence of the name in a file with no checked import.
type Mention struct {
	Path       string `json:"path"`
	Snippet    string `json:"snippet"`
	Confidence string `json:"confidence"`
}

// UsageReport collects everything known about where a symbol is used.
type UsageReport struct {
	Status Status        `json:"status"`
	Symbol *store.Symbol `json:"symbol,omitempty"`
	// Proxies are files that re-export the defining file, directly or transitively.
	Proxies    []string        `json:"proxies,omitempty"`
	Usages     []*Usage        `json:"usages"`
	Mentions   []*Mention      `json:"mentions"`
	Candidates []*store.Symbol `json:"candidates,omitempty"`
}

// Usages reports verified imports of the symbol's definition and of every
// barrel that forwards it, plus low-confidence textual mentions elsewhere.
func (e *Engine) Usages(ctx context.Context, name, file string) (*UsageReport, error) {
	found, err := e.Lookup(ctx, name, file)
	if err != nil {
		return nil, err
	}
	rep := &UsageReport{Status: found.Status, Candidates: found.Candidates}
	if found.Status != StatusFound {
		return rep, nil
	}
	rep.Symbol = found.Symbol
	def := found.Symbol.Path

	proxies, err := e.proxies(ctx, def)
	if err != nil {
		return nil, err
	}
	rep.Proxies = proxies

	targets := append([]string{def}, proxies...)
	forwarding := map[string]bool{def: true}
	for _, p := range proxies {
		forwarding[p] = true
	}

	ident := identPattern(name)
	verified := map[string]bool{}
	for _, t := range targets {
		edges, err := e.store.ImportersOf(ctx, t)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			if verified[edge.Path] || (edge.IsReexport && forwarding[edge.Path]) {
				continue
			}
			if !admits(edge, found.Symbol) && !edge.Imports(name) {
				continue
			}
			verified[edge.Path] = true
			u := &Usage{Path: edge.Path, From: t, Names: edge.Names}
			text, err := e.fileText(ctx, edge.Path)
			if err != nil {
				return nil, err
			}
			u.Line, u.Snippet = firstMention(text, ident, usageWindow)
			if u.Line == 0 {
				// Default imports bind a local name of their own.
				u.Line, u.Snippet = firstMention(text, regexp.MustCompile(regexp.QuoteMeta(edge.Specifier)), usageWindow)
			}
			rep.Usages = append(rep.Usages, u)
		}
	}
	sort.Slice(rep.Usages, func(i, j int) bool { return rep.Usages[i].Path < rep.Usages[j].Path })

	hits, err := e.store.SearchContentTerms(ctx, name, mentionLimit+len(forwarding)+len(verified))
	if err != nil {
		return nil, err
	}
	for _, h := range hits {
		if len(rep.Mentions) == mentionLimit {
			break
		}
		if forwarding[h.Path] || verified[h.Path] {
			continue
		}
		text, err := e.fileText(ctx, h.Path)
		if err != nil {
			return nil, err
		}
		if !ident.MatchString(text) {
			continue
		}
		rep.Mentions = append(rep.Mentions, &Mention{Path: h.Path, Snippet: h.Snippet, Confidence: ConfidenceLow})
	}
	return rep, nil
}

// proxies walks re-export edges outward from def and returns every file that
// forwards it, sorted.
func (e *Engine) proxies(ctx context.Context, def string) ([]string, error) {
	visited := map[string]bool{def: true}
	work := []string{def}
	var out []string
	for i := 0; i < len(work); i++ {
		edges, err := e.store.ReexportersOf(ctx, work[i])
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			if visited[edge.Path] {
				continue
			}
			visited[edge.Path] = true
			work = append(work, edge.Path)
			out = append(out, edge.Path)
		}
	}
	sort.Strings(out)
	return out, nil
}

// identPattern matches name as a whole JavaScript identifier.
func identPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^\w$])` + regexp.QuoteMeta(name) + `($|[^\w$])`)
}

// firstMention returns the 1-based line of the first line matching re in
// text and the lines around it. It returns 0 and "" when nothing matches.
func firstMention(text string, re *regexp.Regexp, window int) (int, string) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !re.MatchString(line) {
			continue
		}
		lo := max(0, i-window)
		hi := min(len(lines), i+window+1)
		return i + 1, strings.Join(lines[lo:hi], "\n")
	}
	return 0, ""
}
