package graph

import (
	"context"
	"sort"

	"github.com/DeusData/codebase-index/internal/store"
)

// RiskLevel classifies an affected file by its distance from the definition.
type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL"
	RiskHigh     RiskLevel = "HIGH"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskLow      RiskLevel = "LOW"
)

// HopToRisk maps a traversal depth to a risk level.
func HopToRisk(hop int) RiskLevel {
	switch hop {
	case 1:
		return RiskCritical
	case 2:
		return RiskHigh
	case 3:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ImpactSummary aggregates risk counts over an impact result.
type ImpactSummary struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Total    int `json:"total"`
}

// Dependent is one file affected by a change, at its shortest depth.
type Dependent struct {
	Path  string    `json:"path"`
	Depth int       `json:"depth"`
	Risk  RiskLevel `json:"risk"`
	// Via is the import chain from the defining file to Path, inclusive.
	Via []string `json:"via"`
}

// ImpactResult is the blast radius of a symbol.
type ImpactResult struct {
	Status     Status          `json:"status"`
	Symbol     *store.Symbol   `json:"symbol,omitempty"`
	Depth      int             `json:"depth"`
	Dependents []*Dependent    `json:"dependents"`
	Summary    ImpactSummary   `json:"summary"`
	Candidates []*store.Symbol `json:"candidates,omitempty"`
}

// BuildImpactSummary counts dependents per risk level.
func BuildImpactSummary(deps []*Dependent) ImpactSummary {
	var s ImpactSummary
	for _, d := range deps {
		switch d.Risk {
		case RiskCritical:
			s.Critical++
		case RiskHigh:
			s.High++
		case RiskMedium:
			s.Medium++
		case RiskLow:
			s.Low++
		}
		s.Total++
	}
	return s
}

type impactItem struct {
	file  string
	depth int
	chain []string
}

// Impact finds the files that transitively depend on the definition of
// symbol. Depth 1 keeps only importers whose name list admits the symbol;
// deeper levels follow every reverse import. A file is never revisited, so
// cycles terminate and the defining file is never its own dependent.
func (e *Engine) Impact(ctx context.Context, symbol, file string, depth int) (*ImpactResult, error) {
	if depth <= 0 {
		depth = e.ImpactDepth
	}
	if depth <= 0 {
		depth = DefaultImpactDepth
	}

	found, err := e.Lookup(ctx, symbol, file)
	if err != nil {
		return nil, err
	}
	res := &ImpactResult{Status: found.Status, Depth: depth, Candidates: found.Candidates}
	if found.Status != StatusFound {
		return res, nil
	}
	res.Symbol = found.Symbol
	def := found.Symbol.Path

	seen := map[string]bool{def: true}
	work := []impactItem{{file: def, chain: []string{def}}}
	for i := 0; i < len(work); i++ {
		item := work[i]
		if item.depth >= depth {
			continue
		}
		edges, err := e.store.ImportersOf(ctx, item.file)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			if item.depth == 0 && !admits(edge, res.Symbol) {
				continue
			}
			if seen[edge.Path] {
				continue
			}
			seen[edge.Path] = true
			chain := append(append([]string(nil), item.chain...), edge.Path)
			next := impactItem{file: edge.Path, depth: item.depth + 1, chain: chain}
			work = append(work, next)
			res.Dependents = append(res.Dependents, &Dependent{
				Path:  next.file,
				Depth: next.depth,
				Risk:  HopToRisk(next.depth),
				Via:   chain,
			})
		}
	}

	sort.Slice(res.Dependents, func(i, j int) bool {
		a, b := res.Dependents[i], res.Dependents[j]
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		return a.Path < b.Path
	})
	res.Summary = BuildImpactSummary(res.Dependents)
	return res, nil
}
