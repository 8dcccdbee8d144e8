package tools

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-index/internal/graph"
	"github.com/DeusData/codebase-index/internal/vcs"
)

// changedSymbol is an export of a changed file with its blast radius.
type changedSymbol struct {
	Name       string              `json:"name"`
	Kind       string              `json:"kind"`
	Path       string              `json:"path"`
	StartLine  int                 `json:"start_line"`
	Dependents []*graph.Dependent  `json:"dependents"`
	Summary    graph.ImpactSummary `json:"summary"`
}

func (s *Server) handleDetectChanges(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	scope := vcs.DiffScope(getStringArg(args, "scope"))
	if scope == "" {
		scope = vcs.DiffAll
	}
	depth := getIntArg(args, "depth", 0)

	r, toolErr := s.repoFromArgs(ctx, args)
	if toolErr != nil {
		return toolErr, nil
	}
	if _, err := s.Sync(ctx, r.Root); err != nil {
		return errResult(fmt.Sprintf("sync failed: %v", err)), nil
	}

	files, err := vcs.ChangedFiles(ctx, r.Root, scope, getStringArg(args, "base_branch"))
	if err != nil {
		return errResult(fmt.Sprintf("git diff: %v", err)), nil
	}

	symbols := []*changedSymbol{}
	var total graph.ImpactSummary
	for _, f := range files {
		changed, err := s.changedSymbols(ctx, r, f.Path, depth)
		if err != nil {
			return errResult(fmt.Sprintf("impact %s: %v", f.Path, err)), nil
		}
		for _, cs := range changed {
			total.Critical += cs.Summary.Critical
			total.High += cs.Summary.High
			total.Medium += cs.Summary.Medium
			total.Low += cs.Summary.Low
			total.Total += cs.Summary.Total
		}
		symbols = append(symbols, changed...)
	}
	if len(files) > 0 && len(symbols) == 0 {
		slog.Info("detect_changes.no_symbols", "files", len(files))
	}

	return jsonResult(map[string]any{
		"status":          statusOf(len(files)),
		"changed_files":   files,
		"changed_symbols": symbols,
		"summary":         total,
	}), nil
}

// changedSymbols computes the impact of every genuine top-level export of path.
func (s *Server) changedSymbols(ctx context.Context, r *Repo, path string, depth int) ([]*changedSymbol, error) {
	syms, err := r.Store.SymbolsInFile(ctx, path)
	if err != nil {
		return nil, err
	}
	var out []*changedSymbol
	for _, sym := range syms {
		if sym.ParentID != 0 || sym.IsReexport() {
			continue
		}
		res, err := r.Engine.Impact(ctx, sym.Name, path, depth)
		if err != nil {
			return nil, err
		}
		out = append(out, &changedSymbol{
			Name:       sym.Name,
			Kind:       sym.Kind,
			Path:       sym.Path,
			StartLine:  sym.StartLine,
			Dependents: res.Dependents,
			Summary:    res.Summary,
		})
	}
	return out, nil
}
