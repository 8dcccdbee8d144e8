package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-index/internal/resolve"
	"github.com/DeusData/codebase-index/internal/store"
)

func (s *Server) handleDiagnoseImport(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	if getStringArg(args, "file") == "" {
		return errResult("file is required"), nil
	}
	r, toolErr := s.repoFromArgs(ctx, args)
	if toolErr != nil {
		return toolErr, nil
	}
	file := r.File(getStringArg(args, "file"))
	sess := s.session(r.Root)

	if spec := getStringArg(args, "specifier"); spec != "" {
		d := sess.Diagnose(spec, file, r.Root)
		return jsonResult(map[string]any{"status": "ok", "diagnoses": []resolve.Diagnosis{d}}), nil
	}

	edges, err := r.Store.UnresolvedImports(ctx, file, 0)
	if err != nil {
		return errResult(fmt.Sprintf("unresolved imports: %v", err)), nil
	}
	diags := make([]resolve.Diagnosis, 0, len(edges))
	for _, e := range edges {
		diags = append(diags, sess.Diagnose(e.Specifier, file, r.Root))
	}
	return jsonResult(map[string]any{"status": statusOf(len(diags)), "diagnoses": diags}), nil
}

func (s *Server) handleIndexStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	r, toolErr := s.repoFromArgs(ctx, args)
	if toolErr != nil {
		return toolErr, nil
	}

	stats, err := r.Store.Stats(ctx)
	if err != nil {
		return errResult(fmt.Sprintf("stats: %v", err)), nil
	}
	data := map[string]any{
		"status":      "ok",
		"root":        r.Root,
		"index_path":  r.Store.Path(),
		"stats":       stats,
		"open_stores": s.router.Open(),
	}
	run, err := r.Store.LastSyncRun(ctx)
	switch {
	case err == nil:
		data["last_sync"] = run
	case !errors.Is(err, store.ErrNotFound):
		return errResult(fmt.Sprintf("last sync: %v", err)), nil
	}
	if v, err := r.Store.Meta(ctx, "schema_version"); err == nil {
		data["schema_version"] = v
	}
	return jsonResult(data), nil
}
