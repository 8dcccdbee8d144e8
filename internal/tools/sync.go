package tools

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-index/internal/pipeline"
)

// Sync runs one sync pass for root with the server's config. Passes for the
// same root are serialized.
func (s *Server) Sync(ctx context.Context, root string) (*pipeline.SyncResult, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	st, err := s.router.ForRoot(ctx, abs)
	if err != nil {
		return nil, err
	}

	lock := s.syncLock(abs)
	lock.Lock()
	defer lock.Unlock()

	p := pipeline.New(st, abs)
	p.Resolver = s.session(abs)
	p.Concurrency = s.cfg.Concurrency
	p.Discover = s.cfg.DiscoverOptions()
	return p.Sync(ctx)
}

func (s *Server) handleSyncRepository(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	root := getStringArg(args, "repo_path")
	if root == "" {
		root = s.root
	}
	if root == "" {
		return errResult("repo_path is required"), nil
	}

	res, err := s.Sync(ctx, root)
	if err != nil {
		return errResult(fmt.Sprintf("sync failed: %v", err)), nil
	}
	return jsonResult(map[string]any{
		"status": "ok",
		"result": res,
	}), nil
}
