package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-index/internal/store"
)

// searchArgs validates the common query/limit arguments and opens the repo.
func (s *Server) searchArgs(ctx context.Context, req *mcp.CallToolRequest) (*Repo, string, int, *mcp.CallToolResult) {
	args, err := parseArgs(req)
	if err != nil {
		return nil, "", 0, errResult(err.Error())
	}
	query := getStringArg(args, "query")
	if query == "" {
		return nil, "", 0, errResult("query is required")
	}
	r, toolErr := s.repoFromArgs(ctx, args)
	if toolErr != nil {
		return nil, "", 0, toolErr
	}
	return r, query, getIntArg(args, "limit", store.DefaultSearchLimit), nil
}

func (s *Server) handleSearchSymbols(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, query, limit, toolErr := s.searchArgs(ctx, req)
	if toolErr != nil {
		return toolErr, nil
	}
	hits, err := r.Engine.SearchSymbols(ctx, query, limit)
	if err != nil {
		return errResult(fmt.Sprintf("search symbols: %v", err)), nil
	}
	return jsonResult(map[string]any{"status": statusOf(len(hits)), "query": query, "results": hits}), nil
}

func (s *Server) handleSearchFiles(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, query, limit, toolErr := s.searchArgs(ctx, req)
	if toolErr != nil {
		return toolErr, nil
	}
	hits, err := r.Engine.SearchFiles(ctx, query, limit)
	if err != nil {
		return errResult(fmt.Sprintf("search files: %v", err)), nil
	}
	return jsonResult(map[string]any{"status": statusOf(len(hits)), "query": query, "results": hits}), nil
}

func (s *Server) handleSearchContent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	r, query, limit, toolErr := s.searchArgs(ctx, req)
	if toolErr != nil {
		return toolErr, nil
	}
	hits, err := r.Engine.SearchContent(ctx, query, limit)
	if err != nil {
		return errResult(fmt.Sprintf("search content: %v", err)), nil
	}
	return jsonResult(map[string]any{"status": statusOf(len(hits)), "query": query, "results": hits}), nil
}

func (s *Server) handleSearchConfig(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	r, toolErr := s.repoFromArgs(ctx, args)
	if toolErr != nil {
		return toolErr, nil
	}
	entries, err := r.Store.ConfigEntries(ctx, getStringArg(args, "key"), r.File(getStringArg(args, "file")),
		getIntArg(args, "limit", store.DefaultSearchLimit))
	if err != nil {
		return errResult(fmt.Sprintf("config entries: %v", err)), nil
	}
	return jsonResult(map[string]any{"status": statusOf(len(entries)), "results": entries}), nil
}
