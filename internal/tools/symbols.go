package tools

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) handleFindSymbol(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	name := getStringArg(args, "name")
	if name == "" {
		return errResult("name is required"), nil
	}
	r, toolErr := s.repoFromArgs(ctx, args)
	if toolErr != nil {
		return toolErr, nil
	}

	res, err := r.Engine.Lookup(ctx, name, r.File(getStringArg(args, "file")))
	if err != nil {
		return errResult(fmt.Sprintf("lookup: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleGetDependencies(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.edgeQuery(ctx, req, "dependencies")
}

func (s *Server) handleGetDependents(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.edgeQuery(ctx, req, "dependents")
}

func (s *Server) edgeQuery(ctx context.Context, req *mcp.CallToolRequest, kind string) (*mcp.CallToolResult, error) {
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

	if _, err := r.Store.FileByPath(ctx, file); err != nil {
		return jsonResult(map[string]any{"status": "not_found", "file": file}), nil
	}
	edges := r.Engine.Dependencies
	if kind == "dependents" {
		edges = r.Engine.Dependents
	}
	result, err := edges(ctx, file)
	if err != nil {
		return errResult(fmt.Sprintf("%s: %v", kind, err)), nil
	}
	return jsonResult(map[string]any{
		"status": "ok",
		"file":   file,
		kind:     result,
	}), nil
}

func (s *Server) handleAnalyzeImpact(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	symbol := getStringArg(args, "symbol")
	if symbol == "" {
		return errResult("symbol is required"), nil
	}
	r, toolErr := s.repoFromArgs(ctx, args)
	if toolErr != nil {
		return toolErr, nil
	}

	res, err := r.Engine.Impact(ctx, symbol, r.File(getStringArg(args, "file")), getIntArg(args, "depth", 0))
	if err != nil {
		return errResult(fmt.Sprintf("impact: %v", err)), nil
	}
	return jsonResult(res), nil
}

func (s *Server) handleFindUsages(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	symbol := getStringArg(args, "symbol")
	if symbol == "" {
		return errResult("symbol is required"), nil
	}
	r, toolErr := s.repoFromArgs(ctx, args)
	if toolErr != nil {
		return toolErr, nil
	}

	res, err := r.Engine.Usages(ctx, symbol, r.File(getStringArg(args, "file")))
	if err != nil {
		return errResult(fmt.Sprintf("usages: %v", err)), nil
	}
	return jsonResult(res), nil
}
