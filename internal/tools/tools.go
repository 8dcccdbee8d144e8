// Package tools exposes the index as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/DeusData/codebase-index/internal/config"
	"github.com/DeusData/codebase-index/internal/graph"
	"github.com/DeusData/codebase-index/internal/resolve"
	"github.com/DeusData/codebase-index/internal/store"
)

// Version is reported to MCP clients.
var Version = "dev"

// Server wraps the MCP server with tool handlers. Every tool works on one
// repository root, defaulting to the root the server was started with.
type Server struct {
	mcp    *mcp.Server
	router *store.Router
	cfg    *config.Config
	root   string

	mu       sync.Mutex
	sessions map[string]*resolve.Session // repo root → resolver session
	syncing  map[string]*sync.Mutex      // repo root → sync lock
}

// NewServer creates an MCP server with all tools registered.
func NewServer(router *store.Router, cfg *config.Config, root string) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	srv := &Server{
		router:   router,
		cfg:      cfg,
		root:     root,
		sessions: make(map[string]*resolve.Session),
		syncing:  make(map[string]*sync.Mutex),
		mcp: mcp.NewServer(
			&mcp.Implementation{
				Name:    "codebase-index",
				Version: Version,
			},
			nil,
		),
	}
	srv.registerTools()
	return srv
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

const repoPathProp = `"repo_path": {
	"type": "string",
	"description": "Absolute path of the repository. Defaults to the server's root."
}`

const limitProp = `"limit": {
	"type": "integer",
	"description": "Maximum results (default 20)"
}`

func (s *Server) registerTools() {
	s.mcp.AddTool(&mcp.Tool{
		Name:        "sync_repository",
		Description: "Bring the index up to date with the files on disk. Only files whose modification time changed are re-parsed; deleted files are removed. Returns counts of processed, deleted, touched and failed files.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {` + repoPathProp + `}
		}`),
	}, s.handleSyncRepository)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "find_symbol",
		Description: "Find where an exported symbol is defined. Follows barrel re-exports to the real definition and returns its exact source. Returns status 'ambiguous' with candidates when several files define the name and no file is given.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"name": {
					"type": "string",
					"description": "Exported name, e.g. 'createServer'"
				},
				"file": {
					"type": "string",
					"description": "Restrict the lookup to this file (absolute or relative to the repository)"
				},
				` + repoPathProp + `
			},
			"required": ["name"]
		}`),
	}, s.handleFindSymbol)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_dependencies",
		Description: "List the imports of a file with the file each one resolved to. Unresolved entries are external packages or missing files.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file": {
					"type": "string",
					"description": "File path (absolute or relative to the repository)"
				},
				` + repoPathProp + `
			},
			"required": ["file"]
		}`),
	}, s.handleGetDependencies)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "get_dependents",
		Description: "List the files whose imports resolve to the given file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file": {
					"type": "string",
					"description": "File path (absolute or relative to the repository)"
				},
				` + repoPathProp + `
			},
			"required": ["file"]
		}`),
	}, s.handleGetDependents)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "analyze_impact",
		Description: "Compute the blast radius of changing a symbol: files importing it (depth 1) and files importing those, up to the depth bound. Each file carries a risk level (1=CRITICAL, 2=HIGH, 3=MEDIUM, 4+=LOW) and the import chain that reaches it.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {
					"type": "string",
					"description": "Exported name of the symbol"
				},
				"file": {
					"type": "string",
					"description": "File defining the symbol, to disambiguate"
				},
				"depth": {
					"type": "integer",
					"description": "Maximum traversal depth (default 3)"
				},
				` + repoPathProp + `
			},
			"required": ["symbol"]
		}`),
	}, s.handleAnalyzeImpact)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "find_usages",
		Description: "Find files that import a symbol, directly or through barrel files, with the first line mentioning it. Also returns low-confidence textual mentions from files without a checked import.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"symbol": {
					"type": "string",
					"description": "Exported name of the symbol"
				},
				"file": {
					"type": "string",
					"description": "File defining the symbol, to disambiguate"
				},
				` + repoPathProp + `
			},
			"required": ["symbol"]
		}`),
	}, s.handleFindUsages)

	for _, t := range []struct {
		name, desc string
		handler    mcp.ToolHandler
	}{
		{"search_symbols", "Full-text search over exported symbol names, signatures and doc comments, best match first.", s.handleSearchSymbols},
		{"search_files", "Full-text search over file paths and one-line file summaries.", s.handleSearchFiles},
		{"search_content", "Full-text search over raw file content. Returns a highlighted snippet per file.", s.handleSearchContent},
	} {
		s.mcp.AddTool(&mcp.Tool{
			Name:        t.name,
			Description: t.desc,
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {
						"type": "string",
						"description": "Words to search for; each word matches as a prefix"
					},
					` + limitProp + `,
					` + repoPathProp + `
				},
				"required": ["query"]
			}`),
		}, t.handler)
	}

	s.mcp.AddTool(&mcp.Tool{
		Name:        "search_config",
		Description: "Search configuration entries extracted from manifests, env templates, TOML, SQL schemas and Dockerfiles by key substring and/or file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"key": {
					"type": "string",
					"description": "Substring of the entry key, e.g. 'DATABASE' or 'services.api'"
				},
				"file": {
					"type": "string",
					"description": "Restrict to one config file"
				},
				` + limitProp + `,
				` + repoPathProp + `
			}
		}`),
	}, s.handleSearchConfig)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "diagnose_import",
		Description: "Explain why an import specifier does or does not resolve: resolved, file_missing, alias_target_missing, no_project_config or external_package. Without a specifier, diagnoses every unresolved import of the file.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"file": {
					"type": "string",
					"description": "Importing file (absolute or relative to the repository)"
				},
				"specifier": {
					"type": "string",
					"description": "Module specifier as written, e.g. '@app/core' or './util'"
				},
				` + repoPathProp + `
			},
			"required": ["file"]
		}`),
	}, s.handleDiagnoseImport)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "index_status",
		Description: "Report the index location, the last sync pass, and counts of files, symbols, imports and unresolved imports with language and kind breakdowns.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {` + repoPathProp + `}
		}`),
	}, s.handleIndexStatus)

	s.mcp.AddTool(&mcp.Tool{
		Name:        "detect_changes",
		Description: "Map git changes to exported symbols and their blast radius. Runs git diff, finds the exports of changed files, and computes the impact of each. Requires git in PATH.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"scope": {
					"type": "string",
					"description": "Which changes to analyze: 'unstaged', 'staged', 'all' (against HEAD, default) or 'branch' (against base_branch)",
					"enum": ["unstaged", "staged", "all", "branch"]
				},
				"base_branch": {
					"type": "string",
					"description": "Base branch for scope=branch (default: main)"
				},
				"depth": {
					"type": "integer",
					"description": "Maximum impact depth (default 3)"
				},
				` + repoPathProp + `
			}
		}`),
	}, s.handleDetectChanges)
}

// jsonResult marshals data to JSON and returns it as a tool result.
func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}
}

// errResult returns a tool result indicating an error.
func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

// parseArgs unmarshals the raw JSON arguments into a map.
func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if req.Params == nil || len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

// getStringArg extracts a string argument from parsed args.
func getStringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// getIntArg extracts an integer argument with a default value.
func getIntArg(args map[string]any, key string, defaultVal int) int {
	f, ok := args[key].(float64) // JSON numbers decode as float64
	if !ok {
		return defaultVal
	}
	return int(f)
}

// Repo is the store and engine for one repository root.
type Repo struct {
	Root   string
	Store  *store.Store
	Engine *graph.Engine
}

// File turns a path argument into the absolute path stored in the index.
func (r *Repo) File(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(r.Root, p)
}

// Open returns the index for root, or the server root when root is empty.
// An index that has never been synced is synced first.
func (s *Server) Open(ctx context.Context, root string) (*Repo, error) {
	if root == "" {
		root = s.root
	}
	if root == "" {
		return nil, errors.New("repo_path is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	st, err := s.router.ForRoot(ctx, abs)
	if err != nil {
		return nil, err
	}
	r := &Repo{Root: abs, Store: st, Engine: graph.New(st)}
	r.Engine.ImpactDepth = s.cfg.ImpactDepth

	if _, err := st.LastSyncRun(ctx); errors.Is(err, store.ErrNotFound) {
		if _, err := s.Sync(ctx, abs); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return r, nil
}

// repoFromArgs resolves the repo_path argument into a repo or an error result.
func (s *Server) repoFromArgs(ctx context.Context, args map[string]any) (*Repo, *mcp.CallToolResult) {
	r, err := s.Open(ctx, getStringArg(args, "repo_path"))
	if err != nil {
		return nil, errResult(fmt.Sprintf("open index: %v", err))
	}
	return r, nil
}

// session returns the resolver session for root, creating it on first use.
func (s *Server) session(root string) *resolve.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[root]
	if !ok {
		sess = resolve.NewSession()
		s.sessions[root] = sess
	}
	return sess
}

func (s *Server) syncLock(root string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.syncing[root]
	if !ok {
		m = &sync.Mutex{}
		s.syncing[root] = m
	}
	return m
}

func statusOf(n int) string {
	if n == 0 {
		return string(graph.StatusNotFound)
	}
	return "ok"
}
