package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/cobra"
)

const mcpServerKey = "codebase-index"

type installConfig struct {
	dryRun bool
	out    io.Writer
}

func installCmd() *cobra.Command {
	cfg := installConfig{}
	cmd := &cobra.Command{
		Use:   "install",
		Short: "Register the MCP server with Claude Code, Cursor and Windsurf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.out = cmd.OutOrStdout()
			binaryPath, err := detectBinaryPath()
			if err != nil {
				return err
			}
			fmt.Fprintf(cfg.out, "codebase-index %s install\nBinary: %s\n\n", version, binaryPath)

			if claudePath := findCLI("claude"); claudePath != "" {
				fmt.Fprintf(cfg.out, "[Claude Code] detected (%s)\n", claudePath)
				registerClaudeCodeMCP(binaryPath, claudePath, cfg)
			} else {
				fmt.Fprintln(cfg.out, "[Claude Code] not found, skipping")
			}
			installEditorMCP(binaryPath, cursorConfigPath(), "Cursor", cfg)
			installEditorMCP(binaryPath, windsurfConfigPath(), "Windsurf", cfg)
			return nil
		},
	}
	cmd.Flags().BoolVar(&cfg.dryRun, "dry-run", false, "print what would change without writing")
	return cmd
}

func uninstallCmd() *cobra.Command {
	cfg := installConfig{}
	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the MCP server registrations written by install",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.out = cmd.OutOrStdout()
			if claudePath := findCLI("claude"); claudePath != "" {
				fmt.Fprintf(cfg.out, "[Claude Code] detected (%s)\n", claudePath)
				deregisterMCP(claudePath, cfg)
			}
			removeEditorMCP(cursorConfigPath(), "Cursor", cfg)
			removeEditorMCP(windsurfConfigPath(), "Windsurf", cfg)
			fmt.Fprintln(cfg.out, "Index databases were not removed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&cfg.dryRun, "dry-run", false, "print what would change without writing")
	return cmd
}

// detectBinaryPath resolves the current binary's real path.
func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("detect binary: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve symlink: %w", err)
	}
	return resolved, nil
}

func registerClaudeCodeMCP(binaryPath, claudePath string, cfg installConfig) {
	if cfg.dryRun {
		fmt.Fprintf(cfg.out, "  [dry-run] Would run: %s mcp add --scope user %s -- %s serve\n", claudePath, mcpServerKey, binaryPath)
		return
	}
	_ = execCLI(claudePath, "mcp", "remove", "-s", "user", mcpServerKey)
	if err := execCLI(claudePath, "mcp", "add", "--scope", "user", mcpServerKey, "--", binaryPath, "serve"); err != nil {
		fmt.Fprintf(cfg.out, "  ! MCP registration failed: %v\n", err)
		return
	}
	fmt.Fprintln(cfg.out, "  MCP server registered (scope: user)")
}

func deregisterMCP(cliPath string, cfg installConfig) {
	if cfg.dryRun {
		fmt.Fprintf(cfg.out, "  [dry-run] Would run: %s mcp remove -s user %s\n", cliPath, mcpServerKey)
		return
	}
	if err := execCLI(cliPath, "mcp", "remove", "-s", "user", mcpServerKey); err != nil {
		fmt.Fprintf(cfg.out, "  ! MCP deregistration: %v\n", err)
	}
}

// findCLI locates a CLI binary by name.
func findCLI(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidates := []string{
		"/usr/local/bin/" + name,
		filepath.Join(home, ".npm", "bin", name),
		filepath.Join(home, ".local", "bin", name),
	}
	if runtime.GOOS == "darwin" {
		candidates = append(candidates, "/opt/homebrew/bin/"+name)
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

func execCLI(path string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func cursorConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cursor", "mcp.json")
}

func windsurfConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".codeium", "windsurf", "mcp_config.json")
}

// readMCPConfig returns the parsed config and its mcpServers map. A missing
// or invalid file yields empty maps.
func readMCPConfig(configPath string) (root, servers map[string]any) {
	root = make(map[string]any)
	if data, err := os.ReadFile(configPath); err == nil {
		if json.Unmarshal(data, &root) != nil {
			root = make(map[string]any)
		}
	}
	servers, ok := root["mcpServers"].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	return root, servers
}

func writeMCPConfig(configPath string, root map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return err
	}
	out, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, append(out, '\n'), 0o600)
}

// installEditorMCP upserts our server entry in an editor's JSON config file,
// leaving other servers untouched.
func installEditorMCP(binaryPath, configPath, editorName string, cfg installConfig) {
	if configPath == "" {
		return
	}
	fmt.Fprintf(cfg.out, "[%s] MCP config: %s\n", editorName, configPath)
	if cfg.dryRun {
		fmt.Fprintf(cfg.out, "  [dry-run] Would upsert %s in %s\n", mcpServerKey, configPath)
		return
	}

	root, servers := readMCPConfig(configPath)
	servers[mcpServerKey] = map[string]any{
		"command": binaryPath,
		"args":    []string{"serve"},
	}
	root["mcpServers"] = servers
	if err := writeMCPConfig(configPath, root); err != nil {
		fmt.Fprintf(cfg.out, "  ! write %s: %v\n", configPath, err)
		return
	}
	fmt.Fprintf(cfg.out, "  MCP server registered in %s\n", configPath)
}

func removeEditorMCP(configPath, editorName string, cfg installConfig) {
	if configPath == "" {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	root, servers := readMCPConfig(configPath)
	if _, ok := servers[mcpServerKey]; !ok {
		return
	}

	fmt.Fprintf(cfg.out, "[%s] MCP config: %s\n", editorName, configPath)
	if cfg.dryRun {
		fmt.Fprintf(cfg.out, "  [dry-run] Would remove %s from %s\n", mcpServerKey, configPath)
		return
	}
	delete(servers, mcpServerKey)
	root["mcpServers"] = servers
	if err := writeMCPConfig(configPath, root); err != nil {
		fmt.Fprintf(cfg.out, "  ! write %s: %v\n", configPath, err)
		return
	}
	fmt.Fprintf(cfg.out, "  Removed %s from %s\n", mcpServerKey, configPath)
}
