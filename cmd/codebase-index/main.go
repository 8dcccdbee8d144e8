package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/DeusData/codebase-index/internal/config"
	"github.com/DeusData/codebase-index/internal/store"
	"github.com/DeusData/codebase-index/internal/tools"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// app holds the state shared by every subcommand.
type app struct {
	repo   string
	cfg    *config.Config
	router *store.Router
	srv    *tools.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "codebase-index",
		Short:         "Persistent incremental index of a TypeScript/JavaScript codebase",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&a.repo, "repo", "", "repository root (default: current directory)")

	root.AddCommand(a.serveCmd(), a.syncCmd())
	root.AddCommand(a.queryCmds()...)
	root.AddCommand(installCmd(), uninstallCmd(), astCmd())
	return root
}

// setup loads config for the repository root, configures logging and opens
// the store router. Callers must defer a.close.
func (a *app) setup(cmd *cobra.Command) error {
	repo := a.repo
	if repo == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting cwd: %w", err)
		}
		repo = wd
	}
	abs, err := filepath.Abs(repo)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", repo, err)
	}
	a.repo = abs

	cfg, err := config.Load(abs)
	if err != nil {
		return err
	}
	a.cfg = cfg
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.Level()})))

	router, err := store.NewRouter(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("opening cache dir: %w", err)
	}
	a.router = router
	a.srv = tools.NewServer(router, cfg, abs)
	return nil
}

func (a *app) close() {
	if a.router != nil {
		a.router.CloseAll()
	}
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			slog.Info("serve.start", "root", a.repo, "version", version)
			err := a.srv.MCPServer().Run(cmd.Context(), &mcp.StdioTransport{})
			if err != nil && cmd.Context().Err() == nil {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		},
	}
}

func (a *app) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Bring the index up to date with the working tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			res, err := a.srv.Sync(cmd.Context(), a.repo)
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}
			return writeJSON(cmd, res)
		},
	}
}
