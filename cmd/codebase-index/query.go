package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DeusData/codebase-index/internal/store"
	"github.com/DeusData/codebase-index/internal/tools"
)

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withRepo opens the index for the configured root, syncing it first when it
// has never been built, and hands it to fn.
func (a *app) withRepo(fn func(cmd *cobra.Command, r *tools.Repo, args []string) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.setup(cmd); err != nil {
			return err
		}
		defer a.close()
		r, err := a.srv.Open(cmd.Context(), a.repo)
		if err != nil {
			return err
		}
		out, err := fn(cmd, r, args)
		if err != nil {
			return err
		}
		return writeJSON(cmd, out)
	}
}

func (a *app) queryCmds() []*cobra.Command {
	var (
		file  string
		depth int
		limit int
		kind  string
	)

	symbolCmd := &cobra.Command{
		Use:   "symbol <name>",
		Short: "Locate a symbol definition, following barrel re-exports",
		Args:  cobra.ExactArgs(1),
		RunE: a.withRepo(func(cmd *cobra.Command, r *tools.Repo, args []string) (any, error) {
			return r.Engine.Lookup(cmd.Context(), args[0], r.File(file))
		}),
	}
	symbolCmd.Flags().StringVar(&file, "file", "", "restrict the lookup to this file")

	depsCmd := &cobra.Command{
		Use:   "deps <file>",
		Short: "List the imports of a file",
		Args:  cobra.ExactArgs(1),
		RunE: a.withRepo(func(cmd *cobra.Command, r *tools.Repo, args []string) (any, error) {
			return r.Engine.Dependencies(cmd.Context(), r.File(args[0]))
		}),
	}

	dependentsCmd := &cobra.Command{
		Use:   "dependents <file>",
		Short: "List the files importing a file",
		Args:  cobra.ExactArgs(1),
		RunE: a.withRepo(func(cmd *cobra.Command, r *tools.Repo, args []string) (any, error) {
			return r.Engine.Dependents(cmd.Context(), r.File(args[0]))
		}),
	}

	impactCmd := &cobra.Command{
		Use:   "impact <symbol>",
		Short: "Show the transitive dependents of a symbol with risk levels",
		Args:  cobra.ExactArgs(1),
		RunE: a.withRepo(func(cmd *cobra.Command, r *tools.Repo, args []string) (any, error) {
			return r.Engine.Impact(cmd.Context(), args[0], r.File(file), depth)
		}),
	}
	impactCmd.Flags().StringVar(&file, "file", "", "file defining the symbol")
	impactCmd.Flags().IntVar(&depth, "depth", 0, "maximum import hops (default from config)")

	usagesCmd := &cobra.Command{
		Use:   "usages <symbol>",
		Short: "Find verified usages and textual mentions of a symbol",
		Args:  cobra.ExactArgs(1),
		RunE: a.withRepo(func(cmd *cobra.Command, r *tools.Repo, args []string) (any, error) {
			return r.Engine.Usages(cmd.Context(), args[0], r.File(file))
		}),
	}
	usagesCmd.Flags().StringVar(&file, "file", "", "file defining the symbol")

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over symbols, files or content",
		Args:  cobra.ExactArgs(1),
		RunE: a.withRepo(func(cmd *cobra.Command, r *tools.Repo, args []string) (any, error) {
			ctx := cmd.Context()
			switch kind {
			case "symbols":
				return r.Engine.SearchSymbols(ctx, args[0], limit)
			case "files":
				return r.Engine.SearchFiles(ctx, args[0], limit)
			case "content":
				return r.Engine.SearchContent(ctx, args[0], limit)
			default:
				return nil, fmt.Errorf("unknown search kind %q (want symbols|files|content)", kind)
			}
		}),
	}
	searchCmd.Flags().StringVar(&kind, "kind", "symbols", "what to search: symbols|files|content")
	searchCmd.Flags().IntVar(&limit, "limit", store.DefaultSearchLimit, "maximum results")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show index statistics",
		Args:  cobra.NoArgs,
		RunE: a.withRepo(func(cmd *cobra.Command, r *tools.Repo, _ []string) (any, error) {
			return r.Store.Stats(cmd.Context())
		}),
	}

	return []*cobra.Command{symbolCmd, depsCmd, dependentsCmd, impactCmd, usagesCmd, searchCmd, statusCmd}
}
