package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DeusData/codebase-index/internal/extract"
	"github.com/DeusData/codebase-index/internal/store"
)

// ClassError marks a file whose extraction failed.
const ClassError = "error"

// ClassConfig marks an infrastructure or configuration file.
const ClassConfig = "config"

// writeAll commits every result in its own transaction, in path order.
func (p *Pipeline) writeAll(ctx context.Context, log *slog.Logger, results []*parseResult, res *SyncResult) error {
	for _, r := range results {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.Err != nil {
			res.Failed++
			log.Warn("sync.parse.err", "path", r.File.Path, "err", r.Err)
		}
		err := p.Store.WithTransaction(ctx, func(tx *store.Store) error {
			return p.writeFile(ctx, tx, r)
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", r.File.Path, err)
		}
		if r.Touched {
			res.Touched++
		} else {
			res.Processed++
		}
	}
	return nil
}

// writeFile replaces the file row and everything derived from it: exports
// (parents before members), resolved import edges, config entries, content.
func (p *Pipeline) writeFile(ctx context.Context, tx *store.Store, r *parseResult) error {
	if r.Touched {
		return tx.TouchFile(ctx, r.File.Path, r.File.MTime)
	}

	f := &store.File{
		Path:        r.File.Path,
		MTime:       r.File.MTime,
		ContentHash: r.Hash,
		Language:    string(r.File.Language),
	}
	switch {
	case r.Err != nil:
		f.Classification = ClassError
	case r.Config != nil:
		f.Classification = ClassConfig
		f.Summary = r.Config.Summary
	case r.Record != nil:
		f.Classification = r.Record.Classification
		f.Summary = r.Record.Summary
	}
	fileID, err := tx.ReplaceFile(ctx, f)
	if err != nil {
		return err
	}

	if r.Err == nil && r.Record != nil {
		for _, e := range r.Record.Exports {
			if err := insertExport(ctx, tx, fileID, 0, e); err != nil {
				return err
			}
		}
		for _, imp := range r.Record.Imports {
			edge := &store.ImportEdge{
				FileID:     fileID,
				Specifier:  imp.Specifier,
				Names:      imp.Names,
				IsReexport: imp.IsReexport,
				TypeOnly:   imp.TypeOnly,
			}
			if resolved, ok := p.Resolver.Resolve(imp.Specifier, r.File.Path, p.RepoPath); ok {
				edge.ResolvedPath = resolved
			}
			if err := tx.InsertImport(ctx, edge); err != nil {
				return err
			}
		}
	}

	if r.Err == nil && r.Config != nil {
		for _, e := range r.Config.Entries {
			if err := tx.InsertConfigEntry(ctx, &store.ConfigEntry{FileID: fileID, Key: e.Key, Value: e.Value, Kind: e.Kind}); err != nil {
				return err
			}
		}
	}

	if r.Content != "" {
		return tx.PutContent(ctx, fileID, r.Content)
	}
	return nil
}

// insertExport writes e and then its members with e's generated id as parent.
func insertExport(ctx context.Context, tx *store.Store, fileID, parentID int64, e extract.Export) error {
	sym := &store.Symbol{
		FileID:          fileID,
		ParentID:        parentID,
		Name:            e.Name,
		Kind:            string(e.Kind),
		Signature:       e.Signature,
		Doc:             e.Doc,
		StartLine:       e.StartLine,
		EndLine:         e.EndLine,
		StartByte:       e.StartByte,
		EndByte:         e.EndByte,
		Classification:  e.Classification,
		Capabilities:    e.Capabilities,
		SourceSpecifier: e.Source,
		ImportedName:    e.ImportedName,
	}
	id, err := tx.InsertSymbol(ctx, sym)
	if err != nil {
		return err
	}
	for _, m := range e.Members {
		if err := insertExport(ctx, tx, fileID, id, m); err != nil {
			return err
		}
	}
	return nil
}
