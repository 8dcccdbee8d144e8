// Package pipeline keeps an index store in step with the files on disk.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/DeusData/codebase-index/internal/discover"
	"github.com/DeusData/codebase-index/internal/extract"
	"github.com/DeusData/codebase-index/internal/resolve"
	"github.com/DeusData/codebase-index/internal/store"
)

// Pipeline synchronizes one repository root into one Store.
// Concurrent Sync calls against the same Store are the caller's to avoid.
type Pipeline struct {
	Store     *store.Store
	RepoPath  string
	Extractor extract.Extractor
	Resolver  *resolve.Session
	// Concurrency bounds parallel parsing; <= 0 means runtime.NumCPU().
	Concurrency int
	Discover    *discover.Options
}

// New creates a Pipeline with the tree-sitter extractor and a fresh resolver
// session. A relative repoPath is taken from the working directory.
func New(s *store.Store, repoPath string) *Pipeline {
	if abs, err := filepath.Abs(repoPath); err == nil {
		repoPath = abs
	}
	return &Pipeline{
		Store:     s,
		RepoPath:  repoPath,
		Extractor: extract.New(),
		Resolver:  resolve.NewSession(),
	}
}

// SyncResult reports what one pass changed.
type SyncResult struct {
	RunID     string        `json:"run_id,omitempty"`
	NoOp      bool          `json:"no_op"`
	Processed int           `json:"processed"`
	Deleted   int           `json:"deleted"`
	Failed    int           `json:"failed"`
	Touched   int           `json:"touched"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

func (p *Pipeline) concurrency() int {
	if p.Concurrency <= 0 {
		return runtime.NumCPU()
	}
	return p.Concurrency
}

// Sync brings the store up to date with the repository. A pass with nothing
// to delete or process returns NoOp without writing. Each file commits in its
// own transaction, so a cancelled or failed pass leaves every committed file
// valid; a store error aborts the pass and is returned.
func (p *Pipeline) Sync(ctx context.Context) (*SyncResult, error) {
	start := time.Now()

	cached, err := p.Store.FileMtimes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load mtimes: %w", err)
	}
	files, err := discover.Discover(ctx, p.RepoPath, p.Discover)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}

	toDelete, toProcess := diff(cached, files)
	if len(toDelete) == 0 && len(toProcess) == 0 {
		slog.Debug("sync.noop", "root", p.RepoPath, "files", len(files))
		return &SyncResult{NoOp: true}, nil
	}

	res := &SyncResult{RunID: uuid.NewString()}
	log := slog.With("run", res.RunID)
	log.Info("sync.start", "root", p.RepoPath, "discovered", len(files), "delete", len(toDelete), "process", len(toProcess))

	if len(toDelete) > 0 {
		err := p.Store.WithTransaction(ctx, func(tx *store.Store) error {
			n, err := tx.DeleteFiles(ctx, toDelete)
			res.Deleted = n
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("delete: %w", err)
		}
		log.Info("sync.delete", "files", res.Deleted)
	}

	if len(toProcess) > 0 {
		hashes, err := p.Store.FileHashes(ctx)
		if err != nil {
			return nil, fmt.Errorf("load hashes: %w", err)
		}
		results, err := p.parseAll(ctx, toProcess, hashes)
		if err != nil {
			return nil, err
		}
		if err := p.writeAll(ctx, log, results, res); err != nil {
			return nil, err
		}
	}

	res.Elapsed = time.Since(start)
	run := &store.SyncRun{
		ID:         res.RunID,
		Root:       p.RepoPath,
		StartedAt:  start.UTC().Format(time.RFC3339),
		FinishedAt: store.Now(),
		Processed:  res.Processed,
		Deleted:    res.Deleted,
		Failed:     res.Failed,
		Touched:    res.Touched,
	}
	if err := p.Store.RecordSyncRun(ctx, run); err != nil {
		return nil, err
	}
	log.Info("sync.done", "processed", res.Processed, "deleted", res.Deleted,
		"failed", res.Failed, "touched", res.Touched, "elapsed", res.Elapsed)
	return res, nil
}

// diff splits the scan into stored paths that vanished and discovered files
// whose mtime is new or different. Both lists are sorted by path.
func diff(cached map[string]int64, files []discover.FileInfo) (toDelete []string, toProcess []discover.FileInfo) {
	onDisk := make(map[string]bool, len(files))
	for _, f := range files {
		onDisk[f.Path] = true
		if mtime, ok := cached[f.Path]; !ok || mtime != f.MTime {
			toProcess = append(toProcess, f)
		}
	}
	for path := range cached {
		if !onDisk[path] {
			toDelete = append(toDelete, path)
		}
	}
	sort.Strings(toDelete)
	sort.Slice(toProcess, func(i, j int) bool { return toProcess[i].Path < toProcess[j].Path })
	return toDelete, toProcess
}
