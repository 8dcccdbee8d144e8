package store

import (
	"context"
	"fmt"
)

// SyncRun records one non-empty sync pass.
type SyncRun struct {
	ID         string `json:"id"`
	Root       string `json:"root"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at"`
	Processed  int    `json:"processed"`
	Deleted    int    `json:"deleted"`
	Failed     int    `json:"failed"`
	Touched    int    `json:"touched"`
}

func scanSyncRun(row scanner) (*SyncRun, error) {
	var r SyncRun
	if err := row.Scan(&r.ID, &r.Root, &r.StartedAt, &r.FinishedAt, &r.Processed, &r.Deleted, &r.Failed, &r.Touched); err != nil {
		return nil, err
	}
	return &r, nil
}

// RecordSyncRun inserts r.
func (s *Store) RecordSyncRun(ctx context.Context, r *SyncRun) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sync_runs (id, root, started_at, finished_at, processed, deleted, failed, touched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Root, r.StartedAt, r.FinishedAt, r.Processed, r.Deleted, r.Failed, r.Touched)
	if err != nil {
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// LastSyncRun returns the most recently finished run, or ErrNotFound.
func (s *Store) LastSyncRun(ctx context.Context) (*SyncRun, error) {
	r, err := scanSyncRun(s.q.QueryRowContext(ctx, `
		SELECT id, root, started_at, finished_at, processed, deleted, failed, touched
		FROM sync_runs ORDER BY finished_at DESC, rowid DESC LIMIT 1`))
	if err != nil {
		return nil, notFound(err, "last sync run")
	}
	return r, nil
}
