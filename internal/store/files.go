package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// File is one indexed source or config file.
type File struct {
	ID             int64  `json:"id"`
	Path           string `json:"path"`
	MTime          int64  `json:"mtime"`
	ContentHash    string `json:"content_hash,omitempty"`
	SyncedAt       string `json:"synced_at"`
	Language       string `json:"language"`
	Classification string `json:"classification"`
	Summary        string `json:"summary"`
}

const fileCols = "id, path, mtime, content_hash, synced_at, language, classification, summary"

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(row scanner) (*File, error) {
	var f File
	if err := row.Scan(&f.ID, &f.Path, &f.MTime, &f.ContentHash, &f.SyncedAt, &f.Language, &f.Classification, &f.Summary); err != nil {
		return nil, err
	}
	return &f, nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}

// FileMtimes returns the stored modification time of every indexed file.
func (s *Store) FileMtimes(ctx context.Context) (map[string]int64, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT path, mtime FROM files`)
	if err != nil {
		return nil, fmt.Errorf("file mtimes: %w", err)
	}
	defer rows.Close()
	result := make(map[string]int64)
	for rows.Next() {
		var path string
		var mtime int64
		if err := rows.Scan(&path, &mtime); err != nil {
			return nil, err
		}
		result[path] = mtime
	}
	return result, rows.Err()
}

// FileHashes returns the stored content hash of every indexed file.
func (s *Store) FileHashes(ctx context.Context) (map[string]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT path, content_hash FROM files`)
	if err != nil {
		return nil, fmt.Errorf("file hashes: %w", err)
	}
	defer rows.Close()
	result := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, err
		}
		result[path] = hash
	}
	return result, rows.Err()
}

// FileByPath returns the file row for path, or ErrNotFound.
func (s *Store) FileByPath(ctx context.Context, path string) (*File, error) {
	f, err := scanFile(s.q.QueryRowContext(ctx, `SELECT `+fileCols+` FROM files WHERE path = ?`, path))
	if err != nil {
		return nil, notFound(err, "file "+path)
	}
	return f, nil
}

// ListFiles returns all files ordered by path.
func (s *Store) ListFiles(ctx context.Context) ([]*File, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+fileCols+` FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	var result []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

// DeleteFiles removes the given paths. Symbols, imports, config entries and
// content cascade with them. Returns the number of file rows removed.
func (s *Store) DeleteFiles(ctx context.Context, paths []string) (int, error) {
	deleted := 0
	for _, p := range paths {
		res, err := s.q.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, p)
		if err != nil {
			return deleted, fmt.Errorf("delete %s: %w", p, err)
		}
		n, _ := res.RowsAffected()
		deleted += int(n)
	}
	return deleted, nil
}

// ReplaceFile deletes any existing row for f.Path (cascading its derived rows)
// and inserts f, returning the new id. SyncedAt defaults to Now.
func (s *Store) ReplaceFile(ctx context.Context, f *File) (int64, error) {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, f.Path); err != nil {
		return 0, fmt.Errorf("clear %s: %w", f.Path, err)
	}
	if f.SyncedAt == "" {
		f.SyncedAt = Now()
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO files (path, mtime, content_hash, synced_at, language, classification, summary)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.Path, f.MTime, f.ContentHash, f.SyncedAt, f.Language, f.Classification, f.Summary)
	if err != nil {
		return 0, fmt.Errorf("insert file %s: %w", f.Path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	f.ID = id
	return id, nil
}

// TouchFile records a new mtime for a file whose content is unchanged.
func (s *Store) TouchFile(ctx context.Context, path string, mtime int64) error {
	res, err := s.q.ExecContext(ctx, `UPDATE files SET mtime = ?, synced_at = ? WHERE path = ?`, mtime, Now(), path)
	if err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("touch %s: %w", path, ErrNotFound)
	}
	return nil
}
