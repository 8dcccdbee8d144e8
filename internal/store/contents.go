package store

import (
	"context"
	"fmt"
)

// PutContent stores the raw text of a file for full-text search.
func (s *Store) PutContent(ctx context.Context, fileID int64, content string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO file_contents (file_id, content) VALUES (?, ?)
		ON CONFLICT(file_id) DO UPDATE SET content = excluded.content`, fileID, content)
	if err != nil {
		return fmt.Errorf("put content: %w", err)
	}
	return nil
}

// Content returns the stored text of path, or ErrNotFound.
func (s *Store) Content(ctx context.Context, path string) (string, error) {
	var content string
	err := s.q.QueryRowContext(ctx, `
		SELECT c.content FROM file_contents c JOIN files f ON f.id = c.file_id
		WHERE f.path = ?`, path).Scan(&content)
	if err != nil {
		return "", notFound(err, "content "+path)
	}
	return content, nil
}
