package store

import (
	"context"
	"fmt"
)

// ConfigEntry is one key/value pulled from an infrastructure or config file.
type ConfigEntry struct {
	ID     int64  `json:"-"`
	FileID int64  `json:"-"`
	Path   string `json:"path"`
	Key    string `json:"key"`
	Value  string `json:"value"`
	Kind   string `json:"kind"`
}

const configCols = `c.id, c.file_id, f.path, c.key, c.value, c.kind`

func scanConfigEntry(row scanner) (*ConfigEntry, error) {
	var c ConfigEntry
	if err := row.Scan(&c.ID, &c.FileID, &c.Path, &c.Key, &c.Value, &c.Kind); err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertConfigEntry stores c under c.FileID.
func (s *Store) InsertConfigEntry(ctx context.Context, c *ConfigEntry) error {
	res, err := s.q.ExecContext(ctx, `INSERT INTO config_entries (file_id, key, value, kind) VALUES (?, ?, ?, ?)`,
		c.FileID, c.Key, c.Value, c.Kind)
	if err != nil {
		return fmt.Errorf("insert config entry %s: %w", c.Key, err)
	}
	c.ID, _ = res.LastInsertId()
	return nil
}

// ConfigEntries returns entries whose key contains keySubstr (all when
// empty), optionally restricted to one file.
func (s *Store) ConfigEntries(ctx context.Context, keySubstr, path string, limit int) ([]*ConfigEntry, error) {
	if limit <= 0 {
		limit = 200
	}
	query := `SELECT ` + configCols + ` FROM config_entries c JOIN files f ON f.id = c.file_id WHERE 1=1`
	var args []any
	if keySubstr != "" {
		query += ` AND c.key LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(keySubstr)+"%")
	}
	if path != "" {
		query += ` AND f.path = ?`
		args = append(args, path)
	}
	query += ` ORDER BY f.path, c.id LIMIT ?`
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("config entries: %w", err)
	}
	defer rows.Close()
	var result []*ConfigEntry
	for rows.Next() {
		c, err := scanConfigEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
