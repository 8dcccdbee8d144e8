package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ImportEdge is one import or re-export statement of a file.
// ResolvedPath is empty when the specifier did not resolve to an indexed file.
type ImportEdge struct {
	ID           int64    `json:"id"`
	FileID       int64    `json:"-"`
	Path         string   `json:"path"`
	Specifier    string   `json:"specifier"`
	Names        []string `json:"names,omitempty"`
	ResolvedPath string   `json:"resolved_path,omitempty"`
	IsReexport   bool     `json:"is_reexport,omitempty"`
	TypeOnly     bool     `json:"type_only,omitempty"`
}

// Imports reports whether the edge brings in name. A blank name list
// (side-effect, dynamic or plain require) and "*" match every name.
func (e *ImportEdge) Imports(name string) bool {
	if len(e.Names) == 0 {
		return true
	}
	for _, n := range e.Names {
		if n == name || n == "*" || n == "" {
			return true
		}
	}
	return false
}

const importCols = `i.id, i.file_id, f.path, i.specifier, i.names, COALESCE(i.resolved_path, ''), i.is_reexport, i.type_only`

const importFrom = ` FROM imports i JOIN files f ON f.id = i.file_id`

func scanImport(row scanner) (*ImportEdge, error) {
	var e ImportEdge
	var names string
	if err := row.Scan(&e.ID, &e.FileID, &e.Path, &e.Specifier, &names, &e.ResolvedPath, &e.IsReexport, &e.TypeOnly); err != nil {
		return nil, err
	}
	e.Names = splitList(names)
	return &e, nil
}

func scanImports(rows *sql.Rows) ([]*ImportEdge, error) {
	defer rows.Close()
	var result []*ImportEdge
	for rows.Next() {
		e, err := scanImport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// InsertImport stores an import edge of e.FileID.
func (s *Store) InsertImport(ctx context.Context, e *ImportEdge) error {
	var resolved any
	if e.ResolvedPath != "" {
		resolved = e.ResolvedPath
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO imports (file_id, specifier, names, resolved_path, is_reexport, type_only)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.FileID, e.Specifier, strings.Join(e.Names, ","), resolved, e.IsReexport, e.TypeOnly)
	if err != nil {
		return fmt.Errorf("insert import %s: %w", e.Specifier, err)
	}
	e.ID, _ = res.LastInsertId()
	return nil
}

// ImportsOf returns the outgoing edges of path in insertion order.
func (s *Store) ImportsOf(ctx context.Context, path string) ([]*ImportEdge, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+importCols+importFrom+` WHERE f.path = ? ORDER BY i.id`, path)
	if err != nil {
		return nil, fmt.Errorf("imports of %s: %w", path, err)
	}
	return scanImports(rows)
}

// ImportersOf returns every edge whose resolved target is path.
func (s *Store) ImportersOf(ctx context.Context, path string) ([]*ImportEdge, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+importCols+importFrom+`
		WHERE i.resolved_path = ? ORDER BY f.path, i.id`, path)
	if err != nil {
		return nil, fmt.Errorf("importers of %s: %w", path, err)
	}
	return scanImports(rows)
}

// ReexportersOf returns the re-export edges whose resolved target is path.
func (s *Store) ReexportersOf(ctx context.Context, path string) ([]*ImportEdge, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+importCols+importFrom+`
		WHERE i.resolved_path = ? AND i.is_reexport = 1 ORDER BY f.path, i.id`, path)
	if err != nil {
		return nil, fmt.Errorf("reexporters of %s: %w", path, err)
	}
	return scanImports(rows)
}

// UnresolvedImports returns edges that did not resolve, optionally limited
// to one importing file.
func (s *Store) UnresolvedImports(ctx context.Context, path string, limit int) ([]*ImportEdge, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + importCols + importFrom + ` WHERE i.resolved_path IS NULL`
	args := []any{}
	if path != "" {
		query += ` AND f.path = ?`
		args = append(args, path)
	}
	query += ` ORDER BY f.path, i.id LIMIT ?`
	args = append(args, limit)
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("unresolved imports: %w", err)
	}
	return scanImports(rows)
}
