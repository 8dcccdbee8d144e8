package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Symbol is an exported declaration (or a member of one).
type Symbol struct {
	ID              int64    `json:"id"`
	FileID          int64    `json:"-"`
	ParentID        int64    `json:"parent_id,omitempty"`
	Path            string   `json:"path"`
	Name            string   `json:"name"`
	Kind            string   `json:"kind"`
	Signature       string   `json:"signature,omitempty"`
	Doc             string   `json:"doc,omitempty"`
	StartLine       int      `json:"start_line"`
	EndLine         int      `json:"end_line"`
	StartByte       int      `json:"start_byte"`
	EndByte         int      `json:"end_byte"`
	Classification  string   `json:"classification,omitempty"`
	Capabilities    []string `json:"capabilities,omitempty"`
	SourceSpecifier string   `json:"source_specifier,omitempty"`
	ImportedName    string   `json:"imported_name,omitempty"`
}

// IsReexport reports whether the symbol forwards another module's export.
func (sym *Symbol) IsReexport() bool {
	return sym.Kind == "reexport" || sym.Kind == "reexport_all"
}

// Span is the number of lines the declaration covers.
func (sym *Symbol) Span() int {
	return sym.EndLine - sym.StartLine + 1
}

const symbolCols = `s.id, s.file_id, COALESCE(s.parent_id, 0), f.path, s.name, s.kind, s.signature, s.doc,
	s.start_line, s.end_line, s.start_byte, s.end_byte, s.classification, s.capabilities,
	s.source_specifier, s.imported_name`

const symbolFrom = ` FROM symbols s JOIN files f ON f.id = s.file_id`

func scanSymbol(row scanner) (*Symbol, error) {
	var sym Symbol
	var caps string
	err := row.Scan(&sym.ID, &sym.FileID, &sym.ParentID, &sym.Path, &sym.Name, &sym.Kind, &sym.Signature, &sym.Doc,
		&sym.StartLine, &sym.EndLine, &sym.StartByte, &sym.EndByte, &sym.Classification, &caps,
		&sym.SourceSpecifier, &sym.ImportedName)
	if err != nil {
		return nil, err
	}
	sym.Capabilities = splitList(caps)
	return &sym, nil
}

func scanSymbols(rows *sql.Rows) ([]*Symbol, error) {
	defer rows.Close()
	var result []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sym)
	}
	return result, rows.Err()
}

// InsertSymbol inserts sym and returns its id. A zero ParentID stores NULL.
func (s *Store) InsertSymbol(ctx context.Context, sym *Symbol) (int64, error) {
	var parent any
	if sym.ParentID != 0 {
		parent = sym.ParentID
	}
	res, err := s.q.ExecContext(ctx, `
		INSERT INTO symbols (file_id, parent_id, name, kind, signature, doc, start_line, end_line,
			start_byte, end_byte, classification, capabilities, source_specifier, imported_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sym.FileID, parent, sym.Name, sym.Kind, sym.Signature, sym.Doc, sym.StartLine, sym.EndLine,
		sym.StartByte, sym.EndByte, sym.Classification, strings.Join(sym.Capabilities, ","),
		sym.SourceSpecifier, sym.ImportedName)
	if err != nil {
		return 0, fmt.Errorf("insert symbol %s: %w", sym.Name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	sym.ID = id
	return id, nil
}

// SymbolsByName returns top-level symbols with the given exported name.
func (s *Store) SymbolsByName(ctx context.Context, name string) ([]*Symbol, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+symbolCols+symbolFrom+`
		WHERE s.name = ? AND s.parent_id IS NULL ORDER BY f.path, s.start_line`, name)
	if err != nil {
		return nil, fmt.Errorf("symbols by name: %w", err)
	}
	return scanSymbols(rows)
}

// SymbolsInFile returns every symbol of path, members included, in source order.
func (s *Store) SymbolsInFile(ctx context.Context, path string) ([]*Symbol, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+symbolCols+symbolFrom+`
		WHERE f.path = ? ORDER BY s.start_byte, s.id`, path)
	if err != nil {
		return nil, fmt.Errorf("symbols in file: %w", err)
	}
	return scanSymbols(rows)
}

// Members returns the child symbols of parentID.
func (s *Store) Members(ctx context.Context, parentID int64) ([]*Symbol, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+symbolCols+symbolFrom+`
		WHERE s.parent_id = ? ORDER BY s.start_byte`, parentID)
	if err != nil {
		return nil, fmt.Errorf("members: %w", err)
	}
	return scanSymbols(rows)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
