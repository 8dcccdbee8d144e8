package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 20

// SymbolHit is a ranked symbol search result. Lower Rank is better (bm25).
type SymbolHit struct {
	Symbol *Symbol `json:"symbol"`
	Rank   float64 `json:"rank"`
}

// FileHit is a ranked file search result.
type FileHit struct {
	File *File   `json:"file"`
	Rank float64 `json:"rank"`
}

// ContentHit is a ranked content search result with a highlighted snippet.
type ContentHit struct {
	Path    string  `json:"path"`
	Snippet string  `json:"snippet"`
	Rank    float64 `json:"rank"`
}

// SanitizeFTSQuery turns free text into an FTS5 query: every word becomes a
// quoted prefix term so operators and punctuation in user input cannot break
// the MATCH syntax. Returns "" when nothing searchable remains.
func SanitizeFTSQuery(query string) string {
	return ftsTerms(query, "*")
}

func ftsTerms(query, suffix string) string {
	var terms []string
	for _, word := range strings.Fields(query) {
		if !strings.ContainsFunc(word, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
			continue
		}
		terms = append(terms, `"`+strings.ReplaceAll(word, `"`, `""`)+`"`+suffix)
	}
	return strings.Join(terms, " ")
}

func searchLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	return limit
}

// SearchSymbols ranks symbols by name, signature and doc text.
func (s *Store) SearchSymbols(ctx context.Context, query string, limit int) ([]*SymbolHit, error) {
	match := SanitizeFTSQuery(query)
	if match == "" {
		return nil, nil
	}
	rows, err := s.q.QueryContext(ctx, `SELECT `+symbolCols+`, bm25(symbols_fts, 10.0, 2.0, 1.0) AS rank
		FROM symbols_fts
		JOIN symbols s ON s.id = symbols_fts.rowid
		JOIN files f ON f.id = s.file_id
		WHERE symbols_fts MATCH ?
		ORDER BY rank, s.id
		LIMIT ?`, match, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search symbols: %w", err)
	}
	defer rows.Close()

	var hits []*SymbolHit
	for rows.Next() {
		var sym Symbol
		var caps string
		var hit SymbolHit
		err := rows.Scan(&sym.ID, &sym.FileID, &sym.ParentID, &sym.Path, &sym.Name, &sym.Kind, &sym.Signature, &sym.Doc,
			&sym.StartLine, &sym.EndLine, &sym.StartByte, &sym.EndByte, &sym.Classification, &caps,
			&sym.SourceSpecifier, &sym.ImportedName, &hit.Rank)
		if err != nil {
			return nil, err
		}
		sym.Capabilities = splitList(caps)
		hit.Symbol = &sym
		hits = append(hits, &hit)
	}
	return hits, rows.Err()
}

// SearchFiles ranks files by path and summary.
func (s *Store) SearchFiles(ctx context.Context, query string, limit int) ([]*FileHit, error) {
	match := SanitizeFTSQuery(query)
	if match == "" {
		return nil, nil
	}
	rows, err := s.q.QueryContext(ctx, `SELECT f.id, f.path, f.mtime, f.content_hash, f.synced_at, f.language,
			f.classification, f.summary, bm25(files_fts, 1.0, 2.0) AS rank
		FROM files_fts
		JOIN files f ON f.id = files_fts.rowid
		WHERE files_fts MATCH ?
		ORDER BY rank, f.path
		LIMIT ?`, match, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search files: %w", err)
	}
	defer rows.Close()

	var hits []*FileHit
	for rows.Next() {
		var f File
		var hit FileHit
		if err := rows.Scan(&f.ID, &f.Path, &f.MTime, &f.ContentHash, &f.SyncedAt, &f.Language,
			&f.Classification, &f.Summary, &hit.Rank); err != nil {
			return nil, err
		}
		hit.File = &f
		hits = append(hits, &hit)
	}
	return hits, rows.Err()
}

// SearchContent ranks files by raw content and returns a snippet per file.
func (s *Store) SearchContent(ctx context.Context, query string, limit int) ([]*ContentHit, error) {
	return s.searchContent(ctx, SanitizeFTSQuery(query), limit)
}

// SearchContentTerms is SearchContent with whole-token matching: "run" does
// not match "runner".
func (s *Store) SearchContentTerms(ctx context.Context, query string, limit int) ([]*ContentHit, error) {
	return s.searchContent(ctx, ftsTerms(query, ""), limit)
}

func (s *Store) searchContent(ctx context.Context, match string, limit int) ([]*ContentHit, error) {
	if match == "" {
		return nil, nil
	}
	rows, err := s.q.QueryContext(ctx, `SELECT f.path,
			snippet(contents_fts, 0, '[', ']', '…', 16) AS snip,
			bm25(contents_fts) AS rank
		FROM contents_fts
		JOIN files f ON f.id = contents_fts.rowid
		WHERE contents_fts MATCH ?
		ORDER BY rank, f.path
		LIMIT ?`, match, searchLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search content: %w", err)
	}
	defer rows.Close()

	var hits []*ContentHit
	for rows.Next() {
		var hit ContentHit
		if err := rows.Scan(&hit.Path, &hit.Snippet, &hit.Rank); err != nil {
			return nil, err
		}
		hits = append(hits, &hit)
	}
	return hits, rows.Err()
}
