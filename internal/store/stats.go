package store

import (
	"context"
	"fmt"
)

// Stats summarizes the contents of an index.
type Stats struct {
	Files       int          `json:"files"`
	Symbols     int          `json:"symbols"`
	Imports     int          `json:"imports"`
	Unresolved  int          `json:"unresolved_imports"`
	ConfigRows  int          `json:"config_entries"`
	Languages   []LabelCount `json:"languages"`
	SymbolKinds []LabelCount `json:"symbol_kinds"`
	FileClasses []LabelCount `json:"file_classifications"`
	SampleNames []string     `json:"sample_names,omitempty"`
}

// LabelCount is a label with its count.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats returns row counts and per-label distributions.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	counts := []struct {
		dst   *int
		query string
	}{
		{&st.Files, `SELECT COUNT(*) FROM files`},
		{&st.Symbols, `SELECT COUNT(*) FROM symbols`},
		{&st.Imports, `SELECT COUNT(*) FROM imports`},
		{&st.Unresolved, `SELECT COUNT(*) FROM imports WHERE resolved_path IS NULL`},
		{&st.ConfigRows, `SELECT COUNT(*) FROM config_entries`},
	}
	for _, c := range counts {
		if err := s.q.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	var err error
	if st.Languages, err = s.labelCounts(ctx, `SELECT language, COUNT(*) AS cnt FROM files GROUP BY language ORDER BY cnt DESC, language`); err != nil {
		return nil, err
	}
	if st.SymbolKinds, err = s.labelCounts(ctx, `SELECT kind, COUNT(*) AS cnt FROM symbols GROUP BY kind ORDER BY cnt DESC, kind`); err != nil {
		return nil, err
	}
	if st.FileClasses, err = s.labelCounts(ctx, `SELECT classification, COUNT(*) AS cnt FROM files GROUP BY classification ORDER BY cnt DESC, classification`); err != nil {
		return nil, err
	}
	if st.SampleNames, err = s.sampleNames(ctx, 20); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) labelCounts(ctx context.Context, query string) ([]LabelCount, error) {
	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("stats labels: %w", err)
	}
	defer rows.Close()
	var labels []LabelCount
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		labels = append(labels, lc)
	}
	return labels, rows.Err()
}

func (s *Store) sampleNames(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT DISTINCT name FROM symbols
		WHERE parent_id IS NULL AND kind NOT IN ('reexport', 'reexport_all')
		ORDER BY name LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("stats names: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}
