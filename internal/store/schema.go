package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// SchemaVersion is recorded in the meta table after every successful migration.
const SchemaVersion = 3

const baseSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL UNIQUE,
	mtime INTEGER NOT NULL,
	synced_at TEXT NOT NULL,
	classification TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS symbols (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	parent_id INTEGER REFERENCES symbols(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	kind TEXT NOT NULL,
	signature TEXT NOT NULL DEFAULT '',
	doc TEXT NOT NULL DEFAULT '',
	start_line INTEGER NOT NULL DEFAULT 0,
	end_line INTEGER NOT NULL DEFAULT 0,
	start_byte INTEGER NOT NULL DEFAULT 0,
	end_byte INTEGER NOT NULL DEFAULT 0,
	classification TEXT NOT NULL DEFAULT '',
	capabilities TEXT NOT NULL DEFAULT '',
	source_specifier TEXT NOT NULL DEFAULT '',
	imported_name TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_id);
CREATE INDEX IF NOT EXISTS idx_symbols_parent ON symbols(parent_id);

CREATE TABLE IF NOT EXISTS imports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	specifier TEXT NOT NULL,
	names TEXT NOT NULL DEFAULT '',
	resolved_path TEXT,
	is_reexport INTEGER NOT NULL DEFAULT 0,
	type_only INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
CREATE INDEX IF NOT EXISTS idx_imports_resolved ON imports(resolved_path);

CREATE TABLE IF NOT EXISTS config_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
	key TEXT NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_config_file ON config_entries(file_id);
CREATE INDEX IF NOT EXISTS idx_config_key ON config_entries(key);

CREATE TABLE IF NOT EXISTS file_contents (
	file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	content TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sync_runs (
	id TEXT PRIMARY KEY,
	root TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	processed INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	touched INTEGER NOT NULL DEFAULT 0
);
`

// addedColumns lists columns introduced after the first released layout.
// Databases created by older builds get them through ALTER TABLE.
var addedColumns = []struct {
	table, column, ddl string
}{
	{"files", "content_hash", "TEXT NOT NULL DEFAULT ''"},
	{"files", "language", "TEXT NOT NULL DEFAULT ''"},
	{"symbols", "source_specifier", "TEXT NOT NULL DEFAULT ''"},
	{"symbols", "imported_name", "TEXT NOT NULL DEFAULT ''"},
	{"imports", "type_only", "INTEGER NOT NULL DEFAULT 0"},
}

// shadowTable is an FTS5 index over a base table, maintained by triggers.
type shadowTable struct {
	name    string
	base    string
	rowid   string
	columns []string
}

var shadowTables = []shadowTable{
	{name: "symbols_fts", base: "symbols", rowid: "id", columns: []string{"name", "signature", "doc"}},
	{name: "files_fts", base: "files", rowid: "id", columns: []string{"path", "summary"}},
	{name: "contents_fts", base: "file_contents", rowid: "file_id", columns: []string{"content"}},
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, baseSchema); err != nil {
		return fmt.Errorf("base schema: %w", err)
	}
	if err := s.ensureColumns(ctx); err != nil {
		return err
	}
	if err := s.ensureShadowTables(ctx); err != nil {
		return err
	}
	return s.SetMeta(ctx, "schema_version", strconv.Itoa(SchemaVersion))
}

func (s *Store) ensureColumns(ctx context.Context) error {
	for _, c := range addedColumns {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, c.table, c.column).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", c.table, err)
		}
		if n > 0 {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.ddl)); err != nil {
			return fmt.Errorf("add column %s.%s: %w", c.table, c.column, err)
		}
		slog.Info("store.migrate.column", "table", c.table, "column", c.column)
	}
	return nil
}

// ensureShadowTables creates any missing FTS table with its triggers and
// rebuilds it from the base table before the store serves queries.
func (s *Store) ensureShadowTables(ctx context.Context) error {
	for _, t := range shadowTables {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, t.name).Scan(&n)
		if err != nil {
			return fmt.Errorf("inspect %s: %w", t.name, err)
		}
		created := n == 0
		if _, err := s.db.ExecContext(ctx, t.ddl()); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
		if !created {
			continue
		}
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`INSERT INTO %s(%s) VALUES('rebuild')`, t.name, t.name)); err != nil {
			return fmt.Errorf("rebuild %s: %w", t.name, err)
		}
		var rows int
		_ = s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.base)).Scan(&rows)
		if rows > 0 {
			slog.Info("store.migrate.backfill", "table", t.name, "rows", rows)
		}
	}
	return nil
}

// ddl returns the virtual table and its insert/delete/update triggers.
func (t shadowTable) ddl() string {
	cols := join(t.columns, "", ", ")
	newVals := join(t.columns, "new.", ", ")
	oldVals := join(t.columns, "old.", ", ")

	insert := fmt.Sprintf("INSERT INTO %s(rowid, %s) VALUES (new.%s, %s);", t.name, cols, t.rowid, newVals)
	remove := fmt.Sprintf("INSERT INTO %s(%s, rowid, %s) VALUES ('delete', old.%s, %s);", t.name, t.name, cols, t.rowid, oldVals)

	return fmt.Sprintf(`
CREATE VIRTUAL TABLE IF NOT EXISTS %[1]s USING fts5(%[2]s, content='%[3]s', content_rowid='%[4]s');

CREATE TRIGGER IF NOT EXISTS %[1]s_ai AFTER INSERT ON %[3]s BEGIN
	%[5]s
END;

CREATE TRIGGER IF NOT EXISTS %[1]s_ad AFTER DELETE ON %[3]s BEGIN
	%[6]s
END;

CREATE TRIGGER IF NOT EXISTS %[1]s_au AFTER UPDATE ON %[3]s BEGIN
	%[6]s
	%[5]s
END;
`, t.name, cols, t.base, t.rowid, insert, remove)
}

func join(cols []string, prefix, sep string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += sep
		}
		out += prefix + c
	}
	return out
}

// SetMeta stores a key/value pair in the meta table.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// Meta returns the value stored under key, or ErrNotFound.
func (s *Store) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if err != nil {
		return "", notFound(err, "meta "+key)
	}
	return v, nil
}
