package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seedFile writes a file with one class, one member, an import, a config
// entry and content, all in one transaction.
func seedFile(t *testing.T, s *Store, path string) int64 {
	t.Helper()
	ctx := context.Background()
	var fileID int64
	err := s.WithTransaction(ctx, func(tx *Store) error {
		id, err := tx.ReplaceFile(ctx, &File{Path: path, MTime: 100, ContentHash: "abc", Language: "typescript",
			Classification: "module", Summary: "Date helpers"})
		if err != nil {
			return err
		}
		fileID = id
		parent := &Symbol{FileID: id, Name: "Formatter", Kind: "class", Signature: "class Formatter",
			Doc: "Formats dates.", StartLine: 3, EndLine: 9, StartByte: 20, EndByte: 120, Capabilities: []string{"env"}}
		if _, err := tx.InsertSymbol(ctx, parent); err != nil {
			return err
		}
		member := &Symbol{FileID: id, ParentID: parent.ID, Name: "format", Kind: "member", Signature: "format(d: Date): string",
			StartLine: 4, EndLine: 6}
		if _, err := tx.InsertSymbol(ctx, member); err != nil {
			return err
		}
		if err := tx.InsertImport(ctx, &ImportEdge{FileID: id, Specifier: "./clock", Names: []string{"now"},
			ResolvedPath: "/repo/src/clock.ts"}); err != nil {
			return err
		}
		if err := tx.InsertConfigEntry(ctx, &ConfigEntry{FileID: id, Key: "env.TZ", Value: "UTC", Kind: "env"}); err != nil {
			return err
		}
		return tx.PutContent(ctx, id, "export class Formatter { format(d) { return formatDate(d); } }")
	})
	require.NoError(t, err)
	return fileID
}

func TestOpenMemorySchemaVersion(t *testing.T) {
	s := newTestStore(t)
	v, err := s.Meta(context.Background(), "schema_version")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	_, err = s.Meta(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileRoundTripAndMembers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFile(t, s, "/repo/src/date.ts")

	f, err := s.FileByPath(ctx, "/repo/src/date.ts")
	require.NoError(t, err)
	assert.Equal(t, int64(100), f.MTime)
	assert.Equal(t, "abc", f.ContentHash)
	assert.Equal(t, "typescript", f.Language)
	assert.NotEmpty(t, f.SyncedAt)

	syms, err := s.SymbolsByName(ctx, "Formatter")
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "/repo/src/date.ts", syms[0].Path)
	assert.Equal(t, []string{"env"}, syms[0].Capabilities)
	assert.Equal(t, 7, syms[0].Span())

	members, err := s.Members(ctx, syms[0].ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "format", members[0].Name)

	// Members are not top-level names.
	byName, err := s.SymbolsByName(ctx, "format")
	require.NoError(t, err)
	assert.Empty(t, byName)

	all, err := s.SymbolsInFile(ctx, "/repo/src/date.ts")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mtimes, err := s.FileMtimes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"/repo/src/date.ts": 100}, mtimes)
}

func TestDeleteCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFile(t, s, "/repo/src/a.ts")
	seedFile(t, s, "/repo/src/b.ts")

	n, err := s.DeleteFiles(ctx, []string{"/repo/src/a.ts", "/repo/src/missing.ts"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Files)
	assert.Equal(t, 2, st.Symbols)
	assert.Equal(t, 1, st.Imports)
	assert.Equal(t, 1, st.ConfigRows)

	var contents int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM file_contents`).Scan(&contents))
	assert.Equal(t, 1, contents)

	hits, err := s.SearchContent(ctx, "formatDate", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/repo/src/b.ts", hits[0].Path)
}

func TestReplaceFileDropsOldRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFile(t, s, "/repo/src/a.ts")

	_, err := s.ReplaceFile(ctx, &File{Path: "/repo/src/a.ts", MTime: 200})
	require.NoError(t, err)

	syms, err := s.SymbolsInFile(ctx, "/repo/src/a.ts")
	require.NoError(t, err)
	assert.Empty(t, syms)

	hits, err := s.SearchSymbols(ctx, "Formatter", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTouchFile(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFile(t, s, "/repo/src/a.ts")

	require.NoError(t, s.TouchFile(ctx, "/repo/src/a.ts", 555))
	f, err := s.FileByPath(ctx, "/repo/src/a.ts")
	require.NoError(t, err)
	assert.Equal(t, int64(555), f.MTime)

	syms, err := s.SymbolsInFile(ctx, "/repo/src/a.ts")
	require.NoError(t, err)
	assert.Len(t, syms, 2)

	assert.ErrorIs(t, s.TouchFile(ctx, "/repo/none.ts", 1), ErrNotFound)
	_, err = s.FileByPath(ctx, "/repo/none.ts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithTransactionRollback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTransaction(ctx, func(tx *Store) error {
		if _, err := tx.ReplaceFile(ctx, &File{Path: "/repo/x.ts", MTime: 1}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.FileByPath(ctx, "/repo/x.ts")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestImportQueries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFile(t, s, "/repo/src/a.ts")

	id, err := s.ReplaceFile(ctx, &File{Path: "/repo/src/index.ts", MTime: 1})
	require.NoError(t, err)
	require.NoError(t, s.InsertImport(ctx, &ImportEdge{FileID: id, Specifier: "./clock", Names: []string{"*"},
		ResolvedPath: "/repo/src/clock.ts", IsReexport: true}))
	require.NoError(t, s.InsertImport(ctx, &ImportEdge{FileID: id, Specifier: "lodash"}))

	importers, err := s.ImportersOf(ctx, "/repo/src/clock.ts")
	require.NoError(t, err)
	require.Len(t, importers, 2)
	assert.Equal(t, "/repo/src/a.ts", importers[0].Path)
	assert.Equal(t, []string{"now"}, importers[0].Names)
	assert.True(t, importers[0].Imports("now"))
	assert.False(t, importers[0].Imports("later"))
	assert.True(t, importers[1].Imports("later"))

	re, err := s.ReexportersOf(ctx, "/repo/src/clock.ts")
	require.NoError(t, err)
	require.Len(t, re, 1)
	assert.Equal(t, "/repo/src/index.ts", re[0].Path)

	out, err := s.ImportsOf(ctx, "/repo/src/index.ts")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "", out[1].ResolvedPath)
	assert.True(t, out[1].Imports("anything"))

	unresolved, err := s.UnresolvedImports(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "lodash", unresolved[0].Specifier)
}

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFile(t, s, "/repo/src/date-utils.ts")

	syms, err := s.SearchSymbols(ctx, "Formatter", 5)
	require.NoError(t, err)
	require.NotEmpty(t, syms)
	assert.Equal(t, "Formatter", syms[0].Symbol.Name)

	syms, err = s.SearchSymbols(ctx, "form", 5)
	require.NoError(t, err)
	assert.Len(t, syms, 2)

	files, err := s.SearchFiles(ctx, "helpers", 5)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/repo/src/date-utils.ts", files[0].File.Path)

	content, err := s.SearchContent(ctx, "formatDate", 5)
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Contains(t, content[0].Snippet, "formatDate")

	content, err = s.SearchContent(ctx, "formatD", 5)
	require.NoError(t, err)
	assert.Len(t, content, 1)
	content, err = s.SearchContentTerms(ctx, "formatD", 5)
	require.NoError(t, err)
	assert.Empty(t, content)
	content, err = s.SearchContentTerms(ctx, "formatDate", 5)
	require.NoError(t, err)
	assert.Len(t, content, 1)

	none, err := s.SearchSymbols(ctx, `"(*)"`, 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSanitizeFTSQuery(t *testing.T) {
	assert.Equal(t, `"foo"*`, SanitizeFTSQuery("foo"))
	assert.Equal(t, `"foo"* "bar"*`, SanitizeFTSQuery("  foo   bar "))
	assert.Equal(t, `"a""b"*`, SanitizeFTSQuery(`a"b`))
	assert.Equal(t, `"NOT"* "x"*`, SanitizeFTSQuery("NOT x ( )"))
	assert.Equal(t, "", SanitizeFTSQuery(" * - "))
}

func TestConfigEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedFile(t, s, "/repo/.env.example")

	entries, err := s.ConfigEntries(ctx, "TZ", "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "UTC", entries[0].Value)
	assert.Equal(t, "/repo/.env.example", entries[0].Path)

	entries, err = s.ConfigEntries(ctx, "%", "", 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSyncRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.LastSyncRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.RecordSyncRun(ctx, &SyncRun{ID: "r1", Root: "/repo", StartedAt: "2026-01-01T00:00:00Z",
		FinishedAt: "2026-01-01T00:00:01Z", Processed: 3}))
	require.NoError(t, s.RecordSyncRun(ctx, &SyncRun{ID: "r2", Root: "/repo", StartedAt: "2026-01-02T00:00:00Z",
		FinishedAt: "2026-01-02T00:00:01Z", Deleted: 1}))

	last, err := s.LastSyncRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", last.ID)
	assert.Equal(t, 1, last.Deleted)
}

func TestMigratesLegacyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "legacy.db")
	legacy, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = legacy.Exec(`
		CREATE TABLE files (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			mtime INTEGER NOT NULL,
			synced_at TEXT NOT NULL,
			classification TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE symbols (
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
			capabilities TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE imports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file_id INTEGER NOT NULL REFERENCES files(id) ON DELETE CASCADE,
			specifier TEXT NOT NULL,
			names TEXT NOT NULL DEFAULT '',
			resolved_path TEXT,
			is_reexport INTEGER NOT NULL DEFAULT 0
		);
		INSERT INTO files (path, mtime, synced_at, summary) VALUES ('/old/legacy.ts', 7, '2025-01-01T00:00:00Z', 'legacy helpers');
		INSERT INTO symbols (file_id, name, kind, signature) VALUES (1, 'legacyHelper', 'function', 'function legacyHelper()');
	`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	s, err := OpenPath(dbPath)
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	f, err := s.FileByPath(ctx, "/old/legacy.ts")
	require.NoError(t, err)
	assert.Equal(t, "", f.ContentHash)

	hits, err := s.SearchSymbols(ctx, "legacyHelper", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "/old/legacy.ts", hits[0].Symbol.Path)

	files, err := s.SearchFiles(ctx, "legacy", 5)
	require.NoError(t, err)
	assert.Len(t, files, 1)

	// Reopening an up-to-date file is a no-op.
	require.NoError(t, s.Close())
	s2, err := OpenPath(dbPath)
	require.NoError(t, err)
	defer s2.Close()
	hits, err = s2.SearchSymbols(ctx, "legacyHelper", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestStoreName(t *testing.T) {
	assert.Equal(t, "home-u-src-app", ProjectNameFromPath("/home/u/src/app"))
	assert.Equal(t, "home-u-src-app", ProjectNameFromPath("/home/u/src/app/"))
	assert.Equal(t, "root", ProjectNameFromPath("/"))
	assert.Equal(t, "home-u-app", StoreName("/home/u/app", ""))
	assert.Equal(t, "home-u-app@feature_x", StoreName("/home/u/app", "feature_x"))
}

func TestRouterCachesStores(t *testing.T) {
	r, err := NewRouter(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	defer r.CloseAll()
	ctx := context.Background()
	root := t.TempDir()

	a, err := r.ForRoot(ctx, root)
	require.NoError(t, err)
	b, err := r.ForRoot(ctx, root)
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.Len(t, r.Open(), 1)

	got, err := a.Meta(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	r.CloseAll()
	assert.Empty(t, r.Open())
}
