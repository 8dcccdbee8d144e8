package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files (slash paths relative to root) with the given content.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestResolveRelative(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/a.ts":         "",
		"src/util.ts":      "",
		"src/lib/index.ts": "",
		"src/b.ts":         "",
		"src/data.json":    "{}",
	})
	importer := filepath.Join(root, "src", "a.ts")
	s := NewSession()

	cases := map[string]string{
		"./util":      "src/util.ts",
		"./lib":       "src/lib/index.ts",
		"./lib/":      "src/lib/index.ts",
		"./b.js":      "src/b.ts",
		"./data.json": "src/data.json",
		"../src/util": "src/util.ts",
	}
	for spec, want := range cases {
		got, ok := s.Resolve(spec, importer, root)
		require.True(t, ok, spec)
		assert.Equal(t, filepath.Join(root, filepath.FromSlash(want)), got, spec)
	}

	_, ok := s.Resolve("./missing", importer, root)
	assert.False(t, ok)
}

func TestResolveAliasPattern(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json": `{
			// project config
			"compilerOptions": {
				"baseUrl": ".",
				"paths": {
					"@app/*": ["packages/*/src"],
					"@app/core/testing": ["test/core-fixtures.ts"],
				},
			},
		}`,
		"packages/core/src/index.ts": "",
		"test/core-fixtures.ts":      "",
		"lib/helpers.ts":             "",
		"apps/web/main.ts":           "",
	})
	importer := filepath.Join(root, "apps", "web", "main.ts")
	s := NewSession()

	got, ok := s.Resolve("@app/core", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "packages", "core", "src", "index.ts"), got)

	got, ok = s.Resolve("@app/core/testing", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "test", "core-fixtures.ts"), got)

	got, ok = s.Resolve("lib/helpers", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "lib", "helpers.ts"), got)
}

func TestResolvePathsWithoutBaseURL(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"web/jsconfig.json":          `{"compilerOptions": {"paths": {"~/*": ["./src/*"]}}}`,
		"web/src/components/Nav.jsx": "",
		"web/src/pages/home.js":      "",
	})
	s := NewSession()
	got, ok := s.Resolve("~/components/Nav", filepath.Join(root, "web", "src", "pages", "home.js"), root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "web", "src", "components", "Nav.jsx"), got)
}

func TestResolveExtendsChain(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.base.json": `{"compilerOptions": {"baseUrl": ".", "paths": {"#shared/*": ["shared/*"]}}}`,
		"app/tsconfig.json":  `{"extends": "../tsconfig.base", "compilerOptions": {"strict": true}}`,
		"shared/log.ts":      "",
		"app/main.ts":        "",
	})
	s := NewSession()
	got, ok := s.Resolve("#shared/log", filepath.Join(root, "app", "main.ts"), root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "shared", "log.ts"), got)
}

func TestResolveExtendsCycleDegrades(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json": `{"extends": "./other.json", "compilerOptions": {"baseUrl": "."}}`,
		"other.json":    `{"extends": "./tsconfig.json"}`,
		"src/a.ts":      "",
		"src/b.ts":      "",
	})
	s := NewSession()
	importer := filepath.Join(root, "src", "a.ts")

	_, ok := s.Resolve("src/b", importer, root)
	assert.False(t, ok)
	got, ok := s.Resolve("./b", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "src", "b.ts"), got)
}

func TestResolveExternal(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/a.ts": ""})
	s := NewSession()

	_, ok := s.Resolve("left-pad", filepath.Join(root, "src", "a.ts"), root)
	assert.False(t, ok)
}

func TestResolveWorkspacePackages(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"package.json":                    `{"name": "mono", "workspaces": ["packages/*", "!packages/legacy"]}`,
		"packages/ui/package.json":        `{"name": "@acme/ui", "main": "dist/index.js"}`,
		"packages/ui/dist/index.js":       "",
		"packages/ui/src/index.ts":        "",
		"packages/ui/src/button.tsx":      "",
		"packages/legacy/package.json":    `{"name": "legacy"}`,
		"packages/legacy/index.js":        "",
		"packages/api/package.json":       `{"name": "api", "module": "build/api.mjs"}`,
		"packages/api/build/api.mjs":      "",
		"apps/site/src/main.ts":           "",
		"packages/ui/node_modules/x/a.ts": "",
	})
	importer := filepath.Join(root, "apps", "site", "src", "main.ts")
	s := NewSession()

	got, ok := s.Resolve("@acme/ui", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "packages", "ui", "src", "index.ts"), got)

	got, ok = s.Resolve("@acme/ui/button", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "packages", "ui", "src", "button.tsx"), got)

	got, ok = s.Resolve("api", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "packages", "api", "build", "api.mjs"), got)

	_, ok = s.Resolve("legacy", importer, root)
	assert.False(t, ok)
}

func TestResolvePnpmWorkspace(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"pnpm-workspace.yaml":       "packages:\n  - 'libs/*'\n",
		"libs/log/package.json":     `{"name": "log-lib", "main": "lib/main.js"}`,
		"libs/log/lib/main.js":      "",
		"services/worker/index.mjs": "",
	})
	s := NewSession()
	got, ok := s.Resolve("log-lib", filepath.Join(root, "services", "worker", "index.mjs"), root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "libs", "log", "lib", "main.js"), got)
}

func TestResolveLocalFileDependency(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app/package.json": `{"name": "app", "dependencies": {"shared": "file:../shared", "react": "^18.0.0"}}`,
		"app/src/main.ts":  "",
		"shared/index.js":  "",
		"shared/format.ts": "",
	})
	importer := filepath.Join(root, "app", "src", "main.ts")
	s := NewSession()

	got, ok := s.Resolve("shared", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "shared", "index.js"), got)

	got, ok = s.Resolve("shared/format", importer, root)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "shared", "format.ts"), got)

	_, ok = s.Resolve("react", importer, root)
	assert.False(t, ok)
}

func TestSessionCachesContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"tsconfig.json": `{"compilerOptions": {"paths": {"@/*": ["src/*"]}}}`,
		"src/x.ts":      "",
		"src/y.ts":      "",
	})
	importer := filepath.Join(root, "src", "x.ts")
	s := NewSession()

	_, ok := s.Resolve("@/y", importer, root)
	require.True(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(root, "tsconfig.json"), []byte(`{}`), 0o644))
	_, ok = s.Resolve("@/y", importer, root)
	assert.True(t, ok, "context is cached for the session")

	_, ok = NewSession().Resolve("@/y", importer, root)
	assert.False(t, ok, "a fresh session reads the new config")
}

func TestDiagnose(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"web/tsconfig.json": `{"compilerOptions": {"baseUrl": ".", "paths": {"@app/*": ["modules/*"]}}}`,
		"web/modules/a.ts":  "",
		"web/main.ts":       "",
		"cli/run.ts":        "",
	})
	s := NewSession()
	webImporter := filepath.Join(root, "web", "main.ts")
	cliImporter := filepath.Join(root, "cli", "run.ts")

	d := s.Diagnose("@app/a", webImporter, root)
	assert.Equal(t, ReasonResolved, d.Reason)
	assert.Equal(t, filepath.Join(root, "web", "modules", "a.ts"), d.Resolved)

	d = s.Diagnose("./nope", webImporter, root)
	assert.Equal(t, ReasonFileMissing, d.Reason)

	d = s.Diagnose("@app/missing", webImporter, root)
	assert.Equal(t, ReasonAliasTargetMissing, d.Reason)
	assert.Equal(t, "@app/*", d.Alias)
	assert.Equal(t, filepath.Join(root, "web", "tsconfig.json"), d.Config)

	d = s.Diagnose("~/utils", cliImporter, root)
	assert.Equal(t, ReasonNoProjectConfig, d.Reason)

	d = s.Diagnose("react", cliImporter, root)
	assert.Equal(t, ReasonExternalPackage, d.Reason)

	d = s.Diagnose("node:fs", webImporter, root)
	assert.Equal(t, ReasonExternalPackage, d.Reason)
}

func TestSplitPackage(t *testing.T) {
	cases := []struct{ spec, name, sub string }{
		{"react", "react", ""},
		{"lodash/fp/get", "lodash", "fp/get"},
		{"@acme/ui", "@acme/ui", ""},
		{"@acme/ui/button/icon", "@acme/ui", "button/icon"},
		{"@broken", "", ""},
	}
	for _, tc := range cases {
		name, sub := splitPackage(tc.spec)
		assert.Equal(t, tc.name, name, tc.spec)
		assert.Equal(t, tc.sub, sub, tc.spec)
	}
}

func TestAliasMatch(t *testing.T) {
	a := newAlias("@app/*/impl", nil)
	capture, ok := a.match("@app/core/impl")
	require.True(t, ok)
	assert.Equal(t, "core", capture)

	_, ok = a.match("@app/core")
	assert.False(t, ok)

	exact := newAlias("config", nil)
	_, ok = exact.match("config")
	assert.True(t, ok)
	_, ok = exact.match("config/x")
	assert.False(t, ok)
}
