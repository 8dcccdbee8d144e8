package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeusData/codebase-index/internal/pipeline"
	"github.com/DeusData/codebase-index/internal/store"
)

// indexRepo writes files under a temp root, syncs them and returns an
// Engine over the result plus the root.
func indexRepo(t *testing.T, files map[string]string) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	s, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	res, err := pipeline.New(s, root).Sync(context.Background())
	require.NoError(t, err)
	require.Zero(t, res.Failed)
	return New(s), root
}

func paths(root string, deps []*Dependent) []string {
	var out []string
	for _, d := range deps {
		rel, _ := filepath.Rel(root, d.Path)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestDependenciesAndDependents(t *testing.T) {
	e, root := indexRepo(t, map[string]string{
		"src/util.ts": "export const one = 1;\n",
		"src/a.ts":    "import { one } from './util';\nimport React from 'react';\nexport const two = one + 1;\n",
	})
	ctx := context.Background()
	util := filepath.Join(root, "src", "util.ts")
	a := filepath.Join(root, "src", "a.ts")

	deps, err := e.Dependencies(ctx, a)
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, util, deps[0].ResolvedPath)
	assert.Equal(t, "react", deps[1].Specifier)
	assert.Empty(t, deps[1].ResolvedPath)

	dependents, err := e.Dependents(ctx, util)
	require.NoError(t, err)
	require.Len(t, dependents, 1)
	assert.Equal(t, a, dependents[0].Path)

	none, err := e.Dependents(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func impactRepo(t *testing.T) (*Engine, string) {
	return indexRepo(t, map[string]string{
		"core.ts":  "export function computeTotal(n: number) {\n\treturn n + 1;\n}\nexport const unrelated = 0;\n",
		"b.ts":     "import { computeTotal } from './core';\nexport const b = computeTotal(1);\n",
		"c.ts":     "import * as mod from './b';\nexport const c = mod.b;\n",
		"other.ts": "import { unrelated } from './core';\nexport const o = unrelated;\n",
	})
}

func TestImpactDepth(t *testing.T) {
	e, root := impactRepo(t)
	ctx := context.Background()

	res, err := e.Impact(ctx, "computeTotal", "", 2)
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, filepath.Join(root, "core.ts"), res.Symbol.Path)
	assert.Equal(t, []string{"b.ts", "c.ts"}, paths(root, res.Dependents))
	assert.Equal(t, 1, res.Dependents[0].Depth)
	assert.Equal(t, RiskCritical, res.Dependents[0].Risk)
	assert.Equal(t, 2, res.Dependents[1].Depth)
	assert.Equal(t, RiskHigh, res.Dependents[1].Risk)
	assert.Equal(t, []string{
		filepath.Join(root, "core.ts"),
		filepath.Join(root, "b.ts"),
		filepath.Join(root, "c.ts"),
	}, res.Dependents[1].Via)
	assert.Equal(t, ImpactSummary{Critical: 1, High: 1, Total: 2}, res.Summary)

	res, err = e.Impact(ctx, "computeTotal", "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.ts"}, paths(root, res.Dependents))
}

func TestImpactDefaultDepth(t *testing.T) {
	e, _ := impactRepo(t)
	res, err := e.Impact(context.Background(), "computeTotal", "", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultImpactDepth, res.Depth)
	assert.Len(t, res.Dependents, 2)
}

func TestImpactCycle(t *testing.T) {
	e, root := indexRepo(t, map[string]string{
		"a.ts": "import { y } from './b';\nexport function x() {\n\treturn y();\n}\n",
		"b.ts": "import { x } from './a';\nexport function y() {\n\treturn x();\n}\n",
	})
	res, err := e.Impact(context.Background(), "x", "", 5)
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, []string{"b.ts"}, paths(root, res.Dependents))
}

func TestImpactNotFoundAndAmbiguous(t *testing.T) {
	e, _ := indexRepo(t, map[string]string{
		"a.ts": "export function run() {}\n",
		"b.ts": "export function run() {}\n",
	})
	ctx := context.Background()

	res, err := e.Impact(ctx, "missing", "", 0)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
	assert.Empty(t, res.Dependents)

	res, err = e.Impact(ctx, "run", "", 0)
	require.NoError(t, err)
	assert.Equal(t, StatusAmbiguous, res.Status)
	assert.Len(t, res.Candidates, 2)
}

func TestImpactOfDefaultExport(t *testing.T) {
	e, root := indexRepo(t, map[string]string{
		"core.ts":        "export default function compute() {\n\treturn 1;\n}\n",
		"b.ts":           "import calc from './core';\nexport const b = calc();\n",
		"ButtonImpl.tsx": "export default function ButtonImpl() {\n\treturn null;\n}\n",
		"index.ts":       "export { default as Button } from './ButtonImpl';\n",
		"app.ts":         "import { Button } from './index';\nexport const app = Button();\n",
	})
	ctx := context.Background()

	res, err := e.Impact(ctx, "compute", "", 2)
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, []string{"b.ts"}, paths(root, res.Dependents))

	res, err = e.Impact(ctx, "Button", "", 2)
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, filepath.Join(root, "ButtonImpl.tsx"), res.Symbol.Path)
	assert.Equal(t, []string{"index.ts", "app.ts"}, paths(root, res.Dependents))
	assert.Equal(t, RiskCritical, res.Dependents[0].Risk)
}

func TestHopToRisk(t *testing.T) {
	assert.Equal(t, RiskCritical, HopToRisk(1))
	assert.Equal(t, RiskHigh, HopToRisk(2))
	assert.Equal(t, RiskMedium, HopToRisk(3))
	assert.Equal(t, RiskLow, HopToRisk(7))
}

func barrelRepo(t *testing.T) (*Engine, string) {
	return indexRepo(t, map[string]string{
		"src/core.ts":  "export function Widget() {\n\treturn 42;\n}\n",
		"src/index.ts": "export { Widget } from './core';\n",
		"src/star.ts":  "export * from './core';\n",
		"src/alias.ts": "export { Widget as Gadget } from './index';\n",
	})
}

func TestLookupDebarrels(t *testing.T) {
	e, root := barrelRepo(t)
	ctx := context.Background()
	core := filepath.Join(root, "src", "core.ts")
	body := "export function Widget() {\n\treturn 42;\n}"

	res, err := e.Lookup(ctx, "Widget", "")
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, core, res.Symbol.Path)
	assert.Equal(t, "function", res.Symbol.Kind)
	assert.Equal(t, body, res.Source)

	res, err = e.Lookup(ctx, "Widget", filepath.Join(root, "src", "index.ts"))
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, core, res.Symbol.Path)
	assert.Equal(t, []string{filepath.Join(root, "src", "index.ts")}, res.Via)

	res, err = e.Lookup(ctx, "Widget", filepath.Join(root, "src", "star.ts"))
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, core, res.Symbol.Path)

	// Gadget only exists as a renamed forward of a forward.
	res, err = e.Lookup(ctx, "Gadget", "")
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, core, res.Symbol.Path)
	assert.Equal(t, body, res.Source)
	assert.Equal(t, []string{
		filepath.Join(root, "src", "alias.ts"),
		filepath.Join(root, "src", "index.ts"),
	}, res.Via)
}

func TestLookupDefaultExportThroughBarrel(t *testing.T) {
	e, root := indexRepo(t, map[string]string{
		"ButtonImpl.tsx": "export default function ButtonImpl() {\n\treturn null;\n}\n",
		"index.ts":       "export { default as Button } from './ButtonImpl';\n",
		"widget.ts":      "export default function Widget() {\n\treturn 1;\n}\n",
		"widgets.ts":     "import W from './widget';\nexport { W };\n",
		"Card.tsx":       "export default function Card() {\n\treturn null;\n}\n",
		"cards.ts":       "export { default as Card } from './Card';\n",
	})
	ctx := context.Background()
	abs := func(rel string) string { return filepath.Join(root, rel) }

	res, err := e.Lookup(ctx, "Button", "")
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, abs("ButtonImpl.tsx"), res.Symbol.Path)
	assert.Equal(t, "default", res.Symbol.Kind)
	assert.Equal(t, "ButtonImpl", res.Symbol.Name)
	assert.Equal(t, []string{abs("index.ts")}, res.Via)
	assert.Contains(t, res.Source, "function ButtonImpl()")

	res, err = e.Lookup(ctx, "W", "")
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, abs("widget.ts"), res.Symbol.Path)
	assert.Equal(t, []string{abs("widgets.ts")}, res.Via)

	res, err = e.Lookup(ctx, "Card", abs("cards.ts"))
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, abs("Card.tsx"), res.Symbol.Path)
	assert.Equal(t, "default", res.Symbol.Kind)
}

func TestLookupUnresolvedReexportReturnsRow(t *testing.T) {
	e, root := indexRepo(t, map[string]string{
		"index.ts": "export { Thing } from 'some-package';\n",
	})
	res, err := e.Lookup(context.Background(), "Thing", "")
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, filepath.Join(root, "index.ts"), res.Symbol.Path)
	assert.Equal(t, "reexport", res.Symbol.Kind)
}

func TestLookupBarrelCycle(t *testing.T) {
	e, root := indexRepo(t, map[string]string{
		"a.ts": "export * from './b';\n",
		"b.ts": "export * from './a';\n",
	})
	res, err := e.Lookup(context.Background(), "Ghost", filepath.Join(root, "a.ts"))
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestLookupAmbiguity(t *testing.T) {
	e, root := indexRepo(t, map[string]string{
		"jobs/a.ts": "export function run() {\n\treturn 1;\n}\n",
		"jobs/b.ts": "export function run() {}\n",
	})
	ctx := context.Background()

	res, err := e.Lookup(ctx, "run", "")
	require.NoError(t, err)
	assert.Equal(t, StatusAmbiguous, res.Status)
	assert.Nil(t, res.Symbol)
	require.Len(t, res.Candidates, 2)
	// Longer body ranks first.
	assert.Equal(t, filepath.Join(root, "jobs", "a.ts"), res.Candidates[0].Path)

	res, err = e.Lookup(ctx, "run", filepath.Join(root, "jobs", "b.ts"))
	require.NoError(t, err)
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, filepath.Join(root, "jobs", "b.ts"), res.Symbol.Path)

	res, err = e.Lookup(ctx, "nothing", "")
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestUsages(t *testing.T) {
	e, root := indexRepo(t, map[string]string{
		"core.ts":   "export function computeTotal(n: number) {\n\treturn n;\n}\n",
		"index.ts":  "export { computeTotal } from './core';\n",
		"app.ts":    "import { computeTotal } from './index';\n\nconsole.log(computeTotal(2));\n",
		"direct.ts": "import { computeTotal } from './core';\nexport const d = computeTotal(3);\n",
		"notes.ts":  "// computeTotal used to live here\nexport const legacy = 1;\n",
	})
	abs := func(rel string) string { return filepath.Join(root, rel) }

	rep, err := e.Usages(context.Background(), "computeTotal", "")
	require.NoError(t, err)
	require.Equal(t, StatusFound, rep.Status)
	assert.Equal(t, abs("core.ts"), rep.Symbol.Path)
	assert.Equal(t, []string{abs("index.ts")}, rep.Proxies)

	require.Len(t, rep.Usages, 2)
	assert.Equal(t, abs("app.ts"), rep.Usages[0].Path)
	assert.Equal(t, abs("index.ts"), rep.Usages[0].From)
	assert.Equal(t, 1, rep.Usages[0].Line)
	assert.Contains(t, rep.Usages[0].Snippet, "console.log(computeTotal(2));")
	assert.Equal(t, abs("direct.ts"), rep.Usages[1].Path)
	assert.Equal(t, abs("core.ts"), rep.Usages[1].From)

	require.Len(t, rep.Mentions, 1)
	assert.Equal(t, abs("notes.ts"), rep.Mentions[0].Path)
	assert.Equal(t, ConfidenceLow, rep.Mentions[0].Confidence)
}

func TestUsagesOfDefaultExport(t *testing.T) {
	e, root := indexRepo(t, map[string]string{
		"core.ts": "export default function compute() {\n\treturn 1;\n}\n",
		"b.ts":    "import calc from './core';\nexport const b = calc();\n",
	})
	rep, err := e.Usages(context.Background(), "compute", "")
	require.NoError(t, err)
	require.Equal(t, StatusFound, rep.Status)
	require.Len(t, rep.Usages, 1)
	assert.Equal(t, filepath.Join(root, "b.ts"), rep.Usages[0].Path)
	assert.Equal(t, []string{"default"}, rep.Usages[0].Names)
	assert.Equal(t, 1, rep.Usages[0].Line)
	assert.Empty(t, rep.Mentions)
}

func TestUsagesMentionsMatchWholeNames(t *testing.T) {
	files := map[string]string{
		"core.ts":   "export function run() {\n\treturn 1;\n}\n",
		"runner.ts": "export const runner = 1;\nexport const run_id = runner;\n",
		"notes.ts":  "// remember to run the migration first\nexport const n = 1;\n",
	}
	for i := range 60 {
		files[fmt.Sprintf("users/u%02d.ts", i)] = "import { run } from '../core';\nrun();\nrun();\n"
	}
	e, root := indexRepo(t, files)

	rep, err := e.Usages(context.Background(), "run", "")
	require.NoError(t, err)
	require.Equal(t, StatusFound, rep.Status)
	assert.Len(t, rep.Usages, 60)
	require.Len(t, rep.Mentions, 1)
	assert.Equal(t, filepath.Join(root, "notes.ts"), rep.Mentions[0].Path)
}

func TestFirstMention(t *testing.T) {
	text := "a\nb\nc\nfoo()\nd\ne\nf"
	foo := identPattern("foo")
	line, snip := firstMention(text, foo, 2)
	assert.Equal(t, 4, line)
	assert.Equal(t, "b\nc\nfoo()\nd\ne", snip)

	line, snip = firstMention("foo\nbar", foo, 2)
	assert.Equal(t, 1, line)
	assert.Equal(t, "foo\nbar", snip)

	line, _ = firstMention("food\nx.foo = 1", foo, 2)
	assert.Equal(t, 2, line)

	line, snip = firstMention("nothing", foo, 2)
	assert.Zero(t, line)
	assert.Empty(t, snip)
}
