package parser

import (
	"sync"
	"testing"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeusData/codebase-index/internal/lang"
)

func countKind(root *tree_sitter.Node, kind string) int {
	n := 0
	Walk(root, func(node *tree_sitter.Node) bool {
		if node.Kind() == kind {
			n++
		}
		return true
	})
	return n
}

func TestParseTypeScript(t *testing.T) {
	source := []byte(`import { a } from './a';

export interface Shape { area(): number }

export function hello(name: string): string {
	return "hello " + name;
}

export class Square implements Shape {
	constructor(private side: number) {}
	area(): number { return this.side * this.side; }
}
`)
	tree, err := Parse(lang.TypeScript, source)
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	require.NotNil(t, root)
	assert.Equal(t, "program", root.Kind())
	assert.Equal(t, 1, countKind(root, "import_statement"))
	assert.Equal(t, 3, countKind(root, "export_statement"))
	assert.Equal(t, 1, countKind(root, "interface_declaration"))
	assert.Equal(t, 1, countKind(root, "function_declaration"))
	assert.Equal(t, 1, countKind(root, "class_declaration"))
}

func TestParseTSX(t *testing.T) {
	source := []byte(`export const Button = () => <button className="x">ok</button>;
`)
	tree, err := Parse(lang.TSX, source)
	require.NoError(t, err)
	defer tree.Close()

	root := tree.RootNode()
	assert.False(t, root.HasError())
	assert.Equal(t, 1, countKind(root, "jsx_element"))
}

func TestParseJavaScript(t *testing.T) {
	source := []byte(`const x = require('./x');
export default function main() { return x(); }
export * from './y';
`)
	tree, err := Parse(lang.JavaScript, source)
	require.NoError(t, err)
	defer tree.Close()

	assert.Equal(t, 2, countKind(tree.RootNode(), "export_statement"))
}

func TestParseSQL(t *testing.T) {
	source := []byte("CREATE TABLE users (id INT, name TEXT);\nCREATE TABLE orders (id INT);\n")
	tree, err := Parse(lang.SQL, source)
	require.NoError(t, err)
	defer tree.Close()

	assert.Equal(t, 2, countKind(tree.RootNode(), "create_table"))
	assert.Equal(t, 3, countKind(tree.RootNode(), "column_definition"))
}

func TestParseUnsupported(t *testing.T) {
	_, err := Parse(lang.Config, []byte("a: b"))
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = GetLanguage(lang.Config)
	assert.ErrorIs(t, err, ErrUnsupported)
	l, err := GetLanguage(lang.TSX)
	require.NoError(t, err)
	assert.NotNil(t, l)
}

func TestWalkSkipsSubtrees(t *testing.T) {
	source := []byte("function outer() { function inner() {} }\nfunction sibling() {}\n")
	tree, err := Parse(lang.JavaScript, source)
	require.NoError(t, err)
	defer tree.Close()

	var names []string
	Walk(tree.RootNode(), func(node *tree_sitter.Node) bool {
		if node.Kind() != "function_declaration" {
			return true
		}
		names = append(names, NodeText(node.ChildByFieldName("name"), source))
		return false
	})
	assert.Equal(t, []string{"outer", "sibling"}, names)

	// Walking a subtree stays inside it.
	body := tree.RootNode().NamedChild(0).ChildByFieldName("body")
	assert.Equal(t, 1, countKind(body, "function_declaration"))
}

func TestNodeTextAndHelpers(t *testing.T) {
	source := []byte(`export { a as b, c } from "./m";`)
	tree, err := Parse(lang.TypeScript, source)
	require.NoError(t, err)
	defer tree.Close()

	exp := FirstChildOfKind(tree.RootNode(), "export_statement")
	require.NotNil(t, exp)
	src := FirstChildOfKind(exp, "string")
	require.NotNil(t, src)
	assert.Equal(t, `"./m"`, NodeText(src, source))

	clause := FirstChildOfKind(exp, "export_clause")
	require.NotNil(t, clause)
	assert.Len(t, NamedChildren(clause), 2)
	assert.Equal(t, "", NodeText(nil, source))
}

func TestParseConcurrent(t *testing.T) {
	source := []byte("export const v = 1;\n")
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree, err := Parse(lang.TypeScript, source)
			if err != nil {
				errs <- err
				return
			}
			tree.Close()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent parse: %v", err)
	}
}
