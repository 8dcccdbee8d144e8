// Package parser owns the tree-sitter grammars and keeps a pool of ready
// parsers for each one.
package parser

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"unsafe"

	tree_sitter_sql "github.com/DerekStride/tree-sitter-sql/bindings/go"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/DeusData/codebase-index/internal/lang"
)

// ErrUnsupported is returned for a language with no grammar.
var ErrUnsupported = errors.New("no grammar for language")

// grammar pairs a loaded language with the parsers configured for it.
type grammar struct {
	lang    *tree_sitter.Language
	parsers sync.Pool
}

func newGrammar(ptr unsafe.Pointer) *grammar {
	g := &grammar{lang: tree_sitter.NewLanguage(ptr)}
	g.parsers.New = func() any {
		p := tree_sitter.NewParser()
		if err := p.SetLanguage(g.lang); err != nil {
			panic(fmt.Sprintf("parser: incompatible grammar: %v", err))
		}
		return p
	}
	return g
}

var grammars = sync.OnceValue(func() map[lang.Language]*grammar {
	return map[lang.Language]*grammar{
		lang.JavaScript: newGrammar(tree_sitter_javascript.Language()),
		lang.TypeScript: newGrammar(tree_sitter_typescript.LanguageTypescript()),
		lang.TSX:        newGrammar(tree_sitter_typescript.LanguageTSX()),
		lang.SQL:        newGrammar(tree_sitter_sql.Language()),
	}
})

func grammarFor(l lang.Language) (*grammar, error) {
	g, ok := grammars()[l]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnsupported, l)
	}
	return g, nil
}

// GetLanguage returns the tree-sitter Language for l.
func GetLanguage(l lang.Language) (*tree_sitter.Language, error) {
	g, err := grammarFor(l)
	if err != nil {
		return nil, err
	}
	return g.lang, nil
}

// Parse parses source with the grammar for l. The caller must Close the tree.
func Parse(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	g, err := grammarFor(l)
	if err != nil {
		return nil, err
	}
	p := g.parsers.Get().(*tree_sitter.Parser)
	defer g.parsers.Put(p)

	tree := p.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse %s: no tree", l)
	}
	return tree, nil
}

// WalkFunc visits one node. Returning false skips the node's subtree.
type WalkFunc func(node *tree_sitter.Node) bool

// Walk visits node and its descendants in document order.
func Walk(node *tree_sitter.Node, fn WalkFunc) {
	if node == nil {
		return
	}
	c := node.Walk()
	defer c.Close()
	for {
		if fn(c.Node()) && c.GotoFirstChild() {
			continue
		}
		// The cursor is rooted at node, so it never climbs past it.
		for !c.GotoNextSibling() {
			if !c.GotoParent() {
				return
			}
		}
	}
}

// NodeText slices the source covered by node; nil yields "".
func NodeText(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

func NamedChildren(node *tree_sitter.Node) []*tree_sitter.Node {
	if node == nil {
		return nil
	}
	n := node.NamedChildCount()
	out := make([]*tree_sitter.Node, 0, n)
	for i := range n {
		if c := node.NamedChild(i); c != nil {
			out = append(out, c)
		}
	}
	return out
}

// FirstChildOfKind returns the first direct child whose kind is any of kinds.
func FirstChildOfKind(node *tree_sitter.Node, kinds ...string) *tree_sitter.Node {
	if node == nil {
		return nil
	}
	for i := range node.ChildCount() {
		c := node.Child(i)
		if c != nil && slices.Contains(kinds, c.Kind()) {
			return c
		}
	}
	return nil
}
