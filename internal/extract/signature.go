package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codebase-index/internal/parser"
)

// maxSignature bounds stored signature text.
const maxSignature = 300

// maxInlineValue is the longest initializer kept verbatim in a variable signature.
const maxInlineValue = 80

// collapse normalizes whitespace and truncates to maxSignature bytes.
func collapse(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxSignature {
		s = s[:maxSignature] + "…"
	}
	return s
}

// signature returns the declaration text of n with any implementation body
// removed.
func (fx *fileExtractor) signature(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind() {
	case "lexical_declaration", "variable_declaration":
		keyword := ""
		if kw := n.Child(0); kw != nil && !kw.IsNamed() {
			keyword = fx.text(kw) + " "
		}
		if d := parser.FirstChildOfKind(n, "variable_declarator"); d != nil {
			return keyword + fx.signature(d)
		}
	case "variable_declarator":
		return fx.declaratorSignature(n)
	case "type_alias_declaration":
		return collapse(strings.TrimSuffix(strings.TrimSpace(fx.text(n)), ";"))
	}
	if body := n.ChildByFieldName("body"); body != nil {
		return fx.upTo(n, body)
	}
	if body := parser.FirstChildOfKind(n, memberBodies...); body != nil {
		return fx.upTo(n, body)
	}
	return collapse(strings.TrimSuffix(strings.TrimSpace(fx.text(n)), ";"))
}

// upTo returns the text of n from its start up to the start of body.
func (fx *fileExtractor) upTo(n, body *tree_sitter.Node) string {
	start, end := n.StartByte(), body.StartByte()
	if end < start {
		return ""
	}
	return collapse(string(fx.src[start:end]))
}

func (fx *fileExtractor) declaratorSignature(d *tree_sitter.Node) string {
	nameNode := d.ChildByFieldName("name")
	head := fx.text(nameNode)
	if t := d.ChildByFieldName("type"); t != nil {
		head += fx.text(t)
	}
	value := d.ChildByFieldName("value")
	if value == nil {
		return collapse(head)
	}
	switch value.Kind() {
	case "arrow_function", "function_expression", "function", "generator_function", "class":
		return collapse(head + " = " + fx.signature(value))
	}
	if v := fx.text(value); len(v) <= maxInlineValue {
		return collapse(head + " = " + v)
	}
	return collapse(head)
}
