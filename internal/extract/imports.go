package extract

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codebase-index/internal/parser"
)

// stringValue returns the unquoted contents of a string literal node.
func (fx *fileExtractor) stringValue(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	if frag := parser.FirstChildOfKind(n, "string_fragment"); frag != nil {
		return fx.text(frag)
	}
	return strings.Trim(fx.text(n), "\"'`")
}

// importStatement records `import ... from "x"`, `import "x"` and
// `import x = require("x")`.
func (fx *fileExtractor) importStatement(n *tree_sitter.Node) {
	src := n.ChildByFieldName("source")
	if src == nil {
		src = parser.FirstChildOfKind(n, "string")
	}
	imp := Import{}
	if req := parser.FirstChildOfKind(n, "import_require_clause"); req != nil {
		src = req.ChildByFieldName("source")
		if src == nil {
			src = parser.FirstChildOfKind(req, "string")
		}
		imp.Specifier = fx.stringValue(src)
		if id := parser.FirstChildOfKind(req, "identifier"); id != nil {
			fx.bindings[fx.text(id)] = binding{specifier: imp.Specifier, importedName: "*", importIdx: len(fx.imports)}
		}
		imp.Names = []string{"*"}
		fx.imports = append(fx.imports, imp)
		return
	}
	if src == nil {
		return
	}
	imp.Specifier = fx.stringValue(src)
	idx := len(fx.imports)

	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "type":
			imp.TypeOnly = true
		case "import_clause":
			imp.Names = fx.importClause(c, imp.Specifier, idx)
		}
	}
	fx.imports = append(fx.imports, imp)
}

// importClause returns the imported names and records local bindings.
// A default import is recorded as "default", the name it has in the
// exporting module.
func (fx *fileExtractor) importClause(clause *tree_sitter.Node, specifier string, idx int) []string {
	var names []string
	for _, c := range parser.NamedChildren(clause) {
		switch c.Kind() {
		case "identifier":
			local := fx.text(c)
			names = append(names, "default")
			fx.bindings[local] = binding{specifier: specifier, importedName: "default", importIdx: idx}
		case "namespace_import":
			names = append(names, "*")
			if id := parser.FirstChildOfKind(c, "identifier"); id != nil {
				fx.bindings[fx.text(id)] = binding{specifier: specifier, importedName: "*", importIdx: idx}
			}
		case "named_imports":
			for _, spec := range parser.NamedChildren(c) {
				if spec.Kind() != "import_specifier" {
					continue
				}
				nameNode := spec.ChildByFieldName("name")
				if nameNode == nil {
					continue
				}
				name := fx.text(nameNode)
				local := name
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					local = fx.text(alias)
				}
				names = append(names, name)
				fx.bindings[local] = binding{specifier: specifier, importedName: name, importIdx: idx}
			}
		}
	}
	return names
}

// callImport records require("x") and import("x") calls.
func (fx *fileExtractor) callImport(call *tree_sitter.Node) {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return
	}
	isRequire := fn.Kind() == "identifier" && fx.text(fn) == "require"
	isDynamic := fn.Kind() == "import"
	if !isRequire && !isDynamic {
		return
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	arg := args.NamedChild(0)
	if arg == nil || arg.Kind() != "string" {
		return
	}
	imp := Import{Specifier: fx.stringValue(arg)}
	if imp.Specifier == "" {
		return
	}
	if isRequire {
		imp.Names = fx.requireNames(call)
	}
	fx.imports = append(fx.imports, imp)
}

// requireNames reads destructured names from `const { a, b } = require("x")`.
func (fx *fileExtractor) requireNames(call *tree_sitter.Node) []string {
	decl := call.Parent()
	if decl == nil || decl.Kind() != "variable_declarator" {
		return nil
	}
	pattern := decl.ChildByFieldName("name")
	if pattern == nil || pattern.Kind() != "object_pattern" {
		return nil
	}
	var names []string
	for _, p := range parser.NamedChildren(pattern) {
		switch p.Kind() {
		case "shorthand_property_identifier_pattern":
			names = append(names, fx.text(p))
		case "pair_pattern":
			if key := p.ChildByFieldName("key"); key != nil {
				names = append(names, fx.text(key))
			}
		}
	}
	return names
}
