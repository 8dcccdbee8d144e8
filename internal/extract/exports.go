package extract

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codebase-index/internal/parser"
)

// exportStatement handles every form of `export ...`.
func (fx *fileExtractor) exportStatement(n *tree_sitter.Node) {
	var (
		isDefault bool
		star      bool
		source    string
		clause    *tree_sitter.Node
		nsExport  *tree_sitter.Node
	)
	for i := uint(0); i < n.ChildCount(); i++ {
		c := n.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "default":
			isDefault = true
		case "*":
			star = true
		case "namespace_export":
			nsExport = c
		case "export_clause":
			clause = c
		case "string":
			source = fx.stringValue(c)
		}
	}

	switch {
	case source != "":
		fx.reexport(n, source, star, nsExport, clause)
		return
	case clause != nil:
		fx.localExportClause(n, clause)
		return
	}

	decl := n.ChildByFieldName("declaration")
	if isDefault {
		fx.defaultExport(n, decl)
		return
	}
	if decl != nil {
		fx.declaration(n, decl, "")
	}
}

// reexport handles `export * from`, `export * as ns from` and
// `export { a, b as c } from`.
func (fx *fileExtractor) reexport(stmt *tree_sitter.Node, source string, star bool, nsExport, clause *tree_sitter.Node) {
	imp := Import{Specifier: source, IsReexport: true}
	switch {
	case nsExport != nil:
		name := fx.text(parser.FirstChildOfKind(nsExport, "identifier", "string"))
		imp.Names = []string{"*"}
		fx.addForward(stmt, name, KindReexport, source, "*")
	case star:
		imp.Names = []string{"*"}
		fx.addForward(stmt, "*", KindReexportAll, source, "*")
	case clause != nil:
		for _, spec := range parser.NamedChildren(clause) {
			if spec.Kind() != "export_specifier" {
				continue
			}
			orig, exported := fx.specifierNames(spec)
			if orig == "" {
				continue
			}
			imp.Names = append(imp.Names, orig)
			fx.addForward(stmt, exported, KindReexport, source, orig)
		}
	}
	fx.imports = append(fx.imports, imp)
}

func (fx *fileExtractor) specifierNames(spec *tree_sitter.Node) (orig, exported string) {
	nameNode := spec.ChildByFieldName("name")
	if nameNode == nil {
		return "", ""
	}
	orig = fx.text(nameNode)
	exported = orig
	if alias := spec.ChildByFieldName("alias"); alias != nil {
		exported = fx.text(alias)
	}
	return orig, exported
}

func (fx *fileExtractor) addForward(stmt *tree_sitter.Node, name string, kind Kind, source, importedName string) {
	e := fx.baseExport(stmt, name, kind)
	e.Signature = collapse(fx.text(stmt))
	e.Source = source
	e.ImportedName = importedName
	fx.exports = append(fx.exports, e)
}

// localExportClause handles `export { a, b as c }` without a source. Names
// bound by an import become re-exports of that import; names bound by a
// local declaration point at the declaration.
func (fx *fileExtractor) localExportClause(stmt, clause *tree_sitter.Node) {
	for _, spec := range parser.NamedChildren(clause) {
		if spec.Kind() != "export_specifier" {
			continue
		}
		orig, exported := fx.specifierNames(spec)
		if orig == "" {
			continue
		}
		if b, ok := fx.bindings[orig]; ok {
			fx.imports[b.importIdx].IsReexport = true
			fx.addForward(stmt, exported, KindReexport, b.specifier, b.importedName)
			continue
		}
		if decl, ok := fx.locals[orig]; ok {
			if fx.declKind(decl) == KindVariable {
				fx.variables(decl, decl, orig, exported)
			} else {
				fx.declaration(decl, decl, exported)
			}
			continue
		}
		e := fx.baseExport(stmt, exported, KindVariable)
		e.Signature = collapse(fx.text(stmt))
		fx.exports = append(fx.exports, e)
	}
}

// defaultExport handles `export default <declaration|expression>`.
func (fx *fileExtractor) defaultExport(stmt, decl *tree_sitter.Node) {
	if decl == nil {
		decl = stmt.ChildByFieldName("value")
	}
	name := "default"
	target := stmt
	if decl != nil {
		if nameNode := decl.ChildByFieldName("name"); nameNode != nil {
			name = fx.text(nameNode)
		} else if decl.Kind() == "identifier" {
			name = fx.text(decl)
			if local, ok := fx.locals[name]; ok {
				target = local
			}
		}
	}
	e := fx.baseExport(target, name, KindDefault)
	if decl != nil && target == stmt {
		e.Signature = "export default " + fx.signature(decl)
		e.Members = fx.members(decl)
	} else {
		e.Signature = fx.signature(target)
	}
	e.Capabilities = detectCapabilities(fx.text(target))
	e.Classification = classifySymbol(fx.path, e)
	fx.exports = append(fx.exports, e)
}

// declaration records the exported symbols introduced by decl. spanNode is
// the node whose span and doc comment the record carries (the export
// statement for inline exports). A non-empty alias overrides the name.
func (fx *fileExtractor) declaration(spanNode, decl *tree_sitter.Node, alias string) {
	if decl.Kind() == "ambient_declaration" {
		for _, inner := range parser.NamedChildren(decl) {
			if fx.declKind(inner) != "" {
				fx.declaration(spanNode, inner, alias)
			}
		}
		return
	}
	kind := fx.declKind(decl)
	if kind == "" {
		return
	}
	if kind == KindVariable {
		fx.variables(spanNode, decl, "", alias)
		return
	}
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := fx.text(nameNode)
	if alias != "" {
		name = alias
	}
	e := fx.baseExport(spanNode, name, kind)
	e.Signature = fx.signature(decl)
	e.Members = fx.members(decl)
	e.Capabilities = detectCapabilities(fx.text(spanNode))
	e.Classification = classifySymbol(fx.path, e)
	fx.exports = append(fx.exports, e)
}

// variables emits one export per declarator of a lexical/variable declaration.
// A non-empty only restricts output to that bound name.
func (fx *fileExtractor) variables(spanNode, decl *tree_sitter.Node, only, alias string) {
	keyword := ""
	if kw := decl.Child(0); kw != nil && !kw.IsNamed() {
		keyword = fx.text(kw) + " "
	}
	for _, d := range parser.NamedChildren(decl) {
		if d.Kind() != "variable_declarator" {
			continue
		}
		nameNode := d.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		var names []string
		if nameNode.Kind() == "identifier" {
			names = []string{fx.text(nameNode)}
		} else {
			names = patternNames(nameNode, fx.src)
		}
		for _, name := range names {
			if only != "" && name != only {
				continue
			}
			if alias != "" {
				name = alias
			}
			e := fx.baseExport(spanNode, name, KindVariable)
			e.Signature = keyword + fx.signature(d)
			e.Capabilities = detectCapabilities(fx.text(d))
			e.Classification = classifySymbol(fx.path, e)
			fx.exports = append(fx.exports, e)
		}
	}
}

// patternNames collects bound identifiers from a destructuring pattern.
func patternNames(n *tree_sitter.Node, src []byte) []string {
	var names []string
	parser.Walk(n, func(c *tree_sitter.Node) bool {
		switch c.Kind() {
		case "shorthand_property_identifier_pattern", "identifier":
			names = append(names, parser.NodeText(c, src))
			return false
		case "pair_pattern":
			if v := c.ChildByFieldName("value"); v != nil {
				names = append(names, patternNames(v, src)...)
			}
			return false
		}
		return true
	})
	return names
}

func (fx *fileExtractor) baseExport(n *tree_sitter.Node, name string, kind Kind) Export {
	return Export{
		Name:      name,
		Kind:      kind,
		Doc:       fx.docFor(n),
		StartLine: rowToLine(n.StartPosition().Row),
		EndLine:   rowToLine(n.EndPosition().Row),
		StartByte: int(n.StartByte()),
		EndByte:   int(n.EndByte()),
	}
}

// memberBodies are the node kinds holding class, interface and enum members.
var memberBodies = []string{"class_body", "interface_body", "object_type", "enum_body"}

// members returns member records for a class, interface or enum declaration.
func (fx *fileExtractor) members(decl *tree_sitter.Node) []Export {
	body := decl.ChildByFieldName("body")
	if body == nil {
		body = parser.FirstChildOfKind(decl, memberBodies...)
	}
	if body == nil || !contains(memberBodies, body.Kind()) {
		return nil
	}
	var out []Export
	for _, m := range parser.NamedChildren(body) {
		var nameNode *tree_sitter.Node
		switch {
		case contains(fx.spec.MemberNodeTypes, m.Kind()):
			nameNode = m.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = m.ChildByFieldName("property")
			}
		case m.Kind() == "enum_assignment":
			nameNode = m.ChildByFieldName("name")
			if nameNode == nil {
				nameNode = m.NamedChild(0)
			}
		case m.Kind() == "property_identifier" && body.Kind() == "enum_body":
			nameNode = m
		default:
			continue
		}
		if nameNode == nil {
			continue
		}
		e := fx.baseExport(m, fx.text(nameNode), KindMember)
		e.Signature = fx.signature(m)
		e.Capabilities = detectCapabilities(fx.text(m))
		e.Classification = classifySymbol(fx.path, e)
		out = append(out, e)
	}
	return out
}
