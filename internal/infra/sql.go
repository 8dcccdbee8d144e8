package infra

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codebase-index/internal/lang"
	"github.com/DeusData/codebase-index/internal/parser"
)

// extractSQL records one entry per CREATE TABLE statement: the table name
// and its column names in declaration order. Table constraints are not
// columns and are left out.
func extractSQL(content []byte) (*Result, error) {
	tree, err := parser.Parse(lang.SQL, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var entries []Entry
	parser.Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		if n.Kind() != "create_table" {
			return true
		}
		if name := tableName(n, content); name != "" {
			entries = append(entries, Entry{
				Key:   name,
				Value: strings.Join(tableColumns(n, content), ","),
				Kind:  KindSQLTable,
			})
		}
		return false
	})
	return &Result{
		Entries: entries,
		Summary: fmt.Sprintf("SQL schema with %d tables", len(entries)),
	}, nil
}

func tableName(table *tree_sitter.Node, source []byte) string {
	ref := parser.FirstChildOfKind(table, "object_reference")
	if ref == nil {
		return ""
	}
	if name := ref.ChildByFieldName("name"); name != nil {
		return unquoteIdent(parser.NodeText(name, source))
	}
	return unquoteIdent(parser.NodeText(ref, source))
}

func tableColumns(table *tree_sitter.Node, source []byte) []string {
	var cols []string
	for _, def := range parser.NamedChildren(parser.FirstChildOfKind(table, "column_definitions")) {
		if def.Kind() != "column_definition" {
			continue
		}
		name := def.ChildByFieldName("name")
		if name == nil {
			name = def.NamedChild(0)
		}
		if col := unquoteIdent(parser.NodeText(name, source)); col != "" {
			cols = append(cols, col)
		}
	}
	return cols
}

// unquoteIdent strips ANSI, MySQL and T-SQL identifier quoting.
func unquoteIdent(s string) string {
	return strings.Trim(s, "\"`[]")
}
