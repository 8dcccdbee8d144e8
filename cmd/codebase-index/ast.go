package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codebase-index/internal/lang"
	"github.com/DeusData/codebase-index/internal/parser"
)

func astCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "ast <file>",
		Short:  "Print the tree-sitter syntax tree of a source file",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, ok := lang.ForPath(args[0])
			if !ok {
				return fmt.Errorf("%s is not a TypeScript or JavaScript source file", args[0])
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tree, err := parser.Parse(l, source)
			if err != nil {
				return err
			}
			defer tree.Close()
			printAST(cmd.OutOrStdout(), tree.RootNode(), source, 0)
			return nil
		},
	}
}

func printAST(w io.Writer, node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	text := parser.NodeText(node, source)
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	fmt.Fprintf(w, "%s%s [%d:%d] %q\n", strings.Repeat("  ", indent), node.Kind(),
		node.StartPosition().Row+1, node.StartPosition().Column, text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(w, node.Child(i), source, indent+1)
	}
}
