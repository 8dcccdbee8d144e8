// Package extract turns TS/JS source text into export and import records
// with byte-accurate spans.
package extract

import (
	"bytes"
	"errors"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/DeusData/codebase-index/internal/lang"
	"github.com/DeusData/codebase-index/internal/parser"
)

// Kind tags an exported symbol.
type Kind string

const (
	KindFunction    Kind = "function"
	KindClass       Kind = "class"
	KindInterface   Kind = "interface"
	KindType        Kind = "type"
	KindEnum        Kind = "enum"
	KindVariable    Kind = "variable"
	KindDefault     Kind = "default"
	KindReexportAll Kind = "reexport_all"
	KindReexport    Kind = "reexport"
	KindMember      Kind = "member"
)

// IsReexport reports whether k is a forwarding record rather than a definition.
func (k Kind) IsReexport() bool {
	return k == KindReexport || k == KindReexportAll
}

// ErrBinary is returned for content that is not text.
var ErrBinary = errors.New("extract: binary content")

// Export is one exported declaration. Members are nested records for class,
// interface and enum bodies.
type Export struct {
	Name           string
	Kind           Kind
	Signature      string
	Doc            string
	StartLine      int
	EndLine        int
	StartByte      int
	EndByte        int
	Classification string
	Capabilities   []string
	// Source is the module specifier a re-export forwards from.
	Source string
	// ImportedName is the name a re-export refers to in Source ("*" for namespaces).
	ImportedName string
	Members      []Export
}

// Import is one module dependency of a file.
type Import struct {
	Specifier string
	// Names lists the imported names as exported by the target module.
	// "*" marks a namespace import or star re-export; empty means side-effect
	// import or an untracked binding.
	Names      []string
	IsReexport bool
	TypeOnly   bool
}

// FileRecord is everything extracted from one source file.
type FileRecord struct {
	Language       lang.Language
	Exports        []Export
	Imports        []Import
	Classification string
	Summary        string
}

// Extractor produces a FileRecord from file content.
type Extractor interface {
	Extract(path string, content []byte) (*FileRecord, error)
}

// TreeSitter is the tree-sitter backed Extractor.
type TreeSitter struct{}

// New returns the default tree-sitter extractor.
func New() *TreeSitter { return &TreeSitter{} }

// Extract parses content as the language implied by path.
func (TreeSitter) Extract(path string, content []byte) (*FileRecord, error) {
	l, ok := lang.ForPath(path)
	if !ok {
		return nil, fmt.Errorf("extract: unsupported file %s", path)
	}
	if bytes.IndexByte(content, 0) >= 0 {
		return nil, ErrBinary
	}
	tree, err := parser.Parse(l, content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, err)
	}
	defer tree.Close()

	fx := newFileExtractor(path, l, content)
	fx.run(tree.RootNode())

	rec := &FileRecord{
		Language: l,
		Exports:  fx.exports,
		Imports:  fx.imports,
	}
	rec.Classification = classifyFile(path, rec)
	rec.Summary = summarize(fx.fileDoc, rec)
	return rec, nil
}

// binding is where an imported local name came from.
type binding struct {
	specifier    string
	importedName string
	importIdx    int
}

// fileExtractor holds per-file state for one extraction.
type fileExtractor struct {
	path    string
	lang    lang.Language
	spec    *lang.LanguageSpec
	src     []byte
	fileDoc string

	exports []Export
	imports []Import

	// locals maps top-level declaration names to their nodes so that
	// `export { x }` and `export default x` can point at the real span.
	locals   map[string]*tree_sitter.Node
	bindings map[string]binding
}

func newFileExtractor(path string, l lang.Language, src []byte) *fileExtractor {
	return &fileExtractor{
		path:     path,
		lang:     l,
		spec:     lang.ForLanguage(l),
		src:      src,
		locals:   make(map[string]*tree_sitter.Node),
		bindings: make(map[string]binding),
	}
}

func (fx *fileExtractor) run(root *tree_sitter.Node) {
	fx.fileDoc = leadingFileDoc(root, fx.src)

	// First pass: imports and local declarations, so export clauses later in
	// the file can be resolved against them.
	for _, child := range parser.NamedChildren(root) {
		switch child.Kind() {
		case "import_statement":
			fx.importStatement(child)
		case "export_statement":
		default:
			fx.recordLocals(child)
		}
	}
	for _, child := range parser.NamedChildren(root) {
		if child.Kind() == "export_statement" {
			fx.exportStatement(child)
		}
	}
	// CommonJS and dynamic imports anywhere in the file.
	parser.Walk(root, func(n *tree_sitter.Node) bool {
		if n.Kind() == "call_expression" {
			fx.callImport(n)
		}
		return true
	})
}

func (fx *fileExtractor) text(n *tree_sitter.Node) string {
	return parser.NodeText(n, fx.src)
}

// recordLocals indexes top-level declarations by name.
func (fx *fileExtractor) recordLocals(n *tree_sitter.Node) {
	switch n.Kind() {
	case "lexical_declaration", "variable_declaration":
		for _, d := range parser.NamedChildren(n) {
			if d.Kind() != "variable_declarator" {
				continue
			}
			if name := d.ChildByFieldName("name"); name != nil && name.Kind() == "identifier" {
				fx.locals[fx.text(name)] = n
			}
		}
	case "ambient_declaration":
		for _, d := range parser.NamedChildren(n) {
			fx.recordLocals(d)
		}
	default:
		if name := n.ChildByFieldName("name"); name != nil && fx.declKind(n) != "" {
			fx.locals[fx.text(name)] = n
		}
	}
}

// declKind maps a declaration node kind to an export Kind.
func (fx *fileExtractor) declKind(n *tree_sitter.Node) Kind {
	k := n.Kind()
	switch {
	case contains(fx.spec.FunctionNodeTypes, k):
		return KindFunction
	case contains(fx.spec.ClassNodeTypes, k):
		return KindClass
	case k == "interface_declaration":
		return KindInterface
	case k == "type_alias_declaration":
		return KindType
	case k == "enum_declaration":
		return KindEnum
	case contains(fx.spec.VariableNodeTypes, k):
		return KindVariable
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func rowToLine(row uint) int {
	const maxInt = int(^uint(0) >> 1)
	if row > uint(maxInt-1) {
		return maxInt
	}
	return int(row) + 1
}
