package lang

import (
	"path/filepath"
	"strings"
)

// Language represents a supported source language.
type Language string

const (
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Config     Language = "config" // infrastructure files; no tree-sitter grammar
	// SQL schemas are parsed for their tables only and never indexed as source.
	SQL Language = "sql"
)

// AllLanguages returns the source languages the extractor indexes.
func AllLanguages() []Language {
	return []Language{JavaScript, TypeScript, TSX}
}

// ProbeExtensions is the order in which extensionless specifiers are probed
// against the filesystem.
var ProbeExtensions = []string{".ts", ".tsx", ".d.ts", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"}

// sourceSiblings maps an emitted JS extension to the source extensions an
// author may have written it as.
var sourceSiblings = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// SourceSiblings returns the source extensions to try before an explicit
// .js/.jsx/.mjs/.cjs extension.
func SourceSiblings(ext string) []string {
	return sourceSiblings[ext]
}

// LanguageSpec defines the tree-sitter node types for a language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string

	FunctionNodeTypes []string
	ClassNodeTypes    []string
	// TypeNodeTypes lists type-only declarations (interfaces, aliases, enums).
	TypeNodeTypes     []string
	VariableNodeTypes []string
	ImportNodeTypes   []string
	ExportNodeTypes   []string
	// MemberNodeTypes lists class/interface body members recorded as children.
	MemberNodeTypes []string

	EnvAccessMemberPatterns []string
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".ts").
func ForExtension(ext string) *LanguageSpec {
	return registry[ext]
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(l Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == l {
			return spec
		}
	}
	return nil
}

// Ext returns the effective extension of path, treating ".d.ts" as one unit.
func Ext(path string) string {
	base := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(base, ".d.ts") {
		return ".d.ts"
	}
	return filepath.Ext(base)
}

// ForPath returns the Language of a source file path.
func ForPath(path string) (Language, bool) {
	spec := registry[Ext(path)]
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// IsSource reports whether path is a TS/JS source file the extractor handles.
func IsSource(path string) bool {
	_, ok := ForPath(path)
	return ok
}
