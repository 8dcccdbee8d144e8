package lang

func init() {
	Register(&LanguageSpec{
		Language:                TSX,
		FileExtensions:          []string{".tsx"},
		FunctionNodeTypes:       tsFunctionNodes,
		ClassNodeTypes:          tsClassNodes,
		TypeNodeTypes:           tsTypeNodes,
		VariableNodeTypes:       []string{"lexical_declaration", "variable_declaration"},
		ImportNodeTypes:         []string{"import_statement"},
		ExportNodeTypes:         []string{"export_statement"},
		MemberNodeTypes:         tsMemberNodes,
		EnvAccessMemberPatterns: []string{"process.env", "import.meta.env"},
	})
}
