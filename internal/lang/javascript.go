package lang

func init() {
	Register(&LanguageSpec{
		Language:       JavaScript,
		FileExtensions: []string{".js", ".jsx", ".mjs", ".cjs"},
		FunctionNodeTypes: []string{
			"function_declaration",
			"generator_function_declaration",
		},
		ClassNodeTypes:          []string{"class_declaration"},
		VariableNodeTypes:       []string{"lexical_declaration", "variable_declaration"},
		ImportNodeTypes:         []string{"import_statement"},
		ExportNodeTypes:         []string{"export_statement"},
		MemberNodeTypes:         []string{"method_definition", "field_definition"},
		EnvAccessMemberPatterns: []string{"process.env"},
	})
}
