package lang

var tsFunctionNodes = []string{
	"function_declaration",
	"generator_function_declaration",
	"function_signature",
}

var tsClassNodes = []string{
	"class_declaration",
	"abstract_class_declaration",
}

var tsTypeNodes = []string{
	"interface_declaration",
	"type_alias_declaration",
	"enum_declaration",
}

var tsMemberNodes = []string{
	"method_definition",
	"method_signature",
	"abstract_method_signature",
	"public_field_definition",
	"property_signature",
}

func init() {
	Register(&LanguageSpec{
		Language:                TypeScript,
		FileExtensions:          []string{".ts", ".d.ts", ".mts", ".cts"},
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
