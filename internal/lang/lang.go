// Package lang describes the set of source languages the pipeline can parse
// and the AST node-kind vocabulary each one uses for declarations, calls and
// imports.
package lang

// Language identifies a supported source language.
type Language string

const (
	Kotlin     Language = "kotlin"
	Java       Language = "java"
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	Go         Language = "go"
	Scala      Language = "scala"
)

// LanguageSpec describes the AST node kinds a language front-end needs to
// recognize declarations, calls and imports. The Kotlin resolution core
// (internal/kotlin) does not read these tables; they back the shallow
// declaration extractors in internal/extract.
type LanguageSpec struct {
	Language          Language
	FileExtensions    []string
	FunctionNodeTypes []string
	ClassNodeTypes    []string
	FieldNodeTypes    []string
	ModuleNodeTypes   []string
	CallNodeTypes     []string
	ImportNodeTypes   []string
	PackageIndicators []string
}

var registry = make(map[Language]*LanguageSpec)
var byExtension = make(map[string]*LanguageSpec)

// Register adds a LanguageSpec to the global registry, indexing it by every
// file extension it declares.
func Register(spec *LanguageSpec) {
	registry[spec.Language] = spec
	for _, ext := range spec.FileExtensions {
		byExtension[ext] = spec
	}
}

func init() {
	Register(&LanguageSpec{
		Language:          Kotlin,
		FileExtensions:    []string{".kt", ".kts"},
		FunctionNodeTypes: []string{"function_declaration", "secondary_constructor", "anonymous_function"},
		ClassNodeTypes:    []string{"class_declaration", "object_declaration", "companion_object", "type_alias"},
		FieldNodeTypes:    []string{"property_declaration"},
		ModuleNodeTypes:   []string{"source_file"},
		CallNodeTypes:     []string{"call_expression", "navigation_expression", "constructor_invocation"},
		ImportNodeTypes:   []string{"import"},
		PackageIndicators: []string{"src/main/kotlin", "src/kotlin", "src/test/kotlin"},
	})
	Register(&LanguageSpec{
		Language:          Java,
		FileExtensions:    []string{".java"},
		FunctionNodeTypes: []string{"method_declaration", "constructor_declaration"},
		ClassNodeTypes:    []string{"class_declaration", "interface_declaration", "enum_declaration"},
		FieldNodeTypes:    []string{"field_declaration"},
		ModuleNodeTypes:   []string{"program"},
		CallNodeTypes:     []string{"method_invocation", "object_creation_expression"},
		ImportNodeTypes:   []string{"import_declaration"},
		PackageIndicators: []string{"src/main/java", "src/test/java"},
	})
	Register(&LanguageSpec{
		Language:          Python,
		FileExtensions:    []string{".py"},
		FunctionNodeTypes: []string{"function_definition"},
		ClassNodeTypes:    []string{"class_definition"},
		ModuleNodeTypes:   []string{"module"},
		CallNodeTypes:     []string{"call"},
		ImportNodeTypes:   []string{"import_statement", "import_from_statement"},
	})
	Register(&LanguageSpec{
		Language:          JavaScript,
		FileExtensions:    []string{".js", ".jsx", ".mjs"},
		FunctionNodeTypes: []string{"function_declaration", "method_definition", "arrow_function"},
		ClassNodeTypes:    []string{"class_declaration"},
		ModuleNodeTypes:   []string{"program"},
		CallNodeTypes:     []string{"call_expression", "new_expression"},
		ImportNodeTypes:   []string{"import_statement"},
	})
	Register(&LanguageSpec{
		Language:          TypeScript,
		FileExtensions:    []string{".ts", ".tsx"},
		FunctionNodeTypes: []string{"function_declaration", "method_definition", "arrow_function"},
		ClassNodeTypes:    []string{"class_declaration", "interface_declaration"},
		ModuleNodeTypes:   []string{"program"},
		CallNodeTypes:     []string{"call_expression", "new_expression"},
		ImportNodeTypes:   []string{"import_statement"},
	})
	Register(&LanguageSpec{
		Language:          Go,
		FileExtensions:    []string{".go"},
		FunctionNodeTypes: []string{"function_declaration", "method_declaration"},
		ClassNodeTypes:    []string{"type_spec"},
		ModuleNodeTypes:   []string{"source_file"},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"import_spec"},
	})
	// Scala is registered as a tag only: nearest JVM sibling worth keeping
	// visible in AllLanguages, but no grammar binding or extractor is wired
	// for it.
	Register(&LanguageSpec{
		Language:       Scala,
		FileExtensions: []string{".scala"},
	})
}

// ForLanguage returns the spec for a known Language.
func ForLanguage(l Language) (*LanguageSpec, bool) {
	spec, ok := registry[l]
	return spec, ok
}

// ForExtension returns the spec registered for a file extension, e.g. ".kt".
func ForExtension(ext string) (*LanguageSpec, bool) {
	spec, ok := byExtension[ext]
	return spec, ok
}

// LanguageForExtension is a convenience wrapper returning just the Language.
func LanguageForExtension(ext string) (Language, bool) {
	spec, ok := byExtension[ext]
	if !ok {
		return "", false
	}
	return spec.Language, true
}

// AllLanguages returns every registered language.
func AllLanguages() []Language {
	out := make([]Language, 0, len(registry))
	for l := range registry {
		out = append(out, l)
	}
	return out
}
