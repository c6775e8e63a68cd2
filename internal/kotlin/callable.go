package kotlin

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/kotlingraph/internal/parser"
	"github.com/codegraph/kotlingraph/internal/registry"
)

// extractFormalParameterType extracts a parameter's declared type text, or
// the empty string if elided. The verbatim text is kept — generic arguments
// and nullability markers included — since the Type Resolver's cascade
// parses both itself.
func extractFormalParameterType(paramNode *tree_sitter.Node, source []byte) string {
	typeNode := paramNode.ChildByFieldName("type")
	if typeNode == nil {
		return ""
	}
	return parser.NodeText(typeNode, source)
}

// extractParameters walks a callable's parameters field, binding elided
// types to the top type.
func extractParameters(funcNode *tree_sitter.Node, source []byte) []Parameter {
	paramsNode := funcNode.ChildByFieldName("parameters")
	if paramsNode == nil {
		return nil
	}
	var out []Parameter
	for i := uint(0); i < paramsNode.ChildCount(); i++ {
		child := paramsNode.Child(i)
		if child == nil || child.Kind() != "parameter" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		t := extractFormalParameterType(child, source)
		if t == "" {
			t = topType
		}
		out = append(out, Parameter{Name: parser.NodeText(nameNode, source), Type: t})
	}
	return out
}

// extractReturnType extracts a function's declared return type, checking
// both "type" and "return_type" fields (grammar-version tolerant). Kotlin
// allows return-type inference; no explicit type means the function returns
// Unit, represented here as the empty string (caller decides defaulting).
func extractReturnType(funcNode *tree_sitter.Node, source []byte) string {
	if typeNode := funcNode.ChildByFieldName("type"); typeNode != nil {
		return parser.NodeText(typeNode, source)
	}
	if typeNode := funcNode.ChildByFieldName("return_type"); typeNode != nil {
		return parser.NodeText(typeNode, source)
	}
	return ""
}

// extractFieldDeclaredType extracts a property_declaration's declared type,
// or the empty string if it must be inferred by the Variable Analyzer. The
// annotation may hang off the property node itself or off its nested
// variable_declaration, depending on grammar version.
func extractFieldDeclaredType(fieldNode *tree_sitter.Node, source []byte) string {
	if typeNode := fieldNode.ChildByFieldName("type"); typeNode != nil {
		return parser.NodeText(typeNode, source)
	}
	if varDecl := fieldNode.ChildByFieldName("variable_declaration"); varDecl != nil {
		if typeNode := varDecl.ChildByFieldName("type"); typeNode != nil {
			return parser.NodeText(typeNode, source)
		}
	}
	for i := uint(0); i < fieldNode.ChildCount(); i++ {
		child := fieldNode.Child(i)
		if child == nil || child.Kind() != "variable_declaration" {
			continue
		}
		if typeNode := child.ChildByFieldName("type"); typeNode != nil {
			return parser.NodeText(typeNode, source)
		}
	}
	return ""
}

// fieldName extracts a property_declaration's name, checking the nested
// variable_declaration first.
func fieldName(fieldNode *tree_sitter.Node, source []byte) string {
	if varDecl := fieldNode.ChildByFieldName("variable_declaration"); varDecl != nil {
		if n := varDecl.ChildByFieldName("name"); n != nil {
			return parser.NodeText(n, source)
		}
		if n := varDecl.ChildByFieldName("simple_identifier"); n != nil {
			return parser.NodeText(n, source)
		}
	}
	if n := fieldNode.ChildByFieldName("name"); n != nil {
		return parser.NodeText(n, source)
	}
	return ""
}

// callableKind classifies a callable node: METHOD if it has an enclosing
// class-like declaration, FUNCTION otherwise. callableType is "constructor"
// for primary/secondary constructors.
func callableKind(funcNode *tree_sitter.Node, hasEnclosingClass bool) (registry.NodeKind, string) {
	callableType := ""
	if funcNode.Kind() == "secondary_constructor" || funcNode.Kind() == "primary_constructor" {
		callableType = "constructor"
	}
	if hasEnclosingClass {
		return registry.Method, callableType
	}
	return registry.Function, callableType
}
