// Package kotlin implements the Kotlin/JVM resolution core: the declaration
// extractor, type resolver, variable analyzer and call resolver. This is
// where the hard cases live: tree-sitter-kotlin aliases interface/enum/
// object/type-alias declarations under the single `class_declaration` node
// kind, and superclass/interface classification needs a complete symbol
// registry that isn't available until Phase 1 finishes.
package kotlin

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/kotlingraph/internal/fqn"
	"github.com/codegraph/kotlingraph/internal/lang"
	"github.com/codegraph/kotlingraph/internal/parser"
	"github.com/codegraph/kotlingraph/internal/registry"
)

// Parameter is a callable's formal parameter, already typed (declared or
// inference-defaulted to the top type).
type Parameter struct {
	Name string
	Type string
}

// Declaration is the declaration record produced by the extractor.
// Delegation specifiers are recorded unclassified at extraction time; the split
// into superclass and interfaces happens in Phase 2 through the type
// resolver, never in the extractor, which runs against an incomplete
// registry.
type Declaration struct {
	QN             string
	SimpleName     string
	Kind           registry.NodeKind
	Language       lang.Language
	EnclosingQN    string // module or class QN this declaration sits directly under
	FilePath       string
	StartLine      int
	EndLine        int
	RawDelegations []string // delegation specifier type names (type arguments dropped), unresolved
	Modifiers      []string
	Annotations    []string
	TypeParameters []string
	Parameters     []Parameter // callables only
	ReturnType     string      // callables only
	DeclaredType   string      // fields only
	CallableType   string      // "constructor" for constructors, "" otherwise
	Node           *tree_sitter.Node
}

// topType is Kotlin's implicit supertype, used when a parameter or field has
// no declared type and none can be inferred.
const topType = "Any"

// classifyClassDeclaration classifies a class_declaration-family node by
// scanning its direct children in source order and applying the first
// matching rule: an `interface` keyword before the body means INTERFACE, an
// `enum` class_modifier means ENUM, object/companion forms are OBJECT,
// type_alias is TYPE_ALIAS, anything else is CLASS. The scan terminates at
// class_body to bound cost.
func classifyClassDeclaration(node *tree_sitter.Node, source []byte) registry.NodeKind {
	switch node.Kind() {
	case "object_declaration", "companion_object":
		return registry.Object
	case "type_alias":
		return registry.TypeAlias
	case "interface_declaration":
		return registry.Interface
	case "enum_class", "enum_declaration":
		return registry.Enum
	}
	if node.Kind() != "class_declaration" {
		return registry.Class
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "interface" {
			return registry.Interface
		}
		if child.Kind() == "modifiers" {
			for j := uint(0); j < child.ChildCount(); j++ {
				mod := child.Child(j)
				if mod != nil && mod.Kind() == "class_modifier" && parser.NodeText(mod, source) == "enum" {
					return registry.Enum
				}
			}
		}
		if child.Kind() == "class_body" {
			break
		}
	}
	return registry.Class
}

// extractAllDelegationSpecifiers returns the delegation_specifier children
// of a class/interface declaration's delegation_specifiers field.
func extractAllDelegationSpecifiers(node *tree_sitter.Node) []*tree_sitter.Node {
	delegationNode := node.ChildByFieldName("delegation_specifiers")
	if delegationNode == nil {
		return nil
	}
	var out []*tree_sitter.Node
	for i := uint(0); i < delegationNode.ChildCount(); i++ {
		child := delegationNode.Child(i)
		if child != nil && child.Kind() == "delegation_specifier" {
			out = append(out, child)
		}
	}
	return out
}

// extractTypeFromNode extracts a type name from a user_type / type_identifier
// / delegation_specifier node, joining nested qualifiers with dots and
// dropping generic arguments.
func extractTypeFromNode(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "type_identifier":
		return parser.NodeText(node, source)
	case "user_type":
		var parts []string
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "type_identifier":
				if t := parser.NodeText(child, source); t != "" {
					parts = append(parts, t)
				}
			case "user_type":
				if nested := extractTypeFromNode(child, source); nested != "" {
					parts = append(parts, nested)
				}
			}
		}
		return joinDot(parts)
	case "delegation_specifier":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if result := extractTypeFromNode(child, source); result != "" {
				return result
			}
		}
	case "constructor_invocation":
		if typeNode := node.ChildByFieldName("type"); typeNode != nil {
			return extractTypeFromNode(typeNode, source)
		}
	}
	return ""
}

func joinDot(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// extractRawDelegations returns the unresolved type name of every delegation
// specifier, as extractTypeFromNode reads it (type and constructor arguments
// are not kept), plus the supertype field's. The extractor must not attempt to classify
// superclass vs. interface here; the registry is still incomplete.
func extractRawDelegations(node *tree_sitter.Node, source []byte) []string {
	specifiers := extractAllDelegationSpecifiers(node)
	out := make([]string, 0, len(specifiers))
	for _, spec := range specifiers {
		if t := extractTypeFromNode(spec, source); t != "" {
			out = append(out, t)
		}
	}
	// supertype field fallback, present on some interface declarations.
	if supertype := node.ChildByFieldName("supertype"); supertype != nil {
		if t := extractTypeFromNode(supertype, source); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// extractModifiersAndAnnotations gathers modifier/annotation children under
// a node's `modifiers` child, plus any annotation siblings outside it, which
// some grammar versions produce.
func extractModifiersAndAnnotations(node *tree_sitter.Node, source []byte) (modifiers, annotations []string) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "modifiers" {
			for j := uint(0); j < child.ChildCount(); j++ {
				mc := child.Child(j)
				if mc == nil {
					continue
				}
				switch mc.Kind() {
				case "modifier":
					if t := parser.NodeText(mc, source); t != "" {
						modifiers = append(modifiers, t)
					}
				case "annotation":
					if name := extractAnnotationName(mc, source); name != "" {
						annotations = append(annotations, name)
					}
				}
			}
		}
		if child.Kind() == "annotation" {
			if name := extractAnnotationName(child, source); name != "" {
				annotations = append(annotations, name)
			}
		}
	}
	return modifiers, annotations
}

// extractAnnotationName pulls the type name out of an annotation node's
// nested user_type/type_identifier (not the annotation node's own text,
// which includes the leading '@').
func extractAnnotationName(annotation *tree_sitter.Node, source []byte) string {
	for i := uint(0); i < annotation.ChildCount(); i++ {
		child := annotation.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "user_type":
			return extractTypeFromNode(child, source)
		case "type_identifier":
			return parser.NodeText(child, source)
		}
	}
	return ""
}

func extractTypeParameters(node *tree_sitter.Node, source []byte) []string {
	typeParamsNode := node.ChildByFieldName("type_parameters")
	if typeParamsNode == nil {
		return nil
	}
	var out []string
	for i := uint(0); i < typeParamsNode.ChildCount(); i++ {
		child := typeParamsNode.Child(i)
		if child == nil || child.Kind() != "type_parameter" {
			continue
		}
		nameNode := child.ChildByFieldName("name")
		if nameNode == nil {
			nameNode = child.ChildByFieldName("type_identifier")
		}
		if nameNode != nil {
			if n := parser.NodeText(nameNode, source); n != "" {
				out = append(out, n)
			}
		}
	}
	return out
}

// fileQN computes a module's QN, trimming a Maven/Gradle Kotlin source root
// first.
func fileQN(project, relPath string) string {
	return fqn.ModuleQN(project, fqn.TrimKotlinSourceRoot(relPath))
}
