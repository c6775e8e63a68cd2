package kotlin

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/kotlingraph/internal/lang"
	"github.com/codegraph/kotlingraph/internal/parser"
	"github.com/codegraph/kotlingraph/internal/registry"
)

var classLikeKinds = map[string]bool{
	"class_declaration":     true,
	"object_declaration":    true,
	"companion_object":      true,
	"type_alias":            true,
	"interface_declaration": true,
	"enum_class":            true,
	"enum_declaration":      true,
}

var functionLikeKinds = map[string]bool{
	"function_declaration":  true,
	"secondary_constructor": true,
	"anonymous_function":    true,
	"primary_constructor":   true,
}

// ExtractFile walks one Kotlin file's AST and produces declaration records
// for every top-level and nested declaration, inserting each QN into reg.
// The module declaration itself is always the first element of the returned
// slice.
func ExtractFile(project, relPath string, root *tree_sitter.Node, source []byte, reg *registry.Registry) ([]*Declaration, error) {
	moduleQN := fileQN(project, relPath)
	if err := reg.Insert(moduleQN, registry.Module); err != nil {
		return nil, err
	}

	decls := []*Declaration{{
		QN:         moduleQN,
		SimpleName: lastSegment(moduleQN),
		Kind:       registry.Module,
		Language:   lang.Kotlin,
		FilePath:   relPath,
		Node:       root,
	}}

	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		if err := walkMember(child, moduleQN, relPath, false, source, reg, &decls); err != nil {
			return decls, err
		}
	}
	return decls, nil
}

// walkMember processes one node that may be a class-like, function-like or
// field declaration, recursing into class bodies for nested members.
// enclosingIsClass distinguishes module-level functions (FUNCTION) from
// class members (METHOD).
func walkMember(node *tree_sitter.Node, enclosingQN, relPath string, enclosingIsClass bool, source []byte, reg *registry.Registry, out *[]*Declaration) error {
	switch {
	case classLikeKinds[node.Kind()]:
		return walkClassLike(node, enclosingQN, relPath, source, reg, out)
	case functionLikeKinds[node.Kind()]:
		return walkFunctionLike(node, enclosingQN, relPath, enclosingIsClass, source, reg, out)
	case node.Kind() == "property_declaration":
		return walkField(node, enclosingQN, relPath, source, reg, out)
	}
	return nil
}

func className(node *tree_sitter.Node, source []byte) string {
	if n := node.ChildByFieldName("name"); n != nil {
		return parser.NodeText(n, source)
	}
	if n := node.ChildByFieldName("type_identifier"); n != nil {
		return parser.NodeText(n, source)
	}
	// companion_object may be anonymous; default name used by Kotlin itself.
	if node.Kind() == "companion_object" {
		return "Companion"
	}
	return ""
}

func walkClassLike(node *tree_sitter.Node, enclosingQN, relPath string, source []byte, reg *registry.Registry, out *[]*Declaration) error {
	name := className(node, source)
	if name == "" {
		return nil
	}
	kind := classifyClassDeclaration(node, source)
	qn := enclosingQN + "." + name
	if err := reg.Insert(qn, kind); err != nil {
		return err
	}

	modifiers, annotations := extractModifiersAndAnnotations(node, source)
	decl := &Declaration{
		QN:             qn,
		SimpleName:     name,
		Kind:           kind,
		Language:       lang.Kotlin,
		EnclosingQN:    enclosingQN,
		FilePath:       relPath,
		RawDelegations: extractRawDelegations(node, source),
		Modifiers:      modifiers,
		Annotations:    annotations,
		TypeParameters: extractTypeParameters(node, source),
		Node:           node,
	}
	*out = append(*out, decl)

	body := node.ChildByFieldName("body")
	if body == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			c := node.Child(i)
			if c != nil && c.Kind() == "class_body" {
				body = c
				break
			}
		}
	}
	if body == nil {
		return nil
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		member := body.Child(i)
		if member == nil {
			continue
		}
		if err := walkMember(member, qn, relPath, true, source, reg, out); err != nil {
			return err
		}
	}
	return nil
}

func walkFunctionLike(node *tree_sitter.Node, enclosingQN, relPath string, enclosingIsClass bool, source []byte, reg *registry.Registry, out *[]*Declaration) error {
	var name string
	if n := node.ChildByFieldName("name"); n != nil {
		name = parser.NodeText(n, source)
	} else if n := node.ChildByFieldName("simple_identifier"); n != nil {
		name = parser.NodeText(n, source)
	}
	kind, callableType := callableKind(node, enclosingIsClass)
	if name == "" {
		if callableType == "constructor" {
			name = "<init>"
		} else {
			return nil
		}
	}
	qn := enclosingQN + "." + name
	if err := reg.Insert(qn, kind); err != nil {
		return err
	}
	modifiers, annotations := extractModifiersAndAnnotations(node, source)
	*out = append(*out, &Declaration{
		QN:           qn,
		SimpleName:   name,
		Kind:         kind,
		Language:     lang.Kotlin,
		EnclosingQN:  enclosingQN,
		FilePath:     relPath,
		Modifiers:    modifiers,
		Annotations:  annotations,
		Parameters:   extractParameters(node, source),
		ReturnType:   extractReturnType(node, source),
		CallableType: callableType,
		Node:         node,
	})
	return nil
}

func walkField(node *tree_sitter.Node, enclosingQN, relPath string, source []byte, reg *registry.Registry, out *[]*Declaration) error {
	name := fieldName(node, source)
	if name == "" {
		return nil
	}
	qn := enclosingQN + "." + name
	if err := reg.Insert(qn, registry.Field); err != nil {
		return err
	}
	modifiers, annotations := extractModifiersAndAnnotations(node, source)
	*out = append(*out, &Declaration{
		QN:           qn,
		SimpleName:   name,
		Kind:         registry.Field,
		Language:     lang.Kotlin,
		EnclosingQN:  enclosingQN,
		FilePath:     relPath,
		Modifiers:    modifiers,
		Annotations:  annotations,
		DeclaredType: extractFieldDeclaredType(node, source),
		Node:         node,
	})
	return nil
}

func lastSegment(qn string) string {
	idx := strings.LastIndex(qn, ".")
	if idx < 0 {
		return qn
	}
	return qn[idx+1:]
}
