package kotlin

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/kotlingraph/internal/imports"
	"github.com/codegraph/kotlingraph/internal/parser"
)

// ParseImports builds the import map for one Kotlin file's root AST node,
// pre-populated with Kotlin's primitives and wrapper types. Handles the
// three import forms (plain, wildcard, aliased). Only direct children of the
// root with kind "import" are read; imports nested under an import_list or
// import_header node are not searched.
func ParseImports(root *tree_sitter.Node, source []byte) imports.Map {
	m := imports.NewKotlinMap()
	for i := uint(0); i < root.ChildCount(); i++ {
		child := root.Child(i)
		if child == nil || child.Kind() != "import" {
			continue
		}
		for k, v := range extractImportPath(child, source) {
			m[k] = v
		}
	}
	return m
}

// extractImportPath handles the canonical tree-sitter-kotlin `import` node
// shape: import > qualified_identifier | identifier [as identifier] [. *].
func extractImportPath(importNode *tree_sitter.Node, source []byte) map[string]string {
	result := map[string]string{}
	var pathParts []string
	var alias string
	isWildcard := false
	seenAs := false

	for i := uint(0); i < importNode.ChildCount(); i++ {
		child := importNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "qualified_identifier":
			for j := uint(0); j < child.ChildCount(); j++ {
				idChild := child.Child(j)
				if idChild != nil && idChild.Kind() == "identifier" {
					if part := parser.NodeText(idChild, source); part != "" {
						pathParts = append(pathParts, part)
					}
				}
			}
		case "identifier", "simple_identifier":
			if seenAs && alias == "" {
				alias = parser.NodeText(child, source)
			} else if len(pathParts) == 0 {
				if part := parser.NodeText(child, source); part != "" {
					pathParts = append(pathParts, part)
				}
			}
		case "asterisk", "*":
			isWildcard = true
		case "as":
			seenAs = true
		}
	}

	if len(pathParts) == 0 {
		return result
	}
	importedPath := joinDot(pathParts)
	switch {
	case isWildcard:
		result["*"+importedPath] = importedPath
	case alias != "":
		result[alias] = importedPath
	default:
		result[pathParts[len(pathParts)-1]] = importedPath
	}
	return result
}
