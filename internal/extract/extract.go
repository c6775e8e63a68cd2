// Package extract provides the shallow, non-Kotlin declaration extractors:
// classes, functions and fields only, with no type resolution or variable
// analysis. Those two passes stay Kotlin-only. One generic walker covers
// every language, driven by the per-language node-type tables in
// internal/lang.
package extract

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/kotlingraph/internal/fqn"
	"github.com/codegraph/kotlingraph/internal/lang"
	"github.com/codegraph/kotlingraph/internal/parser"
	"github.com/codegraph/kotlingraph/internal/registry"
)

// Declaration is the shallow declaration record these extractors produce, a
// reduced form of kotlin.Declaration carrying only what non-Kotlin languages
// contribute to the graph.
type Declaration struct {
	QN          string
	SimpleName  string
	Kind        registry.NodeKind
	Language    lang.Language
	EnclosingQN string
	FilePath    string
}

// Bundle is the registry-writing extractor for one non-Kotlin language,
// built from that language's LanguageSpec node-type tables rather than a
// hand-written per-language extractor.
type Bundle struct {
	Spec *lang.LanguageSpec
}

// NewBundle constructs a Bundle for l, or false if l has no registered spec
// or no grammar-backed node-type tables (e.g. Scala, registered as a tag
// only).
func NewBundle(l lang.Language) (*Bundle, bool) {
	spec, ok := lang.ForLanguage(l)
	if !ok || (len(spec.ClassNodeTypes) == 0 && len(spec.FunctionNodeTypes) == 0) {
		return nil, false
	}
	return &Bundle{Spec: spec}, true
}

func (b *Bundle) kindSet(types []string) map[string]bool {
	set := make(map[string]bool, len(types))
	for _, t := range types {
		set[t] = true
	}
	return set
}

// ExtractFile walks one file's AST and produces shallow declarations for
// every top-level and nested class/function, inserting each QN into reg.
// The module declaration is always the first element of the returned slice.
func (b *Bundle) ExtractFile(project, relPath string, root *tree_sitter.Node, source []byte, reg *registry.Registry) ([]*Declaration, error) {
	classKinds := b.kindSet(b.Spec.ClassNodeTypes)
	funcKinds := b.kindSet(b.Spec.FunctionNodeTypes)
	fieldKinds := b.kindSet(b.Spec.FieldNodeTypes)

	moduleQN := fqn.ModuleQN(project, relPath)
	if err := reg.Insert(moduleQN, registry.Module); err != nil {
		return nil, err
	}
	decls := []*Declaration{{
		QN: moduleQN, SimpleName: lastSegment(moduleQN), Kind: registry.Module,
		Language: b.Spec.Language, FilePath: relPath,
	}}

	var walk func(node *tree_sitter.Node, enclosingQN string, inClass bool) error
	walk = func(node *tree_sitter.Node, enclosingQN string, inClass bool) error {
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			kind := child.Kind()
			switch {
			case classKinds[kind]:
				name := declName(child, source)
				if name == "" {
					continue
				}
				qn := enclosingQN + "." + name
				if err := reg.Insert(qn, registry.Class); err != nil {
					return err
				}
				decls = append(decls, &Declaration{
					QN: qn, SimpleName: name, Kind: registry.Class,
					Language: b.Spec.Language, EnclosingQN: enclosingQN, FilePath: relPath,
				})
				if err := walk(child, qn, true); err != nil {
					return err
				}

			case funcKinds[kind]:
				name := declName(child, source)
				if name == "" {
					continue
				}
				qn := enclosingQN + "." + name
				fnKind := registry.Function
				if inClass {
					fnKind = registry.Method
				}
				if err := reg.Insert(qn, fnKind); err != nil {
					return err
				}
				decls = append(decls, &Declaration{
					QN: qn, SimpleName: name, Kind: fnKind,
					Language: b.Spec.Language, EnclosingQN: enclosingQN, FilePath: relPath,
				})

			case fieldKinds[kind]:
				name := declName(child, source)
				if name == "" {
					continue
				}
				qn := enclosingQN + "." + name
				if err := reg.Insert(qn, registry.Field); err != nil {
					return err
				}
				decls = append(decls, &Declaration{
					QN: qn, SimpleName: name, Kind: registry.Field,
					Language: b.Spec.Language, EnclosingQN: enclosingQN, FilePath: relPath,
				})

			default:
				if err := walk(child, enclosingQN, inClass); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if err := walk(root, moduleQN, false); err != nil {
		return decls, err
	}
	return decls, nil
}

// declName extracts a declaration node's name via the common "name" field,
// falling back to a handful of grammar-specific field names the pack's
// grammars use in its place.
func declName(node *tree_sitter.Node, source []byte) string {
	for _, field := range []string{"name", "identifier", "type_identifier"} {
		if n := node.ChildByFieldName(field); n != nil {
			return parser.NodeText(n, source)
		}
	}
	return ""
}

func lastSegment(qn string) string {
	for i := len(qn) - 1; i >= 0; i-- {
		if qn[i] == '.' {
			return qn[i+1:]
		}
	}
	return qn
}
