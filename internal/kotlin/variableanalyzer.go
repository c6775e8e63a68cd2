package kotlin

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/kotlingraph/internal/parser"
	"github.com/codegraph/kotlingraph/internal/registry"
)

// VariableAnalyzer builds the per-scope variable-type map the call resolver
// needs to resolve receiver-bound calls. It runs after the symbol registry
// is frozen, so it can consult the type resolver freely. Five passes over a
// callable's body: formal parameters, local declarations, enclosing class
// fields, assignments, loop variables. The whole scope is memoized with
// cycle protection against self-referential inference chains.
type VariableAnalyzer struct {
	Reg      *registry.Registry
	Resolver *Resolver

	// Decls indexes every Phase-1 declaration record by QN, giving the
	// analyzer the return types and field types the Registry alone (QN ->
	// NodeKind) cannot recover. Optional: a nil index degrades member
	// lookups to unknown, it never fails.
	Decls map[string]*Declaration

	memo map[string]map[string]string // callable QN -> (var name -> resolved type)
}

// NewDeclIndex builds the QN -> declaration index from Phase 1's per-file
// extraction output.
func NewDeclIndex(declsByFile map[string][]*Declaration) map[string]*Declaration {
	idx := map[string]*Declaration{}
	for _, decls := range declsByFile {
		for _, d := range decls {
			idx[d.QN] = d
		}
	}
	return idx
}

// Analyze returns the variable-type map for one callable's body. decl must
// be a METHOD or FUNCTION declaration; moduleQN is the module it was
// extracted from. Entries map identifier -> resolved type QN; enclosing
// class fields additionally appear under "this.<name>". Scopes are memoized
// per callable QN.
func (va *VariableAnalyzer) Analyze(decl *Declaration, moduleQN string, source []byte) map[string]string {
	if va.memo == nil {
		va.memo = map[string]map[string]string{}
	}
	if cached, ok := va.memo[decl.QN]; ok {
		return cached
	}

	vars := map[string]string{}
	// Guard against re-entrant inference cycles (a val whose initializer
	// transitively calls back into resolving the same scope).
	va.memo[decl.QN] = vars

	if decl.EnclosingQN != "" {
		if kind, ok := va.Reg.Find(decl.EnclosingQN); ok && classKinds[kind] {
			vars["this"] = decl.EnclosingQN
		}
	}

	// Pass 1: formal parameters, with elided types already defaulted to the
	// top type by the extractor.
	for _, p := range decl.Parameters {
		vars[p.Name] = va.Resolver.ResolveTypeName(p.Type, moduleQN)
	}

	body := decl.Node.ChildByFieldName("body")
	if body == nil {
		return vars
	}

	// Pass 2: local declarations. Explicitly typed locals bind first so that
	// untyped ones may refer to them during inference.
	var untyped []*tree_sitter.Node
	walkScope(body, func(node *tree_sitter.Node) bool {
		if node.Kind() != "property_declaration" {
			return true
		}
		name := fieldName(node, source)
		if name == "" {
			return true
		}
		if t := extractFieldDeclaredType(node, source); t != "" {
			vars[name] = va.Resolver.ResolveTypeName(t, moduleQN)
		} else {
			untyped = append(untyped, node)
		}
		return true
	})
	for _, node := range untyped {
		name := fieldName(node, source)
		if name == "" {
			continue
		}
		if t := va.inferExpressionType(initializerOf(node), source, vars, moduleQN, map[string]bool{name: true}); t != "" {
			vars[name] = t
		}
	}

	// Pass 3: enclosing class fields, under both the bare name and
	// "this.<name>". Existing entries win: locals shadow fields.
	va.bindEnclosingFields(decl, moduleQN, vars)

	// Pass 4: assignments to a bare identifier or this.<field> update the
	// map with the inferred right-hand type.
	va.bindAssignments(body, source, vars, moduleQN)

	// Pass 5: loop variables.
	va.bindLoopVariables(body, source, vars, moduleQN)

	return vars
}

// classKinds is the set of NodeKinds that can own members and act as a
// receiver type.
var classKinds = map[registry.NodeKind]bool{
	registry.Class:     true,
	registry.Interface: true,
	registry.Enum:      true,
	registry.Object:    true,
}

// walkScope visits node and its descendants, stopping at nested function and
// class declarations — those get their own Analyze call with their own
// scope. visit returning false prunes the subtree.
func walkScope(node *tree_sitter.Node, visit func(*tree_sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visit(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if functionLikeKinds[child.Kind()] || classLikeKinds[child.Kind()] {
			continue
		}
		walkScope(child, visit)
	}
}

func initializerOf(propNode *tree_sitter.Node) *tree_sitter.Node {
	if init := propNode.ChildByFieldName("value"); init != nil {
		return init
	}
	return propNode.ChildByFieldName("initializer")
}

// bindEnclosingFields inserts every property of the enclosing class under
// both its bare name and "this.<name>", resolving its declared type or,
// failing that, inferring from its initializer.
func (va *VariableAnalyzer) bindEnclosingFields(decl *Declaration, moduleQN string, vars map[string]string) {
	classQN := decl.EnclosingQN
	if classQN == "" || va.Decls == nil {
		return
	}
	for _, entry := range va.Reg.FindWithPrefix(classQN) {
		if entry.Kind != registry.Field {
			continue
		}
		fieldDecl, ok := va.Decls[entry.QN]
		if !ok || fieldDecl.EnclosingQN != classQN {
			continue
		}
		t := fieldDecl.DeclaredType
		if t != "" {
			t = va.Resolver.ResolveTypeName(t, moduleQN)
		} else if fieldDecl.Node != nil {
			fieldSource := va.sourceFor(moduleQN, fieldDecl)
			t = va.inferExpressionType(initializerOf(fieldDecl.Node), fieldSource, vars, moduleQN, map[string]bool{fieldDecl.SimpleName: true})
		}
		if t == "" {
			continue
		}
		if _, exists := vars[fieldDecl.SimpleName]; !exists {
			vars[fieldDecl.SimpleName] = t
		}
		if _, exists := vars["this."+fieldDecl.SimpleName]; !exists {
			vars["this."+fieldDecl.SimpleName] = t
		}
	}
}

// sourceFor fetches the source bytes backing a declaration's AST node via
// the Resolver's cache, needed when a field lives in a different file than
// the scope under analysis.
func (va *VariableAnalyzer) sourceFor(moduleQN string, d *Declaration) []byte {
	if va.Resolver == nil || va.Resolver.Cache == nil {
		return nil
	}
	if entry, ok := va.Resolver.Cache.Get(d.FilePath); ok {
		return entry.Source
	}
	return nil
}

// bindAssignments updates the map for assignments whose target is a bare
// identifier or a this-qualified field.
func (va *VariableAnalyzer) bindAssignments(body *tree_sitter.Node, source []byte, vars map[string]string, moduleQN string) {
	walkScope(body, func(node *tree_sitter.Node) bool {
		if node.Kind() != "assignment" {
			return true
		}
		lhs := node.ChildByFieldName("left")
		if lhs == nil {
			lhs = node.Child(0)
		}
		rhs := node.ChildByFieldName("right")
		if rhs == nil && node.ChildCount() > 0 {
			rhs = node.Child(node.ChildCount() - 1)
		}
		if lhs == nil || rhs == nil || lhs == rhs {
			return true
		}
		key := assignmentKey(lhs, source)
		if key == "" {
			return true
		}
		if t := va.inferExpressionType(rhs, source, vars, moduleQN, map[string]bool{}); t != "" {
			vars[key] = t
			if rest, ok := strings.CutPrefix(key, "this."); ok {
				vars[rest] = t
			}
		}
		return true
	})
}

// assignmentKey returns the variable-map key for an assignment target: the
// identifier itself, or "this.<field>" for a this-qualified navigation.
// Any other target shape (indexing, chained navigation) is skipped.
func assignmentKey(lhs *tree_sitter.Node, source []byte) string {
	// The grammar wraps assignment targets in directly_assignable_expression.
	for lhs != nil && lhs.Kind() == "directly_assignable_expression" && lhs.ChildCount() > 0 {
		lhs = lhs.Child(0)
	}
	if lhs == nil {
		return ""
	}
	switch lhs.Kind() {
	case "identifier", "simple_identifier":
		return parser.NodeText(lhs, source)
	case "navigation_expression":
		target := lhs.ChildByFieldName("target")
		suffix := lhs.ChildByFieldName("suffix")
		if target == nil || suffix == nil {
			return ""
		}
		if target.Kind() == "this_expression" || target.Kind() == "this" {
			return "this." + strings.TrimPrefix(parser.NodeText(suffix, source), ".")
		}
	}
	return ""
}

// bindLoopVariables handles `for (x in E)`: where E infers to a List<T> or
// Array<T>, x binds to T; otherwise to the top type.
func (va *VariableAnalyzer) bindLoopVariables(body *tree_sitter.Node, source []byte, vars map[string]string, moduleQN string) {
	walkScope(body, func(node *tree_sitter.Node) bool {
		if node.Kind() != "for_statement" {
			return true
		}
		varName, seqNode := forLoopParts(node, source)
		if varName == "" {
			return true
		}
		elem := topType
		if seqNode != nil {
			if seqType := va.inferExpressionType(seqNode, source, vars, moduleQN, map[string]bool{}); seqType != "" {
				if t := elementType(seqType); t != "" {
					elem = t
				}
			}
		}
		vars[varName] = elem
		return true
	})
}

// forLoopParts extracts the loop variable name and the sequence expression
// from a for_statement's children: the variable_declaration before the `in`
// keyword and the first expression after it.
func forLoopParts(forNode *tree_sitter.Node, source []byte) (string, *tree_sitter.Node) {
	var varName string
	var seqNode *tree_sitter.Node
	seenIn := false
	for i := uint(0); i < forNode.ChildCount(); i++ {
		child := forNode.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "variable_declaration":
			if varName == "" {
				varName = declaredVariableName(child, source)
			}
		case "in":
			seenIn = true
		case "(", ")", "for", "annotation":
			// structural tokens
		default:
			if seenIn && seqNode == nil {
				seqNode = child
			}
		}
	}
	return varName, seqNode
}

// declaredVariableName pulls the bound identifier out of a
// variable_declaration, tolerating grammar versions that expose it as a name
// field or as a bare identifier child.
func declaredVariableName(varDecl *tree_sitter.Node, source []byte) string {
	if n := varDecl.ChildByFieldName("name"); n != nil {
		return parser.NodeText(n, source)
	}
	for i := uint(0); i < varDecl.ChildCount(); i++ {
		child := varDecl.Child(i)
		if child == nil {
			continue
		}
		if child.Kind() == "identifier" || child.Kind() == "simple_identifier" {
			return parser.NodeText(child, source)
		}
	}
	return ""
}

// elementType unwraps List<T> / Array<T> (and their resolved
// kotlin.collections / kotlin forms) to T. Any other shape yields "".
func elementType(seqType string) string {
	idx := strings.Index(seqType, "<")
	if idx < 0 || !strings.HasSuffix(seqType, ">") {
		return ""
	}
	base := seqType[:idx]
	switch base {
	case "List", "MutableList", "Array",
		"kotlin.collections.List", "kotlin.collections.MutableList", "kotlin.Array":
		return seqType[idx+1 : len(seqType)-1]
	}
	return ""
}

// inferExpressionType infers an initializer expression's static type via a
// small closed recursion. An empty result means "unknown"; the caller
// decides whether to skip the binding or default to the top type. visiting
// guards against self-referential chains (e.g. `val x = x`).
func (va *VariableAnalyzer) inferExpressionType(node *tree_sitter.Node, source []byte, vars map[string]string, moduleQN string, visiting map[string]bool) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "integer_literal":
		return "Int"
	case "long_literal":
		return "Long"
	case "real_literal", "float_literal":
		return "Double"
	case "boolean_literal":
		return "Boolean"
	case "character_literal":
		return "Char"
	case "string_literal", "line_string_literal", "multiline_string_literal":
		return "String"
	case "null_literal", "null":
		return ""

	case "parenthesized_expression":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "(", ")":
				continue
			}
			return va.inferExpressionType(child, source, vars, moduleQN, visiting)
		}
		return ""

	case "collection_literal":
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child == nil {
				continue
			}
			switch child.Kind() {
			case "[", "]", ",":
				continue
			}
			if elem := va.inferExpressionType(child, source, vars, moduleQN, visiting); elem != "" {
				return "List<" + elem + ">"
			}
			break
		}
		return ""

	case "constructor_invocation":
		if cs, ok := extractMethodCallInfo(node, source); ok {
			return va.Resolver.ResolveTypeName(cs.Name, moduleQN)
		}
		return ""

	case "call_expression":
		cs, ok := extractMethodCallInfo(node, source)
		if !ok {
			return ""
		}
		if cs.IsConstructor {
			resolved := va.Resolver.ResolveTypeName(cs.Name, moduleQN)
			if kind, ok := va.Reg.Find(resolved); ok && classKinds[kind] {
				return resolved
			}
			// Not a known class: fall through to callee return-type lookup.
		}
		if cs.Receiver != "" {
			recvType := va.lookupReceiverType(cs.Receiver, vars, moduleQN, visiting)
			return va.memberReturnType(recvType, cs.Name, moduleQN)
		}
		if t := va.memberReturnType(moduleQN, cs.Name, moduleQN); t != "" {
			return t
		}
		if enclosing := vars["this"]; enclosing != "" {
			return va.memberReturnType(enclosing, cs.Name, moduleQN)
		}
		return ""

	case "navigation_expression":
		target := node.ChildByFieldName("target")
		suffix := node.ChildByFieldName("suffix")
		if suffix == nil {
			return ""
		}
		recvType := va.inferExpressionType(target, source, vars, moduleQN, visiting)
		member := strings.TrimPrefix(parser.NodeText(suffix, source), ".")
		return va.memberFieldType(recvType, member, moduleQN)

	case "identifier", "simple_identifier":
		name := parser.NodeText(node, source)
		if visiting[name] {
			return ""
		}
		if t, ok := vars[name]; ok {
			return t
		}
		return ""

	case "this_expression", "this":
		return vars["this"]

	case "if_expression", "when_expression", "elvis_expression":
		// Control-flow expressions would need branch unification; out of the
		// closed recursion.
		return ""
	}
	return ""
}

func (va *VariableAnalyzer) lookupReceiverType(receiver string, vars map[string]string, moduleQN string, visiting map[string]bool) string {
	if receiver == "this" {
		return vars["this"]
	}
	if visiting[receiver] {
		return ""
	}
	if t, ok := vars[receiver]; ok {
		return t
	}
	// The receiver may name a class, object or enum directly rather than a
	// variable (Logger.log(...)).
	if resolved := va.Resolver.ResolveTypeName(receiver, moduleQN); resolved != receiver || strings.Contains(resolved, ".") {
		if kind, ok := va.Reg.Find(resolved); ok && classKinds[kind] {
			return resolved
		}
	}
	return ""
}

// memberReturnType looks up a method's declared return type on a resolved
// class QN, walking the superclass chain until a declaration is found.
func (va *VariableAnalyzer) memberReturnType(ownerQN, methodName, moduleQN string) string {
	if ownerQN == "" || va.Decls == nil {
		return ""
	}
	visited := map[string]bool{}
	for ownerQN != "" && !visited[ownerQN] {
		visited[ownerQN] = true
		if d, ok := va.Decls[ownerQN+"."+methodName]; ok && (d.Kind == registry.Method || d.Kind == registry.Function) {
			if d.ReturnType == "" {
				return ""
			}
			return va.Resolver.ResolveTypeName(d.ReturnType, va.Resolver.moduleQNFor(d.QN))
		}
		ownerQN = va.Resolver.FindSuperclass(ownerQN)
	}
	return ""
}

// memberFieldType looks up a field's declared type on a resolved class QN,
// walking the superclass chain.
func (va *VariableAnalyzer) memberFieldType(ownerQN, fieldName, moduleQN string) string {
	if ownerQN == "" || va.Decls == nil {
		return ""
	}
	visited := map[string]bool{}
	for ownerQN != "" && !visited[ownerQN] {
		visited[ownerQN] = true
		if d, ok := va.Decls[ownerQN+"."+fieldName]; ok && d.Kind == registry.Field {
			if d.DeclaredType == "" {
				return ""
			}
			return va.Resolver.ResolveTypeName(d.DeclaredType, va.Resolver.moduleQNFor(d.QN))
		}
		ownerQN = va.Resolver.FindSuperclass(ownerQN)
	}
	return ""
}
