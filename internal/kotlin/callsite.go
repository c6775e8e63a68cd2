package kotlin

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codegraph/kotlingraph/internal/parser"
)

// CallSite is one call expression found inside a callable's body. Receiver is
// the literal "this" when the call targets the enclosing instance, the
// immediate receiver name for `a.b.method()` (i.e. "b", not "a.b": nested
// navigation binds to the innermost expression), or empty for an unqualified
// call.
type CallSite struct {
	Name        string
	Receiver    string
	IsConstructor bool
	ArgCount    int
	Node        *tree_sitter.Node
}

// FindCallSites walks a callable's body for call_expression / navigation
// call / constructor_invocation nodes.
func FindCallSites(body *tree_sitter.Node, source []byte) []CallSite {
	var out []CallSite
	if body == nil {
		return out
	}
	walkForCalls(body, source, &out)
	return out
}

func walkForCalls(node *tree_sitter.Node, source []byte, out *[]CallSite) {
	if node == nil {
		return
	}
	if cs, ok := extractMethodCallInfo(node, source); ok {
		*out = append(*out, cs)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walkForCalls(node.Child(i), source, out)
	}
}

// extractMethodCallInfo classifies one node as a call site, dispatching on
// constructor_invocation / call_expression / navigation_expression shapes.
func extractMethodCallInfo(node *tree_sitter.Node, source []byte) (CallSite, bool) {
	switch node.Kind() {
	case "constructor_invocation":
		typeNode := node.ChildByFieldName("type")
		if typeNode == nil {
			return CallSite{}, false
		}
		name := extractTypeFromNode(typeNode, source)
		if name == "" {
			name = parser.NodeText(typeNode, source)
		}
		return CallSite{
			Name:          lastSegment(name),
			Receiver:      "",
			IsConstructor: true,
			ArgCount:      countValueArguments(node),
			Node:          node,
		}, true

	case "call_expression":
		callee := node.ChildByFieldName("function")
		if callee == nil {
			return CallSite{}, false
		}
		name, receiver := extractCallNameAndObject(callee, source)
		if name == "" {
			return CallSite{}, false
		}
		return CallSite{
			Name: name,
			Receiver: receiver,
			// Kotlin has no `new` keyword: a bare, unqualified, capitalized
			// call ("Widget()") is syntactically identical to a function
			// call. The grammar only emits a dedicated constructor_invocation
			// node inside a delegation_specifiers list (superclass calls);
			// plain object-creation expressions surface as call_expression.
			// Treat an unqualified, capitalized callee as a constructor
			// candidate — the Call Resolver's class-vs-function Registry
			// check is the real arbiter.
			IsConstructor: receiver == "" && startsWithUpper(name),
			ArgCount:      countValueArguments(node),
			Node:          node,
		}, true
	}
	return CallSite{}, false
}

func startsWithUpper(name string) bool {
	if name == "" {
		return false
	}
	r := name[0]
	return r >= 'A' && r <= 'Z'
}

// extractCallNameAndObject extracts the called member's simple name and its
// receiver expression from a callee node, which may itself be a
// navigation_expression (a.b.method), a plain identifier (method()), or a
// this_expression (this.method()). Nested navigation binds to the innermost
// receiver: for `outer.inner.method`, the receiver is "inner", not
// "outer.inner".
func extractCallNameAndObject(node *tree_sitter.Node, source []byte) (name, receiver string) {
	switch node.Kind() {
	case "navigation_expression":
		target := node.ChildByFieldName("target")
		suffix := node.ChildByFieldName("suffix")
		if suffix == nil {
			return "", ""
		}
		name = parser.NodeText(suffix, source)
		receiver = receiverName(target, source)
		return name, receiver

	case "identifier", "simple_identifier":
		return parser.NodeText(node, source), ""
	}
	return "", ""
}

// receiverName resolves the immediate receiver expression's display name:
// "this" for a this_expression, the innermost member name for nested
// navigation, or the plain identifier text otherwise.
func receiverName(node *tree_sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "this_expression", "this":
		return "this"
	case "navigation_expression":
		suffix := node.ChildByFieldName("suffix")
		if suffix != nil {
			return parser.NodeText(suffix, source)
		}
		return ""
	default:
		return parser.NodeText(node, source)
	}
}

// countValueArguments counts a call's value_argument children, falling back
// to counting non-delimiter children of the value_arguments node when the
// grammar doesn't expose value_argument nodes directly.
func countValueArguments(callNode *tree_sitter.Node) int {
	args := callNode.ChildByFieldName("value_arguments")
	if args == nil {
		for i := uint(0); i < callNode.ChildCount(); i++ {
			c := callNode.Child(i)
			if c != nil && c.Kind() == "value_arguments" {
				args = c
				break
			}
		}
	}
	if args == nil {
		return 0
	}
	count := 0
	sawValueArgument := false
	for i := uint(0); i < args.ChildCount(); i++ {
		c := args.Child(i)
		if c == nil {
			continue
		}
		if c.Kind() == "value_argument" {
			sawValueArgument = true
			count++
		}
	}
	if sawValueArgument {
		return count
	}
	// Fallback: count children that aren't the ( ) , delimiters.
	count = 0
	for i := uint(0); i < args.ChildCount(); i++ {
		c := args.Child(i)
		if c == nil {
			continue
		}
		switch c.Kind() {
		case "(", ")", ",":
			continue
		}
		count++
	}
	return count
}
