// Package registry implements the symbol registry: a prefix-indexed mapping
// from qualified name to NodeKind, written only during Phase 1 and read-only
// once frozen for Phase 2.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// NodeKind is the closed set of declaration kinds.
type NodeKind string

const (
	Module    NodeKind = "MODULE"
	Class     NodeKind = "CLASS"
	Interface NodeKind = "INTERFACE"
	Enum      NodeKind = "ENUM"
	Object    NodeKind = "OBJECT"
	TypeAlias NodeKind = "TYPE_ALIAS"
	Union     NodeKind = "UNION"
	Function  NodeKind = "FUNCTION"
	Method    NodeKind = "METHOD"
	Field     NodeKind = "FIELD"
)

// Finder is the registry lookup contract: exact-key Find, prefix
// enumeration, and full enumeration. A default linear-scan FindWithPrefix is
// available via FindWithPrefixFallback for implementers that only provide
// Items.
type Finder interface {
	Find(qn string) (NodeKind, bool)
	FindWithPrefix(prefix string) []Entry
	Items() []Entry
}

// Entry pairs a qualified name with its NodeKind.
type Entry struct {
	QN   string
	Kind NodeKind
}

// InvariantError reports two conflicting NodeKind assignments for one QN, a
// fatal Phase-1 condition.
type InvariantError struct {
	QN    string
	First NodeKind
	Second NodeKind
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("registry: conflicting kinds for %s: %s vs %s", e.QN, e.First, e.Second)
}

// trieNode is one dot-segment level of the prefix trie.
type trieNode struct {
	children map[string]*trieNode
	kind     NodeKind
	has      bool
	qn       string
}

// Registry is the concurrency-safe symbol registry. Insert is safe to call
// from multiple Phase-1 workers; once Freeze is called, Insert fails and
// reads see a fixed snapshot. Reads take a shared read lock internally, so
// callers need no locking of their own.
type Registry struct {
	mu     sync.RWMutex
	flat   map[string]NodeKind
	root   *trieNode
	frozen bool
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		flat: make(map[string]NodeKind),
		root: &trieNode{children: make(map[string]*trieNode)},
	}
}

// Insert records qn with kind. Returns an *InvariantError if qn was already
// registered with a different kind; every QN has exactly one NodeKind.
// Re-inserting the same (qn, kind) pair is a no-op.
func (r *Registry) Insert(qn string, kind NodeKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("registry: insert after freeze: %s", qn)
	}
	if existing, ok := r.flat[qn]; ok {
		if existing != kind {
			return &InvariantError{QN: qn, First: existing, Second: kind}
		}
		return nil
	}
	r.flat[qn] = kind
	r.insertTrie(qn, kind)
	return nil
}

func (r *Registry) insertTrie(qn string, kind NodeKind) {
	parts := strings.Split(qn, ".")
	node := r.root
	for _, part := range parts {
		child, ok := node.children[part]
		if !ok {
			child = &trieNode{children: make(map[string]*trieNode)}
			node.children[part] = child
		}
		node = child
	}
	node.kind = kind
	node.has = true
	node.qn = qn
}

// Freeze marks the registry read-only, ending Phase 1.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Find is the exact-key lookup.
func (r *Registry) Find(qn string) (NodeKind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.flat[qn]
	return k, ok
}

// FindWithPrefix returns every entry equal to prefix or starting with
// prefix + ".", the hot path for candidate ranking.
func (r *Registry) FindWithPrefix(prefix string) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node := r.root
	if prefix != "" {
		for _, part := range strings.Split(prefix, ".") {
			child, ok := node.children[part]
			if !ok {
				return nil
			}
			node = child
		}
	}

	var out []Entry
	collect(node, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].QN < out[j].QN })
	return out
}

func collect(node *trieNode, out *[]Entry) {
	if node.has {
		*out = append(*out, Entry{QN: node.qn, Kind: node.kind})
	}
	for _, child := range node.children {
		collect(child, out)
	}
}

// Items returns every registered entry.
func (r *Registry) Items() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, 0, len(r.flat))
	for qn, kind := range r.flat {
		out = append(out, Entry{QN: qn, Kind: kind})
	}
	return out
}

// FindWithPrefixFallback is a default implementation of FindWithPrefix: a
// linear scan over Items(), usable by any Finder implementation that only
// provides Items.
func FindWithPrefixFallback(f Finder, prefix string) []Entry {
	var out []Entry
	for _, e := range f.Items() {
		if e.QN == prefix || strings.HasPrefix(e.QN, prefix+".") {
			out = append(out, e)
		}
	}
	return out
}

var _ Finder = (*Registry)(nil)
