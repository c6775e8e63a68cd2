// Package emit implements the graph emitter: batched, duplicate-collapsing
// node/edge creation with a file-node-before-its-edges ordering guarantee,
// flushed to a Sink. Deduplication happens here, one layer above the sink,
// so the sink never sees duplicate work.
package emit

import (
	"fmt"

	"github.com/codegraph/kotlingraph/internal/registry"
)

// RelKind is the closed set of emitted relationship kinds.
type RelKind string

const (
	Contains    RelKind = "CONTAINS"
	Inherits    RelKind = "INHERITS"
	Implements  RelKind = "IMPLEMENTS"
	Imports     RelKind = "IMPORTS"
	Calls       RelKind = "CALLS"
	DefinesType RelKind = "DEFINES_TYPE"
)

// NodeRecord is one batched node creation.
type NodeRecord struct {
	Kind  registry.NodeKind
	QN    string
	Props map[string]any
}

// EdgeRecord is one batched relationship creation.
type EdgeRecord struct {
	FromQN string
	Rel    RelKind
	ToQN   string
	Props  map[string]any
}

// Sink is the contract the Emitter flushes to: idempotent create-or-update
// for nodes and relationships, each batched.
type Sink interface {
	EnsureNodeBatch(nodes []NodeRecord) error
	EnsureRelationshipBatch(edges []EdgeRecord) error
}

// Emitter buffers node and edge batches, collapsing duplicates, and
// preserves file-node-before-its-edges ordering on Flush.
type Emitter struct {
	sink Sink

	nodeOrder []string // QN in first-seen order
	nodes     map[string]NodeRecord

	edgeOrder []string // "fromQN\x00rel\x00toQN" in first-seen order
	edges     map[string]EdgeRecord
}

// New constructs an Emitter flushing to sink.
func New(sink Sink) *Emitter {
	return &Emitter{
		sink:  sink,
		nodes: map[string]NodeRecord{},
		edges: map[string]EdgeRecord{},
	}
}

// EnsureNode batches one node creation. Re-ensuring the same (kind, QN)
// collapses to the latest property set rather than producing a duplicate.
func (e *Emitter) EnsureNode(kind registry.NodeKind, qn string, props map[string]any) {
	key := string(kind) + "\x00" + qn
	if _, exists := e.nodes[key]; !exists {
		e.nodeOrder = append(e.nodeOrder, key)
	}
	e.nodes[key] = NodeRecord{Kind: kind, QN: qn, Props: props}
}

// EnsureRelationship batches one relationship creation, collapsing
// duplicate (from, rel, to) triples.
func (e *Emitter) EnsureRelationship(fromQN string, rel RelKind, toQN string, props map[string]any) {
	key := fromQN + "\x00" + string(rel) + "\x00" + toQN
	if _, exists := e.edges[key]; !exists {
		e.edgeOrder = append(e.edgeOrder, key)
	}
	e.edges[key] = EdgeRecord{FromQN: fromQN, Rel: rel, ToQN: toQN, Props: props}
}

// Flush writes every buffered node, then every buffered edge, to the sink.
// Callers always EnsureNode a file's declarations before EnsureRelationship
// for its edges, and Flush preserves first-seen insertion order within each
// kind, so a node reaches the sink before any edge touching it.
func (e *Emitter) Flush() error {
	nodes := make([]NodeRecord, 0, len(e.nodeOrder))
	for _, key := range e.nodeOrder {
		nodes = append(nodes, e.nodes[key])
	}
	if len(nodes) > 0 {
		if err := e.sink.EnsureNodeBatch(nodes); err != nil {
			return fmt.Errorf("emit: flush nodes: %w", err)
		}
	}

	edges := make([]EdgeRecord, 0, len(e.edgeOrder))
	for _, key := range e.edgeOrder {
		edges = append(edges, e.edges[key])
	}
	if len(edges) > 0 {
		if err := e.sink.EnsureRelationshipBatch(edges); err != nil {
			return fmt.Errorf("emit: flush edges: %w", err)
		}
	}

	e.nodeOrder = nil
	e.nodes = map[string]NodeRecord{}
	e.edgeOrder = nil
	e.edges = map[string]EdgeRecord{}
	return nil
}

// Len reports the number of buffered (node, edge) records, for tests and
// diagnostics.
func (e *Emitter) Len() (nodes, edges int) {
	return len(e.nodeOrder), len(e.edgeOrder)
}
