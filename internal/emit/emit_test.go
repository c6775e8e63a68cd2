package emit

import (
	"testing"

	"github.com/codegraph/kotlingraph/internal/registry"
)

type fakeSink struct {
	nodeBatches [][]NodeRecord
	edgeBatches [][]EdgeRecord
	order       []string // "nodes" / "edges", one entry per batch received
}

func (f *fakeSink) EnsureNodeBatch(nodes []NodeRecord) error {
	f.nodeBatches = append(f.nodeBatches, nodes)
	f.order = append(f.order, "nodes")
	return nil
}

func (f *fakeSink) EnsureRelationshipBatch(edges []EdgeRecord) error {
	f.edgeBatches = append(f.edgeBatches, edges)
	f.order = append(f.order, "edges")
	return nil
}

func TestEmitterCollapsesDuplicateNodes(t *testing.T) {
	sink := &fakeSink{}
	e := New(sink)
	e.EnsureNode(registry.Class, "proj.pkg.Widget", map[string]any{"v": 1})
	e.EnsureNode(registry.Class, "proj.pkg.Widget", map[string]any{"v": 2})
	if n, _ := e.Len(); n != 1 {
		t.Fatalf("expected duplicate node to collapse, got %d buffered", n)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(sink.nodeBatches) != 1 || len(sink.nodeBatches[0]) != 1 {
		t.Fatalf("expected exactly one node in the flushed batch, got %+v", sink.nodeBatches)
	}
	if sink.nodeBatches[0][0].Props["v"] != 2 {
		t.Fatalf("expected the latest property set to win, got %+v", sink.nodeBatches[0][0].Props)
	}
}

func TestEmitterCollapsesDuplicateEdges(t *testing.T) {
	sink := &fakeSink{}
	e := New(sink)
	e.EnsureRelationship("proj.pkg.A", Calls, "proj.pkg.B", nil)
	e.EnsureRelationship("proj.pkg.A", Calls, "proj.pkg.B", nil)
	if _, edges := e.Len(); edges != 1 {
		t.Fatalf("expected duplicate edge to collapse, got %d buffered", edges)
	}
}

func TestEmitterFlushOrdersNodesBeforeEdges(t *testing.T) {
	sink := &fakeSink{}
	e := New(sink)
	e.EnsureRelationship("proj.pkg.A", Contains, "proj.pkg.A.foo", nil)
	e.EnsureNode(registry.Class, "proj.pkg.A", nil)
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(sink.nodeBatches) == 0 || len(sink.edgeBatches) == 0 {
		t.Fatal("expected both a node batch and an edge batch")
	}
	if len(sink.order) != 2 || sink.order[0] != "nodes" || sink.order[1] != "edges" {
		t.Fatalf("expected the node batch to reach the sink before the edge batch, got %v", sink.order)
	}
}

func TestEmitterFlushClearsBuffers(t *testing.T) {
	sink := &fakeSink{}
	e := New(sink)
	e.EnsureNode(registry.Module, "proj.pkg", nil)
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n, edges := e.Len(); n != 0 || edges != 0 {
		t.Fatalf("expected buffers cleared after flush, got nodes=%d edges=%d", n, edges)
	}
}
