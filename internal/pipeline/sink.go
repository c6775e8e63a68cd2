package pipeline

import (
	"fmt"
	"strings"

	"github.com/codegraph/kotlingraph/internal/emit"
	"github.com/codegraph/kotlingraph/internal/registry"
	"github.com/codegraph/kotlingraph/internal/store"
)

// storeSink adapts *store.Store to the emit.Sink contract. An edge endpoint
// that was never extracted (an external or otherwise unresolved QN) gets a
// minimal placeholder node created on the fly, since the edges table's
// foreign keys require both endpoints to already exist.
type storeSink struct {
	store   *store.Store
	project string
}

func newStoreSink(s *store.Store, project string) *storeSink {
	return &storeSink{store: s, project: project}
}

// EnsureNodeBatch upserts one batch of declaration nodes.
func (s *storeSink) EnsureNodeBatch(nodes []emit.NodeRecord) error {
	if len(nodes) == 0 {
		return nil
	}
	batch := make([]*store.Node, 0, len(nodes))
	for _, n := range nodes {
		start, end := intProp(n.Props, "start_line"), intProp(n.Props, "end_line")
		batch = append(batch, &store.Node{
			Project:       s.project,
			Label:         string(n.Kind),
			Name:          lastSegmentOf(n.QN),
			QualifiedName: n.QN,
			FilePath:      stringProp(n.Props, "file_path"),
			StartLine:     start,
			EndLine:       end,
			Properties:    n.Props,
		})
	}
	_, err := s.store.UpsertNodeBatch(batch)
	if err != nil {
		return fmt.Errorf("sink: ensure node batch: %w", err)
	}
	return nil
}

// EnsureRelationshipBatch resolves every edge's endpoints to node IDs,
// manufacturing placeholder nodes for any QN that wasn't itself emitted as a
// declaration (an external superclass, an unresolved call target, an import
// target, including a wildcard-imported package), then inserts the batch.
func (s *storeSink) EnsureRelationshipBatch(edges []emit.EdgeRecord) error {
	if len(edges) == 0 {
		return nil
	}

	qnSet := make(map[string]bool, len(edges)*2)
	for _, e := range edges {
		qnSet[e.FromQN] = true
		qnSet[e.ToQN] = true
	}
	qns := make([]string, 0, len(qnSet))
	for qn := range qnSet {
		qns = append(qns, qn)
	}
	idMap, err := s.store.FindNodeIDsByQNs(s.project, qns)
	if err != nil {
		return fmt.Errorf("sink: resolve edge endpoints: %w", err)
	}

	var placeholders []*store.Node
	placed := map[string]bool{}
	for _, e := range edges {
		if _, ok := idMap[e.FromQN]; !ok && !placed[e.FromQN] {
			placed[e.FromQN] = true
			placeholders = append(placeholders, placeholderNode(s.project, e.FromQN, placeholderKind(e.Rel, true)))
		}
		if _, ok := idMap[e.ToQN]; !ok && !placed[e.ToQN] {
			placed[e.ToQN] = true
			placeholders = append(placeholders, placeholderNode(s.project, e.ToQN, placeholderKind(e.Rel, false)))
		}
	}
	if len(placeholders) > 0 {
		resolved, err := s.store.UpsertNodeBatch(placeholders)
		if err != nil {
			return fmt.Errorf("sink: create placeholder nodes: %w", err)
		}
		for qn, id := range resolved {
			idMap[qn] = id
		}
	}

	batch := make([]*store.Edge, 0, len(edges))
	for _, e := range edges {
		fromID, ok := idMap[e.FromQN]
		if !ok {
			continue
		}
		toID, ok := idMap[e.ToQN]
		if !ok {
			continue
		}
		batch = append(batch, &store.Edge{
			Project:    s.project,
			SourceID:   fromID,
			TargetID:   toID,
			Type:       string(e.Rel),
			Properties: e.Props,
		})
	}
	if err := s.store.InsertEdgeBatch(batch); err != nil {
		return fmt.Errorf("sink: insert edge batch: %w", err)
	}
	return nil
}

// placeholderKind guesses a label for a node the extractor never saw, based
// on which side of which relationship it anchors.
func placeholderKind(rel emit.RelKind, isSource bool) registry.NodeKind {
	switch rel {
	case emit.Inherits:
		return registry.Class
	case emit.Implements:
		if isSource {
			return registry.Class
		}
		return registry.Interface
	case emit.Calls:
		if isSource {
			return registry.Method
		}
		return registry.Function
	case emit.Imports, emit.DefinesType:
		return registry.Module
	default:
		return registry.Class
	}
}

func placeholderNode(project, qn string, kind registry.NodeKind) *store.Node {
	return &store.Node{
		Project:       project,
		Label:         string(kind),
		Name:          lastSegmentOf(qn),
		QualifiedName: qn,
		Properties:    map[string]any{"external": true},
	}
}

func lastSegmentOf(qn string) string {
	idx := strings.LastIndex(qn, ".")
	if idx < 0 {
		return qn
	}
	return qn[idx+1:]
}

func stringProp(props map[string]any, key string) string {
	if props == nil {
		return ""
	}
	v, _ := props[key].(string)
	return v
}

func intProp(props map[string]any, key string) int {
	if props == nil {
		return 0
	}
	v, _ := props[key].(int)
	return v
}
