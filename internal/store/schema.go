package store

import (
	"fmt"

	"github.com/codegraph/kotlingraph/internal/registry"
)

// SchemaInfo summarizes one project's graph: which node kinds and edge types
// it contains, the (source)-[type]->(target) shapes they form, and a few
// sample names to orient a query author.
type SchemaInfo struct {
	NodeLabels           []LabelCount `json:"node_labels"`
	RelationshipTypes    []TypeCount  `json:"relationship_types"`
	RelationshipPatterns []string     `json:"relationship_patterns"`
	SampleCallableNames  []string     `json:"sample_callable_names"`
	SampleClassNames     []string     `json:"sample_class_names"`
	SampleQualifiedNames []string     `json:"sample_qualified_names"`
}

// LabelCount is a node label with its count.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TypeCount is a relationship type with its count.
type TypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// GetSchema returns graph schema statistics for a project. Labels are the
// all-caps NodeKind strings the pipeline stores (CLASS, METHOD, ...), so the
// sample queries filter on those same constants.
func (s *Store) GetSchema(project string) (*SchemaInfo, error) {
	info := &SchemaInfo{}

	rows, err := s.q.Query("SELECT label, COUNT(*) as cnt FROM nodes WHERE project=? GROUP BY label ORDER BY cnt DESC", project)
	if err != nil {
		return nil, fmt.Errorf("schema labels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lc LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		info.NodeLabels = append(info.NodeLabels, lc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows2, err := s.q.Query("SELECT type, COUNT(*) as cnt FROM edges WHERE project=? GROUP BY type ORDER BY cnt DESC", project)
	if err != nil {
		return nil, fmt.Errorf("schema edge types: %w", err)
	}
	defer rows2.Close()
	for rows2.Next() {
		var tc TypeCount
		if err := rows2.Scan(&tc.Type, &tc.Count); err != nil {
			return nil, err
		}
		info.RelationshipTypes = append(info.RelationshipTypes, tc)
	}
	if err := rows2.Err(); err != nil {
		return nil, err
	}

	// Relationship patterns: (src_label)-[type]->(tgt_label) with counts.
	rows3, err := s.q.Query(`
		SELECT sn.label, e.type, tn.label, COUNT(*) as cnt
		FROM edges e
		JOIN nodes sn ON e.source_id = sn.id
		JOIN nodes tn ON e.target_id = tn.id
		WHERE e.project=?
		GROUP BY sn.label, e.type, tn.label
		ORDER BY cnt DESC
		LIMIT 25`, project)
	if err != nil {
		return nil, fmt.Errorf("schema patterns: %w", err)
	}
	defer rows3.Close()
	for rows3.Next() {
		var src, rel, tgt string
		var cnt int
		if err := rows3.Scan(&src, &rel, &tgt, &cnt); err != nil {
			return nil, err
		}
		info.RelationshipPatterns = append(info.RelationshipPatterns, fmt.Sprintf("(:%s)-[:%s]->(:%s)  [%dx]", src, rel, tgt, cnt))
	}
	if err := rows3.Err(); err != nil {
		return nil, err
	}

	info.SampleCallableNames, err = s.sampleNames(project,
		"SELECT name FROM nodes WHERE project=? AND label IN (?, ?) ORDER BY name LIMIT 30",
		string(registry.Function), string(registry.Method))
	if err != nil {
		return nil, fmt.Errorf("schema sample callables: %w", err)
	}

	info.SampleClassNames, err = s.sampleNames(project,
		"SELECT name FROM nodes WHERE project=? AND label=? ORDER BY name LIMIT 20",
		string(registry.Class))
	if err != nil {
		return nil, fmt.Errorf("schema sample classes: %w", err)
	}

	info.SampleQualifiedNames, err = s.sampleNames(project,
		"SELECT qualified_name FROM nodes WHERE project=? LIMIT 5")
	if err != nil {
		return nil, fmt.Errorf("schema sample qns: %w", err)
	}

	return info, nil
}

func (s *Store) sampleNames(project, query string, labels ...any) ([]string, error) {
	args := append([]any{project}, labels...)
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}
