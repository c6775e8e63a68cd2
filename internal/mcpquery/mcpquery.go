// Package mcpquery exposes a deliberately small, read-only Model Context
// Protocol tool surface over the code graph: look up a symbol, find its
// callers, describe a project's graph schema, and estimate a symbol's impact.
package mcpquery

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codegraph/kotlingraph/internal/store"
)

// Server wraps an MCP server exposing find_symbol, find_callers, get_schema
// and impact_of over a StoreRouter's projects.
type Server struct {
	mcp      *mcp.Server
	router   *store.StoreRouter
	handlers map[string]mcp.ToolHandler
}

// Version is the MCP handshake version this server reports.
const Version = "0.1.0"

// NewServer creates an MCP server with all four query tools registered.
func NewServer(r *store.StoreRouter) *Server {
	s := &Server{
		router:   r,
		handlers: make(map[string]mcp.ToolHandler),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{Name: "codegraph-query", Version: Version},
		nil,
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server, e.g. to run over stdio.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// CallTool invokes a registered tool directly, bypassing MCP transport —
// used by cmd/codegraph's "query" subcommand for one-shot CLI lookups.
func (s *Server) CallTool(ctx context.Context, name string, argsJSON json.RawMessage) (*mcp.CallToolResult, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	if len(argsJSON) == 0 {
		argsJSON = json.RawMessage(`{}`)
	}
	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: argsJSON},
	}
	return handler(ctx, req)
}

// ToolNames returns all registered tool names in sorted order.
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) addTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	s.mcp.AddTool(tool, handler)
	s.handlers[tool.Name] = handler
}

func (s *Server) registerTools() {
	s.addTool(&mcp.Tool{
		Name: "find_symbol",
		Description: "Find a declaration (module, class, interface, enum, object, type alias, function, method, " +
			"or field) by simple name within an indexed project's code graph.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Indexed project name"},
				"name": {"type": "string", "description": "Simple (unqualified) symbol name to look up"}
			},
			"required": ["project", "name"]
		}`),
	}, s.handleFindSymbol)

	s.addTool(&mcp.Tool{
		Name: "find_callers",
		Description: "Find every CALLS edge whose callee is the given qualified-name function or method, " +
			"returning the calling declarations.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Indexed project name"},
				"qualified_name": {"type": "string", "description": "Fully-qualified name of the callee"}
			},
			"required": ["project", "qualified_name"]
		}`),
	}, s.handleFindCallers)

	s.addTool(&mcp.Tool{
		Name: "get_schema",
		Description: "Summarize an indexed project's graph: node label and relationship type counts, the " +
			"(source)-[type]->(target) patterns present, and sample callable/class/qualified names.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Indexed project name"}
			},
			"required": ["project"]
		}`),
	}, s.handleGetSchema)

	s.addTool(&mcp.Tool{
		Name: "impact_of",
		Description: "Estimate the blast radius of changing a declaration: walk CALLS, INHERITS and IMPLEMENTS " +
			"edges inbound from the given qualified name and classify each reached declaration by hop distance.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"project": {"type": "string", "description": "Indexed project name"},
				"qualified_name": {"type": "string", "description": "Fully-qualified name of the declaration under change"},
				"max_depth": {"type": "integer", "description": "BFS depth cap (default 3)"}
			},
			"required": ["project", "qualified_name"]
		}`),
	}, s.handleImpactOf)
}

func parseArgs(req *mcp.CallToolRequest) (map[string]any, error) {
	if len(req.Params.Arguments) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &m); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	return m, nil
}

func getStringArg(args map[string]any, key string) string {
	v, ok := args[key].(string)
	if !ok {
		return ""
	}
	return v
}

func jsonResult(data any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return errResult("json marshal err=" + err.Error())
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: msg}}, IsError: true}
}

func (s *Server) resolveStore(project string) (*store.Store, error) {
	if project == "" {
		return nil, fmt.Errorf("project is required")
	}
	if !s.router.HasProject(project) {
		return nil, fmt.Errorf("project %q not found; use find_symbol with a project indexed via 'codegraph index'", project)
	}
	return s.router.ForProject(project)
}

type symbolEntry struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name"`
	Label         string `json:"label"`
	FilePath      string `json:"file_path"`
	StartLine     int    `json:"start_line"`
	EndLine       int    `json:"end_line"`
}

func toSymbolEntry(n *store.Node) symbolEntry {
	return symbolEntry{
		Name:          n.Name,
		QualifiedName: n.QualifiedName,
		Label:         n.Label,
		FilePath:      n.FilePath,
		StartLine:     n.StartLine,
		EndLine:       n.EndLine,
	}
}

func (s *Server) handleFindSymbol(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	name := getStringArg(args, "name")
	if name == "" {
		return errResult("name is required"), nil
	}
	st, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(err.Error()), nil
	}

	nodes, err := st.FindNodesByName(getStringArg(args, "project"), name)
	if err != nil {
		return errResult(fmt.Sprintf("find symbol: %v", err)), nil
	}
	results := make([]symbolEntry, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, toSymbolEntry(n))
	}
	return jsonResult(map[string]any{"total": len(results), "results": results}), nil
}

func (s *Server) handleGetSchema(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	st, err := s.resolveStore(getStringArg(args, "project"))
	if err != nil {
		return errResult(err.Error()), nil
	}
	schema, err := st.GetSchema(getStringArg(args, "project"))
	if err != nil {
		return errResult(fmt.Sprintf("get schema: %v", err)), nil
	}
	return jsonResult(schema), nil
}

type impactEntry struct {
	symbolEntry
	Hop  int             `json:"hop"`
	Risk store.RiskLevel `json:"risk"`
}

func (s *Server) handleImpactOf(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	qn := getStringArg(args, "qualified_name")
	if qn == "" {
		return errResult("qualified_name is required"), nil
	}
	project := getStringArg(args, "project")
	st, err := s.resolveStore(project)
	if err != nil {
		return errResult(err.Error()), nil
	}

	target, err := st.FindNodeByQN(project, qn)
	if err != nil || target == nil {
		return errResult(fmt.Sprintf("symbol not found: %s", qn)), nil
	}

	maxDepth := 3
	if d, ok := args["max_depth"].(float64); ok && d > 0 {
		maxDepth = int(d)
	}

	res, err := st.BFS(target.ID, "inbound", []string{"CALLS", "INHERITS", "IMPLEMENTS"}, maxDepth, 200)
	if err != nil {
		return errResult(fmt.Sprintf("traverse: %v", err)), nil
	}
	hops := store.DeduplicateHops(res.Visited)
	sort.Slice(hops, func(i, j int) bool {
		if hops[i].Hop != hops[j].Hop {
			return hops[i].Hop < hops[j].Hop
		}
		return hops[i].Node.QualifiedName < hops[j].Node.QualifiedName
	})

	impacted := make([]impactEntry, 0, len(hops))
	for _, nh := range hops {
		impacted = append(impacted, impactEntry{
			symbolEntry: toSymbolEntry(nh.Node),
			Hop:         nh.Hop,
			Risk:        store.HopToRisk(nh.Hop),
		})
	}
	return jsonResult(map[string]any{
		"target":   toSymbolEntry(target),
		"summary":  store.BuildImpactSummary(hops),
		"impacted": impacted,
	}), nil
}

func (s *Server) handleFindCallers(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseArgs(req)
	if err != nil {
		return errResult(err.Error()), nil
	}
	qn := getStringArg(args, "qualified_name")
	if qn == "" {
		return errResult("qualified_name is required"), nil
	}
	project := getStringArg(args, "project")
	st, err := s.resolveStore(project)
	if err != nil {
		return errResult(err.Error()), nil
	}

	callee, err := st.FindNodeByQN(project, qn)
	if err != nil || callee == nil {
		return errResult(fmt.Sprintf("symbol not found: %s", qn)), nil
	}

	edges, err := st.FindEdgesByTargetAndType(callee.ID, "CALLS")
	if err != nil {
		return errResult(fmt.Sprintf("find callers: %v", err)), nil
	}

	results := make([]symbolEntry, 0, len(edges))
	for _, e := range edges {
		caller, err := st.FindNodeByID(e.SourceID)
		if err != nil || caller == nil {
			continue
		}
		results = append(results, toSymbolEntry(caller))
	}
	return jsonResult(map[string]any{
		"callee":  toSymbolEntry(callee),
		"total":   len(results),
		"callers": results,
	}), nil
}
