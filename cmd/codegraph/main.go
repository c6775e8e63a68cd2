// Command codegraph indexes a Kotlin/JVM repository into a code knowledge
// graph and serves read-only queries over it, either as one-shot CLI lookups
// or as a Model Context Protocol server over stdio.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/codegraph/kotlingraph/internal/config"
	"github.com/codegraph/kotlingraph/internal/mcpquery"
	"github.com/codegraph/kotlingraph/internal/pipeline"
	"github.com/codegraph/kotlingraph/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "codegraph",
		Short: "Build and query a code knowledge graph for a Kotlin/JVM repository",
	}
	root.AddCommand(newIndexCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newServeCmd())
	return root
}

func newIndexCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Parse a repository and populate its code graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			repoPath := args[0]

			cfg, err := config.LoadFromRepo(repoPath)
			if err != nil {
				return err
			}

			s, err := store.Open(pipeline.ProjectNameFromPath(repoPath))
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer s.Close()

			p := pipeline.New(s, repoPath)
			p.ExtraIgnore = cfg.Ignore
			if cfg.Project != "" {
				p.ProjectName = cfg.Project
			}

			if err := p.Run(cmd.Context()); err != nil {
				return fmt.Errorf("index: %w", err)
			}

			nodes, _ := s.CountNodes(p.ProjectName)
			edges, _ := s.CountEdges(p.ProjectName)
			fmt.Printf("indexed %s: %d nodes, %d edges\n", p.ProjectName, nodes, edges)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var project, symbol, callee, impact string
	var schema bool
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a one-shot graph query against an indexed project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if project == "" {
				return fmt.Errorf("--project is required")
			}

			var tool string
			var toolArgs map[string]any
			switch {
			case symbol != "":
				tool, toolArgs = "find_symbol", map[string]any{"project": project, "name": symbol}
			case callee != "":
				tool, toolArgs = "find_callers", map[string]any{"project": project, "qualified_name": callee}
			case impact != "":
				tool, toolArgs = "impact_of", map[string]any{"project": project, "qualified_name": impact}
			case schema:
				tool, toolArgs = "get_schema", map[string]any{"project": project}
			default:
				return fmt.Errorf("one of --symbol, --callers-of, --impact-of or --schema is required")
			}

			r, err := store.NewRouter()
			if err != nil {
				return fmt.Errorf("open router: %w", err)
			}
			defer r.CloseAll()

			srv := mcpquery.NewServer(r)
			return runQueryTool(cmd.Context(), srv, tool, toolArgs)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "indexed project name")
	cmd.Flags().StringVar(&symbol, "symbol", "", "find a declaration by simple name")
	cmd.Flags().StringVar(&callee, "callers-of", "", "find callers of a fully-qualified function or method")
	cmd.Flags().StringVar(&impact, "impact-of", "", "estimate the blast radius of changing a fully-qualified declaration")
	cmd.Flags().BoolVar(&schema, "schema", false, "summarize the project's node labels, edge types and patterns")
	return cmd
}

func runQueryTool(ctx context.Context, srv *mcpquery.Server, tool string, args map[string]any) error {
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return err
	}
	result, err := srv.CallTool(ctx, tool, argsJSON)
	if err != nil {
		return err
	}
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			fmt.Println(tc.Text)
		}
	}
	if result.IsError {
		return fmt.Errorf("%s failed", tool)
	}
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only MCP query server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := store.NewRouter()
			if err != nil {
				return fmt.Errorf("open router: %w", err)
			}
			defer r.CloseAll()

			srv := mcpquery.NewServer(r)
			return srv.MCPServer().Run(cmd.Context(), &mcp.StdioTransport{})
		},
	}
}
