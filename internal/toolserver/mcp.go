package toolserver

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codewell/codewell/pkg/version"
)

// mcpServer wraps toolServer with the SDK's typed tool registration and
// stdio transport, grounded on the teacher's internal/mcp.Server.
type mcpServer struct {
	*toolServer
	mcp *mcp.Server
}

// New returns a ToolServer wired from cfg.
func New(cfg Config) ToolServer {
	cfg = cfg.withDefaults()
	s := &mcpServer{toolServer: &toolServer{cfg: cfg}}
	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "codewell",
		Version: version.Version,
	}, nil)
	s.registerTools()
	return s
}

func (s *mcpServer) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "agent/discover",
		Description: "Architectural overview of the indexed project: bundle counts, per-bundle file counts, notable purposes, and total chunk count. Call this first to orient before querying.",
	}, s.discoverHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "agent/query",
		Description: "Semantic search over the indexed codebase. Returns the top matching chunks ranked by similarity, each with its file, line, name, and classified purpose.",
	}, s.queryHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "agent/investigate",
		Description: "Classify a feature description into candidate integration points: groups semantic matches by file and by purpose, and highlights purposes in the index that had no matches.",
	}, s.investigateHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_bundles",
		Description: "List every manual and non-empty smart bundle in the project, with file counts and dirty state.",
	}, s.listBundlesHandler)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "read_file",
		Description: "Read a file's content by path relative to the project root. Refuses paths that resolve outside the project.",
	}, s.readFileHandler)
}

func (s *mcpServer) discoverHandler(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, DiscoverOutput, error) {
	out, err := s.Discover(ctx)
	if err != nil {
		return nil, DiscoverOutput{}, mapError(err)
	}
	return nil, out, nil
}

func (s *mcpServer) queryHandler(ctx context.Context, _ *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	out, err := s.Query(ctx, in)
	if err != nil {
		return nil, QueryOutput{}, mapError(err)
	}
	return nil, out, nil
}

func (s *mcpServer) investigateHandler(ctx context.Context, _ *mcp.CallToolRequest, in InvestigateInput) (*mcp.CallToolResult, InvestigateOutput, error) {
	out, err := s.Investigate(ctx, in)
	if err != nil {
		return nil, InvestigateOutput{}, mapError(err)
	}
	return nil, out, nil
}

func (s *mcpServer) listBundlesHandler(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, ListBundlesOutput, error) {
	out, err := s.ListBundles(ctx)
	if err != nil {
		return nil, ListBundlesOutput{}, mapError(err)
	}
	return nil, out, nil
}

func (s *mcpServer) readFileHandler(ctx context.Context, _ *mcp.CallToolRequest, in ReadFileInput) (*mcp.CallToolResult, ReadFileOutput, error) {
	out, err := s.ReadFile(ctx, in)
	if err != nil {
		return nil, ReadFileOutput{}, mapError(err)
	}
	return nil, out, nil
}

// Serve speaks JSON-RPC 2.0 over stdio until ctx is cancelled.
func (s *mcpServer) Serve(ctx context.Context) error {
	s.cfg.Logger.Info("tool server starting", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.cfg.Logger.Error("tool server stopped with error", slog.String("error", err.Error()))
		return err
	}
	s.cfg.Logger.Info("tool server stopped")
	return nil
}
