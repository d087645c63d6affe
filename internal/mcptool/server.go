package mcptool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "lexhub-devtools"
	serverVersion = "0.1.0"
)

// Server exposes the code-quality tools over MCP stdio.
type Server struct {
	mcpServer *mcp.Server
}

// NewServer registers the lint, review and watch tools. completer may
// be nil, in which case review_source is not offered.
func NewServer(completer Completer) *Server {
	mcpServer := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(mcpServer, LintTool(), LintHandler())
	mcp.AddTool(mcpServer, WatchTool(), WatchHandler())
	if completer != nil {
		mcp.AddTool(mcpServer, ReviewTool(), ReviewHandler(completer))
	}

	return &Server{mcpServer: mcpServer}
}

// Serve runs the server on stdio until the context ends.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
