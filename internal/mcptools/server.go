// internal/mcptools/server.go
package mcptools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/internal/workspace"
)

// NewServer builds an MCP server with the boxscope tools registered.
func NewServer(ws *workspace.Workspace, logger *zap.Logger, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "boxscope", Version: version}, nil)
	New(ws, logger).Register(server)
	return server
}

// Serve runs server on transport until the client disconnects or ctx is canceled.
func Serve(ctx context.Context, server *mcp.Server, transport mcp.Transport) error {
	if err := server.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
