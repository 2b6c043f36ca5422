// File: cmd/mcp.go
package cmd

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/boxscope/internal/mcptools"
	"github.com/xkilldash9x/boxscope/internal/observability"
)

// newMCPCmd creates the `mcp` command.
func newMCPCmd() *cobra.Command {
	var opts workspaceOptions

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the boxscope tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			ws, cleanup, err := opts.build(ctx, getConfig(cmd), logger)
			if err != nil {
				return err
			}
			defer cleanup()

			logger.Info("MCP server listening on stdio.")
			return mcptools.Serve(ctx, mcptools.NewServer(ws, logger, Version), &mcp.StdioTransport{})
		},
	}

	opts.addFlags(mcpCmd)
	return mcpCmd
}
