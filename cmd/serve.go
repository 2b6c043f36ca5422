// File: cmd/serve.go
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/internal/observability"
	"github.com/xkilldash9x/boxscope/internal/server"
)

// newServeCmd creates the `serve` command.
func newServeCmd() *cobra.Command {
	var (
		opts   workspaceOptions
		listen string
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pick API and WebSocket to the devtools panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := getConfig(cmd)
			logger := observability.GetLogger()
			if listen != "" {
				cfg.SetServerListenAddr(listen)
			}

			ws, cleanup, err := opts.build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			logger.Info("Starting server.",
				zap.String("listen_addr", cfg.Server().ListenAddr),
				zap.Bool("browser", ws.HasBrowser()),
			)
			srv := server.New(cfg.Server(), ws, logger)
			defer srv.Close()
			return srv.ListenAndServe(ctx)
		},
	}

	opts.addFlags(serveCmd)
	serveCmd.Flags().StringVar(&listen, "listen", "", "override server.listen_addr")
	return serveCmd
}
