// File: cmd/pick.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/boxscope/internal/observability"
	"github.com/xkilldash9x/boxscope/internal/workspace"
)

// newPickCmd creates the `pick` command.
func newPickCmd() *cobra.Command {
	var headless bool

	pickCmd := &cobra.Command{
		Use:   "pick <url>",
		Short: "Open a page, wait for a click and print the elements under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := getConfig(cmd)
			logger := observability.GetLogger()

			sess, err := openPage(ctx, cfg, args[0], headless, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			ws := workspace.New(logger,
				workspace.WithBrowser(sess),
				workspace.WithOverlayID(cfg.Picker().OverlayID),
			)
			fmt.Fprintln(cmd.ErrOrStderr(), "Click an element in the browser window, or press Escape to cancel.")

			resp, err := ws.Pick(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				return fmt.Errorf("pick failed: %w", err)
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}

	pickCmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	return pickCmd
}
