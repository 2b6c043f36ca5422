// File: cmd/capture.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/boxscope/internal/observability"
	"github.com/xkilldash9x/boxscope/internal/snapshot"
)

// newCaptureCmd creates the `capture` command.
func newCaptureCmd() *cobra.Command {
	var (
		output   string
		headless bool
	)

	captureCmd := &cobra.Command{
		Use:   "capture <url>",
		Short: "Load a page in Chromium and write its geometry snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := getConfig(cmd)
			logger := observability.GetLogger()
			if cmd.Flags().Changed("headless") {
				cfg.SetBrowserHeadless(headless)
			}

			sess, err := openPage(ctx, cfg, args[0], cfg.Browser().Headless, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			snap, err := sess.Capture(ctx)
			if err != nil {
				return fmt.Errorf("failed to capture %s: %w", args[0], err)
			}

			if output == "" || output == "-" {
				return snapshot.Save(cmd.OutOrStdout(), snap)
			}
			if err := snapshot.SaveFile(output, snap); err != nil {
				return err
			}
			logger.Info("Snapshot written.", zap.String("path", output), zap.String("url", snap.URL))
			return nil
		},
	}

	captureCmd.Flags().StringVarP(&output, "output", "o", "-", "snapshot file, - for stdout")
	captureCmd.Flags().BoolVar(&headless, "headless", true, "run the browser without a window")
	return captureCmd
}
