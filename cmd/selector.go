// File: cmd/selector.go
package cmd

import (
	"github.com/spf13/cobra"
)

// newSelectorCmd creates the `selector` command.
func newSelectorCmd() *cobra.Command {
	var snapshotPath, xpath, css string

	selectorCmd := &cobra.Command{
		Use:   "selector",
		Short: "Print the unique CSS selector and XPath of a node in a saved snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd, snapshotPath)
			if err != nil {
				return err
			}
			resp, err := ws.Locate(xpath, css)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}

	selectorCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot file written by capture")
	selectorCmd.Flags().StringVar(&xpath, "xpath", "", "XPath of the node")
	selectorCmd.Flags().StringVar(&css, "selector", "", "CSS selector of the node")
	_ = selectorCmd.MarkFlagRequired("snapshot")
	selectorCmd.MarkFlagsOneRequired("xpath", "selector")
	selectorCmd.MarkFlagsMutuallyExclusive("xpath", "selector")
	return selectorCmd
}
