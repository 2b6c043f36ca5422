// File: cmd/resolve.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/boxscope/api/schemas"
	"github.com/xkilldash9x/boxscope/internal/geometry"
)

// resolveOutput is the pick response plus an optional highlight of one entry.
type resolveOutput struct {
	schemas.PickResponse
	Highlight *schemas.HighlightResponse `json:"highlight,omitempty"`
}

// newResolveCmd creates the `resolve` command.
func newResolveCmd() *cobra.Command {
	var (
		snapshotPath string
		x, y         float64
		highlight    int
	)

	resolveCmd := &cobra.Command{
		Use:   "resolve",
		Short: "List the elements under a point of a saved snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := loadWorkspace(cmd, snapshotPath)
			if err != nil {
				return err
			}

			resp, err := ws.Resolve(geometry.Point{X: x, Y: y})
			if err != nil {
				return err
			}
			out := resolveOutput{PickResponse: resp}
			if cmd.Flags().Changed("highlight") {
				hl, err := ws.Highlight(highlight)
				if err != nil {
					return err
				}
				out.Highlight = &hl
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	resolveCmd.Flags().StringVar(&snapshotPath, "snapshot", "", "snapshot file written by capture")
	resolveCmd.Flags().Float64Var(&x, "x", 0, "horizontal viewport coordinate")
	resolveCmd.Flags().Float64Var(&y, "y", 0, "vertical viewport coordinate")
	resolveCmd.Flags().IntVar(&highlight, "highlight", 0, "also report the rectangle of this result index")
	_ = resolveCmd.MarkFlagRequired("snapshot")
	_ = resolveCmd.MarkFlagRequired("x")
	_ = resolveCmd.MarkFlagRequired("y")
	return resolveCmd
}
