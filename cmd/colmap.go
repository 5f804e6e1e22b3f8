package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/splatprep/internal/toolcmd"
)

func newColmapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "colmap",
		Short: "COLMAP model tools",
		Long: `Tools operating on COLMAP sparse models.

The camera poses of a calibrated capture are reused for every new capture by
converting its binary model to text and clearing the triangulated points.`,
	}

	cmd.AddCommand(toolcmd.NewColmapConvertCmd())

	return cmd
}
