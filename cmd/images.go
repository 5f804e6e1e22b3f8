package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/splatprep/internal/toolcmd"
)

func newImagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "COLMAP images.txt tools",
	}

	cmd.AddCommand(toolcmd.NewImagesUpdateCmd())

	return cmd
}
