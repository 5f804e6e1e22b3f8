package cmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/splatprep/internal/toolcmd"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Hyperparameter sweeps for Gaussian-splatting training",
		Long: `Sweep tools search training hyperparameters for the best test PSNR.

Runs are recorded in a local SQLite database and can be summarised as text,
JSON or CSV, or exported to Parquet for further analysis.`,
	}

	cmd.AddCommand(toolcmd.NewSweepRunCmd())
	cmd.AddCommand(toolcmd.NewSweepReportCmd())
	cmd.AddCommand(toolcmd.NewSweepExportCmd())

	return cmd
}
