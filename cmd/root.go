package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/splatprep/internal/toolcmd"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "splatprep",
		Short: "Data preparation tools for Gaussian-splatting captures",
		Long: `Splatprep prepares multi-camera captures for Gaussian-splatting training.

It extracts video frames, runs COLMAP structure from motion with known camera
poses, creates depth and segmentation maps, masks and white-balances images,
interpolates camera trajectories and runs hyperparameter sweeps.

External tools (colmap, ffmpeg, ffprobe, magick, python) are located through
flags, then environment variables such as COLMAP_EXECUTABLE, then PATH.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}

	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	cmd.AddCommand(newImagesCmd())
	cmd.AddCommand(newColmapCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(toolcmd.NewValFileCmd())
	cmd.AddCommand(toolcmd.NewSfMCmd())
	cmd.AddCommand(toolcmd.NewFramesCmd())
	cmd.AddCommand(toolcmd.NewDepthCmd())
	cmd.AddCommand(toolcmd.NewMaskCmd())
	cmd.AddCommand(toolcmd.NewWhitebalanceCmd())
	cmd.AddCommand(toolcmd.NewTrajectoryCmd())

	return cmd
}
