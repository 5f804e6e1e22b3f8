package toolcmd

import (
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/splatprep/internal/depthmap"
	"github.com/lehigh-university-libraries/splatprep/internal/frames"
	"github.com/lehigh-university-libraries/splatprep/internal/mask"
	"github.com/lehigh-university-libraries/splatprep/internal/sfm"
	"github.com/lehigh-university-libraries/splatprep/internal/sweep"
	"github.com/lehigh-university-libraries/splatprep/internal/trajectory"
	"github.com/lehigh-university-libraries/splatprep/internal/whitebalance"
)

// NewImagesUpdateCmd creates the command that rewrites a COLMAP images.txt
func NewImagesUpdateCmd() *cobra.Command {
	var original string
	var newNames string
	var output string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Rewrite a COLMAP images.txt, optionally renaming every image",
		Long: `Rewrite a COLMAP images.txt so that every pose line is followed by an empty
points line. With --new_names the last field of each pose line is replaced by
the corresponding line of the names file.

Nothing is written unless the file and the names list are consistent.`,
		Example: `  # Clear all 2D points in place
  splatprep images update --original model_txt/images.txt --output model_txt/images.txt

  # Rename images while rewriting
  splatprep images update --original images.txt --new_names names.txt --output images_new.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeImagesUpdate(cmd.OutOrStdout(), original, newNames, output)
		},
	}

	cmd.Flags().StringVar(&original, "original", "", "Path to the original images.txt (required)")
	cmd.Flags().StringVar(&newNames, "new_names", "", "Optional file with one new image name per line")
	cmd.Flags().StringVar(&output, "output", "", "Path of the images.txt to write (required)")

	_ = cmd.MarkFlagRequired("original")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// NewValFileCmd creates the command that writes a test.txt evaluation list
func NewValFileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "valfile <directory> <filename>...",
		Short:   "Write test.txt listing the images held out for evaluation",
		Args:    cobra.MinimumNArgs(2),
		Example: `  splatprep valfile data/capture/sparse/0 val.jpg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeValFile(cmd.OutOrStdout(), args[0], args[1:])
		},
	}
	return cmd
}

// NewColmapConvertCmd creates the command that converts a binary model to text
func NewColmapConvertCmd() *cobra.Command {
	var input string
	var output string
	var colmapExe string

	cmd := &cobra.Command{
		Use:     "convert",
		Short:   "Convert a binary COLMAP model to text and clear points3D.txt",
		Example: `  splatprep colmap convert -i data/params/distorted/sparse/0 -o data/capture/model_txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeColmapConvert(cmd.Context(), cmd.OutOrStdout(), input, output, colmapExe)
		},
	}

	cmd.Flags().StringVarP(&input, "input_path", "i", "", "Directory of the binary model (required)")
	cmd.Flags().StringVarP(&output, "output_path", "o", "", "Directory for the text model (required)")
	cmd.Flags().StringVar(&colmapExe, "colmap_executable", "", "COLMAP binary (default $COLMAP_EXECUTABLE or colmap)")

	_ = cmd.MarkFlagRequired("input_path")
	_ = cmd.MarkFlagRequired("output_path")
	return cmd
}

// NewSfMCmd creates the command that runs structure from motion with known poses
func NewSfMCmd() *cobra.Command {
	var cfg sfm.Config

	cmd := &cobra.Command{
		Use:   "sfm",
		Short: "Triangulate and undistort a capture whose camera poses are known",
		Long: `Run COLMAP feature extraction and matching, triangulate points against the
poses in <source>/model_txt, undistort the images and optionally write
downscaled copies into images_2, images_4 and images_8.`,
		Example: `  splatprep sfm --source_path data/capture --resize
  splatprep sfm -s data/capture --skip_matching --no_gpu`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeSfM(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}

	cmd.Flags().StringVarP(&cfg.SourcePath, "source_path", "s", "", "Project directory (required)")
	cmd.Flags().BoolVar(&cfg.NoGPU, "no_gpu", false, "Disable GPU feature extraction and matching")
	cmd.Flags().BoolVar(&cfg.SkipMatching, "skip_matching", false, "Skip feature extraction and matching")
	cmd.Flags().StringVar(&cfg.CameraModel, "camera", "PINHOLE", "Camera model for feature extraction")
	cmd.Flags().StringVar(&cfg.Colmap, "colmap_executable", "", "COLMAP binary (default $COLMAP_EXECUTABLE or colmap)")
	cmd.Flags().BoolVar(&cfg.Resize, "resize", false, "Write downscaled image copies")
	cmd.Flags().StringVar(&cfg.Magick, "magick_executable", "", "Resize with ImageMagick instead of in-process")

	_ = cmd.MarkFlagRequired("source_path")
	return cmd
}

// NewFramesCmd creates the command that extracts every frame of a video
func NewFramesCmd() *cobra.Command {
	var opts frames.Options
	var ffmpegExe string
	var ffprobeExe string

	cmd := &cobra.Command{
		Use:     "frames <video> <output>",
		Short:   "Extract every frame of a video as JPEG images",
		Args:    cobra.ExactArgs(2),
		Example: `  splatprep frames capture.mp4 data/capture/input --prefix cam`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Video, opts.Output = args[0], args[1]
			return executeFrames(cmd.Context(), cmd.OutOrStdout(), opts, ffmpegExe, ffprobeExe)
		},
	}

	cmd.Flags().StringVar(&opts.Prefix, "prefix", "frame", "Filename prefix for saved frames")
	cmd.Flags().StringVar(&opts.Ext, "ext", ".jpg", "Image file extension (.jpg or .jpeg)")
	cmd.Flags().StringVar(&ffmpegExe, "ffmpeg_executable", "", "ffmpeg binary (default $FFMPEG_EXECUTABLE or ffmpeg)")
	cmd.Flags().StringVar(&ffprobeExe, "ffprobe_executable", "", "ffprobe binary (default $FFPROBE_EXECUTABLE or ffprobe)")
	return cmd
}

// NewDepthCmd creates the command that writes depth and segmentation maps
func NewDepthCmd() *cobra.Command {
	var f depthFlags

	cmd := &cobra.Command{
		Use:   "depth <input_dir> <depth_dir> <seg_dir>",
		Short: "Create depth and person segmentation maps for every image",
		Long: `Run the depth and segmentation models over every image in <input_dir>.

Depth maps are normalised, forced to far outside the person and stored as
Turbo-coloured PNGs; segmentation maps are 0/255 grey PNGs. Output files are
always named <stem>.png.`,
		Args: cobra.ExactArgs(3),
		Example: `  splatprep depth data/capture/images data/capture/depth data/capture/segmantation
  splatprep depth in depth seg --device cpu --models ./models`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := depthmap.Options{InputDir: args[0], DepthDir: args[1], SegDir: args[2]}
			return executeDepth(cmd.Context(), cmd.OutOrStdout(), opts, f)
		},
	}

	cmd.Flags().StringVar(&f.modelsDir, "models", "", "Directory holding the ONNX models (default $SPLATPREP_MODELS_DIR or ./models)")
	cmd.Flags().StringVar(&f.device, "device", string(depthmap.DeviceGPU), "Device to run the models on (cpu or gpu)")
	cmd.Flags().StringVar(&f.depthModel, "depth-model", "", "Depth model file (default <models>/"+depthmap.DefaultDepthModel+")")
	cmd.Flags().StringVar(&f.segModel, "seg-model", "", "Segmentation model file (default <models>/"+depthmap.DefaultSegModel+")")
	cmd.Flags().StringVar(&f.ortLibrary, "onnxruntime", "", "Path to the onnxruntime shared library")
	cmd.Flags().IntVar(&f.workers, "workers", 1, "Images processed concurrently")
	return cmd
}

// NewMaskCmd creates the command that whitens image backgrounds
func NewMaskCmd() *cobra.Command {
	var opts mask.Options

	cmd := &cobra.Command{
		Use:     "mask <image_dir> <mask_dir> <output_dir>",
		Short:   "Apply segmentation masks and fill the background with white",
		Args:    cobra.ExactArgs(3),
		Example: `  splatprep mask data/capture/images data/capture/segmantation data/capture/masked`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ImageDir, opts.MaskDir, opts.OutputDir = args[0], args[1], args[2]
			return executeMask(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "Images processed concurrently")
	return cmd
}

// NewWhitebalanceCmd creates the command that balances every person's images
func NewWhitebalanceCmd() *cobra.Command {
	opts := whitebalance.Options{}

	cmd := &cobra.Command{
		Use:   "whitebalance",
		Short: "White-balance and normalise brightness of captured images",
		Long: `For every person directory under --data, read original_images, balance
white on a reference pixel, normalise mean luminance and write the result to
original_images_white_lum. Front and left views get an extra brightness boost.`,
		Example: `  splatprep whitebalance --data data --target 150`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeWhitebalance(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.DataDir, "data", "data", "Directory holding one directory per person")
	cmd.Flags().IntVar(&opts.Row, "row", whitebalance.DefaultRow, "Row of the reference pixel (centre column)")
	cmd.Flags().Float64Var(&opts.Target, "target", whitebalance.DefaultTarget, "Target mean luminance")
	cmd.Flags().Float64Var(&opts.Boost, "boost", whitebalance.DefaultBoost, "Extra brightness factor for front and left views")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "Images processed concurrently")
	return cmd
}

// NewTrajectoryCmd creates the command that interpolates a camera path
func NewTrajectoryCmd() *cobra.Command {
	var opts trajectory.Options
	var split string

	cmd := &cobra.Command{
		Use:   "trajectory",
		Short: "Interpolate a smooth camera path through the views of a model",
		Long: `Read a COLMAP text model, order its views by name and insert --steps
interpolated cameras between each consecutive pair (slerp on rotation, linear
on position). The path is written as a COLMAP text model and as cameras.json.`,
		Example: `  splatprep trajectory --model data/capture/sparse/0 --output renders --steps 10
  splatprep trajectory --model model_txt --output out --renderer ./render.sh --renderer-arg -m --renderer-arg outputs/capture_model`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeTrajectory(cmd.Context(), cmd.OutOrStdout(), opts, split)
		},
	}

	cmd.Flags().StringVar(&opts.Model, "model", "", "Directory of the COLMAP text model (required)")
	cmd.Flags().StringVar(&opts.Output, "output", "", "Output directory (required)")
	cmd.Flags().IntVar(&opts.Steps, "steps", 5, "Intermediate cameras between each pair of views")
	cmd.Flags().StringVar(&split, "split", string(trajectory.SplitTrain), "Views to use: train, test or all")
	cmd.Flags().Float64Var(&opts.Scale, "scale", 1.0, "Resolution divisor (1.0 = original resolution)")
	cmd.Flags().StringVar(&opts.Renderer, "renderer", "", "Executable that renders the trajectory")
	cmd.Flags().StringArrayVar(&opts.RendererArgs, "renderer-arg", nil, "Argument passed to the renderer (repeatable)")

	_ = cmd.MarkFlagRequired("model")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// NewSweepRunCmd creates the sweep agent command
func NewSweepRunCmd() *cobra.Command {
	var f sweepFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a hyperparameter sweep agent",
		Long: `Prepare the capture once, then train the Gaussian-splatting model with sampled
hyperparameters. Every run and its test PSNR are recorded in the local sweep
database. The sweep id is kept in .sweep_id so --resume can continue it.`,
		Example: `  # One run of a new sweep
  splatprep sweep run --data_name moritz_without_brett

  # Keep running the last sweep until interrupted
  splatprep sweep run --resume --count 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeSweepRun(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().IntVar(&f.count, "count", 1, "Runs to perform (0 = until interrupted)")
	cmd.Flags().BoolVar(&f.resume, "resume", false, "Continue the sweep stored in the sweep id file")
	cmd.Flags().StringVar(&f.dataName, "data_name", "", "Capture directory under --data_dir")
	cmd.Flags().StringVar(&f.config, "config", "", "Sweep configuration YAML (default: built-in)")
	cmd.Flags().StringVar(&f.db, "db", "", "Sweep database (default $SPLATPREP_SWEEP_DB or "+sweep.DefaultDBPath+")")
	cmd.Flags().StringVar(&f.idFile, "sweep_id_file", sweep.DefaultSweepIDFile, "File holding the current sweep id")
	cmd.Flags().StringVar(&f.dataDir, "data_dir", sweep.DefaultDataDir, "Directory holding the captures")
	cmd.Flags().StringVar(&f.paramsName, "params_name", sweep.DefaultParamsName, "Capture with the calibrated camera poses")
	cmd.Flags().StringVar(&f.outputsDir, "outputs_dir", sweep.DefaultOutputsDir, "Directory for trained models")
	cmd.Flags().StringSliceVar(&f.valImages, "val", sweep.DefaultValImages, "Images held out for evaluation")
	cmd.Flags().StringVar(&f.sfmScript, "sfm_script", "utils/sfm.py", "Script reconstructing the parameter capture (empty to skip)")
	cmd.Flags().StringVar(&f.depthScript, "depth_scale_script", "utils/make_depth_scale.py", "Script computing depth scales (empty to skip)")
	cmd.Flags().StringVar(&f.trainScript, "train_script", "", "Trainer script (default $SPLATPREP_TRAIN_SCRIPT or "+sweep.DefaultTrainScript+")")
	cmd.Flags().StringVar(&f.python, "python", "", "Python interpreter (default $SPLATPREP_PYTHON or "+sweep.DefaultPython+")")
	cmd.Flags().StringVar(&f.colmap, "colmap_executable", "", "COLMAP binary (default $COLMAP_EXECUTABLE or colmap)")
	cmd.Flags().StringVar(&f.magick, "magick_executable", "", "ImageMagick binary used for resizing")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed (0 = time based)")
	return cmd
}

// NewSweepReportCmd creates the sweep report command
func NewSweepReportCmd() *cobra.Command {
	var db string
	var id string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarise the runs of a sweep",
		Example: `  splatprep sweep report
  splatprep sweep report --sweep 3f0c... --format csv > runs.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeSweepReport(cmd.Context(), cmd.OutOrStdout(), db, id, format)
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "Sweep database (default $SPLATPREP_SWEEP_DB or "+sweep.DefaultDBPath+")")
	cmd.Flags().StringVar(&id, "sweep", "", "Sweep id (default: latest sweep)")
	cmd.Flags().StringVar(&format, "format", sweep.FormatText, "Output format (text, json, csv)")
	return cmd
}

// NewSweepExportCmd creates the sweep export command
func NewSweepExportCmd() *cobra.Command {
	var db string
	var id string
	var output string

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Export the runs of a sweep to Parquet",
		Example: `  splatprep sweep export --output runs.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeSweepExport(cmd.Context(), cmd.OutOrStdout(), db, id, output)
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "Sweep database (default $SPLATPREP_SWEEP_DB or "+sweep.DefaultDBPath+")")
	cmd.Flags().StringVar(&id, "sweep", "", "Sweep id (default: latest sweep)")
	cmd.Flags().StringVar(&output, "output", "sweep_runs.parquet", "Parquet file to write")
	return cmd
}
