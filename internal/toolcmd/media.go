package toolcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/splatprep/internal/depthmap"
	"github.com/lehigh-university-libraries/splatprep/internal/frames"
	"github.com/lehigh-university-libraries/splatprep/internal/images"
	"github.com/lehigh-university-libraries/splatprep/internal/mask"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
	"github.com/lehigh-university-libraries/splatprep/internal/whitebalance"
)

func executeFrames(ctx context.Context, out io.Writer, opts frames.Options, ffmpegExe, ffprobeExe string) error {
	ex := frames.NewExtractor(newRunner(),
		runner.Resolve("ffmpeg", ffmpegExe, EnvFFmpeg),
		runner.Resolve("ffprobe", ffprobeExe, EnvFFprobe),
	)
	res, err := ex.Extract(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Extracted %d frames to %s\n", res.Written, opts.Output)
	return nil
}

type depthFlags struct {
	modelsDir  string
	device     string
	depthModel string
	segModel   string
	ortLibrary string
	workers    int
}

// newPredictor is replaced in tests.
var newPredictor = func(opts depthmap.ModelOptions) (depthmap.Predictor, error) {
	p, err := depthmap.NewONNXPredictor(opts)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func executeDepth(ctx context.Context, out io.Writer, opts depthmap.Options, f depthFlags) error {
	device, err := depthmap.ParseDevice(f.device)
	if err != nil {
		return err
	}
	if err := images.RequireDir("input directory", opts.InputDir); err != nil {
		return err
	}
	modelsDir := envOr(f.modelsDir, EnvModelsDir, defaultModelsDir)
	if err := images.RequireDir("models directory", modelsDir); err != nil {
		return err
	}

	load := func(kind depthmap.Kind, file string) (depthmap.Predictor, error) {
		mo := depthmap.DefaultModelOptions(modelsDir, kind)
		if file != "" {
			mo.Path = file
		}
		mo.Device = device
		mo.ORTSharedLibraryPath = envOr(f.ortLibrary, EnvORTLibrary, "")
		return newPredictor(mo)
	}

	seg, err := load(depthmap.KindSegmentation, f.segModel)
	if err != nil {
		return fmt.Errorf("failed to load segmentation model: %w", err)
	}
	depth, err := load(depthmap.KindDepth, f.depthModel)
	if err != nil {
		seg.Close()
		return fmt.Errorf("failed to load depth model: %w", err)
	}
	proc := &depthmap.Processor{Seg: seg, Depth: depth}
	defer func() {
		if err := proc.Close(); err != nil {
			slog.Warn("Failed to release models", "error", err)
		}
	}()

	opts.Workers = f.workers
	summary, err := proc.Process(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Wrote depth and segmentation maps for %d images\n", summary.Processed)
	return nil
}

func executeMask(ctx context.Context, out io.Writer, opts mask.Options) error {
	summary, err := mask.Run(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Masked %d images into %s\n", summary.Written, opts.OutputDir)
	if n := len(summary.Unmatched); n > 0 {
		fmt.Fprintf(out, "⚠️  %d images had no mask\n", n)
	}
	return nil
}

func executeWhitebalance(ctx context.Context, out io.Writer, opts whitebalance.Options) error {
	summary, err := whitebalance.Run(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Balanced %d images for %d persons (%d skipped)\n", summary.Written, summary.Persons, summary.Skipped)
	return nil
}
