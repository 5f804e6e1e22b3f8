package depthmap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/lehigh-university-libraries/splatprep/internal/images"
)

// Options configure a batch run.
type Options struct {
	InputDir string
	DepthDir string
	SegDir   string
	Workers  int
}

// Summary reports what a batch run wrote.
type Summary struct {
	Processed int
}

// Processor pairs a segmentation and a depth predictor.
type Processor struct {
	Seg   Predictor
	Depth Predictor
}

// Process writes <stem>.png depth and mask images for every photo in
// opts.InputDir.
func (p *Processor) Process(ctx context.Context, opts Options) (*Summary, error) {
	files, err := images.List(opts.InputDir, images.PhotoExts)
	if err != nil {
		return nil, err
	}
	for _, dir := range []string{opts.DepthDir, opts.SegDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var done atomic.Int64
	err = images.ForEach(ctx, files, opts.Workers, func(ctx context.Context, f images.File) error {
		depthPath := filepath.Join(opts.DepthDir, f.Stem+".png")
		segPath := filepath.Join(opts.SegDir, f.Stem+".png")
		if err := p.processOne(ctx, f.Path, depthPath, segPath); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		done.Add(1)
		slog.Info("Processed", "file", f.Name, "seg", segPath, "depth", depthPath)
		return nil
	})
	return &Summary{Processed: int(done.Load())}, err
}

func (p *Processor) processOne(ctx context.Context, src, depthPath, segPath string) error {
	img, err := images.Open(src)
	if err != nil {
		return err
	}
	seg, err := p.Seg.Predict(ctx, img)
	if err != nil {
		return fmt.Errorf("segmentation: %w", err)
	}
	depth, err := p.Depth.Predict(ctx, img)
	if err != nil {
		return fmt.Errorf("depth: %w", err)
	}

	b := img.Bounds()
	maps, err := Compose(b.Dx(), b.Dy(), seg, depth)
	if err != nil {
		return err
	}
	if err := images.Save(maps.Mask, segPath); err != nil {
		return err
	}
	return images.Save(maps.Depth, depthPath)
}

// Close releases both predictors.
func (p *Processor) Close() error {
	var first error
	for _, pr := range []Predictor{p.Seg, p.Depth} {
		if pr == nil {
			continue
		}
		if err := pr.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
