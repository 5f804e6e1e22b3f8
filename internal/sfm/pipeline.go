// Package sfm runs COLMAP over a project whose camera poses are already known:
// features are matched, points triangulated against the given poses and the
// images undistorted into the layout the splatting trainer expects.
package sfm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lehigh-university-libraries/splatprep/internal/colmap"
	"github.com/lehigh-university-libraries/splatprep/internal/errs"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
)

// Config holds everything one pipeline run needs.
type Config struct {
	SourcePath   string
	NoGPU        bool
	SkipMatching bool
	// CameraModel is passed to the feature extractor.
	CameraModel string
	Colmap      string
	// Magick, when set, delegates resizing to ImageMagick's mogrify.
	Magick string
	Resize bool
}

// Layout names the directories of a project under SourcePath.
type Layout struct {
	Database     string
	Input        string
	ModelTxt     string
	Triangulated string
	Sparse       string
	Images       string
}

// NewLayout derives the project layout from a source path.
func NewLayout(source string) Layout {
	return Layout{
		Database:     filepath.Join(source, "distorted", "database.db"),
		Input:        filepath.Join(source, "input"),
		ModelTxt:     filepath.Join(source, "model_txt"),
		Triangulated: filepath.Join(source, "triangulated_model"),
		Sparse:       filepath.Join(source, "sparse"),
		Images:       filepath.Join(source, "images"),
	}
}

// Pipeline executes the steps of Config through a runner.
type Pipeline struct {
	cfg     Config
	layout  Layout
	runner  runner.Runner
	resizer Resizer
}

// New creates a pipeline. When cfg.Magick is empty images are resized in-process.
func New(cfg Config, r runner.Runner) *Pipeline {
	if cfg.Colmap == "" {
		cfg.Colmap = "colmap"
	}
	if cfg.CameraModel == "" {
		cfg.CameraModel = "PINHOLE"
	}
	var rs Resizer = LanczosResizer{}
	if cfg.Magick != "" {
		rs = &MagickResizer{Runner: r, Exe: cfg.Magick}
	}
	return &Pipeline{cfg: cfg, layout: NewLayout(cfg.SourcePath), runner: r, resizer: rs}
}

// Run executes every step in order and stops at the first failure.
func (p *Pipeline) Run(ctx context.Context) error {
	if info, err := os.Stat(p.cfg.SourcePath); err != nil || !info.IsDir() {
		return errs.NotFound("source path", p.cfg.SourcePath)
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
		skip bool
	}{
		{"feature matching", p.matchFeatures, p.cfg.SkipMatching},
		{"point triangulation", p.triangulate, false},
		{"image undistortion", p.undistort, false},
		{"image resizing", p.resizeImages, !p.cfg.Resize},
	}
	for _, s := range steps {
		if s.skip {
			slog.Debug("Skipping step", "step", s.name)
			continue
		}
		slog.Info("Running step", "step", s.name)
		if err := s.fn(ctx); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	slog.Info("Structure from motion finished", "source", p.cfg.SourcePath)
	return nil
}

func (p *Pipeline) useGPU() string {
	if p.cfg.NoGPU {
		return "0"
	}
	return "1"
}

func (p *Pipeline) colmap(ctx context.Context, args ...string) error {
	_, err := runner.RunChecked(ctx, p.runner, runner.Invocation{Name: p.cfg.Colmap, Args: args})
	return err
}

func (p *Pipeline) matchFeatures(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(p.cfg.SourcePath, "distorted", "sparse"), 0755); err != nil {
		return fmt.Errorf("failed to create distorted/sparse: %w", err)
	}

	if err := p.colmap(ctx, "feature_extractor",
		"--database_path", p.layout.Database,
		"--image_path", p.layout.Input,
		"--ImageReader.camera_model", p.cfg.CameraModel,
		"--ImageReader.single_camera", "1",
		"--SiftExtraction.use_gpu", p.useGPU(),
		"--SiftExtraction.max_image_size", "2000",
		"--SiftExtraction.max_num_features", "10000",
		"--SiftExtraction.peak_threshold", "0.005",
		"--SiftExtraction.edge_threshold", "5",
	); err != nil {
		return err
	}

	return p.colmap(ctx, "exhaustive_matcher",
		"--database_path", p.layout.Database,
		"--SiftMatching.use_gpu", p.useGPU(),
		"--SiftMatching.guided_matching", "1",
		"--SiftMatching.max_num_matches", "100000",
		"--SiftMatching.max_ratio", "0.99",
	)
}

func (p *Pipeline) triangulate(ctx context.Context) error {
	if err := os.MkdirAll(p.layout.ModelTxt, 0755); err != nil {
		return fmt.Errorf("failed to create model_txt: %w", err)
	}
	if err := colmap.EnsurePoints3D(p.layout.ModelTxt); err != nil {
		return err
	}
	if err := os.MkdirAll(p.layout.Triangulated, 0755); err != nil {
		return fmt.Errorf("failed to create triangulated_model: %w", err)
	}

	if err := p.colmap(ctx, "point_triangulator",
		"--database_path", p.layout.Database,
		"--image_path", p.layout.Input,
		"--input_path", p.layout.ModelTxt,
		"--output_path", p.layout.Triangulated,
	); err != nil {
		return err
	}

	model0 := filepath.Join(p.layout.Triangulated, "0")
	if err := os.MkdirAll(model0, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	for _, name := range []string{"cameras.bin", "images.bin", "points3D.bin"} {
		src := filepath.Join(p.layout.Triangulated, name)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := os.Rename(src, filepath.Join(model0, name)); err != nil {
			return fmt.Errorf("failed to move %s: %w", name, err)
		}
	}
	return nil
}

func (p *Pipeline) undistort(ctx context.Context) error {
	if err := p.colmap(ctx, "image_undistorter",
		"--image_path", p.layout.Input,
		"--input_path", filepath.Join(p.layout.Triangulated, "0"),
		"--output_path", p.cfg.SourcePath,
		"--output_type", "COLMAP",
	); err != nil {
		return err
	}
	return nestSparse(p.layout.Sparse)
}

// nestSparse moves every entry of sparse/ except "0" into sparse/0.
func nestSparse(sparse string) error {
	entries, err := os.ReadDir(sparse)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sparse directory: %w", err)
	}
	dst := filepath.Join(sparse, "0")
	if err := os.MkdirAll(dst, 0755); err != nil {
		return fmt.Errorf("failed to create sparse/0: %w", err)
	}
	for _, e := range entries {
		if e.Name() == "0" {
			continue
		}
		if err := os.Rename(filepath.Join(sparse, e.Name()), filepath.Join(dst, e.Name())); err != nil {
			return fmt.Errorf("failed to move %s: %w", e.Name(), err)
		}
	}
	return nil
}

// scales are the downsampled copies the trainer can pick with --resolution.
var scales = []struct {
	dir     string
	percent float64
}{
	{"images_2", 50},
	{"images_4", 25},
	{"images_8", 12.5},
}

func (p *Pipeline) resizeImages(ctx context.Context) error {
	entries, err := os.ReadDir(p.layout.Images)
	if err != nil {
		return fmt.Errorf("failed to read images directory: %w", err)
	}
	slog.Info("Copying and resizing images", "count", len(entries))

	for _, s := range scales {
		if err := os.MkdirAll(filepath.Join(p.cfg.SourcePath, s.dir), 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", s.dir, err)
		}
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		src := filepath.Join(p.layout.Images, e.Name())
		for _, s := range scales {
			dst := filepath.Join(p.cfg.SourcePath, s.dir, e.Name())
			if err := copyFile(src, dst); err != nil {
				return err
			}
			if err := p.resizer.Resize(ctx, dst, s.percent); err != nil {
				return fmt.Errorf("resize %s to %s%%: %w", dst, strconv.FormatFloat(s.percent, 'f', -1, 64), err)
			}
		}
	}
	return nil
}
