package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/splatprep/internal/colmap"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
	"github.com/lehigh-university-libraries/splatprep/internal/sfm"
)

// Layout locates the data a sweep trains on.
type Layout struct {
	// DataDir holds one directory per capture plus the shared camera
	// parameter capture.
	DataDir string
	// ParamsName is the capture whose calibrated poses every run reuses.
	ParamsName string
	// DataName is the capture being trained.
	DataName string
	// OutputsDir receives trained models.
	OutputsDir string
}

// Layout defaults.
const (
	DefaultDataDir    = "data"
	DefaultParamsName = "cam_params_big_brett"
	DefaultDataName   = "moritz_without_brett"
	DefaultOutputsDir = "outputs"
	PrepDoneMarker    = ".prep_done"
)

// DefaultValImages are held out as the test split.
var DefaultValImages = []string{"val.jpg"}

// Source is the capture directory being trained.
func (l Layout) Source() string { return filepath.Join(l.DataDir, l.DataName) }
func (l Layout) ParamsSource() string { return filepath.Join(l.DataDir, l.ParamsName) }
func (l Layout) ParamsModel() string {
	return filepath.Join(l.ParamsSource(), "distorted", "sparse", "0")
}
func (l Layout) ValDir() string { return filepath.Join(l.Source(), "sparse", "0") }
func (l Layout) ModelTxt() string { return filepath.Join(l.Source(), "model_txt") }
func (l Layout) ModelPath() string { return filepath.Join(l.OutputsDir, l.DataName+"_model") }
func (l Layout) Marker() string { return filepath.Join(l.ModelTxt(), PrepDoneMarker) }

// Preparer turns a raw capture into a trainable project once.
type Preparer struct {
	Runner    runner.Runner
	Layout    Layout
	ValImages []string
	Colmap    string
	Magick    string
	Python    string
	// ParamsSfMScript reconstructs the parameter capture; empty skips it.
	ParamsSfMScript string
	// DepthScaleScript computes per-image depth scales; empty skips it.
	DepthScaleScript string
}

// Prepare runs every preparation step unless the marker file shows it already
// happened. It reports whether work was done.
func (p *Preparer) Prepare(ctx context.Context) (bool, error) {
	l := p.Layout
	if _, err := os.Stat(l.Marker()); err == nil {
		slog.Info("Data preparation already done", "marker", l.Marker())
		return false, nil
	}
	slog.Info("Starting data preparation", "source", l.Source())
	if err := os.MkdirAll(l.ModelTxt(), 0755); err != nil {
		return false, fmt.Errorf("failed to create model directory: %w", err)
	}

	if _, err := colmap.WriteTestList(l.ValDir(), p.ValImages); err != nil {
		return false, err
	}
	if err := p.runScript(ctx, p.ParamsSfMScript, "--source_path", l.ParamsSource()); err != nil {
		return false, err
	}

	conv := &colmap.Converter{Runner: p.Runner, Colmap: p.Colmap}
	if err := conv.ConvertToText(ctx, l.ParamsModel(), l.ModelTxt()); err != nil {
		return false, err
	}

	images := filepath.Join(l.ModelTxt(), colmap.ImagesTxt)
	if _, err := colmap.UpdateImagesText(colmap.UpdateOptions{Original: images, Output: images}); err != nil {
		return false, err
	}

	pipeline := sfm.New(sfm.Config{SourcePath: l.Source(), Colmap: p.Colmap, Magick: p.Magick}, p.Runner)
	if err := pipeline.Run(ctx); err != nil {
		return false, err
	}

	if err := p.runScript(ctx, p.DepthScaleScript,
		"--base_dir", l.Source(),
		"--depths_dir", filepath.Join(l.Source(), "depth"),
	); err != nil {
		return false, err
	}

	if err := os.WriteFile(l.Marker(), nil, 0644); err != nil {
		return false, fmt.Errorf("failed to write preparation marker: %w", err)
	}
	slog.Info("Data preparation finished", "marker", l.Marker())
	return true, nil
}

func (p *Preparer) runScript(ctx context.Context, script string, args ...string) error {
	if script == "" {
		return nil
	}
	python := p.Python
	if python == "" {
		python = DefaultPython
	}
	inv := runner.Invocation{Name: python, Args: append([]string{script}, args...)}
	if _, err := runner.RunChecked(ctx, p.Runner, inv); err != nil {
		return fmt.Errorf("%s failed: %w", filepath.Base(script), err)
	}
	return nil
}
