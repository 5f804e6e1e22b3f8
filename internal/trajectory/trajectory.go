package trajectory

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/lehigh-university-libraries/splatprep/internal/colmap"
	"github.com/lehigh-university-libraries/splatprep/internal/errs"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
)

// Split selects which views of the model the path runs through.
type Split string

const (
	SplitTrain Split = "train"
	SplitTest  Split = "test"
	SplitAll   Split = "all"
)

// ParseSplit validates a --split value.
func ParseSplit(s string) (Split, error) {
	switch Split(s) {
	case SplitTrain, SplitTest, SplitAll:
		return Split(s), nil
	}
	return "", fmt.Errorf("%w: split must be train, test or all, got %q", errs.ErrConfiguration, s)
}

// Options configure a trajectory run.
type Options struct {
	Model  string
	Output string
	Steps  int
	Split  Split
	// Scale divides the output resolution; values below 1 are treated as 1.
	Scale float64

	// Renderer, when set, is run after the trajectory is written with
	// RendererArgs followed by --trajectory <dir>.
	Renderer     string
	RendererArgs []string
}

// Result describes what a run produced.
type Result struct {
	Views  int
	Frames int
	Paths  *Paths
}

// LoadViews reads the COLMAP text model in dir and returns the views of the
// requested split ordered by image name. test.txt in dir marks test views;
// without it every view is a training view.
func LoadViews(dir string, split Split) ([]Camera, error) {
	f, err := colmap.ReadImagesFile(filepath.Join(dir, colmap.ImagesTxt))
	if err != nil {
		return nil, err
	}
	poses, err := f.ReadPoses()
	if err != nil {
		return nil, err
	}
	intr, err := colmap.ReadCamerasFile(filepath.Join(dir, colmap.CamerasTxt))
	if err != nil {
		return nil, err
	}
	test, err := colmap.ReadTestList(dir)
	if err != nil {
		return nil, err
	}

	var views []Camera
	for _, p := range poses {
		isTest := test[p.Filename]
		if (split == SplitTrain && isTest) || (split == SplitTest && !isTest) {
			continue
		}
		cam, ok := intr[p.CameraID]
		if !ok {
			return nil, fmt.Errorf("%w: image %s references unknown camera %d", errs.ErrFormat, p.Filename, p.CameraID)
		}
		v, err := NewCamera(p, cam)
		if err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views, nil
}

// Generator builds trajectories and optionally hands them to a renderer.
type Generator struct {
	Runner runner.Runner
}

// Run loads the model, interpolates the path and writes it.
func (g *Generator) Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Steps < 0 {
		return nil, fmt.Errorf("%w: steps must not be negative", errs.ErrConfiguration)
	}
	if opts.Scale <= 0 {
		return nil, fmt.Errorf("%w: scale must be positive", errs.ErrConfiguration)
	}
	scale := max(opts.Scale, 1.0)
	split := opts.Split
	if split == "" {
		split = SplitTrain
	}

	views, err := LoadViews(opts.Model, split)
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, fmt.Errorf("%w: no %s views in %s", errs.ErrConfiguration, split, opts.Model)
	}

	path := Interpolate(views, opts.Steps)
	paths, err := Write(opts.Output, path, scale)
	if err != nil {
		return nil, err
	}
	slog.Info("Wrote trajectory", "views", len(views), "frames", len(path), "dir", paths.Dir)

	if opts.Renderer != "" {
		inv := runner.Invocation{
			Name: opts.Renderer,
			Args: append(append([]string{}, opts.RendererArgs...), "--trajectory", paths.Dir),
		}
		if _, err := runner.RunChecked(ctx, g.Runner, inv); err != nil {
			return nil, fmt.Errorf("rendering failed: %w", err)
		}
		slog.Info("Rendered trajectory", "frames", len(path))
	}
	return &Result{Views: len(views), Frames: len(path), Paths: paths}, nil
}
