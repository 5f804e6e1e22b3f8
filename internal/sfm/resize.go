package sfm

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/lehigh-university-libraries/splatprep/internal/images"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
)

// Resizer scales an image file in place by a percentage.
type Resizer interface {
	Resize(ctx context.Context, path string, percent float64) error
}

// MagickResizer delegates to `magick mogrify -resize P%`.
type MagickResizer struct {
	Runner runner.Runner
	Exe    string
}

func (m *MagickResizer) Resize(ctx context.Context, path string, percent float64) error {
	_, err := runner.RunChecked(ctx, m.Runner, runner.Invocation{
		Name: m.Exe,
		Args: []string{"mogrify", "-resize", strconv.FormatFloat(percent, 'f', -1, 64) + "%", path},
	})
	return err
}

// LanczosResizer resizes in-process with a Lanczos filter.
type LanczosResizer struct{}

func (LanczosResizer) Resize(ctx context.Context, path string, percent float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	img, err := images.Open(path)
	if err != nil {
		return err
	}
	b := img.Bounds()
	w := int(math.Round(float64(b.Dx()) * percent / 100))
	h := int(math.Round(float64(b.Dy()) * percent / 100))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return images.Save(imaging.Resize(img, w, h, imaging.Lanczos), path)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
