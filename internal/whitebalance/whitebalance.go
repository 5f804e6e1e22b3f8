// Package whitebalance normalises colour and brightness of the per-person
// capture sets under a data directory.
package whitebalance

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/disintegration/imaging"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
	"github.com/lehigh-university-libraries/splatprep/internal/images"
)

// Directory names inside each person directory.
const (
	InputDirName  = "original_images"
	OutputDirName = "original_images_white_lum"
)

// Defaults used by the CLI.
const (
	DefaultRow    = 400
	DefaultTarget = 150.0
	DefaultBoost  = 1.05
)

var inputExts = []string{".jpg", ".png"}

// Options configure a run over a data directory.
type Options struct {
	DataDir string
	Row     int
	Target  float64
	Boost   float64
	Workers int
}

// Summary counts what a run did.
type Summary struct {
	Persons int
	Written int
	Skipped int
}

// Balance scales each channel so that the reference pixel at (row, width/2)
// becomes neutral grey. Channels that are zero at the reference stay as they
// are.
func Balance(img image.Image, row int) (*image.NRGBA, error) {
	src := imaging.Clone(img)
	b := src.Bounds()
	if row < 0 || row >= b.Dy() {
		return nil, fmt.Errorf("%w: reference row %d outside image of height %d", errs.ErrConfiguration, row, b.Dy())
	}
	ref := src.NRGBAAt(b.Dx()/2, row)
	mean := (float64(ref.R) + float64(ref.G) + float64(ref.B)) / 3

	scale := [3]float64{1, 1, 1}
	for i, v := range []uint8{ref.R, ref.G, ref.B} {
		if v > 0 {
			scale[i] = mean / float64(v)
		}
	}
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampByte(float64(c.R) * scale[0]),
			G: clampByte(float64(c.G) * scale[1]),
			B: clampByte(float64(c.B) * scale[2]),
			A: c.A,
		}
	}), nil
}

// MeanLuminance returns the average 0.299R+0.587G+0.114B over the image.
func MeanLuminance(img *image.NRGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	var sum float64
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sum += 0.299*float64(row[x]) + 0.587*float64(row[x+1]) + 0.114*float64(row[x+2])
		}
	}
	return sum / float64(n)
}

// NormalizeBrightness scales the image so its mean luminance equals target.
// A black image is returned unchanged.
func NormalizeBrightness(img *image.NRGBA, target float64) *image.NRGBA {
	mean := MeanLuminance(img)
	if mean == 0 {
		return img
	}
	return Scale(img, target/mean)
}

// Scale multiplies every colour channel by factor, clipping to 0..255.
func Scale(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampByte(float64(c.R) * factor),
			G: clampByte(float64(c.G) * factor),
			B: clampByte(float64(c.B) * factor),
			A: c.A,
		}
	})
}

// Boosted reports whether a file name denotes a pose that gets the extra
// brightness boost: front, mid_left, or any left view that is not mid_right.
func Boosted(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "front") ||
		strings.Contains(n, "mid_left") ||
		(strings.Contains(n, "left") && !strings.Contains(n, "mid_right"))
}

// Process applies white balance, brightness normalisation and the pose boost
// to a single image.
func Process(img image.Image, name string, opts Options) (*image.NRGBA, error) {
	out, err := Balance(img, opts.Row)
	if err != nil {
		return nil, err
	}
	out = NormalizeBrightness(out, opts.Target)
	if Boosted(name) {
		out = Scale(out, opts.Boost)
	}
	return out, nil
}

// Run processes DATA/<person>/original_images into
// DATA/<person>/original_images_white_lum for every person directory.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	if err := images.RequireDir("data directory", opts.DataDir); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	summary := &Summary{}
	var written, skipped atomic.Int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		person := e.Name()
		inDir := filepath.Join(opts.DataDir, person, InputDirName)
		files, err := images.List(inDir, inputExts)
		if err != nil {
			slog.Warn("Skipping person without input images", "person", person, "error", err)
			continue
		}
		outDir := filepath.Join(opts.DataDir, person, OutputDirName)
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
		summary.Persons++
		slog.Info("Processing person", "person", person, "images", len(files))

		err = images.ForEach(ctx, files, opts.Workers, func(ctx context.Context, f images.File) error {
			img, err := images.Open(f.Path)
			if err != nil {
				slog.Warn("Could not load image", "path", f.Path, "error", err)
				skipped.Add(1)
				return nil
			}
			out, err := Process(img, f.Name, opts)
			if err != nil {
				slog.Warn("Could not process image", "path", f.Path, "error", err)
				skipped.Add(1)
				return nil
			}
			if err := images.Save(out, filepath.Join(outDir, f.Name)); err != nil {
				return err
			}
			written.Add(1)
			return nil
		})
		if err != nil {
			return nil, err
		}
		slog.Info("Person done", "person", person, "output", outDir)
	}
	summary.Written = int(written.Load())
	summary.Skipped = int(skipped.Load())
	return summary, nil
}

// clampByte truncates toward zero after clipping, as an 8-bit cast does.
func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
