// Package mask whitens image backgrounds using per-image segmentation masks.
package mask

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/disintegration/imaging"

	"github.com/lehigh-university-libraries/splatprep/internal/images"
)

// Options configure a masking run.
type Options struct {
	ImageDir  string
	MaskDir   string
	OutputDir string
	Workers   int
}

// Summary reports the outcome of a run.
type Summary struct {
	Written int
	// Unmatched lists images that had no mask with the same stem.
	Unmatched []string
}

// Apply returns an opaque copy of img where every pixel whose mask luminance
// is zero is white. A mask of a different size is scaled to the image first.
func Apply(img, mask image.Image) *image.NRGBA {
	out := imaging.Clone(img)
	b := out.Bounds()
	m := imaging.Grayscale(mask)
	if mb := m.Bounds(); mb.Dx() != b.Dx() || mb.Dy() != b.Dy() {
		m = imaging.Resize(m, b.Dx(), b.Dy(), imaging.NearestNeighbor)
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			i := y*out.Stride + x*4
			// output is RGB: alpha is dropped, not composited
			out.Pix[i+3] = 255
			if m.Pix[y*m.Stride+x*4] > 0 {
				continue
			}
			out.Pix[i+0] = 255
			out.Pix[i+1] = 255
			out.Pix[i+2] = 255
		}
	}
	return out
}

// Run masks every image in opts.ImageDir whose stem has a mask in
// opts.MaskDir, writing the result under the image's own file name.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	masks, err := images.List(opts.MaskDir, images.MaskExts)
	if err != nil {
		return nil, err
	}
	photos, err := images.List(opts.ImageDir, images.MaskExts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	byStem := make(map[string]string, len(masks))
	for _, m := range masks {
		byStem[m.Stem] = m.Path
	}

	summary := &Summary{}
	type job struct {
		photo images.File
		mask  string
	}
	var jobs []job
	for _, p := range photos {
		m, ok := byStem[p.Stem]
		if !ok {
			slog.Warn("No mask found for image", "image", p.Name)
			summary.Unmatched = append(summary.Unmatched, p.Name)
			continue
		}
		jobs = append(jobs, job{photo: p, mask: m})
	}

	var written atomic.Int64
	err = images.ForEach(ctx, jobs, opts.Workers, func(ctx context.Context, j job) error {
		img, err := images.Open(j.photo.Path)
		if err != nil {
			return err
		}
		m, err := images.Open(j.mask)
		if err != nil {
			return err
		}
		out := filepath.Join(opts.OutputDir, j.photo.Name)
		if err := images.Save(Apply(img, m), out); err != nil {
			return err
		}
		written.Add(1)
		slog.Info("Masked image", "output", out)
		return nil
	})
	summary.Written = int(written.Load())
	return summary, err
}
