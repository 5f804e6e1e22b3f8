package depthmap

import (
	"fmt"
	"image"
	"image/color"
)

const (
	// SegThreshold separates person pixels from background in a segmentation field.
	SegThreshold = 0.5
	normEpsilon  = 1e-8
)

// Maps are the two images written per input.
type Maps struct {
	// Depth is the Turbo-coloured normalised depth with background forced to far.
	Depth *image.RGBA
	// Mask is 255 on the person and 0 elsewhere.
	Mask *image.Gray
}

// Compose turns raw model fields into the depth and mask images for a w×h
// input. Fields at another resolution are resampled first, the segmentation
// field with nearest neighbour so class ids stay intact. Depth is
// normalised to [0,1] over its finite range; every pixel outside the mask, or
// without a finite depth, is set to 1.
func Compose(w, h int, seg, depth *Field) (*Maps, error) {
	if err := seg.validate(); err != nil {
		return nil, fmt.Errorf("segmentation: %w", err)
	}
	if err := depth.validate(); err != nil {
		return nil, fmt.Errorf("depth: %w", err)
	}
	seg = seg.ResizeNearest(w, h)
	depth = depth.Resize(w, h)

	lo, hi, ok := depth.MinMax()
	span := float64(hi) - float64(lo) + normEpsilon

	rect := image.Rect(0, 0, w, h)
	maps := &Maps{Depth: image.NewRGBA(rect), Mask: image.NewGray(rect)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			person := seg.Data[i] > SegThreshold

			v := 1.0
			if d := depth.Data[i]; person && ok && d == d {
				v = (float64(d) - float64(lo)) / span
			}
			maps.Depth.SetRGBA(x, y, Turbo(uint8(v*255)))
			if person {
				maps.Mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return maps, nil
}
