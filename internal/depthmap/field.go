package depthmap

import (
	"fmt"
	"math"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Field is a dense row-major H×W grid of float32 samples produced by a model.
type Field struct {
	W, H int
	Data []float32
}

// NewField allocates a zeroed w×h field.
func NewField(w, h int) *Field {
	return &Field{W: w, H: h, Data: make([]float32, w*h)}
}

// At returns the sample at column x, row y.
func (f *Field) At(x, y int) float32 {
	return f.Data[y*f.W+x]
}

func (f *Field) validate() error {
	if f == nil {
		return fmt.Errorf("%w: missing field", errs.ErrFormat)
	}
	if f.W <= 0 || f.H <= 0 || len(f.Data) != f.W*f.H {
		return fmt.Errorf("%w: %dx%d field holds %d samples", errs.ErrFormat, f.W, f.H, len(f.Data))
	}
	return nil
}

// Resize resamples the field to w×h with bilinear interpolation, using
// pixel-centre alignment. NaN samples propagate to the pixels they touch.
func (f *Field) Resize(w, h int) *Field {
	if f.W == w && f.H == h {
		return f
	}
	out := NewField(w, h)
	sx := float64(f.W) / float64(w)
	sy := float64(f.H) / float64(h)
	for y := 0; y < h; y++ {
		fy := (float64(y)+0.5)*sy - 0.5
		y0, y1, wy := neighbours(fy, f.H)
		for x := 0; x < w; x++ {
			fx := (float64(x)+0.5)*sx - 0.5
			x0, x1, wx := neighbours(fx, f.W)
			top := lerp(f.At(x0, y0), f.At(x1, y0), wx)
			bot := lerp(f.At(x0, y1), f.At(x1, y1), wx)
			out.Data[y*w+x] = lerp(top, bot, wy)
		}
	}
	return out
}

// ResizeNearest resamples the field to w×h taking the sample whose pixel
// centre is nearest. Class-id fields must not be blended, so they use this.
func (f *Field) ResizeNearest(w, h int) *Field {
	if f.W == w && f.H == h {
		return f
	}
	out := NewField(w, h)
	sx := float64(f.W) / float64(w)
	sy := float64(f.H) / float64(h)
	for y := 0; y < h; y++ {
		sy0 := min(int((float64(y)+0.5)*sy), f.H-1)
		for x := 0; x < w; x++ {
			sx0 := min(int((float64(x)+0.5)*sx), f.W-1)
			out.Data[y*w+x] = f.At(sx0, sy0)
		}
	}
	return out
}

func neighbours(pos float64, n int) (int, int, float32) {
	if pos <= 0 {
		return 0, 0, 0
	}
	if pos >= float64(n-1) {
		return n - 1, n - 1, 0
	}
	i := int(math.Floor(pos))
	return i, i + 1, float32(pos - float64(i))
}

func lerp(a, b, t float32) float32 {
	if t == 0 {
		return a
	}
	return a + (b-a)*t
}

// MinMax returns the smallest and largest non-NaN samples. ok is false when
// every sample is NaN.
func (f *Field) MinMax() (lo, hi float32, ok bool) {
	lo, hi = float32(math.Inf(1)), float32(math.Inf(-1))
	for _, v := range f.Data {
		if v != v {
			continue
		}
		ok = true
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, ok
}
