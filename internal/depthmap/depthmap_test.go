package depthmap

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

func TestFieldResize(t *testing.T) {
	f := &Field{W: 2, H: 1, Data: []float32{0, 1}}
	got := f.Resize(4, 1)
	want := []float32{0, 0.25, 0.75, 1}
	if diff := cmp.Diff(want, got.Data, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		t.Errorf("Resize mismatch (-want +got):\n%s", diff)
	}

	if same := f.Resize(2, 1); same != f {
		t.Error("Expected Resize to the same size to return the field unchanged")
	}

	up := (&Field{W: 1, H: 1, Data: []float32{3}}).Resize(3, 2)
	for i, v := range up.Data {
		if v != 3 {
			t.Errorf("Expected sample %d to be 3, got %v", i, v)
		}
	}
}

func TestFieldResizeNearestKeepsClassIDs(t *testing.T) {
	f := &Field{W: 2, H: 1, Data: []float32{0, 3}}
	got := f.ResizeNearest(4, 1)
	want := []float32{0, 0, 3, 3}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Errorf("ResizeNearest mismatch (-want +got):\n%s", diff)
	}

	down := (&Field{W: 4, H: 2, Data: []float32{0, 1, 2, 3, 4, 5, 6, 7}}).ResizeNearest(2, 1)
	if diff := cmp.Diff([]float32{5, 7}, down.Data); diff != "" {
		t.Errorf("downsample mismatch (-want +got):\n%s", diff)
	}
}

func TestComposeSegmentationBorderDoesNotGrow(t *testing.T) {
	// Background next to class 3: blending ids would push values above the
	// threshold into the background half.
	seg := &Field{W: 2, H: 1, Data: []float32{0, 3}}
	depth := &Field{W: 2, H: 1, Data: []float32{0.5, 0.5}}

	maps, err := Compose(8, 1, seg, depth)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	var got []uint8
	for x := 0; x < 8; x++ {
		got = append(got, maps.Mask.GrayAt(x, 0).Y)
	}
	want := []uint8{0, 0, 0, 0, 255, 255, 255, 255}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mask mismatch (-want +got):\n%s", diff)
	}
}

func TestFieldMinMax(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name   string
		data   []float32
		lo, hi float32
		ok     bool
	}{
		{"plain", []float32{3, -1, 2}, -1, 3, true},
		{"ignores NaN", []float32{nan, 5, 4}, 4, 5, true},
		{"all NaN", []float32{nan, nan}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &Field{W: len(tt.data), H: 1, Data: tt.data}
			lo, hi, ok := f.MinMax()
			if ok != tt.ok {
				t.Fatalf("Expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && (lo != tt.lo || hi != tt.hi) {
				t.Errorf("Expected [%v, %v], got [%v, %v]", tt.lo, tt.hi, lo, hi)
			}
		})
	}
}

func TestTurbo(t *testing.T) {
	mid := Turbo(128)
	if mid.G <= mid.R || mid.G <= mid.B {
		t.Errorf("Expected green to dominate the middle of the map, got %+v", mid)
	}
	far := Turbo(255)
	if far.R <= far.G || far.R <= far.B {
		t.Errorf("Expected red to dominate the far end, got %+v", far)
	}
	for _, l := range []uint8{0, 64, 200, 255} {
		if Turbo(l).A != 255 {
			t.Errorf("Expected opaque colour for level %d", l)
		}
	}
}

func TestCompose(t *testing.T) {
	seg := &Field{W: 2, H: 1, Data: []float32{1, 0}}
	depth := &Field{W: 2, H: 1, Data: []float32{0.2, 0.8}}

	maps, err := Compose(2, 1, seg, depth)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if got := maps.Depth.RGBAAt(0, 0); got != Turbo(0) {
		t.Errorf("Expected nearest person pixel to map to level 0, got %+v", got)
	}
	if got := maps.Depth.RGBAAt(1, 0); got != Turbo(255) {
		t.Errorf("Expected background to map to level 255, got %+v", got)
	}
	if got := maps.Mask.GrayAt(0, 0); got != (color.Gray{Y: 255}) {
		t.Errorf("Expected person mask 255, got %v", got.Y)
	}
	if got := maps.Mask.GrayAt(1, 0); got.Y != 0 {
		t.Errorf("Expected background mask 0, got %v", got.Y)
	}
}

func TestComposeNaNDepthIsBackground(t *testing.T) {
	seg := &Field{W: 2, H: 1, Data: []float32{1, 1}}
	depth := &Field{W: 2, H: 1, Data: []float32{float32(math.NaN()), 0.5}}

	maps, err := Compose(2, 1, seg, depth)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if got := maps.Depth.RGBAAt(0, 0); got != Turbo(255) {
		t.Errorf("Expected NaN depth to be drawn as far, got %+v", got)
	}
	if got := maps.Mask.GrayAt(0, 0); got.Y != 255 {
		t.Errorf("Expected mask to follow segmentation only, got %v", got.Y)
	}
}

func TestComposeInvalidField(t *testing.T) {
	bad := &Field{W: 2, H: 2, Data: []float32{1}}
	_, err := Compose(2, 2, bad, NewField(2, 2))
	if !errors.Is(err, errs.ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

type fakePredictor struct {
	field  *Field
	calls  int
	closed bool
}

func (f *fakePredictor) Predict(ctx context.Context, img image.Image) (*Field, error) {
	f.calls++
	return f.field, nil
}

func (f *fakePredictor) Close() error {
	f.closed = true
	return nil
}

func TestProcessor(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}
	img := imaging.New(4, 3, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	if err := imaging.Save(img, filepath.Join(in, "a.jpg")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	seg := &fakePredictor{field: &Field{W: 1, H: 1, Data: []float32{1}}}
	depth := &fakePredictor{field: &Field{W: 2, H: 2, Data: []float32{0, 1, 2, 3}}}
	p := &Processor{Seg: seg, Depth: depth}

	opts := Options{
		InputDir: in,
		DepthDir: filepath.Join(dir, "depth"),
		SegDir:   filepath.Join(dir, "seg"),
		Workers:  2,
	}
	summary, err := p.Process(context.Background(), opts)
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if summary.Processed != 1 {
		t.Errorf("Expected 1 processed image, got %d", summary.Processed)
	}
	if seg.calls != 1 || depth.calls != 1 {
		t.Errorf("Expected one call per predictor, got seg=%d depth=%d", seg.calls, depth.calls)
	}

	for _, out := range []string{filepath.Join(opts.DepthDir, "a.png"), filepath.Join(opts.SegDir, "a.png")} {
		got, err := imaging.Open(out)
		if err != nil {
			t.Fatalf("Expected output %s: %v", out, err)
		}
		if b := got.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
			t.Errorf("Expected %s to be 4x3, got %dx%d", out, b.Dx(), b.Dy())
		}
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !seg.closed || !depth.closed {
		t.Error("Expected Close to close both predictors")
	}
}

func TestProcessorMissingInput(t *testing.T) {
	p := &Processor{Seg: &fakePredictor{}, Depth: &fakePredictor{}}
	_, err := p.Process(context.Background(), Options{InputDir: filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestParseDevice(t *testing.T) {
	if d, err := ParseDevice("cpu"); err != nil || d != DeviceCPU {
		t.Errorf("Expected cpu, got %q, %v", d, err)
	}
	if _, err := ParseDevice("tpu"); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestArgmaxChannels(t *testing.T) {
	// two classes over a 2x1 plane
	data := []float32{
		0.9, 0.1,
		0.2, 0.7,
	}
	got := argmaxChannels(data, 2, 2, 1)
	if diff := cmp.Diff([]float32{0, 1}, got.Data); diff != "" {
		t.Errorf("argmax mismatch (-want +got):\n%s", diff)
	}
}
