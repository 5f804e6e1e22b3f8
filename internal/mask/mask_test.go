package mask

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/google/go-cmp/cmp"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

func TestApply(t *testing.T) {
	red := color.NRGBA{R: 200, A: 255}
	img := imaging.New(2, 1, red)
	m := image.NewGray(image.Rect(0, 0, 2, 1))
	m.SetGray(0, 0, color.Gray{Y: 1})

	out := Apply(img, m)
	if got := out.NRGBAAt(0, 0); got != red {
		t.Errorf("Expected masked-in pixel to keep its colour, got %+v", got)
	}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	if got := out.NRGBAAt(1, 0); got != white {
		t.Errorf("Expected background pixel to be white, got %+v", got)
	}
}

func TestApplyOutputIsOpaque(t *testing.T) {
	img := imaging.New(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 40})
	m := image.NewGray(image.Rect(0, 0, 2, 1))
	m.SetGray(0, 0, color.Gray{Y: 255})

	out := Apply(img, m)
	want := []color.NRGBA{
		{R: 10, G: 20, B: 30, A: 255},
		{R: 255, G: 255, B: 255, A: 255},
	}
	got := []color.NRGBA{out.NRGBAAt(0, 0), out.NRGBAAt(1, 0)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pixel mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyScalesMask(t *testing.T) {
	img := imaging.New(4, 4, color.NRGBA{G: 90, A: 255})
	m := imaging.New(2, 2, color.NRGBA{A: 255})
	m.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	out := Apply(img, m)
	if got := out.NRGBAAt(1, 1); got.G != 90 {
		t.Errorf("Expected top-left quadrant kept, got %+v", got)
	}
	if got := out.NRGBAAt(3, 3); got.R != 255 {
		t.Errorf("Expected bottom-right quadrant whitened, got %+v", got)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	imgDir := filepath.Join(dir, "images")
	maskDir := filepath.Join(dir, "masks")
	outDir := filepath.Join(dir, "out")

	save := func(img image.Image, path string) {
		t.Helper()
		if err := imaging.Save(img, path, imaging.JPEGQuality(95)); err != nil {
			t.Fatal(err)
		}
	}
	for _, d := range []string{imgDir, maskDir} {
		if err := mkdir(d); err != nil {
			t.Fatal(err)
		}
	}
	save(imaging.New(3, 3, color.NRGBA{B: 120, A: 255}), filepath.Join(imgDir, "a.JPG"))
	save(imaging.New(3, 3, color.NRGBA{B: 120, A: 255}), filepath.Join(imgDir, "b.png"))
	save(imaging.New(3, 3, color.NRGBA{A: 255}), filepath.Join(maskDir, "a.png"))

	summary, err := Run(context.Background(), Options{ImageDir: imgDir, MaskDir: maskDir, OutputDir: outDir})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Written != 1 {
		t.Errorf("Expected 1 written image, got %d", summary.Written)
	}
	if diff := cmp.Diff([]string{"b.png"}, summary.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}

	out, err := imaging.Open(filepath.Join(outDir, "a.JPG"))
	if err != nil {
		t.Fatalf("Expected output under the image name: %v", err)
	}
	r, g, b, _ := out.At(1, 1).RGBA()
	if r>>8 < 250 || g>>8 < 250 || b>>8 < 250 {
		t.Errorf("Expected fully masked image to be white, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestRunMissingMaskDir(t *testing.T) {
	dir := t.TempDir()
	_, err := Run(context.Background(), Options{ImageDir: dir, MaskDir: filepath.Join(dir, "nope"), OutputDir: dir})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func mkdir(path string) error {
	return os.MkdirAll(path, 0755)
}
