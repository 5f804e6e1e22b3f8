package whitebalance

import (
	"context"
	"errors"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

func TestBoosted(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Front_01.jpg", true},
		{"mid_left.png", true},
		{"left.jpg", true},
		{"left_mid_right.jpg", false},
		{"mid_right.jpg", false},
		{"back.jpg", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Boosted(tt.name); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBalance(t *testing.T) {
	img := imaging.New(4, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	out, err := Balance(img, 1)
	if err != nil {
		t.Fatalf("Balance failed: %v", err)
	}
	got := out.NRGBAAt(2, 1)
	// mean of 200, 100, 50 is 116.67
	want := color.NRGBA{R: 116, G: 116, B: 116, A: 255}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}

	if _, err := Balance(img, 2); !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for a row past the image, got %v", err)
	}
}

func TestNormalizeBrightness(t *testing.T) {
	img := imaging.New(2, 2, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
	out := NormalizeBrightness(img, 150)
	if got := MeanLuminance(out); math.Abs(got-150) > 1 {
		t.Errorf("Expected mean luminance near 150, got %v", got)
	}

	black := imaging.New(2, 2, color.NRGBA{A: 255})
	if out := NormalizeBrightness(black, 150); out != black {
		t.Error("Expected black image to be returned unchanged")
	}
}

func TestScaleClips(t *testing.T) {
	img := imaging.New(1, 1, color.NRGBA{R: 250, G: 10, B: 0, A: 255})
	got := Scale(img, 2).NRGBAAt(0, 0)
	want := color.NRGBA{R: 255, G: 20, B: 0, A: 255}
	if got != want {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
}

func TestRun(t *testing.T) {
	data := t.TempDir()
	in := filepath.Join(data, "anna", InputDirName)
	if err := os.MkdirAll(in, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(data, "empty"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(imaging.New(8, 8, color.NRGBA{R: 120, G: 100, B: 80, A: 255}), filepath.Join(in, "front.png")); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(imaging.New(8, 2, color.NRGBA{R: 120, A: 255}), filepath.Join(in, "short.png")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(in, "broken.jpg"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	opts := Options{DataDir: data, Row: 4, Target: DefaultTarget, Boost: DefaultBoost}
	summary, err := Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Persons != 1 || summary.Written != 1 || summary.Skipped != 2 {
		t.Errorf("Unexpected summary %+v", summary)
	}
	if _, err := os.Stat(filepath.Join(data, "anna", OutputDirName, "front.png")); err != nil {
		t.Errorf("Expected balanced output: %v", err)
	}
}

func TestRunMissingData(t *testing.T) {
	_, err := Run(context.Background(), Options{DataDir: filepath.Join(t.TempDir(), "nope")})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
