package sfm

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
	"github.com/lehigh-university-libraries/splatprep/internal/images"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
	"github.com/lehigh-university-libraries/splatprep/internal/runner/runnertest"
)

// fakeColmap mimics the files COLMAP leaves behind.
func fakeColmap(t *testing.T, source string) *runnertest.Fake {
	return &runnertest.Fake{
		Handle: func(inv runner.Invocation) (*runner.Result, error) {
			switch inv.Args[0] {
			case "point_triangulator":
				out := filepath.Join(source, "triangulated_model")
				for _, name := range []string{"cameras.bin", "images.bin", "points3D.bin"} {
					if err := os.WriteFile(filepath.Join(out, name), []byte("x"), 0644); err != nil {
						t.Fatal(err)
					}
				}
			case "image_undistorter":
				sparse := filepath.Join(source, "sparse")
				if err := os.MkdirAll(sparse, 0755); err != nil {
					t.Fatal(err)
				}
				for _, name := range []string{"cameras.bin", "images.bin"} {
					if err := os.WriteFile(filepath.Join(sparse, name), []byte("x"), 0644); err != nil {
						t.Fatal(err)
					}
				}
			}
			return &runner.Result{}, nil
		},
	}
}

func TestPipelineRun(t *testing.T) {
	source := t.TempDir()
	fake := fakeColmap(t, source)

	p := New(Config{SourcePath: source, NoGPU: true}, fake)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := []string{"feature_extractor", "exhaustive_matcher", "point_triangulator", "image_undistorter"}
	if diff := cmp.Diff(expected, fake.Subcommands()); diff != "" {
		t.Errorf("subcommand mismatch (-want +got):\n%s", diff)
	}

	extract := strings.Join(fake.Calls[0].Args, " ")
	if !strings.Contains(extract, "--SiftExtraction.use_gpu 0") {
		t.Errorf("GPU should be disabled: %s", extract)
	}
	if !strings.Contains(extract, "--ImageReader.camera_model PINHOLE") {
		t.Errorf("Expected PINHOLE camera model: %s", extract)
	}

	for _, path := range []string{
		filepath.Join(source, "model_txt", "points3D.txt"),
		filepath.Join(source, "triangulated_model", "0", "images.bin"),
		filepath.Join(source, "sparse", "0", "cameras.bin"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected %s to exist: %v", path, err)
		}
	}
	if _, err := os.Stat(filepath.Join(source, "sparse", "images.bin")); !os.IsNotExist(err) {
		t.Errorf("sparse/images.bin should have been moved into sparse/0")
	}
}

func TestPipelineSkipMatching(t *testing.T) {
	source := t.TempDir()
	fake := fakeColmap(t, source)

	if err := New(Config{SourcePath: source, SkipMatching: true}, fake).Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	expected := []string{"point_triangulator", "image_undistorter"}
	if diff := cmp.Diff(expected, fake.Subcommands()); diff != "" {
		t.Errorf("subcommand mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineStopsOnFailure(t *testing.T) {
	source := t.TempDir()
	fake := &runnertest.Fake{
		Handle: func(inv runner.Invocation) (*runner.Result, error) {
			if inv.Args[0] == "exhaustive_matcher" {
				return &runner.Result{ExitCode: 7}, nil
			}
			return &runner.Result{}, nil
		},
	}

	err := New(Config{SourcePath: source}, fake).Run(context.Background())
	if errs.ExitCode(err) != 7 {
		t.Fatalf("Expected exit code 7, got %v", err)
	}
	if len(fake.Calls) != 2 {
		t.Errorf("Expected pipeline to stop after 2 calls, got %d", len(fake.Calls))
	}
}

func TestPipelineMissingSource(t *testing.T) {
	err := New(Config{SourcePath: filepath.Join(t.TempDir(), "missing")}, &runnertest.Fake{}).Run(context.Background())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestResizeImagesInProcess(t *testing.T) {
	source := t.TempDir()
	imgDir := filepath.Join(source, "images")
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := images.Save(image.NewNRGBA(image.Rect(0, 0, 80, 40)), filepath.Join(imgDir, "a.png")); err != nil {
		t.Fatal(err)
	}

	p := New(Config{SourcePath: source, Resize: true}, &runnertest.Fake{})
	if err := p.resizeImages(context.Background()); err != nil {
		t.Fatalf("resizeImages failed: %v", err)
	}

	for dir, width := range map[string]int{"images_2": 40, "images_4": 20, "images_8": 10} {
		img, err := images.Open(filepath.Join(source, dir, "a.png"))
		if err != nil {
			t.Fatalf("%s: %v", dir, err)
		}
		if img.Bounds().Dx() != width {
			t.Errorf("%s: expected width %d, got %d", dir, width, img.Bounds().Dx())
		}
	}
}

func TestMagickResizer(t *testing.T) {
	fake := &runnertest.Fake{}
	m := &MagickResizer{Runner: fake, Exe: "magick"}
	if err := m.Resize(context.Background(), "/tmp/x.jpg", 12.5); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	expected := []string{"mogrify", "-resize", "12.5%", "/tmp/x.jpg"}
	if diff := cmp.Diff(expected, fake.Calls[0].Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}
