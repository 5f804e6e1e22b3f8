package colmap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lehigh-university-libraries/splatprep/internal/errs"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
	"github.com/lehigh-university-libraries/splatprep/internal/runner/runnertest"
)

func TestParsePose(t *testing.T) {
	rec, err := ParsePose("12 0.5 0.5 0.5 0.5 1 -2 3.25 4 frame_0012.jpg")
	if err != nil {
		t.Fatalf("ParsePose failed: %v", err)
	}
	expected := CameraPoseRecord{
		ImageID:     12,
		Quaternion:  [4]float64{0.5, 0.5, 0.5, 0.5},
		Translation: [3]float64{1, -2, 3.25},
		CameraID:    4,
		Filename:    "frame_0012.jpg",
	}
	if diff := cmp.Diff(expected, rec); diff != "" {
		t.Errorf("pose mismatch (-want +got):\n%s", diff)
	}

	back, err := ParsePose(rec.String())
	if err != nil {
		t.Fatalf("ParsePose(String()) failed: %v", err)
	}
	if back != rec {
		t.Errorf("Expected %+v, got %+v", rec, back)
	}
}

func TestParsePoseErrors(t *testing.T) {
	for _, line := range []string{
		"1 1 0 0 0 0 0 0 a.jpg",
		"x 1 0 0 0 0 0 0 1 a.jpg",
		"1 1 0 zero 0 0 0 0 1 a.jpg",
	} {
		if _, err := ParsePose(line); !errors.Is(err, errs.ErrFormat) {
			t.Errorf("ParsePose(%q): expected ErrFormat, got %v", line, err)
		}
	}
}

func TestCamerasRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, CamerasTxt)
	cams := []Camera{
		{ID: 1, Model: "PINHOLE", Width: 1920, Height: 1080, Params: []float64{1500, 1510, 960, 540}},
		{ID: 2, Model: "SIMPLE_RADIAL", Width: 800, Height: 600, Params: []float64{700, 400, 300, 0.01}},
	}
	if err := WriteCamerasFile(path, cams); err != nil {
		t.Fatalf("WriteCamerasFile failed: %v", err)
	}

	got, err := ReadCamerasFile(path)
	if err != nil {
		t.Fatalf("ReadCamerasFile failed: %v", err)
	}
	if diff := cmp.Diff(cams[0], got[1]); diff != "" {
		t.Errorf("camera 1 mismatch (-want +got):\n%s", diff)
	}

	fx, fy, err := got[2].Focal()
	if err != nil {
		t.Fatalf("Focal failed: %v", err)
	}
	if fx != 700 || fy != 700 {
		t.Errorf("Expected focal 700/700, got %v/%v", fx, fy)
	}
}

func TestTestList(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sparse", "0")
	path, err := WriteTestList(dir, []string{"val.jpg", "val2.jpg"})
	if err != nil {
		t.Fatalf("WriteTestList failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "val.jpg\nval2.jpg\n" {
		t.Errorf("Unexpected test list contents %q", data)
	}

	list, err := ReadTestList(dir)
	if err != nil {
		t.Fatalf("ReadTestList failed: %v", err)
	}
	if !list["val.jpg"] || !list["val2.jpg"] || len(list) != 2 {
		t.Errorf("Unexpected test list %v", list)
	}
}

func TestConvertToText(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "txt")

	fake := &runnertest.Fake{
		Handle: func(inv runner.Invocation) (*runner.Result, error) {
			// Simulate COLMAP writing a non-empty points file.
			if err := os.WriteFile(filepath.Join(out, Points3DTxt), []byte("1 0 0 0 255 255 255 0\n"), 0644); err != nil {
				return nil, err
			}
			return &runner.Result{}, nil
		},
	}
	conv := &Converter{Runner: fake, Colmap: "/opt/colmap"}
	if err := conv.ConvertToText(context.Background(), in, out); err != nil {
		t.Fatalf("ConvertToText failed: %v", err)
	}

	if len(fake.Calls) != 1 {
		t.Fatalf("Expected one call, got %d", len(fake.Calls))
	}
	expected := []string{"model_converter", "--input_path", in, "--output_path", out, "--output_type", "TXT"}
	if diff := cmp.Diff(expected, fake.Calls[0].Args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}

	info, err := os.Stat(filepath.Join(out, Points3DTxt))
	if err != nil {
		t.Fatalf("points3D.txt missing: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("points3D.txt should be empty, has %d bytes", info.Size())
	}
}

func TestConvertToTextPropagatesExitCode(t *testing.T) {
	fake := &runnertest.Fake{
		Handle: func(inv runner.Invocation) (*runner.Result, error) {
			return &runner.Result{ExitCode: 4, Stderr: "no model"}, nil
		},
	}
	conv := &Converter{Runner: fake}
	err := conv.ConvertToText(context.Background(), t.TempDir(), t.TempDir())

	var pe *errs.ExternalProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ExternalProcessError, got %v", err)
	}
	if errs.ExitCode(err) != 4 {
		t.Errorf("Expected exit code 4, got %d", errs.ExitCode(err))
	}
}
