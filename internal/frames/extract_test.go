package frames

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
	"github.com/lehigh-university-libraries/splatprep/internal/runner/runnertest"
)

func TestFramePattern(t *testing.T) {
	tests := []struct {
		total    int
		expected string
	}{
		{0, "frame_%01d.jpg"},
		{9, "frame_%01d.jpg"},
		{120, "frame_%03d.jpg"},
		{1000, "frame_%04d.jpg"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.total), func(t *testing.T) {
			if got := FramePattern("frame", ".jpg", tt.total); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestExtract(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, []byte("not really a video"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "frames")

	fake := &runnertest.Fake{
		Handle: func(inv runner.Invocation) (*runner.Result, error) {
			if inv.Name == "ffprobe" {
				return &runner.Result{Stdout: `{"streams":[{"nb_frames":"12","nb_read_packets":"12"}]}`}, nil
			}
			for i := 0; i < 12; i++ {
				name := filepath.Join(out, fmt.Sprintf("shot_%02d.jpg", i))
				if err := os.WriteFile(name, nil, 0644); err != nil {
					return nil, err
				}
			}
			return &runner.Result{}, nil
		},
	}

	res, err := NewExtractor(fake, "", "").Extract(context.Background(), Options{Video: video, Output: out, Prefix: "shot"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Expected != 12 || res.Written != 12 {
		t.Errorf("Unexpected result: %+v", res)
	}
	if filepath.Base(res.Pattern) != "shot_%02d.jpg" {
		t.Errorf("Unexpected pattern %s", res.Pattern)
	}

	if len(fake.Calls) != 2 || fake.Calls[1].Name != "ffmpeg" {
		t.Fatalf("Expected ffprobe then ffmpeg, got %+v", fake.Calls)
	}
	args := fake.Calls[1].Args
	if !contains(args, "-y") {
		t.Errorf("ffmpeg should overwrite output: %v", args)
	}
	if !contains(args, res.Pattern) || !contains(args, video) {
		t.Errorf("ffmpeg args missing input or pattern: %v", args)
	}
}

func TestExtractErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewExtractor(&runnertest.Fake{}, "", "").Extract(context.Background(), Options{
		Video:  filepath.Join(dir, "missing.mp4"),
		Output: filepath.Join(dir, "out"),
	})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	_, err = NewExtractor(&runnertest.Fake{}, "", "").Extract(context.Background(), Options{
		Video: filepath.Join(dir, "missing.mp4"),
		Ext:   ".png",
	})
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestExtractIgnoresEarlierFrames(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(video, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "frames")
	if err := os.MkdirAll(out, 0755); err != nil {
		t.Fatal(err)
	}
	// Left behind by a longer video extracted into the same directory.
	for _, name := range []string{"shot_7.jpg", "shot_9.jpg", "shot_12.jpg"} {
		if err := os.WriteFile(filepath.Join(out, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	fake := &runnertest.Fake{
		Handle: func(inv runner.Invocation) (*runner.Result, error) {
			if inv.Name == "ffprobe" {
				return &runner.Result{Stdout: `{"streams":[{"nb_frames":"3"}]}`}, nil
			}
			for i := 0; i < 3; i++ {
				if err := os.WriteFile(filepath.Join(out, FrameName("shot", ".jpg", 3, i)), nil, 0644); err != nil {
					return nil, err
				}
			}
			return &runner.Result{}, nil
		},
	}

	res, err := NewExtractor(fake, "", "").Extract(context.Background(), Options{Video: video, Output: out, Prefix: "shot"})
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if res.Written != 3 {
		t.Errorf("Expected 3 written frames, got %d", res.Written)
	}
}

func TestCountWrittenUnknownTotal(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame_0.jpg", "frame_1.jpg", "frame_5.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}
	n, err := countWritten(dir, "frame", ".jpg", 0)
	if err != nil {
		t.Fatalf("countWritten failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 contiguous frames, got %d", n)
	}
}

func TestFrameName(t *testing.T) {
	if got := FrameName("frame", ".jpg", 120, 7); got != "frame_007.jpg" {
		t.Errorf("Expected frame_007.jpg, got %s", got)
	}
}

func TestCountFramesFallsBackToZero(t *testing.T) {
	fake := &runnertest.Fake{
		Handle: func(inv runner.Invocation) (*runner.Result, error) {
			return &runner.Result{Stdout: `{"streams":[{"nb_frames":"N/A"}]}`}, nil
		},
	}
	n, err := NewExtractor(fake, "", "").CountFrames(context.Background(), "x.mp4")
	if err != nil {
		t.Fatalf("CountFrames failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0, got %d", n)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
