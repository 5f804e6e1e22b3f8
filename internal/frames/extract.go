// Package frames extracts every frame of a video into numbered JPEG files.
package frames

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
	"github.com/lehigh-university-libraries/splatprep/internal/runner"
)

// Options configures an extraction.
type Options struct {
	Video  string
	Output string
	// Prefix of the frame files, "frame" by default.
	Prefix string
	// Ext is ".jpg" or ".jpeg".
	Ext string
}

// Result reports what was written.
type Result struct {
	Expected int
	Written  int
	Pattern  string
}

// Extractor turns videos into frame images using ffprobe and ffmpeg.
type Extractor struct {
	Runner  runner.Runner
	FFmpeg  string
	FFprobe string
}

// NewExtractor creates an extractor using the given executables, falling back
// to ffmpeg/ffprobe on PATH when empty.
func NewExtractor(r runner.Runner, ffmpegExe, ffprobeExe string) *Extractor {
	if ffmpegExe == "" {
		ffmpegExe = "ffmpeg"
	}
	if ffprobeExe == "" {
		ffprobeExe = "ffprobe"
	}
	return &Extractor{Runner: r, FFmpeg: ffmpegExe, FFprobe: ffprobeExe}
}

// Extract writes prefix_NNN.ext files starting at index 0. The index is
// zero-padded to the number of digits of the frame count.
func (e *Extractor) Extract(ctx context.Context, opts Options) (*Result, error) {
	if opts.Prefix == "" {
		opts.Prefix = "frame"
	}
	if opts.Ext == "" {
		opts.Ext = ".jpg"
	}
	if opts.Ext != ".jpg" && opts.Ext != ".jpeg" {
		return nil, fmt.Errorf("%w: unsupported frame extension %q", errs.ErrConfiguration, opts.Ext)
	}
	if info, err := os.Stat(opts.Video); err != nil || info.IsDir() {
		return nil, errs.NotFound("input video", opts.Video)
	}
	if err := os.MkdirAll(opts.Output, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total, err := e.CountFrames(ctx, opts.Video)
	if err != nil {
		return nil, err
	}
	pattern := filepath.Join(opts.Output, FramePattern(opts.Prefix, opts.Ext, total))

	args := ffmpeg.Input(opts.Video).
		Output(pattern, ffmpeg.KwArgs{
			"q:v":          2,
			"start_number": 0,
			"vsync":        "0",
		}).
		OverWriteOutput().
		GetArgs()
	args = append([]string{"-hide_banner", "-loglevel", "error"}, args...)

	slog.Info("Extracting frames", "video", opts.Video, "frames", total, "pattern", pattern)
	if _, err := runner.RunChecked(ctx, e.Runner, runner.Invocation{Name: e.FFmpeg, Args: args}); err != nil {
		return nil, fmt.Errorf("frame extraction failed: %w", err)
	}

	written, err := countWritten(opts.Output, opts.Prefix, opts.Ext, total)
	if err != nil {
		return nil, err
	}
	abs, _ := filepath.Abs(opts.Output)
	slog.Info("Saved frames", "count", written, "dir", abs)
	return &Result{Expected: total, Written: written, Pattern: pattern}, nil
}

// FramePattern builds the printf-style file pattern ffmpeg expands.
func FramePattern(prefix, ext string, total int) string {
	pad := len(strconv.Itoa(total))
	return fmt.Sprintf("%s_%%0%dd%s", prefix, pad, ext)
}

type probeOutput struct {
	Streams []struct {
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
	} `json:"streams"`
}

// CountFrames asks ffprobe for the number of video frames. Containers that
// do not record a count report 0.
func (e *Extractor) CountFrames(ctx context.Context, video string) (int, error) {
	inv := runner.Invocation{
		Name: e.FFprobe,
		Args: []string{
			"-v", "error",
			"-select_streams", "v:0",
			"-count_packets",
			"-show_entries", "stream=nb_frames,nb_read_packets",
			"-of", "json",
			video,
		},
	}
	res, err := runner.RunChecked(ctx, e.Runner, inv)
	if err != nil {
		return 0, fmt.Errorf("could not open video: %w", err)
	}

	var out probeOutput
	if err := json.Unmarshal([]byte(res.Stdout), &out); err != nil {
		return 0, fmt.Errorf("%w: unreadable ffprobe output: %v", errs.ErrFormat, err)
	}
	if len(out.Streams) == 0 {
		return 0, fmt.Errorf("%w: %s has no video stream", errs.ErrFormat, video)
	}
	for _, v := range []string{out.Streams[0].NbReadPackets, out.Streams[0].NbFrames} {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n, nil
		}
	}
	return 0, nil
}

// FrameName is the file name ffmpeg writes for frame idx of a video with total
// frames.
func FrameName(prefix, ext string, total, idx int) string {
	return fmt.Sprintf("%s_%0*d%s", prefix, len(strconv.Itoa(total)), idx, ext)
}

// countWritten counts the frames of this extraction, ignoring files left in dir
// by earlier runs. With an unknown total it counts contiguous indices from 0.
func countWritten(dir, prefix, ext string, total int) (int, error) {
	n := 0
	for idx := 0; total == 0 || idx < total; idx++ {
		_, err := os.Stat(filepath.Join(dir, FrameName(prefix, ext, total, idx)))
		if os.IsNotExist(err) {
			if total == 0 {
				break
			}
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("failed to check frame %d: %w", idx, err)
		}
		n++
	}
	return n, nil
}
