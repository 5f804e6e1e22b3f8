package colmap

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/splatprep/internal/runner"
)

// Model text file names.
const (
	ImagesTxt   = "images.txt"
	CamerasTxt  = "cameras.txt"
	Points3DTxt = "points3D.txt"
	TestListTxt = "test.txt"
)

// ClearPoints3D truncates dir/points3D.txt, creating it if needed.
func ClearPoints3D(dir string) error {
	path := filepath.Join(dir, Points3DTxt)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to clear %s: %w", path, err)
	}
	return f.Close()
}

// EnsurePoints3D creates an empty dir/points3D.txt unless one exists.
func EnsurePoints3D(dir string) error {
	path := filepath.Join(dir, Points3DTxt)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return ClearPoints3D(dir)
}

// WriteTestList writes dir/test.txt with one image name per line, creating
// dir if needed. It returns the written path.
func WriteTestList(dir string, names []string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	path := filepath.Join(dir, TestListTxt)
	var sb strings.Builder
	for _, n := range names {
		sb.WriteString(n)
		sb.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write test list: %w", err)
	}
	return path, nil
}

// ReadTestList returns the names listed in dir/test.txt. A missing file is an
// empty list.
func ReadTestList(dir string) (map[string]bool, error) {
	out := make(map[string]bool)
	f, err := os.Open(filepath.Join(dir, TestListTxt))
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("failed to open test list: %w", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		if name := strings.TrimSpace(s.Text()); name != "" {
			out[name] = true
		}
	}
	return out, s.Err()
}

// Converter runs COLMAP's model_converter.
type Converter struct {
	Runner runner.Runner
	// Colmap is the executable; empty means "colmap".
	Colmap string
}

// ConvertToText converts the binary model in input to a text model in output
// and empties the resulting points3D.txt.
func (c *Converter) ConvertToText(ctx context.Context, input, output string) error {
	if _, err := os.Stat(input); err != nil {
		return fmt.Errorf("model input: %w", notFoundOr(err, "model directory", input))
	}
	if err := os.MkdirAll(output, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	exe := c.Colmap
	if exe == "" {
		exe = "colmap"
	}
	inv := runner.Invocation{
		Name: exe,
		Args: []string{
			"model_converter",
			"--input_path", input,
			"--output_path", output,
			"--output_type", "TXT",
		},
	}
	if _, err := runner.RunChecked(ctx, c.Runner, inv); err != nil {
		return fmt.Errorf("model conversion failed: %w", err)
	}
	slog.Info("Model conversion succeeded", "output", output)

	if err := ClearPoints3D(output); err != nil {
		slog.Warn("Failed to clear points3D.txt", "dir", output, "error", err)
		return nil
	}
	slog.Info("Cleared points3D.txt", "path", filepath.Join(output, Points3DTxt))
	return nil
}
