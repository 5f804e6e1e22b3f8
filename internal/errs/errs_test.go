package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "nil", err: nil, expected: 0},
		{name: "format", err: fmt.Errorf("%w: odd line count", ErrFormat), expected: 1},
		{
			name:     "wrapped external",
			err:      fmt.Errorf("feature extraction: %w", &ExternalProcessError{Tool: "colmap", ExitCode: 3}),
			expected: 3,
		},
		{name: "external without status", err: &ExternalProcessError{Tool: "colmap"}, expected: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.expected {
				t.Errorf("Expected exit code %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	err := NotFound("names file", "/tmp/names.txt")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, ErrFormat) {
		t.Errorf("NotFound should not match ErrFormat")
	}
}

func TestExternalProcessErrorMessage(t *testing.T) {
	err := &ExternalProcessError{Tool: "ffmpeg", ExitCode: 1, Stderr: "first\nInvalid data found\n"}
	expected := "ffmpeg exited with status 1: Invalid data found"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}
