// Package errs defines the error kinds shared by every splatprep command.
//
// Callers wrap one of the sentinel kinds with context using fmt.Errorf and %w,
// and inspect them with errors.Is. Failures of delegated tools are reported as
// *ExternalProcessError so the exit code survives up to main.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks a missing required file or directory.
	ErrNotFound = errors.New("not found")
	// ErrFormat marks a malformed input file.
	ErrFormat = errors.New("format error")
	// ErrConfiguration marks inputs that are individually valid but inconsistent.
	ErrConfiguration = errors.New("configuration error")
)

// ExternalProcessError reports a delegated tool that exited non-zero.
type ExternalProcessError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *ExternalProcessError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// NotFound returns an ErrNotFound wrapping error naming what is missing.
func NotFound(what, path string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, what, path)
}

// ExitCode returns the process exit status that should be used for err.
// Delegated tool failures keep the tool's own status; everything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var pe *ExternalProcessError
	if errors.As(err, &pe) && pe.ExitCode > 0 {
		return pe.ExitCode
	}
	return 1
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}
