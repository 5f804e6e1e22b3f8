// Package runner isolates every subprocess splatprep starts behind a narrow
// interface. Run reports what happened; it does not decide whether a non-zero
// exit is fatal. Callers use Result.Err for that.
package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Invocation describes one external tool call.
type Invocation struct {
	// Name is either an executable name looked up on PATH or a path to one.
	Name string
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env entries are appended to the parent environment.
	Env []string
}

// String renders the invocation the way it would be typed in a shell.
func (inv Invocation) String() string {
	parts := make([]string, 0, len(inv.Args)+1)
	parts = append(parts, inv.Name)
	for _, a := range inv.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// Result is what a finished process left behind.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Runner starts external tools.
//
// Run returns an error only when the process could not be started or waited
// for. A process that ran and exited non-zero yields a Result with that code.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (*Result, error)
}

// Err converts a non-zero exit into an *errs.ExternalProcessError.
func (r *Result) Err(inv Invocation) error {
	if r == nil || r.ExitCode == 0 {
		return nil
	}
	return &errs.ExternalProcessError{
		Tool:     inv.Name,
		Args:     inv.Args,
		ExitCode: r.ExitCode,
		Stderr:   r.Stderr,
	}
}

// RunChecked runs inv and folds a non-zero exit into the returned error.
func RunChecked(ctx context.Context, r Runner, inv Invocation) (*Result, error) {
	res, err := r.Run(ctx, inv)
	if err != nil {
		return nil, err
	}
	if err := res.Err(inv); err != nil {
		return res, err
	}
	return res, nil
}

// Resolve picks the executable for a tool. An explicit override wins, then the
// environment variable envKey, then name itself (resolved on PATH at run time).
func Resolve(name, override, envKey string) string {
	if override != "" {
		return override
	}
	if envKey != "" {
		if v := os.Getenv(envKey); v != "" {
			return v
		}
	}
	return name
}

// LookPath reports whether the executable for name can be found.
func LookPath(name string) (string, error) {
	if strings.ContainsRune(name, os.PathSeparator) {
		if _, err := os.Stat(name); err != nil {
			return "", errs.NotFound("executable", name)
		}
		return name, nil
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: executable %q not in PATH", errs.ErrNotFound, name)
	}
	return p, nil
}
