package runner

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

func TestResolve(t *testing.T) {
	t.Setenv("COLMAP_EXECUTABLE", "/opt/colmap/bin/colmap")

	if got := Resolve("colmap", "", "COLMAP_EXECUTABLE"); got != "/opt/colmap/bin/colmap" {
		t.Errorf("Expected env override, got %s", got)
	}
	if got := Resolve("colmap", "/usr/local/bin/colmap", "COLMAP_EXECUTABLE"); got != "/usr/local/bin/colmap" {
		t.Errorf("Expected explicit override, got %s", got)
	}
	if got := Resolve("magick", "", "MAGICK_EXECUTABLE_UNSET_FOR_TEST"); got != "magick" {
		t.Errorf("Expected bare name, got %s", got)
	}
}

func TestResultErr(t *testing.T) {
	inv := Invocation{Name: "colmap", Args: []string{"feature_extractor"}}

	if err := (&Result{}).Err(inv); err != nil {
		t.Errorf("Expected nil error for exit 0, got %v", err)
	}

	err := (&Result{ExitCode: 2, Stderr: "boom"}).Err(inv)
	var pe *errs.ExternalProcessError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected ExternalProcessError, got %T", err)
	}
	if pe.ExitCode != 2 || pe.Tool != "colmap" {
		t.Errorf("Unexpected error contents: %+v", pe)
	}
}

func TestInvocationString(t *testing.T) {
	inv := Invocation{Name: "magick", Args: []string{"mogrify", "-resize", "50%", "my image.jpg"}}
	expected := `magick mogrify -resize 50% "my image.jpg"`
	if inv.String() != expected {
		t.Errorf("Expected %s, got %s", expected, inv.String())
	}
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	r := NewExecRunner()
	res, err := r.Run(context.Background(), Invocation{
		Name: "sh",
		Args: []string{"-c", "echo out; echo err 1>&2; exit 3"},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("Expected exit code 3, got %d", res.ExitCode)
	}
	if res.Stdout != "out\n" {
		t.Errorf("Expected stdout %q, got %q", "out\n", res.Stdout)
	}
	if res.Stderr != "err\n" {
		t.Errorf("Expected stderr %q, got %q", "err\n", res.Stderr)
	}
}

func TestExecRunnerMissingExecutable(t *testing.T) {
	_, err := NewExecRunner().Run(context.Background(), Invocation{Name: "definitely-not-a-real-tool-xyz"})
	if !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
