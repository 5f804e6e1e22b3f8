package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// ExecRunner runs tools as local processes.
type ExecRunner struct {
	// Echo, when set, receives every output line as it is produced.
	Echo io.Writer
}

// NewExecRunner creates a runner that only logs tool output at debug level.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts the tool, streams its output line by line and waits for it.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) (*Result, error) {
	path, err := LookPath(inv.Name)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, path, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe for %s: %w", inv.Name, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe for %s: %w", inv.Name, err)
	}

	slog.Info("Running command", "cmd", inv.String())
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", inv.Name, err)
	}

	var outBuf, errBuf bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(2)
	go r.drain(&wg, stdout, &outBuf, inv.Name, "stdout")
	go r.drain(&wg, stderr, &errBuf, inv.Name, "stderr")
	wg.Wait()

	waitErr := cmd.Wait()
	res := &Result{
		Stdout:   outBuf.String(),
		Stderr:   errBuf.String(),
		Duration: time.Since(start),
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("failed waiting for %s: %w", inv.Name, waitErr)
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			res.ExitCode = 1
		}
	}

	slog.Debug("Command finished", "tool", inv.Name, "exit_code", res.ExitCode, "duration", res.Duration)
	return res, nil
}

func (r *ExecRunner) drain(wg *sync.WaitGroup, src io.Reader, dst *bytes.Buffer, tool, stream string) {
	defer wg.Done()
	s := bufio.NewScanner(src)
	s.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for s.Scan() {
		line := s.Text()
		dst.WriteString(line)
		dst.WriteByte('\n')
		slog.Debug(tool, "stream", stream, "line", line)
		if r.Echo != nil {
			fmt.Fprintln(r.Echo, line)
		}
	}
	// keep the pipe drained if a line overflowed the scanner
	_, _ = io.Copy(io.Discard, src)
}
