// Package runnertest provides a scripted Runner for tests.
package runnertest

import (
	"context"
	"sync"

	"github.com/lehigh-university-libraries/splatprep/internal/runner"
)

// Fake records invocations and answers them from Handle, or with exit 0.
type Fake struct {
	mu    sync.Mutex
	Calls []runner.Invocation

	// Handle may fake side effects (creating files) and pick the result.
	Handle func(inv runner.Invocation) (*runner.Result, error)
}

func (f *Fake) Run(ctx context.Context, inv runner.Invocation) (*runner.Result, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, inv)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Handle != nil {
		return f.Handle(inv)
	}
	return &runner.Result{}, nil
}

// Subcommands returns the first argument of every recorded call, which for
// COLMAP is the subcommand name.
func (f *Fake) Subcommands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.Calls))
	for _, c := range f.Calls {
		if len(c.Args) > 0 {
			out = append(out, c.Args[0])
		}
	}
	return out
}
