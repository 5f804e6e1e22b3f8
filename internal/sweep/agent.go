package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Agent defaults.
const (
	DefaultProject     = "gaussian-splatting"
	DefaultSweepIDFile = ".sweep_id"
)

// AgentOptions control one agent invocation.
type AgentOptions struct {
	// Count is the number of runs to perform; 0 runs until interrupted or the
	// search space is exhausted.
	Count  int
	Resume bool
	// SweepIDFile persists the sweep id between invocations.
	SweepIDFile string
	Project     string
	DataName    string
	Seed        int64
}

// AgentResult reports what an agent did.
type AgentResult struct {
	Sweep   *Sweep
	Resumed bool
	Runs    []*Run
}

// Agent samples parameters, prepares the data once and trains run after run.
type Agent struct {
	Store    *Store
	Config   *Config
	Preparer *Preparer
	Trainer  *Trainer
}

// OpenSweep resumes the sweep named in the id file when asked to and the file
// exists; otherwise it creates a sweep and records its id.
func (a *Agent) OpenSweep(ctx context.Context, opts AgentOptions) (*Sweep, bool, error) {
	idFile := opts.SweepIDFile
	if idFile == "" {
		idFile = DefaultSweepIDFile
	}
	if opts.Resume {
		data, err := os.ReadFile(idFile)
		switch {
		case err == nil:
			sw, err := a.Store.GetSweep(ctx, strings.TrimSpace(string(data)))
			if err != nil {
				return nil, false, err
			}
			slog.Info("Resuming sweep", "sweep", sw.ID)
			return sw, true, nil
		case !os.IsNotExist(err):
			return nil, false, fmt.Errorf("failed to read sweep id: %w", err)
		}
		slog.Warn("No sweep to resume, creating a new one", "file", idFile)
	}

	project := opts.Project
	if project == "" {
		project = DefaultProject
	}
	sw, err := a.Store.CreateSweep(ctx, project, opts.DataName, a.Config)
	if err != nil {
		return nil, false, err
	}
	if err := os.WriteFile(idFile, []byte(sw.ID), 0644); err != nil {
		return nil, false, fmt.Errorf("failed to write sweep id: %w", err)
	}
	slog.Info("Created sweep", "sweep", sw.ID)
	return sw, false, nil
}

// Run executes up to opts.Count runs. The first failing run is recorded and
// ends the agent with its error.
func (a *Agent) Run(ctx context.Context, opts AgentOptions) (*AgentResult, error) {
	if opts.Count < 0 {
		return nil, fmt.Errorf("%w: count must not be negative", errs.ErrConfiguration)
	}
	sw, resumed, err := a.OpenSweep(ctx, opts)
	if err != nil {
		return nil, err
	}
	done, err := a.Store.CountRuns(ctx, sw.ID)
	if err != nil {
		return nil, err
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sampler, err := NewSampler(sw.Config, rand.New(rand.NewSource(seed)), done)
	if err != nil {
		return nil, err
	}

	res := &AgentResult{Sweep: sw, Resumed: resumed}
	for i := 0; opts.Count == 0 || i < opts.Count; i++ {
		if err := ctx.Err(); err != nil {
			if opts.Count == 0 && errors.Is(err, context.Canceled) {
				slog.Info("Agent interrupted", "runs", len(res.Runs))
				return res, nil
			}
			return res, err
		}
		params, ok := sampler.Next()
		if !ok {
			slog.Info("Search space exhausted", "sweep", sw.ID)
			break
		}
		run, err := a.runOnce(ctx, sw, params)
		if run != nil {
			res.Runs = append(res.Runs, run)
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (a *Agent) runOnce(ctx context.Context, sw *Sweep, p Params) (*Run, error) {
	if _, err := a.Preparer.Prepare(ctx); err != nil {
		return nil, fmt.Errorf("data preparation failed: %w", err)
	}

	run, err := a.Store.StartRun(ctx, sw.ID, p)
	if err != nil {
		return nil, err
	}
	slog.Info("Starting run", "sweep", sw.ID, "run", run.ID, "seq", run.Seq)

	l := a.Preparer.Layout
	metrics, trainErr := a.Trainer.Train(ctx, p, l.Source(), l.ModelPath())

	// record the outcome even when ctx was cancelled mid-run
	if err := a.Store.FinishRun(context.WithoutCancel(ctx), run, metrics, trainErr); err != nil {
		return run, err
	}
	if trainErr != nil {
		return run, trainErr
	}

	metric := sw.Config.Metric.Name
	if v, ok := metrics[metric]; ok {
		slog.Info("Run finished", "run", run.ID, metric, v)
	} else {
		slog.Warn("Run finished without reporting the sweep metric", "run", run.ID, "metric", metric)
	}
	return run, nil
}
