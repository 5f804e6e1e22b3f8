package toolcmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/splatprep/internal/runner"
	"github.com/lehigh-university-libraries/splatprep/internal/sweep"
)

type sweepFlags struct {
	count       int
	resume      bool
	dataName    string
	config      string
	db          string
	idFile      string
	dataDir     string
	paramsName  string
	outputsDir  string
	valImages   []string
	sfmScript   string
	depthScript string
	trainScript string
	python      string
	colmap      string
	magick      string
	seed        int64
}

func openStore(path string) (*sweep.Store, error) {
	return sweep.OpenStore(envOr(path, EnvSweepDB, sweep.DefaultDBPath))
}

func executeSweepRun(ctx context.Context, out io.Writer, f sweepFlags) error {
	cfg, err := sweep.LoadConfig(f.config)
	if err != nil {
		return err
	}
	dataName := f.dataName
	if dataName == "" {
		slog.Warn("No --data_name given, using the default", "data_name", sweep.DefaultDataName)
		dataName = sweep.DefaultDataName
	}

	store, err := openStore(f.db)
	if err != nil {
		return err
	}
	defer store.Close()

	r := newRunner()
	python := envOr(f.python, EnvPython, sweep.DefaultPython)
	layout := sweep.Layout{
		DataDir:    f.dataDir,
		ParamsName: f.paramsName,
		DataName:   dataName,
		OutputsDir: f.outputsDir,
	}
	agent := &sweep.Agent{
		Store:  store,
		Config: cfg,
		Preparer: &sweep.Preparer{
			Runner:           r,
			Layout:           layout,
			ValImages:        f.valImages,
			Colmap:           runner.Resolve("colmap", f.colmap, EnvColmap),
			Magick:           envOr(f.magick, EnvMagick, ""),
			Python:           python,
			ParamsSfMScript:  f.sfmScript,
			DepthScaleScript: f.depthScript,
		},
		Trainer: &sweep.Trainer{
			Runner: r,
			Python: python,
			Script: envOr(f.trainScript, EnvTrainScript, sweep.DefaultTrainScript),
		},
	}

	res, err := agent.Run(ctx, sweep.AgentOptions{
		Count:       f.count,
		Resume:      f.resume,
		SweepIDFile: f.idFile,
		DataName:    dataName,
		Seed:        f.seed,
	})
	if res != nil {
		fmt.Fprintf(out, "Sweep %s: %d runs completed\n", res.Sweep.ID, len(res.Runs))
	}
	return err
}

func loadSummary(ctx context.Context, store *sweep.Store, id string) (*sweep.Summary, error) {
	var (
		sw  *sweep.Sweep
		err error
	)
	if id == "" {
		sw, err = store.LatestSweep(ctx)
	} else {
		sw, err = store.GetSweep(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	runs, err := store.ListRuns(ctx, sw.ID)
	if err != nil {
		return nil, err
	}
	return sweep.SummarizeRuns(sw, runs), nil
}

func executeSweepReport(ctx context.Context, out io.Writer, db, id, format string) error {
	store, err := openStore(db)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := loadSummary(ctx, store, id)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	return sweep.WriteReport(out, summary, format)
}

func executeSweepExport(ctx context.Context, out io.Writer, db, id, output string) error {
	store, err := openStore(db)
	if err != nil {
		return err
	}
	defer store.Close()

	summary, err := loadSummary(ctx, store, id)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	if err := sweep.ExportParquet(output, summary.Runs); err != nil {
		return err
	}
	fmt.Fprintf(out, "✅ Exported %d runs of sweep %s to %s\n", len(summary.Runs), summary.Sweep.ID, output)
	return nil
}
