package sweep

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
)

// RunRow is the flat Parquet representation of a run.
type RunRow struct {
	SweepID         string  `parquet:"sweep_id"`
	RunID           string  `parquet:"run_id"`
	Seq             int64   `parquet:"seq"`
	State           string  `parquet:"state"`
	Error           string  `parquet:"error,optional"`
	StartedAtMillis int64   `parquet:"started_at_ms"`
	DurationSeconds float64 `parquet:"duration_seconds"`
	ParamsJSON      string  `parquet:"params_json"`
	TestPSNR        float64 `parquet:"test_psnr,optional"`
	TestL1          float64 `parquet:"test_l1,optional"`
	TrainPSNR       float64 `parquet:"train_psnr,optional"`
	TrainL1         float64 `parquet:"train_l1,optional"`
}

// NewRunRow flattens a run.
func NewRunRow(r *Run) (RunRow, error) {
	params, err := json.Marshal(r.Params)
	if err != nil {
		return RunRow{}, fmt.Errorf("failed to encode params: %w", err)
	}
	return RunRow{
		SweepID:         r.SweepID,
		RunID:           r.ID,
		Seq:             int64(r.Seq),
		State:           r.State,
		Error:           r.Error,
		StartedAtMillis: r.StartedAt.UnixMilli(),
		DurationSeconds: r.Duration().Seconds(),
		ParamsJSON:      string(params),
		TestPSNR:        r.Metrics["test_psnr"],
		TestL1:          r.Metrics["test_l1"],
		TrainPSNR:       r.Metrics["train_psnr"],
		TrainL1:         r.Metrics["train_l1"],
	}, nil
}

// ExportParquet writes every run to a Parquet file.
func ExportParquet(path string, runs []*Run) error {
	rows := make([]RunRow, 0, len(runs))
	for _, r := range runs {
		row, err := NewRunRow(r)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create parquet file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewGenericWriter[RunRow](file)
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return file.Close()
}

// ReadParquet loads rows written by ExportParquet.
func ReadParquet(path string) ([]RunRow, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[RunRow](pf)
	defer reader.Close()

	rows := make([]RunRow, pf.NumRows())
	n, err := reader.Read(rows)
	if err != nil && n < len(rows) {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return rows[:n], nil
}
