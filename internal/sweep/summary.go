package sweep

import (
	"math"
	"time"
)

// Summary aggregates the runs of a sweep.
type Summary struct {
	Sweep         *Sweep        `json:"sweep"`
	Metric        Metric        `json:"metric"`
	TotalRuns     int           `json:"total_runs"`
	FinishedRuns  int           `json:"finished_runs"`
	FailedRuns    int           `json:"failed_runs"`
	RunningRuns   int           `json:"running_runs"`
	Best          *Run          `json:"best,omitempty"`
	BestValue     float64       `json:"best_value"`
	MeanValue     float64       `json:"mean_value"`
	StdDevValue   float64       `json:"stddev_value"`
	TotalDuration time.Duration `json:"total_duration"`
	Runs          []*Run        `json:"runs"`
}

// SummarizeRuns aggregates runs against the sweep's metric. Runs that did not
// report the metric count towards the totals but not the statistics.
func SummarizeRuns(sw *Sweep, runs []*Run) *Summary {
	s := &Summary{Sweep: sw, Metric: sw.Config.Metric, TotalRuns: len(runs), Runs: runs}

	var values []float64
	for _, r := range runs {
		s.TotalDuration += r.Duration()
		switch r.State {
		case StateFailed:
			s.FailedRuns++
			continue
		case StateRunning:
			s.RunningRuns++
			continue
		}
		s.FinishedRuns++

		v, ok := r.Metrics[s.Metric.Name]
		if !ok {
			continue
		}
		values = append(values, v)
		if s.Best == nil || s.Metric.Better(v, s.BestValue) {
			s.Best = r
			s.BestValue = v
		}
	}

	s.MeanValue = calculateAverage(values)
	s.StdDevValue = calculateStdDev(values, s.MeanValue)
	return s
}

func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return math.Sqrt(sum / float64(len(values)))
}
