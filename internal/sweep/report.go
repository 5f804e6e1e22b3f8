package sweep

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Report formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// WriteReport renders a sweep summary in the requested format.
func WriteReport(w io.Writer, s *Summary, format string) error {
	switch format {
	case FormatText, "":
		return writeTextReport(w, s)
	case FormatJSON:
		return writeJSONReport(w, s)
	case FormatCSV:
		return writeCSVReport(w, s)
	default:
		return fmt.Errorf("%w: unsupported format: %s", errs.ErrConfiguration, format)
	}
}

func writeTextReport(w io.Writer, s *Summary) error {
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Sweep Report\n")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Sweep:   %s\n", s.Sweep.ID)
	fmt.Fprintf(w, "Project: %s\n", s.Sweep.Project)
	fmt.Fprintf(w, "Data:    %s\n", s.Sweep.DataName)
	fmt.Fprintf(w, "Method:  %s\n", s.Sweep.Config.Method)
	fmt.Fprintf(w, "Metric:  %s (%s)\n", s.Metric.Name, s.Metric.Goal)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Runs:     %d (finished %d, failed %d, running %d)\n",
		s.TotalRuns, s.FinishedRuns, s.FailedRuns, s.RunningRuns)
	fmt.Fprintf(w, "Mean:     %.4f\n", s.MeanValue)
	fmt.Fprintf(w, "Std dev:  %.4f\n", s.StdDevValue)
	fmt.Fprintf(w, "Duration: %s\n", s.TotalDuration.Round(time.Second))

	if s.Best != nil {
		fmt.Fprintf(w, "\nBest run #%d (%s): %s = %.4f\n", s.Best.Seq, s.Best.ID, s.Metric.Name, s.BestValue)
		for _, name := range sortedKeys(s.Best.Params) {
			fmt.Fprintf(w, "  %s: %s\n", name, s.Best.Params.String(name))
		}
	}

	fmt.Fprintln(w, "\nRuns:")
	fmt.Fprintln(w, "========================================")
	for _, r := range s.Runs {
		switch {
		case r.Error != "":
			fmt.Fprintf(w, "[%d] %s  ❌ %s\n", r.Seq, r.State, r.Error)
		default:
			v, ok := r.Metrics[s.Metric.Name]
			if !ok {
				fmt.Fprintf(w, "[%d] %s  %s: n/a\n", r.Seq, r.State, s.Metric.Name)
				continue
			}
			fmt.Fprintf(w, "[%d] %s  %s: %.4f\n", r.Seq, r.State, s.Metric.Name, v)
		}
	}
	return nil
}

func writeJSONReport(w io.Writer, s *Summary) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(s)
}

func writeCSVReport(w io.Writer, s *Summary) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	paramNames := s.Sweep.Config.ParameterNames()
	metricNames := metricColumns(s.Runs)

	header := []string{"Seq", "ID", "State", "Duration Seconds", "Error"}
	for _, n := range paramNames {
		header = append(header, "Param_"+n)
	}
	for _, n := range metricNames {
		header = append(header, "Metric_"+n)
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, r := range s.Runs {
		row := []string{
			strconv.Itoa(r.Seq),
			r.ID,
			r.State,
			fmt.Sprintf("%.1f", r.Duration().Seconds()),
			r.Error,
		}
		for _, n := range paramNames {
			if _, ok := r.Params[n]; ok {
				row = append(row, r.Params.String(n))
			} else {
				row = append(row, "")
			}
		}
		for _, n := range metricNames {
			if v, ok := r.Metrics[n]; ok {
				row = append(row, fmt.Sprintf("%.4f", v))
			} else {
				row = append(row, "")
			}
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func metricColumns(runs []*Run) []string {
	seen := map[string]bool{}
	var names []string
	for _, r := range runs {
		for n := range r.Metrics {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	sort.Strings(names)
	return names
}

func sortedKeys(p Params) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
