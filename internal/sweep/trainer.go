package sweep

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/splatprep/internal/runner"
)

// Trainer defaults.
const (
	EvalInterval       = 50
	DefaultTrainScript = "train.py"
	DefaultPython      = "python3"
)

// TestIterations lists every multiple of interval up to iterations, plus
// iterations itself when it is not already the last entry.
func TestIterations(iterations, interval int) []int {
	if interval <= 0 {
		interval = EvalInterval
	}
	var out []int
	for i := interval; i <= iterations; i += interval {
		out = append(out, i)
	}
	if len(out) == 0 || out[len(out)-1] != iterations {
		out = append(out, iterations)
	}
	return out
}

// TrainArgs builds the trainer command line for one parameter set.
func TrainArgs(p Params, source, modelPath string) ([]string, error) {
	iterations, err := p.Int("iterations")
	if err != nil {
		return nil, err
	}
	ratio, err := p.Float("densify_until_ratio")
	if err != nil {
		return nil, err
	}
	antialiasing, err := p.Bool("antialiasing")
	if err != nil {
		return nil, err
	}
	for _, name := range []string{
		"sh_degree", "percent_dense", "densification_interval", "densify_grad_threshold",
		"lambda_dssim", "densify_from_iter", "depth_l1_weight_init", "depth_l1_weight_final",
	} {
		if _, err := p.Float(name); err != nil {
			return nil, err
		}
	}

	args := []string{
		"--source_path", source,
		"--model_path", modelPath,
		"--iterations", strconv.Itoa(iterations),
		"--sh_degree", p.String("sh_degree"),
		"--percent_dense", p.String("percent_dense"),
		"--densification_interval", p.String("densification_interval"),
		"--densify_grad_threshold", p.String("densify_grad_threshold"),
		"--lambda_dssim", p.String("lambda_dssim"),
		"--densify_from_iter", p.String("densify_from_iter"),
		"--densify_until_iter", strconv.Itoa(int(float64(iterations) * ratio)),
		"--disable_viewer",
		"--eval",
		"--test_iterations",
	}
	for _, it := range TestIterations(iterations, EvalInterval) {
		args = append(args, strconv.Itoa(it))
	}
	args = append(args,
		"--depths", "depth",
		"--mask_folder", "segmantation",
		"--white_background",
	)
	if antialiasing {
		args = append(args, "--antialiasing")
	}
	args = append(args,
		"--depth_l1_weight_init", p.String("depth_l1_weight_init"),
		"--depth_l1_weight_final", p.String("depth_l1_weight_final"),
	)
	return args, nil
}

// Evaluation is one "[ITER n] Evaluating <split>: L1 x PSNR y" report.
type Evaluation struct {
	Iteration int
	Split     string
	L1        float64
	PSNR      float64
}

var evalLine = regexp.MustCompile(`\[ITER (\d+)\] Evaluating (\w+): L1 (\S+) PSNR (\S+)`)

// ParseEvaluations extracts every evaluation report from trainer output.
func ParseEvaluations(output string) []Evaluation {
	var evals []Evaluation
	s := bufio.NewScanner(strings.NewReader(output))
	s.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for s.Scan() {
		m := evalLine.FindStringSubmatch(s.Text())
		if m == nil {
			continue
		}
		it, err1 := strconv.Atoi(m[1])
		l1, err2 := strconv.ParseFloat(m[3], 64)
		psnr, err3 := strconv.ParseFloat(m[4], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		evals = append(evals, Evaluation{Iteration: it, Split: m[2], L1: l1, PSNR: psnr})
	}
	return evals
}

// Metrics are the values a run reports, keyed like the tracker's metric names
// (test_psnr, test_l1, train_psnr, train_l1) from the last evaluation of each
// split.
type Metrics map[string]float64

// Summarize keeps the latest evaluation per split.
func Summarize(evals []Evaluation) Metrics {
	m := Metrics{}
	last := map[string]int{}
	for _, e := range evals {
		if it, seen := last[e.Split]; seen && it > e.Iteration {
			continue
		}
		last[e.Split] = e.Iteration
		m[e.Split+"_psnr"] = e.PSNR
		m[e.Split+"_l1"] = e.L1
	}
	return m
}

// Trainer launches the external training script.
type Trainer struct {
	Runner runner.Runner
	Python string
	Script string
}

// Train runs one training job and returns the metrics it reported.
func (t *Trainer) Train(ctx context.Context, p Params, source, modelPath string) (Metrics, error) {
	args, err := TrainArgs(p, source, modelPath)
	if err != nil {
		return nil, err
	}
	python, script := t.Python, t.Script
	if python == "" {
		python = DefaultPython
	}
	if script == "" {
		script = DefaultTrainScript
	}
	inv := runner.Invocation{
		Name: python,
		Args: append([]string{script}, args...),
		Env:  []string{"TORCHDYNAMO_DISABLE=1"},
	}
	res, err := runner.RunChecked(ctx, t.Runner, inv)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}
	return Summarize(ParseEvaluations(res.Stdout + "\n" + res.Stderr)), nil
}
