// Package sweep runs hyperparameter sweeps of the Gaussian-splatting trainer
// and keeps their results in a local SQLite tracker.
package sweep

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Search methods.
const (
	MethodRandom = "random"
	MethodGrid   = "grid"
	MethodBayes  = "bayes"
)

// Distribution names.
const (
	DistValues           = "values"
	DistLogUniformValues = "log_uniform_values"
)

// Config describes a sweep.
type Config struct {
	Method     string               `yaml:"method" json:"method"`
	Metric     Metric               `yaml:"metric" json:"metric"`
	Parameters map[string]Parameter `yaml:"parameters" json:"parameters"`
}

// Metric is the run summary value a sweep optimises.
type Metric struct {
	Name string `yaml:"name" json:"name"`
	Goal string `yaml:"goal" json:"goal"`
}

// Parameter is either a discrete set of values or a continuous distribution.
type Parameter struct {
	Values       []any   `yaml:"values,omitempty" json:"values,omitempty"`
	Distribution string  `yaml:"distribution,omitempty" json:"distribution,omitempty"`
	Min          float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max          float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// DefaultConfig is the sweep the trainer was tuned with.
func DefaultConfig() *Config {
	logUniform := func(lo, hi float64) Parameter {
		return Parameter{Distribution: DistLogUniformValues, Min: lo, Max: hi}
	}
	values := func(v ...any) Parameter {
		return Parameter{Values: v}
	}
	return &Config{
		Method: MethodBayes,
		Metric: Metric{Name: "test_psnr", Goal: "maximize"},
		Parameters: map[string]Parameter{
			"sh_degree":              values(2, 3, 4, 5),
			"iterations":             values(2250, 3000, 4000, 5000),
			"percent_dense":          logUniform(1e-4, 2e-2),
			"densification_interval": values(25, 50, 100),
			"densify_grad_threshold": logUniform(1e-4, 5e-2),
			"lambda_dssim":           logUniform(0.1, 1.0),
			"antialiasing":           values(true, false),
			"depth_l1_weight_init":   logUniform(0.001, 1.0),
			"depth_l1_weight_final":  logUniform(0.1, 20.0),
			"densify_from_iter":      values(50, 100, 150),
			"densify_until_ratio":    values(1.0, 0.95, 0.9, 0.8),
		},
	}
}

// LoadConfig reads a YAML sweep configuration. An empty path yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.NotFound("sweep config", path)
		}
		return nil, fmt.Errorf("failed to read sweep config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: sweep config %s: %v", errs.ErrFormat, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the method, the metric goal and every parameter.
func (c *Config) Validate() error {
	switch c.Method {
	case MethodRandom, MethodGrid, MethodBayes:
	default:
		return fmt.Errorf("%w: unknown sweep method %q", errs.ErrConfiguration, c.Method)
	}
	switch c.Metric.Goal {
	case "maximize", "minimize":
	default:
		return fmt.Errorf("%w: metric goal must be maximize or minimize, got %q", errs.ErrConfiguration, c.Metric.Goal)
	}
	if c.Metric.Name == "" {
		return fmt.Errorf("%w: metric name is required", errs.ErrConfiguration)
	}
	for _, name := range c.ParameterNames() {
		p := c.Parameters[name]
		switch {
		case len(p.Values) > 0:
		case p.Distribution == DistLogUniformValues:
			if p.Min <= 0 || p.Max < p.Min {
				return fmt.Errorf("%w: parameter %s needs 0 < min <= max", errs.ErrConfiguration, name)
			}
		default:
			return fmt.Errorf("%w: parameter %s has neither values nor a known distribution", errs.ErrConfiguration, name)
		}
	}
	return nil
}

// ParameterNames returns the parameter names in a stable order.
func (c *Config) ParameterNames() []string {
	names := make([]string, 0, len(c.Parameters))
	for n := range c.Parameters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sweep config: %w", err)
	}
	return data, nil
}

// Better reports whether metric a beats b under the configured goal.
func (m Metric) Better(a, b float64) bool {
	if m.Goal == "minimize" {
		return a < b
	}
	return a > b
}
