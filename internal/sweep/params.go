package sweep

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"

	"github.com/lehigh-university-libraries/splatprep/internal/errs"
)

// Params are the sampled values of one run.
type Params map[string]any

// Float returns a numeric parameter as float64.
func (p Params) Float(name string) (float64, error) {
	switch v := p[name].(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case nil:
		return 0, fmt.Errorf("%w: parameter %s was not sampled", errs.ErrConfiguration, name)
	default:
		return 0, fmt.Errorf("%w: parameter %s is %T, expected a number", errs.ErrConfiguration, name, v)
	}
}

// Int returns a numeric parameter truncated to an int.
func (p Params) Int(name string) (int, error) {
	f, err := p.Float(name)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// Bool returns a boolean parameter.
func (p Params) Bool(name string) (bool, error) {
	switch v := p[name].(type) {
	case bool:
		return v, nil
	case nil:
		return false, fmt.Errorf("%w: parameter %s was not sampled", errs.ErrConfiguration, name)
	default:
		return false, fmt.Errorf("%w: parameter %s is %T, expected a bool", errs.ErrConfiguration, name, v)
	}
}

// String formats a parameter for a command line.
func (p Params) String(name string) string {
	switch v := p[name].(type) {
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// Sampler yields parameter sets. ok is false once the search space is
// exhausted.
type Sampler interface {
	Next() (p Params, ok bool)
}

// NewSampler picks the sampler for cfg.Method. skip fast-forwards a grid
// sampler past runs that already happened, so a resumed sweep continues where
// it stopped.
func NewSampler(cfg *Config, rng *rand.Rand, skip int) (Sampler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Method {
	case MethodGrid:
		g, err := newGridSampler(cfg)
		if err != nil {
			return nil, err
		}
		g.pos = skip
		return g, nil
	case MethodBayes:
		slog.Info("Bayesian search is not available locally; sampling randomly")
	}
	return &randomSampler{cfg: cfg, rng: rng}, nil
}

type randomSampler struct {
	cfg *Config
	rng *rand.Rand
}

func (s *randomSampler) Next() (Params, bool) {
	p := make(Params, len(s.cfg.Parameters))
	for _, name := range s.cfg.ParameterNames() {
		param := s.cfg.Parameters[name]
		if len(param.Values) > 0 {
			p[name] = param.Values[s.rng.Intn(len(param.Values))]
			continue
		}
		lo, hi := math.Log(param.Min), math.Log(param.Max)
		p[name] = math.Exp(lo + s.rng.Float64()*(hi-lo))
	}
	return p, true
}

type gridSampler struct {
	names  []string
	values [][]any
	total  int
	pos    int
}

func newGridSampler(cfg *Config) (*gridSampler, error) {
	g := &gridSampler{names: cfg.ParameterNames(), total: 1}
	for _, name := range g.names {
		param := cfg.Parameters[name]
		if len(param.Values) == 0 {
			return nil, fmt.Errorf("%w: grid search needs discrete values for %s", errs.ErrConfiguration, name)
		}
		g.values = append(g.values, param.Values)
		g.total *= len(param.Values)
	}
	return g, nil
}

// Next enumerates the cartesian product with the last parameter varying
// fastest.
func (g *gridSampler) Next() (Params, bool) {
	if g.pos >= g.total {
		return nil, false
	}
	p := make(Params, len(g.names))
	idx := g.pos
	for i := len(g.names) - 1; i >= 0; i-- {
		vals := g.values[i]
		p[g.names[i]] = vals[idx%len(vals)]
		idx /= len(vals)
	}
	g.pos++
	return p, true
}
