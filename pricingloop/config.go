package pricingloop

import (
	"io"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/scipopt/gcg-colgen/gcgerr"
	"github.com/scipopt/gcg-colgen/pricestore"
)

// Config aggregates every tunable the pricing loop's components expose,
// in one structure a host can load from YAML and/or override from the
// command line.
type Config struct {
	AgeLimit int `yaml:"age_limit"`

	MaxCols       int     `yaml:"max_cols"`
	WeightRedcost float64 `yaml:"w_redcost"`
	WeightOrtho   float64 `yaml:"w_ortho"`
	WeightObj     float64 `yaml:"w_obj"`
	MinColOrtho   float64 `yaml:"min_col_ortho"`
	Eps           float64 `yaml:"eps"`

	RoundLimit       int `yaml:"round_limit"`
	ProblemLimit     int `yaml:"problem_limit"`
	RootRoundLimit   int `yaml:"root_round_limit"`
	RootProblemLimit int `yaml:"root_problem_limit"`

	HybridAscent bool `yaml:"hybrid_ascent"`

	Parallel bool `yaml:"parallel"`
}

// DefaultAgeLimit is the column pool age used when no configuration names
// one: long enough that a column surviving a handful of rounds of
// indifferent duals is not evicted before it gets a real chance to price
// out negative again.
const DefaultAgeLimit = 10

// DefaultConfig returns the configuration pricestore, pricingtype, and
// stabilization already fall back to on their own, gathered in one place.
func DefaultConfig() Config {
	return Config{
		AgeLimit:      DefaultAgeLimit,
		MaxCols:       pricestore.DefaultMaxCols,
		WeightRedcost: pricestore.DefaultWeightRedcost,
		WeightOrtho:   pricestore.DefaultWeightOrtho,
		WeightObj:     pricestore.DefaultWeightObj,
		MinColOrtho:   pricestore.DefaultMinColOrtho,
		Eps:           pricestore.DefaultEps,
		HybridAscent:  false,
		Parallel:      false,
	}
}

// LoadConfigYAML decodes YAML from r into a Config seeded from
// DefaultConfig, so a config file only needs to name the fields it wants
// to override.
func LoadConfigYAML(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, gcgerr.Op("pricingloop.LoadConfigYAML", gcgerr.ErrInvalidData, "%v", err)
	}

	return cfg, nil
}

// BindPFlags registers cfg's fields as flags on fs, so a CLI invocation
// can override whatever a YAML file (or DefaultConfig) already set. Call
// this after LoadConfigYAML (or DefaultConfig) and before fs.Parse.
func BindPFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.AgeLimit, "age-limit", cfg.AgeLimit, "column pool age limit (-1 disables aging)")
	fs.IntVar(&cfg.MaxCols, "max-cols", cfg.MaxCols, "maximum non-forced columns committed per round")
	fs.Float64Var(&cfg.WeightRedcost, "w-redcost", cfg.WeightRedcost, "price store reduced-cost scoring weight")
	fs.Float64Var(&cfg.WeightOrtho, "w-ortho", cfg.WeightOrtho, "price store orthogonality scoring weight")
	fs.Float64Var(&cfg.WeightObj, "w-obj", cfg.WeightObj, "price store objective-parallelism scoring weight")
	fs.Float64Var(&cfg.MinColOrtho, "min-col-ortho", cfg.MinColOrtho, "minimum orthogonality before a non-forced column is dropped")
	fs.Float64Var(&cfg.Eps, "eps", cfg.Eps, "dual-feasibility tolerance")
	fs.IntVar(&cfg.RoundLimit, "round-limit", cfg.RoundLimit, "pricing rounds per node (0 = unlimited)")
	fs.IntVar(&cfg.ProblemLimit, "problem-limit", cfg.ProblemLimit, "pricing-problem solves per round (0 = unlimited)")
	fs.IntVar(&cfg.RootRoundLimit, "root-round-limit", cfg.RootRoundLimit, "round limit override at the root node (0 = use round-limit)")
	fs.IntVar(&cfg.RootProblemLimit, "root-problem-limit", cfg.RootProblemLimit, "problem limit override at the root node (0 = use problem-limit)")
	fs.BoolVar(&cfg.HybridAscent, "hybrid-ascent", cfg.HybridAscent, "enable subgradient-informed hybrid stabilization")
	fs.BoolVar(&cfg.Parallel, "parallel", cfg.Parallel, "solve relevant blocks' pricing subproblems concurrently")
}
