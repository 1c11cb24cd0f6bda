// Package config loads the evaluator configuration and vocabulary.
package config

import (
	"os"
	"reflect"
	"time"

	"github.com/ghodss/yaml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/constraints"
	"github.com/wordprob/wordprob/pkg/pipeline"
	"github.com/wordprob/wordprob/pkg/solver"
)

// Tie-break modes.
const (
	TieBreakRandom = "random"
	TieBreakSeeded = "seeded"
	TieBreakFirst  = "first"
)

// DefaultGoldQuery selects the accepted answer sets of a corpus record:
// a list of lists of answers.
const DefaultGoldQuery = `.ans_simple | if type == "array" then [map(tostring)] elif . == null then [] else [[tostring]] end`

// Config is immutable once loaded; components receive a pointer to it.
type Config struct {
	Timeout           time.Duration              `json:"timeout"`
	Strategy          constraints.Strategy       `json:"strategy"`
	MultipleSolutions pipeline.MultipleSolutions `json:"multipleSolutions"`
	TieBreak          string                     `json:"tieBreak"`
	Seed              int64                      `json:"seed"`
	Strictness        answer.Strictness          `json:"strictness"`
	Inequality        string                     `json:"inequality"`
	Workers           int                        `json:"workers"`
	GoldQuery         string                     `json:"goldQuery"`
	Vocabulary        string                     `json:"vocabulary"`
	DSN               string                     `json:"dsn"`
}

func Default() Config {
	return Config{
		Timeout:           solver.DefaultTimeout,
		Strategy:          constraints.Auto,
		MultipleSolutions: pipeline.Discard,
		TieBreak:          TieBreakRandom,
		Strictness:        answer.Loose,
		Inequality:        solver.DefaultInequality,
		Workers:           4,
		GoldQuery:         DefaultGoldQuery,
	}
}

// Load reads a YAML (or JSON) file over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading config %s", path)
	}
	if err := Decode(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "error decoding config %s", path)
	}
	return &cfg, nil
}

// Decode overlays the YAML document data onto cfg and validates the
// result.
func Decode(data []byte, cfg *Config) error {
	raw := map[string]interface{}{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			StrategyHookFunc(),
			StrictnessHookFunc(),
			MultipleSolutionsHookFunc(),
		),
		ErrorUnused: true,
		TagName:     "json",
		Result:      cfg,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return err
	}
	return cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Workers < 1 {
		return errors.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	switch c.TieBreak {
	case TieBreakRandom, TieBreakSeeded, TieBreakFirst:
	default:
		return errors.Errorf("unknown tie-break %q", c.TieBreak)
	}
	return nil
}

// TieBreaker returns the answer.TieBreaker the configuration names.
func (c *Config) TieBreaker() answer.TieBreaker {
	switch c.TieBreak {
	case TieBreakFirst:
		return answer.First()
	case TieBreakSeeded:
		return answer.Seeded(c.Seed)
	}
	return answer.Random()
}

func StrategyHookFunc() mapstructure.DecodeHookFunc {
	return stringHookFunc(reflect.TypeOf(constraints.Strategy("")), func(s string) (interface{}, error) {
		return constraints.ParseStrategy(s)
	})
}

func StrictnessHookFunc() mapstructure.DecodeHookFunc {
	return stringHookFunc(reflect.TypeOf(answer.Strictness("")), func(s string) (interface{}, error) {
		return answer.ParseStrictness(s)
	})
}

func MultipleSolutionsHookFunc() mapstructure.DecodeHookFunc {
	return stringHookFunc(reflect.TypeOf(pipeline.MultipleSolutions("")), func(s string) (interface{}, error) {
		return pipeline.ParseMultipleSolutions(s)
	})
}

func stringHookFunc(target reflect.Type, parse func(string) (interface{}, error)) mapstructure.DecodeHookFuncType {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != target || f.Kind() != reflect.String {
			return data, nil
		}
		return parse(reflect.ValueOf(data).String())
	}
}
