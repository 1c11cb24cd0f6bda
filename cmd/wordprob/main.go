package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/config"
	"github.com/wordprob/wordprob/pkg/constraints"
	"github.com/wordprob/wordprob/pkg/metrics"
	"github.com/wordprob/wordprob/pkg/pipeline"
	"github.com/wordprob/wordprob/pkg/solver"
	"github.com/wordprob/wordprob/pkg/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are shared by every subcommand. Flags that are set override the
// configuration file.
type options struct {
	configPath        string
	debug             bool
	version           bool
	trace             bool
	timeout           time.Duration
	strategy          string
	multipleSolutions string
	tieBreak          string
	seed              int64
	strictness        string
}

func newRootCmd() *cobra.Command {
	o := &options{}

	cmd := &cobra.Command{
		Use:          "wordprob",
		Short:        "Compiles, solves and reconciles math word-problem parses",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if o.version {
				fmt.Fprint(cmd.OutOrStdout(), version.String())
				return nil
			}
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "path to a YAML configuration file")
	flags.BoolVar(&o.debug, "debug", false, "use debug log level")
	flags.BoolVar(&o.trace, "trace", false, "write every solver attempt to stderr")
	flags.DurationVar(&o.timeout, "timeout", solver.DefaultTimeout, "time limit for solving one candidate")
	flags.StringVar(&o.strategy, "strategy", string(constraints.Auto), "consecutive-integer strategy: auto, auxiliary or legacy")
	flags.StringVar(&o.multipleSolutions, "multiple-solutions", string(pipeline.Discard), "what to do with simultaneous solutions: discard or branches")
	flags.StringVar(&o.tieBreak, "tie-break", config.TieBreakRandom, "how tied answers are broken: random, seeded or first")
	flags.Int64Var(&o.seed, "seed", 0, "seed for the seeded tie-break")
	flags.StringVar(&o.strictness, "strictness", string(answer.Loose), "answer matching: tight or loose")
	cmd.Flags().BoolVar(&o.version, "version", false, "displays the wordprob version")

	cmd.AddCommand(newSolveCmd(o), newEvaluateCmd(o), newCompileCmd(o))
	return cmd
}

func (o *options) logger(cmd *cobra.Command) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	if o.debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.Debugf("log level %s", logger.Level)
	return logger
}

// config loads the configuration file and applies the flags that were
// set explicitly.
func (o *options) config(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if flags.Changed("timeout") {
		cfg.Timeout = o.timeout
	}
	if flags.Changed("strategy") {
		if cfg.Strategy, err = constraints.ParseStrategy(o.strategy); err != nil {
			return nil, err
		}
	}
	if flags.Changed("multiple-solutions") {
		if cfg.MultipleSolutions, err = pipeline.ParseMultipleSolutions(o.multipleSolutions); err != nil {
			return nil, err
		}
	}
	if flags.Changed("tie-break") {
		cfg.TieBreak = o.tieBreak
	}
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}
	if flags.Changed("strictness") {
		if cfg.Strictness, err = answer.ParseStrictness(o.strictness); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

func (o *options) pipeline(cfg *config.Config, logger logrus.FieldLogger, trace io.Writer) (*pipeline.Pipeline, error) {
	tracer := solver.Tracer(solver.DefaultTracer{})
	if o.trace {
		tracer = solver.LoggingTracer{Writer: trace}
	}
	s, err := solver.New(
		solver.WithTimeout(cfg.Timeout),
		solver.WithLogger(logger),
		solver.WithTracer(tracer),
	)
	if err != nil {
		return nil, err
	}
	return pipeline.New(
		pipeline.WithSolver(s),
		pipeline.WithAggregator(answer.NewAggregator(cfg.TieBreaker())),
		pipeline.WithStrategy(cfg.Strategy),
		pipeline.WithMultipleSolutions(cfg.MultipleSolutions),
		pipeline.WithInequality(cfg.Inequality),
		pipeline.WithLogger(logger),
		pipeline.WithInstrumentation(metrics.RegisterCandidateSuccess, metrics.RegisterCandidateFailure),
	)
}
