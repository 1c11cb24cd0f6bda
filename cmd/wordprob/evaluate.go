package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wordprob/wordprob/pkg/config"
	"github.com/wordprob/wordprob/pkg/corpus"
	"github.com/wordprob/wordprob/pkg/lib/signals"
	"github.com/wordprob/wordprob/pkg/metrics"
	"github.com/wordprob/wordprob/pkg/store"
)

type evaluateOptions struct {
	workers      int
	vocabulary   string
	goldQuery    string
	dsn          string
	runName      string
	metricsAddr  string
	topIgnorable int
	topUnknown   int
	dumpMetrics  bool
	verbose      bool
}

func newEvaluateCmd(o *options) *cobra.Command {
	e := &evaluateOptions{}

	cmd := &cobra.Command{
		Use:   "evaluate [FILE]",
		Short: "Scores the pipeline against a JSON-lines corpus",
		Long: `Reads one record per line from FILE, or stdin when FILE is "-" or absent:

  {"text": "...", "ans_simple": [5, 7, 9], "candidates": [{"semantics": ...}]}

Sentences are evaluated in parallel; the candidates of one sentence are
executed in order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := o.logger(cmd)
			cfg, err := o.config(cmd.Flags())
			if err != nil {
				return err
			}
			e.apply(cmd, cfg)

			ctx, cancel := context.WithCancel(signals.Context())
			defer cancel()
			return e.run(ctx, cmd, o, cfg, logger, args)
		},
	}

	cmd.Flags().IntVar(&e.workers, "workers", 4, "number of sentences evaluated in parallel")
	cmd.Flags().StringVar(&e.vocabulary, "vocabulary", "", "newline-delimited vocabulary of ignorable words; ignorable and unknown tokens are reported")
	cmd.Flags().StringVar(&e.goldQuery, "gold-query", config.DefaultGoldQuery, "jq query selecting the accepted answer sets of a record")
	cmd.Flags().StringVar(&e.dsn, "dsn", "", "Postgres DSN; when set every report is stored")
	cmd.Flags().StringVar(&e.runName, "run", "", "name of the stored run (default: start time)")
	cmd.Flags().StringVar(&e.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while evaluating")
	cmd.Flags().IntVar(&e.topIgnorable, "top-ignorable", 10, "number of ignorable tokens to list")
	cmd.Flags().IntVar(&e.topUnknown, "top-unknown", 10, "number of tokens missing from the vocabulary to list")
	cmd.Flags().BoolVar(&e.verbose, "verbose", false, "print a line for every sentence")
	cmd.Flags().BoolVar(&e.dumpMetrics, "dump-metrics", false, "write the collected metrics to stderr when done")
	return cmd
}

// apply merges the configuration file into the flags that were not set.
func (e *evaluateOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("workers") {
		e.workers = cfg.Workers
	}
	if !flags.Changed("vocabulary") {
		e.vocabulary = cfg.Vocabulary
	}
	if !flags.Changed("gold-query") {
		e.goldQuery = cfg.GoldQuery
	}
	if !flags.Changed("dsn") {
		e.dsn = cfg.DSN
	}
	if e.runName == "" {
		e.runName = time.Now().UTC().Format(time.RFC3339)
	}
}

func (e *evaluateOptions) run(ctx context.Context, cmd *cobra.Command, o *options, cfg *config.Config, logger *logrus.Logger, args []string) error {
	if e.metricsAddr != "" || e.dumpMetrics {
		metrics.Register()
	}
	if e.metricsAddr != "" {
		shutdown := serveMetrics(e.metricsAddr, logger)
		defer shutdown()
	}

	query, err := corpus.ParseGoldQuery(e.goldQuery)
	if err != nil {
		return err
	}
	in, err := open(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	defer in.Close()
	records, err := corpus.NewReader(query, logger).Read(in)
	if err != nil {
		return err
	}
	logger.Infof("read %d records", len(records))

	p, err := o.pipeline(cfg, logger, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	evalOptions := []corpus.EvaluatorOption{corpus.WithEvaluatorLogger(logger)}
	if e.vocabulary != "" {
		vocabulary, err := config.LoadVocabulary(e.vocabulary)
		if err != nil {
			return err
		}
		evalOptions = append(evalOptions, corpus.WithVocabulary(vocabulary))
	}
	if e.dsn != "" {
		db, err := store.Open(ctx, e.dsn)
		if err != nil {
			return err
		}
		defer db.Close()
		repo := store.NewResultRepo(db, e.runName)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		evalOptions = append(evalOptions, corpus.WithSink(repo))
		logger.WithField("run", e.runName).Info("storing reports")
	}

	reports, summary, err := corpus.NewEvaluator(p, cfg.Strictness, e.workers, evalOptions...).Evaluate(ctx, records)
	if err != nil {
		return err
	}
	e.print(cmd.OutOrStdout(), reports, summary)
	if e.dumpMetrics {
		return metrics.WriteText(cmd.ErrOrStderr(), prometheus.DefaultGatherer)
	}
	return nil
}

func (e *evaluateOptions) print(out io.Writer, reports []corpus.Report, s corpus.Summary) {
	if e.verbose {
		for _, r := range reports {
			mark := " "
			if r.Correct {
				mark = "+"
			}
			fmt.Fprintf(out, "%s %4d %-20s %s\n", mark, r.Line, r.Answer, r.Text)
		}
	}
	fmt.Fprintf(out, "sentences:      %d\n", s.Sentences)
	fmt.Fprintf(out, "correct:        %d (%.1f%%)\n", s.Correct, 100*s.Accuracy())
	fmt.Fprintf(out, "reachable:      %d\n", s.Reachable)
	fmt.Fprintf(out, "no candidates:  %d\n", s.NoCandidates)
	for _, reason := range sortedKeys(s.Reasons) {
		fmt.Fprintf(out, "candidates %-24s %d\n", reason+":", s.Reasons[reason])
	}
	printTokens(out, "ignorable tokens", s.TopIgnorable(e.topIgnorable), s.Ignorable)
	printTokens(out, "unknown tokens", s.TopUnknown(e.topUnknown), s.Unknown)
}

func printTokens(out io.Writer, title string, tokens []string, counts map[string]int) {
	if len(tokens) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, t := range tokens {
		fmt.Fprintf(out, "  %-16s %d\n", t, counts[t])
	}
}

func serveMetrics(addr string, logger logrus.FieldLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server stopped")
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}
}
