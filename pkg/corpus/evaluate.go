package corpus

import (
	"context"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/config"
	"github.com/wordprob/wordprob/pkg/metrics"
	"github.com/wordprob/wordprob/pkg/pipeline"
)

// Report is the evaluation of one record.
type Report struct {
	Line       int
	Text       string
	Answer     answer.Set
	Gold       []answer.Gold
	Correct    bool
	Reachable  bool
	Candidates int
	// Reasons counts candidate outcomes by reason.
	Reasons map[string]int
	// Ignorable lists the tokens the vocabulary marks as skippable.
	Ignorable []string
	// Unknown lists the tokens missing from the vocabulary.
	Unknown []string
}

// Sink receives reports as they are produced. Implementations must be
// safe for concurrent use.
type Sink interface {
	Save(ctx context.Context, r Report) error
}

// Summary aggregates the reports of one evaluation.
type Summary struct {
	Sentences    int
	Correct      int
	Reachable    int
	NoCandidates int
	Reasons      map[string]int
	// Ignorable and Unknown count, per token, the sentences it appears in.
	Ignorable map[string]int
	Unknown   map[string]int
}

func (s Summary) Accuracy() float64 {
	if s.Sentences == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Sentences)
}

type Evaluator struct {
	pipeline   *pipeline.Pipeline
	strictness answer.Strictness
	workers    int
	vocabulary *config.Vocabulary
	sink       Sink
	logger     logrus.FieldLogger
}

type EvaluatorOption func(e *Evaluator)

func WithVocabulary(v *config.Vocabulary) EvaluatorOption {
	return func(e *Evaluator) { e.vocabulary = v }
}

func WithSink(s Sink) EvaluatorOption {
	return func(e *Evaluator) { e.sink = s }
}

func WithEvaluatorLogger(l logrus.FieldLogger) EvaluatorOption {
	return func(e *Evaluator) { e.logger = l }
}

func NewEvaluator(p *pipeline.Pipeline, strictness answer.Strictness, workers int, options ...EvaluatorOption) *Evaluator {
	if workers < 1 {
		workers = 1
	}
	e := &Evaluator{pipeline: p, strictness: strictness, workers: workers}
	for _, option := range options {
		option(e)
	}
	if e.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		e.logger = l
	}
	return e
}

// Evaluate scores every record. Records are evaluated in parallel; the
// candidates of one record are executed in order. Reports are returned in
// record order. When ctx is done before every record is scored, Evaluate
// returns its error instead of a partial summary.
func (e *Evaluator) Evaluate(ctx context.Context, records []Record) ([]Report, Summary, error) {
	reports := make([]Report, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range records {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r := e.evaluate(gctx, records[i])
			// Run stops early on cancellation, so r may be incomplete.
			if err := gctx.Err(); err != nil {
				return err
			}
			reports[i] = r
			if e.sink == nil {
				return nil
			}
			return e.sink.Save(gctx, r)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Summary{}, err
	}
	if err := ctx.Err(); err != nil {
		return nil, Summary{}, err
	}
	return reports, Summarize(reports), nil
}

func (e *Evaluator) evaluate(ctx context.Context, rec Record) Report {
	r := Report{
		Line:       rec.Line,
		Text:       rec.Text,
		Gold:       rec.Gold,
		Candidates: len(rec.Candidates),
		Reasons:    map[string]int{},
	}
	if e.vocabulary != nil {
		tokens := Preprocess(rec.Text)
		r.Ignorable = e.vocabulary.Ignorable(tokens)
		r.Unknown = e.vocabulary.Unknown(tokens)
	}
	if len(rec.Candidates) == 0 {
		metrics.EmitSentenceWithoutCandidates()
		r.Answer = answer.Set{}
		e.logger.WithField("line", rec.Line).Info("no candidates")
		return r
	}
	result := e.pipeline.AggregateAndMatch(ctx, rec.Candidates, rec.Gold, e.strictness)
	for _, o := range result.Outcomes {
		r.Reasons[o.Reason()]++
	}
	r.Answer = result.Answer
	r.Correct = result.Correct
	r.Reachable = result.Reachable
	e.logger.WithFields(logrus.Fields{
		"line":    rec.Line,
		"answer":  r.Answer.String(),
		"correct": r.Correct,
	}).Debug("evaluated")
	return r
}

func Summarize(reports []Report) Summary {
	s := Summary{Reasons: map[string]int{}, Ignorable: map[string]int{}, Unknown: map[string]int{}}
	for _, r := range reports {
		s.Sentences++
		if r.Correct {
			s.Correct++
		}
		if r.Reachable {
			s.Reachable++
		}
		if r.Candidates == 0 {
			s.NoCandidates++
		}
		for reason, n := range r.Reasons {
			s.Reasons[reason] += n
		}
		for _, t := range r.Ignorable {
			s.Ignorable[t]++
		}
		for _, t := range r.Unknown {
			s.Unknown[t]++
		}
	}
	return s
}

// TopIgnorable returns the n most frequent ignorable tokens, most
// frequent first; ties are ordered alphabetically.
func (s Summary) TopIgnorable(n int) []string {
	return top(s.Ignorable, n)
}

// TopUnknown is TopIgnorable for tokens missing from the vocabulary.
func (s Summary) TopUnknown(n int) []string {
	return top(s.Unknown, n)
}

func top(counts map[string]int, n int) []string {
	tokens := make([]string, 0, len(counts))
	for t := range counts {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if n >= 0 && n < len(tokens) {
		tokens = tokens[:n]
	}
	return tokens
}
