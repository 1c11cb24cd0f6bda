// Package pipeline runs parse candidates through compilation, constraint
// expansion and solving, then reconciles their answers.
package pipeline

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/mitchellh/hashstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wordprob/wordprob/pkg/algebra"
	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/compiler"
	"github.com/wordprob/wordprob/pkg/constraints"
	"github.com/wordprob/wordprob/pkg/metrics"
	"github.com/wordprob/wordprob/pkg/semantics"
	"github.com/wordprob/wordprob/pkg/solver"
)

// Executor turns one candidate into its answers.
type Executor interface {
	Execute(ctx context.Context, c semantics.Candidate) Outcome
}

// MultipleSolutions decides what happens when the solver finds several
// simultaneous assignments for one candidate.
type MultipleSolutions string

const (
	// Discard yields an empty answer for the candidate.
	Discard MultipleSolutions = "discard"
	// Branches keeps every assignment as a separate answer set.
	Branches MultipleSolutions = "branches"
)

func ParseMultipleSolutions(s string) (MultipleSolutions, error) {
	switch MultipleSolutions(strings.ToLower(strings.TrimSpace(s))) {
	case Discard, "":
		return Discard, nil
	case Branches:
		return Branches, nil
	}
	return "", errors.Errorf("unknown multiple-solution policy %q", s)
}

type Pipeline struct {
	solver     *solver.Solver
	aggregator *answer.Aggregator
	strategy   constraints.Strategy
	multiple   MultipleSolutions
	inequality string
	logger     logrus.FieldLogger
	executor   Executor
	instrument *instrumentation
}

type instrumentation struct {
	success, failure func(time.Duration)
}

var _ Executor = &Pipeline{}

// Execute compiles, expands and solves one candidate. Every failure is
// reported on the Outcome.
func (p *Pipeline) Execute(ctx context.Context, c semantics.Candidate) Outcome {
	logger := p.logger.WithField("candidate", c.String())
	out := Outcome{Candidate: c}

	eqs, err := compiler.CompileAll(c)
	if err != nil {
		out.Err = err
		logger.WithField("reason", ReasonCompile).WithError(err).Debug("candidate rejected")
		return out
	}

	strategy := p.strategy.Resolve(c)
	problem := solver.Problem{
		Equations:   eqs,
		NumVars:     c.NumVars,
		Consecutive: strategy != "",
		Inequality:  p.inequality,
	}
	if strategy == constraints.Auxiliary {
		problem.Equations = append(problem.Equations, constraints.Expand(c.NumVars, c.Parity).Equations...)
	}
	out.Equations = problem.Equations
	logger = logger.WithFields(logrus.Fields{
		"equations": problem.Equations,
		"strategy":  string(strategy),
	})

	if strategy == constraints.Legacy {
		out.Answers, out.Err = p.backSubstitute(ctx, problem)
	} else {
		out.Answers, out.Err = p.solve(ctx, problem)
	}
	if out.Err != nil {
		out.Answers = nil
		logger.WithField("reason", out.Reason()).WithError(out.Err).Debug("candidate failed")
		return out
	}
	logger.WithField("answers", out.Answers).Debug("candidate solved")
	return out
}

func (p *Pipeline) solve(ctx context.Context, problem solver.Problem) ([]answer.Set, error) {
	if p.multiple == Branches {
		sets, err := p.solver.SolveBranches(ctx, problem)
		if err != nil {
			return nil, err
		}
		return nonEmpty(sets), nil
	}
	set, err := p.solver.Solve(ctx, problem)
	if err != nil {
		return nil, err
	}
	return nonEmpty([]answer.Set{set}), nil
}

// backSubstitute solves for k and evaluates the located k-terms at each
// solution.
func (p *Pipeline) backSubstitute(ctx context.Context, problem solver.Problem) ([]answer.Set, error) {
	terms := constraints.Locate(problem.Equations)
	if len(terms) == 0 {
		return nil, nil
	}
	assignments, err := p.solver.Assignments(ctx, problem)
	if err != nil {
		return nil, err
	}
	var ks []algebra.Value
	for _, a := range assignments {
		if k, ok := a[semantics.AuxSymbol]; ok {
			ks = append(ks, k)
		}
	}
	sets, err := constraints.BackSubstitute(terms, ks)
	if err != nil {
		return nil, &solver.SolveFailure{Equations: equationStrings(problem.Equations), Err: err}
	}
	return nonEmpty(sets), nil
}

func nonEmpty(sets []answer.Set) []answer.Set {
	var out []answer.Set
	for _, s := range sets {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func equationStrings(eqs []semantics.Equation) []string {
	out := make([]string, len(eqs))
	for i, eq := range eqs {
		out[i] = eq.String()
	}
	return out
}

// Run executes each distinct candidate in order. Candidates that print
// the same are executed once; each Outcome keeps the Index of the first
// copy. Run stops early when ctx is done.
func (p *Pipeline) Run(ctx context.Context, candidates []semantics.Candidate) []Outcome {
	var outcomes []Outcome
	for _, i := range distinct(candidates) {
		if ctx.Err() != nil {
			p.logger.WithError(ctx.Err()).Debug("stopping before all candidates were executed")
			break
		}
		o := p.executor.Execute(ctx, candidates[i])
		o.Index = i
		metrics.EmitCandidateOutcome(o.Reason())
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// AggregateAndMatch runs the candidates of one sentence, aggregates their
// answers into one and compares it against gold.
func (p *Pipeline) AggregateAndMatch(ctx context.Context, candidates []semantics.Candidate, gold []answer.Gold, strictness answer.Strictness) Result {
	outcomes := p.Run(ctx, candidates)
	var sets []answer.Set
	for _, o := range outcomes {
		sets = append(sets, o.Answers...)
	}
	final := p.aggregator.Aggregate(sets)
	r := Result{
		Outcomes:  outcomes,
		Answer:    final,
		Correct:   answer.Match(gold, []answer.Set{final}, strictness),
		Reachable: answer.Match(gold, sets, strictness),
	}
	metrics.EmitSentenceMatch(r.Correct, string(strictness))
	return r
}

type fingerprint struct {
	Text        string
	NumVars     int
	Consecutive bool
	Parity      string
}

// Dedupe drops candidates whose printed form repeats an earlier one.
func Dedupe(candidates []semantics.Candidate) []semantics.Candidate {
	var out []semantics.Candidate
	for _, i := range distinct(candidates) {
		out = append(out, candidates[i])
	}
	return out
}

// distinct returns the indices of the first copy of every candidate.
func distinct(candidates []semantics.Candidate) []int {
	seen := map[uint64]struct{}{}
	var out []int
	for i, c := range candidates {
		h, err := hashstructure.Hash(fingerprint{
			Text:        c.String(),
			NumVars:     c.NumVars,
			Consecutive: c.Consecutive,
			Parity:      string(c.Parity),
		}, nil)
		if err != nil {
			out = append(out, i)
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, i)
	}
	return out
}

// New returns a Pipeline configured by options.
func New(options ...Option) (*Pipeline, error) {
	p := &Pipeline{}
	for _, option := range append(options, defaults...) {
		if err := option(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

type Option func(p *Pipeline) error

func WithSolver(s *solver.Solver) Option {
	return func(p *Pipeline) error {
		p.solver = s
		return nil
	}
}

func WithAggregator(a *answer.Aggregator) Option {
	return func(p *Pipeline) error {
		p.aggregator = a
		return nil
	}
}

func WithStrategy(s constraints.Strategy) Option {
	return func(p *Pipeline) error {
		p.strategy = s
		return nil
	}
}

func WithMultipleSolutions(m MultipleSolutions) Option {
	return func(p *Pipeline) error {
		if m != Discard && m != Branches {
			return errors.Errorf("unknown multiple-solution policy %q", m)
		}
		p.multiple = m
		return nil
	}
}

// WithInequality overrides the characters that mark an unsupported
// comparator.
func WithInequality(chars string) Option {
	return func(p *Pipeline) error {
		p.inequality = chars
		return nil
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Pipeline) error {
		p.logger = l
		return nil
	}
}

// WithExecutor replaces the per-candidate executor used by Run. The
// pipeline itself is the default.
func WithExecutor(e Executor) Option {
	return func(p *Pipeline) error {
		p.executor = e
		return nil
	}
}

// WithInstrumentation wraps the executor so every candidate reports its
// duration to success or failure.
func WithInstrumentation(success, failure func(time.Duration)) Option {
	return func(p *Pipeline) error {
		p.instrument = &instrumentation{success: success, failure: failure}
		return nil
	}
}

var defaults = []Option{
	func(p *Pipeline) error {
		if p.logger == nil {
			l := logrus.New()
			l.SetOutput(io.Discard)
			p.logger = l
		}
		return nil
	},
	func(p *Pipeline) error {
		if p.solver != nil {
			return nil
		}
		s, err := solver.New(solver.WithLogger(p.logger))
		if err != nil {
			return err
		}
		p.solver = s
		return nil
	},
	func(p *Pipeline) error {
		if p.aggregator == nil {
			p.aggregator = answer.NewAggregator(nil)
		}
		return nil
	},
	func(p *Pipeline) error {
		if p.strategy == "" {
			p.strategy = constraints.Auto
		}
		return nil
	},
	func(p *Pipeline) error {
		if p.multiple == "" {
			p.multiple = Discard
		}
		return nil
	},
	func(p *Pipeline) error {
		if p.executor == nil {
			p.executor = p
		}
		if p.instrument != nil {
			p.executor = NewInstrumentedExecutor(p.executor, p.instrument.success, p.instrument.failure)
		}
		return nil
	},
}
