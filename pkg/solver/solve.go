// Package solver invokes the algebra engine on compiled candidate
// equations and turns its output into answer sets.
package solver

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wordprob/wordprob/pkg/algebra"
	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/semantics"
)

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o solverfakes/fake_engine.go . Engine

// Engine is the algebra solver behind the adapter. Implementations
// return every assignment that satisfies the equations, and an error for
// input they cannot interpret.
type Engine interface {
	Solve(ctx context.Context, equations []string, symbols []string) ([]algebra.Assignment, error)
}

// DefaultInequality holds the characters that mark a comparator other
// than equality.
const DefaultInequality = "<>"

// Problem is one candidate's compiled equations plus the metadata needed
// to choose its symbols.
type Problem struct {
	Equations   []semantics.Equation
	NumVars     int
	Consecutive bool
	// Inequality overrides DefaultInequality.
	Inequality string
}

func (p Problem) inequality() string {
	if p.Inequality == "" {
		return DefaultInequality
	}
	return p.Inequality
}

// Symbols returns v0..v{NumVars-1}, plus k for consecutive problems.
// When NumVars is unknown the variables referenced by the equations are
// used instead.
func (p Problem) Symbols() []string {
	var out []string
	if p.NumVars > 0 {
		for i := 0; i < p.NumVars; i++ {
			out = append(out, semantics.VarName(i))
		}
	} else {
		for _, i := range variables(p.Equations) {
			out = append(out, semantics.VarName(i))
		}
	}
	if p.Consecutive {
		out = append(out, semantics.AuxSymbol)
	}
	return out
}

var variablePattern = regexp.MustCompile(`\bv(\d+)\b`)

func variables(eqs []semantics.Equation) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, eq := range eqs {
		for _, m := range variablePattern.FindAllStringSubmatch(eq.String(), -1) {
			i, err := strconv.Atoi(m[1])
			if err != nil {
				continue
			}
			if _, ok := seen[i]; ok {
				continue
			}
			seen[i] = struct{}{}
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

// CountVariables returns the number of distinct declared variables
// referenced by the equations.
func CountVariables(eqs ...semantics.Equation) int {
	return len(variables(eqs))
}

// Solver adapts an Engine to candidate problems: it rejects unsupported
// constraints, bounds every engine call in time, and normalizes the
// engine's assignments into answer sets.
type Solver struct {
	engine  Engine
	timeout time.Duration
	logger  logrus.FieldLogger
	tracer  Tracer
}

// Solve returns the single answer set of p. A problem with no solution
// yields an empty set and no error; every failure also yields an empty
// set, with an error describing why.
func (s *Solver) Solve(ctx context.Context, p Problem) (answer.Set, error) {
	as, err := s.Assignments(ctx, p)
	if err != nil {
		return answer.Set{}, err
	}
	switch len(as) {
	case 0:
		return answer.Set{}, nil
	case 1:
		return Normalize(as[0]), nil
	}
	return answer.Set{}, &AmbiguousSolution{Count: len(as)}
}

// SolveBranches returns one answer set per assignment the engine finds.
func (s *Solver) SolveBranches(ctx context.Context, p Problem) ([]answer.Set, error) {
	as, err := s.Assignments(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]answer.Set, len(as))
	for i, a := range as {
		out[i] = Normalize(a)
	}
	return out, nil
}

type result struct {
	assignments []algebra.Assignment
	err         error
}

// Assignments runs the engine on p and returns its raw assignments.
func (s *Solver) Assignments(ctx context.Context, p Problem) ([]algebra.Assignment, error) {
	for _, eq := range p.Equations {
		if eq.ContainsAny(p.inequality()) {
			return nil, &UnsupportedConstraintError{Equation: eq}
		}
	}

	eqs := make([]string, len(p.Equations))
	for i, eq := range p.Equations {
		eqs[i] = eq.String()
	}
	symbols := p.Symbols()
	logger := s.logger.WithFields(logrus.Fields{
		"equations": eqs,
		"symbols":   symbols,
	})

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- result{err: &SolveFailure{Equations: eqs, Err: fmt.Errorf("engine panic: %v", r)}}
			}
		}()
		as, err := s.engine.Solve(ctx, eqs, symbols)
		ch <- result{assignments: as, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		r.err = deadline(ctx)
	case r = <-ch:
		if r.err != nil {
			r.assignments = nil
			if ctx.Err() != nil {
				r.err = deadline(ctx)
			} else if _, ok := r.err.(*SolveFailure); !ok {
				r.err = &SolveFailure{Equations: eqs, Err: r.err}
			}
		}
	}

	s.tracer.Trace(Attempt{
		Equations:   eqs,
		Symbols:     symbols,
		Assignments: r.assignments,
		Err:         r.err,
		Duration:    time.Since(start),
	})
	if r.err != nil {
		logger.WithError(r.err).Debug("solve failed")
		return nil, r.err
	}
	logger.WithField("assignments", len(r.assignments)).Debug("solved")
	return r.assignments, nil
}

func deadline(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return ErrSolverTimeout
	}
	return ctx.Err()
}

// Normalize keeps the declared variables of an assignment, ordered by
// index. The auxiliary k and any other symbol are dropped.
func Normalize(a algebra.Assignment) answer.Set {
	type entry struct {
		index int
		value algebra.Value
	}
	var entries []entry
	for name, v := range a {
		i, ok := semantics.ParseVarName(name)
		if !ok || i < 0 {
			continue
		}
		entries = append(entries, entry{index: i, value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].index < entries[j].index })
	out := make(answer.Set, len(entries))
	for i, e := range entries {
		out[i] = answer.FromValue(e.value)
	}
	return out
}

// New returns a Solver configured by options.
func New(options ...Option) (*Solver, error) {
	s := Solver{}
	for _, option := range append(options, defaults...) {
		if err := option(&s); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

type Option func(s *Solver) error

func WithEngine(e Engine) Option {
	return func(s *Solver) error {
		s.engine = e
		return nil
	}
}

// WithTimeout bounds each engine call.
func WithTimeout(d time.Duration) Option {
	return func(s *Solver) error {
		if d <= 0 {
			return fmt.Errorf("solver timeout must be positive, got %s", d)
		}
		s.timeout = d
		return nil
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Solver) error {
		s.logger = l
		return nil
	}
}

func WithTracer(t Tracer) Option {
	return func(s *Solver) error {
		s.tracer = t
		return nil
	}
}

// DefaultTimeout bounds engine calls when WithTimeout is not given.
const DefaultTimeout = 5 * time.Second

var defaults = []Option{
	func(s *Solver) error {
		if s.engine == nil {
			s.engine = algebra.NewEngine()
		}
		return nil
	},
	func(s *Solver) error {
		if s.timeout == 0 {
			s.timeout = DefaultTimeout
		}
		return nil
	},
	func(s *Solver) error {
		if s.logger == nil {
			l := logrus.New()
			l.SetOutput(io.Discard)
			s.logger = l
		}
		return nil
	},
	func(s *Solver) error {
		if s.tracer == nil {
			s.tracer = DefaultTracer{}
		}
		return nil
	},
}
