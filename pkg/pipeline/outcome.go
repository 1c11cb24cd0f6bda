package pipeline

import (
	"context"
	"errors"

	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/compiler"
	"github.com/wordprob/wordprob/pkg/semantics"
	"github.com/wordprob/wordprob/pkg/solver"
)

// Reasons an Outcome can report. They label the candidate outcome metric.
const (
	ReasonSolved      = "solved"
	ReasonEmpty       = "empty"
	ReasonCompile     = "compile_error"
	ReasonUnsupported = "unsupported_constraint"
	ReasonFailure     = "solve_failure"
	ReasonAmbiguous   = "ambiguous"
	ReasonTimeout     = "timeout"
	ReasonCanceled    = "canceled"
	ReasonUnknown     = "error"
)

// Outcome is the result of executing one candidate. A failed candidate
// carries its error and no answers; it never affects its siblings.
type Outcome struct {
	// Index is the position of the candidate in the slice given to Run.
	Index     int
	Candidate semantics.Candidate
	Equations []semantics.Equation
	Answers   []answer.Set
	Err       error
}

// Answer returns the first answer set, or the empty set.
func (o Outcome) Answer() answer.Set {
	if len(o.Answers) == 0 {
		return answer.Set{}
	}
	return o.Answers[0]
}

func (o Outcome) Reason() string {
	var (
		compileErr  *compiler.CompileError
		unsupported *solver.UnsupportedConstraintError
		failure     *solver.SolveFailure
		ambiguous   *solver.AmbiguousSolution
	)
	switch err := o.Err; {
	case err == nil && len(o.Answers) == 0:
		return ReasonEmpty
	case err == nil:
		return ReasonSolved
	case errors.As(err, &compileErr):
		return ReasonCompile
	case errors.As(err, &unsupported):
		return ReasonUnsupported
	case errors.As(err, &ambiguous):
		return ReasonAmbiguous
	case errors.Is(err, solver.ErrSolverTimeout):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.As(err, &failure):
		return ReasonFailure
	}
	return ReasonUnknown
}

// Result is the reconciled answer for one sentence.
type Result struct {
	Outcomes []Outcome
	// Answer is the aggregated answer; empty when every candidate failed.
	Answer answer.Set
	// Correct reports whether Answer matches gold.
	Correct bool
	// Reachable reports whether any candidate's own answer matches gold.
	Reachable bool
}
