package solver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wordprob/wordprob/pkg/semantics"
)

var ErrSolverTimeout = errors.New("timed out before a solution could be found")

// UnsupportedConstraintError rejects a problem containing an inequality.
type UnsupportedConstraintError struct {
	Equation semantics.Equation
}

func (e *UnsupportedConstraintError) Error() string {
	return fmt.Sprintf("unsupported constraint %q: only equalities can be solved", e.Equation)
}

// SolveFailure wraps an error raised by the engine, including a
// recovered panic.
type SolveFailure struct {
	Equations []string
	Err       error
}

func (e *SolveFailure) Error() string {
	return fmt.Sprintf("solving [%s]: %v", strings.Join(e.Equations, ", "), e.Err)
}

func (e *SolveFailure) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors.Cause see the engine error.
func (e *SolveFailure) Cause() error { return e.Err }

// AmbiguousSolution reports several simultaneous assignments where one
// answer was expected.
type AmbiguousSolution struct {
	Count int
}

func (e *AmbiguousSolution) Error() string {
	return fmt.Sprintf("%d simultaneous solutions", e.Count)
}
