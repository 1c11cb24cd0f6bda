// Package constraints generates the equations behind "consecutive
// integers" phrasings.
//
// Two strategies express the same intent. The auxiliary strategy ties
// every declared variable to one unknown k:
//
//	v0==2*k+1, v1==2*k+3, v2==2*k+5
//
// The legacy strategy handles grammars that already wrote the linear
// terms in k into a single equation; the terms are located in the
// compiled text, k is solved for, and each solution is substituted back.
package constraints

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/wordprob/wordprob/pkg/semantics"
)

// Coefficients returns the stride and starting offset of consecutive
// integers with the given parity.
func Coefficients(p semantics.Parity) (mult, offset int64) {
	switch p {
	case semantics.ParityEven:
		return 2, 0
	case semantics.ParityOdd:
		return 2, 1
	}
	return 1, 0
}

// Expansion is the output of the auxiliary strategy.
type Expansion struct {
	Equations []semantics.Equation
	// Symbols lists the extra unknowns the equations introduce.
	Symbols []string
}

// Expand ties numvars declared variables to consecutive integers of
// parity p: v_i == mult*k + offset + mult*i.
func Expand(numvars int, p semantics.Parity) Expansion {
	mult, offset := Coefficients(p)
	eqs := make([]semantics.Equation, numvars)
	for i := 0; i < numvars; i++ {
		term := semantics.KTerm{Mult: mult, Offset: offset + mult*int64(i)}
		eqs[i] = semantics.Equation(fmt.Sprintf("%s==%s", semantics.VarName(i), term))
	}
	return Expansion{Equations: eqs, Symbols: []string{semantics.AuxSymbol}}
}

// Strategy selects how consecutive-integer candidates are solved.
type Strategy string

const (
	// Auto uses the legacy strategy when the constraints already embed
	// terms in k and the auxiliary strategy otherwise.
	Auto      Strategy = "auto"
	Auxiliary Strategy = "auxiliary"
	Legacy    Strategy = "legacy"
)

// ParseStrategy accepts the Strategy names; the empty string means Auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case Auto, "":
		return Auto, nil
	case Auxiliary:
		return Auxiliary, nil
	case Legacy:
		return Legacy, nil
	}
	return "", errors.Errorf("unknown consecutive strategy %q", s)
}

// Resolve decides the strategy for one candidate. It returns the empty
// Strategy when the candidate needs no consecutive handling at all.
func (s Strategy) Resolve(c semantics.Candidate) Strategy {
	embedded := semantics.HasKTerms(c.Constraints)
	switch {
	case s == Legacy && (c.Consecutive || embedded):
		return Legacy
	case s == Auxiliary && c.Consecutive:
		return Auxiliary
	case s == Auto && embedded:
		return Legacy
	case s == Auto && c.Consecutive:
		return Auxiliary
	}
	return ""
}
