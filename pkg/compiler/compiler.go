// Package compiler renders semantic trees as equation text the algebra
// engine understands.
//
// Every non-leaf operand is parenthesized, so the output never depends
// on operator precedence: "(v0)+((v0)^(2))==72".
package compiler

import (
	"fmt"
	"strings"

	"github.com/wordprob/wordprob/pkg/semantics"
)

// CompileError reports a node shape the compiler does not recognize. It
// is fatal for the candidate that contains the node and for nothing else.
type CompileError struct {
	Node   semantics.Node
	Reason string
}

func (e *CompileError) Error() string {
	if e.Node == nil {
		return fmt.Sprintf("cannot compile <nil>: %s", e.Reason)
	}
	return fmt.Sprintf("cannot compile %s: %s", e.Node, e.Reason)
}

// Compile renders n, a constraint or a bare expression, for a problem
// with numvars declared variables.
func Compile(n semantics.Node, numvars int) (semantics.Equation, error) {
	s, err := compile(n, numvars)
	if err != nil {
		return "", err
	}
	return semantics.Equation(s), nil
}

// CompileAll renders every constraint of a candidate in order.
func CompileAll(c semantics.Candidate) ([]semantics.Equation, error) {
	out := make([]semantics.Equation, 0, len(c.Constraints))
	for _, n := range c.Constraints {
		eq, err := Compile(n, c.NumVars)
		if err != nil {
			return nil, err
		}
		out = append(out, eq)
	}
	return out, nil
}

func compile(n semantics.Node, numvars int) (string, error) {
	switch t := n.(type) {
	case semantics.Constant:
		return t.Text(), nil
	case semantics.Variable:
		return variable(t, numvars)
	case semantics.KTerm:
		return t.String(), nil
	case semantics.Group:
		if len(t.Elems) != 1 {
			return "", &CompileError{Node: n, Reason: fmt.Sprintf("wrapper holds %d expressions", len(t.Elems))}
		}
		return compile(t.Elems[0], numvars)
	case semantics.NaryOp:
		return nary(t, numvars)
	case semantics.UnaryOp:
		return unary(t, numvars)
	case semantics.BinaryOp:
		if t.Op == semantics.PowerMarker {
			return power(t.Left, t.Right, numvars)
		}
		if !semantics.IsArithmetic(t.Op) {
			return "", &CompileError{Node: n, Reason: fmt.Sprintf("unknown binary operator %q", t.Op)}
		}
		return infix(t.Op, t.Left, t.Right, numvars)
	case semantics.Constraint:
		return constraint(t, numvars)
	case nil:
		return "", &CompileError{Reason: "missing node"}
	}
	return "", &CompileError{Node: n, Reason: fmt.Sprintf("unrecognized node type %T", n)}
}

func variable(v semantics.Variable, numvars int) (string, error) {
	i := v.Index
	if i < 0 {
		i = numvars + i
	}
	if i < 0 || (numvars > 0 && i >= numvars) {
		return "", &CompileError{Node: v, Reason: fmt.Sprintf("index out of range for %d variables", numvars)}
	}
	return semantics.VarName(i), nil
}

// nary joins operands pairwise, keeping left association:
// ((c0)op(c1))op(c2).
func nary(t semantics.NaryOp, numvars int) (string, error) {
	if !semantics.IsArithmetic(t.Op) {
		return "", &CompileError{Node: t, Reason: fmt.Sprintf("unknown operator %q", t.Op)}
	}
	switch len(t.Operands) {
	case 2:
		return infix(t.Op, t.Operands[0], t.Operands[1], numvars)
	case 3:
	default:
		return "", &CompileError{Node: t, Reason: fmt.Sprintf("operator %q over %d operands", t.Op, len(t.Operands))}
	}
	parts := make([]string, 3)
	for i, o := range t.Operands {
		s, err := compile(o, numvars)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return fmt.Sprintf("((%s)%s(%s))%s(%s)", parts[0], t.Op, parts[1], t.Op, parts[2]), nil
}

func unary(t semantics.UnaryOp, numvars int) (string, error) {
	switch {
	case semantics.IsPower(t.Op):
		exp := strings.TrimPrefix(t.Op, semantics.PowerMarker)
		if exp == "" {
			return "", &CompileError{Node: t, Reason: "power without exponent"}
		}
		base, err := compile(t.Operand, numvars)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(%s)^%s", base, exponent(exp)), nil
	case t.Op == semantics.Abs:
		s, err := compile(t.Operand, numvars)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("abs(%s)", s), nil
	}
	return "", &CompileError{Node: t, Reason: fmt.Sprintf("unknown unary operator %q", t.Op)}
}

func power(base, exp semantics.Node, numvars int) (string, error) {
	b, err := compile(base, numvars)
	if err != nil {
		return "", err
	}
	e, err := compile(exp, numvars)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)^(%s)", b, e), nil
}

// exponent parenthesizes an exponent suffix unless it already is, so
// that "^1/2" raises to one half rather than dividing a square.
func exponent(s string) string {
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && balanced(s[1:len(s)-1]) {
		return s
	}
	return "(" + s + ")"
}

func balanced(s string) bool {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func infix(op string, l, r semantics.Node, numvars int) (string, error) {
	ls, err := compile(l, numvars)
	if err != nil {
		return "", err
	}
	rs, err := compile(r, numvars)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)%s(%s)", ls, op, rs), nil
}

func constraint(c semantics.Constraint, numvars int) (string, error) {
	cmp := c.Comparator
	if !semantics.IsComparator(cmp) {
		return "", &CompileError{Node: c, Reason: fmt.Sprintf("unknown comparator %q", cmp)}
	}
	if cmp == semantics.Equal {
		cmp = "=="
	}
	lhs, err := compile(c.LHS, numvars)
	if err != nil {
		return "", err
	}
	rhs, err := compile(c.RHS, numvars)
	if err != nil {
		return "", err
	}
	return lhs + cmp + rhs, nil
}
