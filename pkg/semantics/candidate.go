package semantics

import (
	"fmt"
	"strings"
)

// Candidate is one grammar derivation of a sentence: its constraint
// list plus the metadata the grammar derived alongside it.
type Candidate struct {
	Constraints []Node
	NumVars     int
	Consecutive bool
	Parity      Parity
}

// String renders the candidate canonically. Two candidates with the same
// String are the same problem.
func (c Candidate) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "n=%d", c.NumVars)
	if c.Consecutive {
		fmt.Fprintf(&b, " consecutive=%s", c.parityName())
	}
	for _, n := range c.Constraints {
		b.WriteString(" ")
		if n == nil {
			b.WriteString("<nil>")
			continue
		}
		b.WriteString(n.String())
	}
	return b.String()
}

func (c Candidate) parityName() string {
	if c.Parity == ParityUnspecified {
		return "any"
	}
	return string(c.Parity)
}

// Equation is the compiled text of one constraint, "lhs==rhs" or a bare
// expression.
type Equation string

func (e Equation) String() string { return string(e) }

// ContainsAny reports whether any character of chars occurs in the
// equation text.
func (e Equation) ContainsAny(chars string) bool {
	return chars != "" && strings.ContainsAny(string(e), chars)
}

// Variables returns the distinct variable indices referenced under n, in
// order of first appearance. Indices are returned as written, negative
// ones unresolved.
func Variables(n Node) []int {
	var (
		seen = map[int]struct{}{}
		out  []int
	)
	var walk func(Node)
	walk = func(n Node) {
		switch t := n.(type) {
		case Variable:
			if _, ok := seen[t.Index]; !ok {
				seen[t.Index] = struct{}{}
				out = append(out, t.Index)
			}
		case UnaryOp:
			walk(t.Operand)
		case BinaryOp:
			walk(t.Left)
			walk(t.Right)
		case NaryOp:
			for _, o := range t.Operands {
				walk(o)
			}
		case Group:
			for _, e := range t.Elems {
				walk(e)
			}
		case Constraint:
			walk(t.LHS)
			walk(t.RHS)
		}
	}
	walk(n)
	return out
}

// InferNumVars sizes a problem whose parser did not declare a variable
// count: the number of distinct indices as written, negative ones
// included, but never fewer than the largest index needs to resolve.
func InferNumVars(nodes []Node) int {
	distinct := map[int]struct{}{}
	need := 0
	for _, n := range nodes {
		for _, i := range Variables(n) {
			distinct[i] = struct{}{}
			switch {
			case i < 0 && -i > need:
				need = -i
			case i >= 0 && i+1 > need:
				need = i + 1
			}
		}
	}
	if len(distinct) > need {
		return len(distinct)
	}
	return need
}

// HasKTerms reports whether any constraint embeds the auxiliary symbol
// inline.
func HasKTerms(nodes []Node) bool {
	var found bool
	var walk func(Node)
	walk = func(n Node) {
		if found {
			return
		}
		switch t := n.(type) {
		case KTerm:
			found = true
		case UnaryOp:
			walk(t.Operand)
		case BinaryOp:
			walk(t.Left)
			walk(t.Right)
		case NaryOp:
			for _, o := range t.Operands {
				walk(o)
			}
		case Group:
			for _, e := range t.Elems {
				walk(e)
			}
		case Constraint:
			walk(t.LHS)
			walk(t.RHS)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return found
}
