package semantics

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// Node values are the read-only semantic trees produced by the grammar
// for a single sentence fragment. The set of implementations is closed:
// Constant, Variable, UnaryOp, BinaryOp, NaryOp, Group, Constraint and
// KTerm.
type Node interface {
	fmt.Stringer
	node()
}

// Constant is a numeric literal. Value always holds the exact value of
// the literal; Float records that it was written (or computed by the
// grammar) as a floating point number.
type Constant struct {
	Value *big.Rat
	Float bool
}

// Int returns an integer Constant.
func Int(n int64) Constant {
	return Constant{Value: new(big.Rat).SetInt64(n)}
}

// Rational returns the Constant num/den.
func Rational(num, den int64) Constant {
	return Constant{Value: big.NewRat(num, den)}
}

// Float returns a Constant holding f.
func Float(f float64) Constant {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'g', -1, 64))
	if !ok {
		r = new(big.Rat)
	}
	return Constant{Value: r, Float: true}
}

// Text is the literal text of the number: integers and rationals are
// printed exactly, floats in their shortest round-tripping form.
func (c Constant) Text() string {
	if c.Value == nil {
		return "0"
	}
	if c.Float {
		f, _ := c.Value.Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	if c.Value.IsInt() {
		return c.Value.Num().String()
	}
	return c.Value.RatString()
}

func (c Constant) String() string { return c.Text() }

// Variable refers to one of the declared unknowns of a problem. A
// negative Index counts from the end of the declared variables, so -1
// is the last one.
type Variable struct {
	Index int
}

func (v Variable) String() string { return VarName(v.Index) }

// UnaryOp applies a power suffix (an Op beginning with "^") or abs to a
// single operand.
type UnaryOp struct {
	Op      string
	Operand Node
}

func (u UnaryOp) String() string { return fmt.Sprintf("(%s %s)", u.Op, u.Operand) }

// BinaryOp is general arithmetic between two operands.
type BinaryOp struct {
	Op          string
	Left, Right Node
}

func (b BinaryOp) String() string { return fmt.Sprintf("(%s %s %s)", b.Op, b.Left, b.Right) }

// NaryOp chains Op over two or three ordered operands, as in "the sum of
// three consecutive integers".
type NaryOp struct {
	Op       string
	Operands []Node
}

func (n NaryOp) String() string { return fmt.Sprintf("(%s %s)", n.Op, join(n.Operands)) }

// Group is a parenthesized sequence the grammar produced without an
// operator. Only the single-element form is meaningful.
type Group struct {
	Elems []Node
}

func (g Group) String() string { return fmt.Sprintf("[%s]", join(g.Elems)) }

// Constraint relates two expressions with a comparator.
type Constraint struct {
	Comparator string
	LHS, RHS   Node
}

func (c Constraint) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Comparator, c.LHS, c.RHS)
}

// KTerm is a linear term Mult*k+Offset in the auxiliary symbol k, emitted
// by grammars that expand consecutive integers inline.
type KTerm struct {
	Mult, Offset int64
}

func (k KTerm) String() string {
	switch {
	case k.Offset > 0:
		return fmt.Sprintf("%d*%s+%d", k.Mult, AuxSymbol, k.Offset)
	case k.Offset < 0:
		return fmt.Sprintf("%d*%s-%d", k.Mult, AuxSymbol, -k.Offset)
	}
	return fmt.Sprintf("%d*%s", k.Mult, AuxSymbol)
}

func (Constant) node()   {}
func (Variable) node()   {}
func (UnaryOp) node()    {}
func (BinaryOp) node()   {}
func (NaryOp) node()     {}
func (Group) node()      {}
func (Constraint) node() {}
func (KTerm) node()      {}

func join(nodes []Node) string {
	s := make([]string, len(nodes))
	for i, n := range nodes {
		if n == nil {
			s[i] = "<nil>"
			continue
		}
		s[i] = n.String()
	}
	return strings.Join(s, " ")
}
