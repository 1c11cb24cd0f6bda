// Package algebra is a small real-arithmetic equation solver. It reads
// the equation text produced by the compiler ("(v0)+((v0)^(2))==72"),
// eliminates linear unknowns exactly, finds roots of univariate
// polynomials and falls back to numeric root finding for everything
// else.
package algebra

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Expr is a parsed arithmetic expression.
type Expr interface {
	fmt.Stringer
	eval(env map[string]Value) (Value, error)
}

type (
	number    struct{ v Value }
	symbol    string
	negation  struct{ x Expr }
	operation struct {
		op   byte
		l, r Expr
	}
	absolute struct{ x Expr }
)

func (n *number) String() string {
	s := n.v.String()
	if n.v.Sign() < 0 || strings.ContainsAny(s, "/e") {
		return "(" + s + ")"
	}
	return s
}

func (s symbol) String() string { return string(s) }
func (n *negation) String() string { return fmt.Sprintf("-(%s)", n.x) }
func (o *operation) String() string { return fmt.Sprintf("(%s)%c(%s)", o.l, o.op, o.r) }
func (a *absolute) String() string { return fmt.Sprintf("abs(%s)", a.x) }

func (n *number) eval(map[string]Value) (Value, error) { return n.v, nil }

func (s symbol) eval(env map[string]Value) (Value, error) {
	v, ok := env[string(s)]
	if !ok {
		return Value{}, errors.Errorf("symbol %q has no value", string(s))
	}
	return v, nil
}

func (n *negation) eval(env map[string]Value) (Value, error) {
	x, err := n.x.eval(env)
	if err != nil {
		return Value{}, err
	}
	return neg(x), nil
}

func (a *absolute) eval(env map[string]Value) (Value, error) {
	x, err := a.x.eval(env)
	if err != nil {
		return Value{}, err
	}
	return abs(x), nil
}

func (o *operation) eval(env map[string]Value) (Value, error) {
	l, err := o.l.eval(env)
	if err != nil {
		return Value{}, err
	}
	r, err := o.r.eval(env)
	if err != nil {
		return Value{}, err
	}
	switch o.op {
	case '+':
		return add(l, r), nil
	case '-':
		return sub(l, r), nil
	case '*':
		return mul(l, r), nil
	case '/':
		return quo(l, r)
	case '%':
		return mod(l, r)
	case '^':
		return pow(l, r)
	}
	return Value{}, errors.Errorf("unknown operator %q", o.op)
}

// Equation is a parsed equation. Solutions are the zeros of Residual.
type Equation struct {
	Text     string
	Residual Expr
}

// Parse reads one equation. "lhs==rhs" becomes the residual lhs-(rhs)
// and a bare expression is its own residual. A single "=" is accepted
// as equality.
func Parse(text string) (Equation, error) {
	src := normalizeEquality(text)
	node, err := parser.ParseExpr(src)
	if err != nil {
		return Equation{}, errors.Wrapf(err, "cannot parse equation %q", text)
	}
	if b, ok := unparen(node).(*ast.BinaryExpr); ok && b.Op == token.EQL {
		lhs, err := convert(b.X)
		if err != nil {
			return Equation{}, errors.Wrapf(err, "in equation %q", text)
		}
		rhs, err := convert(b.Y)
		if err != nil {
			return Equation{}, errors.Wrapf(err, "in equation %q", text)
		}
		return Equation{Text: text, Residual: &operation{op: '-', l: lhs, r: rhs}}, nil
	}
	e, err := convert(node)
	if err != nil {
		return Equation{}, errors.Wrapf(err, "in equation %q", text)
	}
	return Equation{Text: text, Residual: e}, nil
}

// ParseExpr reads an expression without a comparator.
func ParseExpr(text string) (Expr, error) {
	node, err := parser.ParseExpr(text)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse expression %q", text)
	}
	e, err := convert(node)
	if err != nil {
		return nil, errors.Wrapf(err, "in expression %q", text)
	}
	return e, nil
}

// Evaluate computes the value of an expression under env.
func Evaluate(text string, env map[string]Value) (Value, error) {
	e, err := ParseExpr(text)
	if err != nil {
		return Value{}, err
	}
	return e.eval(env)
}

// normalizeEquality rewrites a lone "=" as "==".
func normalizeEquality(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '=' {
			b.WriteByte(c)
			continue
		}
		prev, next := byte(0), byte(0)
		if i > 0 {
			prev = s[i-1]
		}
		if i+1 < len(s) {
			next = s[i+1]
		}
		if next == '=' {
			b.WriteString("==")
			i++
			continue
		}
		if prev == '<' || prev == '>' || prev == '!' {
			b.WriteByte(c)
			continue
		}
		b.WriteString("==")
	}
	return b.String()
}

func unparen(e ast.Expr) ast.Expr {
	for {
		p, ok := e.(*ast.ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}

var binaryOps = map[token.Token]byte{
	token.ADD: '+',
	token.SUB: '-',
	token.MUL: '*',
	token.QUO: '/',
	token.REM: '%',
	token.XOR: '^',
}

func convert(e ast.Expr) (Expr, error) {
	switch t := e.(type) {
	case *ast.ParenExpr:
		return convert(t.X)
	case *ast.BasicLit:
		return literal(t)
	case *ast.Ident:
		return symbol(t.Name), nil
	case *ast.UnaryExpr:
		x, err := convert(t.X)
		if err != nil {
			return nil, err
		}
		switch t.Op {
		case token.ADD:
			return x, nil
		case token.SUB:
			if n, ok := x.(*number); ok {
				return &number{v: neg(n.v)}, nil
			}
			return &negation{x: x}, nil
		}
		return nil, errors.Errorf("unsupported unary operator %s", t.Op)
	case *ast.BinaryExpr:
		op, ok := binaryOps[t.Op]
		if !ok {
			return nil, errors.Errorf("unsupported operator %s", t.Op)
		}
		l, err := convert(t.X)
		if err != nil {
			return nil, err
		}
		r, err := convert(t.Y)
		if err != nil {
			return nil, err
		}
		return &operation{op: op, l: l, r: r}, nil
	case *ast.CallExpr:
		fn, ok := t.Fun.(*ast.Ident)
		if !ok || len(t.Args) != 1 {
			return nil, errors.New("unsupported function call")
		}
		x, err := convert(t.Args[0])
		if err != nil {
			return nil, err
		}
		switch fn.Name {
		case "abs", "Abs":
			return &absolute{x: x}, nil
		case "sqrt":
			return &operation{op: '^', l: x, r: &number{v: Rat(big.NewRat(1, 2))}}, nil
		}
		return nil, errors.Errorf("unknown function %q", fn.Name)
	}
	return nil, errors.Errorf("unsupported expression %T", e)
}

func literal(l *ast.BasicLit) (Expr, error) {
	switch l.Kind {
	case token.INT:
		r, ok := new(big.Rat).SetString(l.Value)
		if !ok {
			return nil, errors.Errorf("invalid integer %q", l.Value)
		}
		return &number{v: Value{rat: r}}, nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(l.Value, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid number %q", l.Value)
		}
		return &number{v: Float(f)}, nil
	}
	return nil, errors.Errorf("unsupported literal %s", l.Value)
}

// Symbols returns the distinct symbol names referenced by e, sorted.
func Symbols(e Expr) []string {
	seen := map[string]struct{}{}
	walk(e, func(x Expr) {
		if s, ok := x.(symbol); ok {
			seen[string(s)] = struct{}{}
		}
	})
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func walk(e Expr, fn func(Expr)) {
	fn(e)
	switch t := e.(type) {
	case *negation:
		walk(t.x, fn)
	case *absolute:
		walk(t.x, fn)
	case *operation:
		walk(t.l, fn)
		walk(t.r, fn)
	}
}

// substitute replaces every occurrence of name in e with repl.
func substitute(e Expr, name string, repl Expr) Expr {
	switch t := e.(type) {
	case symbol:
		if string(t) == name {
			return repl
		}
		return t
	case *negation:
		return &negation{x: substitute(t.x, name, repl)}
	case *absolute:
		return &absolute{x: substitute(t.x, name, repl)}
	case *operation:
		return &operation{op: t.op, l: substitute(t.l, name, repl), r: substitute(t.r, name, repl)}
	}
	return e
}

// firstAbs returns the outermost, leftmost abs term of e.
func firstAbs(e Expr) *absolute {
	switch t := e.(type) {
	case *absolute:
		return t
	case *negation:
		return firstAbs(t.x)
	case *operation:
		if a := firstAbs(t.l); a != nil {
			return a
		}
		return firstAbs(t.r)
	}
	return nil
}

// replaceAbs replaces the abs term target with repl.
func replaceAbs(e Expr, target *absolute, repl Expr) Expr {
	switch t := e.(type) {
	case *absolute:
		if t == target {
			return repl
		}
		return &absolute{x: replaceAbs(t.x, target, repl)}
	case *negation:
		return &negation{x: replaceAbs(t.x, target, repl)}
	case *operation:
		return &operation{op: t.op, l: replaceAbs(t.l, target, repl), r: replaceAbs(t.r, target, repl)}
	}
	return e
}
