package algebra

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Assignment maps symbol names to solution values.
type Assignment map[string]Value

// String renders the assignment with sorted symbols, e.g. "{k=2, v0=5}".
func (a Assignment) String() string {
	names := make([]string, 0, len(a))
	for n := range a {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + a[n].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// UnknownSymbolError is returned for equations that reference a symbol
// outside the requested set.
type UnknownSymbolError struct {
	Symbol   string
	Equation string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("equation %q references unknown symbol %q", e.Equation, e.Symbol)
}

// NonlinearError is returned when a system cannot be reduced to linear
// eliminations and univariate equations.
type NonlinearError struct {
	Equations []string
}

func (e *NonlinearError) Error() string {
	return fmt.Sprintf("cannot solve nonlinear system: %s", strings.Join(e.Equations, ", "))
}

// ErrTooManyCases is returned when splitting abs terms would produce more
// cases than the engine allows.
var ErrTooManyCases = errors.New("too many absolute value cases")

// Engine solves equation systems over the reals. The zero value is ready
// to use.
type Engine struct {
	// MaxAbs bounds the number of abs terms split into sign cases.
	MaxAbs int
}

const defaultMaxAbs = 6

// NewEngine returns an Engine with default limits.
func NewEngine() *Engine {
	return &Engine{MaxAbs: defaultMaxAbs}
}

// Solve returns every real solution of the equations in the given
// symbols. Symbols the equations leave undetermined are omitted from the
// assignments. Assignments are ordered by their values in symbol order.
func (e *Engine) Solve(ctx context.Context, equations []string, symbols []string) ([]Assignment, error) {
	known := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		known[s] = struct{}{}
	}
	parsed := make([]Equation, 0, len(equations))
	for _, text := range equations {
		eq, err := Parse(text)
		if err != nil {
			return nil, err
		}
		for _, s := range Symbols(eq.Residual) {
			if _, ok := known[s]; !ok {
				return nil, &UnknownSymbolError{Symbol: s, Equation: text}
			}
		}
		parsed = append(parsed, eq)
	}

	residuals := make([]Expr, len(parsed))
	for i, eq := range parsed {
		residuals[i] = eq.Residual
	}
	cases, err := e.splitAbs(residuals)
	if err != nil {
		return nil, err
	}

	var (
		out      []Assignment
		seen     = map[string]struct{}{}
		firstErr error
	)
	for _, c := range cases {
		s := system{symbols: symbols}
		sols, err := s.solve(ctx, c, nil, Assignment{})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, sol := range sols {
			if !satisfies(residuals, sol) {
				continue
			}
			k := sol.key()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, sol)
		}
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	sortAssignments(out, symbols)
	return out, nil
}

// splitAbs rewrites the system into abs-free cases, one per choice of
// sign for every abs term.
func (e *Engine) splitAbs(eqs []Expr) ([][]Expr, error) {
	limit := e.MaxAbs
	if limit <= 0 {
		limit = defaultMaxAbs
	}
	pending := [][]Expr{eqs}
	var done [][]Expr
	for len(pending) > 0 {
		c := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		i, target := -1, (*absolute)(nil)
		for j, eq := range c {
			if a := firstAbs(eq); a != nil {
				i, target = j, a
				break
			}
		}
		if target == nil {
			done = append(done, c)
			continue
		}
		if len(done)+len(pending)+2 > 1<<limit {
			return nil, ErrTooManyCases
		}
		for _, repl := range []Expr{&negation{x: target.x}, target.x} {
			next := make([]Expr, len(c))
			copy(next, c)
			next[i] = replaceAbs(c[i], target, repl)
			pending = append(pending, next)
		}
	}
	return done, nil
}

type binding struct {
	name string
	expr Expr
}

type system struct {
	symbols []string
}

// solve reduces eqs by eliminating one unknown at a time. Linear
// eliminations are recorded as bindings and resolved once the system is
// exhausted; univariate equations branch on each root.
func (s system) solve(ctx context.Context, eqs []Expr, bindings []binding, fixed Assignment) ([]Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rest []Expr
	for _, eq := range eqs {
		if len(Symbols(eq)) > 0 {
			rest = append(rest, eq)
			continue
		}
		v, err := eq.eval(nil)
		if err != nil || !v.nearZero() {
			// Inconsistent branch.
			return nil, nil
		}
	}
	if len(rest) == 0 {
		if a, ok := resolve(bindings, fixed); ok {
			return []Assignment{a}, nil
		}
		return nil, nil
	}

	for i, eq := range rest {
		r, ok := toRational(eq)
		if !ok {
			continue
		}
		if r.num.isZero() {
			return s.solve(ctx, without(rest, i), bindings, fixed)
		}
		if _, isConst := r.num.constant(); isConst {
			return nil, nil
		}
		for _, x := range s.symbols {
			if r.num.degree(x) != 1 {
				continue
			}
			c, isConst := r.num.coefficient(x, 1).constant()
			if !isConst || c.nearZero() {
				continue
			}
			inv, err := quo(Int(-1), c)
			if err != nil {
				continue
			}
			sol := r.num.coefficient(x, 0).scale(inv).expr()
			others := without(rest, i)
			for j := range others {
				others[j] = substitute(others[j], x, sol)
			}
			next := make([]binding, len(bindings), len(bindings)+1)
			copy(next, bindings)
			return s.solve(ctx, others, append(next, binding{name: x, expr: sol}), fixed)
		}
	}

	for i, eq := range rest {
		names := Symbols(eq)
		if len(names) != 1 {
			continue
		}
		x := names[0]
		roots, err := univariateRoots(ctx, eq, x)
		if err != nil {
			return nil, err
		}
		var out []Assignment
		for _, root := range roots {
			others := without(rest, i)
			for j := range others {
				others[j] = substitute(others[j], x, &number{v: root})
			}
			next := make(Assignment, len(fixed)+1)
			for k, v := range fixed {
				next[k] = v
			}
			next[x] = root
			sols, err := s.solve(ctx, others, bindings, next)
			if err != nil {
				return nil, err
			}
			out = append(out, sols...)
		}
		return out, nil
	}

	texts := make([]string, len(rest))
	for i, eq := range rest {
		texts[i] = eq.String() + "==0"
	}
	return nil, &NonlinearError{Equations: texts}
}

func without(eqs []Expr, i int) []Expr {
	out := make([]Expr, 0, len(eqs)-1)
	out = append(out, eqs[:i]...)
	return append(out, eqs[i+1:]...)
}

func univariateRoots(ctx context.Context, eq Expr, x string) ([]Value, error) {
	if r, ok := toRational(eq); ok {
		return polyRoots(ctx, r.num.univariate(x))
	}
	f := func(t float64) (float64, bool) {
		v, err := eq.eval(map[string]Value{x: Float(t)})
		if err != nil {
			return 0, false
		}
		return v.Float64(), true
	}
	found, err := bracket(ctx, f, defaultGrid())
	if err != nil {
		return nil, err
	}
	roots := make([]Value, 0, len(found))
	for _, r := range found {
		roots = append(roots, snap(eq, x, r))
	}
	return dedupe(roots), nil
}

// resolve evaluates recorded bindings, latest first. Bindings that
// depend on an undetermined symbol are left out.
func resolve(bindings []binding, fixed Assignment) (Assignment, bool) {
	out := make(Assignment, len(fixed)+len(bindings))
	for k, v := range fixed {
		out[k] = v
	}
	for progress := true; progress; {
		progress = false
		for i := len(bindings) - 1; i >= 0; i-- {
			b := bindings[i]
			if _, ok := out[b.name]; ok {
				continue
			}
			if !bound(b.expr, out) {
				continue
			}
			v, err := b.expr.eval(out)
			if err != nil {
				return nil, false
			}
			out[b.name] = v
			progress = true
		}
	}
	return out, true
}

func bound(e Expr, a Assignment) bool {
	for _, s := range Symbols(e) {
		if _, ok := a[s]; !ok {
			return false
		}
	}
	return true
}

// satisfies checks a candidate solution against every equation whose
// symbols it determines.
func satisfies(residuals []Expr, a Assignment) bool {
	scale := 1.0
	for _, v := range a {
		scale = math.Max(scale, math.Abs(v.Float64()))
	}
	for _, r := range residuals {
		if !bound(r, a) {
			continue
		}
		v, err := r.eval(a)
		if err != nil {
			return false
		}
		if v.Exact() {
			if v.Sign() != 0 {
				return false
			}
			continue
		}
		if math.Abs(v.Float64()) > 1e-6*scale {
			return false
		}
	}
	return true
}

func (a Assignment) key() string {
	names := make([]string, 0, len(a))
	for n := range a {
		names = append(names, n)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(a[n].Float64(), 'g', 10, 64))
		b.WriteByte(';')
	}
	return b.String()
}

func sortAssignments(as []Assignment, symbols []string) {
	sort.SliceStable(as, func(i, j int) bool {
		for _, s := range symbols {
			x, xok := as[i][s]
			y, yok := as[j][s]
			if xok != yok {
				return xok
			}
			if !xok {
				continue
			}
			if c := compare(x, y); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

func compare(a, b Value) int {
	if a.Exact() && b.Exact() {
		return a.rat.Cmp(b.rat)
	}
	x, y := a.Float64(), b.Float64()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}
