package algebra

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// monomial maps each variable to its positive exponent.
type monomial map[string]int

func (m monomial) key() string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "^" + strconv.Itoa(m[n])
	}
	return strings.Join(parts, "*")
}

func (m monomial) times(o monomial) monomial {
	out := make(monomial, len(m)+len(o))
	for n, e := range m {
		out[n] = e
	}
	for n, e := range o {
		out[n] += e
	}
	return out
}

type term struct {
	m monomial
	c Value
}

// poly is a multivariate polynomial keyed by monomial.
type poly map[string]term

func constPoly(v Value) poly {
	p := poly{}
	p.put(monomial{}, v)
	return p
}

func varPoly(name string) poly {
	return poly{monomial{name: 1}.key(): {m: monomial{name: 1}, c: Int(1)}}
}

// put adds c to the coefficient of m.
func (p poly) put(m monomial, c Value) {
	k := m.key()
	if t, ok := p[k]; ok {
		c = add(t.c, c)
	}
	if c.nearZero() {
		delete(p, k)
		return
	}
	p[k] = term{m: m, c: c}
}

func (p poly) add(q poly) poly {
	out := poly{}
	for _, t := range p {
		out.put(t.m, t.c)
	}
	for _, t := range q {
		out.put(t.m, t.c)
	}
	return out
}

func (p poly) scale(v Value) poly {
	out := poly{}
	for _, t := range p {
		out.put(t.m, mul(t.c, v))
	}
	return out
}

func (p poly) sub(q poly) poly { return p.add(q.scale(Int(-1))) }

func (p poly) mul(q poly) poly {
	out := poly{}
	for _, a := range p {
		for _, b := range q {
			out.put(a.m.times(b.m), mul(a.c, b.c))
		}
	}
	return out
}

func (p poly) isZero() bool { return len(p) == 0 }

// constant returns the value of a polynomial without variables.
func (p poly) constant() (Value, bool) {
	switch len(p) {
	case 0:
		return Int(0), true
	case 1:
		if t, ok := p[""]; ok {
			return t.c, true
		}
	}
	return Value{}, false
}

func (p poly) vars() []string {
	seen := map[string]struct{}{}
	for _, t := range p {
		for n := range t.m {
			seen[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (p poly) degree(x string) int {
	d := 0
	for _, t := range p {
		if t.m[x] > d {
			d = t.m[x]
		}
	}
	return d
}

// coefficient returns the polynomial multiplying x^d.
func (p poly) coefficient(x string, d int) poly {
	out := poly{}
	for _, t := range p {
		if t.m[x] != d {
			continue
		}
		m := make(monomial, len(t.m))
		for n, e := range t.m {
			if n != x {
				m[n] = e
			}
		}
		out.put(m, t.c)
	}
	return out
}

// univariate lists the coefficients of a polynomial in x alone, lowest
// degree first.
func (p poly) univariate(x string) []Value {
	cs := make([]Value, p.degree(x)+1)
	for i := range cs {
		cs[i] = Int(0)
	}
	for _, t := range p {
		cs[t.m[x]] = add(cs[t.m[x]], t.c)
	}
	return cs
}

func (p poly) exact() bool {
	for _, t := range p {
		if !t.c.Exact() {
			return false
		}
	}
	return true
}

// expr converts p back into an expression tree.
func (p poly) expr() Expr {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out Expr
	for _, k := range keys {
		t := p[k]
		var e Expr = &number{v: t.c}
		names := make([]string, 0, len(t.m))
		for n := range t.m {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			var f Expr = symbol(n)
			if t.m[n] > 1 {
				f = &operation{op: '^', l: f, r: &number{v: Int(int64(t.m[n]))}}
			}
			e = &operation{op: '*', l: e, r: f}
		}
		if out == nil {
			out = e
			continue
		}
		out = &operation{op: '+', l: out, r: e}
	}
	if out == nil {
		return &number{v: Int(0)}
	}
	return out
}

// rational is a quotient of polynomials.
type rational struct {
	num, den poly
}

const maxPolyExponent = 12

// toRational rewrites e as a rational function of its symbols. It fails
// for abs, modulo and non-integer powers.
func toRational(e Expr) (rational, bool) {
	switch t := e.(type) {
	case *number:
		return rational{num: constPoly(t.v), den: constPoly(Int(1))}, true
	case symbol:
		return rational{num: varPoly(string(t)), den: constPoly(Int(1))}, true
	case *negation:
		x, ok := toRational(t.x)
		if !ok {
			return rational{}, false
		}
		return rational{num: x.num.scale(Int(-1)), den: x.den}, true
	case *operation:
		l, ok := toRational(t.l)
		if !ok {
			return rational{}, false
		}
		if t.op == '^' {
			return l.pow(t.r)
		}
		r, ok := toRational(t.r)
		if !ok {
			return rational{}, false
		}
		switch t.op {
		case '+':
			return rational{num: l.num.mul(r.den).add(r.num.mul(l.den)), den: l.den.mul(r.den)}.normalize()
		case '-':
			return rational{num: l.num.mul(r.den).sub(r.num.mul(l.den)), den: l.den.mul(r.den)}.normalize()
		case '*':
			return rational{num: l.num.mul(r.num), den: l.den.mul(r.den)}.normalize()
		case '/':
			if r.num.isZero() {
				return rational{}, false
			}
			return rational{num: l.num.mul(r.den), den: l.den.mul(r.num)}.normalize()
		}
	}
	return rational{}, false
}

func (r rational) pow(exp Expr) (rational, bool) {
	er, ok := toRational(exp)
	if !ok {
		return rational{}, false
	}
	n, nok := er.num.constant()
	d, dok := er.den.constant()
	if !nok || !dok {
		return rational{}, false
	}
	v, err := quo(n, d)
	if err != nil || !v.Exact() || !v.rat.IsInt() || !v.rat.Num().IsInt64() {
		return rational{}, false
	}
	e := v.rat.Num().Int64()
	if e > maxPolyExponent || e < -maxPolyExponent {
		return rational{}, false
	}
	base := r
	if e < 0 {
		if r.num.isZero() {
			return rational{}, false
		}
		base = rational{num: r.den, den: r.num}
		e = -e
	}
	out := rational{num: constPoly(Int(1)), den: constPoly(Int(1))}
	for i := int64(0); i < e; i++ {
		out = rational{num: out.num.mul(base.num), den: out.den.mul(base.den)}
	}
	return out.normalize()
}

// normalize divides through by a constant denominator.
func (r rational) normalize() (rational, bool) {
	if r.den.isZero() {
		return rational{}, false
	}
	if c, ok := r.den.constant(); ok {
		inv, err := quo(Int(1), c)
		if err != nil {
			return rational{}, false
		}
		return rational{num: r.num.scale(inv), den: constPoly(Int(1))}, true
	}
	return r, true
}

// hornerRat evaluates an exact univariate polynomial at x.
func hornerRat(cs []*big.Rat, x *big.Rat) *big.Rat {
	acc := new(big.Rat)
	for i := len(cs) - 1; i >= 0; i-- {
		acc.Mul(acc, x)
		acc.Add(acc, cs[i])
	}
	return acc
}

func hornerFloat(cs []float64, x float64) float64 {
	acc := 0.0
	for i := len(cs) - 1; i >= 0; i-- {
		acc = acc*x + cs[i]
	}
	return acc
}
