package algebra

import (
	"context"
	"math"
	"math/big"
	"sort"
)

// polyRoots returns the real roots of the polynomial with coefficients
// cs, lowest degree first. Rational roots of exact polynomials are found
// exactly.
func polyRoots(ctx context.Context, cs []Value) ([]Value, error) {
	cs = trim(cs)
	var roots []Value
	if len(cs) > 1 && cs[0].nearZero() {
		roots = append(roots, Int(0))
		for len(cs) > 1 && cs[0].nearZero() {
			cs = cs[1:]
		}
	}
	rest, err := nonzeroRoots(ctx, cs)
	if err != nil {
		return nil, err
	}
	return dedupe(append(roots, rest...)), nil
}

func trim(cs []Value) []Value {
	for len(cs) > 0 && cs[len(cs)-1].nearZero() {
		cs = cs[:len(cs)-1]
	}
	return cs
}

func nonzeroRoots(ctx context.Context, cs []Value) ([]Value, error) {
	switch len(cs) {
	case 0, 1:
		return nil, nil
	case 2:
		r, err := quo(neg(cs[0]), cs[1])
		if err != nil {
			return nil, err
		}
		return []Value{r}, nil
	case 3:
		return quadratic(cs[2], cs[1], cs[0]), nil
	}
	if !exactCoefficients(cs) {
		return numericPolyRoots(ctx, cs)
	}
	rats := make([]*big.Rat, len(cs))
	for i, c := range cs {
		rats[i] = c.Rat()
	}
	var roots []Value
	for len(rats) > 3 {
		r, ok := rationalRoot(rats)
		if !ok {
			break
		}
		roots = append(roots, Value{rat: r})
		rats = deflate(rats, r)
	}
	deflated := make([]Value, len(rats))
	for i, r := range rats {
		deflated[i] = Value{rat: r}
	}
	var (
		rest []Value
		err  error
	)
	if len(deflated) <= 3 {
		rest, err = nonzeroRoots(ctx, deflated)
	} else {
		rest, err = numericPolyRoots(ctx, deflated)
	}
	if err != nil {
		return nil, err
	}
	return append(roots, rest...), nil
}

func exactCoefficients(cs []Value) bool {
	for _, c := range cs {
		if !c.Exact() {
			return false
		}
	}
	return true
}

// quadratic solves a*x^2 + b*x + c = 0.
func quadratic(a, b, c Value) []Value {
	disc := sub(mul(b, b), mul(Int(4), mul(a, c)))
	twoA := mul(Int(2), a)
	switch {
	case disc.Sign() < 0 && !disc.nearZero():
		return nil
	case disc.nearZero():
		r, err := quo(neg(b), twoA)
		if err != nil {
			return nil
		}
		return []Value{r}
	}
	s, err := pow(disc, Rat(big.NewRat(1, 2)))
	if err != nil {
		return nil
	}
	lo, err1 := quo(sub(neg(b), s), twoA)
	hi, err2 := quo(add(neg(b), s), twoA)
	if err1 != nil || err2 != nil {
		return nil
	}
	return []Value{lo, hi}
}

const maxDivisorSearch = 1 << 20

// rationalRoot finds a rational root p/q of an exact polynomial with a
// nonzero constant term, where p divides the constant term and q the
// leading coefficient.
func rationalRoot(cs []*big.Rat) (*big.Rat, bool) {
	ints := integerCoefficients(cs)
	a0 := new(big.Int).Abs(ints[0])
	an := new(big.Int).Abs(ints[len(ints)-1])
	if !a0.IsInt64() || !an.IsInt64() || a0.Int64() > maxDivisorSearch || an.Int64() > maxDivisorSearch {
		return nil, false
	}
	for _, p := range divisors(a0.Int64()) {
		for _, q := range divisors(an.Int64()) {
			for _, sign := range []int64{1, -1} {
				r := big.NewRat(sign*p, q)
				if hornerRat(cs, r).Sign() == 0 {
					return r, true
				}
			}
		}
	}
	return nil, false
}

func integerCoefficients(cs []*big.Rat) []*big.Int {
	lcm := big.NewInt(1)
	for _, c := range cs {
		d := c.Denom()
		g := new(big.Int).GCD(nil, nil, lcm, d)
		lcm.Mul(lcm, new(big.Int).Quo(d, g))
	}
	out := make([]*big.Int, len(cs))
	for i, c := range cs {
		v := new(big.Rat).Mul(c, new(big.Rat).SetInt(lcm))
		out[i] = new(big.Int).Set(v.Num())
	}
	return out
}

func divisors(n int64) []int64 {
	var small, large []int64
	for i := int64(1); i*i <= n; i++ {
		if n%i != 0 {
			continue
		}
		small = append(small, i)
		if i != n/i {
			large = append(large, n/i)
		}
	}
	for i := len(large) - 1; i >= 0; i-- {
		small = append(small, large[i])
	}
	return small
}

// deflate divides the polynomial by (x - r).
func deflate(cs []*big.Rat, r *big.Rat) []*big.Rat {
	n := len(cs) - 1
	out := make([]*big.Rat, n)
	carry := new(big.Rat)
	for i := n; i >= 1; i-- {
		carry = new(big.Rat).Add(cs[i], new(big.Rat).Mul(carry, r))
		out[i-1] = carry
	}
	return out
}

// numericPolyRoots brackets roots inside the Cauchy bound.
func numericPolyRoots(ctx context.Context, cs []Value) ([]Value, error) {
	fs := make([]float64, len(cs))
	for i, c := range cs {
		fs[i] = c.Float64()
	}
	lead := math.Abs(fs[len(fs)-1])
	bound := 0.0
	for _, f := range fs[:len(fs)-1] {
		bound = math.Max(bound, math.Abs(f)/lead)
	}
	bound++
	grid := linspace(-bound, bound, 4000)
	roots, err := bracket(ctx, func(x float64) (float64, bool) { return hornerFloat(fs, x), true }, grid)
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(roots))
	for i, r := range roots {
		out[i] = Float(r)
	}
	return out, nil
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n+1)
	step := (hi - lo) / float64(n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// defaultGrid samples the real line densely near the origin and
// geometrically further out.
func defaultGrid() []float64 {
	grid := linspace(-1000, 1000, 8000)
	for x := 1000.0; x < 1e9; x *= 1.1 {
		grid = append(grid, x, -x)
	}
	sort.Float64s(grid)
	return grid
}

const bisections = 200

// bracket finds zeros of f between adjacent grid points where f changes
// sign or vanishes.
func bracket(ctx context.Context, f func(float64) (float64, bool), grid []float64) ([]float64, error) {
	var roots []float64
	prevX, prevY, prevOK := 0.0, 0.0, false
	for i, x := range grid {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		y, ok := f(x)
		if ok && (math.IsNaN(y) || math.IsInf(y, 0)) {
			ok = false
		}
		if ok && y == 0 {
			roots = append(roots, x)
		} else if ok && prevOK && prevY != 0 && (y < 0) != (prevY < 0) {
			roots = append(roots, bisect(f, prevX, x, prevY))
		}
		prevX, prevY, prevOK = x, y, ok
	}
	return roots, nil
}

func bisect(f func(float64) (float64, bool), lo, hi, flo float64) float64 {
	for i := 0; i < bisections; i++ {
		mid := lo + (hi-lo)/2
		if mid == lo || mid == hi {
			break
		}
		fm, ok := f(mid)
		if !ok {
			break
		}
		if fm == 0 {
			return mid
		}
		if (fm < 0) == (flo < 0) {
			lo, flo = mid, fm
		} else {
			hi = mid
		}
	}
	return lo + (hi-lo)/2
}

// snap replaces a numeric root by a nearby small-denominator rational
// when the residual vanishes exactly there.
func snap(residual Expr, x string, r float64) Value {
	for q := int64(1); q <= 12; q++ {
		p := math.Round(r * float64(q))
		if math.Abs(p/float64(q)-r) > 1e-6*math.Max(1, math.Abs(r)) {
			continue
		}
		if math.Abs(p) > 1e15 {
			break
		}
		c := big.NewRat(int64(p), q)
		v, err := residual.eval(map[string]Value{x: {rat: c}})
		if err == nil && v.Exact() && v.Sign() == 0 {
			return Value{rat: c}
		}
	}
	return Float(r)
}

// dedupe removes roots equal to an earlier one, numerically for inexact
// values.
func dedupe(vs []Value) []Value {
	var out []Value
	for _, v := range vs {
		dup := false
		for _, o := range out {
			if sameValue(v, o) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

func sameValue(a, b Value) bool {
	if a.Exact() && b.Exact() {
		return a.rat.Cmp(b.rat) == 0
	}
	x, y := a.Float64(), b.Float64()
	return math.Abs(x-y) <= 1e-9*math.Max(1, math.Max(math.Abs(x), math.Abs(y)))
}
