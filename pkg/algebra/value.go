package algebra

import (
	"math"
	"math/big"
	"strconv"

	"github.com/pkg/errors"
)

// Value is a real number, exact when every input that produced it was
// exact and the operations preserved exactness.
type Value struct {
	rat *big.Rat
	f   float64
}

var (
	errDivideByZero = errors.New("division by zero")
	errNotReal      = errors.New("result is not a real number")
)

// Rat returns the exact value r.
func Rat(r *big.Rat) Value {
	return Value{rat: new(big.Rat).Set(r)}
}

// Int returns the exact integer n.
func Int(n int64) Value {
	return Value{rat: new(big.Rat).SetInt64(n)}
}

// Float returns an inexact value.
func Float(f float64) Value {
	return Value{f: f}
}

// Exact reports whether v holds an exact rational.
func (v Value) Exact() bool { return v.rat != nil }

// Rat returns a copy of the exact value, or the closest rational to an
// inexact one.
func (v Value) Rat() *big.Rat {
	if v.rat != nil {
		return new(big.Rat).Set(v.rat)
	}
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(v.f, 'g', -1, 64))
	if !ok {
		return new(big.Rat)
	}
	return r
}

// Float64 returns the nearest float64 to v.
func (v Value) Float64() float64 {
	if v.rat != nil {
		f, _ := v.rat.Float64()
		return f
	}
	return v.f
}

func (v Value) String() string {
	if v.rat != nil {
		if v.rat.IsInt() {
			return v.rat.Num().String()
		}
		return v.rat.RatString()
	}
	return strconv.FormatFloat(v.f, 'g', -1, 64)
}

// Sign returns -1, 0 or +1.
func (v Value) Sign() int {
	if v.rat != nil {
		return v.rat.Sign()
	}
	switch {
	case v.f < 0:
		return -1
	case v.f > 0:
		return 1
	}
	return 0
}

const zeroTolerance = 1e-9

// nearZero treats tiny inexact values as zero.
func (v Value) nearZero() bool {
	if v.rat != nil {
		return v.rat.Sign() == 0
	}
	return math.Abs(v.f) < zeroTolerance
}

func checked(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, errNotReal
	}
	return Value{f: f}, nil
}

func add(a, b Value) Value {
	if a.rat != nil && b.rat != nil {
		return Value{rat: new(big.Rat).Add(a.rat, b.rat)}
	}
	return Value{f: a.Float64() + b.Float64()}
}

func sub(a, b Value) Value {
	if a.rat != nil && b.rat != nil {
		return Value{rat: new(big.Rat).Sub(a.rat, b.rat)}
	}
	return Value{f: a.Float64() - b.Float64()}
}

func mul(a, b Value) Value {
	if a.rat != nil && b.rat != nil {
		return Value{rat: new(big.Rat).Mul(a.rat, b.rat)}
	}
	return Value{f: a.Float64() * b.Float64()}
}

func quo(a, b Value) (Value, error) {
	if b.Sign() == 0 {
		return Value{}, errDivideByZero
	}
	if a.rat != nil && b.rat != nil {
		return Value{rat: new(big.Rat).Quo(a.rat, b.rat)}, nil
	}
	return checked(a.Float64() / b.Float64())
}

func neg(a Value) Value {
	if a.rat != nil {
		return Value{rat: new(big.Rat).Neg(a.rat)}
	}
	return Value{f: -a.f}
}

func abs(a Value) Value {
	if a.rat != nil {
		return Value{rat: new(big.Rat).Abs(a.rat)}
	}
	return Value{f: math.Abs(a.f)}
}

// mod follows the sign of the divisor, as in floored division.
func mod(a, b Value) (Value, error) {
	if b.Sign() == 0 {
		return Value{}, errDivideByZero
	}
	if a.rat != nil && b.rat != nil && a.rat.IsInt() && b.rat.IsInt() {
		m := new(big.Int).Mod(a.rat.Num(), b.rat.Num())
		if m.Sign() != 0 && b.rat.Sign() < 0 {
			m.Add(m, b.rat.Num())
		}
		return Value{rat: new(big.Rat).SetInt(m)}, nil
	}
	x, y := a.Float64(), b.Float64()
	m := math.Mod(x, y)
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return checked(m)
}

const maxExactExponent = 256

// pow raises a to b. Integer exponents and roots of perfect powers stay
// exact; everything else falls back to floating point.
func pow(a, b Value) (Value, error) {
	if b.rat != nil && b.rat.IsInt() && b.rat.Num().IsInt64() {
		e := b.rat.Num().Int64()
		if a.rat != nil && e >= -maxExactExponent && e <= maxExactExponent {
			return intPow(a, e)
		}
		if a.Sign() == 0 && e < 0 {
			return Value{}, errDivideByZero
		}
		return checked(math.Pow(a.Float64(), float64(e)))
	}
	if b.rat != nil && a.rat != nil {
		if v, ok := exactRoot(a.rat, b.rat); ok {
			return v, nil
		}
	}
	x, y := a.Float64(), b.Float64()
	if x < 0 && y == math.Trunc(y) {
		return checked(math.Pow(x, y))
	}
	if x < 0 {
		// Odd roots of negative numbers are real.
		if b.rat != nil && b.rat.Denom().Bit(0) == 1 {
			r := math.Pow(-x, y)
			if b.rat.Num().Bit(0) == 1 {
				r = -r
			}
			return checked(r)
		}
		return Value{}, errNotReal
	}
	if x == 0 && y < 0 {
		return Value{}, errDivideByZero
	}
	return checked(math.Pow(x, y))
}

func intPow(a Value, e int64) (Value, error) {
	if e < 0 {
		if a.rat.Sign() == 0 {
			return Value{}, errDivideByZero
		}
		inv := new(big.Rat).Inv(a.rat)
		return intPow(Value{rat: inv}, -e)
	}
	num := new(big.Int).Exp(a.rat.Num(), big.NewInt(e), nil)
	den := new(big.Int).Exp(a.rat.Denom(), big.NewInt(e), nil)
	return Value{rat: new(big.Rat).SetFrac(num, den)}, nil
}

// exactRoot computes base^(p/q) when the q-th root of base is rational.
func exactRoot(base, exp *big.Rat) (Value, bool) {
	q := exp.Denom()
	if !q.IsInt64() || q.Int64() > 16 {
		return Value{}, false
	}
	n := q.Int64()
	negative := base.Sign() < 0
	if negative && n%2 == 0 {
		return Value{}, false
	}
	mag := new(big.Rat).Abs(base)
	num, ok := intRoot(mag.Num(), n)
	if !ok {
		return Value{}, false
	}
	den, ok := intRoot(mag.Denom(), n)
	if !ok {
		return Value{}, false
	}
	root := new(big.Rat).SetFrac(num, den)
	if negative {
		root.Neg(root)
	}
	p := exp.Num()
	if !p.IsInt64() || p.Int64() > maxExactExponent || p.Int64() < -maxExactExponent {
		return Value{}, false
	}
	v, err := intPow(Value{rat: root}, p.Int64())
	if err != nil {
		return Value{}, false
	}
	return v, true
}

// intRoot returns the exact n-th root of x, if there is one.
func intRoot(x *big.Int, n int64) (*big.Int, bool) {
	if n == 2 {
		r := new(big.Int).Sqrt(x)
		return r, new(big.Int).Mul(r, r).Cmp(x) == 0
	}
	f, _ := new(big.Float).SetInt(x).Float64()
	guess := math.Round(math.Pow(f, 1/float64(n)))
	if math.IsInf(guess, 0) || math.IsNaN(guess) {
		return nil, false
	}
	for _, d := range []float64{0, -1, 1} {
		c, _ := big.NewFloat(guess + d).Int(nil)
		if c.Sign() < 0 {
			continue
		}
		if new(big.Int).Exp(c, big.NewInt(n), nil).Cmp(x) == 0 {
			return c, true
		}
	}
	return nil, false
}
