// Package answer reconciles the answer sets of competing parses of one
// sentence and compares answers against gold annotations.
package answer

import (
	"math/big"
	"strconv"
	"strings"

	"github.com/wordprob/wordprob/pkg/algebra"
)

// Scalar is one numeric answer: an exact rational or a float.
type Scalar struct {
	rat *big.Rat
	f   float64
}

// Exact returns the exact scalar r.
func Exact(r *big.Rat) Scalar {
	return Scalar{rat: new(big.Rat).Set(r)}
}

// Integer returns the exact scalar n.
func Integer(n int64) Scalar {
	return Scalar{rat: new(big.Rat).SetInt64(n)}
}

// Inexact returns a floating point scalar.
func Inexact(f float64) Scalar {
	return Scalar{f: f}
}

// FromValue converts a solver value, keeping exactness.
func FromValue(v algebra.Value) Scalar {
	if v.Exact() {
		return Scalar{rat: v.Rat()}
	}
	return Scalar{f: v.Float64()}
}

// ParseScalar reads an integer, rational ("1/3") or decimal answer.
// Decimals are read as floats.
func ParseScalar(s string) (Scalar, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Scalar{}, false
	}
	if !strings.ContainsAny(s, ".eE") {
		if r, ok := new(big.Rat).SetString(s); ok {
			return Scalar{rat: r}, true
		}
		return Scalar{}, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Scalar{}, false
	}
	return Scalar{f: f}, true
}

// IsExact reports whether the scalar holds an exact rational.
func (s Scalar) IsExact() bool { return s.rat != nil }

func (s Scalar) Float64() float64 {
	if s.rat != nil {
		f, _ := s.rat.Float64()
		return f
	}
	return s.f
}

// String is the normalized text of the scalar: "8", "-9", "1/3", "2.5".
// Floats are rounded to twelve significant digits and never use an
// exponent.
func (s Scalar) String() string {
	if s.rat != nil {
		if s.rat.IsInt() {
			return s.rat.Num().String()
		}
		return s.rat.RatString()
	}
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(s.f, 'g', 12, 64), 64)
	if err != nil {
		rounded = s.f
	}
	if rounded == 0 {
		rounded = 0 // drop the sign of negative zero
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// Normalize rewrites an answer string the way Scalar.String prints the
// same number, so "8.0", " 8" and "8" compare equal. Non-numeric text is
// only trimmed.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, ",", "")
	text = strings.ReplaceAll(text, "$", "")
	text = strings.ReplaceAll(text, " ", "")
	s, ok := ParseScalar(text)
	if !ok {
		return text
	}
	return s.String()
}

// Set is the ordered answer list of one candidate, one scalar per
// declared variable. An empty Set means no usable solution.
type Set []Scalar

// String renders the set as "[5, 7, 9]". Sets that print the same are
// the same answer.
func (s Set) String() string {
	return "[" + strings.Join(s.Strings(), ", ") + "]"
}

// Strings returns the normalized text of every scalar.
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = v.String()
	}
	return out
}
