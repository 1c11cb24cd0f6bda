package semantics

import (
	"regexp"
	"strconv"
	"strings"
)

// AuxSymbol is the name of the auxiliary unknown tying consecutive
// integers together.
const AuxSymbol = "k"

const varPrefix = "v"

var varPattern = regexp.MustCompile(`^v(-?\d+)$`)

// VarName returns the symbol name of the declared variable with index i.
// Every component renders variables through VarName.
func VarName(i int) string {
	return varPrefix + strconv.Itoa(i)
}

// ParseVarName is the inverse of VarName.
func ParseVarName(s string) (int, bool) {
	m := varPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	i, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return i, true
}

// Comparators understood by the grammar.
const (
	Equal          = "="
	Less           = "<"
	LessOrEqual    = "<="
	Greater        = ">"
	GreaterOrEqual = ">="
)

// Abs is the operator tag of the absolute value.
const Abs = "abs"

// PowerMarker begins every exponentiation tag ("^2", "^(1/2)").
const PowerMarker = "^"

// IsComparator reports whether op relates two expressions.
func IsComparator(op string) bool {
	switch op {
	case Equal, "==", Less, LessOrEqual, Greater, GreaterOrEqual, "!=":
		return true
	}
	return false
}

// IsPower reports whether op denotes exponentiation.
func IsPower(op string) bool {
	return strings.HasPrefix(op, PowerMarker)
}

// IsArithmetic reports whether op is a binary arithmetic operator.
func IsArithmetic(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%":
		return true
	}
	return false
}

// IsOperator reports whether s is an operator tag of any kind.
func IsOperator(s string) bool {
	return IsComparator(s) || IsPower(s) || IsArithmetic(s) || s == Abs
}

// Parity qualifies consecutive integers.
type Parity string

const (
	ParityUnspecified Parity = ""
	ParityEven        Parity = "even"
	ParityOdd         Parity = "odd"
)

// ParseParity accepts the parity names used by the grammar; "none" and
// the empty string mean unspecified.
func ParseParity(s string) (Parity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "unspecified":
		return ParityUnspecified, true
	case "even":
		return ParityEven, true
	case "odd":
		return ParityOdd, true
	}
	return ParityUnspecified, false
}
