package semantics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// DecodeError reports a parser value that does not form a semantic tree.
type DecodeError struct {
	Path   string
	Value  interface{}
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid semantics at %s (%v): %s", e.Path, e.Value, e.Reason)
}

var (
	kTermPattern  = regexp.MustCompile(`^(-?\d+)\*k(?:([+-])(-?\d+))?$`)
	ratPattern    = regexp.MustCompile(`^-?\d+/\d+$`)
	letterIndices = map[string]int{"x": 0, "y": 1, "z": 2}
)

// Decode validates one parser value and returns the typed tree for it.
// Values use the grammar's tuple encoding: numbers and strings are
// leaves, [op, operand] and [op, [a, b]] apply an operator, [op, a, b]
// is the infix form and [x] is a degenerate wrapper.
func Decode(v interface{}) (Node, error) {
	return decode(v, "$")
}

// DecodeConstraints decodes a constraint list. Lists nested by the
// grammar as [c0, [c1, [c2]]] are flattened in order.
func DecodeConstraints(v interface{}) ([]Node, error) {
	return decodeList(v, "$")
}

func decodeList(v interface{}, path string) ([]Node, error) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 || isOperatorToken(arr[0]) {
		n, err := decode(v, path)
		if err != nil {
			return nil, err
		}
		return []Node{n}, nil
	}
	var out []Node
	for i, e := range arr {
		ns, err := decodeList(e, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, ns...)
	}
	return out, nil
}

func decode(v interface{}, path string) (Node, error) {
	switch t := v.(type) {
	case json.Number:
		return decodeNumber(string(t), path)
	case float64:
		return Float(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case string:
		return decodeLeaf(t, path)
	case []interface{}:
		return decodeTuple(t, path)
	case nil:
		return nil, &DecodeError{Path: path, Value: v, Reason: "null value"}
	}
	return nil, &DecodeError{Path: path, Value: v, Reason: fmt.Sprintf("unsupported type %T", v)}
}

func decodeNumber(s, path string) (Node, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, &DecodeError{Path: path, Value: s, Reason: "not a number"}
	}
	return Constant{Value: r, Float: strings.ContainsAny(s, ".eE")}, nil
}

func decodeLeaf(s, path string) (Node, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if i, ok := ParseVarName(s); ok {
		return Variable{Index: i}, nil
	}
	if i, ok := letterIndices[s]; ok {
		return Variable{Index: i}, nil
	}
	if s == AuxSymbol {
		return KTerm{Mult: 1}, nil
	}
	if m := kTermPattern.FindStringSubmatch(s); m != nil {
		mult, _ := strconv.ParseInt(m[1], 10, 64)
		var offset int64
		if m[3] != "" {
			// The grammar writes odd offsets as "+-1".
			offset, _ = strconv.ParseInt(m[3], 10, 64)
			if m[2] == "-" {
				offset = -offset
			}
		}
		return KTerm{Mult: mult, Offset: offset}, nil
	}
	if ratPattern.MatchString(s) {
		r, ok := new(big.Rat).SetString(s)
		if !ok {
			return nil, &DecodeError{Path: path, Value: s, Reason: "zero denominator"}
		}
		return Constant{Value: r}, nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return decodeNumber(s, path)
	}
	return nil, &DecodeError{Path: path, Value: s, Reason: "unknown leaf"}
}

func decodeTuple(t []interface{}, path string) (Node, error) {
	if len(t) == 0 {
		return nil, &DecodeError{Path: path, Value: t, Reason: "empty tuple"}
	}
	op, isOp := t[0].(string)
	if !isOp || !IsOperator(op) {
		// A bare sequence is only meaningful as a one-element wrapper.
		if len(t) != 1 {
			return nil, &DecodeError{Path: path, Value: t, Reason: fmt.Sprintf("sequence of %d expressions outside an operator", len(t))}
		}
		child, err := decode(t[0], path+"[0]")
		if err != nil {
			return nil, err
		}
		return Group{Elems: []Node{child}}, nil
	}

	switch len(t) {
	case 2:
		return decodePrefix(op, t[1], path)
	case 3:
		if op == Abs {
			return nil, &DecodeError{Path: path, Value: t, Reason: "abs takes one operand"}
		}
		lhs, err := decode(t[1], path+"[1]")
		if err != nil {
			return nil, err
		}
		rhs, err := decode(t[2], path+"[2]")
		if err != nil {
			return nil, err
		}
		if IsComparator(op) {
			return Constraint{Comparator: op, LHS: lhs, RHS: rhs}, nil
		}
		return BinaryOp{Op: op, Left: lhs, Right: rhs}, nil
	}
	return nil, &DecodeError{Path: path, Value: t, Reason: fmt.Sprintf("operator %q with %d operands", op, len(t)-1)}
}

// decodePrefix handles [op, rest]: rest is either the single operand of
// a power or abs, or a sequence of operands.
func decodePrefix(op string, rest interface{}, path string) (Node, error) {
	rpath := path + "[1]"
	if IsPower(op) || op == Abs {
		operand, err := decode(rest, rpath)
		if err != nil {
			return nil, err
		}
		return UnaryOp{Op: op, Operand: operand}, nil
	}

	seq, ok := rest.([]interface{})
	if !ok || len(seq) == 0 || isOperatorToken(seq[0]) {
		return nil, &DecodeError{Path: path, Value: rest, Reason: fmt.Sprintf("operator %q needs a sequence of operands", op)}
	}
	operands := make([]Node, len(seq))
	for i, e := range seq {
		n, err := decode(e, fmt.Sprintf("%s[%d]", rpath, i))
		if err != nil {
			return nil, err
		}
		operands[i] = n
	}

	if IsComparator(op) {
		if len(operands) != 2 {
			return nil, &DecodeError{Path: path, Value: rest, Reason: fmt.Sprintf("comparator %q relates two expressions, got %d", op, len(operands))}
		}
		return Constraint{Comparator: op, LHS: operands[0], RHS: operands[1]}, nil
	}
	switch len(operands) {
	case 1:
		return Group{Elems: operands}, nil
	case 2:
		return BinaryOp{Op: op, Left: operands[0], Right: operands[1]}, nil
	case 3:
		return NaryOp{Op: op, Operands: operands}, nil
	}
	return nil, &DecodeError{Path: path, Value: rest, Reason: fmt.Sprintf("operator %q over %d operands", op, len(operands))}
}

func isOperatorToken(v interface{}) bool {
	s, ok := v.(string)
	return ok && IsOperator(s)
}

// candidateDocument is the wire form of a Candidate.
type candidateDocument struct {
	Semantics   json.RawMessage `json:"semantics"`
	NumVars     *int            `json:"num_vars,omitempty"`
	Consecutive bool            `json:"consecutive,omitempty"`
	Parity      string          `json:"parity,omitempty"`
}

// ParseCandidate decodes a candidate document. When the document does
// not declare num_vars it is inferred from the constraints.
func ParseCandidate(data []byte) (Candidate, error) {
	var doc candidateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return Candidate{}, errors.Wrap(err, "error decoding candidate document")
	}
	return doc.candidate()
}

// UnmarshalJSON lets candidates be embedded directly in larger documents.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var doc candidateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	cand, err := doc.candidate()
	if err != nil {
		return err
	}
	*c = cand
	return nil
}

func (doc candidateDocument) candidate() (Candidate, error) {
	if len(doc.Semantics) == 0 {
		return Candidate{}, &DecodeError{Path: "$", Reason: "missing semantics"}
	}
	dec := json.NewDecoder(bytes.NewReader(doc.Semantics))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Candidate{}, errors.Wrap(err, "error decoding semantics")
	}
	constraints, err := DecodeConstraints(raw)
	if err != nil {
		return Candidate{}, err
	}
	parity, ok := ParseParity(doc.Parity)
	if !ok {
		return Candidate{}, &DecodeError{Path: "$.parity", Value: doc.Parity, Reason: "unknown parity"}
	}
	c := Candidate{
		Constraints: constraints,
		Consecutive: doc.Consecutive,
		Parity:      parity,
	}
	if doc.NumVars != nil {
		c.NumVars = *doc.NumVars
	} else {
		c.NumVars = InferNumVars(constraints)
	}
	return c, nil
}
