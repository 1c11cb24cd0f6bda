package semantics

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(t *testing.T, s string) interface{} {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v interface{}
	require.NoError(t, dec.Decode(&v))
	return v
}

func TestDecode(t *testing.T) {
	type tc struct {
		Name  string
		Input string
		Node  string
		Error bool
	}

	for _, tt := range []tc{
		{Name: "integer", Input: `72`, Node: "72"},
		{Name: "float", Input: `0.5`, Node: "0.5"},
		{Name: "rational string", Input: `"1/3"`, Node: "1/3"},
		{Name: "variable", Input: `"v1"`, Node: "v1"},
		{Name: "negative variable", Input: `"v-1"`, Node: "v-1"},
		{Name: "letter variable", Input: `"y"`, Node: "v1"},
		{Name: "k term", Input: `"2*k+1"`, Node: "2*k+1"},
		{Name: "k term without offset", Input: `"2*k"`, Node: "2*k"},
		{Name: "k term with signed offset", Input: `"2*k+-1"`, Node: "2*k-1"},
		{Name: "k term with doubly negated offset", Input: `"2*k--3"`, Node: "2*k+3"},
		{Name: "power", Input: `["^2", "v0"]`, Node: "(^2 v0)"},
		{Name: "abs", Input: `["abs", ["-", ["v0", 3]]]`, Node: "(abs (- v0 3))"},
		{Name: "prefix pair", Input: `["+", ["v0", "v1"]]`, Node: "(+ v0 v1)"},
		{Name: "prefix triple", Input: `["+", ["v0", "v1", "v2"]]`, Node: "(+ v0 v1 v2)"},
		{Name: "infix", Input: `["*", 2, "v0"]`, Node: "(* 2 v0)"},
		{Name: "constraint infix", Input: `["=", ["+", ["v0", ["^2", "v0"]]], 72]`, Node: "(= (+ v0 (^2 v0)) 72)"},
		{Name: "constraint prefix", Input: `["=", ["v0", ["+", "v1", 3]]]`, Node: "(= v0 (+ v1 3))"},
		{Name: "degenerate wrapper", Input: `["v0"]`, Node: "[v0]"},
		{Name: "single operand sequence", Input: `["+", ["v0"]]`, Node: "[v0]"},
		{Name: "unknown leaf", Input: `"banana"`, Error: true},
		{Name: "bare sequence", Input: `["v0", "v1"]`, Error: true},
		{Name: "abs infix", Input: `["abs", 1, 2]`, Error: true},
		{Name: "four operands", Input: `["+", ["v0", "v1", "v2", "v3"]]`, Error: true},
		{Name: "operator without sequence", Input: `["+", "v0"]`, Error: true},
		{Name: "null", Input: `null`, Error: true},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			n, err := Decode(raw(t, tt.Input))
			if tt.Error {
				var derr *DecodeError
				assert.ErrorAs(t, err, &derr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.Node, n.String())
		})
	}
}

func TestDecodeConstraintsFlattens(t *testing.T) {
	nodes, err := DecodeConstraints(raw(t, `[["=", "v0", 1], [["=", "v1", 2], [["=", "v2", 3]]]]`))
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "(= v0 1)", nodes[0].String())
	assert.Equal(t, "(= v1 2)", nodes[1].String())
	assert.Equal(t, "(= v2 3)", nodes[2].String())
}

func TestParseCandidate(t *testing.T) {
	c, err := ParseCandidate([]byte(`{"semantics": ["=", ["+", ["v0", "v1", "v2"]], 21], "num_vars": 3, "consecutive": true, "parity": "odd"}`))
	require.NoError(t, err)
	assert.Equal(t, 3, c.NumVars)
	assert.True(t, c.Consecutive)
	assert.Equal(t, ParityOdd, c.Parity)
	require.Len(t, c.Constraints, 1)

	c, err = ParseCandidate([]byte(`{"semantics": [["=", ["+", ["v0", "v1"]], 10], ["=", ["-", "v0", "v1"], 2]]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, c.NumVars, "num_vars is inferred when absent")
	assert.Len(t, c.Constraints, 2)

	_, err = ParseCandidate([]byte(`{"semantics": 1, "parity": "prime"}`))
	assert.Error(t, err)

	_, err = ParseCandidate([]byte(`{"num_vars": 1}`))
	assert.Error(t, err)
}

func TestInferNumVars(t *testing.T) {
	assert.Equal(t, 0, InferNumVars(nil))
	assert.Equal(t, 3, InferNumVars([]Node{Constraint{Comparator: "=", LHS: Variable{0}, RHS: Variable{2}}}))
	assert.Equal(t, 2, InferNumVars([]Node{Constraint{Comparator: "=", LHS: Variable{0}, RHS: Variable{-2}}}))
	assert.Equal(t, 2, InferNumVars([]Node{
		Constraint{Comparator: "=", LHS: BinaryOp{Op: "-", Left: Variable{-1}, Right: Variable{0}}, RHS: Int(2)},
		Constraint{Comparator: "=", LHS: BinaryOp{Op: "+", Left: Variable{0}, Right: Variable{-1}}, RHS: Int(10)},
	}), "the first and last of two integers are distinct")
}

func TestParseCandidateOddKTerms(t *testing.T) {
	c, err := ParseCandidate([]byte(`{"semantics": ["=", ["+", ["2*k+-1", "2*k+1", "2*k+3"]], 21], "consecutive": true, "parity": "odd"}`))
	require.NoError(t, err)
	require.Len(t, c.Constraints, 1)
	assert.Equal(t, "(= (+ 2*k-1 2*k+1 2*k+3) 21)", c.Constraints[0].String())
	assert.True(t, HasKTerms(c.Constraints))
}

func TestHasKTerms(t *testing.T) {
	assert.False(t, HasKTerms([]Node{BinaryOp{Op: "+", Left: Variable{0}, Right: Int(1)}}))
	assert.True(t, HasKTerms([]Node{Constraint{Comparator: "=", LHS: NaryOp{Op: "+", Operands: []Node{KTerm{2, 1}, KTerm{2, 3}, KTerm{2, 5}}}, RHS: Int(21)}}))
}

func TestParseVarName(t *testing.T) {
	i, ok := ParseVarName(VarName(12))
	assert.True(t, ok)
	assert.Equal(t, 12, i)
	_, ok = ParseVarName("k")
	assert.False(t, ok)
}
