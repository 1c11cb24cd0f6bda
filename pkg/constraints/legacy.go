package constraints

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/wordprob/wordprob/pkg/algebra"
	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/semantics"
)

// Term is a linear term in k located in compiled equation text, such as
// "2*k+3".
type Term string

const termPattern = `-?\d+\*k(?:[+-]-?\d+)?|k`

var (
	parenthesized = regexp.MustCompile(`\((` + termPattern + `)\)`)
	wholeSide     = regexp.MustCompile(`^(?:` + termPattern + `)$`)
	comparator    = regexp.MustCompile(`==|<=|>=|!=|<|>`)
)

type hit struct {
	pos  int
	term string
}

// Locate scans compiled equations for linear terms in k, in order of
// first appearance. Repeated terms are reported once.
func Locate(eqs []semantics.Equation) []Term {
	var (
		out  []Term
		seen = map[string]struct{}{}
	)
	for _, eq := range eqs {
		text := strings.ReplaceAll(eq.String(), " ", "")
		var hits []hit
		for _, m := range parenthesized.FindAllStringSubmatchIndex(text, -1) {
			hits = append(hits, hit{pos: m[2], term: text[m[2]:m[3]]})
		}
		// Constraint sides are compiled without parentheses.
		start := 0
		bounds := append(comparator.FindAllStringIndex(text, -1), []int{len(text), len(text)})
		for _, b := range bounds {
			if side := text[start:b[0]]; wholeSide.MatchString(side) {
				hits = append(hits, hit{pos: start, term: side})
			}
			start = b[1]
		}
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
		for _, h := range hits {
			if _, ok := seen[h.term]; ok {
				continue
			}
			seen[h.term] = struct{}{}
			out = append(out, Term(h.term))
		}
	}
	return out
}

// BackSubstitute evaluates every term at each solution of k. It returns
// one answer set per solution, in the order the solutions are given.
func BackSubstitute(terms []Term, ks []algebra.Value) ([]answer.Set, error) {
	out := make([]answer.Set, 0, len(ks))
	for _, k := range ks {
		env := map[string]algebra.Value{semantics.AuxSymbol: k}
		set := make(answer.Set, 0, len(terms))
		for _, t := range terms {
			v, err := algebra.Evaluate(string(t), env)
			if err != nil {
				return nil, errors.Wrapf(err, "error substituting k=%s into %s", k, t)
			}
			set = append(set, answer.FromValue(v))
		}
		out = append(out, set)
	}
	return out, nil
}
