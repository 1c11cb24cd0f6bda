package answer

import (
	"strings"

	"github.com/pkg/errors"
)

// Strictness selects how a computed answer set must relate to a gold
// set to count as correct.
type Strictness string

const (
	// Tight requires the two sets to be equal.
	Tight Strictness = "tight"
	// Loose also accepts either set being a subset of the other.
	Loose Strictness = "loose"
)

// ParseStrictness accepts "tight" and "loose".
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(strings.ToLower(strings.TrimSpace(s))) {
	case Tight:
		return Tight, nil
	case Loose:
		return Loose, nil
	}
	return "", errors.Errorf("unknown strictness %q", s)
}

// Gold is one accepted answer for a sentence, as a set of answer
// strings.
type Gold []string

// NewGold normalizes each answer string.
func NewGold(answers ...string) Gold {
	g := make(Gold, len(answers))
	for i, a := range answers {
		g[i] = Normalize(a)
	}
	return g
}

type stringSet map[string]struct{}

func newStringSet(ss []string) stringSet {
	out := make(stringSet, len(ss))
	for _, s := range ss {
		out[s] = struct{}{}
	}
	return out
}

func (s stringSet) subsetOf(o stringSet) bool {
	for k := range s {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

func (s stringSet) equal(o stringSet) bool {
	return len(s) == len(o) && s.subsetOf(o)
}

// Match reports whether any computed set matches any gold set. Empty
// computed sets never match: finding nothing is not a correct answer.
func Match(gold []Gold, computed []Set, strictness Strictness) bool {
	for _, g := range gold {
		if len(g) == 0 {
			continue
		}
		gs := newStringSet(NewGold(g...))
		for _, c := range computed {
			if len(c) == 0 {
				continue
			}
			cs := newStringSet(c.Strings())
			if gs.equal(cs) {
				return true
			}
			if strictness == Loose && (gs.subsetOf(cs) || cs.subsetOf(gs)) {
				return true
			}
		}
	}
	return false
}
