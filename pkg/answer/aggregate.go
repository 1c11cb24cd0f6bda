package answer

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// TieBreaker picks one answer among groups that remain tied after every
// other rule has been applied. tied always holds at least two sets, in
// order of first appearance.
type TieBreaker interface {
	Choose(tied []Set) Set
}

// TieBreakerFunc adapts a function to TieBreaker.
type TieBreakerFunc func(tied []Set) Set

func (f TieBreakerFunc) Choose(tied []Set) Set { return f(tied) }

// First always picks the group that appeared first.
func First() TieBreaker {
	return TieBreakerFunc(func(tied []Set) Set { return tied[0] })
}

// Seeded picks uniformly from a deterministic sequence.
func Seeded(seed int64) TieBreaker {
	return &randomTieBreaker{rng: rand.New(rand.NewSource(seed))}
}

// Random picks uniformly at random. Results are not reproducible across
// runs; use Seeded or First when they must be.
func Random() TieBreaker {
	return Seeded(time.Now().UnixNano())
}

type randomTieBreaker struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *randomTieBreaker) Choose(tied []Set) Set {
	r.mu.Lock()
	defer r.mu.Unlock()
	return tied[r.rng.Intn(len(tied))]
}

// Aggregator merges the answer sets of all candidates for one sentence
// into one best answer by voting.
type Aggregator struct {
	tieBreaker TieBreaker
}

// NewAggregator returns an Aggregator that settles final ties with tb,
// or at random when tb is nil.
func NewAggregator(tb TieBreaker) *Aggregator {
	if tb == nil {
		tb = Random()
	}
	return &Aggregator{tieBreaker: tb}
}

type group struct {
	key   string
	set   Set
	count int
}

// Aggregate returns the answer most candidates agree on.
//
// Empty sets never vote. Sets containing a fraction vote only when no
// other set does. Among groups tied for the most votes, groups with a
// negative value are dropped unless that would drop all of them; a
// remaining tie goes to the tie breaker. The result is empty when no
// candidate produced an answer.
func (a *Aggregator) Aggregate(sets []Set) Set {
	var whole, fractional []Set
	for _, s := range sets {
		if len(s) == 0 {
			continue
		}
		if strings.Contains(s.String(), "/") {
			fractional = append(fractional, s)
			continue
		}
		whole = append(whole, s)
	}
	voters := whole
	if len(voters) == 0 {
		voters = fractional
	}
	if len(voters) == 0 {
		return Set{}
	}

	var groups []*group
	index := map[string]*group{}
	for _, s := range voters {
		k := s.String()
		g, ok := index[k]
		if !ok {
			g = &group{key: k, set: s}
			index[k] = g
			groups = append(groups, g)
		}
		g.count++
	}

	best := 0
	for _, g := range groups {
		if g.count > best {
			best = g.count
		}
	}
	var tied []*group
	for _, g := range groups {
		if g.count == best {
			tied = append(tied, g)
		}
	}

	if len(tied) > 1 {
		var positive []*group
		for _, g := range tied {
			if !strings.Contains(g.key, "-") {
				positive = append(positive, g)
			}
		}
		if len(positive) > 0 {
			tied = positive
		}
	}
	if len(tied) == 1 {
		return tied[0].set
	}

	candidates := make([]Set, len(tied))
	for i, g := range tied {
		candidates[i] = g.set
	}
	return a.tieBreaker.Choose(candidates)
}
