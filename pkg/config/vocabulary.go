package config

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// Vocabulary is the set of words the grammar treats as ignorable. It is read-only after
// loading and safe for concurrent use.
type Vocabulary struct {
	words map[string]struct{}
}

// ReadVocabulary reads one word per line. Blank lines and lines starting
// with # are skipped; words are lowercased.
func ReadVocabulary(r io.Reader) (*Vocabulary, error) {
	v := &Vocabulary{words: map[string]struct{}{}}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		w := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if w == "" || strings.HasPrefix(w, "#") {
			continue
		}
		v.words[w] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading vocabulary")
	}
	return v, nil
}

func LoadVocabulary(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening vocabulary %s", path)
	}
	defer f.Close()
	return ReadVocabulary(f)
}

func (v *Vocabulary) Len() int {
	if v == nil {
		return 0
	}
	return len(v.words)
}

func (v *Vocabulary) Contains(word string) bool {
	if v == nil {
		return false
	}
	_, ok := v.words[strings.ToLower(word)]
	return ok
}

// Ignorable returns the tokens the vocabulary lists, in order, each once.
// The grammar skips these words when parsing.
func (v *Vocabulary) Ignorable(tokens []string) []string {
	return v.filter(tokens, true)
}

// Unknown returns the tokens missing from the vocabulary, in order, each
// once.
func (v *Vocabulary) Unknown(tokens []string) []string {
	return v.filter(tokens, false)
}

func (v *Vocabulary) filter(tokens []string, listed bool) []string {
	var (
		out  []string
		seen = map[string]struct{}{}
	)
	for _, t := range tokens {
		if v.Contains(t) != listed {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
