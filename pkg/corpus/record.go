// Package corpus reads evaluation corpora and scores the pipeline
// against them.
package corpus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/semantics"
)

// Record is one corpus line: a sentence, the parser's candidates for it
// and its gold answers.
type Record struct {
	Line       int
	Text       string
	Candidates []semantics.Candidate
	Gold       []answer.Gold
	// Rejected counts candidate documents that could not be decoded.
	Rejected int
}

type document struct {
	Text       string            `json:"text"`
	Candidates []json.RawMessage `json:"candidates"`
}

// Reader decodes JSON-lines corpora.
type Reader struct {
	gold   *GoldQuery
	logger logrus.FieldLogger
}

func NewReader(gold *GoldQuery, logger logrus.FieldLogger) *Reader {
	return &Reader{gold: gold, logger: logger}
}

const maxLine = 16 << 20

// Read decodes every non-blank line of r. A malformed line fails the
// read; a malformed candidate is only logged and counted.
func (r *Reader) Read(in io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64<<10), maxLine)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		rec, err := r.decode(line, data)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading corpus")
	}
	return records, nil
}

func (r *Reader) decode(line int, data []byte) (Record, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Record{}, errors.Wrapf(err, "line %d", line)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, errors.Wrapf(err, "line %d", line)
	}
	gold, err := r.gold.Extract(raw)
	if err != nil {
		return Record{}, errors.Wrapf(err, "line %d", line)
	}
	rec := Record{Line: line, Text: doc.Text, Gold: gold}
	for i, c := range doc.Candidates {
		cand, err := semantics.ParseCandidate(c)
		if err != nil {
			rec.Rejected++
			r.logger.WithFields(logrus.Fields{
				"line":      line,
				"candidate": i,
			}).WithError(err).Debug("skipping candidate")
			continue
		}
		rec.Candidates = append(rec.Candidates, cand)
	}
	return rec, nil
}

var token = regexp.MustCompile(`[\w\-']+|[.,!?;/]`)

// Preprocess lowercases a sentence and splits it into word and
// punctuation tokens.
func Preprocess(text string) []string {
	return token.FindAllString(strings.ToLower(text), -1)
}
