package corpus

import (
	"fmt"
	"strconv"

	"github.com/itchyny/gojq"
	"github.com/pkg/errors"

	"github.com/wordprob/wordprob/pkg/answer"
)

// GoldQuery extracts the accepted answer sets from a corpus record. The
// query must yield a list whose elements are answer lists or single
// answers.
type GoldQuery struct {
	query *gojq.Query
}

func ParseGoldQuery(q string) (*GoldQuery, error) {
	query, err := gojq.Parse(q)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing gold query %q", q)
	}
	return &GoldQuery{query: query}, nil
}

// Extract runs the query against a decoded record. Every value the query
// yields contributes answer sets.
func (g *GoldQuery) Extract(record map[string]interface{}) ([]answer.Gold, error) {
	var out []answer.Gold
	iter := g.query.Run(record)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return nil, errors.Wrap(err, "error running gold query")
		}
		golds, err := toGold(v)
		if err != nil {
			return nil, err
		}
		out = append(out, golds...)
	}
	return out, nil
}

func toGold(v interface{}) ([]answer.Gold, error) {
	items, ok := v.([]interface{})
	if !ok {
		s, err := scalar(v)
		if err != nil {
			return nil, err
		}
		return []answer.Gold{answer.NewGold(s)}, nil
	}
	var out []answer.Gold
	for _, item := range items {
		if item == nil {
			continue
		}
		list, ok := item.([]interface{})
		if !ok {
			list = []interface{}{item}
		}
		answers := make([]string, 0, len(list))
		for _, a := range list {
			s, err := scalar(a)
			if err != nil {
				return nil, err
			}
			answers = append(answers, s)
		}
		out = append(out, answer.NewGold(answers...))
	}
	return out, nil
}

func scalar(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", errors.Errorf("gold answer %v has unsupported type %T", v, v)
}
