package corpus

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/config"
	"github.com/wordprob/wordprob/pkg/pipeline"
)

const corpus = `{"text": "The sum of two numbers is 10 and their difference is 2.", "ans_simple": ["6", "4"], "candidates": [{"semantics": [["=", ["+", ["v0", "v1"]], 10], ["=", ["-", "v0", "v1"], 2]]}]}
{"text": "Find three consecutive odd integers whose sum is 21.", "ans_simple": [5, 7, 9], "candidates": [{"semantics": ["=", ["+", ["v0", "v1", "v2"]], 21], "num_vars": 3, "consecutive": true, "parity": "odd"}, {"semantics": 1, "parity": "prime"}]}

{"text": "What is four plus four?", "ans_simple": 8, "candidates": []}
{"text": "A number is less than 4. Find it.", "ans_simple": 3, "candidates": [{"semantics": ["<", "v0", 4], "num_vars": 1}]}
`

func nullLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newReader(t *testing.T) *Reader {
	q, err := ParseGoldQuery(config.DefaultGoldQuery)
	require.NoError(t, err)
	return NewReader(q, nullLogger())
}

func TestRead(t *testing.T) {
	records, err := newReader(t).Read(strings.NewReader(corpus))
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, 1, records[0].Line)
	assert.Equal(t, []answer.Gold{answer.NewGold("6", "4")}, records[0].Gold)
	assert.Len(t, records[0].Candidates, 1)

	assert.Equal(t, []answer.Gold{answer.NewGold("5", "7", "9")}, records[1].Gold)
	assert.Len(t, records[1].Candidates, 1)
	assert.Equal(t, 1, records[1].Rejected)

	assert.Equal(t, 4, records[2].Line)
	assert.Equal(t, []answer.Gold{answer.NewGold("8")}, records[2].Gold)
	assert.Empty(t, records[2].Candidates)
}

func TestReadMalformedLine(t *testing.T) {
	_, err := newReader(t).Read(strings.NewReader("{\"text\": \"ok\"}\n{not json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestGoldQuery(t *testing.T) {
	tests := []struct {
		description string
		query       string
		record      map[string]interface{}
		expected    []answer.Gold
		err         bool
	}{
		{
			description: "ListOfAlternatives",
			query:       ".answers",
			record:      map[string]interface{}{"answers": []interface{}{[]interface{}{"5", "7"}, "12"}},
			expected:    []answer.Gold{answer.NewGold("5", "7"), answer.NewGold("12")},
		},
		{
			description: "Scalar",
			query:       ".answer",
			record:      map[string]interface{}{"answer": 2.5},
			expected:    []answer.Gold{answer.NewGold("2.5")},
		},
		{
			description: "SeveralOutputs",
			query:       ".a, .b",
			record:      map[string]interface{}{"a": "1", "b": "$1,000"},
			expected:    []answer.Gold{answer.NewGold("1"), answer.NewGold("1000")},
		},
		{
			description: "NullsSkipped",
			query:       "[.missing]",
			record:      map[string]interface{}{},
		},
		{
			description: "RuntimeError",
			query:       ".answer | error",
			record:      map[string]interface{}{"answer": "boom"},
			err:         true,
		},
		{
			description: "UnsupportedValue",
			query:       ".answer",
			record:      map[string]interface{}{"answer": map[string]interface{}{}},
			err:         true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			q, err := ParseGoldQuery(tt.query)
			require.NoError(t, err)
			got, err := q.Extract(tt.record)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseGoldQuery(".[")
	require.Error(t, err)
}

func TestPreprocess(t *testing.T) {
	assert.Equal(t,
		[]string{"find", "three", "consecutive", "odd", "integers", "whose", "sum", "is", "21", "."},
		Preprocess("Find three consecutive odd integers whose sum is 21."))
	assert.Equal(t, []string{"what's", "twenty-one", "/", "3", "?"}, Preprocess("What's twenty-one / 3?"))
}

type collectingSink struct {
	mu      sync.Mutex
	reports []Report
}

func (s *collectingSink) Save(_ context.Context, r Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

func TestEvaluate(t *testing.T) {
	records, err := newReader(t).Read(strings.NewReader(corpus))
	require.NoError(t, err)

	p, err := pipeline.New(pipeline.WithAggregator(answer.NewAggregator(answer.First())))
	require.NoError(t, err)
	vocabulary, err := config.ReadVocabulary(strings.NewReader("find\nsum\nis\nconsecutive\nodd\nintegers\n"))
	require.NoError(t, err)
	sink := &collectingSink{}

	e := NewEvaluator(p, answer.Tight, 2, WithVocabulary(vocabulary), WithSink(sink), WithEvaluatorLogger(nullLogger()))
	reports, summary, err := e.Evaluate(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, reports, 4)
	assert.Len(t, sink.reports, 4)

	assert.Equal(t, "[6, 4]", reports[0].Answer.String())
	assert.True(t, reports[0].Correct)
	assert.Equal(t, "[5, 7, 9]", reports[1].Answer.String())
	assert.True(t, reports[1].Correct)
	assert.Empty(t, reports[2].Answer)
	assert.False(t, reports[2].Correct)
	assert.Empty(t, reports[3].Answer)
	assert.Equal(t, map[string]int{pipeline.ReasonUnsupported: 1}, reports[3].Reasons)

	assert.Equal(t, 4, summary.Sentences)
	assert.Equal(t, 2, summary.Correct)
	assert.Equal(t, 2, summary.Reachable)
	assert.Equal(t, 1, summary.NoCandidates)
	assert.Equal(t, map[string]int{pipeline.ReasonSolved: 2, pipeline.ReasonUnsupported: 1}, summary.Reasons)
	assert.InDelta(t, 0.5, summary.Accuracy(), 1e-9)
	assert.Equal(t, []string{"sum", "is"}, reports[0].Ignorable)
	assert.Equal(t, []string{"is", "find", "sum"}, summary.TopIgnorable(3))
	assert.Equal(t, 4, summary.Ignorable["is"])
	assert.NotContains(t, summary.Ignorable, ".")
	assert.Equal(t, []string{".", "10"}, summary.TopUnknown(2))
	assert.Equal(t, 3, summary.Unknown["."])
}

type cancelingSink struct {
	cancel context.CancelFunc
	saved  int
}

func (s *cancelingSink) Save(context.Context, Report) error {
	s.saved++
	s.cancel()
	return nil
}

func TestEvaluateStopsWhenCanceled(t *testing.T) {
	records, err := newReader(t).Read(strings.NewReader(corpus))
	require.NoError(t, err)
	p, err := pipeline.New(pipeline.WithAggregator(answer.NewAggregator(answer.First())))
	require.NoError(t, err)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	reports, summary, err := NewEvaluator(p, answer.Tight, 2).Evaluate(canceled, records)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, reports)
	assert.Zero(t, summary.Sentences)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &cancelingSink{cancel: cancel}
	_, _, err = NewEvaluator(p, answer.Tight, 1, WithSink(sink)).Evaluate(ctx, records)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, sink.saved, "records after the cancellation are not scored")
}

func TestSummaryAccuracyEmpty(t *testing.T) {
	assert.Zero(t, Summary{}.Accuracy())
}
