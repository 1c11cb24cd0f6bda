package metrics

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	ReasonLabel     = "reason"
	Outcome         = "outcome"
	ResultLabel     = "result"
	StrictnessLabel = "strictness"
	Succeeded       = "succeeded"
	Failed          = "failed"
	Matched         = "matched"
	Missed          = "missed"
)

// To add new metrics:
// 1. Register new metrics in Register() below.
// 2. Add an Emit function and call it where the event happens.
var (
	candidateOutcomeCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordprob_candidate_outcomes_total",
			Help: "Monotonic count of parse candidates executed, by outcome reason",
		},
		[]string{ReasonLabel},
	)

	candidateDurationSummary = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "wordprob_candidate_duration_seconds",
			Help:       "The duration of compiling and solving one parse candidate",
			Objectives: map[float64]float64{0.95: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{Outcome},
	)

	sentenceMatchCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordprob_sentence_matches_total",
			Help: "Monotonic count of evaluated sentences, by whether the aggregated answer matched gold",
		},
		[]string{ResultLabel, StrictnessLabel},
	)

	sentencesWithoutCandidates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wordprob_sentences_without_candidates_total",
			Help: "Monotonic count of sentences the parser produced no candidates for",
		},
	)
)

var registerOnce sync.Once

// Register adds the wordprob metrics to the default registry. Calling it
// again has no effect.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(candidateOutcomeCount)
		prometheus.MustRegister(candidateDurationSummary)
		prometheus.MustRegister(sentenceMatchCount)
		prometheus.MustRegister(sentencesWithoutCandidates)
	})
}

// WriteText writes the wordprob metric families gathered from g in the
// Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "wordprob_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func EmitCandidateOutcome(reason string) {
	candidateOutcomeCount.WithLabelValues(reason).Inc()
}

func RegisterCandidateSuccess(duration time.Duration) {
	candidateDurationSummary.WithLabelValues(Succeeded).Observe(duration.Seconds())
}

func RegisterCandidateFailure(duration time.Duration) {
	candidateDurationSummary.WithLabelValues(Failed).Observe(duration.Seconds())
}

func EmitSentenceMatch(matched bool, strictness string) {
	result := Missed
	if matched {
		result = Matched
	}
	sentenceMatchCount.WithLabelValues(result, strictness).Inc()
}

func EmitSentenceWithoutCandidates() {
	sentencesWithoutCandidates.Inc()
}
