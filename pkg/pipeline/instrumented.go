package pipeline

import (
	"context"
	"time"

	"github.com/wordprob/wordprob/pkg/semantics"
)

type InstrumentedExecutor struct {
	executor              Executor
	successMetricsEmitter func(time.Duration)
	failureMetricsEmitter func(time.Duration)
}

var _ Executor = &InstrumentedExecutor{}

func NewInstrumentedExecutor(executor Executor, successMetricsEmitter, failureMetricsEmitter func(time.Duration)) *InstrumentedExecutor {
	return &InstrumentedExecutor{
		executor:              executor,
		successMetricsEmitter: successMetricsEmitter,
		failureMetricsEmitter: failureMetricsEmitter,
	}
}

// Execute reports a candidate that ends in an error as a failure. A
// candidate with no solution is still a success.
func (ie *InstrumentedExecutor) Execute(ctx context.Context, c semantics.Candidate) Outcome {
	start := time.Now()
	o := ie.executor.Execute(ctx, c)
	if o.Err != nil {
		ie.failureMetricsEmitter(time.Since(start))
	} else {
		ie.successMetricsEmitter(time.Since(start))
	}
	return o
}
