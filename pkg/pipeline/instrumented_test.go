package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/semantics"
)

const (
	failure = time.Duration(0)
	success = time.Duration(1)
)

type fakeExecutorWithError struct{}
type fakeExecutorWithoutError struct{}
type fakeExecutorWithoutSolution struct{}

func (e *fakeExecutorWithError) Execute(ctx context.Context, c semantics.Candidate) Outcome {
	return Outcome{Candidate: c, Err: errors.New("fake error")}
}

func (e *fakeExecutorWithoutError) Execute(ctx context.Context, c semantics.Candidate) Outcome {
	return Outcome{Candidate: c, Answers: []answer.Set{{answer.Integer(4)}}}
}

func (e *fakeExecutorWithoutSolution) Execute(ctx context.Context, c semantics.Candidate) Outcome {
	return Outcome{Candidate: c}
}

func runInstrumented(t *testing.T, executor Executor) []time.Duration {
	result := []time.Duration{}

	changeToFailure := func(num time.Duration) {
		result = append(result, failure)
	}

	changeToSuccess := func(num time.Duration) {
		result = append(result, success)
	}

	NewInstrumentedExecutor(executor, changeToSuccess, changeToFailure).Execute(context.Background(), semantics.Candidate{})
	return result
}

func TestInstrumentedExecutorFailure(t *testing.T) {
	result := runInstrumented(t, &fakeExecutorWithError{})
	require.Equal(t, 1, len(result))
	require.Equal(t, failure, result[0])
}

func TestInstrumentedExecutorSuccess(t *testing.T) {
	result := runInstrumented(t, &fakeExecutorWithoutError{})
	require.Equal(t, 1, len(result))
	require.Equal(t, success, result[0])
}

func TestInstrumentedExecutorNoSolutionIsSuccess(t *testing.T) {
	result := runInstrumented(t, &fakeExecutorWithoutSolution{})
	require.Equal(t, 1, len(result))
	require.Equal(t, success, result[0])
}
