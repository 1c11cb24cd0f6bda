package solver_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wordprob/wordprob/pkg/algebra"
	"github.com/wordprob/wordprob/pkg/semantics"
	"github.com/wordprob/wordprob/pkg/solver"
	"github.com/wordprob/wordprob/pkg/solver/solverfakes"
)

func eqs(ss ...string) []semantics.Equation {
	out := make([]semantics.Equation, len(ss))
	for i, s := range ss {
		out[i] = semantics.Equation(s)
	}
	return out
}

func TestSolve(t *testing.T) {
	type tc struct {
		Name     string
		Problem  solver.Problem
		Expected string
		Error    interface{}
	}

	for _, tt := range []tc{
		{
			Name:     "linear system",
			Problem:  solver.Problem{Equations: eqs("(v0)+(v1)==10", "(v0)-(v1)==2"), NumVars: 2},
			Expected: "[6, 4]",
		},
		{
			Name: "consecutive odd integers",
			Problem: solver.Problem{
				Equations:   eqs("((v0)+(v1))+(v2)==21", "v0==2*k+1", "v1==2*k+3", "v2==2*k+5"),
				NumVars:     3,
				Consecutive: true,
			},
			Expected: "[5, 7, 9]",
		},
		{
			Name:     "variable count inferred",
			Problem:  solver.Problem{Equations: eqs("(v0)+(v1)==10", "(v0)-(v1)==2")},
			Expected: "[6, 4]",
		},
		{
			Name:     "inequality",
			Problem:  solver.Problem{Equations: eqs("v0<4"), NumVars: 1},
			Expected: "[]",
			Error:    new(*solver.UnsupportedConstraintError),
		},
		{
			Name:     "inequality beside an equation",
			Problem:  solver.Problem{Equations: eqs("(v0)+(v1)==10", "v0>=v1"), NumVars: 2},
			Expected: "[]",
			Error:    new(*solver.UnsupportedConstraintError),
		},
		{
			Name:     "custom inequality marker",
			Problem:  solver.Problem{Equations: eqs("v0!=4"), NumVars: 1, Inequality: "!"},
			Expected: "[]",
			Error:    new(*solver.UnsupportedConstraintError),
		},
		{
			Name:     "several solutions are ambiguous",
			Problem:  solver.Problem{Equations: eqs("(v0)+((v0)^(2))==72"), NumVars: 1},
			Expected: "[]",
			Error:    new(*solver.AmbiguousSolution),
		},
		{
			Name:     "no solution",
			Problem:  solver.Problem{Equations: eqs("(v0)+(1)==(v0)+(2)"), NumVars: 1},
			Expected: "[]",
		},
		{
			Name:     "malformed equation",
			Problem:  solver.Problem{Equations: eqs("(v0)+(==2"), NumVars: 1},
			Expected: "[]",
			Error:    new(*solver.SolveFailure),
		},
		{
			Name:     "undeclared symbol",
			Problem:  solver.Problem{Equations: eqs("(v0)+(v7)==2"), NumVars: 1},
			Expected: "[]",
			Error:    new(*solver.SolveFailure),
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			s, err := solver.New()
			require.NoError(t, err)
			got, err := s.Solve(context.Background(), tt.Problem)
			assert.Equal(t, tt.Expected, got.String())
			if tt.Error == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorAs(t, err, tt.Error)
		})
	}
}

func TestSolveBranches(t *testing.T) {
	s, err := solver.New()
	require.NoError(t, err)
	sets, err := s.SolveBranches(context.Background(), solver.Problem{Equations: eqs("(v0)+((v0)^(2))==72"), NumVars: 1})
	require.NoError(t, err)
	require.Len(t, sets, 2)
	assert.Equal(t, "[-9]", sets[0].String())
	assert.Equal(t, "[8]", sets[1].String())
}

func TestSolveNormalizesAssignments(t *testing.T) {
	engine := &solverfakes.FakeEngine{}
	engine.SolveReturns([]algebra.Assignment{{
		"v2": algebra.Int(9),
		"k":  algebra.Int(2),
		"v0": algebra.Int(5),
		"v1": algebra.Int(7),
	}}, nil)
	s, err := solver.New(solver.WithEngine(engine))
	require.NoError(t, err)

	got, err := s.Solve(context.Background(), solver.Problem{Equations: eqs("v0==2*k+1"), NumVars: 3, Consecutive: true})
	require.NoError(t, err)
	assert.Equal(t, "[5, 7, 9]", got.String())

	require.Equal(t, 1, engine.SolveCallCount())
	_, gotEqs, symbols := engine.SolveArgsForCall(0)
	assert.Equal(t, []string{"v0==2*k+1"}, gotEqs)
	assert.Equal(t, []string{"v0", "v1", "v2", "k"}, symbols)
}

func TestSolveRecoversEnginePanic(t *testing.T) {
	engine := &solverfakes.FakeEngine{}
	engine.SolveCalls(func(context.Context, []string, []string) ([]algebra.Assignment, error) {
		panic("malformed symbolic input")
	})
	s, err := solver.New(solver.WithEngine(engine))
	require.NoError(t, err)

	got, err := s.Solve(context.Background(), solver.Problem{Equations: eqs("v0==1"), NumVars: 1})
	assert.Empty(t, got)
	var failure *solver.SolveFailure
	require.ErrorAs(t, err, &failure)
	assert.Contains(t, failure.Error(), "malformed symbolic input")
}

func TestSolveWrapsEngineErrors(t *testing.T) {
	cause := errors.New("boom")
	engine := &solverfakes.FakeEngine{}
	engine.SolveReturns(nil, cause)
	s, err := solver.New(solver.WithEngine(engine))
	require.NoError(t, err)

	_, err = s.Solve(context.Background(), solver.Problem{Equations: eqs("v0==1"), NumVars: 1})
	assert.ErrorIs(t, err, cause)
}

func TestSolveTimeout(t *testing.T) {
	engine := &solverfakes.FakeEngine{}
	engine.SolveCalls(func(ctx context.Context, _ []string, _ []string) ([]algebra.Assignment, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s, err := solver.New(solver.WithEngine(engine), solver.WithTimeout(10*time.Millisecond))
	require.NoError(t, err)

	got, err := s.Solve(context.Background(), solver.Problem{Equations: eqs("v0==1"), NumVars: 1})
	assert.Empty(t, got)
	assert.ErrorIs(t, err, solver.ErrSolverTimeout)
}

func TestSolveTimeoutDoesNotWaitForEngine(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	engine := &solverfakes.FakeEngine{}
	engine.SolveCalls(func(context.Context, []string, []string) ([]algebra.Assignment, error) {
		<-release
		return nil, nil
	})
	s, err := solver.New(solver.WithEngine(engine), solver.WithTimeout(10*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	_, err = s.Solve(context.Background(), solver.Problem{Equations: eqs("v0==1"), NumVars: 1})
	assert.ErrorIs(t, err, solver.ErrSolverTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNewRejectsNonPositiveTimeout(t *testing.T) {
	_, err := solver.New(solver.WithTimeout(0))
	assert.Error(t, err)
}

func TestCountVariables(t *testing.T) {
	assert.Equal(t, 2, solver.CountVariables(eqs("(v0)+(v1)==10", "(v0)-(v1)==2", "(v1)*(v0)==24")...))
	assert.Equal(t, 1, solver.CountVariables(eqs("v10==2*k+1")...))
	assert.Equal(t, 0, solver.CountVariables(eqs("((2*k+1)+(2*k+3))==8")...))
}

func TestLoggingTracer(t *testing.T) {
	var traces bytes.Buffer
	s, err := solver.New(solver.WithTracer(solver.LoggingTracer{Writer: &traces}))
	require.NoError(t, err)

	_, err = s.Solve(context.Background(), solver.Problem{Equations: eqs("(2)*(v0)==10"), NumVars: 1})
	require.NoError(t, err)
	assert.Contains(t, traces.String(), "- (2)*(v0)==10")
	assert.Contains(t, traces.String(), "- {v0=5}")
}
