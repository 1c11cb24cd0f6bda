package solver

import (
	"fmt"
	"io"
	"time"

	"github.com/wordprob/wordprob/pkg/algebra"
)

// Attempt describes one engine call.
type Attempt struct {
	Equations   []string
	Symbols     []string
	Assignments []algebra.Assignment
	Err         error
	Duration    time.Duration
}

type Tracer interface {
	Trace(a Attempt)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ Attempt) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(a Attempt) {
	fmt.Fprintf(t.Writer, "---\nEquations:\n")
	for _, eq := range a.Equations {
		fmt.Fprintf(t.Writer, "- %s\n", eq)
	}
	fmt.Fprintf(t.Writer, "Symbols: %v\n", a.Symbols)
	if a.Err != nil {
		fmt.Fprintf(t.Writer, "Error: %v\n", a.Err)
		return
	}
	fmt.Fprintf(t.Writer, "Assignments:\n")
	for _, as := range a.Assignments {
		fmt.Fprintf(t.Writer, "- %s\n", as)
	}
}
