package pipeline_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/constraints"
	"github.com/wordprob/wordprob/pkg/pipeline"
	"github.com/wordprob/wordprob/pkg/semantics"
	"github.com/wordprob/wordprob/pkg/solver"
)

func v(i int) semantics.Variable { return semantics.Variable{Index: i} }

func eq(lhs, rhs semantics.Node) semantics.Constraint {
	return semantics.Constraint{Comparator: semantics.Equal, LHS: lhs, RHS: rhs}
}

func op(o string, l, r semantics.Node) semantics.BinaryOp {
	return semantics.BinaryOp{Op: o, Left: l, Right: r}
}

func setStrings(sets []answer.Set) []string {
	out := []string{}
	for _, s := range sets {
		out = append(out, s.String())
	}
	return out
}

var (
	linearSystem = semantics.Candidate{
		NumVars: 2,
		Constraints: []semantics.Node{
			eq(op("+", v(0), v(1)), semantics.Int(10)),
			eq(op("-", v(0), v(1)), semantics.Int(2)),
		},
	}
	consecutiveOdd = semantics.Candidate{
		NumVars:     3,
		Consecutive: true,
		Parity:      semantics.ParityOdd,
		Constraints: []semantics.Node{
			eq(semantics.NaryOp{Op: "+", Operands: []semantics.Node{v(0), v(1), v(2)}}, semantics.Int(21)),
		},
	}
	embeddedTerms = semantics.Candidate{
		Consecutive: true,
		Parity:      semantics.ParityOdd,
		Constraints: []semantics.Node{
			eq(op("+", semantics.KTerm{Mult: 2, Offset: 1}, semantics.KTerm{Mult: 2, Offset: 3}), semantics.Int(16)),
		},
	}
	quadratic = semantics.Candidate{
		NumVars: 1,
		Constraints: []semantics.Node{
			eq(op("+", v(0), semantics.UnaryOp{Op: "^2", Operand: v(0)}), semantics.Int(72)),
		},
	}
	inequality = semantics.Candidate{
		NumVars: 1,
		Constraints: []semantics.Node{
			semantics.Constraint{Comparator: semantics.Less, LHS: v(0), RHS: semantics.Int(4)},
		},
	}
	outOfRange = semantics.Candidate{
		NumVars:     2,
		Constraints: []semantics.Node{eq(v(5), semantics.Int(1))},
	}
)

var _ = Describe("Pipeline", func() {
	var (
		ctx context.Context
		p   *pipeline.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		p, err = pipeline.New(pipeline.WithAggregator(answer.NewAggregator(answer.First())))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Execute", func() {
		It("solves a linear system in variable order", func() {
			o := p.Execute(ctx, linearSystem)
			Expect(o.Err).NotTo(HaveOccurred())
			Expect(o.Reason()).To(Equal(pipeline.ReasonSolved))
			Expect(o.Answer().String()).To(Equal("[6, 4]"))
		})

		It("ties consecutive odd integers to an auxiliary unknown", func() {
			o := p.Execute(ctx, consecutiveOdd)
			Expect(o.Err).NotTo(HaveOccurred())
			Expect(o.Equations).To(ContainElements(
				semantics.Equation("v0==2*k+1"),
				semantics.Equation("v1==2*k+3"),
				semantics.Equation("v2==2*k+5"),
			))
			Expect(o.Answer().String()).To(Equal("[5, 7, 9]"))
		})

		It("back-substitutes k into terms embedded by the grammar", func() {
			o := p.Execute(ctx, embeddedTerms)
			Expect(o.Err).NotTo(HaveOccurred())
			Expect(setStrings(o.Answers)).To(Equal([]string{"[7, 9]"}))
		})

		It("back-substitutes odd terms written with a signed offset", func() {
			c, err := semantics.ParseCandidate([]byte(`{"semantics": ["=", ["+", ["2*k+-1", "2*k+1", "2*k+3"]], 21], "consecutive": true, "parity": "odd"}`))
			Expect(err).NotTo(HaveOccurred())
			o := p.Execute(ctx, c)
			Expect(o.Err).NotTo(HaveOccurred())
			Expect(setStrings(o.Answers)).To(Equal([]string{"[5, 7, 9]"}))
		})

		It("keeps the first and last of two integers apart when the count is inferred", func() {
			c, err := semantics.ParseCandidate([]byte(`{"semantics": [["=", ["-", ["v-1", "v0"]], 2], ["=", ["+", ["v0", "v-1"]], 10]]}`))
			Expect(err).NotTo(HaveOccurred())
			Expect(c.NumVars).To(Equal(2))
			o := p.Execute(ctx, c)
			Expect(o.Err).NotTo(HaveOccurred())
			Expect(o.Answer().String()).To(Equal("[4, 6]"))
		})

		It("yields nothing for a legacy candidate without terms in k", func() {
			p, err := pipeline.New(pipeline.WithStrategy(constraints.Legacy))
			Expect(err).NotTo(HaveOccurred())
			o := p.Execute(ctx, consecutiveOdd)
			Expect(o.Err).NotTo(HaveOccurred())
			Expect(o.Answers).To(BeEmpty())
			Expect(o.Reason()).To(Equal(pipeline.ReasonEmpty))
		})

		It("discards simultaneous solutions by default", func() {
			o := p.Execute(ctx, quadratic)
			var ambiguous *solver.AmbiguousSolution
			Expect(o.Err).To(BeAssignableToTypeOf(ambiguous))
			Expect(o.Answers).To(BeEmpty())
			Expect(o.Reason()).To(Equal(pipeline.ReasonAmbiguous))
		})

		It("keeps every branch when asked to", func() {
			p, err := pipeline.New(pipeline.WithMultipleSolutions(pipeline.Branches))
			Expect(err).NotTo(HaveOccurred())
			o := p.Execute(ctx, quadratic)
			Expect(o.Err).NotTo(HaveOccurred())
			Expect(setStrings(o.Answers)).To(Equal([]string{"[-9]", "[8]"}))
		})

		It("rejects inequalities", func() {
			o := p.Execute(ctx, inequality)
			Expect(o.Answers).To(BeEmpty())
			Expect(o.Reason()).To(Equal(pipeline.ReasonUnsupported))
		})

		It("reports compile errors on the outcome", func() {
			o := p.Execute(ctx, outOfRange)
			Expect(o.Answers).To(BeEmpty())
			Expect(o.Reason()).To(Equal(pipeline.ReasonCompile))
		})
	})

	Describe("Run", func() {
		It("executes identical candidates once", func() {
			outcomes := p.Run(ctx, []semantics.Candidate{linearSystem, quadratic, linearSystem})
			Expect(outcomes).To(HaveLen(2))
		})

		It("reports input positions when duplicates are dropped", func() {
			outcomes := p.Run(ctx, []semantics.Candidate{linearSystem, linearSystem, quadratic})
			Expect(outcomes).To(HaveLen(2))
			Expect(outcomes[0].Index).To(Equal(0))
			Expect(outcomes[1].Index).To(Equal(2))
		})

		It("stops when the context is done", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			Expect(p.Run(cancelled, []semantics.Candidate{linearSystem})).To(BeEmpty())
		})

		It("reports candidate durations when instrumented", func() {
			var successes, failures int
			p, err := pipeline.New(pipeline.WithInstrumentation(
				func(time.Duration) { successes++ },
				func(time.Duration) { failures++ },
			))
			Expect(err).NotTo(HaveOccurred())
			p.Run(ctx, []semantics.Candidate{linearSystem, inequality, outOfRange})
			Expect(successes).To(Equal(1))
			Expect(failures).To(Equal(2))
		})
	})

	Describe("AggregateAndMatch", func() {
		var gold []answer.Gold

		BeforeEach(func() {
			gold = []answer.Gold{answer.NewGold("4")}
		})

		It("picks the majority answer and isolates failing candidates", func() {
			candidates := []semantics.Candidate{
				{NumVars: 1, Constraints: []semantics.Node{eq(v(0), semantics.Int(-4))}},
				inequality,
				{NumVars: 1, Constraints: []semantics.Node{eq(v(0), semantics.Int(4))}},
				outOfRange,
				{NumVars: 1, Constraints: []semantics.Node{eq(op("+", v(0), semantics.Int(1)), semantics.Int(5))}},
			}
			r := p.AggregateAndMatch(ctx, candidates, gold, answer.Loose)
			Expect(r.Outcomes).To(HaveLen(5))
			Expect(r.Answer.String()).To(Equal("[4]"))
			Expect(r.Correct).To(BeTrue())
			Expect(r.Reachable).To(BeTrue())
		})

		It("prefers the non-negative answer on a tie", func() {
			candidates := []semantics.Candidate{
				{NumVars: 1, Constraints: []semantics.Node{eq(v(0), semantics.Int(-4))}},
				{NumVars: 1, Constraints: []semantics.Node{eq(v(0), semantics.Int(4))}},
			}
			r := p.AggregateAndMatch(ctx, candidates, gold, answer.Tight)
			Expect(r.Answer.String()).To(Equal("[4]"))
			Expect(r.Correct).To(BeTrue())
		})

		It("finds nothing when every candidate fails", func() {
			r := p.AggregateAndMatch(ctx, []semantics.Candidate{inequality, outOfRange, quadratic}, gold, answer.Loose)
			Expect(r.Answer).To(BeEmpty())
			Expect(r.Correct).To(BeFalse())
			Expect(r.Reachable).To(BeFalse())
		})

		It("separates a reachable answer from the aggregated one", func() {
			candidates := []semantics.Candidate{
				{NumVars: 1, Constraints: []semantics.Node{eq(v(0), semantics.Int(3))}},
				{NumVars: 1, Constraints: []semantics.Node{eq(op("+", v(0), semantics.Int(1)), semantics.Int(4))}},
				{NumVars: 1, Constraints: []semantics.Node{eq(v(0), semantics.Int(4))}},
			}
			r := p.AggregateAndMatch(ctx, candidates, gold, answer.Loose)
			Expect(r.Answer.String()).To(Equal("[3]"))
			Expect(r.Correct).To(BeFalse())
			Expect(r.Reachable).To(BeTrue())
		})
	})
})

var _ = DescribeTable("ParseMultipleSolutions",
	func(in string, expected pipeline.MultipleSolutions, fails bool) {
		got, err := pipeline.ParseMultipleSolutions(in)
		if fails {
			Expect(err).To(HaveOccurred())
			return
		}
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(expected))
	},
	Entry("empty", "", pipeline.Discard, false),
	Entry("discard", "discard", pipeline.Discard, false),
	Entry("branches", " Branches ", pipeline.Branches, false),
	Entry("unknown", "enumerate", pipeline.MultipleSolutions(""), true),
)
