package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wordprob/wordprob/pkg/answer"
	"github.com/wordprob/wordprob/pkg/compiler"
	"github.com/wordprob/wordprob/pkg/lib/signals"
	"github.com/wordprob/wordprob/pkg/semantics"
)

func newSolveCmd(o *options) *cobra.Command {
	var gold []string

	cmd := &cobra.Command{
		Use:   "solve [FILE]",
		Short: "Solves the parse candidates of one sentence and prints the reconciled answer",
		Long: `Reads candidate documents from FILE, or stdin when FILE is "-" or absent.
Candidates are given as a JSON array or one JSON object per line:

  {"semantics": ["=", ["+", ["v0", "v1", "v2"]], 21], "num_vars": 3, "consecutive": true, "parity": "odd"}`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := o.logger(cmd)
			cfg, err := o.config(cmd.Flags())
			if err != nil {
				return err
			}
			p, err := o.pipeline(cfg, logger, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			candidates, numbers, err := readCandidates(cmd.InOrStdin(), args, logger)
			if err != nil {
				return err
			}

			var golds []answer.Gold
			if len(gold) > 0 {
				golds = append(golds, answer.NewGold(gold...))
			}
			r := p.AggregateAndMatch(signals.Context(), candidates, golds, cfg.Strictness)

			out := cmd.OutOrStdout()
			for _, outcome := range r.Outcomes {
				n := numbers[outcome.Index]
				if outcome.Err != nil {
					fmt.Fprintf(out, "candidate %d: %s: %v\n", n, outcome.Reason(), outcome.Err)
					continue
				}
				fmt.Fprintf(out, "candidate %d: %s\n", n, joinSets(outcome.Answers))
			}
			fmt.Fprintf(out, "answer: %s\n", r.Answer)
			if len(golds) > 0 {
				fmt.Fprintf(out, "correct: %t\n", r.Correct)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&gold, "gold", nil, "expected answers, compared with the reconciled answer")
	return cmd
}

func newCompileCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "compile [FILE]",
		Short: "Prints the equations each parse candidate compiles to",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := o.logger(cmd)
			candidates, numbers, err := readCandidates(cmd.InOrStdin(), args, logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, c := range candidates {
				eqs, err := compiler.CompileAll(c)
				if err != nil {
					fmt.Fprintf(out, "candidate %d: %v\n", numbers[i], err)
					continue
				}
				fmt.Fprintf(out, "candidate %d:\n", numbers[i])
				for _, eq := range eqs {
					fmt.Fprintf(out, "  %s\n", eq)
				}
			}
			return nil
		},
	}
}

func joinSets(sets []answer.Set) string {
	if len(sets) == 0 {
		return answer.Set{}.String()
	}
	var b bytes.Buffer
	for i, s := range sets {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(s.String())
	}
	return b.String()
}

func open(stdin io.Reader, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(stdin), nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, errors.Wrapf(err, "error opening %s", args[0])
	}
	return f, nil
}

// readCandidates decodes a JSON array of candidate documents or one
// document per line. Undecodable candidates are logged and skipped. The
// second result holds the 1-based input position of each candidate.
func readCandidates(stdin io.Reader, args []string, logger logrus.FieldLogger) ([]semantics.Candidate, []int, error) {
	in, err := open(stdin, args)
	if err != nil {
		return nil, nil, err
	}
	defer in.Close()
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error reading candidates")
	}

	var docs []json.RawMessage
	if trimmed := bytes.TrimSpace(data); bytes.HasPrefix(trimmed, []byte("[")) {
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			return nil, nil, errors.Wrap(err, "error decoding candidate array")
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 0, 64<<10), 16<<20)
		for scanner.Scan() {
			if line := bytes.TrimSpace(scanner.Bytes()); len(line) > 0 {
				docs = append(docs, append(json.RawMessage(nil), line...))
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, nil, errors.Wrap(err, "error reading candidates")
		}
	}

	var (
		out     []semantics.Candidate
		numbers []int
	)
	for i, doc := range docs {
		c, err := semantics.ParseCandidate(doc)
		if err != nil {
			logger.WithField("candidate", i+1).WithError(err).Warn("skipping candidate")
			continue
		}
		out = append(out, c)
		numbers = append(numbers, i+1)
	}
	return out, numbers, nil
}
