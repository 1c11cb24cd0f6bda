// Package store persists evaluation reports in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/pkg/errors"

	"github.com/wordprob/wordprob/pkg/corpus"
)

// Open connects to the database at dsn and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error opening database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error pinging database")
	}
	return db, nil
}

const schema = `
create table if not exists evaluation_results (
	run        text        not null,
	line       integer     not null,
	sentence   text        not null,
	answer     text        not null,
	gold       jsonb       not null,
	correct    boolean     not null,
	reachable  boolean     not null,
	candidates integer     not null,
	reasons    jsonb       not null,
	created_at timestamptz not null default now(),
	primary key (run, line)
)`

// ResultRepo stores the reports of one evaluation run. It satisfies
// corpus.Sink.
type ResultRepo struct {
	DB  *sql.DB
	Run string
}

var _ corpus.Sink = &ResultRepo{}

func NewResultRepo(db *sql.DB, run string) *ResultRepo { return &ResultRepo{DB: db, Run: run} }

func (r *ResultRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return errors.Wrap(err, "error creating evaluation_results")
}

type row struct {
	line       int
	sentence   string
	answer     string
	gold       []byte
	correct    bool
	reachable  bool
	candidates int
	reasons    []byte
}

func toRow(rep corpus.Report) (row, error) {
	gold := make([][]string, len(rep.Gold))
	for i, g := range rep.Gold {
		gold[i] = []string(g)
	}
	goldJSON, err := json.Marshal(gold)
	if err != nil {
		return row{}, err
	}
	reasons := rep.Reasons
	if reasons == nil {
		reasons = map[string]int{}
	}
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return row{}, err
	}
	return row{
		line:       rep.Line,
		sentence:   rep.Text,
		answer:     rep.Answer.String(),
		gold:       goldJSON,
		correct:    rep.Correct,
		reachable:  rep.Reachable,
		candidates: rep.Candidates,
		reasons:    reasonsJSON,
	}, nil
}

// Save upserts the report of one sentence.
// PK: (run, line).
func (r *ResultRepo) Save(ctx context.Context, rep corpus.Report) error {
	rw, err := toRow(rep)
	if err != nil {
		return errors.Wrapf(err, "error encoding report for line %d", rep.Line)
	}
	const q = `
insert into evaluation_results(run, line, sentence, answer, gold, correct, reachable, candidates, reasons)
values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
on conflict (run, line)
do update set sentence=excluded.sentence, answer=excluded.answer, gold=excluded.gold,
	correct=excluded.correct, reachable=excluded.reachable, candidates=excluded.candidates,
	reasons=excluded.reasons, created_at=now()`
	_, err = r.DB.ExecContext(ctx, q, r.Run, rw.line, rw.sentence, rw.answer, rw.gold, rw.correct, rw.reachable, rw.candidates, rw.reasons)
	return errors.Wrapf(err, "error saving report for line %d", rep.Line)
}

// Accuracy returns the number of stored and correct sentences of the run.
func (r *ResultRepo) Accuracy(ctx context.Context) (total, correct int, err error) {
	const q = `select count(*), count(*) filter (where correct) from evaluation_results where run=$1`
	if err := r.DB.QueryRowContext(ctx, q, r.Run).Scan(&total, &correct); err != nil {
		return 0, 0, errors.Wrap(err, "error reading accuracy")
	}
	return total, correct, nil
}
