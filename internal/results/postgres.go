package results

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/postgres"
)

const evaluationRunsSchema = `
CREATE TABLE IF NOT EXISTS evaluation_runs (
    id           BIGSERIAL PRIMARY KEY,
    run_id       TEXT NOT NULL,
    partition    TEXT NOT NULL,
    params       TEXT NOT NULL,
    map_at_k     DOUBLE PRECISION NOT NULL,
    k            INTEGER NOT NULL,
    displays     INTEGER NOT NULL,
    rows         BIGINT NOT NULL,
    evaluated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

type dbExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PingContext(ctx context.Context) error
}

// PostgresStore appends every run to the evaluation_runs table so that
// parameter sets can be compared over time.
type PostgresStore struct {
	db     dbExecer
	closer func() error
	logger *slog.Logger
}

// NewPostgresStore wraps client and creates the table when missing.
func NewPostgresStore(ctx context.Context, client *postgres.Client) (*PostgresStore, error) {
	s := newPostgresStore(client, client.Close)
	s.logger = s.logger.With("target", client.Target())
	if err := s.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newPostgresStore(db dbExecer, closer func() error) *PostgresStore {
	return &PostgresStore{
		db:     db,
		closer: closer,
		logger: slog.Default().With("component", "evaluation-store"),
	}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, evaluationRunsSchema); err != nil {
		return fmt.Errorf("creating evaluation_runs: %w", err)
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, run Run) error {
	evaluatedAt := run.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluation_runs (run_id, partition, params, map_at_k, k, displays, rows, evaluated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.RunID, config.PartitionName(run.Partition), paramsName(run.Params),
		run.Report.MAP, run.Report.K, run.Report.Displays, run.Report.Rows, evaluatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving evaluation run: %w", err)
	}
	s.logger.Info("evaluation run saved",
		"partition", config.PartitionName(run.Partition),
		"params", paramsName(run.Params),
		"map_at_k", run.Report.MAP,
	)
	return nil
}

func (s *PostgresStore) Notify(context.Context, Event) error { return nil }

// Latest returns the last limit runs for partition, newest first.
func (s *PostgresStore) Latest(ctx context.Context, partition string, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, partition, params, map_at_k, k, displays, rows, evaluated_at
		 FROM evaluation_runs WHERE partition = $1
		 ORDER BY evaluated_at DESC LIMIT $2`,
		config.PartitionName(partition), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing evaluation runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.RunID, &r.Partition, &r.Params,
			&r.Report.MAP, &r.Report.K, &r.Report.Displays, &r.Report.Rows, &r.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("scanning evaluation run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *PostgresStore) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
