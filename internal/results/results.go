// Package results delivers evaluation reports and stage-completion events to
// optional external sinks: a Redis leaderboard, a Postgres run history and a
// Kafka topic.
package results

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/evaluator"
	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/resilience"
)

const stage = "results"

// Run is one scored evaluation: a partition, the scorer parameter set that
// produced the predictions and the resulting report.
type Run struct {
	RunID       string           `json:"run_id"`
	Partition   string           `json:"partition"`
	Params      string           `json:"params"`
	Report      evaluator.Report `json:"report"`
	EvaluatedAt time.Time        `json:"evaluated_at"`
}

// EventType names the stage milestone an Event announces.
type EventType string

const (
	EventFeaturesReady       EventType = "features_ready"
	EventSubmissionWritten   EventType = "submission_written"
	EventEvaluationCompleted EventType = "evaluation_completed"
)

// Event announces that a stage finished and where its outputs are.
type Event struct {
	Type      EventType         `json:"type"`
	RunID     string            `json:"run_id"`
	Partition string            `json:"partition"`
	Params    string            `json:"params,omitempty"`
	Outputs   []string          `json:"outputs,omitempty"`
	Rows      int               `json:"rows,omitempty"`
	Report    *evaluator.Report `json:"report,omitempty"`
	At        time.Time         `json:"at"`
}

// Sink receives runs and events. Sinks that have no use for one of the two
// return nil.
type Sink interface {
	Name() string
	Record(ctx context.Context, run Run) error
	Notify(ctx context.Context, event Event) error
	Close() error
}

// Pinger is implemented by sinks that can probe their backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Multi fans every delivery out to all sinks concurrently. Each sink gets its
// own retries; one failing sink does not stop the others.
type Multi struct {
	sinks   []Sink
	retry   resilience.RetryConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewMulti(sinks []Sink, retry resilience.RetryConfig, m *metrics.Metrics) *Multi {
	return &Multi{
		sinks:   sinks,
		retry:   retry,
		metrics: m,
		logger:  slog.Default().With("component", "result-sinks"),
	}
}

func (m *Multi) Len() int { return len(m.sinks) }

func (m *Multi) Record(ctx context.Context, run Run) error {
	return m.each(ctx, "record", func(ctx context.Context, s Sink) error {
		return s.Record(ctx, run)
	})
}

func (m *Multi) Notify(ctx context.Context, event Event) error {
	return m.each(ctx, "notify:"+string(event.Type), func(ctx context.Context, s Sink) error {
		return s.Notify(ctx, event)
	})
}

func (m *Multi) each(ctx context.Context, op string, fn func(context.Context, Sink) error) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, s := range m.sinks {
		g.Go(func() error {
			err := resilience.Retry(ctx, s.Name()+" "+op, m.retry, func(ctx context.Context) error {
				return fn(ctx, s)
			})
			if err != nil {
				m.metrics.SinkFailures.WithLabelValues(s.Name()).Inc()
				m.logger.Error("result sink failed", "sink", s.Name(), "op", op, "error", err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	if len(errs) > 0 {
		return apperrors.Newf(apperrors.ErrSink, stage, "%s: %v", op, errors.Join(errs...))
	}
	return nil
}

// RegisterChecks adds a readiness check for every sink that can be pinged.
func (m *Multi) RegisterChecks(c *health.Checker) {
	for _, s := range m.sinks {
		if p, ok := s.(Pinger); ok {
			c.Register("sink_"+s.Name(), p.Ping)
		}
	}
}

// Close closes every sink and returns the combined error.
func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
