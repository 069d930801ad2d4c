// Package pipeline runs the three batch stages end to end: preparing FFM
// feature files, turning scorer output into a submission, and evaluating
// scorer output against held-out clicks.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/results"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/metrics"
)

// Reporter receives evaluation runs and stage events. *results.Multi is the
// production implementation.
type Reporter interface {
	Record(ctx context.Context, run results.Run) error
	Notify(ctx context.Context, event results.Event) error
}

type nopReporter struct{}

func (nopReporter) Record(context.Context, results.Run) error { return nil }
func (nopReporter) Notify(context.Context, results.Event) error { return nil }

// Runner runs the stages of one program invocation against a config.
type Runner struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	reporter Reporter
	runID    string
	now      func() time.Time
}

// New creates a Runner. A nil reporter discards runs and events.
func New(cfg *config.Config, m *metrics.Metrics, reporter Reporter, runID string) *Runner {
	if reporter == nil {
		reporter = nopReporter{}
	}
	return &Runner{
		cfg:      cfg,
		metrics:  m,
		reporter: reporter,
		runID:    runID,
		now:      time.Now,
	}
}

func (r *Runner) logger(ctx context.Context, stage, partition string) *slog.Logger {
	return logger.FromContext(ctx).With("stage", stage, "partition", config.PartitionName(partition))
}
