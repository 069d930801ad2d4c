package pipeline

import (
	"context"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/clicks"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/evaluator"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/results"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/tracing"
)

// rankTest joins the scorer output for partition/params to the test
// candidates and ranks every display.
func (r *Runner) rankTest(ctx context.Context, paths config.Paths) ([]clicks.Row, []ranker.Ranking, error) {
	var rows []clicks.Row
	err := tracing.Step(ctx, "read candidates", func(ctx context.Context, span *tracing.Span) error {
		var err error
		rows, err = clicks.ReadAll(paths.ClicksTest)
		span.SetAttr("rows", len(rows))
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	var rankings []ranker.Ranking
	err = tracing.Step(ctx, "rank", func(ctx context.Context, span *tracing.Span) error {
		start := time.Now()
		scores, err := ranker.ReadScores(paths.ScorerOutput)
		if err != nil {
			return err
		}
		scored, err := ranker.Join(rows, scores)
		if err != nil {
			return err
		}
		rankings = ranker.Rank(scored)
		span.SetAttr("displays", len(rankings))
		r.metrics.RankedDisplays.Add(float64(len(rankings)))
		r.metrics.ObserveStage("rank", start)
		return nil
	})
	return rows, rankings, err
}

// SubmitResult describes a written submission.
type SubmitResult struct {
	Rows       int
	Displays   int
	Submission string
}

// Submit ranks the scorer output and writes the submission file.
func (r *Runner) Submit(ctx context.Context, partition, params string) (SubmitResult, error) {
	paths := r.cfg.Paths(partition, params)
	log := r.logger(ctx, "submit", partition)
	res := SubmitResult{Submission: paths.Submission}

	log.Info("ranking scorer output", "candidates", paths.ClicksTest, "scores", paths.ScorerOutput)
	rows, rankings, err := r.rankTest(ctx, paths)
	if err != nil {
		return res, err
	}
	res.Rows, res.Displays = len(rows), len(rankings)

	err = tracing.Step(ctx, "write submission", func(context.Context, *tracing.Span) error {
		return ranker.WriteSubmission(paths.Submission, rankings)
	})
	if err != nil {
		return res, err
	}
	log.Info("submission written", "path", paths.Submission, "displays", res.Displays)
	return res, r.reporter.Notify(ctx, results.Event{
		Type:      results.EventSubmissionWritten,
		RunID:     r.runID,
		Partition: partition,
		Params:    params,
		Outputs:   []string{paths.Submission},
		Rows:      res.Rows,
		At:        r.now().UTC(),
	})
}

// Evaluate ranks the scorer output and scores it with MAP@K against the
// clicked labels of the test candidates. The report is returned even when
// delivering it to the result sinks fails.
func (r *Runner) Evaluate(ctx context.Context, partition, params string) (evaluator.Report, error) {
	paths := r.cfg.Paths(partition, params)
	log := r.logger(ctx, "evaluate", partition)

	rows, rankings, err := r.rankTest(ctx, paths)
	if err != nil {
		return evaluator.Report{}, err
	}

	var report evaluator.Report
	err = tracing.Step(ctx, "evaluate", func(ctx context.Context, span *tracing.Span) error {
		start := time.Now()
		report, err = evaluator.Evaluate(rows, rankings, r.cfg.Evaluation.K, r.cfg.Evaluation.Precision)
		span.SetAttr("map_at_k", report.MAP)
		r.metrics.ObserveStage("evaluate", start)
		return err
	})
	if err != nil {
		return report, err
	}

	r.metrics.MeanAveragePrecision.
		WithLabelValues(config.PartitionName(partition), params, strconv.Itoa(report.K)).
		Set(report.MAP)
	log.Info("evaluation finished",
		"params", params,
		"k", report.K,
		"map_at_k", report.MAP,
		"displays", report.Displays,
	)
	return report, r.reporter.Record(ctx, results.Run{
		RunID:       r.runID,
		Partition:   partition,
		Params:      params,
		Report:      report,
		EvaluatedAt: r.now().UTC(),
	})
}
