package pipeline

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/encoder"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/reference"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/results"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/tracing"
)

// PrepareResult counts what Prepare wrote and names the feature files.
type PrepareResult struct {
	TrainRows     int
	TestRows      int
	Displays      int
	TrainFeatures string
	TestFeatures  string
}

// Prepare loads the reference tables for partition, collects the ads of
// every display from both candidate files and writes the train and test
// feature files.
func (r *Runner) Prepare(ctx context.Context, partition string) (PrepareResult, error) {
	start := time.Now()
	paths := r.cfg.Paths(partition, "")
	log := r.logger(ctx, "prepare", partition)
	res := PrepareResult{TrainFeatures: paths.TrainFeatures, TestFeatures: paths.TestFeatures}

	tables, err := reference.NewLoader(r.metrics).LoadAll(ctx, paths)
	if err != nil {
		return res, err
	}

	var displayAds *reference.DisplayAds
	err = tracing.Step(ctx, "display ads", func(ctx context.Context, span *tracing.Span) error {
		log.Info("reading ads per display", "train", paths.ClicksTrain, "test", paths.ClicksTest)
		displayAds, err = reference.BuildDisplayAds(paths.ClicksTrain, paths.ClicksTest)
		if err != nil {
			return err
		}
		span.SetAttr("displays", displayAds.Len())
		return nil
	})
	if err != nil {
		return res, err
	}
	res.Displays = displayAds.Len()

	enc := encoder.New(tables, displayAds, r.cfg.Encoder, r.metrics)
	err = tracing.Step(ctx, "encode train", func(ctx context.Context, span *tracing.Span) error {
		res.TrainRows, err = enc.EncodeFile(ctx, paths.ClicksTrain, paths.TrainFeatures, encoder.ModeTrain)
		span.SetAttr("rows", res.TrainRows)
		return err
	})
	if err != nil {
		return res, err
	}
	err = tracing.Step(ctx, "encode test", func(ctx context.Context, span *tracing.Span) error {
		res.TestRows, err = enc.EncodeFile(ctx, paths.ClicksTest, paths.TestFeatures, encoder.ModeScore)
		span.SetAttr("rows", res.TestRows)
		return err
	})
	if err != nil {
		return res, err
	}

	r.metrics.ObserveStage("prepare", start)
	log.Info("feature files ready",
		"train_rows", res.TrainRows,
		"test_rows", res.TestRows,
		"displays", res.Displays,
		"seconds", time.Since(start).Round(10*time.Millisecond).Seconds(),
	)
	return res, r.reporter.Notify(ctx, results.Event{
		Type:      results.EventFeaturesReady,
		RunID:     r.runID,
		Partition: partition,
		Outputs:   []string{res.TrainFeatures, res.TestFeatures},
		Rows:      res.TrainRows + res.TestRows,
		At:        r.now().UTC(),
	})
}
