package results

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/kafka"
)

type publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
	Close() error
}

// KafkaNotifier publishes events, and runs as evaluation_completed events,
// keyed by partition so one partition's events stay ordered.
type KafkaNotifier struct {
	producer publisher
}

func NewKafkaNotifier(cfg config.KafkaConfig) *KafkaNotifier {
	return &KafkaNotifier{producer: kafka.NewProducer(cfg, cfg.Topics.PipelineEvents)}
}

func (k *KafkaNotifier) Name() string { return "kafka" }

func (k *KafkaNotifier) Notify(ctx context.Context, event Event) error {
	event.Partition = config.PartitionName(event.Partition)
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	return k.producer.Publish(ctx, kafka.Event{
		Key:     event.Partition,
		Value:   event,
		Headers: map[string]string{"type": string(event.Type), "run_id": event.RunID},
	})
}

func (k *KafkaNotifier) Record(ctx context.Context, run Run) error {
	report := run.Report
	return k.Notify(ctx, Event{
		Type:      EventEvaluationCompleted,
		RunID:     run.RunID,
		Partition: run.Partition,
		Params:    run.Params,
		Rows:      report.Rows,
		Report:    &report,
		At:        run.EvaluatedAt,
	})
}

func (k *KafkaNotifier) Close() error { return k.producer.Close() }
