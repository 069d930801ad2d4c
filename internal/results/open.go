package results

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/resilience"
)

// Open connects every sink enabled in cfg.Results. With none enabled it
// returns an empty Multi that delivers nothing.
func Open(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*Multi, error) {
	var sinks []Sink
	fail := func(err error) (*Multi, error) {
		for _, s := range sinks {
			s.Close()
		}
		return nil, apperrors.New(apperrors.ErrSink, stage, err.Error())
	}

	if cfg.Results.Redis {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, NewRedisLeaderboard(client, cfg.Redis))
	}
	if cfg.Results.Postgres {
		client, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return fail(err)
		}
		store, err := NewPostgresStore(ctx, client)
		if err != nil {
			client.Close()
			return fail(err)
		}
		sinks = append(sinks, store)
	}
	if cfg.Results.Kafka {
		sinks = append(sinks, NewKafkaNotifier(cfg.Kafka))
	}
	return NewMulti(sinks, resilience.FromResults(cfg.Results), m), nil
}
