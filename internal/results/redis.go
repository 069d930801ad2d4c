package results

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/redis"
)

// DefaultParams names the run made without a parameter suffix.
const DefaultParams = "default"

type leaderboardStore interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZTop(ctx context.Context, key string, n int64) ([]redis.ScoredMember, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Ping(ctx context.Context) error
	Close() error
}

// RedisLeaderboard keeps one sorted set per partition, scoring each
// parameter set by its MAP@K, plus the latest full Run per parameter set.
//
//	<prefix>:leaderboard:<partition>   ZSET params -> map_at_k
//	<prefix>:run:<partition>:<params>  STRING json(Run)
type RedisLeaderboard struct {
	store  leaderboardStore
	prefix string
}

func NewRedisLeaderboard(client *redis.Client, cfg config.RedisConfig) *RedisLeaderboard {
	return newRedisLeaderboard(client, cfg.KeyPrefix)
}

func newRedisLeaderboard(store leaderboardStore, prefix string) *RedisLeaderboard {
	if prefix == "" {
		prefix = "ffm"
	}
	return &RedisLeaderboard{store: store, prefix: prefix}
}

func (r *RedisLeaderboard) Name() string { return "redis" }

func (r *RedisLeaderboard) boardKey(partition string) string {
	return fmt.Sprintf("%s:leaderboard:%s", r.prefix, config.PartitionName(partition))
}

func (r *RedisLeaderboard) runKey(partition, params string) string {
	return fmt.Sprintf("%s:run:%s:%s", r.prefix, config.PartitionName(partition), paramsName(params))
}

func paramsName(params string) string {
	if params == "" {
		return DefaultParams
	}
	return params
}

func (r *RedisLeaderboard) Record(ctx context.Context, run Run) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}
	if err := r.store.ZAdd(ctx, r.boardKey(run.Partition), run.Report.MAP, paramsName(run.Params)); err != nil {
		return fmt.Errorf("updating leaderboard: %w", err)
	}
	if err := r.store.Set(ctx, r.runKey(run.Partition, run.Params), data, 0); err != nil {
		return fmt.Errorf("storing run: %w", err)
	}
	return nil
}

func (r *RedisLeaderboard) Notify(context.Context, Event) error { return nil }

// Entry is one leaderboard position.
type Entry struct {
	Params string
	MAP    float64
}

// Top returns the n best parameter sets for partition, best first.
func (r *RedisLeaderboard) Top(ctx context.Context, partition string, n int) ([]Entry, error) {
	members, err := r.store.ZTop(ctx, r.boardKey(partition), int64(n))
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(members))
	for i, m := range members {
		out[i] = Entry{Params: m.Member, MAP: m.Score}
	}
	return out, nil
}

// Run returns the stored run for partition and params, or nil when there is
// none.
func (r *RedisLeaderboard) Run(ctx context.Context, partition, params string) (*Run, error) {
	data, err := r.store.Get(ctx, r.runKey(partition, params))
	if redis.IsNilError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading run: %w", err)
	}
	var run Run
	if err := json.Unmarshal([]byte(data), &run); err != nil {
		return nil, fmt.Errorf("unmarshaling run: %w", err)
	}
	return &run, nil
}

func (r *RedisLeaderboard) Ping(ctx context.Context) error { return r.store.Ping(ctx) }

func (r *RedisLeaderboard) Close() error { return r.store.Close() }
