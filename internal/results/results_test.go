package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/internal/evaluator"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/ffm-click-pipeline/pkg/resilience"
)

var fastRetry = resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

func sampleRun(params string, m float64) Run {
	return Run{
		RunID:       "run-1",
		Partition:   "cv",
		Params:      params,
		Report:      evaluator.Report{MAP: m, K: 12, Displays: 3, Rows: 9},
		EvaluatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

type fakeSink struct {
	name     string
	failures int

	mu     sync.Mutex
	calls  int
	runs   []Run
	events []Event
	closed bool
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) attempt() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return fmt.Errorf("%s unavailable", f.name)
	}
	return nil
}

func (f *fakeSink) Record(_ context.Context, run Run) error {
	if err := f.attempt(); err != nil {
		return err
	}
	f.mu.Lock()
	f.runs = append(f.runs, run)
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) Notify(_ context.Context, event Event) error {
	if err := f.attempt(); err != nil {
		return err
	}
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func TestMultiDeliversToEverySink(t *testing.T) {
	a := &fakeSink{name: "a"}
	b := &fakeSink{name: "b", failures: 1}
	m := metrics.New()
	multi := NewMulti([]Sink{a, b}, fastRetry, m)

	require.NoError(t, multi.Record(context.Background(), sampleRun("p1", 0.61)))
	require.Len(t, a.runs, 1)
	require.Len(t, b.runs, 1)
	assert.Equal(t, 2, b.calls, "one retry after the first failure")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SinkFailures.WithLabelValues("b")))

	require.NoError(t, multi.Notify(context.Background(), Event{Type: EventFeaturesReady, Partition: "cv"}))
	assert.Len(t, a.events, 1)

	require.NoError(t, multi.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMultiReportsFailedSinkWithoutStoppingOthers(t *testing.T) {
	ok := &fakeSink{name: "ok"}
	down := &fakeSink{name: "down", failures: 100}
	m := metrics.New()
	multi := NewMulti([]Sink{down, ok}, fastRetry, m)

	err := multi.Record(context.Background(), sampleRun("", 0.5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSink))
	assert.Equal(t, apperrors.ExitSink, apperrors.ExitCode(err))
	assert.Contains(t, err.Error(), "down unavailable")
	assert.Len(t, ok.runs, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SinkFailures.WithLabelValues("down")))
}

func TestEmptyMultiIsNoop(t *testing.T) {
	multi := NewMulti(nil, fastRetry, metrics.New())
	assert.Equal(t, 0, multi.Len())
	assert.NoError(t, multi.Record(context.Background(), sampleRun("p1", 1)))
	assert.NoError(t, multi.Close())
}

type memoryStore struct {
	zsets   map[string]map[string]float64
	strings map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{zsets: map[string]map[string]float64{}, strings: map[string]string{}}
}

func (s *memoryStore) ZAdd(_ context.Context, key string, score float64, member string) error {
	if s.zsets[key] == nil {
		s.zsets[key] = map[string]float64{}
	}
	s.zsets[key][member] = score
	return nil
}

func (s *memoryStore) ZTop(_ context.Context, key string, n int64) ([]redis.ScoredMember, error) {
	var out []redis.ScoredMember
	for m, sc := range s.zsets[key] {
		out = append(out, redis.ScoredMember{Member: m, Score: sc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if int64(len(out)) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		s.strings[key] = string(v)
	default:
		s.strings[key] = fmt.Sprint(v)
	}
	return nil
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.strings[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close() error { return nil }

func TestRedisLeaderboard(t *testing.T) {
	store := newMemoryStore()
	lb := newRedisLeaderboard(store, "ffm")
	ctx := context.Background()

	require.NoError(t, lb.Record(ctx, sampleRun("p1", 0.61)))
	require.NoError(t, lb.Record(ctx, sampleRun("p2", 0.66)))
	require.NoError(t, lb.Record(ctx, sampleRun("", 0.64)))

	assert.Contains(t, store.zsets, "ffm:leaderboard:cv")
	top, err := lb.Top(ctx, "cv", 2)
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Params: "p2", MAP: 0.66}, {Params: DefaultParams, MAP: 0.64}}, top)

	run, err := lb.Run(ctx, "cv", "p1")
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 0.61, run.Report.MAP)
	assert.Equal(t, "run-1", run.RunID)

	missing, err := lb.Run(ctx, "", "p1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

type execCall struct {
	query string
	args  []any
}

type recordingDB struct {
	execs []execCall
}

func (d *recordingDB) ExecContext(_ context.Context, query string, args ...any) (sql.Result, error) {
	d.execs = append(d.execs, execCall{query: query, args: args})
	return nil, nil
}

func (d *recordingDB) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (d *recordingDB) PingContext(context.Context) error { return errors.New("db down") }

func TestPostgresStoreRecord(t *testing.T) {
	db := &recordingDB{}
	store := newPostgresStore(db, nil)
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Record(ctx, sampleRun("", 0.5)))

	require.Len(t, db.execs, 2)
	assert.Contains(t, db.execs[0].query, "CREATE TABLE IF NOT EXISTS evaluation_runs")
	assert.Contains(t, db.execs[1].query, "INSERT INTO evaluation_runs")
	assert.Equal(t, []any{"run-1", "cv", DefaultParams, 0.5, 12, 3, 9,
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}, db.execs[1].args)
	assert.NoError(t, store.Close())
}

type recordingPublisher struct {
	events []kafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, events ...kafka.Event) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestKafkaNotifier(t *testing.T) {
	pub := &recordingPublisher{}
	n := &KafkaNotifier{producer: pub}
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, Event{Type: EventSubmissionWritten, Outputs: []string{"new_submission.csv"}}))
	require.NoError(t, n.Record(ctx, sampleRun("p1", 0.61)))

	require.Len(t, pub.events, 2)
	assert.Equal(t, config.PartitionName(""), pub.events[0].Key)
	assert.Equal(t, string(EventSubmissionWritten), pub.events[0].Headers["type"])
	first := pub.events[0].Value.(Event)
	assert.Equal(t, "full", first.Partition)
	assert.False(t, first.At.IsZero())

	second := pub.events[1].Value.(Event)
	assert.Equal(t, EventEvaluationCompleted, second.Type)
	require.NotNil(t, second.Report)
	assert.Equal(t, 0.61, second.Report.MAP)

	data, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"map_at_k":0.61`)
	assert.Contains(t, string(data), `"type":"evaluation_completed"`)
}

func TestOpenWithNothingEnabled(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	multi, err := Open(context.Background(), cfg, metrics.New())
	require.NoError(t, err)
	assert.Equal(t, 0, multi.Len())
}

func TestRegisterChecks(t *testing.T) {
	multi := NewMulti([]Sink{
		newRedisLeaderboard(newMemoryStore(), "ffm"),
		newPostgresStore(&recordingDB{}, nil),
		&fakeSink{name: "kafka"},
	}, fastRetry, metrics.New())

	checker := health.NewChecker("evaluate", "run-1")
	multi.RegisterChecks(checker)
	assert.Equal(t, []string{"sink_postgres", "sink_redis"}, checker.Names())

	report := checker.Run(context.Background())
	assert.Equal(t, health.StatusDown, report.Status)
	assert.Equal(t, health.StatusUp, report.Components["sink_redis"].Status)
	assert.Equal(t, "db down", report.Components["sink_postgres"].Message)
}
