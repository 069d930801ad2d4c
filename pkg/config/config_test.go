package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "../raw", cfg.Data.RawDir)
	assert.Equal(t, 0.05, cfg.Encoder.CategoryThreshold)
	assert.Equal(t, 12, cfg.Evaluation.K)
	assert.Equal(t, 5, cfg.Evaluation.Precision)
	assert.False(t, cfg.Results.Enabled())
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
data:
  rawDir: /data/raw
encoder:
  categoryThreshold: 0.1
results:
  redis: true
  timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("FFM_EVAL_K", "6")
	t.Setenv("FFM_RESULTS", "postgres, kafka")
	t.Setenv("FFM_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/raw", cfg.Data.RawDir)
	assert.Equal(t, "../processed", cfg.Data.ProcessedDir)
	assert.Equal(t, 0.1, cfg.Encoder.CategoryThreshold)
	assert.Equal(t, 6, cfg.Evaluation.K)
	assert.Equal(t, 5*time.Second, cfg.Results.Timeout)
	assert.True(t, cfg.Results.Redis)
	assert.True(t, cfg.Results.Postgres)
	assert.True(t, cfg.Results.Kafka)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Encoder.CategoryThreshold = 1.5 }},
		{"zero hash space", func(c *Config) { c.Encoder.HashSpace = 0 }},
		{"zero k", func(c *Config) { c.Evaluation.K = 0 }},
		{"negative precision", func(c *Config) { c.Evaluation.Precision = -1 }},
		{"kafka without brokers", func(c *Config) { c.Results.Kafka = true; c.Kafka.Brokers = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, defaultConfig().Validate())
}

func TestPaths(t *testing.T) {
	cfg := defaultConfig()

	full := cfg.Paths("", "")
	assert.Equal(t, filepath.Join("../raw", "events.csv.gz"), full.Events)
	assert.Equal(t, filepath.Join("libffm", "output"), full.ScorerOutput)

	cv := cfg.Paths("cv", "p1")
	assert.Equal(t, filepath.Join("../raw", "for_cv", "events.csv.gz"), cv.Events)
	assert.Equal(t, filepath.Join("../raw", "for_cv", "clicks_test.csv.gz"), cv.ClicksTest)
	assert.Equal(t, filepath.Join("../raw", "promoted_content.csv.gz"), cv.PromotedContent)
	assert.Equal(t, filepath.Join("../processed", "leak.csv.gz"), cv.Leak)
	assert.Equal(t, filepath.Join("../processed", "for_cv", "ad_freqs.csv.gz"), cv.AdFreqs)
	assert.Equal(t, filepath.Join("libffm", "for_cv", "data_to_train.txt"), cv.TrainFeatures)
	assert.Equal(t, filepath.Join("libffm", "for_cv", "output_p1"), cv.ScorerOutput)

	assert.Equal(t, "full", PartitionName(""))
	assert.Equal(t, "cv", PartitionName("cv"))
}

func TestPostgresDSN(t *testing.T) {
	dsn := defaultConfig().Postgres.DSN()
	assert.Contains(t, dsn, "host=localhost")
	assert.Contains(t, dsn, "sslmode=disable")
}
