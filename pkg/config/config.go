// Package config loads and validates pipeline configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// stage (Data, Encoder, Evaluation) and for the optional result sinks
// (Redis, Postgres, Kafka), plus logging and metrics settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level pipeline configuration.
type Config struct {
	Data       DataConfig       `yaml:"data"`
	Encoder    EncoderConfig    `yaml:"encoder"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	Results    ResultsConfig    `yaml:"results"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DataConfig locates the raw, precomputed and generated files. File names are
// relative to their directory; partitioned files live under "for_<partition>/".
type DataConfig struct {
	RawDir         string    `yaml:"rawDir"`
	ProcessedDir   string    `yaml:"processedDir"`
	OutputDir      string    `yaml:"outputDir"`
	SubmissionFile string    `yaml:"submissionFile"`
	Files          DataFiles `yaml:"files"`
}

// DataFiles maps logical tables to their file names.
type DataFiles struct {
	PromotedContent     string `yaml:"promotedContent"`
	Events              string `yaml:"events"`
	DocumentsCategories string `yaml:"documentsCategories"`
	DocumentsMeta       string `yaml:"documentsMeta"`
	DocumentsTopics     string `yaml:"documentsTopics"`
	DocumentsEntities   string `yaml:"documentsEntities"`
	Leak                string `yaml:"leak"`
	AdFreqs             string `yaml:"adFreqs"`
	NumAdsPerDisplay    string `yaml:"numAdsPerDisplay"`
	ClicksTrain         string `yaml:"clicksTrain"`
	ClicksTest          string `yaml:"clicksTest"`
	TrainFeatures       string `yaml:"trainFeatures"`
	TestFeatures        string `yaml:"testFeatures"`
	ScorerOutput        string `yaml:"scorerOutput"`
}

// EncoderConfig controls feature encoding.
type EncoderConfig struct {
	CategoryThreshold float64 `yaml:"categoryThreshold"`
	HashSpace         uint64  `yaml:"hashSpace"`
	ProgressEvery     int     `yaml:"progressEvery"`
}

// EvaluationConfig controls the MAP@K computation.
type EvaluationConfig struct {
	K         int `yaml:"k"`
	Precision int `yaml:"precision"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	PipelineEvents string `yaml:"pipelineEvents"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"poolSize"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// ResultsConfig selects which result sinks receive evaluation reports and
// stage-completion events.
type ResultsConfig struct {
	Redis        bool          `yaml:"redis"`
	Postgres     bool          `yaml:"postgres"`
	Kafka        bool          `yaml:"kafka"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	InitialDelay time.Duration `yaml:"initialDelay"`
}

// Enabled reports whether any sink is configured.
func (r ResultsConfig) Enabled() bool {
	return r.Redis || r.Postgres || r.Kafka
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls Prometheus exposition. Batch runs push to a
// Pushgateway when PushgatewayURL is set; Port > 0 additionally serves
// /metrics for the lifetime of the run.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgatewayUrl"`
	Job            string `yaml:"job"`
	Port           int    `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the stages cannot work with.
func (c *Config) Validate() error {
	if c.Encoder.CategoryThreshold < 0 || c.Encoder.CategoryThreshold >= 1 {
		return fmt.Errorf("encoder.categoryThreshold must be in [0,1), got %v", c.Encoder.CategoryThreshold)
	}
	if c.Encoder.HashSpace == 0 {
		return fmt.Errorf("encoder.hashSpace must be positive")
	}
	if c.Evaluation.K <= 0 {
		return fmt.Errorf("evaluation.k must be positive, got %d", c.Evaluation.K)
	}
	if c.Evaluation.Precision < 0 {
		return fmt.Errorf("evaluation.precision must not be negative, got %d", c.Evaluation.Precision)
	}
	if c.Results.Kafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("results.kafka enabled without kafka.brokers")
	}
	return nil
}

// defaultConfig returns a Config laid out like the competition working tree:
// raw data in ../raw, precomputed features in ../processed and FFM files in
// libffm.
func defaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			RawDir:         "../raw",
			ProcessedDir:   "../processed",
			OutputDir:      "libffm",
			SubmissionFile: "new_submission.csv",
			Files: DataFiles{
				PromotedContent:     "promoted_content.csv.gz",
				Events:              "events.csv.gz",
				DocumentsCategories: "documents_categories.csv.gz",
				DocumentsMeta:       "documents_meta.csv.gz",
				DocumentsTopics:     "documents_topics.csv.gz",
				DocumentsEntities:   "documents_entities_new.csv.gz",
				Leak:                "leak.csv.gz",
				AdFreqs:             "ad_freqs.csv.gz",
				NumAdsPerDisplay:    "num_ads_per_display.csv.gz",
				ClicksTrain:         "clicks_train.csv.gz",
				ClicksTest:          "clicks_test.csv.gz",
				TrainFeatures:       "data_to_train.txt",
				TestFeatures:        "data_to_test.txt",
				ScorerOutput:        "output",
			},
		},
		Encoder: EncoderConfig{
			CategoryThreshold: 0.05,
			HashSpace:         1 << 20,
			ProgressEvery:     1000000,
		},
		Evaluation: EvaluationConfig{
			K:         12,
			Precision: 5,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "ffmpipeline",
			User:            "ffmpipeline",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				PipelineEvents: "pipeline-events",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  4,
			KeyPrefix: "ffm",
		},
		Results: ResultsConfig{
			Timeout:      30 * time.Second,
			MaxAttempts:  3,
			InitialDelay: 200 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Job: "ffm-pipeline",
		},
	}
}

// applyEnvOverrides reads FFM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("FFM_RAW_DIR"); v != "" {
		cfg.Data.RawDir = v
	}
	if v := os.Getenv("FFM_PROCESSED_DIR"); v != "" {
		cfg.Data.ProcessedDir = v
	}
	if v := os.Getenv("FFM_OUTPUT_DIR"); v != "" {
		cfg.Data.OutputDir = v
	}
	if v := os.Getenv("FFM_SUBMISSION_FILE"); v != "" {
		cfg.Data.SubmissionFile = v
	}
	if v := os.Getenv("FFM_CATEGORY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Encoder.CategoryThreshold = f
		}
	}
	if v := os.Getenv("FFM_EVAL_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil {
			cfg.Evaluation.K = k
		}
	}
	if v := os.Getenv("FFM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("FFM_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("FFM_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("FFM_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("FFM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("FFM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("FFM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("FFM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("FFM_RESULTS"); v != "" {
		for _, sink := range strings.Split(v, ",") {
			switch strings.TrimSpace(sink) {
			case "redis":
				cfg.Results.Redis = true
			case "postgres":
				cfg.Results.Postgres = true
			case "kafka":
				cfg.Results.Kafka = true
			}
		}
	}
	if v := os.Getenv("FFM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FFM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("FFM_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}
