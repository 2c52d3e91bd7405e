// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Indexer, Corpus, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Logging  LoggingConfig  `yaml:"logging"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the document
// catalog.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
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
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	DocumentIngest  string `yaml:"documentIngest"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and result-caching parameters.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	OpTimeout time.Duration `yaml:"opTimeout"`
}

// IndexerConfig bounds what the ingestion boundary accepts.
type IndexerConfig struct {
	MaxDocumentBytes int64 `yaml:"maxDocumentBytes"`
}

// CorpusConfig names the files a corpus is built from: a list of document
// paths (one per line) and a noise-word file.
type CorpusConfig struct {
	DocsFile        string `yaml:"docsFile"`
	NoiseWordsFile  string `yaml:"noiseWordsFile"`
	ReadConcurrency int    `yaml:"readConcurrency"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
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
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Indexer.MaxDocumentBytes <= 0 {
		problems = append(problems, "indexer.maxDocumentBytes must be positive")
	}
	if c.Corpus.ReadConcurrency <= 0 {
		problems = append(problems, "corpus.readConcurrency must be positive")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		problems = append(problems, "kafka.brokers required when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		problems = append(problems, "redis.addr required when redis is enabled")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Postgres: PostgresConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            5432,
			Database:        "keywordsearch",
			User:            "keywordsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "keywordsearch-indexer",
			Topics: KafkaTopics{
				DocumentIngest:  "document-ingest",
				AnalyticsEvents: "analytics-events",
			},
		},
		Redis: RedisConfig{
			Enabled:   false,
			Addr:      "localhost:6379",
			Password:  "",
			DB:        0,
			PoolSize:  10,
			CacheTTL:  60 * time.Second,
			OpTimeout: 200 * time.Millisecond,
		},
		Indexer: IndexerConfig{
			MaxDocumentBytes: 10 << 20,
		},
		Corpus: CorpusConfig{
			ReadConcurrency: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			SampleRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads KWS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KWS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("KWS_POSTGRES_ENABLED"); v != "" {
		cfg.Postgres.Enabled = parseBool(v, cfg.Postgres.Enabled)
	}
	if v := os.Getenv("KWS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("KWS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("KWS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("KWS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("KWS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("KWS_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("KWS_KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = parseBool(v, cfg.Kafka.Enabled)
	}
	if v := os.Getenv("KWS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KWS_REDIS_ENABLED"); v != "" {
		cfg.Redis.Enabled = parseBool(v, cfg.Redis.Enabled)
	}
	if v := os.Getenv("KWS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("KWS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("KWS_CORPUS_DOCS_FILE"); v != "" {
		cfg.Corpus.DocsFile = v
	}
	if v := os.Getenv("KWS_CORPUS_NOISE_WORDS_FILE"); v != "" {
		cfg.Corpus.NoiseWordsFile = v
	}
	if v := os.Getenv("KWS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KWS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("KWS_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
