// Package config handles configuration loading for lattice-siem.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"lattice-siem/internal/correlate"
)

// Config holds the complete application configuration.
type Config struct {
	Logging LoggingConfig         `yaml:"logging"`
	Stores  StoresConfig          `yaml:"stores"`
	Dedup   DedupConfig           `yaml:"dedup"`
	Rules   correlate.RulesConfig `yaml:"rules"`
	Kafka   KafkaConfig           `yaml:"kafka"`
	Storage StorageConfig         `yaml:"storage"`
	Archive ArchiveConfig         `yaml:"archive"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StoresConfig holds the in-memory store capacities.
type StoresConfig struct {
	WindowCapacity   int `yaml:"window_capacity"`
	AlertCapacity    int `yaml:"alert_capacity"`
	IncidentCapacity int `yaml:"incident_capacity"`
}

// DedupConfig selects and tunes the correlation dedup cache.
type DedupConfig struct {
	// Backend is "memory" or "redis".
	Backend string                `yaml:"backend"`
	TTL     time.Duration         `yaml:"ttl"`
	Redis   correlate.RedisConfig `yaml:"redis"`
}

// KafkaConfig holds the streamed-ingestion consumer settings.
type KafkaConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Brokers        []string      `yaml:"brokers"`
	Topic          string        `yaml:"topic"`
	ConsumerGroup  string        `yaml:"consumer_group"`
	MinBytes       int           `yaml:"min_bytes"`
	MaxBytes       int           `yaml:"max_bytes"`
	MaxWait        time.Duration `yaml:"max_wait"`
	CommitInterval time.Duration `yaml:"commit_interval"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
}

// StorageConfig holds the persistent event sink settings.
type StorageConfig struct {
	Enabled     bool              `yaml:"enabled"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	BatchWriter BatchWriterConfig `yaml:"batch_writer"`
}

// ClickHouseConfig holds ClickHouse connection settings.
type ClickHouseConfig struct {
	Hosts           []string      `yaml:"hosts"`
	Database        string        `yaml:"database"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	TLSEnabled      bool          `yaml:"tls_enabled"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// BatchWriterConfig holds batch writer settings.
type BatchWriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// ArchiveConfig holds the raw-payload archive settings.
type ArchiveConfig struct {
	Enabled bool     `yaml:"enabled"`
	S3      S3Config `yaml:"s3"`
}

// S3Config holds the S3 archiver settings.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Stores: StoresConfig{
			WindowCapacity:   5000,
			AlertCapacity:    200,
			IncidentCapacity: 200,
		},
		Dedup: DedupConfig{
			Backend: "memory",
			TTL:     300 * time.Second,
			Redis:   correlate.DefaultRedisConfig(),
		},
		Rules: correlate.DefaultRulesConfig(),
		Kafka: KafkaConfig{
			Enabled:        false,
			Brokers:        []string{"localhost:9092"},
			Topic:          "raw-events",
			ConsumerGroup:  "lattice-siem",
			MinBytes:       1,
			MaxBytes:       10 * 1024 * 1024,
			MaxWait:        500 * time.Millisecond,
			CommitInterval: time.Second,
			DialTimeout:    10 * time.Second,
		},
		Storage: StorageConfig{
			Enabled: false,
			ClickHouse: ClickHouseConfig{
				Hosts:           []string{"localhost:9000"},
				Database:        "lattice",
				Username:        "default",
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: time.Hour,
				DialTimeout:     10 * time.Second,
			},
			BatchWriter: BatchWriterConfig{
				BatchSize:     500,
				FlushInterval: 5 * time.Second,
				MaxRetries:    3,
				RetryDelay:    time.Second,
			},
		},
		Archive: ArchiveConfig{
			Enabled: false,
			S3: S3Config{
				Bucket: "lattice-raw-events",
				Prefix: "raw",
				Region: "us-east-1",
			},
		},
	}
}

// Load reads configuration from the given YAML file, falling back to
// defaults for anything unset. An empty path returns the defaults plus
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides applies the small set of environment overrides used in
// container deployments.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LATTICE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LATTICE_REDIS_ADDR"); v != "" {
		cfg.Dedup.Redis.Addr = v
	}
	if v := os.Getenv("LATTICE_REDIS_PASSWORD"); v != "" {
		cfg.Dedup.Redis.Password = v
	}
	if v := os.Getenv("LATTICE_CLICKHOUSE_PASSWORD"); v != "" {
		cfg.Storage.ClickHouse.Password = v
	}
	if v := os.Getenv("LATTICE_S3_ACCESS_KEY_ID"); v != "" {
		cfg.Archive.S3.AccessKeyID = v
	}
	if v := os.Getenv("LATTICE_S3_SECRET_ACCESS_KEY"); v != "" {
		cfg.Archive.S3.SecretAccessKey = v
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Stores.WindowCapacity <= 0 {
		return fmt.Errorf("stores.window_capacity must be positive")
	}
	if c.Stores.AlertCapacity <= 0 {
		return fmt.Errorf("stores.alert_capacity must be positive")
	}
	if c.Stores.IncidentCapacity <= 0 {
		return fmt.Errorf("stores.incident_capacity must be positive")
	}
	if c.Dedup.TTL <= 0 {
		return fmt.Errorf("dedup.ttl must be positive")
	}
	switch c.Dedup.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("dedup.backend must be memory or redis, got %q", c.Dedup.Backend)
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers required when kafka is enabled")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic required when kafka is enabled")
		}
	}
	if c.Storage.Enabled && len(c.Storage.ClickHouse.Hosts) == 0 {
		return fmt.Errorf("storage.clickhouse.hosts required when storage is enabled")
	}
	if c.Archive.Enabled && c.Archive.S3.Bucket == "" {
		return fmt.Errorf("archive.s3.bucket required when archive is enabled")
	}
	return nil
}
