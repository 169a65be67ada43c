// Command lattice-siem runs the event correlation pipeline: it consumes
// raw payloads (Kafka or stdin NDJSON), normalizes and scores them, and
// raises correlation incidents.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"lattice-siem/internal/config"
	"lattice-siem/internal/correlate"
	"lattice-siem/internal/kafka"
	"lattice-siem/internal/pipeline"
	"lattice-siem/internal/schema"
	"lattice-siem/internal/storage"
	s3archive "lattice-siem/internal/storage/s3"
	"lattice-siem/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging)

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func setupLogging(cfg config.LoggingConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dedup correlate.Deduper
	switch cfg.Dedup.Backend {
	case "redis":
		rd, err := correlate.NewRedisDeduper(cfg.Dedup.Redis, cfg.Dedup.TTL)
		if err != nil {
			return fmt.Errorf("redis dedup: %w", err)
		}
		defer rd.Close()
		dedup = rd
	default:
		dedup = correlate.NewTTLCache(cfg.Dedup.TTL)
	}

	window := store.NewEventWindow(cfg.Stores.WindowCapacity)
	alerts := store.NewAlertStore(cfg.Stores.AlertCapacity)
	incidents := store.NewIncidentStore(cfg.Stores.IncidentCapacity)
	engine := correlate.NewEngine(correlate.BuildRules(cfg.Rules), dedup)

	pipe := pipeline.New(window, alerts, incidents, engine)

	if cfg.Archive.Enabled {
		archiver, err := s3archive.NewArchiver(ctx, s3archive.Config{
			Bucket:          cfg.Archive.S3.Bucket,
			Prefix:          cfg.Archive.S3.Prefix,
			Region:          cfg.Archive.S3.Region,
			Endpoint:        cfg.Archive.S3.Endpoint,
			AccessKeyID:     cfg.Archive.S3.AccessKeyID,
			SecretAccessKey: cfg.Archive.S3.SecretAccessKey,
			UsePathStyle:    cfg.Archive.S3.UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("s3 archiver: %w", err)
		}
		pipe.WithArchiver(archiver)
		slog.Info("raw archive enabled", "bucket", cfg.Archive.S3.Bucket)
	}

	if cfg.Storage.Enabled {
		client, err := storage.NewClient(ctx, storage.Config{
			Hosts:           cfg.Storage.ClickHouse.Hosts,
			Database:        cfg.Storage.ClickHouse.Database,
			Username:        cfg.Storage.ClickHouse.Username,
			Password:        cfg.Storage.ClickHouse.Password,
			MaxOpenConns:    cfg.Storage.ClickHouse.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.ClickHouse.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.ClickHouse.ConnMaxLifetime,
			TLSEnabled:      cfg.Storage.ClickHouse.TLSEnabled,
			DialTimeout:     cfg.Storage.ClickHouse.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("clickhouse: %w", err)
		}
		defer client.Close()

		if err := client.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}

		writer := storage.NewBatchWriter(client, storage.BatchWriterConfig{
			BatchSize:     cfg.Storage.BatchWriter.BatchSize,
			FlushInterval: cfg.Storage.BatchWriter.FlushInterval,
			MaxRetries:    cfg.Storage.BatchWriter.MaxRetries,
			RetryDelay:    cfg.Storage.BatchWriter.RetryDelay,
		})
		defer writer.Close()
		pipe.WithSink(writer)
		slog.Info("event storage enabled", "hosts", cfg.Storage.ClickHouse.Hosts)
	}

	handle := func(ctx context.Context, payload schema.RawPayload) {
		res := pipe.Ingest(ctx, payload)
		slog.Debug("payload ingested",
			"raw_id", res.RawID,
			"source_type", res.Event.SourceType,
			"risk", res.Risk,
			"priority", res.Priority,
			"incidents", len(res.Incidents),
		)
	}

	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewConsumer(kafka.Config{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          cfg.Kafka.Topic,
			ConsumerGroup:  cfg.Kafka.ConsumerGroup,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			MaxWait:        cfg.Kafka.MaxWait,
			CommitInterval: cfg.Kafka.CommitInterval,
			DialTimeout:    cfg.Kafka.DialTimeout,
		}, handle)
		if err != nil {
			return fmt.Errorf("kafka consumer: %w", err)
		}
		defer consumer.Close()

		slog.Info("lattice-siem started", "ingest", "kafka", "topic", cfg.Kafka.Topic)
		return consumer.Run(ctx)
	}

	slog.Info("lattice-siem started", "ingest", "stdin")
	return runStdin(ctx, handle)
}

// runStdin reads newline-delimited JSON payloads from stdin, one per line,
// until EOF or shutdown.
func runStdin(ctx context.Context, handle func(context.Context, schema.RawPayload)) error {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var payload schema.RawPayload
		if err := json.Unmarshal(line, &payload); err != nil {
			slog.Warn("skipping undecodable input line", "error", err)
			continue
		}
		handle(ctx, payload)
	}
	return scanner.Err()
}
