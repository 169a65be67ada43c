// Package storage provides the durable event sink backed by ClickHouse.
package storage

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"lattice-siem/internal/schema"
)

// Config holds ClickHouse connection settings.
type Config struct {
	Hosts           []string
	Database        string
	Username        string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TLSEnabled      bool
	DialTimeout     time.Duration
}

// Client wraps a ClickHouse connection for the events table.
type Client struct {
	conn     driver.Conn
	database string
}

// NewClient connects to ClickHouse and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	opts := &clickhouse.Options{
		Addr: cfg.Hosts,
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		DialTimeout:     cfg.DialTimeout,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}
	if cfg.TLSEnabled {
		opts.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open clickhouse connection: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return &Client{conn: conn, database: cfg.Database}, nil
}

// EnsureSchema creates the events table if it does not exist.
func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.events (
			event_id       String,
			received_at    DateTime64(3, 'UTC'),
			parsed_at      DateTime64(3, 'UTC'),
			source_type    LowCardinality(String),
			format         LowCardinality(String),
			vendor         String,
			product        String,
			event_type     String,
			event_category LowCardinality(String),
			severity       UInt8,
			src_ip         String,
			dst_ip         String,
			src_port       Int32,
			dst_port       Int32,
			host           String,
			user           String,
			asset_id       String,
			asset_criticality UInt8,
			asset_owner    String,
			asset_zone     String,
			message        String,
			fields         String,
			tags           Array(String)
		)
		ENGINE = MergeTree()
		PARTITION BY toYYYYMMDD(received_at)
		ORDER BY (source_type, received_at, event_id)
		TTL toDateTime(received_at) + INTERVAL 90 DAY
	`, c.database)

	if err := c.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

// InsertEvents writes a batch of normalized events.
func (c *Client) InsertEvents(ctx context.Context, events []*schema.NormalizedEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, fmt.Sprintf("INSERT INTO %s.events", c.database))
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, ev := range events {
		fieldsJSON, err := json.Marshal(ev.Fields)
		if err != nil {
			fieldsJSON = []byte("{}")
		}
		if err := batch.Append(
			ev.EventID,
			ev.ReceivedAt,
			ev.ParsedAt,
			ev.SourceType,
			ev.Format,
			ev.Vendor,
			ev.Product,
			ev.EventType,
			ev.EventCategory,
			uint8(ev.Severity),
			ev.SrcIP,
			ev.DstIP,
			int32(ev.SrcPort),
			int32(ev.DstPort),
			ev.Host,
			ev.User,
			ev.AssetID,
			uint8(ev.AssetCriticality),
			ev.AssetOwner,
			ev.AssetZone,
			ev.Message,
			string(fieldsJSON),
			ev.Tags,
		); err != nil {
			return fmt.Errorf("failed to append event %s: %w", ev.EventID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// Close releases the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
