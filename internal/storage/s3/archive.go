// Package s3 archives raw payloads to S3-compatible object storage.
package s3

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"lattice-siem/internal/schema"
)

// Config holds the archiver settings.
type Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Archiver writes each raw payload to object storage as gzipped JSON,
// keyed by receipt date, before the pipeline mutates anything.
type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// archiveRecord is the stored envelope for one raw payload.
type archiveRecord struct {
	RawID      string            `json:"raw_id"`
	ReceivedAt time.Time         `json:"received_at"`
	Payload    schema.RawPayload `json:"payload"`
}

// NewArchiver builds an Archiver from configuration. Explicit static
// credentials take precedence over the ambient credential chain.
func NewArchiver(ctx context.Context, cfg Config) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 archiver: bucket required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Archive stores one raw payload under <prefix>/YYYY/MM/DD/<rawID>.json.gz.
func (a *Archiver) Archive(ctx context.Context, rawID string, receivedAt time.Time, payload schema.RawPayload) error {
	body, err := encodeRecord(archiveRecord{
		RawID:      rawID,
		ReceivedAt: receivedAt,
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode archive record: %w", err)
	}

	key := fmt.Sprintf("%s/%s/%s.json.gz", a.prefix, receivedAt.UTC().Format("2006/01/02"), rawID)
	contentType := "application/gzip"

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: &contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put archive object %s: %w", key, err)
	}
	return nil
}

func encodeRecord(rec archiveRecord) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(rec); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
