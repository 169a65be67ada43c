package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lattice-siem/internal/schema"
)

// BatchWriterConfig holds batching and retry settings.
type BatchWriterConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	MaxRetries    int
	RetryDelay    time.Duration
}

// DefaultBatchWriterConfig returns sensible defaults.
func DefaultBatchWriterConfig() BatchWriterConfig {
	return BatchWriterConfig{
		BatchSize:     500,
		FlushInterval: 5 * time.Second,
		MaxRetries:    3,
		RetryDelay:    time.Second,
	}
}

// BatchWriter buffers normalized events and flushes them to ClickHouse in
// batches, either when the buffer fills or on a timer. It satisfies the
// pipeline's event sink interface; Write never blocks on the database.
type BatchWriter struct {
	client *Client
	cfg    BatchWriterConfig

	mu     sync.Mutex
	buffer []*schema.NormalizedEvent

	done chan struct{}
	wg   sync.WaitGroup
}

// NewBatchWriter creates a BatchWriter and starts its flush loop.
func NewBatchWriter(client *Client, cfg BatchWriterConfig) *BatchWriter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	w := &BatchWriter{
		client: client,
		cfg:    cfg,
		buffer: make([]*schema.NormalizedEvent, 0, cfg.BatchSize),
		done:   make(chan struct{}),
	}

	w.wg.Add(1)
	go w.flushLoop()
	return w
}

// Write buffers one event, flushing asynchronously if the batch is full.
func (w *BatchWriter) Write(_ context.Context, event *schema.NormalizedEvent) error {
	w.mu.Lock()
	w.buffer = append(w.buffer, event)
	full := len(w.buffer) >= w.cfg.BatchSize
	w.mu.Unlock()

	if full {
		w.flush()
	}
	return nil
}

func (w *BatchWriter) flushLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush()
		case <-w.done:
			w.flush()
			return
		}
	}
}

// flush drains the buffer and inserts the drained batch with retries.
func (w *BatchWriter) flush() {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return
	}
	batch := w.buffer
	w.buffer = make([]*schema.NormalizedEvent, 0, w.cfg.BatchSize)
	w.mu.Unlock()

	if err := w.insertWithRetry(batch); err != nil {
		slog.Error("dropping event batch after retries", "count", len(batch), "error", err)
	}
}

func (w *BatchWriter) insertWithRetry(batch []*schema.NormalizedEvent) error {
	var lastErr error
	for attempt := 0; attempt <= w.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(w.cfg.RetryDelay)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := w.client.InsertEvents(ctx, batch)
		cancel()
		if err == nil {
			return nil
		}

		lastErr = err
		slog.Warn("batch insert failed", "attempt", attempt+1, "count", len(batch), "error", err)
	}
	return fmt.Errorf("batch insert exhausted retries: %w", lastErr)
}

// Close flushes outstanding events and stops the flush loop.
func (w *BatchWriter) Close() error {
	close(w.done)
	w.wg.Wait()
	return nil
}
