// Package outbox moves audit events from the postgres outbox table to Kafka.
package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"speechact/internal/platform/kafka"
	"speechact/pkg/platform/audit/store/postgres"
	txcontext "speechact/pkg/platform/tx"
)

// Source is the slice of the outbox store the relay needs.
type Source interface {
	FetchUnpublished(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID) error
}

// Sink publishes outbox entries downstream.
type Sink interface {
	Publish(ctx context.Context, msgs ...kafka.Message) error
}

// Relay polls the outbox and publishes unpublished rows in creation order.
// A batch is marked published only after the sink acknowledges all of it, so
// delivery is at-least-once.
type Relay struct {
	source    Source
	sink      Sink
	inTx      func(ctx context.Context, fn func(ctx context.Context) error) error
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// Option configures the Relay.
type Option func(*Relay)

// WithInterval sets the poll interval. Default 1s.
func WithInterval(d time.Duration) Option {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithBatchSize caps rows per poll. Default 100.
func WithBatchSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithLogger sets the relay logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDB runs each poll inside a database transaction so row locks taken by
// FetchUnpublished are held until MarkPublished commits.
func WithDB(db *sql.DB) Option {
	return func(r *Relay) {
		r.inTx = func(ctx context.Context, fn func(ctx context.Context) error) error {
			return txcontext.Run(ctx, db, fn)
		}
	}
}

func New(source Source, sink Sink, opts ...Option) *Relay {
	r := &Relay{
		source:    source,
		sink:      sink,
		interval:  time.Second,
		batchSize: 100,
		logger:    slog.Default(),
		inTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunOnce publishes one batch and returns how many rows it relayed.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	relayed := 0
	err := r.inTx(ctx, func(ctx context.Context) error {
		entries, err := r.source.FetchUnpublished(ctx, r.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, len(entries))
		ids := make([]uuid.UUID, len(entries))
		for i, e := range entries {
			msgs[i] = kafka.Message{
				Key:   []byte(e.AggregateID),
				Value: e.Payload,
				Headers: map[string]string{
					"event_type": e.EventType,
					"event_id":   e.ID.String(),
				},
			}
			ids[i] = e.ID
		}

		if err := r.sink.Publish(ctx, msgs...); err != nil {
			return fmt.Errorf("publish outbox batch: %w", err)
		}
		if err := r.source.MarkPublished(ctx, ids); err != nil {
			return err
		}
		relayed = len(entries)
		return nil
	})
	return relayed, err
}

// Run polls until ctx is cancelled. Poll failures are logged and retried on
// the next tick.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
				continue
			}
			if n > 0 {
				r.logger.DebugContext(ctx, "outbox batch relayed", "count", n)
			}
		}
	}
}
