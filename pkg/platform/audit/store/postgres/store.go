package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	audit "speechact/pkg/platform/audit"
	txcontext "speechact/pkg/platform/tx"
)

// Schema creates the outbox table. Applied by EnsureSchema at startup and by
// the integration tests.
const Schema = `
CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	published_at   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS outbox_unpublished_idx ON outbox (created_at) WHERE published_at IS NULL;
`

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the outbox relay.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at and published_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a new PostgreSQL audit store that writes to the outbox.
func New(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSchema applies Schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply outbox schema: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Payload is the JSON structure published to Kafka.
type Payload struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Timestamp  string  `json:"timestamp"`
	Subject    string  `json:"subject,omitempty"`
	ChildID    int64   `json:"child_id,omitempty"`
	Action     string  `json:"action"`
	Domain     string  `json:"domain,omitempty"`
	IntentType string  `json:"intent_type,omitempty"`
	Decision   string  `json:"decision,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	PendingID  string  `json:"pending_id,omitempty"`
	RequestID  string  `json:"request_id,omitempty"`
	ActorID    string  `json:"actor_id,omitempty"`
	Facility   string  `json:"facility,omitempty"`
	IP         string  `json:"ip,omitempty"`
	UserAgent  string  `json:"user_agent,omitempty"`
}

func toPayload(eventID uuid.UUID, event audit.Event) Payload {
	return Payload{
		ID:         eventID.String(),
		Category:   string(audit.AuditEvent(event.Action).Category()),
		Timestamp:  event.Timestamp.Format(time.RFC3339Nano),
		Subject:    event.Subject,
		ChildID:    event.ChildID,
		Action:     event.Action,
		Domain:     event.Domain,
		IntentType: event.IntentType,
		Decision:   event.Decision,
		Reason:     event.Reason,
		Confidence: event.Confidence,
		PendingID:  event.PendingID,
		RequestID:  event.RequestID,
		ActorID:    event.ActorID,
		Facility:   event.Facility,
		IP:         event.IP,
		UserAgent:  event.UserAgent,
	}
}

func (p Payload) toEvent() (audit.Event, error) {
	ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
	if err != nil {
		return audit.Event{}, fmt.Errorf("parse payload timestamp: %w", err)
	}
	return audit.Event{
		Category:   audit.EventCategory(p.Category),
		Timestamp:  ts,
		Subject:    p.Subject,
		ChildID:    p.ChildID,
		Action:     p.Action,
		Domain:     p.Domain,
		IntentType: p.IntentType,
		Decision:   p.Decision,
		Reason:     p.Reason,
		Confidence: p.Confidence,
		PendingID:  p.PendingID,
		RequestID:  p.RequestID,
		ActorID:    p.ActorID,
		Facility:   p.Facility,
		IP:         p.IP,
		UserAgent:  p.UserAgent,
	}, nil
}

// Append writes an audit event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := uuid.New()

	payloadBytes, err := json.Marshal(toPayload(eventID, event))
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	// Events about a child are keyed by child so the relay keeps them ordered
	// within one Kafka partition.
	aggregateType := "audit"
	aggregateID := eventID.String()
	if event.ChildID > 0 {
		aggregateType = "child"
		aggregateID = fmt.Sprintf("%d", event.ChildID)
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		payloadBytes,
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListRecent returns the N most recent events, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM outbox
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox payload: %w", err)
		}
		var p Payload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode outbox payload: %w", err)
		}
		event, err := p.toEvent()
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}

// Entry is one unpublished outbox row.
type Entry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

// FetchUnpublished locks up to limit unpublished rows, oldest first. Call it
// inside tx.Run so the lock is held until MarkPublished commits; concurrent
// relays skip rows another relay has locked.
func (s *Store) FetchUnpublished(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished outbox: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps published_at on the given rows.
func (s *Store) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}
	query := `UPDATE outbox SET published_at = $1 WHERE id = ANY($2::uuid[])`
	if _, err := s.execer(ctx).ExecContext(ctx, query, s.now(), pq.Array(raw)); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}
