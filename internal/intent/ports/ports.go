// Package ports declares the collaborators the intent service depends on.
// Adapters under internal/backend and the stores implement them.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"speechact/internal/intent/models"
	"speechact/pkg/domain"
	audit "speechact/pkg/platform/audit"
)

// Child is a resolved child identity.
type Child struct {
	ID        domain.ChildID
	Firstname string
}

// ChildResolver maps a first name to a backend child id. A missing child is
// reported as an error wrapping sentinel.ErrNotFound.
type ChildResolver interface {
	Resolve(ctx context.Context, firstname string) (*Child, error)
}

// EventResponse is the backend's answer to RecordEvent.
type EventResponse struct {
	Success   bool
	Message   string
	EventID   string
	Timestamp string
}

// Backend records events for a child in the system of record.
type Backend interface {
	RecordEvent(ctx context.Context, childID domain.ChildID, action string, properties map[string]string) (*EventResponse, error)
	Health(ctx context.Context) error
	BaseURL() string
}

// PendingStore holds contracts awaiting confirmation. Find returns an error
// wrapping sentinel.ErrNotFound for unknown or expired ids.
type PendingStore interface {
	Save(ctx context.Context, intent *models.PendingIntent) error
	Find(ctx context.Context, id domain.PendingID) (*models.PendingIntent, error)
	Delete(ctx context.Context, id domain.PendingID) error
	// Take removes and returns a live intent atomically. Of concurrent
	// callers for one id exactly one gets the intent; the rest get
	// sentinel.ErrNotFound.
	Take(ctx context.Context, id domain.PendingID) (*models.PendingIntent, error)
	List(ctx context.Context) ([]*models.PendingIntent, error)
}

// AuditPublisher records pipeline outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
