package audit

import (
	"context"
	"time"

	"speechact/pkg/requestcontext"
)

// EventCategory classifies audit events by their primary purpose so stores
// and sinks can apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers events that change or decline a child's record.
	// These are kept for the care facility's regulatory retention period.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers caller authentication failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine pipeline activity (previews, failed
	// validations). Safe to sample.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from the intent pipeline to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	Subject    string
	ChildID    int64
	Action     string
	Domain     string
	IntentType string
	Decision   string
	Reason     string
	Confidence float64
	// PendingID is set for events of the preview/confirm/reject flow.
	PendingID string
	RequestID string
	// ActorID is the authenticated caller, when auth is enabled.
	ActorID  string
	Facility string
	// IP and UserAgent identify the calling client for security forensics.
	IP        string
	UserAgent string
}

// WithRequestMetadata fills the caller and client fields left empty by the
// emitter from the request context.
func (e Event) WithRequestMetadata(ctx context.Context) Event {
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&e.RequestID, requestcontext.RequestID(ctx))
	fill(&e.ActorID, requestcontext.CallerID(ctx))
	fill(&e.Facility, requestcontext.Facility(ctx))
	fill(&e.IP, requestcontext.ClientIP(ctx))
	fill(&e.UserAgent, requestcontext.UserAgent(ctx))
	return e
}

type AuditEvent string

const (
	EventIntentRecorded  AuditEvent = "intent_recorded"
	EventIntentFailed    AuditEvent = "intent_failed"
	EventIntentPreviewed AuditEvent = "intent_previewed"
	EventIntentConfirmed AuditEvent = "intent_confirmed"
	EventIntentRejected  AuditEvent = "intent_rejected"
	EventAuthFailed      AuditEvent = "auth_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventIntentRecorded:  CategoryCompliance,
	EventIntentConfirmed: CategoryCompliance,
	EventIntentRejected:  CategoryCompliance,

	EventAuthFailed: CategorySecurity,

	EventIntentPreviewed: CategoryOperations,
	EventIntentFailed:    CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Decision values recorded on events.
const (
	DecisionAccepted = "accepted"
	DecisionRejected = "rejected"
	DecisionFailed   = "failed"
	DecisionPending  = "pending"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
