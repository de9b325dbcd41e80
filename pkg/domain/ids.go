package domain

import (
	"fmt"

	"github.com/google/uuid"

	dErrors "speechact/pkg/domain-errors"
)

// ChildID is the backend identifier of a child, resolved from a first name.
// Invariant: never negative.
type ChildID int64

// NewChildID validates a raw identifier returned by the identity collaborator.
func NewChildID(raw int64) (ChildID, error) {
	if raw < 0 {
		return 0, dErrors.New(dErrors.CodeChildNotFound, fmt.Sprintf("invalid child id %d", raw)).
			WithField(dErrors.FieldSubjects)
	}
	return ChildID(raw), nil
}

// Int64 returns the raw identifier.
func (c ChildID) Int64() int64 {
	return int64(c)
}

// PendingID identifies an action contract awaiting caregiver confirmation.
type PendingID uuid.UUID

// NewPendingID returns a fresh random PendingID.
func NewPendingID() PendingID {
	return PendingID(uuid.New())
}

// ParsePendingID constructs a PendingID from external input.
//
// Errors: returns CodeBadRequest when the value is empty, malformed, or the nil UUID.
func ParsePendingID(s string) (PendingID, error) {
	if s == "" {
		return PendingID{}, dErrors.New(dErrors.CodeBadRequest, "pending_id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return PendingID{}, dErrors.New(dErrors.CodeBadRequest, "pending_id is not a valid identifier")
	}
	if parsed == uuid.Nil {
		return PendingID{}, dErrors.New(dErrors.CodeBadRequest, "pending_id is not a valid identifier")
	}
	return PendingID(parsed), nil
}

// String returns the canonical UUID form.
func (p PendingID) String() string {
	return uuid.UUID(p).String()
}

// IsNil reports whether the id is the zero value.
func (p PendingID) IsNil() bool {
	return uuid.UUID(p) == uuid.Nil
}

// MarshalText encodes the id in canonical UUID form for JSON and Redis payloads.
func (p PendingID) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText accepts only non-nil canonical UUIDs.
func (p *PendingID) UnmarshalText(text []byte) error {
	parsed, err := ParsePendingID(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
