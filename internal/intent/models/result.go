package models

import (
	"errors"
	"fmt"
	"time"

	"speechact/pkg/domain"
	dErrors "speechact/pkg/domain-errors"
)

// RawFact is an unvalidated fact tuple as emitted by the extraction layer.
// A nil Confidence means the caller omitted it and defaults to 1.0.
type RawFact struct {
	Subjects   []string
	Dimension  string
	Value      string
	Confidence *float64
}

// DefaultConfidence applies when RawFact.Confidence is nil.
const DefaultConfidence = 1.0

// ConfidenceOrDefault returns the supplied confidence or DefaultConfidence.
func (r RawFact) ConfidenceOrDefault() float64 {
	if r.Confidence == nil {
		return DefaultConfidence
	}
	return *r.Confidence
}

// ErrorDetail is one structured, caller-actionable failure.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ProcessingResult is the outcome of one pipeline run. Failed runs carry
// Success=false and at least one ErrorDetail.
type ProcessingResult struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Contract *ActionContract `json:"intent_contract,omitempty"`
	Errors   []ErrorDetail   `json:"errors,omitempty"`
}

// Preview describes what committing a contract would do in the backend.
type Preview struct {
	EntityType  string   `json:"entity_type"`
	Description string   `json:"description"`
	Warnings    []string `json:"warnings"`
}

// PendingIntent is an ActionContract held for caregiver confirmation.
type PendingIntent struct {
	ID        domain.PendingID     `json:"id"`
	Subject   string               `json:"subject"`
	Domain    domain.Domain        `json:"domain"`
	Type      domain.IntentionType `json:"intention_type"`
	Contract  ActionContract       `json:"intent_contract"`
	Preview   Preview              `json:"preview"`
	CreatedAt time.Time            `json:"created_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// IsExpired reports whether the intent is past its expiry at now.
func (p *PendingIntent) IsExpired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// UnexpectedMessage is the caller-facing text for UNEXPECTED_ERROR. Details
// stay in the logs.
const UnexpectedMessage = "Unexpected error while processing facts"

// NewFailureResult turns a pipeline error into the caller-facing result.
// Errors that carry no taxonomy code are reported as UNEXPECTED_ERROR.
// subject names the child for CHILD_NOT_FOUND summaries.
func NewFailureResult(err error, subject string) *ProcessingResult {
	var de *dErrors.Error
	if !errors.As(err, &de) {
		de = dErrors.Wrap(err, dErrors.CodeUnexpected, UnexpectedMessage).WithField(dErrors.FieldGeneral)
	}
	return &ProcessingResult{
		Success: false,
		Message: summary(de, subject),
		Errors: []ErrorDetail{{
			Field:   dErrors.FieldOf(de),
			Message: de.Message,
			Code:    string(de.Code),
		}},
	}
}

func summary(de *dErrors.Error, subject string) string {
	switch de.Code {
	case dErrors.CodeValidation:
		return "Validation error: " + de.Message
	case dErrors.CodeChildNotFound:
		return fmt.Sprintf("Child not found: %s", subject)
	case dErrors.CodeMapping:
		return "Mapping error: " + de.Message
	case dErrors.CodeUnexpected:
		return UnexpectedMessage
	default:
		return de.Message
	}
}
