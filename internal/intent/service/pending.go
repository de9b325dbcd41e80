package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"speechact/internal/intent/models"
	"speechact/pkg/domain"
	dErrors "speechact/pkg/domain-errors"
	audit "speechact/pkg/platform/audit"
	"speechact/pkg/platform/sentinel"
)

// LowConfidenceThreshold is the confidence under which previews warn.
const LowConfidenceThreshold = 0.7

const (
	warningLowConfidence = "Low confidence score - consider manual verification"
	warningMedication    = "Medication administration requires verification"
)

// entityTypes names the backend record each domain creates.
var entityTypes = map[domain.Domain]string{
	domain.DomainMeal:       "MealRecord",
	domain.DomainSleep:      "SleepRecord",
	domain.DomainDiaper:     "DiaperChangeRecord",
	domain.DomainActivity:   "ActivityRecord",
	domain.DomainHealth:     "HealthObservation",
	domain.DomainBehavior:   "BehaviorLog",
	domain.DomainMedication: "MedicationRecord",
}

// ErrPendingNotFound is reported for unknown, expired, or already handled
// pending intents.
var ErrPendingNotFound = errors.New("pending intent not found or expired")

// BuildPreview describes what committing a mapped contract would create.
func BuildPreview(result *models.MappingResult, subject string) models.Preview {
	entity, ok := entityTypes[result.Domain]
	if !ok {
		entity = "Unknown"
	}
	warnings := []string{}
	if result.Confidence < LowConfidenceThreshold {
		warnings = append(warnings, warningLowConfidence)
	}
	if result.Domain == domain.DomainMedication {
		warnings = append(warnings, warningMedication)
	}
	return models.Preview{
		EntityType:  entity,
		Description: fmt.Sprintf("Would create %s for %s", entity, subject),
		Warnings:    warnings,
	}
}

// Preview validates and maps a batch, then holds the contract for
// confirmation instead of recording it.
func (s *Service) Preview(ctx context.Context, raws []models.RawFact) (intent *models.PendingIntent, err error) {
	if s.pending == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "pending intents are not enabled")
	}

	start := time.Now()
	ctx, span := tracer.Start(ctx, "intent.Preview",
		trace.WithAttributes(attribute.Int("facts.count", len(raws))),
	)
	defer span.End()

	var p *prepared
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic while previewing facts", "panic", r)
			err = dErrors.New(dErrors.CodeUnexpected, models.UnexpectedMessage).WithField(dErrors.FieldGeneral)
			intent = nil
		}
		s.finishPreview(ctx, span, start, p, intent, err)
	}()

	p, err = s.prepare(ctx, raws)
	if err != nil {
		return nil, err
	}

	now := s.now()
	intent = &models.PendingIntent{
		ID:        domain.NewPendingID(),
		Subject:   p.subject,
		Domain:    p.mapping.Domain,
		Type:      p.mapping.Type,
		Contract:  p.contract.Clone(),
		Preview:   BuildPreview(p.mapping, p.subject),
		CreatedAt: now,
		ExpiresAt: now.Add(s.pendingTTL),
	}
	if err = s.pending.Save(ctx, intent); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to store pending intent")
		return nil, err
	}
	s.metrics.IncrementPending("created")
	return intent, nil
}

func (s *Service) finishPreview(ctx context.Context, span trace.Span, start time.Time, p *prepared, intent *models.PendingIntent, err error) {
	s.finish(ctx, span, "preview", start, p, err)
	if err != nil || intent == nil {
		return
	}
	span.SetAttributes(attribute.String("pending_id", intent.ID.String()))
}

// Confirm records a pending intent in the backend. The intent is claimed
// before the backend call so concurrent confirms record it at most once. A
// backend failure puts the intent back so the caregiver can retry before
// expiry.
func (s *Service) Confirm(ctx context.Context, id domain.PendingID) (*models.ProcessingResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "intent.Confirm",
		trace.WithAttributes(attribute.String("pending_id", id.String())),
	)
	defer span.End()
	defer func() { s.metrics.ObservePipelineLatency("confirm", time.Since(start)) }()

	intent, err := s.claimPending(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.record(ctx, intent.Contract); err != nil {
		s.restorePending(ctx, intent)
		s.metrics.IncrementOutcome("failure", string(dErrors.CodeOf(err)))
		s.emitAudit(ctx, pendingEvent(intent, audit.EventIntentFailed, audit.DecisionFailed, string(dErrors.CodeOf(err))))
		return models.NewFailureResult(err, intent.Subject), err
	}

	s.metrics.IncrementOutcome("success", "")
	s.metrics.IncrementDomain(string(intent.Domain))
	s.metrics.IncrementPending("confirmed")
	s.emitAudit(ctx, pendingEvent(intent, audit.EventIntentConfirmed, audit.DecisionAccepted, ""))

	c := intent.Contract.Clone()
	return &models.ProcessingResult{
		Success:  true,
		Message:  fmt.Sprintf("Event recorded for %s", intent.Subject),
		Contract: &c,
	}, nil
}

// Reject discards a pending intent without recording it.
func (s *Service) Reject(ctx context.Context, id domain.PendingID) (*models.PendingIntent, error) {
	intent, err := s.claimPending(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementPending("rejected")
	s.emitAudit(ctx, pendingEvent(intent, audit.EventIntentRejected, audit.DecisionRejected, "rejected by caregiver"))
	return intent, nil
}

// ListPending returns intents that have not expired, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]*models.PendingIntent, error) {
	if s.pending == nil {
		return []*models.PendingIntent{}, nil
	}
	intents, err := s.pending.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending intents")
	}
	now := s.now()
	live := make([]*models.PendingIntent, 0, len(intents))
	for _, p := range intents {
		if !p.IsExpired(now) {
			live = append(live, p)
		}
	}
	return live, nil
}

// claimPending removes the intent from the store and hands it to the caller.
func (s *Service) claimPending(ctx context.Context, id domain.PendingID) (*models.PendingIntent, error) {
	if s.pending == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "pending intents are not enabled")
	}
	if id.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "pending_id is required")
	}
	intent, err := s.pending.Take(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.Wrap(ErrPendingNotFound, dErrors.CodeNotFound, "Pending intent not found or expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load pending intent")
	}
	if intent.IsExpired(s.now()) {
		s.metrics.IncrementPending("expired")
		return nil, dErrors.Wrap(ErrPendingNotFound, dErrors.CodeNotFound, "Pending intent not found or expired")
	}
	return intent, nil
}

// restorePending puts back an intent whose confirm failed. An intent that
// expired meanwhile is dropped.
func (s *Service) restorePending(ctx context.Context, intent *models.PendingIntent) {
	if intent.IsExpired(s.now()) {
		s.metrics.IncrementPending("expired")
		return
	}
	if err := s.pending.Save(context.WithoutCancel(ctx), intent); err != nil {
		s.logger.ErrorContext(ctx, "failed to restore pending intent after backend failure",
			"pending_id", intent.ID.String(),
			"error", err,
		)
	}
}

func pendingEvent(intent *models.PendingIntent, action audit.AuditEvent, decision, reason string) audit.Event {
	return audit.Event{
		Subject:    intent.Subject,
		ChildID:    intent.Contract.ChildID.Int64(),
		Action:     string(action),
		Domain:     string(intent.Domain),
		IntentType: string(intent.Type),
		Decision:   decision,
		Reason:     reason,
		Confidence: intent.Contract.Metadata.Confidence,
		PendingID:  intent.ID.String(),
	}
}
