package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"speechact/internal/intent/contract"
	"speechact/internal/intent/mapping"
	"speechact/internal/intent/metrics"
	"speechact/internal/intent/models"
	"speechact/internal/intent/ports"
	"speechact/pkg/domain"
	dErrors "speechact/pkg/domain-errors"
	audit "speechact/pkg/platform/audit"
	"speechact/pkg/platform/sentinel"
	"speechact/pkg/requestcontext"
)

// DefaultPendingTTL is how long a previewed contract waits for confirmation.
const DefaultPendingTTL = 5 * time.Minute

// ErrEmptyFactBatch is returned when a request carries no facts.
var ErrEmptyFactBatch = mapping.ErrEmptyFactBatch

var tracer = otel.Tracer("speechact.intent")

// Service runs the fact pipeline: validate, resolve, map, build, record.
// It holds no per-request state, so one failed batch never affects the next.
type Service struct {
	resolver       ports.ChildResolver
	backend        ports.Backend
	pending        ports.PendingStore
	mapper         *mapping.Mapper
	builder        *contract.Builder
	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	pendingTTL     time.Duration
	now            func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPendingStore enables the preview/confirm flow.
func WithPendingStore(store ports.PendingStore) Option {
	return func(s *Service) {
		s.pending = store
	}
}

// WithPendingTTL overrides DefaultPendingTTL. Non-positive values are ignored.
func WithPendingTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.pendingTTL = ttl
		}
	}
}

// WithClock sets the clock used for contract timestamps and pending expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMapper replaces the production mapper. Tests use it to reach the
// no-mapping path.
func WithMapper(m *mapping.Mapper) Option {
	return func(s *Service) {
		if m != nil {
			s.mapper = m
		}
	}
}

// New constructs a Service.
func New(resolver ports.ChildResolver, backend ports.Backend, opts ...Option) *Service {
	s := &Service{
		resolver:   resolver,
		backend:    backend,
		mapper:     mapping.NewMapper(),
		logger:     slog.Default(),
		pendingTTL: DefaultPendingTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.builder = contract.NewBuilder(contract.WithClock(s.now))
	return s
}

// prepared is the output of the offline part of the pipeline.
type prepared struct {
	subject  string
	child    *ports.Child
	mapping  *models.MappingResult
	contract models.ActionContract
}

// Process validates a raw fact batch, maps it, and records the resulting
// contract in the backend. The returned result is always non-nil; on failure
// err is the coded error the result was built from.
func (s *Service) Process(ctx context.Context, raws []models.RawFact) (result *models.ProcessingResult, err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "intent.Process",
		trace.WithAttributes(attribute.Int("facts.count", len(raws))),
	)
	defer span.End()

	var p *prepared
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "panic while processing facts",
				"panic", r,
				"request_id", requestcontext.RequestID(ctx),
			)
			err = dErrors.New(dErrors.CodeUnexpected, models.UnexpectedMessage).WithField(dErrors.FieldGeneral)
			result = models.NewFailureResult(err, "")
		}
		s.finish(ctx, span, "process", start, p, err)
	}()

	p, err = s.prepare(ctx, raws)
	if err != nil {
		return models.NewFailureResult(err, subjectOf(raws)), err
	}

	if err = s.record(ctx, p.contract); err != nil {
		return models.NewFailureResult(err, p.subject), err
	}

	c := p.contract.Clone()
	return &models.ProcessingResult{
		Success:  true,
		Message:  fmt.Sprintf("Event recorded for %s", p.subject),
		Contract: &c,
	}, nil
}

// Map runs validation and mapping without resolving a child or calling the
// backend. The contract carries child id 0.
func (s *Service) Map(ctx context.Context, raws []models.RawFact) (*models.ActionContract, error) {
	facts, err := s.canonicalize(raws)
	if err != nil {
		return nil, err
	}
	result, err := s.mapper.Map(facts)
	if err != nil {
		return nil, err
	}
	c := s.builder.Build(result, 0)
	return &c, nil
}

// prepare runs every step up to (not including) the backend call.
func (s *Service) prepare(ctx context.Context, raws []models.RawFact) (*prepared, error) {
	facts, err := s.canonicalize(raws)
	if err != nil {
		return nil, err
	}

	subject := facts[0].PrimarySubject()
	child, err := s.resolveChild(ctx, subject)
	if err != nil {
		return nil, err
	}

	result, err := s.mapper.Map(facts)
	if err != nil {
		return nil, err
	}

	return &prepared{
		subject:  subject,
		child:    child,
		mapping:  result,
		contract: s.builder.Build(result, child.ID),
	}, nil
}

// canonicalize validates each raw fact in batch order and stops at the first
// failure.
func (s *Service) canonicalize(raws []models.RawFact) ([]models.CanonicalFact, error) {
	if len(raws) == 0 {
		return nil, dErrors.Wrap(ErrEmptyFactBatch, dErrors.CodeMapping, ErrEmptyFactBatch.Error()).
			WithField(dErrors.FieldMapping)
	}

	facts := make([]models.CanonicalFact, 0, len(raws))
	for _, raw := range raws {
		dim, err := domain.ParseDimension(raw.Dimension)
		if err != nil {
			return nil, err
		}
		if !domain.IsAllowedValue(dim, raw.Value) {
			ive := &models.InvalidValueError{Value: raw.Value, Dimension: dim, Allowed: domain.AllowedValues(dim)}
			return nil, dErrors.Wrap(ive, dErrors.CodeInvalidValue, ive.Error()).WithField(dErrors.FieldValue)
		}
		fact, err := models.NewCanonicalFact(raw.Subjects, dim, raw.Value, raw.ConfidenceOrDefault())
		if err != nil {
			return nil, err
		}
		facts = append(facts, fact)
	}
	return facts, nil
}

func (s *Service) resolveChild(ctx context.Context, subject string) (*ports.Child, error) {
	child, err := s.resolver.Resolve(ctx, subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeChildNotFound, fmt.Sprintf("Could not find child: %s", subject)).
				WithField(dErrors.FieldSubjects)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnexpected, models.UnexpectedMessage).WithField(dErrors.FieldGeneral)
	}
	if child == nil {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeChildNotFound, fmt.Sprintf("Could not find child: %s", subject)).
			WithField(dErrors.FieldSubjects)
	}
	return child, nil
}

// record hands the contract to the backend verbatim. Failures keep the
// backend's own message and are never retried.
func (s *Service) record(ctx context.Context, c models.ActionContract) error {
	ctx, span := tracer.Start(ctx, "intent.RecordEvent",
		trace.WithAttributes(
			attribute.String("action", c.Action),
			attribute.Int64("child_id", c.ChildID.Int64()),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := s.backend.RecordEvent(ctx, c.ChildID, c.Action, c.Properties)
	if err != nil {
		s.metrics.ObserveBackendLatency("failure", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, sentinel.ErrUnavailable) {
			s.logger.WarnContext(ctx, "backend unavailable, event not recorded",
				"action", c.Action,
				"child_id", c.ChildID,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return dErrors.Wrap(err, dErrors.CodeBackend, err.Error()).WithField(dErrors.FieldBackend)
	}
	if resp == nil || !resp.Success {
		msg := "Backend rejected the event"
		if resp != nil && resp.Message != "" {
			msg = resp.Message
		}
		s.metrics.ObserveBackendLatency("failure", time.Since(start))
		span.SetStatus(codes.Error, msg)
		return dErrors.New(dErrors.CodeBackend, msg).WithField(dErrors.FieldBackend)
	}
	s.metrics.ObserveBackendLatency("success", time.Since(start))
	s.logger.InfoContext(ctx, "event recorded",
		"action", c.Action,
		"child_id", c.ChildID,
		"event_id", resp.EventID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// finish records metrics, span status, and the audit trail for one run.
func (s *Service) finish(ctx context.Context, span trace.Span, operation string, start time.Time, p *prepared, err error) {
	s.metrics.ObservePipelineLatency(operation, time.Since(start))

	var event audit.Event
	if p != nil {
		event.Subject = p.subject
		event.ChildID = p.child.ID.Int64()
		event.Domain = string(p.mapping.Domain)
		event.IntentType = string(p.mapping.Type)
		event.Confidence = p.mapping.Confidence
		span.SetAttributes(attribute.String("domain", string(p.mapping.Domain)))
	}

	if err != nil {
		code := dErrors.CodeOf(err)
		s.metrics.IncrementOutcome("failure", string(code))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(code))
		s.logger.WarnContext(ctx, "fact batch failed",
			"operation", operation,
			"code", code,
			"field", dErrors.FieldOf(err),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		event.Action = string(audit.EventIntentFailed)
		event.Decision = audit.DecisionFailed
		event.Reason = string(code)
		s.emitAudit(ctx, event)
		return
	}

	s.metrics.IncrementOutcome("success", "")
	s.metrics.IncrementDomain(event.Domain)
	span.SetStatus(codes.Ok, "")
	switch operation {
	case "preview":
		event.Action = string(audit.EventIntentPreviewed)
		event.Decision = audit.DecisionPending
	default:
		event.Action = string(audit.EventIntentRecorded)
		event.Decision = audit.DecisionAccepted
	}
	s.emitAudit(ctx, event)
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event.WithRequestMetadata(ctx)); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}

// subjectOf returns the first subject of the first raw fact, if any.
func subjectOf(raws []models.RawFact) string {
	if len(raws) == 0 || len(raws[0].Subjects) == 0 {
		return ""
	}
	return strings.TrimSpace(raws[0].Subjects[0])
}
