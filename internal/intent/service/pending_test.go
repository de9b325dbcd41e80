package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/mock/gomock"

	"speechact/internal/intent/models"
	"speechact/internal/intent/ports"
	"speechact/internal/intent/store"
	"speechact/pkg/domain"
	dErrors "speechact/pkg/domain-errors"
	audit "speechact/pkg/platform/audit"
	"speechact/pkg/requestcontext"
)

func (s *ServiceSuite) pendingService() (*Service, *store.InMemoryStore) {
	clock := func() time.Time { return s.now }
	pending := store.NewInMemory(store.WithClock(clock))
	svc := New(s.mockResolver, s.mockBackend,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(s.mockPublisher),
		WithPendingStore(pending),
		WithPendingTTL(2*time.Minute),
		WithClock(clock),
	)
	return svc, pending
}

func (s *ServiceSuite) TestBuildPreview() {
	tests := []struct {
		name     string
		result   models.MappingResult
		entity   string
		warnings []string
	}{
		{
			name:     "confident meal",
			result:   models.MappingResult{Domain: domain.DomainMeal, Confidence: 0.9},
			entity:   "MealRecord",
			warnings: []string{},
		},
		{
			name:     "threshold is not low",
			result:   models.MappingResult{Domain: domain.DomainSleep, Confidence: 0.7},
			entity:   "SleepRecord",
			warnings: []string{},
		},
		{
			name:     "low confidence diaper",
			result:   models.MappingResult{Domain: domain.DomainDiaper, Confidence: 0.69},
			entity:   "DiaperChangeRecord",
			warnings: []string{warningLowConfidence},
		},
		{
			name:     "medication always warns",
			result:   models.MappingResult{Domain: domain.DomainMedication, Confidence: 1},
			entity:   "MedicationRecord",
			warnings: []string{warningMedication},
		},
		{
			name:     "low confidence medication",
			result:   models.MappingResult{Domain: domain.DomainMedication, Confidence: 0.2},
			entity:   "MedicationRecord",
			warnings: []string{warningLowConfidence, warningMedication},
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			p := BuildPreview(&tt.result, "Gabriel")
			s.Equal(tt.entity, p.EntityType)
			s.Equal("Would create "+tt.entity+" for Gabriel", p.Description)
			s.Equal(tt.warnings, p.Warnings)
		})
	}
}

func (s *ServiceSuite) TestPreviewConfirmFlow() {
	svc, pending := s.pendingService()
	ctx := context.Background()

	s.expectChild("Gabriel", 123)
	s.expectAudit(audit.EventIntentPreviewed)
	intent, err := svc.Preview(ctx, []models.RawFact{raw("Gabriel", "MEDICATION_TYPE", "ALLERGY", 0.5)})
	s.Require().NoError(err)
	s.False(intent.ID.IsNil())
	s.Equal("Gabriel", intent.Subject)
	s.Equal(domain.DomainMedication, intent.Domain)
	s.Equal(domain.IntentionMedicationAdministration, intent.Type)
	s.Equal("record_medication", intent.Contract.Action)
	s.Equal(s.now, intent.CreatedAt)
	s.Equal(s.now.Add(2*time.Minute), intent.ExpiresAt)
	s.Equal([]string{warningLowConfidence, warningMedication}, intent.Preview.Warnings)

	listed, err := svc.ListPending(ctx)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(intent.ID, listed[0].ID)

	s.mockBackend.EXPECT().
		RecordEvent(gomock.Any(), domain.ChildID(123), "record_medication", map[string]string{"medicationType": "ALLERGY"}).
		Return(&ports.EventResponse{Success: true}, nil)
	s.expectAudit(audit.EventIntentConfirmed)

	result, err := svc.Confirm(ctx, intent.ID)
	s.Require().NoError(err)
	s.True(result.Success)
	s.Equal("Event recorded for Gabriel", result.Message)

	_, err = pending.Find(ctx, intent.ID)
	s.Error(err, "confirmed intent is removed")

	_, err = svc.Confirm(ctx, intent.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.ErrorIs(err, ErrPendingNotFound)
}

func (s *ServiceSuite) TestConfirm_BackendFailureKeepsIntent() {
	svc, _ := s.pendingService()
	ctx := context.Background()

	s.expectChild("Gabriel", 123)
	s.expectAudit(audit.EventIntentPreviewed)
	intent, err := svc.Preview(ctx, []models.RawFact{raw("Gabriel", "SLEEP_STATE", "WOKE_UP", 0.9)})
	s.Require().NoError(err)

	s.mockBackend.EXPECT().RecordEvent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("Backend request timed out"))
	s.expectAudit(audit.EventIntentFailed)

	result, err := svc.Confirm(ctx, intent.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeBackend))
	s.Require().NotNil(result)
	s.False(result.Success)
	s.Equal("Backend request timed out", result.Errors[0].Message)

	listed, err := svc.ListPending(ctx)
	s.Require().NoError(err)
	s.Len(listed, 1)
}

func (s *ServiceSuite) TestConfirm_ConcurrentRecordsOnce() {
	svc, pending := s.pendingService()
	ctx := context.Background()

	s.expectChild("Gabriel", 123)
	s.expectAudit(audit.EventIntentPreviewed)
	intent, err := svc.Preview(ctx, []models.RawFact{raw("Gabriel", "MEDICATION_TYPE", "VITAMIN", 0.9)})
	s.Require().NoError(err)

	s.mockBackend.EXPECT().RecordEvent(gomock.Any(), domain.ChildID(123), "record_medication", gomock.Any()).
		DoAndReturn(func(context.Context, domain.ChildID, string, map[string]string) (*ports.EventResponse, error) {
			time.Sleep(50 * time.Millisecond)
			return &ports.EventResponse{Success: true}, nil
		}).Times(1)
	s.expectAudit(audit.EventIntentConfirmed)

	const callers = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		notFound int
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Confirm(ctx, intent.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case dErrors.HasCode(err, dErrors.CodeNotFound):
				notFound++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, ok)
	s.Equal(callers-1, notFound)
	_, err = pending.Find(ctx, intent.ID)
	s.Error(err)
}

func (s *ServiceSuite) TestConfirm_RetryAfterBackendFailure() {
	svc, _ := s.pendingService()
	ctx := context.Background()

	s.expectChild("Gabriel", 123)
	s.expectAudit(audit.EventIntentPreviewed)
	intent, err := svc.Preview(ctx, []models.RawFact{raw("Gabriel", "DIAPER_CHANGE_TYPE", "WET", 0.9)})
	s.Require().NoError(err)

	gomock.InOrder(
		s.mockBackend.EXPECT().RecordEvent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("Backend request timed out")),
		s.mockBackend.EXPECT().RecordEvent(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&ports.EventResponse{Success: true}, nil),
	)
	s.expectAudit(audit.EventIntentFailed)
	_, err = svc.Confirm(ctx, intent.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeBackend))

	s.expectAudit(audit.EventIntentConfirmed)
	result, err := svc.Confirm(ctx, intent.ID)
	s.Require().NoError(err)
	s.True(result.Success)
}

func (s *ServiceSuite) TestReject() {
	svc, _ := s.pendingService()
	ctx := context.Background()

	s.expectChild("Gabriel", 123)
	s.expectAudit(audit.EventIntentPreviewed)
	intent, err := svc.Preview(ctx, []models.RawFact{raw("Gabriel", "CHILD_MOOD", "CALM", 0.9)})
	s.Require().NoError(err)

	s.expectAudit(audit.EventIntentRejected)
	rejected, err := svc.Reject(ctx, intent.ID)
	s.Require().NoError(err)
	s.Equal(intent.ID, rejected.ID)

	_, err = svc.Reject(ctx, intent.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	listed, err := svc.ListPending(ctx)
	s.Require().NoError(err)
	s.Empty(listed)
}

func (s *ServiceSuite) TestReject_AuditCarriesRequestMetadata() {
	svc, _ := s.pendingService()
	ctx := requestcontext.WithRequestID(context.Background(), "req-77")
	ctx = requestcontext.WithCaller(ctx, "caregiver-5", "creche-est")
	ctx = requestcontext.WithClientMetadata(ctx, "192.0.2.10", "speechact-app/2.0")

	s.expectChild("Gabriel", 123)
	s.expectAudit(audit.EventIntentPreviewed)
	intent, err := svc.Preview(ctx, []models.RawFact{raw("Gabriel", "CHILD_MOOD", "CALM", 0.9)})
	s.Require().NoError(err)

	var got audit.Event
	s.mockPublisher.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, event audit.Event) error {
			got = event
			return nil
		})
	_, err = svc.Reject(ctx, intent.ID)
	s.Require().NoError(err)

	s.Equal(string(audit.EventIntentRejected), got.Action)
	s.Equal(intent.ID.String(), got.PendingID)
	s.Equal("req-77", got.RequestID)
	s.Equal("caregiver-5", got.ActorID)
	s.Equal("creche-est", got.Facility)
	s.Equal("192.0.2.10", got.IP)
	s.Equal("speechact-app/2.0", got.UserAgent)
}

func (s *ServiceSuite) TestPending_Expiry() {
	svc, _ := s.pendingService()
	ctx := context.Background()

	s.expectChild("Gabriel", 123)
	s.expectAudit(audit.EventIntentPreviewed)
	intent, err := svc.Preview(ctx, []models.RawFact{raw("Gabriel", "ACTIVITY_TYPE", "READING", 0.9)})
	s.Require().NoError(err)

	s.now = s.now.Add(2 * time.Minute)

	listed, err := svc.ListPending(ctx)
	s.Require().NoError(err)
	s.Empty(listed)

	_, err = svc.Confirm(ctx, intent.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = svc.Reject(ctx, intent.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestPreview_Failures() {
	ctx := context.Background()

	s.Run("disabled without a pending store", func() {
		_, err := s.service.Preview(ctx, []models.RawFact{raw("Gabriel", "SLEEP_STATE", "ASLEEP", 0.9)})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("validation failure stores nothing", func() {
		svc, _ := s.pendingService()
		s.expectAudit(audit.EventIntentFailed)
		intent, err := svc.Preview(ctx, []models.RawFact{raw("Gabriel", "SLEEP_STATE", "HALF", 0.9)})
		s.Nil(intent)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidValue))

		listed, err := svc.ListPending(ctx)
		s.Require().NoError(err)
		s.Empty(listed)
	})

	s.Run("nil id is a bad request", func() {
		svc, _ := s.pendingService()
		_, err := svc.Confirm(ctx, domain.PendingID{})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
