package handler

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"speechact/internal/backend"
	"speechact/internal/backend/mock"
	"speechact/internal/intent/models"
	"speechact/internal/intent/service"
	"speechact/internal/intent/store"
	"speechact/pkg/platform/audit/publisher"
	auditmemory "speechact/pkg/platform/audit/store/memory"
	request "speechact/pkg/platform/middleware/request"
	"speechact/pkg/requestcontext"
	"speechact/pkg/testutil"
)

// HandlerSuite drives the HTTP surface against a real service, an in-memory
// pending store and the development backend.
type HandlerSuite struct {
	suite.Suite
	backendSrv  *httptest.Server
	backendMock *mock.Server
	auditStore  *auditmemory.InMemoryStore
	router      chi.Router
	now         time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return s.now }

	s.backendMock = mock.New(logger)
	s.backendSrv = httptest.NewServer(s.backendMock.Router())

	resolver, err := backend.NewDirectoryResolver(map[string]int64{"Gabriel": 123, "Léa": 456})
	s.Require().NoError(err)

	s.auditStore = auditmemory.NewInMemoryStore()
	pub := publisher.NewPublisher(s.auditStore)
	client := backend.NewClient(s.backendSrv.URL, backend.WithLogger(logger))

	svc := service.New(resolver, client,
		service.WithLogger(logger),
		service.WithAuditPublisher(pub),
		service.WithPendingStore(store.NewInMemory(store.WithClock(clock))),
		service.WithClock(clock),
	)

	s.router = chi.NewRouter()
	s.router.Use(request.RequestID)
	New(svc, logger).Register(s.router)
	NewHealthHandler(client, logger).Register(s.router)
	NewAuditHandler(pub, "admin-secret", logger).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.backendSrv.Close()
}

func (s *HandlerSuite) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return testutil.DoRequest(s.router, req)
}

func decode[T any](s *HandlerSuite, rec *httptest.ResponseRecorder) T {
	return testutil.UnmarshalResponse[T](s.T(), rec)
}

func (s *HandlerSuite) TestProcessFact() {
	s.Run("success records the event", func() {
		rec := s.do(http.MethodPost, "/v1/facts", map[string]any{
			"subjects":   []string{"Gabriel"},
			"dimension":  "MEAL_MAIN_CONSUMPTION",
			"value":      "ALL",
			"confidence": 0.92,
		})
		s.Equal(http.StatusOK, rec.Code)
		result := decode[models.ProcessingResult](s, rec)
		s.True(result.Success)
		s.Equal("Event recorded for Gabriel", result.Message)
		s.Require().NotNil(result.Contract)
		s.Equal("record_meal", result.Contract.Action)
		s.Equal(map[string]string{"main": "ALL"}, result.Contract.Properties)
		s.Equal("speechact-intent-gateway", result.Contract.Metadata.Source)

		events := s.backendMock.Events()
		s.Require().Len(events, 1)
		s.Equal(int64(123), events[0].ChildID)
	})

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
		field  string
	}{
		{"invalid dimension", map[string]any{"subjects": []string{"Gabriel"}, "dimension": "NAP", "value": "ALL"}, http.StatusBadRequest, "INVALID_DIMENSION", "dimension"},
		{"invalid value", map[string]any{"subjects": []string{"Gabriel"}, "dimension": "SLEEP_STATE", "value": "ALL"}, http.StatusBadRequest, "INVALID_VALUE", "value"},
		{"confidence out of range", map[string]any{"subjects": []string{"Gabriel"}, "dimension": "SLEEP_STATE", "value": "ASLEEP", "confidence": 1.2}, http.StatusBadRequest, "VALIDATION_ERROR", "canonical_fact"},
		{"unknown child", map[string]any{"subjects": []string{"Zoé"}, "dimension": "SLEEP_STATE", "value": "ASLEEP"}, http.StatusNotFound, "CHILD_NOT_FOUND", "subjects"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			rec := s.do(http.MethodPost, "/v1/facts", tt.body)
			s.Equal(tt.status, rec.Code)
			result := decode[models.ProcessingResult](s, rec)
			s.False(result.Success)
			s.Require().Len(result.Errors, 1)
			s.Equal(tt.code, result.Errors[0].Code)
			s.Equal(tt.field, result.Errors[0].Field)
		})
	}

	s.Run("malformed body is a transport error", func() {
		rec := s.do(http.MethodPost, "/v1/facts", `{"subjects":`)
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), `"error":"bad_request"`)
	})

	s.Run("unknown fields are rejected", func() {
		rec := s.do(http.MethodPost, "/v1/facts", `{"subjects":["Gabriel"],"dimension":"SLEEP_STATE","value":"ASLEEP","mood":"x"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestProcessBatch() {
	s.Run("meal facts aggregate", func() {
		rec := s.do(http.MethodPost, "/v1/facts/batch", map[string]any{
			"facts": []map[string]any{
				{"subjects": []string{"Léa"}, "dimension": "MEAL_MAIN_CONSUMPTION", "value": "HALF", "confidence": 0.8},
				{"subjects": []string{"Léa"}, "dimension": "MEAL_DESSERT_CONSUMPTION", "value": "ALL", "confidence": 0.6},
			},
		})
		s.Equal(http.StatusOK, rec.Code)
		result := decode[models.ProcessingResult](s, rec)
		s.Equal(map[string]string{"main": "HALF", "dessert": "ALL"}, result.Contract.Properties)
		s.InDelta(0.7, result.Contract.Metadata.Confidence, 1e-12)
	})

	s.Run("empty batch is a mapping error", func() {
		rec := s.do(http.MethodPost, "/v1/facts/batch", map[string]any{"facts": []any{}})
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
		result := decode[models.ProcessingResult](s, rec)
		s.Equal("MAPPING_ERROR", result.Errors[0].Code)
	})

	s.Run("oversized batch is refused", func() {
		facts := make([]map[string]any, MaxBatchFacts+1)
		for i := range facts {
			facts[i] = map[string]any{"subjects": []string{"Léa"}, "dimension": "CHILD_MOOD", "value": "CALM"}
		}
		rec := s.do(http.MethodPost, "/v1/facts/batch", map[string]any{"facts": facts})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestProcess_BackendDown() {
	s.backendSrv.Close()

	rec := s.do(http.MethodPost, "/v1/facts", map[string]any{
		"subjects": []string{"Gabriel"}, "dimension": "SLEEP_STATE", "value": "ASLEEP",
	})
	s.Equal(http.StatusBadGateway, rec.Code)
	result := decode[models.ProcessingResult](s, rec)
	s.Equal("BACKEND_ERROR", result.Errors[0].Code)
	s.Contains(result.Errors[0].Message, "Cannot connect to backend at")
}

func (s *HandlerSuite) TestDimensions() {
	rec := s.do(http.MethodGet, "/v1/dimensions", nil)
	s.Equal(http.StatusOK, rec.Code)
	resp := decode[DimensionsResponse](s, rec)
	s.Len(resp.Dimensions, 10)
	sleep := resp.Dimensions["SLEEP_STATE"]
	s.Equal("SLEEP", sleep.Domain)
	s.Equal([]string{"ASLEEP", "WOKE_UP", "RESTING", "REFUSED_SLEEP"}, sleep.ValidValues)
	s.NotEmpty(sleep.Description)
}

func (s *HandlerSuite) TestPreviewConfirmReject() {
	preview := func(dimension, value string) PreviewResponse {
		rec := s.do(http.MethodPost, "/v1/intents/preview", map[string]any{
			"facts": []map[string]any{{"subjects": []string{"Gabriel"}, "dimension": dimension, "value": value, "confidence": 0.5}},
		})
		s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
		return decode[PreviewResponse](s, rec)
	}

	first := preview("MEDICATION_TYPE", "VITAMIN")
	s.True(first.Success)
	s.Equal("pending_confirmation", first.Stage)
	s.Equal("MedicationRecord", first.Preview.EntityType)
	s.Equal("Would create MedicationRecord for Gabriel", first.Preview.Description)
	s.Len(first.Preview.Warnings, 2)
	s.Equal(s.now.Add(service.DefaultPendingTTL), first.ExpiresAt)
	second := preview("SLEEP_STATE", "RESTING")
	s.Empty(s.backendMock.Events(), "preview does not record")

	rec := s.do(http.MethodGet, "/v1/intents/pending", nil)
	s.Equal(http.StatusOK, rec.Code)
	list := decode[PendingListResponse](s, rec)
	s.Equal(2, list.Count)

	rec = s.do(http.MethodPost, "/v1/intents/confirm", map[string]string{"pending_id": first.PendingID})
	s.Equal(http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decode[models.ProcessingResult](s, rec)
	s.True(confirmed.Success)
	s.Require().Len(s.backendMock.Events(), 1)
	s.Equal("record_medication", s.backendMock.Events()[0].Action)

	rec = s.do(http.MethodPost, "/v1/intents/confirm", map[string]string{"pending_id": first.PendingID})
	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "Pending intent not found or expired")

	rec = s.do(http.MethodPost, "/v1/intents/reject", map[string]string{"pending_id": second.PendingID})
	s.Equal(http.StatusOK, rec.Code)
	rejected := decode[RejectResponse](s, rec)
	s.Equal("Intent rejected and removed", rejected.Message)
	s.Equal("SLEEP", rejected.Rejected.Domain)

	rec = s.do(http.MethodGet, "/v1/intents/pending", nil)
	s.Equal(0, decode[PendingListResponse](s, rec).Count)
}

func (s *HandlerSuite) TestPendingActions_BadInput() {
	rec := s.do(http.MethodPost, "/v1/intents/confirm", map[string]string{"pending_id": ""})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "pending_id is required")

	rec = s.do(http.MethodPost, "/v1/intents/reject", map[string]string{"pending_id": "not-a-uuid"})
	testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "bad_request")

	rec = s.do(http.MethodPost, "/v1/intents/preview", map[string]any{"facts": []map[string]any{
		{"subjects": []string{"Zoé"}, "dimension": "SLEEP_STATE", "value": "ASLEEP"},
	}})
	s.Equal(http.StatusNotFound, rec.Code)
	result := decode[models.ProcessingResult](s, rec)
	s.Equal("Child not found: Zoé", result.Message)
}

func (s *HandlerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusOK, rec.Code)
	resp := decode[HealthResponse](s, rec)
	s.Equal("ok", resp.Status)
	s.Equal(ServiceName, resp.Service)
	s.True(resp.BackendAvailable)
	s.Equal(s.backendSrv.URL, resp.BackendURL)

	s.backendSrv.Close()
	resp = decode[HealthResponse](s, s.do(http.MethodGet, "/health", nil))
	s.Equal("degraded", resp.Status)
	s.False(resp.BackendAvailable)
}

func (s *HandlerSuite) TestAdminAudit() {
	s.do(http.MethodPost, "/v1/facts", map[string]any{
		"subjects": []string{"Gabriel"}, "dimension": "CHILD_MOOD", "value": "HAPPY",
	})
	s.do(http.MethodPost, "/v1/facts", map[string]any{
		"subjects": []string{"Gabriel"}, "dimension": "CHILD_MOOD", "value": "ANGRY",
	})

	rec := s.do(http.MethodGet, "/admin/audit", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/admin/audit?limit=0", nil, "X-Admin-Token", "admin-secret")
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/admin/audit?limit=10", nil, "X-Admin-Token", "admin-secret")
	s.Equal(http.StatusOK, rec.Code)
	resp := decode[AuditListResponse](s, rec)
	s.Require().Equal(2, resp.Count)
	s.Equal("intent_failed", resp.Events[0].Action)
	s.Equal("INVALID_VALUE", resp.Events[0].Reason)
	s.Equal("intent_recorded", resp.Events[1].Action)
	s.Equal("compliance", resp.Events[1].Category)
	s.NotEmpty(resp.Events[1].RequestID)
}

func (s *HandlerSuite) TestAuditRecordsCaller() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/facts", map[string]any{
		"subjects": []string{"Léa"}, "dimension": "DIAPER_CHANGE_TYPE", "value": "WET",
	})
	req = testutil.WithCaller(req, "caregiver-3", "creche-sud")
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), "192.0.2.44", "speechact-app/1.0"))
	rec := testutil.DoRequest(s.router, req)
	s.Equal(http.StatusOK, rec.Code)

	events, err := s.auditStore.ListAll(s.T().Context())
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("caregiver-3", events[0].ActorID)
	s.Equal("creche-sud", events[0].Facility)
	s.Equal("192.0.2.44", events[0].IP)
	s.Equal("speechact-app/1.0", events[0].UserAgent)
	s.Equal(int64(456), events[0].ChildID)
}
