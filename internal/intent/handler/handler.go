package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"speechact/internal/intent/models"
	"speechact/pkg/domain"
	dErrors "speechact/pkg/domain-errors"
	"speechact/pkg/platform/httputil"
	request "speechact/pkg/platform/middleware/request"
)

// Service defines the interface for the fact pipeline.
type Service interface {
	Process(ctx context.Context, raws []models.RawFact) (*models.ProcessingResult, error)
	Preview(ctx context.Context, raws []models.RawFact) (*models.PendingIntent, error)
	Confirm(ctx context.Context, id domain.PendingID) (*models.ProcessingResult, error)
	Reject(ctx context.Context, id domain.PendingID) (*models.PendingIntent, error)
	ListPending(ctx context.Context) ([]*models.PendingIntent, error)
}

// Handler handles the fact and pending intent endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new intent Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the /v1 routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/facts", h.HandleProcessFact)
	r.Post("/v1/facts/batch", h.HandleProcessBatch)
	r.Get("/v1/dimensions", h.HandleDimensions)
	r.Post("/v1/intents/preview", h.HandlePreview)
	r.Get("/v1/intents/pending", h.HandleListPending)
	r.Post("/v1/intents/confirm", h.HandleConfirm)
	r.Post("/v1/intents/reject", h.HandleReject)
}

// HandleProcessFact runs the pipeline for a single fact.
func (h *Handler) HandleProcessFact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[FactRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.Process(ctx, []models.RawFact{req.toRaw()})
	h.writeProcessed(w, result, err)
}

// HandleProcessBatch runs the pipeline for several facts about one event.
func (h *Handler) HandleProcessBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.Process(ctx, req.toRaw())
	h.writeProcessed(w, result, err)
}

func (h *Handler) writeProcessed(w http.ResponseWriter, result *models.ProcessingResult, err error) {
	if err != nil {
		httputil.WriteJSON(w, httputil.StatusForCode(dErrors.CodeOf(err)), result)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleDimensions advertises every dimension and its allowed values.
func (h *Handler) HandleDimensions(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toDimensionsResponse(domain.Schema()))
}

// HandlePreview validates and maps a batch, holding the contract for
// confirmation.
func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	raws := req.toRaw()
	intent, err := h.service.Preview(ctx, raws)
	if err != nil {
		if isTransportCode(err) {
			h.logger.ErrorContext(ctx, "failed to preview facts",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, httputil.StatusForCode(dErrors.CodeOf(err)), models.NewFailureResult(err, firstSubject(raws)))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, PreviewResponse{
		Success:   true,
		Stage:     "pending_confirmation",
		PendingID: intent.ID.String(),
		ExpiresAt: intent.ExpiresAt,
		Preview:   intent.Preview,
		Contract:  intent.Contract,
	})
}

// HandleListPending lists intents awaiting confirmation.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	intents, err := h.service.ListPending(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list pending intents",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := PendingListResponse{Count: len(intents), Pending: make([]PendingSummary, len(intents))}
	for i, p := range intents {
		resp.Pending[i] = toPendingSummary(p)
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleConfirm records a pending intent in the backend.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PendingActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Confirm(ctx, req.id)
	if err != nil && result == nil {
		h.logger.WarnContext(ctx, "failed to confirm pending intent",
			"request_id", requestID,
			"pending_id", req.PendingID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.writeProcessed(w, result, err)
}

// HandleReject discards a pending intent.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[PendingActionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	intent, err := h.service.Reject(ctx, req.id)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to reject pending intent",
			"request_id", requestID,
			"pending_id", req.PendingID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RejectResponse{
		Success:  true,
		Message:  "Intent rejected and removed",
		Rejected: toPendingSummary(intent),
	})
}

// isTransportCode reports errors that never came from the pipeline taxonomy.
func isTransportCode(err error) bool {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeBadRequest, dErrors.CodeNotFound, dErrors.CodeUnauthorized, dErrors.CodeInternal:
		return true
	}
	return false
}

func firstSubject(raws []models.RawFact) string {
	if len(raws) == 0 || len(raws[0].Subjects) == 0 {
		return ""
	}
	return strings.TrimSpace(raws[0].Subjects[0])
}
