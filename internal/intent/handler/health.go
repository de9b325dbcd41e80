package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"speechact/pkg/platform/httputil"
)

// ServiceName identifies this gateway in health responses.
const ServiceName = "speechact-intent-gateway"

// BackendChecker is the part of the backend the health endpoint needs.
type BackendChecker interface {
	Health(ctx context.Context) error
	BaseURL() string
}

// HealthHandler reports gateway liveness and backend reachability.
type HealthHandler struct {
	backend BackendChecker
	logger  *slog.Logger
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler. The backend probe is bounded by
// a short timeout so /health stays responsive.
func NewHealthHandler(backend BackendChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{backend: backend, logger: logger, timeout: 2 * time.Second}
}

func (h *HealthHandler) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
}

// HandleHealth always answers 200; a backend outage shows up as
// status "degraded".
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{
		Status:           "ok",
		Service:          ServiceName,
		BackendAvailable: true,
		BackendURL:       h.backend.BaseURL(),
	}
	if err := h.backend.Health(ctx); err != nil {
		h.logger.WarnContext(ctx, "backend health check failed", "error", err)
		resp.Status = "degraded"
		resp.BackendAvailable = false
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
