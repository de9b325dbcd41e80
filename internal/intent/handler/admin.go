package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "speechact/pkg/domain-errors"
	audit "speechact/pkg/platform/audit"
	"speechact/pkg/platform/httputil"
	"speechact/pkg/platform/middleware/admin"
	request "speechact/pkg/platform/middleware/request"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AuditLister reads back the audit trail.
type AuditLister interface {
	List(ctx context.Context, limit int) ([]audit.Event, error)
}

// AuditHandler exposes the recent audit trail to operators.
type AuditHandler struct {
	lister     AuditLister
	adminToken string
	logger     *slog.Logger
}

// NewAuditHandler creates an AuditHandler guarded by adminToken. An empty
// token rejects every request.
func NewAuditHandler(lister AuditLister, adminToken string, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{lister: lister, adminToken: adminToken, logger: logger}
}

func (h *AuditHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		r.Get("/admin/audit", h.HandleListAudit)
	})
}

// HandleListAudit returns the newest audit events first.
func (h *AuditHandler) HandleListAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = min(n, maxAuditLimit)
	}

	events, err := h.lister.List(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAuditListResponse(events))
}
