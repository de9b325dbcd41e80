package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"speechact/internal/intent/handler"
	"speechact/internal/platform/metrics"
	authmw "speechact/pkg/platform/middleware/auth"
	"speechact/pkg/platform/middleware/metadata"
	request "speechact/pkg/platform/middleware/request"
	"speechact/pkg/platform/middleware/requesttime"
)

// Deps collects what the router mounts. Auth is optional: a nil Validator
// leaves /v1 open, which is only meant for local development.
type Deps struct {
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	Intents     *handler.Handler
	Health      *handler.HealthHandler
	Audit       *handler.AuditHandler
	Validator   authmw.JWTValidator
	OnAuthError authmw.FailureHook
}

// NewRouter wires every public endpoint behind the shared middleware stack.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recover(d.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	d.Health.Register(r)
	r.Handle("/metrics", metrics.Handler())
	if d.Audit != nil {
		d.Audit.Register(r)
	}

	r.Group(func(r chi.Router) {
		if d.Validator != nil {
			r.Use(authmw.RequireAuth(d.Validator, d.Logger, d.OnAuthError))
		}
		d.Intents.Register(r)
	})
	return r
}
