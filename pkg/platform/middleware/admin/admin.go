// Package admin guards the operator-only routes.
package admin

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "speechact/pkg/domain-errors"
	"speechact/pkg/platform/httputil"
	request "speechact/pkg/platform/middleware/request"
)

// HeaderAdminToken carries the shared operator secret.
const HeaderAdminToken = "X-Admin-Token"

var errAdminToken = dErrors.New(dErrors.CodeUnauthorized, "admin token required")

// denyReason explains why a presented token was refused, or "" when it matches.
func denyReason(expected, presented string) string {
	switch {
	case expected == "":
		return "admin token not configured"
	case presented == "":
		return "admin token missing"
	case subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1:
		return "admin token mismatch"
	}
	return ""
}

// RequireAdminToken lets a request through only when HeaderAdminToken equals
// expectedToken. An empty expectedToken closes the route entirely.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reason := denyReason(expectedToken, r.Header.Get(HeaderAdminToken)); reason != "" {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin request denied",
					"reason", reason,
					"path", r.URL.Path,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, errAdminToken)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
