package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	request "speechact/pkg/platform/middleware/request"
	"speechact/pkg/requestcontext"
)

// JWTValidator defines the interface for validating JWT tokens
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator
type JWTClaims struct {
	CallerID string
	Facility string
	JTI      string
}

// FailureHook observes rejected requests, e.g. to write a security audit event.
type FailureHook func(ctx context.Context, reason string)

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller on the request context. onFailure may be nil.
func RequireAuth(validator JWTValidator, logger *slog.Logger, onFailure FailureHook) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reject := func(reason, description string, attrs ...any) {
				logger.WarnContext(ctx, "unauthorized access - "+reason,
					append(attrs, "request_id", request.GetRequestID(ctx))...,
				)
				if onFailure != nil {
					onFailure(ctx, reason)
				}
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", description)
			}

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				reject("missing token", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				reject("invalid token", "Invalid or expired token", "error", err)
				return
			}

			ctx = requestcontext.WithCaller(ctx, claims.CallerID, claims.Facility)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
