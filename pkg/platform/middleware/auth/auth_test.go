package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"speechact/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) {
	return s.claims, s.err
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var caller, facility string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller = requestcontext.CallerID(r.Context())
		facility = requestcontext.Facility(r.Context())
	})

	t.Run("valid token sets caller", func(t *testing.T) {
		v := stubValidator{claims: &JWTClaims{CallerID: "caregiver-7", Facility: "nursery-1"}}
		req := httptest.NewRequest(http.MethodPost, "/v1/facts", nil)
		req.Header.Set("Authorization", "Bearer good")
		rr := httptest.NewRecorder()

		RequireAuth(v, logger, nil)(next).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "caregiver-7", caller)
		assert.Equal(t, "nursery-1", facility)
	})

	t.Run("missing header", func(t *testing.T) {
		var reasons []string
		hook := func(_ context.Context, reason string) { reasons = append(reasons, reason) }
		rr := httptest.NewRecorder()

		RequireAuth(stubValidator{}, logger, hook)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/facts", nil))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.JSONEq(t, `{"error":"unauthorized","error_description":"Missing or invalid Authorization header"}`, rr.Body.String())
		assert.Equal(t, []string{"missing token"}, reasons)
	})

	t.Run("invalid token", func(t *testing.T) {
		var reasons []string
		hook := func(_ context.Context, reason string) { reasons = append(reasons, reason) }
		req := httptest.NewRequest(http.MethodPost, "/v1/facts", nil)
		req.Header.Set("Authorization", "Bearer bad")
		rr := httptest.NewRecorder()

		RequireAuth(stubValidator{err: errors.New("expired")}, logger, hook)(next).ServeHTTP(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, []string{"invalid token"}, reasons)
	})
}
