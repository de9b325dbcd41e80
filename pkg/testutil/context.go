package testutil

import (
	"net/http"

	"speechact/pkg/requestcontext"
)

// WithCaller puts an authenticated caller on the request context, as the auth
// middleware would after validating a bearer token.
func WithCaller(req *http.Request, callerID, facility string) *http.Request {
	return req.WithContext(requestcontext.WithCaller(req.Context(), callerID, facility))
}
