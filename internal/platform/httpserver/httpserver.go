// Package httpserver builds the *http.Server shared by the gateway binaries.
package httpserver

import (
	"net/http"
	"time"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 45 * time.Second
	defaultIdleTimeout       = 60 * time.Second

	// writeHeadroom is added on top of the upstream timeout so a slow backend
	// call surfaces as BACKEND_ERROR instead of a cut connection.
	writeHeadroom = 5 * time.Second
)

// Option adjusts the server before it is returned.
type Option func(*http.Server)

// WithUpstreamTimeout widens the write timeout to fit one upstream call.
// It never shrinks the default.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if want := d + writeHeadroom; want > s.WriteTimeout {
			s.WriteTimeout = want
		}
	}
}

// WithIdleTimeout overrides the keep-alive idle timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *http.Server) {
		if d > 0 {
			s.IdleTimeout = d
		}
	}
}

// New returns a server for handler listening on addr.
func New(addr string, handler http.Handler, opts ...Option) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}
