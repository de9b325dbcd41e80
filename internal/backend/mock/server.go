// Package mock is a development stand-in for the system of record. It
// accepts events without persisting them.
package mock

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Event is one accepted add_event call.
type Event struct {
	ChildID    int64             `json:"child_id"`
	Action     string            `json:"action"`
	Properties map[string]string `json:"properties"`
	MockID     string            `json:"mock_id"`
	ReceivedAt time.Time         `json:"received_at"`
}

// Server records accepted events in memory so tests can inspect them.
type Server struct {
	logger *slog.Logger
	now    func() time.Time

	mu     sync.Mutex
	events []Event
}

// Option configures the mock server.
type Option func(*Server)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func New(logger *slog.Logger, opts ...Option) *Server {
	s := &Server{logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the mock's HTTP surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)
	r.Post("/child/{childID}/add_event", s.handleAddEvent)
	r.Get("/events", s.handleListEvents)
	return r
}

// Events returns a copy of the accepted events.
func (s *Server) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type addEventRequest struct {
	Action     string            `json:"action"`
	Properties map[string]string `json:"properties"`
}

type addEventResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MockID    string `json:"mockId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	childID, err := strconv.ParseInt(chi.URLParam(r, "childID"), 10, 64)
	if err != nil || childID < 0 {
		writeJSON(w, http.StatusBadRequest, addEventResponse{Message: "invalid child id"})
		return
	}

	var req addEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, addEventResponse{Message: "invalid JSON body"})
		return
	}
	if !strings.HasPrefix(req.Action, "record_") {
		writeJSON(w, http.StatusBadRequest, addEventResponse{Message: fmt.Sprintf("unknown action %q", req.Action)})
		return
	}
	if len(req.Properties) == 0 {
		writeJSON(w, http.StatusBadRequest, addEventResponse{Message: "properties must not be empty"})
		return
	}

	now := s.now().UTC()
	event := Event{
		ChildID:    childID,
		Action:     req.Action,
		Properties: req.Properties,
		MockID:     "mock-" + uuid.NewString(),
		ReceivedAt: now,
	}
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()

	s.logger.InfoContext(r.Context(), "event accepted",
		"child_id", childID,
		"action", req.Action,
		"mock_id", event.MockID,
	)

	writeJSON(w, http.StatusOK, addEventResponse{
		Success:   true,
		Message:   fmt.Sprintf("Event %s created for child %d", req.Action, childID),
		MockID:    event.MockID,
		Timestamp: now.Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"service":   "backend-mock",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListEvents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"events": s.Events()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
