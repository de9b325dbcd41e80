// Package store holds pending intents awaiting caregiver confirmation.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"speechact/internal/intent/models"
	"speechact/pkg/domain"
	"speechact/pkg/platform/sentinel"
)

// Error Contract:
// - Find returns an error wrapping sentinel.ErrNotFound for unknown or expired ids
// - Delete of an unknown id returns sentinel.ErrNotFound
// - Take is Find plus Delete in one step; only one concurrent caller wins
// - List never returns expired entries

// InMemoryStore keeps pending intents in a map. Expired entries are invisible
// to readers and removed by DeleteExpired.
type InMemoryStore struct {
	mu      sync.RWMutex
	pending map[domain.PendingID]*models.PendingIntent
	now     func() time.Time
}

// InMemoryOption configures an InMemoryStore.
type InMemoryOption func(*InMemoryStore)

// WithClock overrides the clock used to evaluate expiry.
func WithClock(now func() time.Time) InMemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInMemory constructs an empty in-memory pending store.
func NewInMemory(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		pending: make(map[domain.PendingID]*models.PendingIntent),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Save(_ context.Context, intent *models.PendingIntent) error {
	stored := *intent
	stored.Contract = intent.Contract.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[intent.ID] = &stored
	return nil
}

func (s *InMemoryStore) Find(_ context.Context, id domain.PendingID) (*models.PendingIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	intent, ok := s.pending[id]
	if !ok || intent.IsExpired(s.now()) {
		return nil, fmt.Errorf("pending intent %s: %w", id, sentinel.ErrNotFound)
	}
	out := *intent
	out.Contract = intent.Contract.Clone()
	return &out, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id domain.PendingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[id]; !ok {
		return fmt.Errorf("pending intent %s: %w", id, sentinel.ErrNotFound)
	}
	delete(s.pending, id)
	return nil
}

func (s *InMemoryStore) Take(_ context.Context, id domain.PendingID) (*models.PendingIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.pending[id]
	if !ok || intent.IsExpired(s.now()) {
		return nil, fmt.Errorf("pending intent %s: %w", id, sentinel.ErrNotFound)
	}
	delete(s.pending, id)
	return intent, nil
}

// List returns live intents, oldest first.
func (s *InMemoryStore) List(_ context.Context) ([]*models.PendingIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]*models.PendingIntent, 0, len(s.pending))
	for _, intent := range s.pending {
		if intent.IsExpired(now) {
			continue
		}
		cp := *intent
		cp.Contract = intent.Contract.Clone()
		out = append(out, &cp)
	}
	sortByCreated(out)
	return out, nil
}

// DeleteExpired removes expired intents and reports how many were dropped.
func (s *InMemoryStore) DeleteExpired(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, intent := range s.pending {
		if intent.IsExpired(now) {
			delete(s.pending, id)
			removed++
		}
	}
	return removed, nil
}

func sortByCreated(intents []*models.PendingIntent) {
	sort.SliceStable(intents, func(i, j int) bool {
		if intents[i].CreatedAt.Equal(intents[j].CreatedAt) {
			return intents[i].ID.String() < intents[j].ID.String()
		}
		return intents[i].CreatedAt.Before(intents[j].CreatedAt)
	})
}
