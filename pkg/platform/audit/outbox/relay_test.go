package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"speechact/internal/platform/kafka"
	"speechact/pkg/platform/audit/store/postgres"
)

type fakeSource struct {
	mu        sync.Mutex
	entries   []postgres.Entry
	published []uuid.UUID
	fetchErr  error
}

func (f *fakeSource) FetchUnpublished(_ context.Context, limit int) ([]postgres.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	var out []postgres.Entry
	for _, e := range f.entries {
		if len(out) == limit {
			break
		}
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeSource) MarkPublished(_ context.Context, ids []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, ids...)
	done := map[uuid.UUID]bool{}
	for _, id := range ids {
		done[id] = true
	}
	kept := f.entries[:0]
	for _, e := range f.entries {
		if !done[e.ID] {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return nil
}

func (f *fakeSource) publishedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published)
}

type fakeSink struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeSink) Publish(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func entry(aggregate string) postgres.Entry {
	return postgres.Entry{
		ID:          uuid.New(),
		AggregateID: aggregate,
		EventType:   "intent_recorded",
		Payload:     []byte(`{"action":"intent_recorded"}`),
		CreatedAt:   time.Now(),
	}
}

func TestRelay_RunOnce(t *testing.T) {
	t.Run("publishes in order and marks rows", func(t *testing.T) {
		src := &fakeSource{entries: []postgres.Entry{entry("123"), entry("456")}}
		sink := &fakeSink{}
		relay := New(src, sink)

		n, err := relay.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		require.Len(t, sink.msgs, 2)
		assert.Equal(t, []byte("123"), sink.msgs[0].Key)
		assert.Equal(t, "intent_recorded", sink.msgs[0].Headers["event_type"])
		assert.Len(t, src.published, 2)
		assert.Empty(t, src.entries)
	})

	t.Run("respects batch size", func(t *testing.T) {
		src := &fakeSource{entries: []postgres.Entry{entry("1"), entry("2"), entry("3")}}
		relay := New(src, &fakeSink{}, WithBatchSize(2))

		n, err := relay.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Len(t, src.entries, 1)
	})

	t.Run("sink failure leaves rows unpublished", func(t *testing.T) {
		src := &fakeSource{entries: []postgres.Entry{entry("1")}}
		relay := New(src, &fakeSink{err: errors.New("broker down")})

		n, err := relay.RunOnce(context.Background())
		require.Error(t, err)
		assert.Zero(t, n)
		assert.Empty(t, src.published)
		assert.Len(t, src.entries, 1)
	})

	t.Run("empty outbox is a no-op", func(t *testing.T) {
		sink := &fakeSink{}
		n, err := New(&fakeSource{}, sink).RunOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
		assert.Empty(t, sink.msgs)
	})

	t.Run("fetch failure is returned", func(t *testing.T) {
		_, err := New(&fakeSource{fetchErr: errors.New("conn reset")}, &fakeSink{}).RunOnce(context.Background())
		assert.EqualError(t, err, "conn reset")
	})
}

func TestRelay_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	src := &fakeSource{entries: []postgres.Entry{entry("1")}}
	sink := &fakeSink{}
	relay := New(src, sink, WithInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool { return src.publishedCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
