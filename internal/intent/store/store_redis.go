package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"speechact/internal/intent/models"
	"speechact/pkg/domain"
	"speechact/pkg/platform/sentinel"
)

const (
	// Redis key prefix for pending intents
	pendingKeyPrefix = "speechact:pending:"
	scanBatch        = 100
)

// RedisStore shares pending intents across gateway replicas. Each intent is a
// JSON string whose Redis TTL matches its ExpiresAt, so expiry needs no sweeper.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisClock overrides the clock used to compute key TTLs.
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedis constructs a Redis-backed pending store.
func NewRedis(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func pendingKey(id domain.PendingID) string {
	return pendingKeyPrefix + id.String()
}

func (s *RedisStore) Save(ctx context.Context, intent *models.PendingIntent) error {
	ttl := intent.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("pending intent %s already expired: %w", intent.ID, sentinel.ErrExpired)
	}
	payload, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("marshal pending intent: %w", err)
	}
	if err := s.client.Set(ctx, pendingKey(intent.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save pending intent: %w", err)
	}
	return nil
}

func (s *RedisStore) Find(ctx context.Context, id domain.PendingID) (*models.PendingIntent, error) {
	raw, err := s.client.Get(ctx, pendingKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pending intent %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pending intent: %w", err)
	}
	return decodePending(raw)
}

func (s *RedisStore) Delete(ctx context.Context, id domain.PendingID) error {
	n, err := s.client.Del(ctx, pendingKey(id)).Result()
	if err != nil {
		return fmt.Errorf("delete pending intent: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("pending intent %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

// Take claims an intent with GETDEL, so replicas racing on one id cannot
// both receive it.
func (s *RedisStore) Take(ctx context.Context, id domain.PendingID) (*models.PendingIntent, error) {
	raw, err := s.client.GetDel(ctx, pendingKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pending intent %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("take pending intent: %w", err)
	}
	return decodePending(raw)
}

// List scans the key space; keys that expire mid-scan are skipped.
func (s *RedisStore) List(ctx context.Context) ([]*models.PendingIntent, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pendingKeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan pending intents: %w", err)
	}
	if len(keys) == 0 {
		return []*models.PendingIntent{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget pending intents: %w", err)
	}

	out := make([]*models.PendingIntent, 0, len(values))
	for _, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		intent, err := decodePending([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, intent)
	}
	sortByCreated(out)
	return out, nil
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func decodePending(raw []byte) (*models.PendingIntent, error) {
	var intent models.PendingIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("decode pending intent: %w", err)
	}
	return &intent, nil
}
