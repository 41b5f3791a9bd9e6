package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-interviewer/internal/interview"
)

const (
	recordKeyPrefix = "interview:"
	defaultTTL      = 24 * time.Hour
)

// RedisStore keeps session records in Redis so status and results
// survive a restart and can be read by multiple instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) SaveStatus(ctx context.Context, rec Record) error {
	existing, err := s.Get(ctx, rec.SessionID)
	if err != nil && err != ErrNotFound {
		return err
	}
	if existing != nil {
		rec.Result = existing.Result
	}
	rec.UpdatedAt = time.Now()
	return s.set(ctx, &rec)
}

func (s *RedisStore) SaveResult(ctx context.Context, sessionID string, payload interview.HandoffPayload) error {
	rec, err := s.Get(ctx, sessionID)
	if err == ErrNotFound {
		rec = &Record{SessionID: sessionID}
	} else if err != nil {
		return err
	}
	rec.Result = &payload
	rec.UpdatedAt = time.Now()
	return s.set(ctx, rec)
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var rec Record
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) set(ctx context.Context, rec *Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.client.Set(ctx, s.key(rec.SessionID), val, s.ttl).Err()
}

func (s *RedisStore) key(sessionID string) string {
	return recordKeyPrefix + sessionID
}
