package store

import (
	"context"
	"sync"
	"time"

	"ai-interviewer/internal/interview"
)

// MemoryStore is the default single-instance store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) SaveStatus(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.UpdatedAt = time.Now()
	if existing, ok := s.records[rec.SessionID]; ok {
		// A status write never erases a delivered result.
		rec.Result = existing.Result
	}
	s.records[rec.SessionID] = &rec
	return nil
}

func (s *MemoryStore) SaveResult(ctx context.Context, sessionID string, payload interview.HandoffPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sessionID]
	if !ok {
		rec = &Record{SessionID: sessionID}
		s.records[sessionID] = rec
	}
	rec.Result = &payload
	rec.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, sessionID)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}
