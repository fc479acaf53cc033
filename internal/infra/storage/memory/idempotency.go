package memory

import (
	"context"
	"sync"
	"time"

	"roomledger/internal/app/middleware"
)

// IdempotencyStore remembers confirm and cancel results per Idempotency-Key.
// Records older than ttl read as absent until Purge drops them; ttl <= 0
// keeps them for the life of the process.
type IdempotencyStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	results map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, results: map[string]middleware.IdempotencyRecord{}}
}

func (s *IdempotencyStore) expired(rec middleware.IdempotencyRecord) bool {
	return s.ttl > 0 && s.now().Sub(rec.OccurredAt) > s.ttl
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.results[key]
	if !ok || s.expired(rec) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	s.results[rec.Key] = rec
	s.mu.Unlock()
	return nil
}

// Purge drops expired records and reports how many went.
func (s *IdempotencyStore) Purge(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for key, rec := range s.results {
		if s.expired(rec) {
			delete(s.results, key)
			n++
		}
	}
	return n, nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
