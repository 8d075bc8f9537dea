package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store. Expiry is evaluated lazily against an
// injectable clock, which makes TTL behavior testable without sleeping.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemoryStore returns an empty MemoryStore using the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

// WithClock replaces the clock used for expiry. Intended for tests.
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// live returns the entry for subject, dropping it when expired. Caller holds mu.
func (s *MemoryStore) live(subject string) (memoryEntry, bool) {
	e, ok := s.sessions[subject]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, subject)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) Put(ctx context.Context, subject, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[subject] = memoryEntry{token: token, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, subject string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(subject)
	if !ok {
		return "", ErrNotFound
	}
	return e.token, nil
}

func (s *MemoryStore) Delete(ctx context.Context, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, subject)
	return nil
}

// LookupByToken scans live sessions. The memory store is sized for tests and
// development, so a linear scan is acceptable.
func (s *MemoryStore) LookupByToken(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for subject := range s.sessions {
		if e, ok := s.live(subject); ok && e.token == token {
			return subject, nil
		}
	}
	return "", ErrNotFound
}

func (s *MemoryStore) Rotate(ctx context.Context, subject, expected, next string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(subject)
	if !ok {
		return ErrNotFound
	}
	if e.token != expected {
		return ErrMismatch
	}
	s.sessions[subject] = memoryEntry{token: next, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) DeleteIfMatch(ctx context.Context, subject, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(subject)
	if !ok || e.token != token {
		return false, nil
	}
	delete(s.sessions, subject)
	return true, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
