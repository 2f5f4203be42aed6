package tokenstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process fallback. Entries expire lazily on read.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]time.Time),
	}
}

func (s *MemoryStore) Add(_ context.Context, tokenHash string, ttl time.Duration) error {
	s.mu.Lock()
	s.tokens[tokenHash] = time.Now().Add(ttl)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Has(_ context.Context, tokenHash string) (bool, error) {
	s.mu.RLock()
	exp, ok := s.tokens[tokenHash]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if time.Now().After(exp) {
		s.mu.Lock()
		delete(s.tokens, tokenHash)
		s.mu.Unlock()

		return false, nil
	}

	return true, nil
}

func (s *MemoryStore) Remove(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	delete(s.tokens, tokenHash)
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.tokens = make(map[string]time.Time)
	s.mu.Unlock()

	return nil
}
