package session

import (
	"context"
	"sync"
	"time"

	"carebridge/internal/apperr"
	"carebridge/internal/model"
)

// MemoryStore keeps sessions in process. Used for tests and single-instance
// development setups.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.Session)}
}

func (s *MemoryStore) Save(_ context.Context, sess model.Session) error {
	sess.Token = ""
	s.mu.Lock()
	s.sessions[sess.TokenHash] = sess
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, tokenHash string) (model.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[tokenHash]
	s.mu.RUnlock()
	if !ok {
		return model.Session{}, apperr.ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	delete(s.sessions, tokenHash)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Prune(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned int64
	for hash, sess := range s.sessions {
		if !before.Before(sess.ExpiresAt) {
			delete(s.sessions, hash)
			pruned++
		}
	}
	return pruned, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
