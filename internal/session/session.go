// Package session issues and resolves server-side login sessions.
//
// A Manager binds a copy of the authenticated user to an opaque token. The
// token is handed to the client once; stores only ever see its SHA-256 hash.
// Expiry is checked when a token is looked up, so stores do not need to
// sweep expired entries for correctness.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"carebridge/internal/apperr"
	"carebridge/internal/crypto"
	"carebridge/internal/model"
)

// Store persists sessions keyed by token hash. Get returns apperr.ErrNotFound
// for unknown hashes and Delete is a no-op for them.
type Store interface {
	Save(ctx context.Context, sess model.Session) error
	Get(ctx context.Context, tokenHash string) (model.Session, error)
	Delete(ctx context.Context, tokenHash string) error
}

// Pruner is implemented by stores that keep expired rows around until
// something deletes them.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(store Store, ttl time.Duration, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start issues a new session for user. Existing sessions of the same user
// are left alone.
func (m *Manager) Start(ctx context.Context, user model.User) (model.Session, error) {
	token, err := crypto.NewSessionToken()
	if err != nil {
		return model.Session{}, err
	}
	now := m.now()
	sess := model.Session{
		Token:     token,
		TokenHash: crypto.HashToken(token),
		User:      user.Snapshot(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return model.Session{}, apperr.Store("save session", err)
	}
	return sess, nil
}

// Lookup returns nil for unknown and expired tokens.
func (m *Manager) Lookup(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, nil
	}
	hash := crypto.HashToken(token)
	sess, err := m.store.Get(ctx, hash)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		return nil, apperr.Store("get session", err)
	}
	if sess.Expired(m.now()) {
		if err := m.store.Delete(ctx, hash); err != nil {
			m.logger.Warn("expired session delete failed", "error", err)
		}
		return nil, nil
	}
	sess.Token = token
	return &sess, nil
}

// End removes the session for token. Unknown or already ended tokens are
// not an error.
func (m *Manager) End(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := m.store.Delete(ctx, crypto.HashToken(token)); err != nil {
		return apperr.Store("delete session", err)
	}
	return nil
}
