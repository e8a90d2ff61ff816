package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"carebridge/internal/apperr"
	"carebridge/internal/crypto"
	"carebridge/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testUser() model.User {
	return model.User{
		ID:           "user-1",
		FirstName:    "Ada",
		LastName:     "Lovelace",
		Email:        "ada@example.com",
		PasswordHash: "hash",
		Role:         model.RoleElderly,
	}
}

func newTestManager(store Store) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	return NewManager(store, time.Hour, WithClock(clock.Now)), clock
}

func TestStartBindsSnapshot(t *testing.T) {
	store := NewMemoryStore()
	manager, clock := newTestManager(store)
	ctx := context.Background()

	user := testUser()
	sess, err := manager.Start(ctx, user)
	if err != nil {
		t.Fatalf("start error: %v", err)
	}
	if sess.Token == "" || sess.TokenHash != crypto.HashToken(sess.Token) {
		t.Fatalf("expected token and matching hash")
	}
	if sess.User != user.Snapshot() {
		t.Fatalf("unexpected snapshot: %+v", sess.User)
	}
	if !sess.ExpiresAt.Equal(clock.Now().Add(time.Hour)) {
		t.Fatalf("unexpected expiry %s", sess.ExpiresAt)
	}

	stored, err := store.Get(ctx, sess.TokenHash)
	if err != nil {
		t.Fatalf("store get error: %v", err)
	}
	if stored.Token != "" {
		t.Fatalf("expected raw token not to be stored")
	}

	// Later changes to the user do not leak into the session.
	user.FirstName = "Changed"
	found, err := manager.Lookup(ctx, sess.Token)
	if err != nil || found == nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if found.User.FirstName != "Ada" {
		t.Fatalf("expected snapshot to be a copy")
	}
}

func TestLookupUnknownAndEmpty(t *testing.T) {
	manager, _ := newTestManager(NewMemoryStore())
	ctx := context.Background()

	for _, token := range []string{"", "does-not-exist"} {
		sess, err := manager.Lookup(ctx, token)
		if err != nil {
			t.Fatalf("lookup error: %v", err)
		}
		if sess != nil {
			t.Fatalf("expected nil session for %q", token)
		}
	}
}

func TestLookupExpiresLazily(t *testing.T) {
	store := NewMemoryStore()
	manager, clock := newTestManager(store)
	ctx := context.Background()

	sess, err := manager.Start(ctx, testUser())
	if err != nil {
		t.Fatalf("start error: %v", err)
	}

	clock.Advance(59 * time.Minute)
	if found, _ := manager.Lookup(ctx, sess.Token); found == nil {
		t.Fatalf("expected session before expiry")
	}

	clock.Advance(time.Minute)
	found, err := manager.Lookup(ctx, sess.Token)
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if found != nil {
		t.Fatalf("expected expired session to be rejected")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired session to be dropped at lookup")
	}
}

func TestEndIsIdempotent(t *testing.T) {
	manager, _ := newTestManager(NewMemoryStore())
	ctx := context.Background()

	sess, err := manager.Start(ctx, testUser())
	if err != nil {
		t.Fatalf("start error: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := manager.End(ctx, sess.Token); err != nil {
			t.Fatalf("end error: %v", err)
		}
	}
	if err := manager.End(ctx, "unknown"); err != nil {
		t.Fatalf("end unknown error: %v", err)
	}
	if found, _ := manager.Lookup(ctx, sess.Token); found != nil {
		t.Fatalf("expected ended session to be gone")
	}
}

func TestSessionIsolation(t *testing.T) {
	manager, _ := newTestManager(NewMemoryStore())
	ctx := context.Background()
	user := testUser()

	first, err := manager.Start(ctx, user)
	if err != nil {
		t.Fatalf("start error: %v", err)
	}
	second, err := manager.Start(ctx, user)
	if err != nil {
		t.Fatalf("start error: %v", err)
	}
	if first.Token == second.Token {
		t.Fatalf("expected a new token per login")
	}

	if err := manager.End(ctx, first.Token); err != nil {
		t.Fatalf("end error: %v", err)
	}
	if found, _ := manager.Lookup(ctx, first.Token); found != nil {
		t.Fatalf("expected first session ended")
	}
	if found, _ := manager.Lookup(ctx, second.Token); found == nil {
		t.Fatalf("expected second session to survive")
	}
}

func TestConcurrentLookups(t *testing.T) {
	manager, _ := newTestManager(NewMemoryStore())
	ctx := context.Background()

	tokens := make([]string, 8)
	for i := range tokens {
		sess, err := manager.Start(ctx, testUser())
		if err != nil {
			t.Fatalf("start error: %v", err)
		}
		tokens[i] = sess.Token
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(tokens)*10)
	for _, token := range tokens {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(token string) {
				defer wg.Done()
				sess, err := manager.Lookup(ctx, token)
				if err != nil {
					errs <- err
					return
				}
				if sess == nil {
					errs <- errors.New("missing session")
				}
			}(token)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent lookup: %v", err)
	}
}

type failingStore struct{ *MemoryStore }

func (failingStore) Get(context.Context, string) (model.Session, error) {
	return model.Session{}, errors.New("connection reset")
}

func TestLookupSurfacesStoreErrors(t *testing.T) {
	manager, _ := newTestManager(failingStore{MemoryStore: NewMemoryStore()})
	_, err := manager.Lookup(context.Background(), "token")
	var storeErr *apperr.StoreError
	if !errors.As(err, &storeErr) {
		t.Fatalf("expected StoreError, got %v", err)
	}
}

func TestMemoryStorePrune(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = store.Save(ctx, model.Session{TokenHash: "old", ExpiresAt: base})
	_ = store.Save(ctx, model.Session{TokenHash: "new", ExpiresAt: base.Add(time.Hour)})

	pruned, err := store.Prune(ctx, base)
	if err != nil {
		t.Fatalf("prune error: %v", err)
	}
	if pruned != 1 || store.Len() != 1 {
		t.Fatalf("expected one pruned session, got %d (left %d)", pruned, store.Len())
	}
	if _, err := store.Get(ctx, "old"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected old session pruned")
	}
}
