package identity

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"carebridge/internal/apperr"
	"carebridge/internal/crypto"
	"carebridge/internal/model"
	"carebridge/internal/repository/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), sqlite.Config{
		Path: filepath.Join(t.TempDir(), "identity.db"),
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	svc, err := NewService(store, bcrypt.MinCost, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func validInput() RegisterInput {
	return RegisterInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "secret1",
		Role:      "elderly",
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, validInput())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if id == "" {
		t.Fatalf("expected a user id")
	}

	stored, err := store.GetUserByID(ctx, id)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.PasswordHash == "secret1" || crypto.CheckPassword(stored.PasswordHash, "secret1") != nil {
		t.Fatalf("expected a bcrypt hash of the password, got %q", stored.PasswordHash)
	}

	user, err := svc.Authenticate(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != id || user.Role != model.RoleElderly || user.FirstName != "Ada" {
		t.Fatalf("unexpected user %+v", user)
	}

	// Email lookups are case-insensitive.
	if _, err := svc.Authenticate(ctx, "  ADA@example.com ", "secret1"); err != nil {
		t.Fatalf("authenticate with mixed case: %v", err)
	}
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, validInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	cases := map[string][2]string{
		"wrong password": {"ada@example.com", "wrong-password"},
		"unknown email":  {"nobody@example.com", "secret1"},
		"empty password": {"ada@example.com", ""},
		"empty email":    {"", "secret1"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tc[0], tc[1])
			if !errors.Is(err, apperr.ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Register(ctx, validInput()); err != nil {
		t.Fatalf("register: %v", err)
	}

	dup := validInput()
	dup.Email = "ADA@example.com"
	dup.Role = "staff"
	if _, err := svc.Register(ctx, dup); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	exists, err := svc.EmailExists(ctx, "Ada@Example.com")
	if err != nil || !exists {
		t.Fatalf("expected email to exist (err %v)", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*RegisterInput)
		field  string
	}{
		{"empty first name", func(in *RegisterInput) { in.FirstName = "  " }, "firstname"},
		{"empty last name", func(in *RegisterInput) { in.LastName = "" }, "lastname"},
		{"malformed email", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"email without domain dot", func(in *RegisterInput) { in.Email = "a@localhost" }, "email"},
		{"short password", func(in *RegisterInput) { in.Password = "12345" }, "password"},
		{"long password", func(in *RegisterInput) { in.Password = strings.Repeat("x", 73) }, "password"},
		{"unknown role", func(in *RegisterInput) { in.Role = "admin" }, "role"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := svc.Register(ctx, in)
			var verrs apperr.ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected validation errors, got %v", err)
			}
			if len(verrs) != 1 || verrs[0].Field != tc.field {
				t.Fatalf("expected one error on %s, got %+v", tc.field, verrs)
			}
		})
	}

	exists, err := store.EmailExists(ctx, "ada@example.com")
	if err != nil || exists {
		t.Fatalf("rejected registrations must not create users (exists=%v, err=%v)", exists, err)
	}
}

func TestRegisterCollectsAllFieldErrors(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Register(context.Background(), RegisterInput{})
	var verrs apperr.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if len(verrs) != 5 {
		t.Fatalf("expected five field errors, got %+v", verrs)
	}
}

func TestUserNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.User(context.Background(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

type brokenStore struct{}

func (brokenStore) EmailExists(context.Context, string) (bool, error) {
	return false, errors.New("disk on fire")
}
func (brokenStore) CreateUser(context.Context, model.User) error { return errors.New("disk on fire") }
func (brokenStore) GetUserByEmail(context.Context, string) (model.User, error) {
	return model.User{}, errors.New("disk on fire")
}
func (brokenStore) GetUserByID(context.Context, string) (model.User, error) {
	return model.User{}, errors.New("disk on fire")
}

func TestStoreFailuresSurfaceAsStoreErrors(t *testing.T) {
	svc, err := NewService(brokenStore{}, bcrypt.MinCost, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	var storeErr *apperr.StoreError
	if _, err := svc.Register(ctx, validInput()); !errors.As(err, &storeErr) {
		t.Fatalf("register: expected StoreError, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ada@example.com", "secret1"); !errors.As(err, &storeErr) {
		t.Fatalf("authenticate: expected StoreError, got %v", err)
	}
}
