// Package identity stores credentials and authenticates users.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"carebridge/internal/apperr"
	"carebridge/internal/crypto"
	"carebridge/internal/model"
)

const minPasswordLength = 6

// UserStore is the Credential Store. CreateUser must return
// apperr.ErrConflict when the email is already taken, and the lookups return
// apperr.ErrNotFound for unknown users.
type UserStore interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user model.User) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id string) (model.User, error)
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

type Service struct {
	users  UserStore
	cost   int
	logger *slog.Logger
	now    func() time.Time

	// dummyHash keeps unknown-email logins as slow as wrong-password ones.
	dummyHash string
}

func NewService(users UserStore, bcryptCost int, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	dummy, err := crypto.HashPassword("carebridge-dummy-password", bcryptCost)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:     users,
		cost:      bcryptCost,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
		dummyHash: dummy,
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	exists, err := s.users.EmailExists(ctx, NormalizeEmail(email))
	if err != nil {
		return false, apperr.Store("email exists", err)
	}
	return exists, nil
}

// Register validates the input, rejects taken emails and persists a new user
// with a bcrypt hash of the password. It returns the new user id.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	user, err := s.validateRegistration(in)
	if err != nil {
		return "", err
	}

	exists, err := s.EmailExists(ctx, user.Email)
	if err != nil {
		return "", err
	}
	if exists {
		return "", apperr.ErrConflict
	}

	hash, err := crypto.HashPassword(in.Password, s.cost)
	if err != nil {
		return "", err
	}
	user.PasswordHash = hash

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return "", apperr.ErrConflict
		}
		return "", apperr.Store("create user", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user.ID, nil
}

func (s *Service) validateRegistration(in RegisterInput) (model.User, error) {
	var verrs apperr.ValidationErrors

	firstName := strings.TrimSpace(in.FirstName)
	lastName := strings.TrimSpace(in.LastName)
	email := NormalizeEmail(in.Email)

	if firstName == "" {
		verrs.Add("firstname", "First name is required")
	}
	if lastName == "" {
		verrs.Add("lastname", "Last name is required")
	}
	if !validEmail(email) {
		verrs.Add("email", "Valid email is required")
	}
	if len(in.Password) < minPasswordLength {
		verrs.Add("password", "Password must be at least 6 characters")
	} else if len(in.Password) > crypto.MaxPasswordBytes {
		verrs.Add("password", "Password must be at most 72 bytes")
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		verrs.Add("role", "Role must be either elderly or staff")
	}
	if err := verrs.Err(); err != nil {
		return model.User{}, err
	}

	return model.User{
		ID:        uuid.NewString(),
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Role:      role,
		CreatedAt: s.now(),
	}, nil
}

// Authenticate returns the user whose credentials match. Unknown email and
// wrong password both yield apperr.ErrInvalidCredentials; the reason is only
// logged.
func (s *Service) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return model.User{}, apperr.ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			_ = crypto.CheckPassword(s.dummyHash, password)
			s.logger.Debug("login rejected", "reason", "unknown_email")
			return model.User{}, apperr.ErrInvalidCredentials
		}
		return model.User{}, apperr.Store("get user by email", err)
	}

	if err := crypto.CheckPassword(user.PasswordHash, password); err != nil {
		s.logger.Debug("login rejected", "reason", "password_mismatch", "user_id", user.ID)
		return model.User{}, apperr.ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) User(ctx context.Context, id string) (model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return model.User{}, apperr.Store("get user by id", err)
	}
	return user, nil
}

func validEmail(email string) bool {
	if email == "" || strings.ContainsAny(email, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}
