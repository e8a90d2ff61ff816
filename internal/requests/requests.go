// Package requests implements the request lifecycle: elderly users file
// requests, staff triage them.
package requests

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"carebridge/internal/apperr"
	"carebridge/internal/guard"
	"carebridge/internal/model"
	"carebridge/internal/triage"
)

const maxDescriptionLength = 2000

// Store persists requests. The three mutations touch a single row and return
// apperr.ErrNotFound when no row has the given id.
type Store interface {
	CreateRequest(ctx context.Context, req model.Request) error
	ListRequestsByOwner(ctx context.Context, userID string) ([]model.Request, error)
	ListRequests(ctx context.Context) ([]model.Request, error)
	MarkRequestFulfilled(ctx context.Context, id string) error
	MarkRequestImportant(ctx context.Context, id string) error
	DeleteRequest(ctx context.Context, id string) error
}

type CreateInput struct {
	Description string
}

// Op names a staff mutation, for logging and metrics.
type Op string

const (
	OpFulfill   Op = "fulfill"
	OpImportant Op = "important"
	OpDelete    Op = "delete"
)

// Observer is told about the outcome of each staff mutation.
type Observer func(op Op, err error)

type Service struct {
	store    Store
	logger   *slog.Logger
	now      func() time.Time
	newID    func() (string, error)
	observer Observer
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithObserver(observer Observer) Option {
	return func(s *Service) { s.observer = observer }
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID: func() (string, error) {
			id, err := uuid.NewV7()
			if err != nil {
				return "", err
			}
			return id.String(), nil
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create files a new pending request owned by the session's user.
func (s *Service) Create(ctx context.Context, sess *model.Session, in CreateInput) (model.Request, error) {
	user, err := guard.RequireRole(sess, model.RoleElderly)
	if err != nil {
		return model.Request{}, err
	}

	description := strings.TrimSpace(in.Description)
	var verrs apperr.ValidationErrors
	if description == "" {
		verrs.Add("description", "Description is required")
	} else if utf8.RuneCountInString(description) > maxDescriptionLength {
		verrs.Add("description", "Description must be at most 2000 characters")
	}
	if err := verrs.Err(); err != nil {
		return model.Request{}, err
	}

	id, err := s.newID()
	if err != nil {
		return model.Request{}, err
	}
	req := model.Request{
		ID:          id,
		UserID:      user.ID,
		Description: description,
		Status:      model.StatusPending,
		Priority:    false,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateRequest(ctx, req); err != nil {
		return model.Request{}, apperr.Store("create request", err)
	}
	s.logger.Info("request created", "request_id", req.ID, "user_id", user.ID)
	return req, nil
}

// ListOwn returns the caller's requests, newest first.
func (s *Service) ListOwn(ctx context.Context, sess *model.Session) ([]model.Request, error) {
	user, err := guard.RequireRole(sess, model.RoleElderly)
	if err != nil {
		return nil, err
	}
	list, err := s.store.ListRequestsByOwner(ctx, user.ID)
	if err != nil {
		return nil, apperr.Store("list requests by owner", err)
	}
	slices.SortFunc(list, func(a, b model.Request) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return list, nil
}

func (s *Service) Dashboard(ctx context.Context, sess *model.Session) ([]model.Request, error) {
	return s.staffView(ctx, sess, triage.Dashboard)
}

func (s *Service) Important(ctx context.Context, sess *model.Session) ([]model.Request, error) {
	return s.staffView(ctx, sess, triage.Important)
}

func (s *Service) Fulfilled(ctx context.Context, sess *model.Session) ([]model.Request, error) {
	return s.staffView(ctx, sess, triage.Fulfilled)
}

func (s *Service) ForRequester(ctx context.Context, sess *model.Session, userID string) ([]model.Request, error) {
	return s.staffView(ctx, sess, func(list []model.Request) []model.Request {
		return triage.ForRequester(list, userID)
	})
}

func (s *Service) staffView(ctx context.Context, sess *model.Session, view func([]model.Request) []model.Request) ([]model.Request, error) {
	if _, err := guard.RequireRole(sess, model.RoleStaff); err != nil {
		return nil, err
	}
	list, err := s.store.ListRequests(ctx)
	if err != nil {
		return nil, apperr.Store("list requests", err)
	}
	return view(list), nil
}

// SetFulfilled marks a request fulfilled. Fulfilling twice is not an error;
// nothing moves a request back to pending.
func (s *Service) SetFulfilled(ctx context.Context, sess *model.Session, id string) error {
	return s.mutate(ctx, sess, OpFulfill, id, s.store.MarkRequestFulfilled)
}

// SetImportant flags a request, whatever its status.
func (s *Service) SetImportant(ctx context.Context, sess *model.Session, id string) error {
	return s.mutate(ctx, sess, OpImportant, id, s.store.MarkRequestImportant)
}

func (s *Service) Delete(ctx context.Context, sess *model.Session, id string) error {
	return s.mutate(ctx, sess, OpDelete, id, s.store.DeleteRequest)
}

func (s *Service) mutate(ctx context.Context, sess *model.Session, op Op, id string, apply func(context.Context, string) error) (err error) {
	defer func() {
		if s.observer != nil {
			s.observer(op, err)
		}
	}()

	user, err := guard.RequireRole(sess, model.RoleStaff)
	if err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.ErrNotFound
	}
	if err := apply(ctx, id); err != nil {
		return apperr.Store(string(op)+" request", err)
	}
	s.logger.Info("request updated", "op", op, "request_id", id, "staff_id", user.ID)
	return nil
}
