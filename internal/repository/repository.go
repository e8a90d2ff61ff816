// Package repository is the Postgres store for users, requests and sessions.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"carebridge/internal/apperr"
	"carebridge/internal/model"
)

const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))
	`, email).Scan(&exists)
	return exists, err
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, firstname, lastname, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, string(user.Role), user.CreatedAt)
	if isUniqueViolation(err) {
		return apperr.ErrConflict
	}
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.getUser(ctx, `
		SELECT id, firstname, lastname, email, password_hash, role, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email)
}

func (s *Store) GetUserByID(ctx context.Context, userID string) (model.User, error) {
	return s.getUser(ctx, `
		SELECT id, firstname, lastname, email, password_hash, role, created_at
		FROM users
		WHERE id = $1
	`, userID)
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (model.User, error) {
	var (
		user model.User
		role string
	)
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&role,
		&user.CreatedAt,
	)
	if err != nil {
		return model.User{}, notFound(err)
	}
	user.Role = model.Role(role)
	user.CreatedAt = user.CreatedAt.UTC()
	return user, nil
}

func (s *Store) CreateRequest(ctx context.Context, req model.Request) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO requests (id, user_id, description, status, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, req.ID, req.UserID, req.Description, string(req.Status), req.Priority, req.CreatedAt)
	return err
}

func (s *Store) ListRequestsByOwner(ctx context.Context, userID string) ([]model.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, description, status, priority, created_at
		FROM requests
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Request, error) {
		return scanRequest(row, false)
	})
}

// ListRequests returns every request with its requester's name.
func (s *Store) ListRequests(ctx context.Context) ([]model.Request, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.user_id, r.description, r.status, r.priority, r.created_at, u.firstname, u.lastname
		FROM requests r
		JOIN users u ON u.id = r.user_id
		ORDER BY r.created_at ASC, r.id ASC
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Request, error) {
		return scanRequest(row, true)
	})
}

func (s *Store) MarkRequestFulfilled(ctx context.Context, id string) error {
	return s.updateOne(ctx, `UPDATE requests SET status = 'fulfilled' WHERE id = $1`, id)
}

func (s *Store) MarkRequestImportant(ctx context.Context, id string) error {
	return s.updateOne(ctx, `UPDATE requests SET priority = true WHERE id = $1`, id)
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	return s.updateOne(ctx, `DELETE FROM requests WHERE id = $1`, id)
}

func (s *Store) updateOne(ctx context.Context, query string, id string) error {
	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func scanRequest(row pgx.Row, withRequester bool) (model.Request, error) {
	var (
		req    model.Request
		status string
	)
	dest := []any{&req.ID, &req.UserID, &req.Description, &status, &req.Priority, &req.CreatedAt}
	var name model.RequesterName
	if withRequester {
		dest = append(dest, &name.FirstName, &name.LastName)
	}
	if err := row.Scan(dest...); err != nil {
		return model.Request{}, err
	}
	req.Status = model.Status(status)
	req.CreatedAt = req.CreatedAt.UTC()
	if withRequester {
		req.Requester = &name
	}
	return req, nil
}

// SessionStore keeps sessions in the sessions table.
type SessionStore struct {
	pool *pgxpool.Pool
}

func (s *Store) Sessions() *SessionStore {
	return &SessionStore{pool: s.pool}
}

func (s *SessionStore) Save(ctx context.Context, sess model.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token_hash, user_id, firstname, lastname, email, role, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sess.TokenHash, sess.User.ID, sess.User.FirstName, sess.User.LastName, sess.User.Email, string(sess.User.Role), sess.CreatedAt, sess.ExpiresAt)
	return err
}

func (s *SessionStore) Get(ctx context.Context, tokenHash string) (model.Session, error) {
	var (
		sess model.Session
		role string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT token_hash, user_id, firstname, lastname, email, role, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1
	`, tokenHash).Scan(
		&sess.TokenHash,
		&sess.User.ID,
		&sess.User.FirstName,
		&sess.User.LastName,
		&sess.User.Email,
		&role,
		&sess.CreatedAt,
		&sess.ExpiresAt,
	)
	if err != nil {
		return model.Session{}, notFound(err)
	}
	sess.User.Role = model.Role(role)
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.ExpiresAt = sess.ExpiresAt.UTC()
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, tokenHash string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash)
	return err
}

// Prune deletes sessions that expired at or before the given time.
func (s *SessionStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
