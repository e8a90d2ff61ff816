package sqlite

import (
	"context"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"carebridge/internal/apperr"
	"carebridge/internal/model"
)

// SessionStore exposes the sessions table through the session.Store port.
type SessionStore struct {
	store *Store
}

func (s *Store) Sessions() *SessionStore {
	return &SessionStore{store: s}
}

func (s *SessionStore) Save(ctx context.Context, sess model.Session) error {
	return s.store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO sessions (token_hash, user_id, firstname, lastname, email, role, created_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, &sqlitex.ExecOptions{
			Args: []any{
				sess.TokenHash,
				sess.User.ID,
				sess.User.FirstName,
				sess.User.LastName,
				sess.User.Email,
				string(sess.User.Role),
				unixNano(sess.CreatedAt),
				unixNano(sess.ExpiresAt),
			},
		})
	})
}

func (s *SessionStore) Get(ctx context.Context, tokenHash string) (model.Session, error) {
	var (
		sess  model.Session
		found bool
	)
	err := s.store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT token_hash, user_id, firstname, lastname, email, role, created_at, expires_at
			FROM sessions
			WHERE token_hash = ?
		`, &sqlitex.ExecOptions{
			Args: []any{tokenHash},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				sess = model.Session{
					TokenHash: stmt.ColumnText(0),
					User: model.UserSnapshot{
						ID:        stmt.ColumnText(1),
						FirstName: stmt.ColumnText(2),
						LastName:  stmt.ColumnText(3),
						Email:     stmt.ColumnText(4),
						Role:      model.Role(stmt.ColumnText(5)),
					},
					CreatedAt: fromUnixNano(stmt.ColumnInt64(6)),
					ExpiresAt: fromUnixNano(stmt.ColumnInt64(7)),
				}
				return nil
			},
		})
	})
	if err != nil {
		return model.Session{}, err
	}
	if !found {
		return model.Session{}, apperr.ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, tokenHash string) error {
	return s.store.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `DELETE FROM sessions WHERE token_hash = ?`, &sqlitex.ExecOptions{
			Args: []any{tokenHash},
		})
	})
}

func (s *SessionStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	var pruned int64
	err := s.store.withConn(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, `DELETE FROM sessions WHERE expires_at <= ?`, &sqlitex.ExecOptions{
			Args: []any{unixNano(before)},
		}); err != nil {
			return err
		}
		pruned = int64(conn.Changes())
		return nil
	})
	return pruned, err
}
