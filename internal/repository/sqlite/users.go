package sqlite

import (
	"context"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"carebridge/internal/apperr"
	"carebridge/internal/model"
)

const userColumns = `id, firstname, lastname, email, password_hash, role, created_at`

func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `SELECT 1 FROM users WHERE email = ? LIMIT 1`, &sqlitex.ExecOptions{
			Args: []any{email},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				exists = true
				return nil
			},
		})
	})
	return exists, err
}

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `
			INSERT INTO users (`+userColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, &sqlitex.ExecOptions{
			Args: []any{
				user.ID,
				user.FirstName,
				user.LastName,
				user.Email,
				user.PasswordHash,
				string(user.Role),
				unixNano(user.CreatedAt),
			},
		})
		if err != nil && isUniqueViolation(err) {
			return apperr.ErrConflict
		}
		return err
	})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

func (s *Store) GetUserByID(ctx context.Context, id string) (model.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, query string, arg string) (model.User, error) {
	var (
		user  model.User
		found bool
	)
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: []any{arg},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				user = model.User{
					ID:           stmt.ColumnText(0),
					FirstName:    stmt.ColumnText(1),
					LastName:     stmt.ColumnText(2),
					Email:        stmt.ColumnText(3),
					PasswordHash: stmt.ColumnText(4),
					Role:         model.Role(stmt.ColumnText(5)),
					CreatedAt:    fromUnixNano(stmt.ColumnInt64(6)),
				}
				return nil
			},
		})
	})
	if err != nil {
		return model.User{}, err
	}
	if !found {
		return model.User{}, apperr.ErrNotFound
	}
	return user, nil
}
