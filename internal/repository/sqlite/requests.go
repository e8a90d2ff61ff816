package sqlite

import (
	"context"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"carebridge/internal/apperr"
	"carebridge/internal/model"
)

func (s *Store) CreateRequest(ctx context.Context, req model.Request) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			INSERT INTO requests (id, user_id, description, status, priority, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, &sqlitex.ExecOptions{
			Args: []any{
				req.ID,
				req.UserID,
				req.Description,
				string(req.Status),
				boolInt(req.Priority),
				unixNano(req.CreatedAt),
			},
		})
	})
}

func (s *Store) ListRequestsByOwner(ctx context.Context, userID string) ([]model.Request, error) {
	var list []model.Request
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT id, user_id, description, status, priority, created_at
			FROM requests
			WHERE user_id = ?
		`, &sqlitex.ExecOptions{
			Args: []any{userID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				list = append(list, scanRequest(stmt))
				return nil
			},
		})
	})
	return list, err
}

func (s *Store) ListRequests(ctx context.Context) ([]model.Request, error) {
	var list []model.Request
	err := s.withConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT r.id, r.user_id, r.description, r.status, r.priority, r.created_at, u.firstname, u.lastname
			FROM requests r
			JOIN users u ON u.id = r.user_id
		`, &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				req := scanRequest(stmt)
				req.Requester = &model.RequesterName{
					FirstName: stmt.ColumnText(6),
					LastName:  stmt.ColumnText(7),
				}
				list = append(list, req)
				return nil
			},
		})
	})
	return list, err
}

func (s *Store) MarkRequestFulfilled(ctx context.Context, id string) error {
	return s.updateOne(ctx, `UPDATE requests SET status = 'fulfilled' WHERE id = ?`, id)
}

func (s *Store) MarkRequestImportant(ctx context.Context, id string) error {
	return s.updateOne(ctx, `UPDATE requests SET priority = 1 WHERE id = ?`, id)
}

func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	return s.updateOne(ctx, `DELETE FROM requests WHERE id = ?`, id)
}

// updateOne runs a single-row statement and maps zero affected rows to
// apperr.ErrNotFound.
func (s *Store) updateOne(ctx context.Context, query string, id string) error {
	return s.withConn(ctx, func(conn *sqlite.Conn) error {
		if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: []any{id}}); err != nil {
			return err
		}
		if conn.Changes() == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

func scanRequest(stmt *sqlite.Stmt) model.Request {
	return model.Request{
		ID:          stmt.ColumnText(0),
		UserID:      stmt.ColumnText(1),
		Description: stmt.ColumnText(2),
		Status:      model.Status(stmt.ColumnText(3)),
		Priority:    stmt.ColumnInt64(4) != 0,
		CreatedAt:   fromUnixNano(stmt.ColumnInt64(5)),
	}
}
