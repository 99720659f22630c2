package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/sitedesk/punchlist/internal/types"
)

// CreateUser inserts a new user
func (s *Store) CreateUser(ctx context.Context, user *types.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, first_name, last_name, is_active, is_superuser, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, user.Username, user.Email, user.FirstName, user.LastName, user.IsActive, user.IsSuperuser, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return &types.ConflictError{Reason: "username already taken: " + user.Username}
		}
		return wrapDBError("create user", err)
	}
	user.ID, err = res.LastInsertId()
	return wrapDBError("create user", err)
}

const userColumns = `id, username, email, first_name, last_name, is_active, is_superuser, created_at, last_login`

func scanUser(row *sql.Row) (*types.User, error) {
	var u types.User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.IsActive, &u.IsSuperuser, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	u.LastLogin = timePtr(lastLogin)
	return &u, nil
}

// GetUser retrieves a user by ID
func (s *Store) GetUser(ctx context.Context, id int64) (*types.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("user", id, err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
	if err != nil {
		return nil, notFound("user", 0, err)
	}
	return u, nil
}
