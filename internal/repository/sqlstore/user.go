package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/sr-companion/internal/model"
	"github.com/sakif/sr-companion/internal/repository"
)

const userColumns = `openid, unionid, nickname, avatar_url, is_active, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.OpenID, &u.UnionID, &u.Nickname, &u.AvatarURL,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser returns the user row, or (nil, nil) when it does not exist.
// Absence is a normal outcome here — login-or-register relies on it.
func (s *Store) GetUser(ctx context.Context, openid string) (*model.User, error) {
	var user *model.User
	err := s.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE openid = ?`,
		[]any{openid},
		func(row *sql.Row) error {
			u, err := scanUser(row)
			if err != nil {
				return err
			}
			user = u
			return nil
		})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: getting user: %w", err)
	}
	return user, nil
}

// CreateUser inserts a new user row. The openid is immutable from here on.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := s.db.Exec(ctx,
		`INSERT INTO users (openid, unionid, nickname, avatar_url, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.OpenID, user.UnionID, user.Nickname, user.AvatarURL,
		user.IsActive, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: creating user: %w", err)
	}
	return nil
}

// UpdateUser applies the non-nil fields of update and returns the fresh row.
// A zero update is a read. Returns (nil, nil) when the user does not exist.
func (s *Store) UpdateUser(ctx context.Context, openid string, update repository.UserUpdate) (*model.User, error) {
	if update.IsZero() {
		return s.GetUser(ctx, openid)
	}

	set := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if update.UnionID != nil {
		set = append(set, "unionid = ?")
		args = append(args, *update.UnionID)
	}
	if update.Nickname != nil {
		set = append(set, "nickname = ?")
		args = append(args, *update.Nickname)
	}
	if update.AvatarURL != nil {
		set = append(set, "avatar_url = ?")
		args = append(args, *update.AvatarURL)
	}
	if update.IsActive != nil {
		set = append(set, "is_active = ?")
		args = append(args, *update.IsActive)
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC(), openid)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE openid = ?`, strings.Join(set, ", "))
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("sqlstore: updating user: %w", err)
	}
	return s.GetUser(ctx, openid)
}
