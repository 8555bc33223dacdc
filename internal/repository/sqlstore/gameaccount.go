package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/sr-companion/internal/database"
	"github.com/sakif/sr-companion/internal/model"
)

const gameAccountColumns = `id, openid, uid, nickname, level, world_level,
	is_primary, is_active, last_sync_time, created_at, updated_at`

func scanGameAccount(scan func(dest ...any) error) (*model.GameAccount, error) {
	var a model.GameAccount
	var lastSync sql.NullTime
	err := scan(&a.ID, &a.OpenID, &a.UID, &a.Nickname, &a.Level, &a.WorldLevel,
		&a.IsPrimary, &a.IsActive, &lastSync, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastSync.Valid {
		t := lastSync.Time
		a.LastSyncTime = &t
	}
	return &a, nil
}

// ListGameAccounts returns the user's active accounts, primary first, newest
// bind first after that.
func (s *Store) ListGameAccounts(ctx context.Context, openid string) ([]model.GameAccount, error) {
	var accounts []model.GameAccount
	err := s.db.Query(ctx,
		`SELECT `+gameAccountColumns+`
		 FROM user_game_accounts
		 WHERE openid = ? AND is_active = ?
		 ORDER BY is_primary DESC, created_at DESC`,
		[]any{openid, true},
		func(rows *sql.Rows) error {
			for rows.Next() {
				a, err := scanGameAccount(rows.Scan)
				if err != nil {
					return err
				}
				accounts = append(accounts, *a)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing game accounts: %w", err)
	}
	return accounts, nil
}

// UpsertGameAccount inserts the account or overwrites its mutable fields on
// (openid, uid) conflict. is_primary is written only for brand-new rows;
// SetPrimaryGameAccount is the single writer afterwards.
func (s *Store) UpsertGameAccount(ctx context.Context, account *model.GameAccount) (*model.GameAccount, error) {
	now := time.Now().UTC()

	var lastSync any
	if account.LastSyncTime != nil {
		lastSync = account.LastSyncTime.UTC()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO user_game_accounts
			(openid, uid, nickname, level, world_level, is_primary, is_active, last_sync_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (openid, uid) DO UPDATE SET
			nickname = excluded.nickname,
			level = excluded.level,
			world_level = excluded.world_level,
			is_active = excluded.is_active,
			last_sync_time = excluded.last_sync_time,
			updated_at = excluded.updated_at`,
		account.OpenID, account.UID, account.Nickname, account.Level, account.WorldLevel,
		account.IsPrimary, account.IsActive, lastSync, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: upserting game account: %w", err)
	}

	return s.getGameAccount(ctx, account.OpenID, account.UID)
}

func (s *Store) getGameAccount(ctx context.Context, openid, uid string) (*model.GameAccount, error) {
	var account *model.GameAccount
	err := s.db.QueryRow(ctx,
		`SELECT `+gameAccountColumns+` FROM user_game_accounts WHERE openid = ? AND uid = ?`,
		[]any{openid, uid},
		func(row *sql.Row) error {
			a, err := scanGameAccount(row.Scan)
			if err != nil {
				return err
			}
			account = a
			return nil
		})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: getting game account: %w", err)
	}
	return account, nil
}

// SetPrimaryGameAccount clears is_primary across the user's accounts and sets it on
// uid, in one transaction. The clear-then-set order means the invariant
// "at most one primary per user" holds at commit no matter how calls
// interleave.
func (s *Store) SetPrimaryGameAccount(ctx context.Context, openid, uid string) (bool, error) {
	var affected int64
	err := s.db.Transaction(ctx, func(tx *database.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE user_game_accounts SET is_primary = ? WHERE openid = ?`,
			false, openid); err != nil {
			return err
		}
		n, err := tx.Exec(ctx,
			`UPDATE user_game_accounts SET is_primary = ?, updated_at = ? WHERE openid = ? AND uid = ?`,
			true, time.Now().UTC(), openid, uid)
		if err != nil {
			return err
		}
		affected = n
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("sqlstore: setting primary account: %w", err)
	}
	return affected > 0, nil
}
