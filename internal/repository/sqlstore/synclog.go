package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/sr-companion/internal/model"
)

const syncLogColumns = `id, openid, uid, sync_type, sync_status,
	characters_count, error_message, sync_duration, created_at`

func scanSyncLog(scan func(dest ...any) error) (*model.SyncLog, error) {
	var l model.SyncLog
	err := scan(&l.ID, &l.OpenID, &l.UID, &l.SyncType, &l.SyncStatus,
		&l.CharactersCount, &l.ErrorMessage, &l.SyncDuration, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// CreateSyncLog appends one sync-log row. Rows are immutable: there is no update
// or delete anywhere in this package.
func (s *Store) CreateSyncLog(ctx context.Context, log *model.SyncLog) error {
	log.CreatedAt = time.Now().UTC()

	id, err := s.db.Insert(ctx,
		`INSERT INTO sync_logs
			(openid, uid, sync_type, sync_status, characters_count, error_message, sync_duration, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.OpenID, log.UID, string(log.SyncType), string(log.SyncStatus),
		log.CharactersCount, log.ErrorMessage, log.SyncDuration, log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: creating sync log: %w", err)
	}
	log.ID = id
	return nil
}

// ListSyncLogs returns the user's sync history, newest first.
func (s *Store) ListSyncLogs(ctx context.Context, openid string, limit int) ([]model.SyncLog, error) {
	var logs []model.SyncLog
	err := s.db.Query(ctx,
		`SELECT `+syncLogColumns+`
		 FROM sync_logs
		 WHERE openid = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		[]any{openid, limit},
		func(rows *sql.Rows) error {
			for rows.Next() {
				l, err := scanSyncLog(rows.Scan)
				if err != nil {
					return err
				}
				logs = append(logs, *l)
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing sync logs: %w", err)
	}
	return logs, nil
}

// LatestSyncLog returns the newest log row, or (nil, nil) for users who
// have never synced.
func (s *Store) LatestSyncLog(ctx context.Context, openid string) (*model.SyncLog, error) {
	var log *model.SyncLog
	err := s.db.QueryRow(ctx,
		`SELECT `+syncLogColumns+`
		 FROM sync_logs
		 WHERE openid = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		[]any{openid},
		func(row *sql.Row) error {
			l, err := scanSyncLog(row.Scan)
			if err != nil {
				return err
			}
			log = l
			return nil
		})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: getting latest sync log: %w", err)
	}
	return log, nil
}

func (s *Store) CountGameAccounts(ctx context.Context, openid string) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM user_game_accounts WHERE openid = ? AND is_active = ?`,
		openid, true)
}

func (s *Store) CountCharacters(ctx context.Context, openid string) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM user_character_data WHERE openid = ?`, openid)
}

func (s *Store) CountFavoriteCharacters(ctx context.Context, openid string) (int, error) {
	return s.count(ctx,
		`SELECT COUNT(*) FROM user_character_data WHERE openid = ? AND is_favorite = ?`,
		openid, true)
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, query, args, func(row *sql.Row) error {
		return row.Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("sqlstore: counting rows: %w", err)
	}
	return n, nil
}
