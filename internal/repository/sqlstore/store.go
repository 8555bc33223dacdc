// Package sqlstore implements the repository interfaces over the shared
// connection pool. One Store serves all five entity kinds; every query
// goes through the pool's primitives, so the bounded-retry acquisition
// and dialect handling live in one place.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/sr-companion/internal/database"
	"github.com/sakif/sr-companion/internal/repository"
)

// Compile-time checks that Store satisfies every repository interface.
var (
	_ repository.UserRepository        = (*Store)(nil)
	_ repository.GameAccountRepository = (*Store)(nil)
	_ repository.CharacterRepository   = (*Store)(nil)
	_ repository.SettingsRepository    = (*Store)(nil)
	_ repository.SyncLogRepository     = (*Store)(nil)
	_ repository.StatsRepository       = (*Store)(nil)
)

// Store provides SQL-backed persistence for users, game accounts,
// character snapshots, settings, and sync logs.
type Store struct {
	db     *database.DB
	logger *slog.Logger
}

// New creates the Store and runs the idempotent schema migration.
func New(db *database.DB, logger *slog.Logger) (*Store, error) {
	s := &Store{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}
	return s, nil
}

// migrate creates the five tables and their indexes. Every statement is
// IF NOT EXISTS, so rerunning on an existing database is a no-op.
// Timestamps are always written explicitly by this package rather than by
// column defaults, which keeps the two backends byte-compatible.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			openid     TEXT PRIMARY KEY,
			unionid    TEXT NOT NULL DEFAULT '',
			nickname   TEXT NOT NULL DEFAULT '',
			avatar_url TEXT NOT NULL DEFAULT '',
			is_active  BOOLEAN NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_game_accounts (
			id             %s,
			openid         TEXT NOT NULL,
			uid            TEXT NOT NULL,
			nickname       TEXT NOT NULL DEFAULT '',
			level          INTEGER NOT NULL DEFAULT 0,
			world_level    INTEGER NOT NULL DEFAULT 0,
			is_primary     BOOLEAN NOT NULL,
			is_active      BOOLEAN NOT NULL,
			last_sync_time TIMESTAMP,
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL,
			UNIQUE (openid, uid)
		)`, s.db.AutoIncrementPK()),
		`CREATE INDEX IF NOT EXISTS idx_game_accounts_openid ON user_game_accounts(openid)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS user_character_data (
			id             %s,
			openid         TEXT NOT NULL,
			uid            TEXT NOT NULL,
			character_id   TEXT NOT NULL,
			character_name TEXT NOT NULL,
			character_data TEXT NOT NULL DEFAULT '{}',
			rarity         INTEGER NOT NULL DEFAULT 0,
			level          INTEGER NOT NULL DEFAULT 0,
			"rank"         INTEGER NOT NULL DEFAULT 0,
			element        TEXT NOT NULL DEFAULT '',
			path           TEXT NOT NULL DEFAULT '',
			is_favorite    BOOLEAN NOT NULL,
			sync_version   INTEGER NOT NULL DEFAULT 1,
			created_at     TIMESTAMP NOT NULL,
			updated_at     TIMESTAMP NOT NULL,
			UNIQUE (openid, uid, character_id)
		)`, s.db.AutoIncrementPK()),
		`CREATE INDEX IF NOT EXISTS idx_character_data_openid ON user_character_data(openid)`,
		`CREATE TABLE IF NOT EXISTS user_settings (
			openid               TEXT PRIMARY KEY,
			theme                TEXT NOT NULL,
			language             TEXT NOT NULL,
			auto_sync            BOOLEAN NOT NULL,
			notification_enabled BOOLEAN NOT NULL,
			data_cache_duration  INTEGER NOT NULL,
			custom_settings      TEXT NOT NULL DEFAULT '{}',
			created_at           TIMESTAMP NOT NULL,
			updated_at           TIMESTAMP NOT NULL
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sync_logs (
			id               %s,
			openid           TEXT NOT NULL,
			uid              TEXT NOT NULL,
			sync_type        TEXT NOT NULL,
			sync_status      TEXT NOT NULL,
			characters_count INTEGER NOT NULL DEFAULT 0,
			error_message    TEXT NOT NULL DEFAULT '',
			sync_duration    INTEGER NOT NULL DEFAULT 0,
			created_at       TIMESTAMP NOT NULL
		)`, s.db.AutoIncrementPK()),
		`CREATE INDEX IF NOT EXISTS idx_sync_logs_openid ON sync_logs(openid, created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(stmt string) string {
	stmt = strings.TrimSpace(stmt)
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
