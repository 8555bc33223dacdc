// Package repository declares the persistence interfaces the service layer
// programs against. The sqlstore subpackage implements them over the shared
// connection pool; tests substitute in-memory mocks.
package repository

import (
	"context"

	"github.com/sakif/sr-companion/internal/model"
)

// UserUpdate carries a partial user-profile change. Nil fields are left
// untouched.
type UserUpdate struct {
	UnionID   *string
	Nickname  *string
	AvatarURL *string
	IsActive  *bool
}

// IsZero reports whether the update carries no fields.
func (u UserUpdate) IsZero() bool {
	return u.UnionID == nil && u.Nickname == nil && u.AvatarURL == nil && u.IsActive == nil
}

// UserRepository manages user rows keyed by openid.
type UserRepository interface {
	// GetUser returns (nil, nil) when the user does not exist.
	GetUser(ctx context.Context, openid string) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) error
	UpdateUser(ctx context.Context, openid string, update UserUpdate) (*model.User, error)
}

// GameAccountRepository manages the (openid, uid) linked game accounts.
type GameAccountRepository interface {
	// ListGameAccounts returns the user's active accounts, primary first.
	ListGameAccounts(ctx context.Context, openid string) ([]model.GameAccount, error)
	// UpsertGameAccount inserts the account or, on (openid, uid) conflict, overwrites
	// its mutable fields. IsPrimary is written only on first insert; after
	// that it changes exclusively through SetPrimaryGameAccount.
	UpsertGameAccount(ctx context.Context, account *model.GameAccount) (*model.GameAccount, error)
	// SetPrimaryGameAccount clears every is_primary flag for the user and sets it on
	// the given uid, inside one transaction. Returns false, without error,
	// when the target account does not exist — callers decide whether that
	// is a 404.
	SetPrimaryGameAccount(ctx context.Context, openid, uid string) (bool, error)
}

// BatchSaveResult tallies a roster batch upsert.
type BatchSaveResult struct {
	Saved   int // rows that did not exist before
	Updated int // rows that existed and had sync_version bumped
}

// CharacterRepository manages persisted character snapshots.
type CharacterRepository interface {
	// ListCharacters returns the user's characters, optionally filtered by uid,
	// most recently updated first.
	ListCharacters(ctx context.Context, openid, uid string) ([]model.Character, error)
	// SaveCharacter upserts one snapshot; on (openid, uid, character_id) conflict
	// the mutable fields are overwritten and sync_version increments by 1.
	SaveCharacter(ctx context.Context, c *model.Character) (*model.Character, error)
	// BatchSaveCharacters upserts a whole roster row by row, counting new vs updated
	// entries. The per-row upsert is the unit of atomicity: a failure
	// partway through leaves earlier rows persisted, and the next sync
	// converges the rest.
	BatchSaveCharacters(ctx context.Context, openid, uid string, characters []model.Character) (BatchSaveResult, error)
	SetFavorite(ctx context.Context, openid, uid, characterID string, favorite bool) error
	DeleteCharacter(ctx context.Context, openid, uid, characterID string) error
}

// SettingsRepository manages the one-per-user settings row.
type SettingsRepository interface {
	// GetSettings returns (nil, nil) when no settings row exists.
	GetSettings(ctx context.Context, openid string) (*model.Settings, error)
	// CreateDefaultSettings inserts the default row if absent and returns the
	// current row either way.
	CreateDefaultSettings(ctx context.Context, openid string) (*model.Settings, error)
	UpdateSettings(ctx context.Context, openid string, update model.SettingsUpdate) (*model.Settings, error)
}

// SyncLogRepository manages the append-only sync history.
type SyncLogRepository interface {
	CreateSyncLog(ctx context.Context, log *model.SyncLog) error
	ListSyncLogs(ctx context.Context, openid string, limit int) ([]model.SyncLog, error)
}

// StatsRepository serves the aggregate counters for the stats endpoint.
type StatsRepository interface {
	CountGameAccounts(ctx context.Context, openid string) (int, error)
	CountCharacters(ctx context.Context, openid string) (int, error)
	CountFavoriteCharacters(ctx context.Context, openid string) (int, error)
	// LatestSyncLog returns (nil, nil) when the user has never synced.
	LatestSyncLog(ctx context.Context, openid string) (*model.SyncLog, error)
}
