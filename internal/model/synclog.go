package model

import "time"

// SyncType says how much of the roster a sync attempt covered.
type SyncType string

const (
	SyncTypeFull        SyncType = "full"
	SyncTypeIncremental SyncType = "incremental"
	SyncTypeCharacter   SyncType = "character"
)

// SyncStatus is the outcome of a sync attempt.
type SyncStatus string

const (
	SyncStatusSuccess SyncStatus = "success"
	SyncStatusFailed  SyncStatus = "failed"
	SyncStatusPartial SyncStatus = "partial"
)

// SyncLog is an append-only record of one sync attempt. Rows are written
// exactly once per attempt that got past UID validation and never updated.
type SyncLog struct {
	ID              int64      `json:"id" db:"id"`
	OpenID          string     `json:"openid" db:"openid"`
	UID             string     `json:"uid" db:"uid"`
	SyncType        SyncType   `json:"sync_type" db:"sync_type"`
	SyncStatus      SyncStatus `json:"sync_status" db:"sync_status"`
	CharactersCount int        `json:"characters_count" db:"characters_count"`
	ErrorMessage    string     `json:"error_message,omitempty" db:"error_message"`
	SyncDuration    int64      `json:"sync_duration" db:"sync_duration"` // milliseconds
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}

// SyncResult summarises a completed sync for the caller.
type SyncResult struct {
	Success           bool      `json:"success"`
	CharactersSynced  int       `json:"characters_synced"`
	CharactersUpdated int       `json:"characters_updated"`
	CharactersNew     int       `json:"characters_new"`
	SyncTime          time.Time `json:"sync_time"`
}

// UserStats aggregates per-user counters for the stats endpoint.
type UserStats struct {
	GameAccountsCount       int        `json:"game_accounts_count"`
	CharactersCount         int        `json:"characters_count"`
	FavoriteCharactersCount int        `json:"favorite_characters_count"`
	LastSyncTime            *time.Time `json:"last_sync_time"`
	LastSyncStatus          string     `json:"last_sync_status,omitempty"`
}
