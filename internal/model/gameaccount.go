package model

import "time"

// GameAccount links a user to an in-game account by its public UID.
//
// A user can bind several accounts but at most one carries IsPrimary —
// that invariant is enforced transactionally in the store, never here.
// LastSyncTime is nil until the first successful character sync.
type GameAccount struct {
	ID           int64      `json:"id" db:"id"`
	OpenID       string     `json:"openid" db:"openid"`
	UID          string     `json:"uid" db:"uid"` // 9-digit public game UID
	Nickname     string     `json:"nickname,omitempty" db:"nickname"`
	Level        int        `json:"level" db:"level"`
	WorldLevel   int        `json:"world_level" db:"world_level"`
	IsPrimary    bool       `json:"is_primary" db:"is_primary"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty" db:"last_sync_time"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
