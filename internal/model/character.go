package model

import (
	"encoding/json"
	"time"
)

// Character is a persisted snapshot of one roster entry for a game account.
//
// Data holds the full upstream payload for the character as opaque JSON.
// We index the handful of fields the UI filters on (rarity, element, ...)
// and keep everything else unparsed so upstream schema changes don't
// require a migration.
//
// SyncVersion starts at 1 and increments by exactly one each time a sync
// sees the character again, so clients can cheaply detect staleness.
type Character struct {
	ID          int64           `json:"id" db:"id"`
	OpenID      string          `json:"openid" db:"openid"`
	UID         string          `json:"uid" db:"uid"`
	CharacterID string          `json:"character_id" db:"character_id"`
	Name        string          `json:"character_name" db:"character_name"`
	Data        json.RawMessage `json:"character_data" db:"character_data"`
	Rarity      int             `json:"rarity" db:"rarity"`
	Level       int             `json:"level" db:"level"`
	Rank        int             `json:"rank" db:"rank"`
	Element     string          `json:"element,omitempty" db:"element"`
	Path        string          `json:"path,omitempty" db:"path"`
	IsFavorite  bool            `json:"is_favorite" db:"is_favorite"`
	SyncVersion int             `json:"sync_version" db:"sync_version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
