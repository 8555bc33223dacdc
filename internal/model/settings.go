package model

import (
	"encoding/json"
	"time"
)

// Theme is the UI colour scheme preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeAuto  Theme = "auto"
)

// ValidTheme reports whether t is one of the known theme values.
func ValidTheme(t Theme) bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeAuto:
		return true
	}
	return false
}

// Settings holds per-user preferences, one row per openid.
//
// CustomSettings is a free-form map the mini-program frontend owns;
// the backend round-trips it as JSON without interpreting it.
type Settings struct {
	OpenID              string          `json:"openid" db:"openid"`
	Theme               Theme           `json:"theme" db:"theme"`
	Language            string          `json:"language" db:"language"`
	AutoSync            bool            `json:"auto_sync" db:"auto_sync"`
	NotificationEnabled bool            `json:"notification_enabled" db:"notification_enabled"`
	DataCacheDuration   int             `json:"data_cache_duration" db:"data_cache_duration"` // seconds
	CustomSettings      json.RawMessage `json:"custom_settings,omitempty" db:"custom_settings"`
	CreatedAt           time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at" db:"updated_at"`
}

// SettingsUpdate carries a partial settings change. Nil fields are left
// untouched by the store.
type SettingsUpdate struct {
	Theme               *Theme          `json:"theme,omitempty"`
	Language            *string         `json:"language,omitempty"`
	AutoSync            *bool           `json:"auto_sync,omitempty"`
	NotificationEnabled *bool           `json:"notification_enabled,omitempty"`
	DataCacheDuration   *int            `json:"data_cache_duration,omitempty"`
	CustomSettings      json.RawMessage `json:"custom_settings,omitempty"`
}

// IsZero reports whether the update carries no fields at all.
func (u SettingsUpdate) IsZero() bool {
	return u.Theme == nil && u.Language == nil && u.AutoSync == nil &&
		u.NotificationEnabled == nil && u.DataCacheDuration == nil &&
		u.CustomSettings == nil
}
