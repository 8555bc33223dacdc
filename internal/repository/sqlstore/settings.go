package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/sr-companion/internal/model"
)

// Default settings for a fresh user. The frontend ships Chinese-first,
// hence the language default.
const (
	defaultTheme             = model.ThemeAuto
	defaultLanguage          = "zh-CN"
	defaultCacheDurationSecs = 3600
)

const settingsColumns = `openid, theme, language, auto_sync, notification_enabled,
	data_cache_duration, custom_settings, created_at, updated_at`

func scanSettings(row *sql.Row) (*model.Settings, error) {
	var s model.Settings
	var custom string
	err := row.Scan(&s.OpenID, &s.Theme, &s.Language, &s.AutoSync,
		&s.NotificationEnabled, &s.DataCacheDuration, &custom,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if custom != "" && custom != "{}" {
		s.CustomSettings = []byte(custom)
	}
	return &s, nil
}

// GetSettings returns the settings row, or (nil, nil) when none exists yet.
func (s *Store) GetSettings(ctx context.Context, openid string) (*model.Settings, error) {
	var settings *model.Settings
	err := s.db.QueryRow(ctx,
		`SELECT `+settingsColumns+` FROM user_settings WHERE openid = ?`,
		[]any{openid},
		func(row *sql.Row) error {
			got, err := scanSettings(row)
			if err != nil {
				return err
			}
			settings = got
			return nil
		})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: getting settings: %w", err)
	}
	return settings, nil
}

// CreateDefaultSettings inserts the default settings row if absent and returns
// the current row. Safe to call repeatedly — an existing row is never
// overwritten.
func (s *Store) CreateDefaultSettings(ctx context.Context, openid string) (*model.Settings, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx,
		`INSERT INTO user_settings
			(openid, theme, language, auto_sync, notification_enabled, data_cache_duration, custom_settings, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (openid) DO NOTHING`,
		openid, string(defaultTheme), defaultLanguage, true, true,
		defaultCacheDurationSecs, "{}", now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: creating default settings: %w", err)
	}
	return s.GetSettings(ctx, openid)
}

// UpdateSettings merges the non-nil fields of update into the row and returns the
// result. Returns (nil, nil) when no settings row exists.
func (s *Store) UpdateSettings(ctx context.Context, openid string, update model.SettingsUpdate) (*model.Settings, error) {
	if update.IsZero() {
		return s.GetSettings(ctx, openid)
	}

	set := make([]string, 0, 7)
	args := make([]any, 0, 8)
	if update.Theme != nil {
		set = append(set, "theme = ?")
		args = append(args, string(*update.Theme))
	}
	if update.Language != nil {
		set = append(set, "language = ?")
		args = append(args, *update.Language)
	}
	if update.AutoSync != nil {
		set = append(set, "auto_sync = ?")
		args = append(args, *update.AutoSync)
	}
	if update.NotificationEnabled != nil {
		set = append(set, "notification_enabled = ?")
		args = append(args, *update.NotificationEnabled)
	}
	if update.DataCacheDuration != nil {
		set = append(set, "data_cache_duration = ?")
		args = append(args, *update.DataCacheDuration)
	}
	if update.CustomSettings != nil {
		set = append(set, "custom_settings = ?")
		args = append(args, string(update.CustomSettings))
	}
	set = append(set, "updated_at = ?")
	args = append(args, time.Now().UTC(), openid)

	query := fmt.Sprintf(`UPDATE user_settings SET %s WHERE openid = ?`, strings.Join(set, ", "))
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("sqlstore: updating settings: %w", err)
	}
	return s.GetSettings(ctx, openid)
}
