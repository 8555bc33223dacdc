package sqlstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/sakif/sr-companion/internal/model"
)

func TestGetSettingsAbsent(t *testing.T) {
	store := newTestStore(t)

	settings, err := store.GetSettings(context.Background(), "no-such-user")
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if settings != nil {
		t.Errorf("GetSettings() = %+v, want nil for absent row", settings)
	}
}

func TestCreateDefaults(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings, err := store.CreateDefaultSettings(ctx, "openid-1")
	if err != nil {
		t.Fatalf("CreateDefaultSettings() error = %v", err)
	}
	if settings.Theme != model.ThemeAuto {
		t.Errorf("Theme = %q, want %q", settings.Theme, model.ThemeAuto)
	}
	if settings.Language != "zh-CN" {
		t.Errorf("Language = %q, want zh-CN", settings.Language)
	}
	if settings.DataCacheDuration != 3600 {
		t.Errorf("DataCacheDuration = %d, want 3600", settings.DataCacheDuration)
	}
	if !settings.AutoSync || !settings.NotificationEnabled {
		t.Errorf("AutoSync = %v, NotificationEnabled = %v, want both true", settings.AutoSync, settings.NotificationEnabled)
	}
}

func TestCreateDefaultsKeepsExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateDefaultSettings(ctx, "openid-1"); err != nil {
		t.Fatalf("CreateDefaultSettings() error = %v", err)
	}
	dark := model.ThemeDark
	if _, err := store.UpdateSettings(ctx, "openid-1", model.SettingsUpdate{Theme: &dark}); err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}

	// Calling again (e.g. on a repeat login) must not reset anything.
	settings, err := store.CreateDefaultSettings(ctx, "openid-1")
	if err != nil {
		t.Fatalf("second CreateDefaultSettings() error = %v", err)
	}
	if settings.Theme != model.ThemeDark {
		t.Errorf("Theme = %q after repeat CreateDefaultSettings, want dark", settings.Theme)
	}
}

func TestUpdateSettingsPartial(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.CreateDefaultSettings(ctx, "openid-1"); err != nil {
		t.Fatalf("CreateDefaultSettings() error = %v", err)
	}

	autoSync := false
	custom := json.RawMessage(`{"show_spoilers":true}`)
	settings, err := store.UpdateSettings(ctx, "openid-1", model.SettingsUpdate{
		AutoSync:       &autoSync,
		CustomSettings: custom,
	})
	if err != nil {
		t.Fatalf("UpdateSettings() error = %v", err)
	}
	if settings.AutoSync {
		t.Error("AutoSync still true after update")
	}
	if string(settings.CustomSettings) != string(custom) {
		t.Errorf("CustomSettings = %s, want %s", settings.CustomSettings, custom)
	}
	// Untouched fields keep their defaults.
	if settings.Theme != model.ThemeAuto || settings.Language != "zh-CN" {
		t.Errorf("untouched fields changed: theme=%q language=%q", settings.Theme, settings.Language)
	}
}

func TestUpdateSettingsEmpty(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.CreateDefaultSettings(ctx, "openid-1")
	if err != nil {
		t.Fatalf("CreateDefaultSettings() error = %v", err)
	}

	settings, err := store.UpdateSettings(ctx, "openid-1", model.SettingsUpdate{})
	if err != nil {
		t.Fatalf("empty UpdateSettings() error = %v", err)
	}
	if settings.Theme != created.Theme || settings.Language != created.Language {
		t.Errorf("empty update changed settings: %+v", settings)
	}
}
