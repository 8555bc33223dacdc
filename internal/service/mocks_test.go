package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/sr-companion/internal/model"
	"github.com/sakif/sr-companion/internal/repository"
	"github.com/sakif/sr-companion/internal/upstream"
)

// In-memory fakes for the persistence interfaces. Each one stores copies,
// never the caller's pointers, and exposes err fields for injecting
// failures.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockUserRepo struct {
	users     map[string]*model.User
	createErr error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) GetUser(_ context.Context, openid string) (*model.User, error) {
	u, ok := m.users[openid]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	m.users[user.OpenID] = &stored
	return nil
}

func (m *mockUserRepo) UpdateUser(_ context.Context, openid string, update repository.UserUpdate) (*model.User, error) {
	u, ok := m.users[openid]
	if !ok {
		return nil, nil
	}
	if update.UnionID != nil {
		u.UnionID = *update.UnionID
	}
	if update.Nickname != nil {
		u.Nickname = *update.Nickname
	}
	if update.AvatarURL != nil {
		u.AvatarURL = *update.AvatarURL
	}
	if update.IsActive != nil {
		u.IsActive = *update.IsActive
	}
	u.UpdatedAt = time.Now().UTC()
	copied := *u
	return &copied, nil
}

type mockAccountRepo struct {
	accounts  []model.GameAccount
	nextID    int64
	listErr   error
	upsertErr error
}

func (m *mockAccountRepo) ListGameAccounts(_ context.Context, openid string) ([]model.GameAccount, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.GameAccount
	for _, a := range m.accounts {
		if a.OpenID == openid && a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAccountRepo) UpsertGameAccount(_ context.Context, account *model.GameAccount) (*model.GameAccount, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	for i := range m.accounts {
		a := &m.accounts[i]
		if a.OpenID == account.OpenID && a.UID == account.UID {
			a.Nickname = account.Nickname
			a.Level = account.Level
			a.WorldLevel = account.WorldLevel
			a.IsActive = account.IsActive
			a.LastSyncTime = account.LastSyncTime
			copied := *a
			return &copied, nil
		}
	}
	m.nextID++
	stored := *account
	stored.ID = m.nextID
	m.accounts = append(m.accounts, stored)
	copied := stored
	return &copied, nil
}

func (m *mockAccountRepo) SetPrimaryGameAccount(_ context.Context, openid, uid string) (bool, error) {
	found := false
	for i := range m.accounts {
		if m.accounts[i].OpenID != openid {
			continue
		}
		m.accounts[i].IsPrimary = m.accounts[i].UID == uid
		if m.accounts[i].UID == uid {
			found = true
		}
	}
	return found, nil
}

type characterKey struct {
	openid, uid, characterID string
}

type mockCharacterRepo struct {
	characters map[characterKey]*model.Character
	batchErr   error
}

func newMockCharacterRepo() *mockCharacterRepo {
	return &mockCharacterRepo{characters: make(map[characterKey]*model.Character)}
}

func (m *mockCharacterRepo) ListCharacters(_ context.Context, openid, uid string) ([]model.Character, error) {
	var out []model.Character
	for k, c := range m.characters {
		if k.openid == openid && (uid == "" || k.uid == uid) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockCharacterRepo) SaveCharacter(_ context.Context, c *model.Character) (*model.Character, error) {
	key := characterKey{c.OpenID, c.UID, c.CharacterID}
	if existing, ok := m.characters[key]; ok {
		favorite := existing.IsFavorite
		stored := *c
		stored.ID = existing.ID
		stored.IsFavorite = favorite
		stored.SyncVersion = existing.SyncVersion + 1
		m.characters[key] = &stored
		copied := stored
		return &copied, nil
	}
	stored := *c
	stored.ID = int64(len(m.characters) + 1)
	stored.SyncVersion = 1
	m.characters[key] = &stored
	copied := stored
	return &copied, nil
}

func (m *mockCharacterRepo) BatchSaveCharacters(ctx context.Context, openid, uid string, characters []model.Character) (repository.BatchSaveResult, error) {
	if m.batchErr != nil {
		return repository.BatchSaveResult{}, m.batchErr
	}
	var result repository.BatchSaveResult
	for i := range characters {
		_, existed := m.characters[characterKey{openid, uid, characters[i].CharacterID}]
		if _, err := m.SaveCharacter(ctx, &characters[i]); err != nil {
			return result, err
		}
		if existed {
			result.Updated++
		} else {
			result.Saved++
		}
	}
	return result, nil
}

func (m *mockCharacterRepo) SetFavorite(_ context.Context, openid, uid, characterID string, favorite bool) error {
	if c, ok := m.characters[characterKey{openid, uid, characterID}]; ok {
		c.IsFavorite = favorite
	}
	return nil
}

func (m *mockCharacterRepo) DeleteCharacter(_ context.Context, openid, uid, characterID string) error {
	delete(m.characters, characterKey{openid, uid, characterID})
	return nil
}

type mockSettingsRepo struct {
	settings map[string]*model.Settings
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{settings: make(map[string]*model.Settings)}
}

func (m *mockSettingsRepo) GetSettings(_ context.Context, openid string) (*model.Settings, error) {
	s, ok := m.settings[openid]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (m *mockSettingsRepo) CreateDefaultSettings(ctx context.Context, openid string) (*model.Settings, error) {
	if _, ok := m.settings[openid]; !ok {
		m.settings[openid] = &model.Settings{
			OpenID:              openid,
			Theme:               model.ThemeAuto,
			Language:            "zh-CN",
			AutoSync:            true,
			NotificationEnabled: true,
			DataCacheDuration:   3600,
		}
	}
	return m.GetSettings(ctx, openid)
}

func (m *mockSettingsRepo) UpdateSettings(ctx context.Context, openid string, update model.SettingsUpdate) (*model.Settings, error) {
	s, ok := m.settings[openid]
	if !ok {
		return nil, nil
	}
	if update.Theme != nil {
		s.Theme = *update.Theme
	}
	if update.Language != nil {
		s.Language = *update.Language
	}
	if update.AutoSync != nil {
		s.AutoSync = *update.AutoSync
	}
	if update.NotificationEnabled != nil {
		s.NotificationEnabled = *update.NotificationEnabled
	}
	if update.DataCacheDuration != nil {
		s.DataCacheDuration = *update.DataCacheDuration
	}
	if update.CustomSettings != nil {
		s.CustomSettings = append(json.RawMessage(nil), update.CustomSettings...)
	}
	return m.GetSettings(ctx, openid)
}

type mockSyncLogRepo struct {
	logs      []model.SyncLog
	createErr error
}

func (m *mockSyncLogRepo) CreateSyncLog(_ context.Context, log *model.SyncLog) error {
	if m.createErr != nil {
		return m.createErr
	}
	log.ID = int64(len(m.logs) + 1)
	log.CreatedAt = time.Now().UTC()
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockSyncLogRepo) ListSyncLogs(_ context.Context, openid string, limit int) ([]model.SyncLog, error) {
	var out []model.SyncLog
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		if m.logs[i].OpenID == openid {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

type mockStatsRepo struct {
	accounts  int
	chars     int
	favorites int
	latest    *model.SyncLog
	err       error
}

func (m *mockStatsRepo) CountGameAccounts(_ context.Context, _ string) (int, error) {
	return m.accounts, m.err
}

func (m *mockStatsRepo) CountCharacters(_ context.Context, _ string) (int, error) {
	return m.chars, m.err
}

func (m *mockStatsRepo) CountFavoriteCharacters(_ context.Context, _ string) (int, error) {
	return m.favorites, m.err
}

func (m *mockStatsRepo) LatestSyncLog(_ context.Context, _ string) (*model.SyncLog, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.latest, nil
}

type fakeFetcher struct {
	data  *upstream.PlayerData
	err   error
	calls int
}

func (f *fakeFetcher) FetchPlayerData(_ context.Context, _ string) (*upstream.PlayerData, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data, nil
}
