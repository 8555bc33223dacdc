// Package service contains the business logic layer: validation, rules
// and orchestration between the persistence interfaces and the upstream
// game-data client. Services accept primitives and domain types, never
// HTTP types, and return apperror values for the handlers to translate.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/sakif/sr-companion/internal/apperror"
	"github.com/sakif/sr-companion/internal/model"
	"github.com/sakif/sr-companion/internal/repository"
)

// Validation limits for profile fields and list queries.
const (
	MaxNicknameLength  = 100
	MaxAvatarURLLength = 500
	DefaultLogLimit    = 20
	MaxLogLimit        = 100
)

// gameUIDPattern matches a bindable game account UID. The game hands out
// 9-digit UIDs on every current server shard.
var gameUIDPattern = regexp.MustCompile(`^[0-9]{9}$`)

// ValidGameUID reports whether uid is a well-formed game account UID.
func ValidGameUID(uid string) bool {
	return gameUIDPattern.MatchString(uid)
}

// UserService handles accounts, profiles, characters and settings for one
// authenticated openid. All methods take the openid explicitly — identity
// extraction is middleware's job.
type UserService struct {
	users      repository.UserRepository
	accounts   repository.GameAccountRepository
	characters repository.CharacterRepository
	settings   repository.SettingsRepository
	syncLogs   repository.SyncLogRepository
	logger     *slog.Logger
}

// NewUserService creates a UserService with its persistence dependencies.
func NewUserService(
	users repository.UserRepository,
	accounts repository.GameAccountRepository,
	characters repository.CharacterRepository,
	settings repository.SettingsRepository,
	syncLogs repository.SyncLogRepository,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:      users,
		accounts:   accounts,
		characters: characters,
		settings:   settings,
		syncLogs:   syncLogs,
		logger:     logger,
	}
}

// LoginOrRegister resolves the gateway-asserted identity to a user row,
// creating the row and its default settings on first contact. A returning
// user's unionid is merged whenever the gateway supplies one that differs
// from the stored value.
func (s *UserService) LoginOrRegister(ctx context.Context, openid, unionid string) (*model.LoginResult, error) {
	user, err := s.users.GetUser(ctx, openid)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user = &model.User{
			OpenID:   openid,
			UnionID:  unionid,
			IsActive: true,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("service: registering user: %w", err)
		}
		if _, err := s.settings.CreateDefaultSettings(ctx, openid); err != nil {
			return nil, fmt.Errorf("service: creating default settings: %w", err)
		}
		s.logger.Info("registered new user", slog.String("openid", openid))
		return &model.LoginResult{User: user, IsNewUser: true}, nil
	}

	if unionid != "" && unionid != user.UnionID {
		user, err = s.users.UpdateUser(ctx, openid, repository.UserUpdate{UnionID: &unionid})
		if err != nil {
			return nil, fmt.Errorf("service: backfilling unionid: %w", err)
		}
	}
	return &model.LoginResult{User: user, IsNewUser: false}, nil
}

// GetProfile returns the user together with their game accounts and
// settings, so the account page needs a single round trip.
func (s *UserService) GetProfile(ctx context.Context, openid string) (*model.Profile, error) {
	user, err := s.users.GetUser(ctx, openid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("USER_NOT_FOUND", "user", openid)
	}

	accounts, err := s.accounts.ListGameAccounts(ctx, openid)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []model.GameAccount{}
	}

	settings, err := s.GetSettings(ctx, openid)
	if err != nil {
		return nil, err
	}
	return &model.Profile{User: user, GameAccounts: accounts, Settings: settings}, nil
}

// UpdateProfile applies a partial profile change after validating field
// lengths. An empty update is a no-op read.
func (s *UserService) UpdateProfile(ctx context.Context, openid string, nickname, avatarURL *string) (*model.User, error) {
	update := repository.UserUpdate{}
	if nickname != nil {
		trimmed := strings.TrimSpace(*nickname)
		if len(trimmed) > MaxNicknameLength {
			return nil, apperror.ValidationFailed("nickname", "INVALID_NICKNAME",
				fmt.Sprintf("nickname must be at most %d characters", MaxNicknameLength))
		}
		update.Nickname = &trimmed
	}
	if avatarURL != nil {
		if len(*avatarURL) > MaxAvatarURLLength {
			return nil, apperror.ValidationFailed("avatar_url", "INVALID_AVATAR_URL",
				fmt.Sprintf("avatar_url must be at most %d characters", MaxAvatarURLLength))
		}
		update.AvatarURL = avatarURL
	}

	user, err := s.users.UpdateUser(ctx, openid, update)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NotFound("USER_NOT_FOUND", "user", openid)
	}
	return user, nil
}

// ListGameAccounts returns the user's active accounts, primary first.
func (s *UserService) ListGameAccounts(ctx context.Context, openid string) ([]model.GameAccount, error) {
	return s.accounts.ListGameAccounts(ctx, openid)
}

// GameAccountBind is the manual-bind request: the profile fields the
// client already knows, ahead of the first sync.
type GameAccountBind struct {
	UID        string
	Nickname   string
	Level      int
	WorldLevel int
	IsPrimary  bool
}

// AddGameAccount binds a game UID to the user. The first account a user
// binds becomes primary automatically; bind.IsPrimary forces it for
// later ones.
func (s *UserService) AddGameAccount(ctx context.Context, openid string, bind GameAccountBind) (*model.GameAccount, error) {
	if !ValidGameUID(bind.UID) {
		return nil, apperror.ValidationFailed("uid", "INVALID_UID", "uid must be exactly 9 digits")
	}

	existing, err := s.accounts.ListGameAccounts(ctx, openid)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.UpsertGameAccount(ctx, &model.GameAccount{
		OpenID:     openid,
		UID:        bind.UID,
		Nickname:   bind.Nickname,
		Level:      bind.Level,
		WorldLevel: bind.WorldLevel,
		IsPrimary:  len(existing) == 0,
		IsActive:   true,
	})
	if err != nil {
		return nil, err
	}

	if bind.IsPrimary && !account.IsPrimary {
		if _, err := s.accounts.SetPrimaryGameAccount(ctx, openid, bind.UID); err != nil {
			return nil, err
		}
		account.IsPrimary = true
	}

	s.logger.Info("game account bound",
		slog.String("openid", openid),
		slog.String("uid", bind.UID),
		slog.Bool("primary", account.IsPrimary),
	)
	return account, nil
}

// SetPrimaryAccount makes uid the user's primary account.
func (s *UserService) SetPrimaryAccount(ctx context.Context, openid, uid string) error {
	if !ValidGameUID(uid) {
		return apperror.ValidationFailed("uid", "INVALID_UID", "uid must be exactly 9 digits")
	}
	ok, err := s.accounts.SetPrimaryGameAccount(ctx, openid, uid)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("GAME_ACCOUNT_NOT_FOUND", "game account", uid)
	}
	return nil
}

// ListCharacters returns the user's persisted characters, optionally
// filtered to one account.
func (s *UserService) ListCharacters(ctx context.Context, openid, uid string) ([]model.Character, error) {
	if uid != "" && !ValidGameUID(uid) {
		return nil, apperror.ValidationFailed("uid", "INVALID_UID", "uid must be exactly 9 digits")
	}
	return s.characters.ListCharacters(ctx, openid, uid)
}

// SetFavoriteCharacter flips the favourite flag on one character snapshot.
func (s *UserService) SetFavoriteCharacter(ctx context.Context, openid, uid, characterID string, favorite bool) error {
	if !ValidGameUID(uid) {
		return apperror.ValidationFailed("uid", "INVALID_UID", "uid must be exactly 9 digits")
	}
	if characterID == "" {
		return apperror.ValidationFailed("character_id", "INVALID_CHARACTER_ID", "character_id is required")
	}
	return s.characters.SetFavorite(ctx, openid, uid, characterID, favorite)
}

// DeleteCharacter removes one character snapshot. Deleting a character the
// user never synced is not an error.
func (s *UserService) DeleteCharacter(ctx context.Context, openid, uid, characterID string) error {
	if !ValidGameUID(uid) {
		return apperror.ValidationFailed("uid", "INVALID_UID", "uid must be exactly 9 digits")
	}
	if characterID == "" {
		return apperror.ValidationFailed("character_id", "INVALID_CHARACTER_ID", "character_id is required")
	}
	return s.characters.DeleteCharacter(ctx, openid, uid, characterID)
}

// GetSettings returns the user's settings, creating the default row on
// first access.
func (s *UserService) GetSettings(ctx context.Context, openid string) (*model.Settings, error) {
	return s.settings.CreateDefaultSettings(ctx, openid)
}

// UpdateSettings validates and applies a partial settings change. The
// settings row is created with defaults first if the user never had one.
func (s *UserService) UpdateSettings(ctx context.Context, openid string, update model.SettingsUpdate) (*model.Settings, error) {
	if update.IsZero() {
		return nil, apperror.ValidationFailed("body", "NO_VALID_FIELDS",
			"at least one settings field must be supplied")
	}
	if update.Theme != nil && !model.ValidTheme(*update.Theme) {
		return nil, apperror.ValidationFailed("theme", "INVALID_THEME",
			"theme must be one of light, dark, auto")
	}
	if update.DataCacheDuration != nil && *update.DataCacheDuration < 0 {
		return nil, apperror.ValidationFailed("data_cache_duration", "INVALID_CACHE_DURATION",
			"data_cache_duration must not be negative")
	}

	if _, err := s.settings.CreateDefaultSettings(ctx, openid); err != nil {
		return nil, err
	}
	return s.settings.UpdateSettings(ctx, openid, update)
}

// ListSyncLogs returns the user's most recent sync attempts. The limit is
// clamped to [1, MaxLogLimit]; zero or negative means DefaultLogLimit.
func (s *UserService) ListSyncLogs(ctx context.Context, openid string, limit int) ([]model.SyncLog, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}
	if limit > MaxLogLimit {
		limit = MaxLogLimit
	}
	return s.syncLogs.ListSyncLogs(ctx, openid, limit)
}
