package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/sr-companion/internal/apperror"
	"github.com/sakif/sr-companion/internal/model"
	"github.com/sakif/sr-companion/internal/repository"
	"github.com/sakif/sr-companion/internal/upstream"
)

// PlayerFetcher is the slice of the upstream client the sync workflow
// needs. Tests substitute a canned implementation.
type PlayerFetcher interface {
	FetchPlayerData(ctx context.Context, uid string) (*upstream.PlayerData, error)
}

// SyncService runs the character sync workflow: fetch the current roster
// from the upstream API, reconcile it into the store and record the
// attempt in the sync history.
type SyncService struct {
	fetcher    PlayerFetcher
	accounts   repository.GameAccountRepository
	characters repository.CharacterRepository
	syncLogs   repository.SyncLogRepository
	logger     *slog.Logger
}

// NewSyncService creates a SyncService.
func NewSyncService(
	fetcher PlayerFetcher,
	accounts repository.GameAccountRepository,
	characters repository.CharacterRepository,
	syncLogs repository.SyncLogRepository,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		fetcher:    fetcher,
		accounts:   accounts,
		characters: characters,
		syncLogs:   syncLogs,
		logger:     logger,
	}
}

// SyncCharacters syncs the roster for (openid, uid).
//
// The uid does not have to be bound beforehand: a successful upstream
// fetch proves the uid is real, so the account is bound as a side effect
// (and becomes primary if it is the user's first). An upstream failure
// for an unbound uid is reported as a validation error — the user most
// likely typed the uid wrong — and leaves no trace in the sync history.
// Every attempt that gets past that point is recorded, success or not.
func (s *SyncService) SyncCharacters(ctx context.Context, openid, uid string) (*model.SyncResult, error) {
	if !ValidGameUID(uid) {
		return nil, apperror.ValidationFailed("uid", "INVALID_UID", "uid must be exactly 9 digits")
	}

	start := time.Now()
	traceID := xid.New().String()
	logger := s.logger.With(
		slog.String("sync_id", traceID),
		slog.String("openid", openid),
		slog.String("uid", uid),
	)
	logger.Info("starting character sync")

	existing, err := s.accounts.ListGameAccounts(ctx, openid)
	if err != nil {
		return nil, s.fail(ctx, logger, openid, uid, start, err)
	}
	bound := false
	for _, a := range existing {
		if a.UID == uid {
			bound = true
			break
		}
	}

	data, err := s.fetcher.FetchPlayerData(ctx, uid)
	if err != nil {
		if !bound {
			logger.Warn("upstream rejected unbound uid", slog.String("error", err.Error()))
			return nil, apperror.ValidationFailed("uid", "INVALID_GAME_UID",
				fmt.Sprintf("no player data found for uid %s", uid))
		}
		s.record(ctx, logger, &model.SyncLog{
			OpenID:       openid,
			UID:          uid,
			SyncType:     model.SyncTypeFull,
			SyncStatus:   model.SyncStatusFailed,
			ErrorMessage: err.Error(),
			SyncDuration: time.Since(start).Milliseconds(),
		})
		return nil, err
	}

	now := time.Now().UTC()
	lastSync := now
	if _, err := s.accounts.UpsertGameAccount(ctx, &model.GameAccount{
		OpenID:       openid,
		UID:          uid,
		Nickname:     data.Player.Nickname,
		Level:        data.Player.Level,
		WorldLevel:   data.Player.WorldLevel,
		IsPrimary:    len(existing) == 0,
		IsActive:     true,
		LastSyncTime: &lastSync,
	}); err != nil {
		return nil, s.fail(ctx, logger, openid, uid, start, err)
	}

	roster := make([]model.Character, 0, len(data.Characters))
	for _, c := range data.Characters {
		roster = append(roster, toCharacter(openid, uid, c))
	}
	result, err := s.characters.BatchSaveCharacters(ctx, openid, uid, roster)
	if err != nil {
		return nil, s.fail(ctx, logger, openid, uid, start, err)
	}

	duration := time.Since(start)
	s.record(ctx, logger, &model.SyncLog{
		OpenID:          openid,
		UID:             uid,
		SyncType:        model.SyncTypeFull,
		SyncStatus:      model.SyncStatusSuccess,
		CharactersCount: len(roster),
		SyncDuration:    duration.Milliseconds(),
	})

	logger.Info("character sync complete",
		slog.Int("synced", len(roster)),
		slog.Int("new", result.Saved),
		slog.Int("updated", result.Updated),
		slog.Duration("duration", duration),
	)
	return &model.SyncResult{
		Success:           true,
		CharactersSynced:  len(roster),
		CharactersUpdated: result.Updated,
		CharactersNew:     result.Saved,
		SyncTime:          now,
	}, nil
}

// fail records a failed attempt and wraps the cause. The history write is
// best effort: if it fails too, the original error still reaches the
// caller.
func (s *SyncService) fail(ctx context.Context, logger *slog.Logger, openid, uid string, start time.Time, cause error) error {
	s.record(ctx, logger, &model.SyncLog{
		OpenID:       openid,
		UID:          uid,
		SyncType:     model.SyncTypeFull,
		SyncStatus:   model.SyncStatusFailed,
		ErrorMessage: cause.Error(),
		SyncDuration: time.Since(start).Milliseconds(),
	})
	return apperror.SyncFailed(cause)
}

func (s *SyncService) record(ctx context.Context, logger *slog.Logger, log *model.SyncLog) {
	if err := s.syncLogs.CreateSyncLog(ctx, log); err != nil {
		logger.Error("failed to record sync attempt", slog.String("error", err.Error()))
	}
}

// toCharacter maps an upstream roster entry to its persisted form. The
// full entry rides along as opaque JSON; a missing payload degrades to an
// empty object so the column stays valid JSON.
func toCharacter(openid, uid string, c upstream.Character) model.Character {
	data := c.Raw
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	return model.Character{
		OpenID:      openid,
		UID:         uid,
		CharacterID: c.ID,
		Name:        c.Name,
		Data:        data,
		Rarity:      c.Rarity,
		Level:       c.Level,
		Rank:        c.Rank,
		Element:     c.ElementName(),
		Path:        c.PathName(),
	}
}
