package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/sr-companion/internal/model"
	"github.com/sakif/sr-companion/internal/repository"
)

// StatsService assembles the per-user dashboard counters.
type StatsService struct {
	stats  repository.StatsRepository
	logger *slog.Logger
}

// NewStatsService creates a StatsService.
func NewStatsService(stats repository.StatsRepository, logger *slog.Logger) *StatsService {
	return &StatsService{stats: stats, logger: logger}
}

// UserStats gathers the four counters concurrently. The queries are
// independent reads, so a slightly torn view across them is acceptable;
// any single failure fails the whole call.
func (s *StatsService) UserStats(ctx context.Context, openid string) (*model.UserStats, error) {
	var stats model.UserStats

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.stats.CountGameAccounts(ctx, openid)
		stats.GameAccountsCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.stats.CountCharacters(ctx, openid)
		stats.CharactersCount = n
		return err
	})
	g.Go(func() error {
		n, err := s.stats.CountFavoriteCharacters(ctx, openid)
		stats.FavoriteCharactersCount = n
		return err
	})
	g.Go(func() error {
		latest, err := s.stats.LatestSyncLog(ctx, openid)
		if err != nil {
			return err
		}
		if latest != nil {
			t := latest.CreatedAt
			stats.LastSyncTime = &t
			stats.LastSyncStatus = string(latest.SyncStatus)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}
