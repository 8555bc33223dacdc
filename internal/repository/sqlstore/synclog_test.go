package sqlstore

import (
	"context"
	"testing"

	"github.com/sakif/sr-companion/internal/model"
)

func TestCreateSyncLogAssignsID(t *testing.T) {
	store := newTestStore(t)

	log := &model.SyncLog{
		OpenID:          "openid-1",
		UID:             "123456789",
		SyncType:        model.SyncTypeFull,
		SyncStatus:      model.SyncStatusSuccess,
		CharactersCount: 8,
		SyncDuration:    1200,
	}
	if err := store.CreateSyncLog(context.Background(), log); err != nil {
		t.Fatalf("CreateSyncLog() error = %v", err)
	}
	if log.ID == 0 {
		t.Error("CreateSyncLog() did not assign a row id")
	}
	if log.CreatedAt.IsZero() {
		t.Error("CreateSyncLog() did not stamp created_at")
	}
}

func TestListSyncLogsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, status := range []model.SyncStatus{model.SyncStatusFailed, model.SyncStatusSuccess, model.SyncStatusSuccess} {
		log := &model.SyncLog{
			OpenID:          "openid-1",
			UID:             "123456789",
			SyncType:        model.SyncTypeFull,
			SyncStatus:      status,
			CharactersCount: i,
		}
		if err := store.CreateSyncLog(ctx, log); err != nil {
			t.Fatalf("CreateSyncLog() error = %v", err)
		}
	}
	// A different user's history stays out of the listing.
	other := &model.SyncLog{OpenID: "openid-2", UID: "987654321", SyncType: model.SyncTypeFull, SyncStatus: model.SyncStatusSuccess}
	if err := store.CreateSyncLog(ctx, other); err != nil {
		t.Fatalf("CreateSyncLog() error = %v", err)
	}

	logs, err := store.ListSyncLogs(ctx, "openid-1", 10)
	if err != nil {
		t.Fatalf("ListSyncLogs() error = %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("got %d logs, want 3", len(logs))
	}
	if logs[0].CharactersCount != 2 || logs[2].CharactersCount != 0 {
		t.Errorf("logs not newest-first: %+v", logs)
	}

	limited, err := store.ListSyncLogs(ctx, "openid-1", 2)
	if err != nil {
		t.Fatalf("limited ListSyncLogs() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d logs with limit 2, want 2", len(limited))
	}
}

func TestLatestSyncLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	latest, err := store.LatestSyncLog(ctx, "openid-1")
	if err != nil {
		t.Fatalf("LatestSyncLog() error = %v", err)
	}
	if latest != nil {
		t.Errorf("LatestSyncLog() = %+v before any sync, want nil", latest)
	}

	for _, status := range []model.SyncStatus{model.SyncStatusSuccess, model.SyncStatusFailed} {
		log := &model.SyncLog{OpenID: "openid-1", UID: "123456789", SyncType: model.SyncTypeFull, SyncStatus: status}
		if err := store.CreateSyncLog(ctx, log); err != nil {
			t.Fatalf("CreateSyncLog() error = %v", err)
		}
	}

	latest, err = store.LatestSyncLog(ctx, "openid-1")
	if err != nil {
		t.Fatalf("LatestSyncLog() error = %v", err)
	}
	if latest == nil || latest.SyncStatus != model.SyncStatusFailed {
		t.Errorf("LatestSyncLog() = %+v, want the failed attempt", latest)
	}
}

func TestStatsCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, uid := range []string{"111111111", "222222222"} {
		if _, err := store.UpsertGameAccount(ctx, &model.GameAccount{OpenID: "openid-1", UID: uid, IsActive: true}); err != nil {
			t.Fatalf("UpsertGameAccount() error = %v", err)
		}
	}
	for _, id := range []string{"1001", "1102", "1204"} {
		if _, err := store.SaveCharacter(ctx, testCharacter("openid-1", "111111111", id, "c"+id)); err != nil {
			t.Fatalf("SaveCharacter() error = %v", err)
		}
	}
	if err := store.SetFavorite(ctx, "openid-1", "111111111", "1102", true); err != nil {
		t.Fatalf("SetFavorite() error = %v", err)
	}

	accounts, err := store.CountGameAccounts(ctx, "openid-1")
	if err != nil {
		t.Fatalf("CountGameAccounts() error = %v", err)
	}
	characters, err := store.CountCharacters(ctx, "openid-1")
	if err != nil {
		t.Fatalf("CountCharacters() error = %v", err)
	}
	favorites, err := store.CountFavoriteCharacters(ctx, "openid-1")
	if err != nil {
		t.Fatalf("CountFavoriteCharacters() error = %v", err)
	}
	if accounts != 2 || characters != 3 || favorites != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/3/1", accounts, characters, favorites)
	}

	// An empty openid yields zeros, not errors.
	empty, err := store.CountCharacters(ctx, "openid-none")
	if err != nil {
		t.Fatalf("CountCharacters() for unknown user error = %v", err)
	}
	if empty != 0 {
		t.Errorf("count for unknown user = %d, want 0", empty)
	}
}
