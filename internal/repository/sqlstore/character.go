package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/sr-companion/internal/model"
	"github.com/sakif/sr-companion/internal/repository"
)

const characterColumns = `id, openid, uid, character_id, character_name, character_data,
	rarity, level, "rank", element, path, is_favorite, sync_version, created_at, updated_at`

func scanCharacter(scan func(dest ...any) error) (*model.Character, error) {
	var c model.Character
	var data string
	err := scan(&c.ID, &c.OpenID, &c.UID, &c.CharacterID, &c.Name, &data,
		&c.Rarity, &c.Level, &c.Rank, &c.Element, &c.Path,
		&c.IsFavorite, &c.SyncVersion, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Data = json.RawMessage(data)
	return &c, nil
}

// ListCharacters returns the user's character snapshots, optionally filtered by uid,
// most recently updated first.
func (s *Store) ListCharacters(ctx context.Context, openid, uid string) ([]model.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM user_character_data WHERE openid = ?`
	args := []any{openid}
	if uid != "" {
		query += ` AND uid = ?`
		args = append(args, uid)
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	var characters []model.Character
	err := s.db.Query(ctx, query, args, func(rows *sql.Rows) error {
		for rows.Next() {
			c, err := scanCharacter(rows.Scan)
			if err != nil {
				return err
			}
			characters = append(characters, *c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing characters: %w", err)
	}
	return characters, nil
}

// SaveCharacter upserts one snapshot. New rows start at sync_version 1; on
// (openid, uid, character_id) conflict the snapshot fields are replaced
// and sync_version increments by exactly one. is_favorite is never
// touched on conflict — syncs must not undo a user's favourites.
func (s *Store) SaveCharacter(ctx context.Context, c *model.Character) (*model.Character, error) {
	now := time.Now().UTC()
	data := string(c.Data)
	if data == "" {
		data = "{}"
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO user_character_data
			(openid, uid, character_id, character_name, character_data,
			 rarity, level, "rank", element, path, is_favorite, sync_version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		 ON CONFLICT (openid, uid, character_id) DO UPDATE SET
			character_name = excluded.character_name,
			character_data = excluded.character_data,
			rarity = excluded.rarity,
			level = excluded.level,
			"rank" = excluded."rank",
			element = excluded.element,
			path = excluded.path,
			sync_version = sync_version + 1,
			updated_at = excluded.updated_at`,
		c.OpenID, c.UID, c.CharacterID, c.Name, data,
		c.Rarity, c.Level, c.Rank, c.Element, c.Path, c.IsFavorite, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: saving character: %w", err)
	}

	return s.getCharacter(ctx, c.OpenID, c.UID, c.CharacterID)
}

func (s *Store) getCharacter(ctx context.Context, openid, uid, characterID string) (*model.Character, error) {
	var character *model.Character
	err := s.db.QueryRow(ctx,
		`SELECT `+characterColumns+`
		 FROM user_character_data
		 WHERE openid = ? AND uid = ? AND character_id = ?`,
		[]any{openid, uid, characterID},
		func(row *sql.Row) error {
			c, err := scanCharacter(row.Scan)
			if err != nil {
				return err
			}
			character = c
			return nil
		})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: getting character: %w", err)
	}
	return character, nil
}

// BatchSaveCharacters upserts a roster row by row and tallies new vs updated rows.
//
// The existence probe and the upsert are separate statements, so two
// concurrent syncs of the same roster can both count a character as "new".
// The counts are informational bookkeeping — the rows themselves converge
// because each upsert is atomic and last-writer-wins per character.
// Deliberately not wrapped in one transaction: a mid-batch failure keeps
// the rows already written, and the next sync picks up the rest.
func (s *Store) BatchSaveCharacters(ctx context.Context, openid, uid string, characters []model.Character) (repository.BatchSaveResult, error) {
	var result repository.BatchSaveResult

	for i := range characters {
		c := &characters[i]
		c.OpenID = openid
		c.UID = uid

		existing, err := s.getCharacter(ctx, openid, uid, c.CharacterID)
		if err != nil {
			return result, err
		}

		if _, err := s.SaveCharacter(ctx, c); err != nil {
			return result, err
		}

		if existing != nil {
			result.Updated++
		} else {
			result.Saved++
		}
	}

	s.logger.Debug("roster batch saved",
		slog.String("openid", openid),
		slog.String("uid", uid),
		slog.Int("saved", result.Saved),
		slog.Int("updated", result.Updated),
	)
	return result, nil
}

// SetFavorite stamps the favorite flag. Writing the same value twice is a
// no-op by construction; a missing row is silently ignored, matching the
// endpoint's fire-and-forget contract.
func (s *Store) SetFavorite(ctx context.Context, openid, uid, characterID string, favorite bool) error {
	_, err := s.db.Exec(ctx,
		`UPDATE user_character_data
		 SET is_favorite = ?, updated_at = ?
		 WHERE openid = ? AND uid = ? AND character_id = ?`,
		favorite, time.Now().UTC(), openid, uid, characterID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: setting favorite: %w", err)
	}
	return nil
}

// DeleteCharacter removes one snapshot. Deleting an absent row is not an error.
func (s *Store) DeleteCharacter(ctx context.Context, openid, uid, characterID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM user_character_data WHERE openid = ? AND uid = ? AND character_id = ?`,
		openid, uid, characterID,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: deleting character: %w", err)
	}
	return nil
}
