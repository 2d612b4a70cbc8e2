package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"

	"salesbot/models"
)

type WhitelistStore struct {
	db *dbx.DB
}

// IsWhitelisted reports whether the guild has an active, unexpired
// whitelist entry. An unknown guild is not whitelisted.
func (s *WhitelistStore) IsWhitelisted(ctx context.Context, guildID string) (bool, error) {
	var w models.GuildWhitelist
	err := s.db.Select().
		From("guild_whitelist").
		Where(dbx.HashExp{"guild_id": guildID}).
		WithContext(ctx).
		One(&w)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select whitelist for guild %s: %w", guildID, err)
	}
	return w.ActiveAt(time.Now().UTC()), nil
}

func (s *WhitelistStore) Upsert(ctx context.Context, w *models.GuildWhitelist) error {
	_, err := s.db.NewQuery(
		`INSERT INTO guild_whitelist (guild_id, owner_id, is_active, expires_at, updated_at)
		 VALUES ({:guild_id}, {:owner_id}, {:is_active}, {:expires_at}, {:updated_at})
		 ON CONFLICT (guild_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			is_active = EXCLUDED.is_active,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at`,
	).Bind(dbx.Params{
		"guild_id":   w.GuildID,
		"owner_id":   w.OwnerID,
		"is_active":  w.IsActive,
		"expires_at": w.ExpiresAt,
		"updated_at": time.Now().UTC(),
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("upsert whitelist for guild %s: %w", w.GuildID, err)
	}
	return nil
}
