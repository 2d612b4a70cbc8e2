package models

import "time"

// GuildWhitelist gates which guilds the bot serves. A guild is served
// while its row is active and unexpired.
type GuildWhitelist struct {
	GuildID   string     `db:"guild_id" json:"guild_id"`
	OwnerID   *string    `db:"owner_id" json:"owner_id,omitempty"`
	IsActive  bool       `db:"is_active" json:"is_active"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// ActiveAt reports whether the whitelist entry admits the guild at the
// given instant.
func (w *GuildWhitelist) ActiveAt(now time.Time) bool {
	if w == nil || !w.IsActive {
		return false
	}
	if w.ExpiresAt != nil && w.ExpiresAt.Before(now) {
		return false
	}
	return true
}
