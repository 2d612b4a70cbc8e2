package store

import (
	"context"
	"fmt"
)

// schema is applied by the setup-db command. Statements are idempotent
// so the command can run against an existing database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tickets (
		ticket_id      TEXT PRIMARY KEY,
		guild_id       TEXT NOT NULL,
		user_id        TEXT NOT NULL,
		username       TEXT NOT NULL,
		channel_id     TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'pending',
		payment_method TEXT,
		amount         NUMERIC(12,2),
		product        TEXT,
		confirmed_by   TEXT,
		notes          TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		confirmed_at   TIMESTAMPTZ,
		delivered_at   TIMESTAMPTZ,
		closed_at      TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tickets_user_status
		ON tickets (user_id, guild_id, status)`,

	`CREATE TABLE IF NOT EXISTS customers (
		user_id           TEXT PRIMARY KEY,
		username          TEXT NOT NULL,
		total_purchases   INTEGER NOT NULL DEFAULT 0,
		total_spent       NUMERIC(12,2) NOT NULL DEFAULT 0,
		vip_access        BOOLEAN NOT NULL DEFAULT FALSE,
		first_purchase_at TIMESTAMPTZ,
		last_purchase_at  TIMESTAMPTZ
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		ticket_id        TEXT PRIMARY KEY REFERENCES tickets (ticket_id),
		user_id          TEXT NOT NULL,
		payment_method   TEXT NOT NULL,
		amount           NUMERIC(12,2),
		status           TEXT NOT NULL DEFAULT 'pending',
		proof_url        TEXT,
		transaction_hash TEXT,
		confirmed_at     TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS staff_actions (
		id             BIGSERIAL PRIMARY KEY,
		guild_id       TEXT NOT NULL,
		staff_id       TEXT NOT NULL,
		staff_username TEXT NOT NULL,
		action_type    TEXT NOT NULL,
		ticket_id      TEXT,
		target_user_id TEXT,
		details        TEXT,
		timestamp      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_staff_actions_guild_time
		ON staff_actions (guild_id, timestamp DESC)`,

	`CREATE TABLE IF NOT EXISTS guild_whitelist (
		guild_id   TEXT PRIMARY KEY,
		owner_id   TEXT,
		is_active  BOOLEAN NOT NULL DEFAULT TRUE,
		expires_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Setup creates the tables and indexes the bot needs.
func (s *Store) Setup(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.NewQuery(stmt).WithContext(ctx).Execute(); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
