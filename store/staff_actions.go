package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"

	"salesbot/models"
)

// AuditStore appends to the staff action log. Rows are never updated or
// deleted.
type AuditStore struct {
	db *dbx.DB
}

func (s *AuditStore) Log(ctx context.Context, a *models.StaffAction) error {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	_, err := s.db.Insert("staff_actions", dbx.Params{
		"guild_id":       a.GuildID,
		"staff_id":       a.StaffID,
		"staff_username": a.StaffUsername,
		"action_type":    string(a.ActionType),
		"ticket_id":      a.TicketID,
		"target_user_id": a.TargetUserID,
		"details":        a.Details,
		"timestamp":      a.Timestamp,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert staff action %s: %w", a.ActionType, err)
	}
	return nil
}

func (s *AuditStore) Recent(ctx context.Context, guildID string, limit int) ([]models.StaffAction, error) {
	actions := []models.StaffAction{}
	err := s.db.Select().
		From("staff_actions").
		Where(dbx.HashExp{"guild_id": guildID}).
		OrderBy("timestamp DESC").
		Limit(int64(limit)).
		WithContext(ctx).
		All(&actions)
	if err != nil {
		return nil, fmt.Errorf("select recent staff actions: %w", err)
	}
	return actions, nil
}
