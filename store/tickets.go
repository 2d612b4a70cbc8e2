package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"

	"salesbot/models"
)

type TicketStore struct {
	db *dbx.DB
}

func (s *TicketStore) Create(ctx context.Context, t *models.Ticket) error {
	_, err := s.db.Insert("tickets", dbx.Params{
		"ticket_id":      t.TicketID,
		"guild_id":       t.GuildID,
		"user_id":        t.UserID,
		"username":       t.Username,
		"channel_id":     t.ChannelID,
		"status":         string(t.Status),
		"payment_method": t.PaymentMethod,
		"amount":         t.Amount,
		"product":        t.Product,
		"created_at":     t.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("insert ticket %s: %w", t.TicketID, err)
	}
	return nil
}

// ByID returns nil, nil when no ticket matches.
func (s *TicketStore) ByID(ctx context.Context, ticketID string) (*models.Ticket, error) {
	var t models.Ticket
	err := s.db.Select().
		From("tickets").
		Where(dbx.HashExp{"ticket_id": ticketID}).
		WithContext(ctx).
		One(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select ticket %s: %w", ticketID, err)
	}
	return &t, nil
}

func (s *TicketStore) ActiveByUser(ctx context.Context, userID, guildID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := s.db.Select().
		From("tickets").
		Where(dbx.HashExp{"user_id": userID, "guild_id": guildID}).
		AndWhere(dbx.In("status", activeStatusValues()...)).
		OrderBy("created_at DESC").
		WithContext(ctx).
		All(&tickets)
	if err != nil {
		return nil, fmt.Errorf("select active tickets for %s: %w", userID, err)
	}
	return tickets, nil
}

func (s *TicketStore) CountActive(ctx context.Context, userID, guildID string) (int, error) {
	var n int
	err := s.db.Select("COUNT(*)").
		From("tickets").
		Where(dbx.HashExp{"user_id": userID, "guild_id": guildID}).
		AndWhere(dbx.In("status", activeStatusValues()...)).
		WithContext(ctx).
		Row(&n)
	if err != nil {
		return 0, fmt.Errorf("count active tickets for %s: %w", userID, err)
	}
	return n, nil
}

func (s *TicketStore) CountPending(ctx context.Context, guildID string) (int, error) {
	var n int
	err := s.db.Select("COUNT(*)").
		From("tickets").
		Where(dbx.HashExp{"guild_id": guildID, "status": string(models.TicketPending)}).
		WithContext(ctx).
		Row(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending tickets: %w", err)
	}
	return n, nil
}

// UpdateStatusIf performs the guarded transition in a single UPDATE so
// two staff acting on the same ticket cannot both win. The loser sees
// zero rows affected and ok=false.
func (s *TicketStore) UpdateStatusIf(ctx context.Context, ticketID string, from []models.TicketStatus, to models.TicketStatus, changes models.TicketChanges) (bool, error) {
	params := dbx.Params{"status": string(to)}
	switch to {
	case models.TicketConfirmed:
		params["confirmed_at"] = time.Now().UTC()
	case models.TicketDelivered:
		params["delivered_at"] = time.Now().UTC()
	case models.TicketClosed:
		params["closed_at"] = time.Now().UTC()
	}
	if changes.ConfirmedBy != nil {
		params["confirmed_by"] = *changes.ConfirmedBy
	}
	if changes.Amount != nil {
		params["amount"] = *changes.Amount
	}
	if changes.Notes != nil {
		params["notes"] = *changes.Notes
	}

	fromVals := make([]any, len(from))
	for i, st := range from {
		fromVals[i] = string(st)
	}

	res, err := s.db.Update("tickets", params, dbx.And(
		dbx.HashExp{"ticket_id": ticketID},
		dbx.In("status", fromVals...),
	)).WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("update ticket %s to %s: %w", ticketID, to, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for ticket %s: %w", ticketID, err)
	}
	return n > 0, nil
}

// UpdatePayment records the chosen payment method, and the amount when
// already known.
func (s *TicketStore) UpdatePayment(ctx context.Context, ticketID, paymentMethod string, amount *decimal.Decimal) error {
	params := dbx.Params{"payment_method": paymentMethod}
	if amount != nil {
		params["amount"] = *amount
	}
	_, err := s.db.Update("tickets", params, dbx.HashExp{"ticket_id": ticketID}).
		WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("update payment for ticket %s: %w", ticketID, err)
	}
	return nil
}

func activeStatusValues() []any {
	vals := make([]any, len(models.ActiveStatuses))
	for i, st := range models.ActiveStatuses {
		vals[i] = string(st)
	}
	return vals
}
