package services

import (
	"context"

	"github.com/shopspring/decimal"

	"salesbot/models"
)

// The store package implements these against the hosted database. Each
// call is atomic at the single-row level; the workflows never assume
// cross-call transactionality.

type TicketStore interface {
	Create(ctx context.Context, t *models.Ticket) error
	// ByID returns nil, nil on a lookup miss.
	ByID(ctx context.Context, ticketID string) (*models.Ticket, error)
	ActiveByUser(ctx context.Context, userID, guildID string) ([]models.Ticket, error)
	CountActive(ctx context.Context, userID, guildID string) (int, error)
	// UpdateStatusIf transitions the ticket to the target status only if
	// its current status is one of from, and reports whether a row was
	// updated. Timestamp columns matching the target status are stamped
	// by the store.
	UpdateStatusIf(ctx context.Context, ticketID string, from []models.TicketStatus, to models.TicketStatus, changes models.TicketChanges) (bool, error)
	UpdatePayment(ctx context.Context, ticketID, paymentMethod string, amount *decimal.Decimal) error
}

type CustomerStore interface {
	GetOrCreate(ctx context.Context, userID, username string) (*models.Customer, error)
	// RecordPurchase bumps the purchase aggregates, stamps first/last
	// purchase and sets the VIP flag.
	RecordPurchase(ctx context.Context, userID string, amount decimal.Decimal) error
	// GrantVIP sets the VIP flag without touching the aggregates.
	GrantVIP(ctx context.Context, userID string) error
}

type TransactionStore interface {
	Upsert(ctx context.Context, tx *models.Transaction) error
	// ByTicket returns nil, nil when the ticket has no transaction yet.
	ByTicket(ctx context.Context, ticketID string) (*models.Transaction, error)
	// UpdateStatusByTicket reports whether a transaction existed.
	UpdateStatusByTicket(ctx context.Context, ticketID string, status models.TransactionStatus) (bool, error)
}

type AuditStore interface {
	Log(ctx context.Context, a *models.StaffAction) error
}
