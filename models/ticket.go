package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketPending   TicketStatus = "pending"
	TicketConfirmed TicketStatus = "confirmed"
	TicketRejected  TicketStatus = "rejected"
	TicketDelivered TicketStatus = "delivered"
	TicketClosed    TicketStatus = "closed"
)

// ActiveStatuses are the statuses that count toward the per-user ticket cap.
var ActiveStatuses = []TicketStatus{TicketPending, TicketConfirmed}

// Active reports whether a ticket in this status counts toward the cap.
func (s TicketStatus) Active() bool {
	return s == TicketPending || s == TicketConfirmed
}

// Ticket is a private purchase conversation plus its persisted state.
// TicketID doubles as the channel name; the two stay equal for the
// ticket's whole lifetime.
type Ticket struct {
	TicketID      string           `db:"ticket_id" json:"ticket_id"`
	GuildID       string           `db:"guild_id" json:"guild_id"`
	UserID        string           `db:"user_id" json:"user_id"`
	Username      string           `db:"username" json:"username"`
	ChannelID     string           `db:"channel_id" json:"channel_id"`
	Status        TicketStatus     `db:"status" json:"status"`
	PaymentMethod *string          `db:"payment_method" json:"payment_method,omitempty"`
	Amount        *decimal.Decimal `db:"amount" json:"amount,omitempty"`
	Product       *string          `db:"product" json:"product,omitempty"`
	ConfirmedBy   *string          `db:"confirmed_by" json:"confirmed_by,omitempty"`
	Notes         *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	ConfirmedAt   *time.Time       `db:"confirmed_at" json:"confirmed_at,omitempty"`
	DeliveredAt   *time.Time       `db:"delivered_at" json:"delivered_at,omitempty"`
	ClosedAt      *time.Time       `db:"closed_at" json:"closed_at,omitempty"`
}

// TicketChanges carries the optional columns written together with a
// status transition.
type TicketChanges struct {
	ConfirmedBy *string
	Amount      *decimal.Decimal
	Notes       *string
}
