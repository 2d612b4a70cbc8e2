package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionRejected  TransactionStatus = "rejected"
)

// Transaction records a payment attempt for a ticket. A ticket has at
// most one transaction; it appears once the user picks a payment method
// or uploads proof.
type Transaction struct {
	TicketID        string            `db:"ticket_id" json:"ticket_id"`
	UserID          string            `db:"user_id" json:"user_id"`
	PaymentMethod   string            `db:"payment_method" json:"payment_method"` // paypal, bitcoin, giftcard
	Amount          *decimal.Decimal  `db:"amount" json:"amount,omitempty"`
	Status          TransactionStatus `db:"status" json:"status"`
	ProofURL        *string           `db:"proof_url" json:"proof_url,omitempty"`
	TransactionHash *string           `db:"transaction_hash" json:"transaction_hash,omitempty"`
	ConfirmedAt     *time.Time        `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"created_at"`
}
