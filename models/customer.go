package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer aggregates a user's purchase history. Created lazily on first
// contact, updated on every confirmed payment, never deleted. The
// aggregate columns only ever grow and the VIP flag is sticky.
type Customer struct {
	UserID          string          `db:"user_id" json:"user_id"`
	Username        string          `db:"username" json:"username"`
	TotalPurchases  int             `db:"total_purchases" json:"total_purchases"`
	TotalSpent      decimal.Decimal `db:"total_spent" json:"total_spent"`
	VIPAccess       bool            `db:"vip_access" json:"vip_access"`
	FirstPurchaseAt *time.Time      `db:"first_purchase_at" json:"first_purchase_at,omitempty"`
	LastPurchaseAt  *time.Time      `db:"last_purchase_at" json:"last_purchase_at,omitempty"`
}

type CustomerStats struct {
	TotalCustomers int             `json:"total_customers"`
	TotalPurchases int             `json:"total_purchases"`
	TotalRevenue   decimal.Decimal `json:"total_revenue"`
}

// User identifies the platform user acting on a command or button.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
