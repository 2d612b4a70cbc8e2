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

type CustomerStore struct {
	db *dbx.DB
}

// GetOrCreate returns the customer row, inserting a fresh one on first
// contact. The insert tolerates a concurrent creation of the same row.
func (s *CustomerStore) GetOrCreate(ctx context.Context, userID, username string) (*models.Customer, error) {
	c, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}

	_, err = s.db.NewQuery(
		`INSERT INTO customers (user_id, username, total_purchases, total_spent, vip_access)
		 VALUES ({:user_id}, {:username}, 0, 0, FALSE)
		 ON CONFLICT (user_id) DO NOTHING`,
	).Bind(dbx.Params{"user_id": userID, "username": username}).
		WithContext(ctx).Execute()
	if err != nil {
		return nil, fmt.Errorf("insert customer %s: %w", userID, err)
	}
	return s.Get(ctx, userID)
}

// Get returns nil, nil when the user has no customer row yet.
func (s *CustomerStore) Get(ctx context.Context, userID string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.Select().
		From("customers").
		Where(dbx.HashExp{"user_id": userID}).
		WithContext(ctx).
		One(&c)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select customer %s: %w", userID, err)
	}
	return &c, nil
}

// RecordPurchase bumps the aggregates and sets the sticky VIP flag.
// first_purchase_at is written once; last_purchase_at moves on every
// purchase.
func (s *CustomerStore) RecordPurchase(ctx context.Context, userID string, amount decimal.Decimal) error {
	now := time.Now().UTC()
	_, err := s.db.NewQuery(
		`UPDATE customers SET
			total_purchases = total_purchases + 1,
			total_spent = total_spent + {:amount},
			vip_access = TRUE,
			first_purchase_at = COALESCE(first_purchase_at, {:now}),
			last_purchase_at = {:now}
		 WHERE user_id = {:user_id}`,
	).Bind(dbx.Params{"amount": amount, "now": now, "user_id": userID}).
		WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("record purchase for %s: %w", userID, err)
	}
	return nil
}

func (s *CustomerStore) GrantVIP(ctx context.Context, userID string) error {
	_, err := s.db.Update("customers",
		dbx.Params{"vip_access": true},
		dbx.HashExp{"user_id": userID},
	).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("grant vip to %s: %w", userID, err)
	}
	return nil
}

// Stats aggregates across all customers, for the staff stats command.
func (s *CustomerStore) Stats(ctx context.Context) (*models.CustomerStats, error) {
	var row struct {
		TotalCustomers int             `db:"total_customers"`
		TotalPurchases int             `db:"total_purchases"`
		TotalRevenue   decimal.Decimal `db:"total_revenue"`
	}
	err := s.db.NewQuery(
		`SELECT COUNT(*) AS total_customers,
		        COALESCE(SUM(total_purchases), 0) AS total_purchases,
		        COALESCE(SUM(total_spent), 0) AS total_revenue
		 FROM customers`,
	).WithContext(ctx).One(&row)
	if err != nil {
		return nil, fmt.Errorf("customer stats: %w", err)
	}
	return &models.CustomerStats{
		TotalCustomers: row.TotalCustomers,
		TotalPurchases: row.TotalPurchases,
		TotalRevenue:   row.TotalRevenue,
	}, nil
}
