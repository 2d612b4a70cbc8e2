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

type TransactionStore struct {
	db *dbx.DB
}

// Upsert writes the ticket's transaction, overwriting the mutable
// columns when one already exists. A ticket keeps at most one
// transaction row.
func (s *TransactionStore) Upsert(ctx context.Context, tx *models.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NewQuery(
		`INSERT INTO transactions
			(ticket_id, user_id, payment_method, amount, status, proof_url, transaction_hash, confirmed_at, created_at)
		 VALUES
			({:ticket_id}, {:user_id}, {:payment_method}, {:amount}, {:status}, {:proof_url}, {:transaction_hash}, {:confirmed_at}, {:created_at})
		 ON CONFLICT (ticket_id) DO UPDATE SET
			payment_method = EXCLUDED.payment_method,
			amount = COALESCE(EXCLUDED.amount, transactions.amount),
			status = EXCLUDED.status,
			proof_url = COALESCE(EXCLUDED.proof_url, transactions.proof_url),
			transaction_hash = COALESCE(EXCLUDED.transaction_hash, transactions.transaction_hash),
			confirmed_at = COALESCE(EXCLUDED.confirmed_at, transactions.confirmed_at)`,
	).Bind(dbx.Params{
		"ticket_id":        tx.TicketID,
		"user_id":          tx.UserID,
		"payment_method":   tx.PaymentMethod,
		"amount":           tx.Amount,
		"status":           string(tx.Status),
		"proof_url":        tx.ProofURL,
		"transaction_hash": tx.TransactionHash,
		"confirmed_at":     tx.ConfirmedAt,
		"created_at":       tx.CreatedAt,
	}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("upsert transaction for ticket %s: %w", tx.TicketID, err)
	}
	return nil
}

// ByTicket returns nil, nil when the ticket has no transaction yet.
func (s *TransactionStore) ByTicket(ctx context.Context, ticketID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := s.db.Select().
		From("transactions").
		Where(dbx.HashExp{"ticket_id": ticketID}).
		WithContext(ctx).
		One(&tx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select transaction for ticket %s: %w", ticketID, err)
	}
	return &tx, nil
}

// UpdateStatusByTicket reports whether a transaction existed to update.
func (s *TransactionStore) UpdateStatusByTicket(ctx context.Context, ticketID string, status models.TransactionStatus) (bool, error) {
	params := dbx.Params{"status": string(status)}
	if status == models.TransactionConfirmed {
		params["confirmed_at"] = time.Now().UTC()
	}
	res, err := s.db.Update("transactions", params, dbx.HashExp{"ticket_id": ticketID}).
		WithContext(ctx).Execute()
	if err != nil {
		return false, fmt.Errorf("update transaction for ticket %s: %w", ticketID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected for transaction %s: %w", ticketID, err)
	}
	return n > 0, nil
}
