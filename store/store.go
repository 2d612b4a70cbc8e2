// Package store is the persistence gateway. All reads and writes to the
// hosted Postgres database go through it; the services layer only sees
// the interfaces it exports.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pocketbase/dbx"

	_ "github.com/lib/pq"
)

type Store struct {
	db *dbx.DB

	Tickets      *TicketStore
	Customers    *CustomerStore
	Transactions *TransactionStore
	Audit        *AuditStore
	Whitelist    *WhitelistStore
}

// Open connects to the database and verifies the connection before
// returning. dsn is a postgres:// URL.
func Open(dsn string) (*Store, error) {
	db, err := dbx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.DB().SetMaxOpenConns(20)
	db.DB().SetMaxIdleConns(5)
	db.DB().SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.DB().PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	s.Tickets = &TicketStore{db: db}
	s.Customers = &CustomerStore{db: db}
	s.Transactions = &TransactionStore{db: db}
	s.Audit = &AuditStore{db: db}
	s.Whitelist = &WhitelistStore{db: db}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck pings the database with a short deadline, for the ops
// endpoint.
func (s *Store) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.DB().PingContext(ctx)
}
