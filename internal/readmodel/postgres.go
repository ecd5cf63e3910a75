package readmodel

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresStore keeps read model records in a denormalized table, for
// deployments running without Redis.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed read model store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the read model table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
        CREATE TABLE IF NOT EXISTS account_read_models (
            account_id TEXT PRIMARY KEY,
            balance NUMERIC NOT NULL,
            version BIGINT NOT NULL
        )`
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure read model schema: %w", err)
	}
	return nil
}

// Get fetches the record for the account.
func (s *PostgresStore) Get(ctx context.Context, accountID string) (Record, error) {
	record := Record{AccountID: accountID}
	var balance string
	err := s.db.QueryRow(ctx,
		`SELECT balance::text, version FROM account_read_models WHERE account_id = $1`,
		accountID).Scan(&balance, &record.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("read model get: %w", err)
	}

	record.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return Record{}, fmt.Errorf("decode read model balance: %w", err)
	}
	return record, nil
}

// Put upserts the record for the account.
func (s *PostgresStore) Put(ctx context.Context, record Record) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO account_read_models (account_id, balance, version)
         VALUES ($1, $2, $3)
         ON CONFLICT (account_id) DO UPDATE SET balance = EXCLUDED.balance, version = EXCLUDED.version`,
		record.AccountID, record.Balance.String(), record.Version)
	if err != nil {
		return fmt.Errorf("read model put: %w", err)
	}
	return nil
}
