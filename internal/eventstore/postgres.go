package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresStore persists event streams in PostgreSQL. The UNIQUE
// (aggregate_id, version) constraint is the concurrency token: the version
// check and the insert commit or fail as one serializable unit, so a stale
// expected version can never slip an event in between two readers.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres constructs a Postgres-backed event store.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the events table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const schema = `
        CREATE TABLE IF NOT EXISTS account_events (
            id UUID PRIMARY KEY,
            aggregate_id TEXT NOT NULL,
            version BIGINT NOT NULL,
            event_type TEXT NOT NULL,
            payload JSONB NOT NULL,
            occurred_at TIMESTAMPTZ NOT NULL,
            UNIQUE (aggregate_id, version)
        )`
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure event schema: %w", err)
	}
	return nil
}

// Append inserts all events in a single transaction at consecutive versions
// after expectedVersion. The in-transaction MAX(version) check rejects stale
// or skipped expectations; the unique constraint catches the remaining race
// where two appends pass the check with the same expectation, so at most one
// commits and the stream never gains gaps or duplicates.
func (s *PostgresStore) Append(ctx context.Context, aggregateID string, events []Event, expectedVersion int64) (int64, error) {
	if len(events) == 0 {
		return expectedVersion, nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var current int64
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM account_events WHERE aggregate_id = $1`,
		aggregateID).Scan(&current); err != nil {
		return 0, fmt.Errorf("read stream version: %w", err)
	}
	if current != expectedVersion {
		return 0, ErrConcurrencyConflict
	}

	version := expectedVersion
	for _, ev := range events {
		version++
		eventType, payload, err := MarshalPayload(ev.Payload)
		if err != nil {
			return 0, fmt.Errorf("encode event: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO account_events (id, aggregate_id, version, event_type, payload, occurred_at)
             VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), aggregateID, version, eventType, payload, ev.Timestamp.UTC()); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return 0, ErrConcurrencyConflict
			}
			return 0, fmt.Errorf("insert event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, ErrConcurrencyConflict
		}
		return 0, fmt.Errorf("commit append: %w", err)
	}

	return version, nil
}

// Read loads the full stream ordered by version.
func (s *PostgresStore) Read(ctx context.Context, aggregateID string) ([]Event, error) {
	rows, err := s.db.Query(ctx,
		`SELECT version, event_type, payload, occurred_at
         FROM account_events WHERE aggregate_id = $1 ORDER BY version ASC`,
		aggregateID)
	if err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		ev := Event{AggregateID: aggregateID}
		var eventType string
		var payload []byte
		if err := rows.Scan(&ev.Version, &eventType, &payload, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Payload, err = UnmarshalPayload(eventType, payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read stream: %w", err)
	}
	return events, nil
}

// LastVersion returns the highest stored version, 0 for an unknown aggregate.
func (s *PostgresStore) LastVersion(ctx context.Context, aggregateID string) (int64, error) {
	var version int64
	if err := s.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM account_events WHERE aggregate_id = $1`,
		aggregateID).Scan(&version); err != nil {
		return 0, fmt.Errorf("read stream version: %w", err)
	}
	return version, nil
}

// AggregateIDs lists every stream with at least one event.
func (s *PostgresStore) AggregateIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT DISTINCT aggregate_id FROM account_events ORDER BY aggregate_id`)
	if err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan aggregate id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list aggregates: %w", err)
	}
	return ids, nil
}
