package eventstore

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrConcurrencyConflict occurs when an append's expected version no longer
// matches the stream's stored version, meaning another command committed first.
// The caller may reload the stream and reissue the command.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// Payload is the closed set of account event payloads. Folding over a stream
// is an exhaustive type switch on this set.
type Payload interface {
	isPayload()
}

// AccountCreated records the opening of an account with its initial balance.
type AccountCreated struct {
	InitialBalance decimal.Decimal
}

// MoneyDeposited records funds added to an account.
type MoneyDeposited struct {
	Amount decimal.Decimal
}

// MoneyWithdrawn records funds removed from an account.
type MoneyWithdrawn struct {
	Amount decimal.Decimal
}

func (AccountCreated) isPayload() {}
func (MoneyDeposited) isPayload() {}
func (MoneyWithdrawn) isPayload() {}

// Event is an immutable fact about one aggregate. Version is assigned by the
// store at append time; until then it is zero. Ordering of truth is the
// store's version sequence, never the timestamp.
type Event struct {
	AggregateID string
	Version     int64
	Timestamp   time.Time
	Payload     Payload
}

// New builds an unversioned event stamped with the current time.
func New(aggregateID string, payload Payload) Event {
	return Event{
		AggregateID: aggregateID,
		Timestamp:   time.Now().UTC(),
		Payload:     payload,
	}
}

// Store is the durable append-only event log. For a given aggregate the
// stored versions are contiguous integers starting at 1; Append enforces this
// atomically, so exactly one of several concurrent appends sharing an expected
// version can succeed.
type Store interface {
	// Append persists events as one atomic unit, assigning consecutive
	// versions starting at expectedVersion+1. It fails with
	// ErrConcurrencyConflict when the stream's stored version differs from
	// expectedVersion at commit time. Returns the new highest version.
	Append(ctx context.Context, aggregateID string, events []Event, expectedVersion int64) (int64, error)

	// Read returns the full stream for the aggregate ordered by version
	// ascending. An unknown aggregate yields an empty slice, not an error.
	Read(ctx context.Context, aggregateID string) ([]Event, error)

	// LastVersion returns the highest stored version, 0 when the stream
	// does not exist.
	LastVersion(ctx context.Context, aggregateID string) (int64, error)

	// AggregateIDs lists every aggregate with at least one event. Used to
	// rebuild read models by replay.
	AggregateIDs(ctx context.Context) ([]string, error)
}
