package readmodel

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound occurs when no record exists for the requested account.
var ErrNotFound = errors.New("read model record not found")

// Record is the cached projection of one account's latest state. It carries
// no authority: the event stream for the same id is the source of truth and
// the record can be rebuilt from it at any time.
type Record struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Version   int64           `json:"version"`
}

// Store is the keyed upsert store behind fast state queries. Put is an
// overwrite, so replaying the same projection twice is harmless.
type Store interface {
	Get(ctx context.Context, accountID string) (Record, error)
	Put(ctx context.Context, record Record) error
}
