package account

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/re4388/event-sourcing0/internal/eventstore"
)

var (
	// ErrInvalidCommand indicates malformed input: a negative initial
	// balance or a non-positive amount. Rejected before any event exists.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrInsufficientFunds occurs when a withdrawal exceeds the current
	// balance. Detected at validation time; the event is never produced.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNotFound indicates a command or query targeting an account with
	// no event history.
	ErrNotFound = errors.New("account not found")

	// ErrAlreadyExists indicates a creation targeting an id that already
	// has history.
	ErrAlreadyExists = errors.New("account already exists")
)

// Account is the aggregate state folded from one event stream. It is a plain
// value; Rebuild produces a fresh one from history and command methods never
// mutate it.
type Account struct {
	ID      string
	Balance decimal.Decimal
	Version int64
}

// Rebuild folds a stream into the current account state, starting from the
// zero state and bumping the version once per event. History produced through
// validated commands is well-formed, so the fold performs no validation; an
// unrecognized payload means the log itself is corrupt and fails loudly.
func Rebuild(history []eventstore.Event) (Account, error) {
	acc := Account{Balance: decimal.Zero}
	for _, ev := range history {
		switch p := ev.Payload.(type) {
		case eventstore.AccountCreated:
			acc.ID = ev.AggregateID
			acc.Balance = p.InitialBalance
		case eventstore.MoneyDeposited:
			acc.Balance = acc.Balance.Add(p.Amount)
		case eventstore.MoneyWithdrawn:
			acc.Balance = acc.Balance.Sub(p.Amount)
		default:
			return Account{}, fmt.Errorf("corrupt history for %s: unknown payload %T at version %d", ev.AggregateID, ev.Payload, ev.Version)
		}
		acc.Version++
	}
	return acc, nil
}

// Create validates an account-creation command and produces the opening
// event. The account must not exist yet; that check belongs to the command
// handler, which sees the stream.
func Create(accountID string, initialBalance decimal.Decimal) (eventstore.Event, error) {
	if accountID == "" {
		return eventstore.Event{}, fmt.Errorf("%w: account id is required", ErrInvalidCommand)
	}
	if initialBalance.IsNegative() {
		return eventstore.Event{}, fmt.Errorf("%w: initial balance cannot be negative", ErrInvalidCommand)
	}
	return eventstore.New(accountID, eventstore.AccountCreated{InitialBalance: initialBalance}), nil
}

// Deposit validates a deposit against current state and produces the event.
func (a Account) Deposit(amount decimal.Decimal) (eventstore.Event, error) {
	if a.Version == 0 {
		return eventstore.Event{}, fmt.Errorf("%w: account is not active", ErrInvalidCommand)
	}
	if amount.Sign() <= 0 {
		return eventstore.Event{}, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidCommand)
	}
	return eventstore.New(a.ID, eventstore.MoneyDeposited{Amount: amount}), nil
}

// Withdraw validates a withdrawal against current state and produces the
// event. Funds are checked here, before the event exists, never during replay.
func (a Account) Withdraw(amount decimal.Decimal) (eventstore.Event, error) {
	if a.Version == 0 {
		return eventstore.Event{}, fmt.Errorf("%w: account is not active", ErrInvalidCommand)
	}
	if amount.Sign() <= 0 {
		return eventstore.Event{}, fmt.Errorf("%w: withdraw amount must be positive", ErrInvalidCommand)
	}
	if a.Balance.LessThan(amount) {
		return eventstore.Event{}, ErrInsufficientFunds
	}
	return eventstore.New(a.ID, eventstore.MoneyWithdrawn{Amount: amount}), nil
}
