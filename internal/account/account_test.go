package account

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/re4388/event-sourcing0/internal/eventstore"
)

func history(id string, payloads ...eventstore.Payload) []eventstore.Event {
	events := make([]eventstore.Event, 0, len(payloads))
	for i, p := range payloads {
		ev := eventstore.New(id, p)
		ev.Version = int64(i) + 1
		events = append(events, ev)
	}
	return events
}

func TestRebuildFoldsHistory(t *testing.T) {
	h := history("acc-1",
		eventstore.AccountCreated{InitialBalance: decimal.NewFromInt(100)},
		eventstore.MoneyDeposited{Amount: decimal.NewFromInt(50)},
		eventstore.MoneyWithdrawn{Amount: decimal.NewFromInt(30)},
		eventstore.MoneyDeposited{Amount: decimal.RequireFromString("0.25")},
	)

	acc, err := Rebuild(h)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if acc.ID != "acc-1" {
		t.Fatalf("unexpected id %q", acc.ID)
	}
	if !acc.Balance.Equal(decimal.RequireFromString("120.25")) {
		t.Fatalf("expected balance 120.25, got %s", acc.Balance)
	}
	if acc.Version != 4 {
		t.Fatalf("expected version 4, got %d", acc.Version)
	}
}

func TestRebuildIsDeterministic(t *testing.T) {
	h := history("acc-1",
		eventstore.AccountCreated{InitialBalance: decimal.NewFromInt(10)},
		eventstore.MoneyDeposited{Amount: decimal.NewFromInt(5)},
	)

	first, err := Rebuild(h)
	if err != nil {
		t.Fatalf("first rebuild: %v", err)
	}
	second, err := Rebuild(h)
	if err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	if first.ID != second.ID || first.Version != second.Version || !first.Balance.Equal(second.Balance) {
		t.Fatalf("replays diverged: %+v vs %+v", first, second)
	}
}

func TestRebuildEmptyHistory(t *testing.T) {
	acc, err := Rebuild(nil)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if acc.Version != 0 || !acc.Balance.IsZero() {
		t.Fatalf("expected zero state, got %+v", acc)
	}
}

func TestCreateRejectsNegativeInitialBalance(t *testing.T) {
	if _, err := Create("acc-1", decimal.NewFromInt(-10)); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected invalid command, got %v", err)
	}
	if _, err := Create("", decimal.NewFromInt(10)); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected invalid command for empty id, got %v", err)
	}
}

func TestCreateAllowsZeroInitialBalance(t *testing.T) {
	ev, err := Create("acc-1", decimal.Zero)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	created, ok := ev.Payload.(eventstore.AccountCreated)
	if !ok {
		t.Fatalf("expected AccountCreated, got %T", ev.Payload)
	}
	if !created.InitialBalance.IsZero() {
		t.Fatalf("expected zero initial balance, got %s", created.InitialBalance)
	}
}

func TestDepositValidation(t *testing.T) {
	acc := Account{ID: "acc-1", Balance: decimal.NewFromInt(100), Version: 1}

	if _, err := acc.Deposit(decimal.Zero); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected invalid command for zero amount, got %v", err)
	}
	if _, err := acc.Deposit(decimal.NewFromInt(-5)); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected invalid command for negative amount, got %v", err)
	}
	if _, err := (Account{}).Deposit(decimal.NewFromInt(5)); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected invalid command for inactive account, got %v", err)
	}

	ev, err := acc.Deposit(decimal.NewFromInt(5))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if ev.AggregateID != "acc-1" {
		t.Fatalf("unexpected aggregate id %q", ev.AggregateID)
	}
}

func TestWithdrawNeverOverdraws(t *testing.T) {
	acc := Account{ID: "acc-1", Balance: decimal.NewFromInt(100), Version: 2}

	if _, err := acc.Withdraw(decimal.NewFromInt(101)); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if _, err := acc.Withdraw(decimal.Zero); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected invalid command, got %v", err)
	}

	// Withdrawing the exact balance is allowed.
	ev, err := acc.Withdraw(decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("withdraw full balance: %v", err)
	}
	if _, ok := ev.Payload.(eventstore.MoneyWithdrawn); !ok {
		t.Fatalf("expected MoneyWithdrawn, got %T", ev.Payload)
	}
}
