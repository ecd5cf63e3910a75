package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/re4388/event-sourcing0/internal/eventstore"
	"github.com/re4388/event-sourcing0/internal/notification"
	"github.com/re4388/event-sourcing0/internal/readmodel"
)

// Service is the single writer path into the event store and the read model.
// Each command runs load -> rebuild -> validate -> conditional append ->
// project as one logical unit; correctness under concurrent commands comes
// entirely from the store's atomic conditional append, not from any
// in-process lock.
type Service struct {
	events   eventstore.Store
	reads    readmodel.Store
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService builds an account service instance.
func NewService(events eventstore.Store, reads readmodel.Store, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{events: events, reads: reads, notifier: notifier, logger: logger}
}

// CreateAccount opens a new account with the given initial balance.
func (s *Service) CreateAccount(ctx context.Context, accountID string, initialBalance decimal.Decimal) (readmodel.Record, error) {
	ev, err := Create(accountID, initialBalance)
	if err != nil {
		return readmodel.Record{}, err
	}

	last, err := s.events.LastVersion(ctx, accountID)
	if err != nil {
		return readmodel.Record{}, fmt.Errorf("check stream for %s: %w", accountID, err)
	}
	if last != 0 {
		return readmodel.Record{}, ErrAlreadyExists
	}

	newVersion, err := s.events.Append(ctx, accountID, []eventstore.Event{ev}, 0)
	if err != nil {
		// Losing the race on version 0 means someone else created the
		// account between the check and the append.
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return readmodel.Record{}, ErrAlreadyExists
		}
		return readmodel.Record{}, fmt.Errorf("append creation for %s: %w", accountID, err)
	}

	record := readmodel.Record{AccountID: accountID, Balance: initialBalance, Version: newVersion}
	if err := s.project(ctx, record); err != nil {
		return readmodel.Record{}, err
	}

	s.logger.Info("account created", "account_id", accountID, "balance", initialBalance.String())
	return record, nil
}

// Deposit adds funds to an existing account and returns the new state.
func (s *Service) Deposit(ctx context.Context, accountID string, amount decimal.Decimal) (readmodel.Record, error) {
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return readmodel.Record{}, err
	}

	ev, err := acc.Deposit(amount)
	if err != nil {
		return readmodel.Record{}, err
	}

	newVersion, err := s.events.Append(ctx, accountID, []eventstore.Event{ev}, acc.Version)
	if err != nil {
		return readmodel.Record{}, fmt.Errorf("append deposit for %s: %w", accountID, err)
	}

	record := readmodel.Record{AccountID: accountID, Balance: acc.Balance.Add(amount), Version: newVersion}
	if err := s.project(ctx, record); err != nil {
		return readmodel.Record{}, err
	}

	s.notify(ctx, notification.KindDeposit, accountID, amount)
	return record, nil
}

// Withdraw removes funds from an existing account and returns the new state.
func (s *Service) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal) (readmodel.Record, error) {
	acc, err := s.load(ctx, accountID)
	if err != nil {
		return readmodel.Record{}, err
	}

	ev, err := acc.Withdraw(amount)
	if err != nil {
		return readmodel.Record{}, err
	}

	newVersion, err := s.events.Append(ctx, accountID, []eventstore.Event{ev}, acc.Version)
	if err != nil {
		return readmodel.Record{}, fmt.Errorf("append withdrawal for %s: %w", accountID, err)
	}

	record := readmodel.Record{AccountID: accountID, Balance: acc.Balance.Sub(amount), Version: newVersion}
	if err := s.project(ctx, record); err != nil {
		return readmodel.Record{}, err
	}

	s.notify(ctx, notification.KindWithdrawal, accountID, amount)
	return record, nil
}

// GetState answers a fast state query from the read model, bypassing replay.
func (s *Service) GetState(ctx context.Context, accountID string) (readmodel.Record, error) {
	record, err := s.reads.Get(ctx, accountID)
	if errors.Is(err, readmodel.ErrNotFound) {
		return readmodel.Record{}, ErrNotFound
	}
	if err != nil {
		return readmodel.Record{}, fmt.Errorf("get state for %s: %w", accountID, err)
	}
	return record, nil
}

// GetHistory returns the full audit trail for an account from the event log.
func (s *Service) GetHistory(ctx context.Context, accountID string) ([]eventstore.Event, error) {
	history, err := s.events.Read(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("read history for %s: %w", accountID, err)
	}
	if len(history) == 0 {
		return nil, ErrNotFound
	}
	return history, nil
}

// RebuildReadModels reprojects every stream from scratch. This is the
// designed recovery path for a stale or lost read model; running it twice
// produces the same records. Returns the number of accounts reprojected.
func (s *Service) RebuildReadModels(ctx context.Context) (int, error) {
	ids, err := s.events.AggregateIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list streams: %w", err)
	}

	for _, id := range ids {
		history, err := s.events.Read(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("read stream %s: %w", id, err)
		}
		acc, err := Rebuild(history)
		if err != nil {
			return 0, err
		}
		record := readmodel.Record{AccountID: id, Balance: acc.Balance, Version: acc.Version}
		if err := s.reads.Put(ctx, record); err != nil {
			return 0, fmt.Errorf("project %s: %w", id, err)
		}
	}

	s.logger.Info("read models rebuilt", "accounts", len(ids))
	return len(ids), nil
}

func (s *Service) load(ctx context.Context, accountID string) (Account, error) {
	history, err := s.events.Read(ctx, accountID)
	if err != nil {
		return Account{}, fmt.Errorf("read stream for %s: %w", accountID, err)
	}
	if len(history) == 0 {
		return Account{}, ErrNotFound
	}
	return Rebuild(history)
}

// project runs strictly after a durable append. A failure here leaves the
// read model stale, never the event log wrong; RebuildReadModels repairs it.
func (s *Service) project(ctx context.Context, record readmodel.Record) error {
	if err := s.reads.Put(ctx, record); err != nil {
		s.logger.Error("read model update failed after append", "account_id", record.AccountID, "version", record.Version, "error", err)
		return fmt.Errorf("update read model for %s: %w", record.AccountID, err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, kind, accountID string, amount decimal.Decimal) {
	if s.notifier == nil {
		return
	}
	_ = s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: accountID,
		Body:        fmt.Sprintf("%s of %s on account %s", kind, amount.String(), accountID),
	})
}
