package eventstore

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func TestInMemoryStore_AppendAndRead(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	v, err := s.Append(ctx, "acc-1", []Event{New("acc-1", AccountCreated{InitialBalance: decimal.NewFromInt(100)})}, 0)
	if err != nil {
		t.Fatalf("append create: %v", err)
	}
	if v != 1 {
		t.Fatalf("expected version 1, got %d", v)
	}

	v, err = s.Append(ctx, "acc-1", []Event{New("acc-1", MoneyDeposited{Amount: decimal.NewFromInt(50)})}, 1)
	if err != nil {
		t.Fatalf("append deposit: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}

	events, err := s.Read(ctx, "acc-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for i, ev := range events {
		if ev.Version != int64(i)+1 {
			t.Fatalf("expected contiguous versions, got %d at index %d", ev.Version, i)
		}
		if ev.AggregateID != "acc-1" {
			t.Fatalf("unexpected aggregate id %q", ev.AggregateID)
		}
	}
	if _, ok := events[0].Payload.(AccountCreated); !ok {
		t.Fatalf("expected AccountCreated first, got %T", events[0].Payload)
	}
}

func TestInMemoryStore_StaleExpectedVersionConflicts(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, err := s.Append(ctx, "acc-1", []Event{New("acc-1", AccountCreated{InitialBalance: decimal.Zero})}, 0); err != nil {
		t.Fatalf("append: %v", err)
	}

	if _, err := s.Append(ctx, "acc-1", []Event{New("acc-1", MoneyDeposited{Amount: decimal.NewFromInt(1)})}, 0); err != ErrConcurrencyConflict {
		t.Fatalf("expected concurrency conflict, got %v", err)
	}

	// A skipped-ahead expectation must not create gaps either.
	if _, err := s.Append(ctx, "acc-1", []Event{New("acc-1", MoneyDeposited{Amount: decimal.NewFromInt(1)})}, 5); err != ErrConcurrencyConflict {
		t.Fatalf("expected concurrency conflict for skipped version, got %v", err)
	}

	if v, _ := s.LastVersion(ctx, "acc-1"); v != 1 {
		t.Fatalf("conflicting appends must not change the stream, version=%d", v)
	}
}

func TestInMemoryStore_ConcurrentAppendsOneWinner(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, err := s.Append(ctx, "acc-1", []Event{New("acc-1", AccountCreated{InitialBalance: decimal.NewFromInt(10)})}, 0); err != nil {
		t.Fatalf("append: %v", err)
	}

	const writers = 8
	results := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, "acc-1", []Event{New("acc-1", MoneyDeposited{Amount: decimal.NewFromInt(5)})}, 1)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, conflicts int
	for err := range results {
		switch err {
		case nil:
			successes++
		case ErrConcurrencyConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful append, got %d", successes)
	}
	if conflicts != writers-1 {
		t.Fatalf("expected %d conflicts, got %d", writers-1, conflicts)
	}

	events, err := s.Read(ctx, "acc-1")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for i, ev := range events {
		if ev.Version != int64(i)+1 {
			t.Fatalf("stream has a version gap or duplicate at index %d: %d", i, ev.Version)
		}
	}
}

func TestInMemoryStore_UnknownAggregate(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	events, err := s.Read(ctx, "missing")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty stream, got %d events", len(events))
	}

	v, err := s.LastVersion(ctx, "missing")
	if err != nil {
		t.Fatalf("last version: %v", err)
	}
	if v != 0 {
		t.Fatalf("expected version 0, got %d", v)
	}
}

func TestInMemoryStore_AggregateIDs(t *testing.T) {
	s := NewInMemory()
	SeedHistory(s, "b", AccountCreated{InitialBalance: decimal.Zero})
	SeedHistory(s, "a", AccountCreated{InitialBalance: decimal.Zero})

	ids, err := s.AggregateIDs(context.Background())
	if err != nil {
		t.Fatalf("aggregate ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("expected sorted ids [a b], got %v", ids)
	}
}
