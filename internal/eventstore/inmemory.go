package eventstore

import (
	"context"
	"sort"
	"sync"
)

type inMemoryStore struct {
	mu      sync.RWMutex
	streams map[string][]Event
}

// NewInMemory creates a concurrency-safe in-memory event store. The version
// check and the append happen under one lock, so it provides the same
// conditional-append guarantee as the Postgres store. Used by unit tests and
// dev mode.
func NewInMemory() Store {
	return &inMemoryStore{streams: make(map[string][]Event)}
}

func (s *inMemoryStore) Append(_ context.Context, aggregateID string, events []Event, expectedVersion int64) (int64, error) {
	if len(events) == 0 {
		return expectedVersion, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[aggregateID]
	current := int64(len(stream))
	if current != expectedVersion {
		return 0, ErrConcurrencyConflict
	}

	for i, ev := range events {
		ev.AggregateID = aggregateID
		ev.Version = expectedVersion + int64(i) + 1
		stream = append(stream, ev)
	}
	s.streams[aggregateID] = stream

	return int64(len(stream)), nil
}

func (s *inMemoryStore) Read(_ context.Context, aggregateID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[aggregateID]
	out := make([]Event, len(stream))
	copy(out, stream)
	return out, nil
}

func (s *inMemoryStore) LastVersion(_ context.Context, aggregateID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.streams[aggregateID])), nil
}

func (s *inMemoryStore) AggregateIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.streams))
	for id := range s.streams {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
