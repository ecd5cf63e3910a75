package eventstore

// SeedHistory is a test helper that loads a ready-made history into the
// in-memory store, bypassing the conditional-append protocol.
func SeedHistory(s Store, aggregateID string, payloads ...Payload) {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	for _, p := range payloads {
		ev := New(aggregateID, p)
		ev.Version = int64(len(mem.streams[aggregateID])) + 1
		mem.streams[aggregateID] = append(mem.streams[aggregateID], ev)
	}
}
