package stats

import (
	"context"
	"sync"
)

// MemoryStore keeps counters in process memory. Counters reset on restart.
type MemoryStore struct {
	mu     sync.Mutex
	totals map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{totals: make(map[string]int64)}
}

func (s *MemoryStore) Record(_ context.Context, ev Event) error {
	s.mu.Lock()
	s.totals[ev.Outcome.String()]++
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Totals(context.Context) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.totals))
	for k, v := range s.totals {
		out[k] = v
	}
	return out, nil
}
