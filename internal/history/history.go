package history

import (
	"sync"

	"eth-faucet/internal/model"
)

const DefaultCapacity = 5

// Buffer keeps the most recent completed payouts. Oldest records are evicted first.
type Buffer struct {
	mu      sync.RWMutex
	records []model.PayoutRecord
	next    int
	full    bool
}

func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{records: make([]model.PayoutRecord, capacity)}
}

func (b *Buffer) Append(rec model.PayoutRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.records[b.next] = rec
	b.next = (b.next + 1) % len(b.records)
	if b.next == 0 {
		b.full = true
	}
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.full {
		return len(b.records)
	}
	return b.next
}

// Snapshot returns a copy of the stored records, latest first.
func (b *Buffer) Snapshot() []model.PayoutRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := b.next
	if b.full {
		n = len(b.records)
	}
	out := make([]model.PayoutRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (b.next - i + len(b.records)) % len(b.records)
		out = append(out, b.records[idx])
	}
	return out
}
