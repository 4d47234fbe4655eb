package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"eth-faucet/internal/model"
)

func record(i int) model.PayoutRecord {
	return model.PayoutRecord{
		Time:        time.Unix(int64(i), 0),
		Destination: fmt.Sprintf("0x%040d", i),
		TxHash:      fmt.Sprintf("0xhash%d", i),
	}
}

func TestBuffer_EmptySnapshot(t *testing.T) {
	b := New(DefaultCapacity)
	if got := b.Snapshot(); len(got) != 0 {
		t.Fatalf("expected empty snapshot, got %d records", len(got))
	}
}

func TestBuffer_SnapshotIsLatestFirst(t *testing.T) {
	b := New(DefaultCapacity)
	for i := 1; i <= 3; i++ {
		b.Append(record(i))
	}

	got := b.Snapshot()
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, want := range []int{3, 2, 1} {
		if got[i].TxHash != record(want).TxHash {
			t.Fatalf("expected position %d to hold record %d, got %s", i, want, got[i].TxHash)
		}
	}
}

func TestBuffer_EvictsOldestAtCapacity(t *testing.T) {
	b := New(DefaultCapacity)
	for i := 1; i <= 6; i++ {
		b.Append(record(i))
	}

	got := b.Snapshot()
	if len(got) != DefaultCapacity {
		t.Fatalf("expected %d records, got %d", DefaultCapacity, len(got))
	}
	for _, r := range got {
		if r.TxHash == record(1).TxHash {
			t.Fatalf("expected first record to be evicted")
		}
	}
	if got[0].TxHash != record(6).TxHash || got[4].TxHash != record(2).TxHash {
		t.Fatalf("unexpected order: first=%s last=%s", got[0].TxHash, got[4].TxHash)
	}
}

func TestBuffer_LenNeverExceedsCapacity(t *testing.T) {
	b := New(DefaultCapacity)
	for i := 0; i < 23; i++ {
		b.Append(record(i))
		if b.Len() > DefaultCapacity {
			t.Fatalf("expected len <= %d, got %d", DefaultCapacity, b.Len())
		}
	}
}

func TestBuffer_SnapshotIsACopy(t *testing.T) {
	b := New(DefaultCapacity)
	b.Append(record(1))

	snap := b.Snapshot()
	snap[0].TxHash = "mutated"

	if b.Snapshot()[0].TxHash != record(1).TxHash {
		t.Fatalf("expected snapshot mutation not to leak into buffer")
	}
}

func TestBuffer_ConcurrentAppendAndSnapshot(t *testing.T) {
	b := New(DefaultCapacity)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				b.Append(record(w*100 + i))
				if n := len(b.Snapshot()); n > DefaultCapacity {
					t.Errorf("expected snapshot <= %d, got %d", DefaultCapacity, n)
					return
				}
			}
		}(w)
	}
	wg.Wait()
}
