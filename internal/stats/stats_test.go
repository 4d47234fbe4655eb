package stats

import (
	"context"
	"testing"
	"time"

	"eth-faucet/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStore_Totals(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_ = s.Record(ctx, Event{Outcome: model.Accepted})
	_ = s.Record(ctx, Event{Outcome: model.Accepted})
	_ = s.Record(ctx, Event{Outcome: model.RejectedQueueFull})

	got, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["accepted"] != 2 || got["queue_full"] != 1 {
		t.Fatalf("unexpected totals: %v", got)
	}
}

func TestRedisStore_RecordsTotalAndDayBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	s := NewRedisStore(rdb, WithPrefix("test:adm:"), WithDayTTL(time.Hour))
	ctx := context.Background()
	at := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

	if err := s.Record(ctx, Event{Outcome: model.RejectedRequesterBlocked, At: at}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, Event{Outcome: model.Accepted, At: at}); err != nil {
		t.Fatalf("record: %v", err)
	}

	if got := mr.HGet("test:adm:total", "requester_blocked"); got != "1" {
		t.Fatalf("expected total requester_blocked=1, got %q", got)
	}
	if got := mr.HGet("test:adm:day:20240309", "accepted"); got != "1" {
		t.Fatalf("expected day bucket accepted=1, got %q", got)
	}
	if ttl := mr.TTL("test:adm:day:20240309"); ttl != time.Hour {
		t.Fatalf("expected day bucket ttl 1h, got %s", ttl)
	}

	totals, err := s.Totals(ctx)
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if totals["accepted"] != 1 || totals["requester_blocked"] != 1 {
		t.Fatalf("unexpected totals: %v", totals)
	}
}
