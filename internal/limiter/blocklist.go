package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

// Kind selects which blocklist an identity belongs to.
type Kind int

const (
	// Requester is keyed by the network identity (IP) the request came from.
	Requester Kind = iota
	// Recipient is keyed by the payout destination address.
	Recipient
)

const (
	RequesterTTL = time.Hour
	RecipientTTL = 24 * time.Hour
)

func (k Kind) String() string {
	switch k {
	case Requester:
		return "requester"
	case Recipient:
		return "recipient"
	default:
		return "unknown"
	}
}

// TTL is fixed per kind.
func (k Kind) TTL() time.Duration {
	if k == Recipient {
		return RecipientTTL
	}
	return RequesterTTL
}

type entryKey struct {
	kind Kind
	id   string
}

// Blocklist remembers which identities were served recently.
// Expired entries read as absent whether or not they were swept yet.
type Blocklist struct {
	mu           sync.Mutex
	clock        clock.Clock
	entries      map[entryKey]time.Time
	cleanupEvery time.Duration
}

type Option func(*Blocklist)

func WithClock(c clock.Clock) Option {
	return func(b *Blocklist) { b.clock = c }
}

func WithCleanupEvery(d time.Duration) Option {
	return func(b *Blocklist) { b.cleanupEvery = d }
}

func NewBlocklist(opts ...Option) *Blocklist {
	b := &Blocklist{
		clock:        clock.New(),
		entries:      make(map[entryKey]time.Time),
		cleanupEvery: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Blocked reports whether id is blocked for kind and, if so, how long until it is released.
func (b *Blocklist) Blocked(kind Kind, id string) (time.Duration, bool) {
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	key := entryKey{kind: kind, id: id}
	expiresAt, ok := b.entries[key]
	if !ok {
		return 0, false
	}
	if !now.Before(expiresAt) {
		delete(b.entries, key)
		return 0, false
	}
	return expiresAt.Sub(now), true
}

// Block records id for kind.TTL(), overwriting any previous expiry.
func (b *Blocklist) Block(kind Kind, id string) {
	expiresAt := b.clock.Now().Add(kind.TTL())

	b.mu.Lock()
	b.entries[entryKey{kind: kind, id: id}] = expiresAt
	b.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (b *Blocklist) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Cleanup drops every expired entry and returns how many were removed.
func (b *Blocklist) Cleanup() int {
	now := b.clock.Now()

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for k, expiresAt := range b.entries {
		if !now.Before(expiresAt) {
			delete(b.entries, k)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps expired entries periodically until ctx is done.
func (b *Blocklist) StartJanitor(ctx context.Context) {
	if b.cleanupEvery <= 0 {
		return
	}

	t := b.clock.Ticker(b.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := b.Cleanup(); n > 0 {
					log.Debug().Int("removed", n).Msg("blocklist sweep")
				}
			}
		}
	}()
}
