// Package ledgertest provides an in-memory ledger.Client for tests.
package ledgertest

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"eth-faucet/internal/ledger"
)

// Fake records transfers and lets tests script failures and latency.
type Fake struct {
	mu          sync.Mutex
	account     string
	balance     string
	block       uint64
	fail        map[string]error
	delay       time.Duration
	transfers   []string
	inFlight    int
	maxInFlight int
	readErr     error
}

var _ ledger.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		account: "0x00000000000000000000000000000000000000aa",
		balance: "100",
		block:   1,
		fail:    make(map[string]error),
	}
}

// FailFor makes every transfer to dest return err.
func (f *Fake) FailFor(dest string, err error) {
	f.mu.Lock()
	f.fail[dest] = err
	f.mu.Unlock()
}

// SetDelay makes every transfer take d.
func (f *Fake) SetDelay(d time.Duration) {
	f.mu.Lock()
	f.delay = d
	f.mu.Unlock()
}

func (f *Fake) SetReadError(err error) {
	f.mu.Lock()
	f.readErr = err
	f.mu.Unlock()
}

func (f *Fake) SetBlock(n uint64) {
	f.mu.Lock()
	f.block = n
	f.mu.Unlock()
}

// Transfers returns destinations in the order transfers were attempted.
func (f *Fake) Transfers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transfers...)
}

// MaxInFlight is the highest number of transfers observed running at once.
func (f *Fake) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

func (f *Fake) Account() string { return f.account }

func (f *Fake) ValidAddress(addr string) bool { return ledger.ValidAddress(addr) }

func (f *Fake) Balance(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.balance, nil
}

func (f *Fake) BlockNumber(context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.block, nil
}

func (f *Fake) Transfer(ctx context.Context, to string, amount *big.Int) (string, error) {
	f.mu.Lock()
	f.transfers = append(f.transfers, to)
	n := len(f.transfers)
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	delay := f.delay
	err := f.fail[to]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("0x%064x", n), nil
}
