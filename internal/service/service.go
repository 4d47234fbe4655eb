package service

import (
	"context"
	"encoding/json"
	"errors"
	"eth-faucet/internal/history"
	"eth-faucet/internal/ledger"
	"eth-faucet/internal/limiter"
	"eth-faucet/internal/model"
	"eth-faucet/internal/queue"
	"eth-faucet/internal/stats"
	"fmt"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DecisionObserver is told about every admission decision.
type DecisionObserver interface {
	ObserveDecision(d model.Decision)
}

// Service owns the faucet state: blocklist, payout queue and history.
// All admission goes through Admit.
type Service struct {
	mu sync.Mutex

	Ledger    ledger.Client
	Blocklist *limiter.Blocklist
	Queue     *queue.Queue
	History   *history.Buffer
	Clock     clock.Clock

	Stats     stats.Store // may be nil
	Observers []DecisionObserver

	// PayoutEther is the configured payout as a decimal ether string.
	PayoutEther string
}

func NewService(client ledger.Client, bl *limiter.Blocklist, q *queue.Queue, hist *history.Buffer, payoutEther string) *Service {
	return &Service{
		Ledger:      client,
		Blocklist:   bl,
		Queue:       q,
		History:     hist,
		Clock:       clock.New(),
		PayoutEther: payoutEther,
	}
}

// Run starts the blocklist janitor and the payout worker; it blocks until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	s.Blocklist.StartJanitor(ctx)
	return s.Queue.Run(ctx)
}

// Admit decides whether destination may be paid on behalf of requester and,
// if so, queues the payout and blocks both identities.
func (s *Service) Admit(ctx context.Context, requester, destination string) model.Decision {
	d := s.admit(requester, destination)

	ev := log.Debug()
	if d.Accepted() {
		ev = log.Info()
	}
	ev.Str("requester", requester).Str("address", destination).Str("outcome", d.Outcome.String()).
		Int("queue_depth", d.QueueDepth).Dur("remaining", d.Remaining).Msg("admission")

	for _, o := range s.Observers {
		o.ObserveDecision(d)
	}
	if s.Stats != nil {
		if err := s.Stats.Record(ctx, stats.Event{Outcome: d.Outcome, At: s.Clock.Now()}); err != nil {
			log.Warn().Err(err).Msg("record admission stats")
		}
	}
	return d
}

func (s *Service) admit(requester, destination string) model.Decision {
	if !s.Ledger.ValidAddress(destination) {
		return model.Decision{Outcome: model.RejectedInvalidDestination}
	}
	if requester == "" {
		return model.Decision{Outcome: model.RejectedMissingRequester}
	}
	dest := canonical(destination)

	s.mu.Lock()
	defer s.mu.Unlock()

	if remaining, blocked := s.Blocklist.Blocked(limiter.Requester, requester); blocked {
		return model.Decision{Outcome: model.RejectedRequesterBlocked, Remaining: remaining}
	}
	if remaining, blocked := s.Blocklist.Blocked(limiter.Recipient, dest); blocked {
		return model.Decision{Outcome: model.RejectedDestinationBlocked, Remaining: remaining}
	}

	depth := s.Queue.Depth()
	if depth >= s.Queue.Capacity() {
		return model.Decision{Outcome: model.RejectedQueueFull, QueueDepth: depth}
	}

	req := model.PayoutRequest{
		ID:          uuid.NewString(),
		Destination: dest,
		Requester:   requester,
		AcceptedAt:  s.Clock.Now(),
	}
	if err := s.Queue.Enqueue(req); err != nil {
		// only the worker shrinks the queue while we hold mu, so this means full
		return model.Decision{Outcome: model.RejectedQueueFull, QueueDepth: depth}
	}
	s.Blocklist.Block(limiter.Requester, requester)
	s.Blocklist.Block(limiter.Recipient, dest)

	return model.Decision{Outcome: model.Accepted, QueueDepth: depth}
}

// canonical lower-cases the hex so that case variants share one recipient block.
func canonical(addr string) string {
	hex := strings.ToLower(addr)
	if !strings.HasPrefix(hex, "0x") {
		hex = "0x" + hex
	}
	return hex
}

// FaucetStats is the body of GET /stats.
type FaucetStats struct {
	Account     string      `json:"account"`
	Balance     string      `json:"balance"`
	DailyLimit  json.Number `json:"dailyLimit"`
	BlockNumber uint64      `json:"blockNumber"`
}

var ErrLedgerUnavailable = errors.New("ledger unavailable")

// FaucetStats reads the faucet balance and current block from the ledger.
func (s *Service) FaucetStats(ctx context.Context) (FaucetStats, error) {
	balance, err := s.Ledger.Balance(ctx)
	if err != nil {
		return FaucetStats{}, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	block, err := s.Ledger.BlockNumber(ctx)
	if err != nil {
		return FaucetStats{}, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}
	return FaucetStats{
		Account:     s.Ledger.Account(),
		Balance:     balance,
		DailyLimit:  json.Number(s.PayoutEther),
		BlockNumber: block,
	}, nil
}

// Recent returns up to five completed payouts, latest first.
func (s *Service) Recent() []model.PayoutRecord {
	return s.History.Snapshot()
}

// AdmissionTotals returns cumulative admission counters, if a stats store is configured.
func (s *Service) AdmissionTotals(ctx context.Context) (map[string]int64, error) {
	if s.Stats == nil {
		return map[string]int64{}, nil
	}
	return s.Stats.Totals(ctx)
}

func (s *Service) Depth() int { return s.Queue.Depth() }
