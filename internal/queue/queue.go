// Package queue holds pending payouts and drains them through a single worker.
//
// Items are processed strictly in arrival order. After a successful transfer the
// worker waits for the configured cooldown before starting the next item; a failed
// transfer is dropped and the next item starts immediately.
package queue

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"eth-faucet/internal/history"
	"eth-faucet/internal/ledger"
	"eth-faucet/internal/model"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"
)

const DefaultCapacity = 5

var (
	ErrQueueFull      = errors.New("queue full")
	ErrAlreadyRunning = errors.New("worker already running")
)

// EventSink receives a PayoutEvent for every request that reaches a terminal state.
// Sinks are best effort: errors are logged and never affect the queue.
type EventSink interface {
	Record(ctx context.Context, ev model.PayoutEvent) error
}

type Config struct {
	Capacity int
	Cooldown time.Duration
	// Amount is the fixed payout, in wei.
	Amount *big.Int
}

type Queue struct {
	mu         sync.Mutex
	pending    []model.PayoutRequest
	processing *model.PayoutRequest
	wake       chan struct{}
	running    atomic.Bool

	capacity    int
	cooldown    time.Duration
	amount      *big.Int
	ledger      ledger.Client
	history     *history.Buffer
	clock       clock.Clock
	sinks       []EventSink
	sinkTimeout time.Duration
}

type Option func(*Queue)

func WithClock(c clock.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

func WithSinks(sinks ...EventSink) Option {
	return func(q *Queue) { q.sinks = append(q.sinks, sinks...) }
}

func New(client ledger.Client, hist *history.Buffer, cfg Config, opts ...Option) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	q := &Queue{
		wake:        make(chan struct{}, 1),
		capacity:    cfg.Capacity,
		cooldown:    cfg.Cooldown,
		amount:      cfg.Amount,
		ledger:      client,
		history:     hist,
		clock:       clock.New(),
		sinkTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) Capacity() int { return q.capacity }

// Enqueue appends req to the backlog. It never blocks.
func (q *Queue) Enqueue(req model.PayoutRequest) error {
	q.mu.Lock()
	if len(q.pending) >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.pending = append(q.pending, req)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Depth is the number of items not yet started.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Processing is 1 while a transfer is in flight, else 0.
func (q *Queue) Processing() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.processing != nil {
		return 1
	}
	return 0
}

func (q *Queue) next() (model.PayoutRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return model.PayoutRequest{}, false
	}
	req := q.pending[0]
	q.pending[0] = model.PayoutRequest{}
	q.pending = q.pending[1:]
	q.processing = &req
	return req, true
}

func (q *Queue) done() (empty bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processing = nil
	return len(q.pending) == 0
}

// Run is the worker loop. It returns when ctx is done; an in-flight transfer
// is allowed to finish first. Only one Run may be active per Queue.
func (q *Queue) Run(ctx context.Context) error {
	if !q.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer q.running.Store(false)

	log.Info().Int("capacity", q.capacity).Dur("cooldown", q.cooldown).Msg("payout worker started")
	for {
		if ctx.Err() != nil {
			q.stop()
			return nil
		}

		req, ok := q.next()
		if !ok {
			select {
			case <-ctx.Done():
				q.stop()
				return nil
			case <-q.wake:
				continue
			}
		}

		sent := q.process(ctx, req)
		if q.done() {
			log.Info().Msg("queue empty")
		}
		if !sent || q.cooldown <= 0 {
			continue
		}

		t := q.clock.Timer(q.cooldown)
		select {
		case <-ctx.Done():
			t.Stop()
			q.stop()
			return nil
		case <-t.C:
		}
	}
}

func (q *Queue) stop() {
	if n := q.Depth(); n > 0 {
		log.Warn().Int("dropped", n).Msg("payout worker stopped with pending requests")
		return
	}
	log.Info().Msg("payout worker stopped")
}

func (q *Queue) process(ctx context.Context, req model.PayoutRequest) bool {
	start := q.clock.Now()
	log.Info().Str("request_id", req.ID).Str("address", req.Destination).Msg("donating")

	// accepted requests always run to completion, shutdown or not
	hash, err := q.ledger.Transfer(context.WithoutCancel(ctx), req.Destination, q.amount)
	now := q.clock.Now()

	ev := model.PayoutEvent{
		RequestID:   req.ID,
		Destination: req.Destination,
		Requester:   req.Requester,
		Duration:    now.Sub(start),
		At:          now,
	}
	if err != nil {
		ev.Status = model.PayoutFailed
		ev.Error = err.Error()
		log.Error().Err(err).Str("request_id", req.ID).Str("address", req.Destination).Msg("transfer failed")
		q.emit(ctx, ev)
		return false
	}

	q.history.Append(model.PayoutRecord{Time: now, Destination: req.Destination, TxHash: hash})
	ev.Status = model.PayoutCompleted
	ev.TxHash = hash
	log.Info().Str("request_id", req.ID).Str("address", req.Destination).Str("tx_hash", hash).Msg("transfer succeeded")
	q.emit(ctx, ev)
	return true
}

func (q *Queue) emit(ctx context.Context, ev model.PayoutEvent) {
	for _, sink := range q.sinks {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.sinkTimeout)
		if err := sink.Record(sctx, ev); err != nil {
			log.Warn().Err(err).Str("request_id", ev.RequestID).Msg("payout event sink failed")
		}
		cancel()
	}
}
