// Package stats counts admission outcomes.
//
// Counting is best effort: callers log a failed Record and carry on.
package stats

import (
	"context"
	"time"

	"eth-faucet/internal/model"
)

type Event struct {
	Outcome model.Outcome
	At      time.Time
}

type Store interface {
	Record(ctx context.Context, ev Event) error
	// Totals returns cumulative counts keyed by outcome name.
	Totals(ctx context.Context) (map[string]int64, error)
}
