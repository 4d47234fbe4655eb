package model

import (
	"encoding/json"
	"time"
)

// PayoutRequest is a pending disbursement owned by the queue until the worker finishes it.
type PayoutRequest struct {
	ID          string    `json:"id"`
	Destination string    `json:"address"`
	Requester   string    `json:"requester"`
	AcceptedAt  time.Time `json:"accepted_at"`
}

// PayoutRecord is a completed disbursement as shown by GET /queue.
type PayoutRecord struct {
	Time        time.Time `json:"-"`
	Destination string    `json:"address"`
	TxHash      string    `json:"txHash"`
}

// MarshalJSON renders Time as milliseconds since the epoch.
func (r PayoutRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Time        int64  `json:"time"`
		Destination string `json:"address"`
		TxHash      string `json:"txHash"`
	}{
		Time:        r.Time.UnixMilli(),
		Destination: r.Destination,
		TxHash:      r.TxHash,
	})
}

type PayoutStatus string

const (
	PayoutCompleted PayoutStatus = "completed"
	PayoutFailed    PayoutStatus = "failed"
)

// PayoutEvent is emitted by the worker once a request reaches a terminal state.
type PayoutEvent struct {
	RequestID   string        `json:"request_id"`
	Destination string        `json:"destination"`
	Requester   string        `json:"requester"`
	Status      PayoutStatus  `json:"status"`
	TxHash      string        `json:"tx_hash,omitempty"`
	Error       string        `json:"error,omitempty"`
	Duration    time.Duration `json:"-"`
	At          time.Time     `json:"created_at"`
}
