package model

import "time"

// Outcome is the result of admitting a payout request.
type Outcome int

const (
	Accepted Outcome = iota
	RejectedInvalidDestination
	RejectedMissingRequester
	RejectedRequesterBlocked
	RejectedDestinationBlocked
	RejectedQueueFull
)

var outcomeNames = map[Outcome]string{
	Accepted:                   "accepted",
	RejectedInvalidDestination: "invalid_destination",
	RejectedMissingRequester:   "missing_requester",
	RejectedRequesterBlocked:   "requester_blocked",
	RejectedDestinationBlocked: "destination_blocked",
	RejectedQueueFull:          "queue_full",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Outcomes lists every admission outcome, in evaluation order.
func Outcomes() []Outcome {
	return []Outcome{
		Accepted,
		RejectedInvalidDestination,
		RejectedMissingRequester,
		RejectedRequesterBlocked,
		RejectedDestinationBlocked,
		RejectedQueueFull,
	}
}

// Decision carries the outcome of an admission together with the data needed to explain it.
type Decision struct {
	Outcome Outcome
	// QueueDepth is the number of pending items ahead of an accepted request.
	QueueDepth int
	// Remaining is the time left on the block for the *Blocked outcomes.
	Remaining time.Duration
}

func (d Decision) Accepted() bool { return d.Outcome == Accepted }
