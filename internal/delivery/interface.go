package delivery

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by a Messenger when the service already accepted
// a push with the same retry key.
var ErrDuplicate = errors.New("duplicate push")

// Messenger pushes a text message to a user
type Messenger interface {
	Push(ctx context.Context, to, text, retryKey string) error
}

// Deliverer sends at most one push per job
type Deliverer interface {
	Deliver(ctx context.Context, jobID, userID, text string) (Outcome, error)
}

// Outcome of a delivery attempt
type Outcome string

const (
	Sent         Outcome = "sent"
	Deduplicated Outcome = "deduplicated"
	Skipped      Outcome = "skipped"
	Failed       Outcome = "failed"
)
