package poller

import (
	"context"
	"encoding/json"

	"github.com/nguyentantai21042004/carenote/internal/model"
)

// Poller advances a transcription job toward its single terminal transition
type Poller interface {
	Poll(ctx context.Context, jobID string) (Result, error)
}

type Status string

const (
	StatusRunning Status = "RUNNING"
	StatusDone    Status = "DONE"
)

// Result is what a poll reports to the client
type Result struct {
	Status     Status          `json:"status"`
	Transcript string          `json:"transcript,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
}

// MetaSource resolves a job to its metadata record
type MetaSource interface {
	Lookup(ctx context.Context, jobID string) (model.Metadata, error)
}
