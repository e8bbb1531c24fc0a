package jobs

import (
	"context"
	"errors"

	"github.com/nguyentantai21042004/carenote/internal/model"
)

// Coordinator turns an uploaded session into exactly one transcription job
type Coordinator interface {
	Finalize(ctx context.Context, req FinalizeRequest) (string, error)
	Lookup(ctx context.Context, jobID string) (model.Metadata, error)
}

// FinalizeRequest is the client's request to close a recording session
type FinalizeRequest struct {
	SessionID string             `json:"sessionId"`
	UserID    string             `json:"userId"`
	Context   model.VisitContext `json:"context"`
}

// Cache is the optional local copy of job metadata records
type Cache interface {
	Put(ctx context.Context, meta model.Metadata) error
	Get(ctx context.Context, jobID string) (model.Metadata, error)
}

// ErrUnknownJob is returned by Lookup when no record names the job
var ErrUnknownJob = errors.New("unknown job")
