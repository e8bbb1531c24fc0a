package transcription

import (
	"context"
	"strings"
)

// Transcriber submits long-running transcription jobs and reports their progress.
// Jobs have no local state; every Query asks the service again.
type Transcriber interface {
	Submit(ctx context.Context, audioURI string) (string, error)
	Query(ctx context.Context, jobID string) (*Operation, error)
}

// Operation is a snapshot of a job as reported by the service.
// A finished job may or may not carry its Result yet; callers re-query
// when Done is true and Result is nil.
type Operation struct {
	Name   string
	Done   bool
	Result *Recognition
	Err    error
}

// Recognition is the recognized text, one entry per result segment
type Recognition struct {
	Segments []string
}

// Text joins the segments with newlines
func (r *Recognition) Text() string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(strings.Join(r.Segments, "\n"))
}
