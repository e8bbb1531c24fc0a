package summarizer

import (
	"context"
	"encoding/json"
)

// Summarizer turns a transcript into stored summary artifacts
type Summarizer interface {
	Summarize(ctx context.Context, sessionID, transcript string) (*Artifacts, error)
}

// Generator is a text generation backend
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// GenerateOptions controls a single generation call
type GenerateOptions struct {
	Temperature float32
	TopP        float32
	MaxTokens   int32
	// JSON requests an application/json response
	JSON bool
}

// Artifacts is what a summarization produced and where it was stored
type Artifacts struct {
	Summary Summary
	Detail  Detail
	// SummaryJSON is the stored short summary document
	SummaryJSON json.RawMessage
	DetailURL   string
}
