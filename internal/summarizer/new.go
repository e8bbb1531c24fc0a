package summarizer

import (
	"time"

	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/metrics"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
)

// Options tune generation and artifact output
type Options struct {
	Temperature     float32
	TopP            float32
	ShortMaxTokens  int32
	DetailMaxTokens int32
	DetailURLTTL    time.Duration
	RenderDocx      bool
}

// DefaultOptions mirror the generation settings the prompts were tuned with
func DefaultOptions() Options {
	return Options{
		Temperature:     0.2,
		TopP:            0.9,
		ShortMaxTokens:  2200,
		DetailMaxTokens: 3200,
		DetailURLTTL:    7 * 24 * time.Hour,
	}
}

type implSummarizer struct {
	generator Generator
	store     objstore.Store
	opts      Options
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// New creates a Summarizer that stores its artifacts in store
func New(gen Generator, store objstore.Store, opts Options, m *metrics.Metrics, log logger.Logger) Summarizer {
	return &implSummarizer{
		generator: gen,
		store:     store,
		opts:      opts,
		metrics:   m,
		logger:    log,
	}
}
