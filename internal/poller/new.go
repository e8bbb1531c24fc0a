package poller

import (
	"time"

	"github.com/nguyentantai21042004/carenote/internal/delivery"
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/metrics"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
	"github.com/nguyentantai21042004/carenote/internal/summarizer"
	"github.com/nguyentantai21042004/carenote/internal/transcription"
)

// DefaultMinTranscriptChars is the non-whitespace length below which no memo is generated
const DefaultMinTranscriptChars = 15

type Options struct {
	MinTranscriptChars int
	// LockTTL enables takeover of delivery locks older than this; zero disables it
	LockTTL time.Duration
	// DetailURLTTL is only used to label the link in the pushed message
	DetailURLTTL time.Duration
}

type Deps struct {
	Store       objstore.Store
	Transcriber transcription.Transcriber
	Meta        MetaSource
	Summarizer  summarizer.Summarizer
	Deliverer   delivery.Deliverer
	Metrics     *metrics.Metrics
	Logger      logger.Logger
}

type implPoller struct {
	store       objstore.Store
	transcriber transcription.Transcriber
	meta        MetaSource
	summarizer  summarizer.Summarizer
	deliverer   delivery.Deliverer
	metrics     *metrics.Metrics
	logger      logger.Logger
	opts        Options
	now         func() time.Time
}

// New creates a Poller
func New(d Deps, opts Options) Poller {
	if opts.MinTranscriptChars < 0 {
		opts.MinTranscriptChars = 0
	}
	return &implPoller{
		store:       d.Store,
		transcriber: d.Transcriber,
		meta:        d.Meta,
		summarizer:  d.Summarizer,
		deliverer:   d.Deliverer,
		metrics:     d.Metrics,
		logger:      d.Logger,
		opts:        opts,
		now:         time.Now,
	}
}
