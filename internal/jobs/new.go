package jobs

import (
	"time"

	"github.com/nguyentantai21042004/carenote/internal/assembler"
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/metrics"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
	"github.com/nguyentantai21042004/carenote/internal/transcoder"
	"github.com/nguyentantai21042004/carenote/internal/transcription"
)

// Deps are the collaborators a Coordinator drives
type Deps struct {
	Store       objstore.Store
	Assembler   assembler.Assembler
	Transcoder  transcoder.Transcoder
	Transcriber transcription.Transcriber
	// Cache may be nil
	Cache   Cache
	Metrics *metrics.Metrics
	Logger  logger.Logger
}

type implCoordinator struct {
	store       objstore.Store
	assembler   assembler.Assembler
	transcoder  transcoder.Transcoder
	transcriber transcription.Transcriber
	cache       Cache
	metrics     *metrics.Metrics
	logger      logger.Logger
	workDir     string
	now         func() time.Time
}

// New creates a Coordinator. workDir holds per-session scratch files.
func New(d Deps, workDir string) Coordinator {
	return &implCoordinator{
		store:       d.Store,
		assembler:   d.Assembler,
		transcoder:  d.Transcoder,
		transcriber: d.Transcriber,
		cache:       d.Cache,
		metrics:     d.Metrics,
		logger:      d.Logger,
		workDir:     workDir,
		now:         time.Now,
	}
}
