package assembler

import (
	"github.com/nguyentantai21042004/carenote/internal/logger"
)

// DefaultMaxSources matches the Cloud Storage compose limit
const DefaultMaxSources = 32

type implAssembler struct {
	store      Composer
	logger     logger.Logger
	maxSources int
}

// New creates an Assembler. maxSources <= 1 falls back to DefaultMaxSources.
func New(store Composer, log logger.Logger, maxSources int) Assembler {
	if maxSources <= 1 {
		maxSources = DefaultMaxSources
	}
	return &implAssembler{
		store:      store,
		logger:     log,
		maxSources: maxSources,
	}
}
