package delivery

import (
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/metrics"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
)

type implDeliverer struct {
	messenger Messenger
	store     objstore.Store
	metrics   *metrics.Metrics
	logger    logger.Logger
}

// New creates a Deliverer that keeps its retry keys in store
func New(m Messenger, store objstore.Store, mt *metrics.Metrics, log logger.Logger) Deliverer {
	return &implDeliverer{
		messenger: m,
		store:     store,
		metrics:   mt,
		logger:    log,
	}
}
