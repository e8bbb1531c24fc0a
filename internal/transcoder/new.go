package transcoder

import (
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/pkg/executor"
)

const (
	SampleRate = 16000
	Channels   = 1
	BitDepth   = 16
)

type implTranscoder struct {
	binary   string
	executor executor.Executor
	logger   logger.Logger
}

// New creates a Transcoder running the ffmpeg binary at path (or "ffmpeg" from PATH)
func New(binary string, exec executor.Executor, log logger.Logger) Transcoder {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &implTranscoder{
		binary:   binary,
		executor: exec,
		logger:   log,
	}
}
