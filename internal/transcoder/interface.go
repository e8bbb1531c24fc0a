package transcoder

import (
	"context"
	"time"
)

// Transcoder normalizes arbitrary audio containers for the transcription service
type Transcoder interface {
	Normalize(ctx context.Context, inPath, outPath string) (Info, error)
}

// Info describes the produced WAV file
type Info struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}
