package transcoder

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-audio/wav"
	"github.com/nguyentantai21042004/carenote/internal/apperr"
	"github.com/nguyentantai21042004/carenote/pkg/executor"
)

// Normalize converts inPath to mono 16kHz signed 16-bit PCM WAV at outPath
func (t *implTranscoder) Normalize(ctx context.Context, inPath, outPath string) (Info, error) {
	t.logger.Info(ctx, "Normalizing audio: %s", inPath)

	// -vn: drop any video stream
	// -ar/-ac/-c:a: 16kHz, mono, PCM 16-bit little-endian
	// -loglevel error: anything on stderr is a real failure
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", inPath,
		"-vn",
		"-ar", strconv.Itoa(SampleRate),
		"-ac", strconv.Itoa(Channels),
		"-c:a", "pcm_s16le",
		outPath,
	}

	res, err := t.executor.Run(ctx, executor.Command{Name: t.binary, Args: args})
	if err != nil {
		return Info{}, apperr.Transcode(err)
	}
	if msg := strings.TrimSpace(res.Stderr); msg != "" {
		return Info{}, apperr.Transcode(fmt.Errorf("ffmpeg reported: %s", msg))
	}

	info, err := inspect(outPath)
	if err != nil {
		return Info{}, apperr.Transcode(err)
	}

	t.logger.Info(ctx, "Audio normalized: %s (%s, %dHz)", outPath, info.Duration, info.SampleRate)
	return info, nil
}

// inspect checks the WAV header matches what the transcription service expects
func inspect(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	d := wav.NewDecoder(f)
	if !d.IsValidFile() {
		return Info{}, fmt.Errorf("output %s is not a valid WAV file", path)
	}

	info := Info{
		SampleRate: int(d.SampleRate),
		Channels:   int(d.NumChans),
		BitDepth:   int(d.BitDepth),
	}
	if info.SampleRate != SampleRate || info.Channels != Channels || info.BitDepth != BitDepth {
		return info, fmt.Errorf("unexpected WAV format %dHz/%dch/%dbit", info.SampleRate, info.Channels, info.BitDepth)
	}

	if dur, err := d.Duration(); err == nil {
		info.Duration = dur
	}
	return info, nil
}
