package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nguyentantai21042004/carenote/internal/apperr"
	"github.com/nguyentantai21042004/carenote/internal/layout"
	"github.com/nguyentantai21042004/carenote/internal/model"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
)

// Finalize assembles the session's chunks, normalizes the audio, submits it
// for transcription and records the job. Repeated or concurrent calls for the
// same session return the jobId of the single recorded job.
func (c *implCoordinator) Finalize(ctx context.Context, req FinalizeRequest) (string, error) {
	if req.SessionID == "" || req.UserID == "" {
		c.metrics.Finalize("invalid")
		return "", apperr.Validation("sessionId and userId are required")
	}
	if !layout.ValidID(req.SessionID) || !layout.ValidID(req.UserID) {
		c.metrics.Finalize("invalid")
		return "", apperr.Validation("sessionId and userId may only contain letters, digits, '.', '_' and '-'")
	}
	// a started finalize runs to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	metaKey := layout.SessionMetaKey(req.SessionID)
	if meta, ok, err := c.readMeta(ctx, metaKey); err != nil {
		return "", fmt.Errorf("read session meta: %w", err)
	} else if ok {
		c.logger.Info(ctx, "Session %s already finalized as job %s", req.SessionID, meta.JobID)
		c.metrics.Finalize("existing")
		return meta.JobID, nil
	}

	chunks, err := c.listChunks(ctx, req.SessionID)
	if err != nil {
		return "", err
	}
	c.logger.Info(ctx, "Finalizing session %s: %d chunks", req.SessionID, len(chunks))

	ext := strings.TrimPrefix(path.Ext(chunks[0]), ".")
	assembled := layout.AssembledKey(req.SessionID, ext)
	rounds, err := c.assembler.Assemble(ctx, chunks, assembled)
	if err != nil {
		return "", fmt.Errorf("assemble chunks: %w", err)
	}
	c.metrics.ComposeRounds(rounds)

	audioKey := layout.AudioKey(req.SessionID)
	if err := c.normalize(ctx, req.SessionID, assembled, ext, audioKey); err != nil {
		return "", err
	}

	jobID, err := c.transcriber.Submit(ctx, c.store.URI(audioKey))
	if err != nil {
		return "", apperr.Submission(err)
	}
	c.logger.Info(ctx, "Submitted transcription job %s for session %s", jobID, req.SessionID)

	meta := model.Metadata{
		SessionID:    req.SessionID,
		UserID:       req.UserID,
		AudioURI:     c.store.URI(audioKey),
		JobID:        jobID,
		CreatedAt:    c.now().UTC(),
		VisitContext: req.Context,
	}
	body, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal meta: %w", err)
	}

	created, err := c.store.CreateIfAbsent(ctx, metaKey, body, "application/json")
	if err != nil {
		return "", fmt.Errorf("create session meta: %w", err)
	}
	if !created {
		return c.adoptWinner(ctx, req.SessionID, jobID)
	}

	c.metrics.Finalize("created")
	c.recordByJob(ctx, meta, body)
	return jobID, nil
}

// adoptWinner returns the jobId recorded by the finalize call that won the race.
// The job submitted by the loser is left to finish unobserved.
func (c *implCoordinator) adoptWinner(ctx context.Context, sessionID, ownJobID string) (string, error) {
	metaKey := layout.SessionMetaKey(sessionID)
	c.logger.Warn(ctx, "%v: orphaned job %s", apperr.RaceLost(metaKey), ownJobID)

	winner, ok, err := c.readMeta(ctx, metaKey)
	if err != nil {
		return "", fmt.Errorf("read winning session meta: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("session meta %s vanished after conflict", metaKey)
	}
	c.metrics.Finalize("race_lost")
	return winner.JobID, nil
}

func (c *implCoordinator) recordByJob(ctx context.Context, meta model.Metadata, body []byte) {
	if err := c.store.Upload(ctx, layout.JobMetaKey(meta.JobID), body, "application/json"); err != nil {
		c.logger.Warn(ctx, "Failed to write by-job meta for %s: %v", meta.JobID, err)
	}
	if c.cache == nil {
		return
	}
	if err := c.cache.Put(ctx, meta); err != nil {
		c.logger.Warn(ctx, "Failed to cache job %s: %v", meta.JobID, err)
	}
}

func (c *implCoordinator) listChunks(ctx context.Context, sessionID string) ([]string, error) {
	keys, err := c.store.List(ctx, layout.SessionPrefix(sessionID))
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	chunks := make([]string, 0, len(keys))
	for _, k := range keys {
		if layout.IsChunkKey(k) {
			chunks = append(chunks, k)
		}
	}
	if len(chunks) == 0 {
		c.metrics.Finalize("no_chunks")
		return nil, apperr.NoChunks(sessionID)
	}
	sort.Strings(chunks)
	return chunks, nil
}

// normalize downloads the assembled container, converts it to WAV and uploads the result
func (c *implCoordinator) normalize(ctx context.Context, sessionID, assembledKey, ext, audioKey string) error {
	base := filepath.Join(c.workDir, "sessions")
	if err := os.MkdirAll(base, 0755); err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	// concurrent finalize calls for one session each get their own directory
	dir, err := os.MkdirTemp(base, sessionID+"-")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			c.logger.Warn(ctx, "Failed to clean up %s: %v", dir, err)
		}
	}()

	data, err := c.store.Download(ctx, assembledKey)
	if err != nil {
		return fmt.Errorf("download assembled audio: %w", err)
	}
	inPath := filepath.Join(dir, "merged."+ext)
	if err := os.WriteFile(inPath, data, 0644); err != nil {
		return fmt.Errorf("write assembled audio: %w", err)
	}

	outPath := filepath.Join(dir, "merged.wav")
	info, err := c.transcoder.Normalize(ctx, inPath, outPath)
	if err != nil {
		c.metrics.Finalize("transcode_failed")
		return err
	}
	c.logger.Info(ctx, "Normalized session %s: %s of audio", sessionID, info.Duration)

	wav, err := os.ReadFile(outPath)
	if err != nil {
		return fmt.Errorf("read normalized audio: %w", err)
	}
	if err := c.store.Upload(ctx, audioKey, wav, "audio/wav"); err != nil {
		return fmt.Errorf("upload normalized audio: %w", err)
	}
	return nil
}

// Lookup returns the metadata record for jobID
func (c *implCoordinator) Lookup(ctx context.Context, jobID string) (model.Metadata, error) {
	meta, ok, err := c.readMeta(ctx, layout.JobMetaKey(jobID))
	if err == nil && ok {
		return meta, nil
	}
	if err != nil {
		c.logger.Warn(ctx, "Failed to read by-job meta for %s: %v", jobID, err)
	}

	if c.cache != nil {
		cached, cerr := c.cache.Get(ctx, jobID)
		if cerr == nil {
			return cached, nil
		}
	}
	if err != nil {
		return model.Metadata{}, err
	}
	return model.Metadata{}, ErrUnknownJob
}

func (c *implCoordinator) readMeta(ctx context.Context, key string) (model.Metadata, bool, error) {
	data, ok, err := objstore.DownloadIfExists(ctx, c.store, key)
	if err != nil || !ok {
		return model.Metadata{}, false, err
	}
	var meta model.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return model.Metadata{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return meta, true, nil
}
