package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode"

	"github.com/nguyentantai21042004/carenote/internal/apperr"
	"github.com/nguyentantai21042004/carenote/internal/delivery"
	"github.com/nguyentantai21042004/carenote/internal/jobs"
	"github.com/nguyentantai21042004/carenote/internal/layout"
	"github.com/nguyentantai21042004/carenote/internal/model"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
	"github.com/nguyentantai21042004/carenote/internal/transcription"
)

// Poll reports the job's status. The first poller to see the finished job and
// win the delivery lock runs the terminal transition: it stores the transcript,
// summarizes, pushes the memo and writes the done marker.
func (p *implPoller) Poll(ctx context.Context, jobID string) (Result, error) {
	if !layout.ValidID(jobID) {
		return Result{}, apperr.Validation("invalid jobId")
	}

	res, err := p.poll(ctx, jobID)
	if err == nil {
		p.metrics.Poll(string(res.Status))
	}
	return res, err
}

func (p *implPoller) poll(ctx context.Context, jobID string) (Result, error) {
	done, err := p.store.Exists(ctx, layout.DoneKey(jobID))
	if err != nil {
		return Result{}, fmt.Errorf("check done marker: %w", err)
	}
	if done {
		return Result{Status: StatusDone, Summary: p.storedSummary(ctx, jobID)}, nil
	}

	op, err := p.transcriber.Query(ctx, jobID)
	if err != nil {
		return Result{}, fmt.Errorf("query transcription: %w", err)
	}
	if !op.Done {
		return Result{Status: StatusRunning}, nil
	}

	// resolved before locking so a read failure leaves nothing durable behind
	meta, err := p.resolveMeta(ctx, jobID)
	if err != nil {
		return Result{}, err
	}

	locked, err := p.acquireLock(ctx, jobID)
	if err != nil {
		return Result{}, fmt.Errorf("acquire delivery lock: %w", err)
	}
	if !locked {
		p.metrics.LockLost()
		if summary := p.storedSummary(ctx, jobID); summary != nil {
			return Result{Status: StatusDone, Summary: summary}, nil
		}
		return Result{Status: StatusRunning}, nil
	}

	// the lock holder finishes even if its client goes away
	return p.finish(context.WithoutCancel(ctx), jobID, op, meta)
}

// finish is the terminal transition body, run by exactly one lock holder
func (p *implPoller) finish(ctx context.Context, jobID string, op *transcription.Operation, meta model.Metadata) (Result, error) {
	start := time.Now()

	rec, err := p.extract(ctx, jobID, op)
	if err != nil {
		return Result{}, err
	}
	transcript := rec.Text()

	sessionID := meta.SessionID
	if sessionID == "" {
		sessionID = "unknown-" + jobID
	}

	if existing, ok, err := objstore.DownloadIfExists(ctx, p.store, layout.SummaryKey(sessionID)); err != nil {
		p.logger.Warn(ctx, "Failed to check existing summary for %s: %v", sessionID, err)
	} else if ok {
		p.logger.Info(ctx, "Summary for session %s already exists, marking job %s done", sessionID, jobID)
		p.writeDone(ctx, jobID, map[string]any{"from": "existing-summary"})
		p.metrics.Terminal("existing")
		return Result{Status: StatusDone, Summary: existing}, nil
	}

	if err := p.store.Upload(ctx, layout.TranscriptKey(sessionID), []byte(transcript), "text/plain; charset=utf-8"); err != nil {
		p.logger.Error(ctx, "Failed to save transcript for %s: %v", sessionID, err)
	}

	if countChars(transcript) < p.opts.MinTranscriptChars {
		p.logger.Info(ctx, "Transcript for job %s is too short, sending notice only", jobID)
		if _, err := p.deliverer.Deliver(ctx, jobID, meta.UserID, delivery.ShortNotice); err != nil {
			p.logger.Error(ctx, "Short notice push failed for job %s: %v", jobID, err)
		}
		p.writeDone(ctx, jobID, map[string]any{"short": true})
		p.metrics.Terminal("short")
		return Result{Status: StatusDone, Transcript: transcript}, nil
	}

	result := Result{Status: StatusDone, Transcript: transcript}
	var detailURL string
	defer func() {
		p.writeDone(ctx, jobID, map[string]any{"sessionId": sessionID, "detailUrl": detailURL})
		p.metrics.Terminal("summary")
		p.logger.Info(ctx, "Job %s finished in %s", jobID, time.Since(start))
	}()

	art, err := p.summarizer.Summarize(ctx, sessionID, transcript)
	if err != nil {
		p.logger.Error(ctx, "Summarization failed for session %s: %v", sessionID, err)
		return result, nil
	}
	result.Summary = art.SummaryJSON
	detailURL = art.DetailURL

	text := delivery.BuildMessage(delivery.Memo{
		Summary:      art.Summary,
		Overview:     art.Detail.Overview,
		DetailURL:    art.DetailURL,
		DetailTTLDay: int(p.opts.DetailURLTTL / (24 * time.Hour)),
	})
	if _, err := p.deliverer.Deliver(ctx, jobID, meta.UserID, text); err != nil {
		p.logger.Error(ctx, "Memo push failed for job %s: %v", jobID, err)
	}
	return result, nil
}

// extract takes the recognition from op, re-querying once if the service
// reported completion without attaching the result.
func (p *implPoller) extract(ctx context.Context, jobID string, op *transcription.Operation) (*transcription.Recognition, error) {
	if op.Err != nil {
		return nil, apperr.Extraction(jobID, op.Err)
	}
	if op.Result != nil {
		return op.Result, nil
	}

	again, err := p.transcriber.Query(ctx, jobID)
	if err != nil {
		return nil, apperr.Extraction(jobID, err)
	}
	if again.Err != nil {
		return nil, apperr.Extraction(jobID, again.Err)
	}
	if again.Result == nil {
		return nil, apperr.Extraction(jobID, fmt.Errorf("no result attached to finished job"))
	}
	return again.Result, nil
}

// resolveMeta returns the job's metadata. A job with no record at all yields
// empty metadata; any other lookup failure is returned.
func (p *implPoller) resolveMeta(ctx context.Context, jobID string) (model.Metadata, error) {
	meta, err := p.meta.Lookup(ctx, jobID)
	if errors.Is(err, jobs.ErrUnknownJob) {
		p.logger.Warn(ctx, "No metadata for job %s", jobID)
		return model.Metadata{}, nil
	}
	if err != nil {
		return model.Metadata{}, fmt.Errorf("lookup job metadata: %w", err)
	}
	return meta, nil
}

// storedSummary returns the job's short summary if one was persisted
func (p *implPoller) storedSummary(ctx context.Context, jobID string) json.RawMessage {
	meta, err := p.meta.Lookup(ctx, jobID)
	if err != nil || meta.SessionID == "" {
		return nil
	}
	data, ok, err := objstore.DownloadIfExists(ctx, p.store, layout.SummaryKey(meta.SessionID))
	if err != nil {
		p.logger.Warn(ctx, "Failed to read summary for %s: %v", meta.SessionID, err)
		return nil
	}
	if !ok {
		return nil
	}
	return data
}

// writeDone records the terminal transition; an existing marker is left as is
func (p *implPoller) writeDone(ctx context.Context, jobID string, fields map[string]any) {
	fields["at"] = p.now().UTC().Format(time.RFC3339)
	body, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		p.logger.Error(ctx, "Failed to encode done marker for %s: %v", jobID, err)
		return
	}
	if _, err := p.store.CreateIfAbsent(ctx, layout.DoneKey(jobID), body, "application/json"); err != nil {
		p.logger.Error(ctx, "Failed to write done marker for %s: %v", jobID, err)
	}
}

// countChars counts non-whitespace runes
func countChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

