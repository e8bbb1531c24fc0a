package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/carenote/internal/apperr"
	"github.com/nguyentantai21042004/carenote/internal/layout"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
)

// Deliver pushes text to userID under the job's persistent retry key.
// A duplicate reported by the messenger counts as success.
func (d *implDeliverer) Deliver(ctx context.Context, jobID, userID, text string) (Outcome, error) {
	if userID == "" {
		d.logger.Warn(ctx, "No recipient for job %s, skipping push", jobID)
		d.metrics.Delivery(string(Skipped))
		return Skipped, nil
	}

	retryKey, err := d.retryKey(ctx, jobID)
	if err != nil {
		d.metrics.Delivery(string(Failed))
		return Failed, apperr.Delivery(fmt.Errorf("retry key: %w", err))
	}

	err = d.messenger.Push(ctx, userID, text, retryKey)
	switch {
	case err == nil:
		d.logger.Info(ctx, "Pushed memo for job %s", jobID)
		d.metrics.Delivery(string(Sent))
		return Sent, nil
	case errors.Is(err, ErrDuplicate):
		d.logger.Warn(ctx, "Push deduplicated by retry key %s", retryKey)
		d.metrics.Delivery(string(Deduplicated))
		return Deduplicated, nil
	default:
		d.metrics.Delivery(string(Failed))
		return Failed, apperr.Delivery(err)
	}
}

// retryKey returns the job's retry key, creating it on first use.
// The key is never regenerated once stored.
func (d *implDeliverer) retryKey(ctx context.Context, jobID string) (string, error) {
	key := layout.RetryKeyKey(jobID)
	if data, ok, err := objstore.DownloadIfExists(ctx, d.store, key); err != nil {
		return "", err
	} else if ok {
		return strings.TrimSpace(string(data)), nil
	}

	candidate := uuid.NewString()
	created, err := d.store.CreateIfAbsent(ctx, key, []byte(candidate), "text/plain")
	if err != nil {
		return "", err
	}
	if created {
		return candidate, nil
	}

	data, err := d.store.Download(ctx, key)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
