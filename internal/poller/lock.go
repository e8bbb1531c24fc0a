package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nguyentantai21042004/carenote/internal/layout"
)

type lockRecord struct {
	JobID      string    `json:"jobId"`
	Holder     string    `json:"holder"`
	Epoch      int       `json:"epoch"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// acquireLock claims the job's delivery lock. Only one caller ever wins a given
// epoch. With a lock TTL configured, a lock older than the TTL whose holder never
// wrote the done marker can be superseded by claiming the next epoch.
func (p *implPoller) acquireLock(ctx context.Context, jobID string) (bool, error) {
	ok, err := p.claim(ctx, jobID, 0)
	if err != nil || ok || p.opts.LockTTL <= 0 {
		return ok, err
	}

	epoch, rec, err := p.newestLock(ctx, jobID)
	if err != nil {
		return false, err
	}
	if p.now().Sub(rec.AcquiredAt) < p.opts.LockTTL {
		return false, nil
	}
	if done, err := p.store.Exists(ctx, layout.DoneKey(jobID)); err != nil || done {
		return false, err
	}

	ok, err = p.claim(ctx, jobID, epoch+1)
	if ok {
		p.logger.Warn(ctx, "Took over stale delivery lock for job %s (epoch %d, held since %s)",
			jobID, epoch, rec.AcquiredAt.Format(time.RFC3339))
		p.metrics.LockTakeover()
	}
	return ok, err
}

func (p *implPoller) claim(ctx context.Context, jobID string, epoch int) (bool, error) {
	body, err := json.Marshal(lockRecord{
		JobID:      jobID,
		Holder:     uuid.NewString(),
		Epoch:      epoch,
		AcquiredAt: p.now().UTC(),
	})
	if err != nil {
		return false, err
	}
	return p.store.CreateIfAbsent(ctx, layout.LockEpochKey(jobID, epoch), body, "application/json")
}

// newestLock finds the highest claimed epoch and its record
func (p *implPoller) newestLock(ctx context.Context, jobID string) (int, lockRecord, error) {
	base := layout.LockKey(jobID)
	keys, err := p.store.List(ctx, base)
	if err != nil {
		return 0, lockRecord{}, fmt.Errorf("list locks: %w", err)
	}

	newest := 0
	for _, k := range keys {
		if k == base {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(k, base+"."))
		if err == nil && n > newest {
			newest = n
		}
	}

	data, err := p.store.Download(ctx, layout.LockEpochKey(jobID, newest))
	if err != nil {
		return 0, lockRecord{}, fmt.Errorf("read lock: %w", err)
	}
	var rec lockRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// unreadable locks are treated as fresh so they are never taken over blindly
		return newest, lockRecord{AcquiredAt: p.now()}, nil
	}
	return newest, rec, nil
}
