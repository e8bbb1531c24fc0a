// Package ingest finalizes sessions dropped into a local inbox directory.
//
// A session is a manifest file {sessionId}.json next to a directory
// {sessionId}/ holding chunk-NNNNN.webm (or .mp4) files. The chunks are
// uploaded under the session prefix and the session is finalized exactly as
// if a client had uploaded them through signed URLs.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/nguyentantai21042004/carenote/internal/jobs"
	"github.com/nguyentantai21042004/carenote/internal/layout"
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/model"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
)

// Manifest describes one inbox session
type Manifest struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	model.VisitContext
}

type Ingester struct {
	store  objstore.Store
	coord  jobs.Coordinator
	logger logger.Logger
}

func New(store objstore.Store, coord jobs.Coordinator, log logger.Logger) *Ingester {
	return &Ingester{store: store, coord: coord, logger: log}
}

// HandleManifest uploads the manifest's chunks and finalizes the session.
// The manifest is renamed to .done or .failed so it is not picked up again.
func (i *Ingester) HandleManifest(ctx context.Context, path string) error {
	jobID, err := i.ingest(ctx, path)
	if err != nil {
		i.mark(ctx, path, ".failed")
		return err
	}
	i.logger.Info(ctx, "Inbox session %s finalized as job %s", filepath.Base(path), jobID)
	i.mark(ctx, path, ".done")
	return nil
}

func (i *Ingester) ingest(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return "", fmt.Errorf("parse manifest: %w", err)
	}
	if m.SessionID == "" {
		m.SessionID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if !layout.ValidID(m.SessionID) {
		return "", fmt.Errorf("invalid session id %q", m.SessionID)
	}

	chunkDir := filepath.Join(filepath.Dir(path), m.SessionID)
	n, err := i.uploadChunks(ctx, m.SessionID, chunkDir)
	if err != nil {
		return "", err
	}
	i.logger.Info(ctx, "Uploaded %d chunks for session %s", n, m.SessionID)

	return i.coord.Finalize(ctx, jobs.FinalizeRequest{
		SessionID: m.SessionID,
		UserID:    m.UserID,
		Context:   m.VisitContext,
	})
}

func (i *Ingester) uploadChunks(ctx context.Context, sessionID, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read chunk dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && layout.IsChunkKey(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return 0, fmt.Errorf("read chunk %s: %w", name, err)
		}
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		key := layout.SessionPrefix(sessionID) + name
		if err := i.store.Upload(ctx, key, data, layout.ChunkContentType("", ext)); err != nil {
			return 0, fmt.Errorf("upload chunk %s: %w", name, err)
		}
	}
	return len(names), nil
}

func (i *Ingester) mark(ctx context.Context, path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		i.logger.Warn(ctx, "Failed to rename manifest %s: %v", path, err)
	}
}
