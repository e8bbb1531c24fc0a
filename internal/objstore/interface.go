// Package objstore is the uniform adapter over the hierarchical blob store.
// Every cross-instance coordination record lives behind this interface.
package objstore

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Download when the object does not exist
	ErrNotFound = errors.New("object not found")
)

// Store defines the blob operations the pipeline relies on
type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	// CreateIfAbsent writes the object only if key does not exist yet.
	// It returns false, nil when another writer got there first.
	CreateIfAbsent(ctx context.Context, key string, data []byte, contentType string) (bool, error)
	// List returns keys under prefix in lexicographic order
	List(ctx context.Context, prefix string) ([]string, error)
	Compose(ctx context.Context, sources []string, dest string) error
	Copy(ctx context.Context, src, dest string) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
	// URI is the address the transcription service reads the object from
	URI(key string) string
	SignedURL(ctx context.Context, key string, opts SignOptions) (string, error)
}

// SignOptions describe a time-limited capability URL
type SignOptions struct {
	Method      string
	ContentType string
	TTL         time.Duration
}

// DownloadIfExists returns the object's bytes, or ok=false when it does not exist
func DownloadIfExists(ctx context.Context, s Store, key string) ([]byte, bool, error) {
	data, err := s.Download(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}
