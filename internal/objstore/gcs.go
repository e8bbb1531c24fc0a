package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCS is the Cloud Storage backed Store
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewGCS opens a Cloud Storage client for bucket. credentialsFile may be empty
// to use application default credentials.
func NewGCS(ctx context.Context, bucket, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), name: bucket}, nil
}

// Close releases the underlying client
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return true, nil
}

func (g *GCS) Download(ctx context.Context, key string) ([]byte, error) {
	r, err := g.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("download %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (g *GCS) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return g.write(ctx, g.bucket.Object(key), data, contentType)
}

func (g *GCS) CreateIfAbsent(ctx context.Context, key string, data []byte, contentType string) (bool, error) {
	obj := g.bucket.Object(key).If(storage.Conditions{DoesNotExist: true})
	err := g.write(ctx, obj, data, contentType)
	if err == nil {
		return true, nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		return false, nil
	}
	return false, err
}

func (g *GCS) write(ctx context.Context, obj *storage.ObjectHandle, data []byte, contentType string) error {
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "no-store"
	// single request upload; coordination records are tiny
	w.ChunkSize = 0

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", obj.ObjectName(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", obj.ObjectName(), err)
	}
	return nil
}

func (g *GCS) List(ctx context.Context, prefix string) ([]string, error) {
	it := g.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		keys = append(keys, attrs.Name)
	}
	return keys, nil
}

func (g *GCS) Compose(ctx context.Context, sources []string, dest string) error {
	srcs := make([]*storage.ObjectHandle, 0, len(sources))
	for _, s := range sources {
		srcs = append(srcs, g.bucket.Object(s))
	}
	if _, err := g.bucket.Object(dest).ComposerFrom(srcs...).Run(ctx); err != nil {
		return fmt.Errorf("compose %d objects into %s: %w", len(sources), dest, err)
	}
	return nil
}

func (g *GCS) Copy(ctx context.Context, src, dest string) error {
	if _, err := g.bucket.Object(dest).CopierFrom(g.bucket.Object(src)).Run(ctx); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dest, err)
	}
	return nil
}

func (g *GCS) Delete(ctx context.Context, key string) error {
	err := g.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete %s: %w", key, ErrNotFound)
	}
	return err
}

func (g *GCS) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := g.List(ctx, prefix)
	if err != nil {
		return err
	}
	var firstErr error
	for _, k := range keys {
		if err := g.bucket.Object(k).Delete(ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) && firstErr == nil {
			firstErr = fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return firstErr
}

func (g *GCS) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s", g.name, key)
}

func (g *GCS) SignedURL(ctx context.Context, key string, opts SignOptions) (string, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	u, err := g.bucket.SignedURL(key, &storage.SignedURLOptions{
		Scheme:      storage.SigningSchemeV4,
		Method:      method,
		ContentType: opts.ContentType,
		Expires:     time.Now().Add(opts.TTL),
	})
	if err != nil {
		return "", fmt.Errorf("sign %s %s: %w", method, key, err)
	}
	return u, nil
}
