package objstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data        []byte
	contentType string
	updated     time.Time
}

// Memory is an in-process Store used for local runs and tests.
// Compose enforces the same source cap as the cloud store.
type Memory struct {
	mu         sync.Mutex
	objects    map[string]memObject
	maxCompose int
	composes   int
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		objects:    make(map[string]memObject),
		maxCompose: MaxComposeSources,
	}
}

// MaxComposeSources is the per-call compose cap of Cloud Storage
const MaxComposeSources = 32

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) Download(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("download %s: %w", key, ErrNotFound)
	}
	return bytes.Clone(obj.data), nil
}

func (m *Memory) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: bytes.Clone(data), contentType: contentType, updated: time.Now()}
	return nil
}

func (m *Memory) CreateIfAbsent(ctx context.Context, key string, data []byte, contentType string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return false, nil
	}
	m.objects[key] = memObject{data: bytes.Clone(data), contentType: contentType, updated: time.Now()}
	return true, nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *Memory) Compose(ctx context.Context, sources []string, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(sources) == 0 {
		return fmt.Errorf("compose %s: no sources", dest)
	}
	if len(sources) > m.maxCompose {
		return fmt.Errorf("compose %s: %d sources exceeds limit of %d", dest, len(sources), m.maxCompose)
	}
	var buf bytes.Buffer
	contentType := ""
	for _, src := range sources {
		obj, ok := m.objects[src]
		if !ok {
			return fmt.Errorf("compose source %s: %w", src, ErrNotFound)
		}
		if contentType == "" {
			contentType = obj.contentType
		}
		buf.Write(obj.data)
	}
	m.objects[dest] = memObject{data: buf.Bytes(), contentType: contentType, updated: time.Now()}
	m.composes++
	return nil
}

func (m *Memory) Copy(ctx context.Context, src, dest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[src]
	if !ok {
		return fmt.Errorf("copy %s: %w", src, ErrNotFound)
	}
	m.objects[dest] = memObject{data: bytes.Clone(obj.data), contentType: obj.contentType, updated: time.Now()}
	return nil
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("delete %s: %w", key, ErrNotFound)
	}
	delete(m.objects, key)
	return nil
}

func (m *Memory) DeletePrefix(ctx context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			delete(m.objects, k)
		}
	}
	return nil
}

func (m *Memory) URI(key string) string {
	return "mem://" + key
}

func (m *Memory) SignedURL(ctx context.Context, key string, opts SignOptions) (string, error) {
	q := url.Values{}
	q.Set("method", opts.Method)
	q.Set("expires", time.Now().Add(opts.TTL).UTC().Format(time.RFC3339))
	return "mem://" + key + "?" + q.Encode(), nil
}

// ComposeCalls reports how many Compose calls succeeded
func (m *Memory) ComposeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.composes
}

// SetMaxCompose overrides the per-call compose cap
func (m *Memory) SetMaxCompose(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxCompose = n
}
