package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/carenote/internal/logger"
)

func TestWatcherHandlesExistingAndNewFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "s1.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "s1.json.done"), []byte("{}"), 0644)
	os.WriteFile(filepath.Join(dir, ".hidden.json"), []byte("{}"), 0644)

	var mu sync.Mutex
	seen := map[string]bool{}
	got := make(chan string, 4)
	handler := func(ctx context.Context, path string) error {
		mu.Lock()
		seen[filepath.Base(path)] = true
		mu.Unlock()
		got <- filepath.Base(path)
		return nil
	}

	w, err := New(dir, handler, logger.NewNop(), Options{Extensions: []string{".JSON"}, MaxConcurrent: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	waitFor(t, got, "s1.json")

	if err := os.WriteFile(filepath.Join(dir, "s2.json"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, got, "s2.json")

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if seen["s1.json.done"] || seen[".hidden.json"] {
		t.Errorf("handled filtered files: %v", seen)
	}
}

func waitFor(t *testing.T, ch <-chan string, name string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case n := <-ch:
			if n == name {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", name)
		}
	}
}
