package objstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestMemoryCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	ok, err := s.CreateIfAbsent(ctx, "deliveries/j1.lock", []byte("a"), "application/json")
	if err != nil || !ok {
		t.Fatalf("first create = %v, %v; want true, nil", ok, err)
	}
	ok, err = s.CreateIfAbsent(ctx, "deliveries/j1.lock", []byte("b"), "application/json")
	if err != nil || ok {
		t.Fatalf("second create = %v, %v; want false, nil", ok, err)
	}
	data, _ := s.Download(ctx, "deliveries/j1.lock")
	if string(data) != "a" {
		t.Errorf("content = %q, want first writer's content", data)
	}
}

func TestMemoryCreateIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.CreateIfAbsent(ctx, "k", []byte("x"), ""); ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 {
		t.Errorf("winners = %d, want 1", wins.Load())
	}
}

func TestMemoryCompose(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	_ = s.Upload(ctx, "a", []byte("1"), "audio/webm")
	_ = s.Upload(ctx, "b", []byte("2"), "audio/webm")

	if err := s.Compose(ctx, []string{"a", "b", "a"}, "out"); err != nil {
		t.Fatal(err)
	}
	data, _ := s.Download(ctx, "out")
	if string(data) != "121" {
		t.Errorf("composed = %q, want 121", data)
	}

	s.SetMaxCompose(2)
	if err := s.Compose(ctx, []string{"a", "b", "a"}, "out2"); err == nil {
		t.Error("compose over the cap should fail")
	}
}

func TestMemoryDownloadMissing(t *testing.T) {
	_, err := NewMemory().Download(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	_, ok, err := DownloadIfExists(context.Background(), NewMemory(), "nope")
	if ok || err != nil {
		t.Errorf("DownloadIfExists = %v, %v; want false, nil", ok, err)
	}
}

func TestMemoryListAndDeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	for _, k := range []string{"p/c", "p/a", "q/x", "p/b"} {
		_ = s.Upload(ctx, k, nil, "")
	}

	keys, _ := s.List(ctx, "p/")
	if len(keys) != 3 || keys[0] != "p/a" || keys[2] != "p/c" {
		t.Errorf("List() = %v", keys)
	}

	_ = s.DeletePrefix(ctx, "p/")
	keys, _ = s.List(ctx, "")
	if len(keys) != 1 || keys[0] != "q/x" {
		t.Errorf("after DeletePrefix = %v", keys)
	}
}
