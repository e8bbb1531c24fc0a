package assembler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nguyentantai21042004/carenote/internal/layout"
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
)

func uploadChunks(t *testing.T, s *objstore.Memory, n int) []string {
	t.Helper()
	ctx := context.Background()
	// upload in shuffled order to mimic network arrival
	order := rand.Perm(n)
	for _, i := range order {
		key := layout.ChunkKey("s1", i+1, "webm")
		if err := s.Upload(ctx, key, []byte(fmt.Sprintf("[%d]", i+1)), "audio/webm"); err != nil {
			t.Fatal(err)
		}
	}
	keys, _ := s.List(ctx, layout.SessionPrefix("s1"))
	sort.Strings(keys)
	return keys
}

func expected(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "[%d]", i)
	}
	return b.String()
}

func TestAssembleRounds(t *testing.T) {
	tests := []struct {
		name       string
		chunks     int
		wantRounds int
	}{
		{"single chunk", 1, 0},
		{"two chunks", 2, 1},
		{"exactly the cap", 32, 1},
		{"cap plus one", 33, 2},
		{"sixty-five chunks", 65, 2},
		{"over cap squared", 32*32 + 1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := objstore.NewMemory()
			keys := uploadChunks(t, s, tt.chunks)
			dest := layout.AssembledKey("s1", "webm")

			rounds, err := New(s, logger.NewNop(), 32).Assemble(ctx, keys, dest)
			if err != nil {
				t.Fatalf("Assemble() error = %v", err)
			}
			if rounds != tt.wantRounds {
				t.Errorf("rounds = %d, want %d", rounds, tt.wantRounds)
			}

			data, err := s.Download(ctx, dest)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != expected(tt.chunks) {
				t.Errorf("assembled content out of order")
			}

			tmp, _ := s.List(ctx, dest+".compose.")
			if len(tmp) != 0 {
				t.Errorf("temporaries left behind: %v", tmp)
			}
		})
	}
}

func TestAssembleComposeCalls(t *testing.T) {
	ctx := context.Background()
	s := objstore.NewMemory()
	keys := uploadChunks(t, s, 65)

	if _, err := New(s, logger.NewNop(), 32).Assemble(ctx, keys, "out"); err != nil {
		t.Fatal(err)
	}
	// round 0: two full batches (the 65th passes through), round 1: one batch
	if got := s.ComposeCalls(); got != 3 {
		t.Errorf("compose calls = %d, want 3", got)
	}
}

func TestAssembleNoSources(t *testing.T) {
	if _, err := New(objstore.NewMemory(), logger.NewNop(), 0).Assemble(context.Background(), nil, "out"); err == nil {
		t.Error("expected error for empty source list")
	}
}

type failingCleanup struct {
	*objstore.Memory
}

func (f failingCleanup) DeletePrefix(ctx context.Context, prefix string) error {
	return errors.New("permission denied")
}

func TestAssembleCleanupFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	s := objstore.NewMemory()
	keys := uploadChunks(t, s, 3)

	if _, err := New(failingCleanup{s}, logger.NewNop(), 2).Assemble(ctx, keys, "out"); err != nil {
		t.Fatalf("cleanup failure should not fail Assemble: %v", err)
	}
	data, _ := s.Download(ctx, "out")
	if string(data) != expected(3) {
		t.Errorf("assembled = %q", data)
	}
}

type callerKey struct{}

// pausingComposer blocks the "first" caller on its first compose that reads temporaries
type pausingComposer struct {
	*objstore.Memory
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingComposer) Compose(ctx context.Context, sources []string, dest string) error {
	if ctx.Value(callerKey{}) == "first" && strings.Contains(sources[0], ".compose.") {
		p.once.Do(func() {
			close(p.reached)
			<-p.release
		})
	}
	return p.Memory.Compose(ctx, sources, dest)
}

func TestAssembleOverlappingCalls(t *testing.T) {
	s := objstore.NewMemory()
	keys := uploadChunks(t, s, 65)
	dest := layout.AssembledKey("s1", "webm")
	pc := &pausingComposer{Memory: s, reached: make(chan struct{}), release: make(chan struct{})}
	a := New(pc, logger.NewNop(), 32)

	done := make(chan error, 1)
	go func() {
		ctx := context.WithValue(context.Background(), callerKey{}, "first")
		_, err := a.Assemble(ctx, keys, dest)
		done <- err
	}()

	select {
	case <-pc.reached:
	case <-time.After(5 * time.Second):
		t.Fatal("first call never reached its second round")
	}

	// a second call for the same destination runs to completion, cleanup included
	if _, err := a.Assemble(context.Background(), keys, dest); err != nil {
		t.Fatalf("second Assemble() error = %v", err)
	}
	close(pc.release)

	if err := <-done; err != nil {
		t.Fatalf("first Assemble() error = %v", err)
	}
	data, err := s.Download(context.Background(), dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != expected(65) {
		t.Error("assembled content out of order")
	}
	if tmp, _ := s.List(context.Background(), dest+".compose."); len(tmp) != 0 {
		t.Errorf("temporaries left behind: %v", tmp)
	}
}
