package jobcache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/nguyentantai21042004/carenote/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache", "jobs.sqlite"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	meta := model.Metadata{
		SessionID: "s1",
		UserID:    "U123",
		JobID:     "op-1",
		AudioURI:  "gs://bucket/audio/s1.wav",
		CreatedAt: time.UnixMilli(1700000000000),
		VisitContext: model.VisitContext{
			PatientName:  "山田",
			FacilityName: "中央薬局",
		},
	}
	if err := s.Put(ctx, meta); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get(ctx, "op-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != meta {
		t.Errorf("Get() = %+v, want %+v", got, meta)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestRecentOrdering(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	base := time.UnixMilli(1700000000000)
	for i := 0; i < 5; i++ {
		err := s.Put(ctx, model.Metadata{
			SessionID: fmt.Sprintf("s%d", i),
			UserID:    "U1",
			JobID:     fmt.Sprintf("op-%d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.Recent(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 3 {
		t.Fatalf("len = %d, want 3", len(recent))
	}
	if recent[0].JobID != "op-4" || recent[2].JobID != "op-2" {
		t.Errorf("order = %s, %s, %s", recent[0].JobID, recent[1].JobID, recent[2].JobID)
	}
}
