package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nguyentantai21042004/carenote/internal/apperr"
	"github.com/nguyentantai21042004/carenote/internal/jobs"
	"github.com/nguyentantai21042004/carenote/internal/logger"
	"github.com/nguyentantai21042004/carenote/internal/metrics"
	"github.com/nguyentantai21042004/carenote/internal/model"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
	"github.com/nguyentantai21042004/carenote/internal/poller"
	"github.com/prometheus/client_golang/prometheus"
)

type fakeCoordinator struct{}

func (fakeCoordinator) Finalize(ctx context.Context, req jobs.FinalizeRequest) (string, error) {
	switch {
	case req.SessionID == "" || req.UserID == "":
		return "", apperr.Validation("sessionId and userId are required")
	case req.SessionID == "empty":
		return "", apperr.NoChunks(req.SessionID)
	case req.SessionID == "broken":
		return "", apperr.Transcode(nil)
	}
	return "op-" + req.SessionID, nil
}

func (fakeCoordinator) Lookup(ctx context.Context, jobID string) (model.Metadata, error) {
	return model.Metadata{}, jobs.ErrUnknownJob
}

type fakePoller struct{}

func (fakePoller) Poll(ctx context.Context, jobID string) (poller.Result, error) {
	if jobID == "op-running" {
		return poller.Result{Status: poller.StatusRunning}, nil
	}
	return poller.Result{
		Status:     poller.StatusDone,
		Transcript: "本日は",
		Summary:    json.RawMessage(`{"decisions":["継続"]}`),
	}, nil
}

type fakeRecent []model.Metadata

func (f fakeRecent) Recent(ctx context.Context, limit int) ([]model.Metadata, error) {
	return f, nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	s := New(Deps{
		Store:       objstore.NewMemory(),
		Coordinator: fakeCoordinator{},
		Poller:      fakePoller{},
		Recent:      fakeRecent{{JobID: "op-1", SessionID: "s1"}},
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
		Logger:      logger.NewNop(),
	}, Options{AllowOrigin: "*"})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func decode(t *testing.T, res *http.Response) map[string]any {
	t.Helper()
	defer res.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestFinalizeEndpoint(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantJobID  string
	}{
		{"ok", `{"sessionId":"s1","userId":"U1","context":{"patientName":"山田"}}`, http.StatusOK, "op-s1"},
		{"missing user", `{"sessionId":"s1"}`, http.StatusBadRequest, ""},
		{"no chunks", `{"sessionId":"empty","userId":"U1"}`, http.StatusBadRequest, ""},
		{"transcode failure", `{"sessionId":"broken","userId":"U1"}`, http.StatusInternalServerError, ""},
		{"bad json", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := http.Post(ts.URL+"/finalize", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			if res.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantStatus)
			}
			body := decode(t, res)
			if tt.wantJobID != "" {
				if body["ok"] != true || body["jobId"] != tt.wantJobID {
					t.Errorf("body = %v", body)
				}
			} else if body["ok"] != false || body["error"] == "" {
				t.Errorf("error body = %v", body)
			}
		})
	}
}

func TestPollEndpoint(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/jobs/op-running")
	if err != nil {
		t.Fatal(err)
	}
	body := decode(t, res)
	if body["status"] != "RUNNING" {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["transcript"]; ok {
		t.Error("running job reported a transcript")
	}

	res, err = http.Get(ts.URL + "/jobs/op-1")
	if err != nil {
		t.Fatal(err)
	}
	body = decode(t, res)
	if body["status"] != "DONE" || body["transcript"] != "本日は" {
		t.Errorf("body = %v", body)
	}
	summary, ok := body["summary"].(map[string]any)
	if !ok || summary["decisions"] == nil {
		t.Errorf("summary = %v", body["summary"])
	}
}

func TestSignUploadEndpoint(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Post(ts.URL+"/sign-upload", "application/json",
		strings.NewReader(`{"sessionId":"s1","userId":"U1","seq":7,"contentType":"audio/mp4"}`))
	if err != nil {
		t.Fatal(err)
	}
	body := decode(t, res)
	if body["objectName"] != "sessions/s1/chunk-00007.mp4" {
		t.Errorf("objectName = %v", body["objectName"])
	}
	if url, _ := body["url"].(string); !strings.Contains(url, "method=PUT") {
		t.Errorf("url = %v", body["url"])
	}

	res, err = http.Post(ts.URL+"/sign-upload", "application/json", strings.NewReader(`{"sessionId":"s1","userId":"U1"}`))
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Errorf("missing seq status = %d, want 400", res.StatusCode)
	}
}

func TestRecentAndHealth(t *testing.T) {
	ts := newTestServer(t)

	res, err := http.Get(ts.URL + "/jobs")
	if err != nil {
		t.Fatal(err)
	}
	body := decode(t, res)
	list, _ := body["jobs"].([]any)
	if len(list) != 1 {
		t.Errorf("jobs = %v", body["jobs"])
	}

	res, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	if decode(t, res)["ok"] != true {
		t.Error("health not ok")
	}

	res, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d", res.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/finalize", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", res.StatusCode)
	}
	if res.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
