// Package client is a Go client for the carenote HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultPollInterval = 4 * time.Second
	DefaultPollAttempts = 30
)

// ErrPollTimeout is returned by WaitForDone when the job is still running after every attempt
var ErrPollTimeout = errors.New("job did not finish in time")

// VisitContext is passed through to the job record
type VisitContext struct {
	PatientID    string `json:"patientId,omitempty"`
	PatientName  string `json:"patientName,omitempty"`
	FacilityID   string `json:"facilityId,omitempty"`
	FacilityName string `json:"facilityName,omitempty"`
}

type UploadTarget struct {
	URL         string `json:"url"`
	ObjectName  string `json:"objectName"`
	ContentType string `json:"contentType"`
}

type JobStatus struct {
	Status     string          `json:"status"`
	Transcript string          `json:"transcript,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
}

func (s JobStatus) Done() bool {
	return s.Status == "DONE"
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("carenote: HTTP %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
	pollAttempts int
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithPolling(interval time.Duration, attempts int) Option {
	return func(cl *Client) {
		cl.pollInterval = interval
		cl.pollAttempts = attempts
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 5 * time.Minute},
		pollInterval: DefaultPollInterval,
		pollAttempts: DefaultPollAttempts,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SignUpload requests a signed URL for chunk seq of a session
func (c *Client) SignUpload(ctx context.Context, sessionID, userID string, seq int, contentType string) (*UploadTarget, error) {
	var out UploadTarget
	err := c.do(ctx, http.MethodPost, "/sign-upload", map[string]any{
		"sessionId":   sessionID,
		"userId":      userID,
		"seq":         seq,
		"contentType": contentType,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadChunk PUTs data to a signed upload target
func (c *Client) UploadChunk(ctx context.Context, target *UploadTarget, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", target.ContentType)
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upload chunk: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return &APIError{StatusCode: res.StatusCode, Message: string(msg)}
	}
	return nil
}

// Finalize closes the session and returns its job id
func (c *Client) Finalize(ctx context.Context, sessionID, userID string, visit VisitContext) (string, error) {
	var out struct {
		JobID string `json:"jobId"`
	}
	err := c.do(ctx, http.MethodPost, "/finalize", map[string]any{
		"sessionId": sessionID,
		"userId":    userID,
		"context":   visit,
	}, &out)
	return out.JobID, err
}

// Poll asks for the job status once
func (c *Client) Poll(ctx context.Context, jobID string) (*JobStatus, error) {
	var out JobStatus
	if err := c.do(ctx, http.MethodGet, "/jobs/"+jobID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WaitForDone polls until the job is DONE or the attempts run out
func (c *Client) WaitForDone(ctx context.Context, jobID string) (*JobStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		st, err := c.Poll(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if st.Done() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
	return nil, ErrPollTimeout
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &APIError{StatusCode: res.StatusCode, Message: strings.TrimSpace(string(data))}
	}
	if res.StatusCode/100 != 2 || !envelope.OK {
		return &APIError{StatusCode: res.StatusCode, Message: envelope.Error}
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
