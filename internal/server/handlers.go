package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nguyentantai21042004/carenote/internal/apperr"
	"github.com/nguyentantai21042004/carenote/internal/jobs"
	"github.com/nguyentantai21042004/carenote/internal/layout"
	"github.com/nguyentantai21042004/carenote/internal/objstore"
)

const recentLimit = 20

// SignUploadRequest asks for a signed PUT URL for one chunk
type SignUploadRequest struct {
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
	Seq         *int   `json:"seq"`
	ContentType string `json:"contentType"`
}

func (s *Server) handleSignUpload(w http.ResponseWriter, r *http.Request) {
	var req SignUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, apperr.Validation("invalid request body: %v", err))
		return
	}
	if req.SessionID == "" || req.UserID == "" || req.Seq == nil {
		s.writeError(w, r, apperr.Validation("sessionId/userId/seq required"))
		return
	}
	if !layout.ValidID(req.SessionID) || *req.Seq < 0 {
		s.writeError(w, r, apperr.Validation("invalid sessionId or seq"))
		return
	}

	ext := layout.ChunkExt(req.ContentType)
	contentType := layout.ChunkContentType(req.ContentType, ext)
	key := layout.ChunkKey(req.SessionID, *req.Seq, ext)

	url, err := s.deps.Store.SignedURL(r.Context(), key, objstore.SignOptions{
		Method:      http.MethodPut,
		ContentType: contentType,
		TTL:         s.opts.UploadURLTTL,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":          true,
		"url":         url,
		"objectName":  key,
		"contentType": contentType,
	})
}

func (s *Server) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req jobs.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, apperr.Validation("invalid request body: %v", err))
		return
	}

	jobID, err := s.deps.Coordinator.Finalize(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "jobId": jobID})
}

func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Poller.Poll(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := map[string]any{"ok": true, "status": res.Status}
	if res.Transcript != "" {
		body["transcript"] = res.Transcript
	}
	if res.Summary != nil {
		body["summary"] = res.Summary
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.deps.Recent == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "jobs": []any{}})
		return
	}
	list, err := s.deps.Recent.Recent(r.Context(), recentLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "jobs": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "jobs": list})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if errors.Is(err, jobs.ErrUnknownJob) {
		status = http.StatusNotFound
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.logger.Warn(r.Context(), "%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
