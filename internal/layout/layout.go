// Package layout defines the object store paths shared by every instance.
package layout

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reID    = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
	reChunk = regexp.MustCompile(`chunk-\d+\.(webm|mp4)$`)
)

// ValidID reports whether id is safe to embed in an object key
func ValidID(id string) bool {
	return id != "" && id != "." && id != ".." && reID.MatchString(id)
}

// ChunkExt picks the container extension for a chunk content type
func ChunkExt(contentType string) string {
	if strings.Contains(contentType, "mp4") {
		return "mp4"
	}
	return "webm"
}

// ChunkContentType returns the content type a chunk with ext is uploaded as
func ChunkContentType(contentType, ext string) string {
	if contentType != "" {
		return contentType
	}
	return "audio/" + ext
}

// IsChunkKey reports whether key names an uploaded chunk
func IsChunkKey(key string) bool {
	return reChunk.MatchString(key)
}

func SessionPrefix(sessionID string) string {
	return "sessions/" + sessionID + "/"
}

func ChunkKey(sessionID string, seq int, ext string) string {
	return fmt.Sprintf("sessions/%s/chunk-%05d.%s", sessionID, seq, ext)
}

func AssembledKey(sessionID, ext string) string {
	return fmt.Sprintf("sessions/%s/assembled.%s", sessionID, ext)
}

func AudioKey(sessionID string) string {
	return "audio/" + sessionID + ".wav"
}

func SessionMetaKey(sessionID string) string {
	return "jobs-meta/by-session/" + sessionID + ".json"
}

func JobMetaKey(jobID string) string {
	return "jobs-meta/by-job/" + jobID + ".json"
}

func LockKey(jobID string) string {
	return "deliveries/" + jobID + ".lock"
}

// LockEpochKey names the lock claimed by the n-th takeover; epoch 0 is LockKey
func LockEpochKey(jobID string, epoch int) string {
	if epoch <= 0 {
		return LockKey(jobID)
	}
	return fmt.Sprintf("%s.%d", LockKey(jobID), epoch)
}

func DoneKey(jobID string) string {
	return "deliveries/" + jobID + ".done"
}

func RetryKeyKey(jobID string) string {
	return "deliveries/" + jobID + ".retryKey"
}

func TranscriptKey(sessionID string) string {
	return "transcripts/" + sessionID + ".txt"
}

func SummaryKey(sessionID string) string {
	return "summaries/" + sessionID + ".json"
}

func SummaryFullKey(sessionID string) string {
	return "summaries/" + sessionID + ".full.json"
}

func SummaryHTMLKey(sessionID string) string {
	return "summaries/" + sessionID + ".html"
}

func SummaryDocxKey(sessionID string) string {
	return "summaries/" + sessionID + ".docx"
}
