// Package apperr holds the error taxonomy shared by the pipeline stages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error
type Kind string

const (
	KindValidation Kind = "validation"
	KindNoChunks   Kind = "no_chunks"
	KindTranscode  Kind = "transcode"
	KindSubmission Kind = "submission"
	KindExtraction Kind = "extraction"
	KindParse      Kind = "parse"
	KindDelivery   Kind = "delivery"
	KindRaceLost   Kind = "race_lost"
	KindInternal   Kind = "internal"
)

// Error represents application-specific errors
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error of the given kind
func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Validation(format string, args ...interface{}) error {
	return New(KindValidation, fmt.Sprintf(format, args...), nil)
}

func NoChunks(sessionID string) error {
	return New(KindNoChunks, fmt.Sprintf("no chunks uploaded for session %s", sessionID), nil)
}

func Transcode(cause error) error {
	return New(KindTranscode, "normalize audio", cause)
}

func Submission(cause error) error {
	return New(KindSubmission, "submit transcription job", cause)
}

func Extraction(jobID string, cause error) error {
	return New(KindExtraction, fmt.Sprintf("extract transcription result for job %s", jobID), cause)
}

func Parse(cause error) error {
	return New(KindParse, "parse structured output", cause)
}

func Delivery(cause error) error {
	return New(KindDelivery, "push message", cause)
}

func RaceLost(key string) error {
	return New(KindRaceLost, fmt.Sprintf("conditional create lost for %s", key), nil)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code returned to callers
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindNoChunks:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
