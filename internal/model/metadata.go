package model

import "time"

// VisitContext is free-form context attached to a recording session.
// The coordinator stores it without interpreting it.
type VisitContext struct {
	PatientID    string `json:"patientId,omitempty"`
	PatientName  string `json:"patientName,omitempty"`
	FacilityID   string `json:"facilityId,omitempty"`
	FacilityName string `json:"facilityName,omitempty"`
}

// Metadata is the job metadata record binding a session to its transcription job
type Metadata struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	AudioURI  string    `json:"gcsUri"`
	JobID     string    `json:"jobId"`
	CreatedAt time.Time `json:"createdAt"`
	VisitContext
}
