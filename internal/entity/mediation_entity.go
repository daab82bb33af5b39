package entity

import (
	"time"
)

// Perspective is one participant's private account of the conflict.
// Resubmission overwrites, last write wins.
type Perspective struct {
	SessionId   string    `json:"session_id"`
	SecretKey   string    `json:"secret_key"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Answer is the generated mediation advice for exactly one participant.
// It exists iff completion was claimed and the model call for this
// participant succeeded.
type Answer struct {
	SessionId   string    `json:"session_id"`
	SecretKey   string    `json:"secret_key"`
	Text        string    `json:"text"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

type ReportStatus string

const (
	// ReportStatusClaimed marks that a submission won the one-time
	// completion transition but dispatch has not finished yet.
	ReportStatusClaimed ReportStatus = "claimed"
	ReportStatusDone    ReportStatus = "done"
)

type DispatchStatus string

const (
	DispatchStatusOk     DispatchStatus = "ok"
	DispatchStatusFailed DispatchStatus = "failed"
)

// ParticipantResult records the outcome of one model call.
type ParticipantResult struct {
	Name      string         `json:"name"`
	SecretKey string         `json:"secret_key"`
	Status    DispatchStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
}

// CompletionReport doubles as the completion claim marker and the
// per-session dispatch report. It is written in "claimed" state inside the
// per-session critical section and finalized once all model calls resolved.
type CompletionReport struct {
	SessionId   string              `json:"session_id"`
	Status      ReportStatus        `json:"status"`
	ClaimedAt   time.Time           `json:"claimed_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	Results     []ParticipantResult `json:"results,omitempty"`
}
