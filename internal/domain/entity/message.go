package entity

import (
	"time"

	"github.com/google/uuid"
)

// GuideRequestMessage is the inbound message from the guide.processing queue.
type GuideRequestMessage struct {
	JobID       uuid.UUID `json:"job_id"`
	GuideID     int       `json:"guide_id"`
	VideoRef    string    `json:"video_ref"`
	CallbackURL string    `json:"callback_url,omitempty"`
	NotifyEmail string    `json:"notify_email,omitempty"`
}

// GuideStatusMessage is the outbound message published to the guide.status queue.
type GuideStatusMessage struct {
	JobID        uuid.UUID   `json:"job_id"`
	GuideID      int         `json:"guide_id"`
	Status       JobStatus   `json:"status"`
	VideoRef     string      `json:"video_ref"`
	StepCount    int         `json:"step_count,omitempty"`
	Source       GuideSource `json:"source,omitempty"`
	ArchiveKey   string      `json:"archive_key,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
	Attempt      int         `json:"attempt"`
	MaxAttempts  int         `json:"max_attempts"`
}

type CallbackStatus string

const (
	CallbackStatusCompleted CallbackStatus = "completed"
	CallbackStatusFailed    CallbackStatus = "failed"
)

// CallbackPayload is the body POSTed to a caller supplied callback URL.
type CallbackPayload struct {
	GuideID   int            `json:"guide_id"`
	Status    CallbackStatus `json:"status"`
	Result    *Guide         `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
