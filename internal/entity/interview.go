package entity

import (
	"time"

	"github.com/google/uuid"
)

// Interview models only the columns this pipeline is allowed to touch.
// The full interview row is owned by the ATS core.
type Interview struct {
	ID                uuid.UUID `json:"id"`
	Provider          string    `json:"provider"`
	ProviderMeetingID string    `json:"provider_meeting_id"`

	Status          InterviewStatus `json:"status"`
	RecordingStatus RecordingStatus `json:"recording_status"`

	RecordingURL         *string    `json:"recording_url,omitempty"`
	RecordingDuration    *int       `json:"recording_duration,omitempty"`
	RecordingFileSize    *int64     `json:"recording_file_size,omitempty"`
	RecordingProcessedAt *time.Time `json:"recording_processed_at,omitempty"`

	WebhookLastReceivedAt *time.Time `json:"webhook_last_received_at,omitempty"`
	WebhookEventType      *string    `json:"webhook_event_type,omitempty"`
}

// InterviewMutation is the set of field writes produced by an event applier.
// Nil pointer fields are left untouched; the observability fields are written
// on every applied event (last-write-wins).
type InterviewMutation struct {
	Status          *InterviewStatus
	RecordingStatus *RecordingStatus

	RecordingURL         *string
	RecordingDuration    *int
	RecordingFileSize    *int64
	RecordingProcessedAt *time.Time

	WebhookLastReceivedAt time.Time
	WebhookEventType      string
}
