package entity

import (
	"time"

	"github.com/google/uuid"
)

type WebhookEvent struct {
	ID             uuid.UUID  `json:"id"`
	Provider       string     `json:"provider"`
	EventType      string     `json:"event_type"`
	EventID        string     `json:"event_id"`
	CorrelationKey *string    `json:"correlation_key,omitempty"`
	Payload        []byte     `json:"payload"`
	Status         Status     `json:"status"` // pending, processing, completed, failed, dead_letter
	Attempts       int        `json:"attempts"`
	MaxAttempts    int        `json:"max_attempts"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
	ErrorMessage   *string    `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
