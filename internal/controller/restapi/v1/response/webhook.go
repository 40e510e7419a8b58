package response

import "github.com/talentwire/interview-webhooks/internal/entity"

type IngestAck struct {
	Status  string `json:"status"` // accepted, duplicate
	EventID string `json:"event_id,omitempty"`
}

type URLValidation struct {
	PlainToken     string `json:"plainToken"`
	EncryptedToken string `json:"encryptedToken"`
}

type ProcessRun struct {
	Processed   int `json:"processed"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	DeadLetters int `json:"dead_letters"`
}

type DeadLetterPage struct {
	Events     []*entity.WebhookEvent `json:"events"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	Total      int                    `json:"total"`
	TotalPages int                    `json:"total_pages"`
}
