package dto

// ProcessSummary aggregates the outcome of one retry-processor pass.
type ProcessSummary struct {
	Processed   int `json:"processed"`
	Succeeded   int `json:"succeeded"`
	Failed      int `json:"failed"`
	DeadLetters int `json:"dead_letters"`
}

// DeadLetterFilter narrows and pages the dead-letter listing.
type DeadLetterFilter struct {
	Provider  string
	EventType string
	Page      int
	Limit     int
}

// InboundEvent is a provider callback normalized by the ingestion controller.
type InboundEvent struct {
	Provider       string
	EventType      string
	EventID        string
	CorrelationKey string
	Payload        []byte
}
