package entity

type Status string

const (
	Pending    Status = "pending"
	Processing Status = "processing"
	Completed  Status = "completed"
	Failed     Status = "failed"
	DeadLetter Status = "dead_letter"
)

type InterviewStatus string

const (
	InterviewScheduled  InterviewStatus = "scheduled"
	InterviewInProgress InterviewStatus = "in_progress"
	InterviewCompleted  InterviewStatus = "completed"
	InterviewCanceled   InterviewStatus = "canceled"
)

type RecordingStatus string

const (
	RecordingNone       RecordingStatus = "none"
	RecordingInProgress RecordingStatus = "in_progress"
	RecordingProcessing RecordingStatus = "processing"
	RecordingCompleted  RecordingStatus = "completed"
)
