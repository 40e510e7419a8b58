package applier

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/talentwire/interview-webhooks/internal/entity"
)

// ProviderZoom is the provider tag written by the Zoom ingestion endpoint.
const ProviderZoom = "zoom"

// Recording types Zoom marks as the primary meeting view. When none of the
// files match, the first file in the list is used instead.
var zoomPreferredRecordingTypes = map[string]bool{
	"shared_screen_with_speaker_view": true,
	"active_speaker":                  true,
}

type zoomEnvelope struct {
	Event   string      `json:"event"`
	EventTS int64       `json:"event_ts"` // epoch milliseconds
	Payload zoomPayload `json:"payload"`
}

type zoomPayload struct {
	AccountID string     `json:"account_id"`
	Object    zoomObject `json:"object"`
}

type zoomObject struct {
	ID             json.Number         `json:"id"`
	UUID           string              `json:"uuid"`
	Topic          string              `json:"topic"`
	Duration       int                 `json:"duration"`
	RecordingFiles []zoomRecordingFile `json:"recording_files"`
}

type zoomRecordingFile struct {
	ID             string `json:"id"`
	FileType       string `json:"file_type"`
	FileSize       int64  `json:"file_size"`
	RecordingType  string `json:"recording_type"`
	PlayURL        string `json:"play_url"`
	DownloadURL    string `json:"download_url"`
	RecordingStart string `json:"recording_start"`
	RecordingEnd   string `json:"recording_end"`
}

func registerZoomHandlers(r *Registry) {
	r.register(ProviderZoom, "meeting.started", zoomMeetingStarted)
	r.register(ProviderZoom, "meeting.ended", zoomMeetingEnded)
	r.register(ProviderZoom, "recording.started", zoomRecordingStarted)
	r.register(ProviderZoom, "recording.stopped", zoomRecordingStopped)
	r.register(ProviderZoom, "recording.completed", zoomRecordingCompleted)
}

func zoomMeetingStarted(payload []byte, _ *entity.Interview, now time.Time) (*entity.InterviewMutation, error) {
	env, err := parseZoomEnvelope(payload)
	if err != nil {
		return nil, err
	}

	m := zoomBaseMutation("meeting.started", env, now)
	status := entity.InterviewInProgress
	m.Status = &status

	return m, nil
}

// zoomMeetingEnded completes the interview only when it is currently
// in_progress. A record already completed or canceled must not regress on a
// late or duplicate delivery.
func zoomMeetingEnded(payload []byte, current *entity.Interview, now time.Time) (*entity.InterviewMutation, error) {
	env, err := parseZoomEnvelope(payload)
	if err != nil {
		return nil, err
	}

	m := zoomBaseMutation("meeting.ended", env, now)
	if current.Status == entity.InterviewInProgress {
		status := entity.InterviewCompleted
		m.Status = &status
	}

	return m, nil
}

func zoomRecordingStarted(payload []byte, _ *entity.Interview, now time.Time) (*entity.InterviewMutation, error) {
	env, err := parseZoomEnvelope(payload)
	if err != nil {
		return nil, err
	}

	m := zoomBaseMutation("recording.started", env, now)
	recording := entity.RecordingInProgress
	m.RecordingStatus = &recording

	return m, nil
}

func zoomRecordingStopped(payload []byte, _ *entity.Interview, now time.Time) (*entity.InterviewMutation, error) {
	env, err := parseZoomEnvelope(payload)
	if err != nil {
		return nil, err
	}

	m := zoomBaseMutation("recording.stopped", env, now)
	recording := entity.RecordingProcessing
	m.RecordingStatus = &recording

	return m, nil
}

func zoomRecordingCompleted(payload []byte, _ *entity.Interview, now time.Time) (*entity.InterviewMutation, error) {
	env, err := parseZoomEnvelope(payload)
	if err != nil {
		return nil, err
	}

	m := zoomBaseMutation("recording.completed", env, now)
	recording := entity.RecordingCompleted
	m.RecordingStatus = &recording
	m.RecordingProcessedAt = &now

	file := selectPrimaryRecordingFile(env.Payload.Object.RecordingFiles)
	if file == nil {
		// No recording files delivered; the status update still applies.
		return m, nil
	}

	if url := recordingURL(file); url != "" {
		m.RecordingURL = &url
	}
	if file.FileSize > 0 {
		size := file.FileSize
		m.RecordingFileSize = &size
	}
	if duration, ok := recordingDuration(file); ok {
		m.RecordingDuration = &duration
	}

	return m, nil
}

func parseZoomEnvelope(payload []byte) (*zoomEnvelope, error) {
	var env zoomEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("applier - parseZoomEnvelope - json.Unmarshal: %w", err)
	}
	return &env, nil
}

// zoomBaseMutation sets the observability fields every applied event carries.
// webhook_last_received_at takes the event timestamp when Zoom supplies one,
// falling back to processing time.
func zoomBaseMutation(eventType string, env *zoomEnvelope, now time.Time) *entity.InterviewMutation {
	receivedAt := now
	if env.EventTS > 0 {
		receivedAt = time.UnixMilli(env.EventTS).UTC()
	}

	return &entity.InterviewMutation{
		WebhookLastReceivedAt: receivedAt,
		WebhookEventType:      eventType,
	}
}

func selectPrimaryRecordingFile(files []zoomRecordingFile) *zoomRecordingFile {
	if len(files) == 0 {
		return nil
	}

	for i := range files {
		if zoomPreferredRecordingTypes[files[i].RecordingType] {
			return &files[i]
		}
	}

	return &files[0]
}

func recordingURL(file *zoomRecordingFile) string {
	if file.PlayURL != "" {
		return file.PlayURL
	}
	return file.DownloadURL
}

// recordingDuration derives whole seconds from the file's start/end
// timestamps. Both must parse; otherwise no duration is written.
func recordingDuration(file *zoomRecordingFile) (int, bool) {
	if file.RecordingStart == "" || file.RecordingEnd == "" {
		return 0, false
	}

	start, err := time.Parse(time.RFC3339, file.RecordingStart)
	if err != nil {
		return 0, false
	}

	end, err := time.Parse(time.RFC3339, file.RecordingEnd)
	if err != nil {
		return 0, false
	}

	if end.Before(start) {
		return 0, false
	}

	return int(end.Sub(start) / time.Second), true
}
