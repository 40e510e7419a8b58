package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/talentwire/interview-webhooks/internal/dto"
	"github.com/talentwire/interview-webhooks/internal/entity"
	"github.com/talentwire/interview-webhooks/internal/usecase/applier"
	"github.com/talentwire/interview-webhooks/pkg/logger"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

const testMeetingID = "987654321"

type fixture struct {
	uc         *WebhookUseCase
	events     *fakeEventRepo
	interviews *fakeInterviewRepo
	clock      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		events:     newFakeEventRepo(),
		interviews: newFakeInterviewRepo(),
		clock:      testNow,
	}

	f.uc = New(f.events, f.interviews, applier.NewRegistry(), fakeTransactor{}, logger.New("error"), 3, 15*time.Minute)
	f.uc.now = func() time.Time { return f.clock }

	return f
}

func (f *fixture) addInterview(status entity.InterviewStatus) *entity.Interview {
	interview := &entity.Interview{
		ID:                uuid.New(),
		Provider:          applier.ProviderZoom,
		ProviderMeetingID: testMeetingID,
		Status:            status,
		RecordingStatus:   entity.RecordingNone,
	}
	f.interviews.put(interview)

	return interview
}

func (f *fixture) addEvent(eventType string, status entity.Status, attempts int) *entity.WebhookEvent {
	key := testMeetingID
	event := &entity.WebhookEvent{
		ID:             uuid.New(),
		Provider:       applier.ProviderZoom,
		EventType:      eventType,
		EventID:        uuid.NewString(),
		CorrelationKey: &key,
		Payload:        []byte(`{"event":"` + eventType + `","payload":{"object":{"id":"` + testMeetingID + `"}}}`),
		Status:         status,
		Attempts:       attempts,
		MaxAttempts:    3,
		CreatedAt:      testNow.Add(-time.Hour),
	}
	if status == entity.Failed {
		due := testNow.Add(-time.Minute)
		event.NextRetryAt = &due
	}
	f.events.put(event)

	return event
}

func TestProcessDueEventsHappyPath(t *testing.T) {
	f := newFixture(t)
	f.addInterview(entity.InterviewInProgress)
	event := f.addEvent("meeting.ended", entity.Pending, 0)

	summary, err := f.uc.ProcessDueEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Processed != 1 || summary.Succeeded != 1 || summary.Failed != 0 || summary.DeadLetters != 0 {
		t.Fatalf("summary = %+v, want one success", summary)
	}

	stored := f.events.events[event.ID]
	if stored.Status != entity.Completed {
		t.Errorf("event status = %s, want completed", stored.Status)
	}
	if stored.ProcessedAt == nil || !stored.ProcessedAt.Equal(testNow) {
		t.Errorf("processed at = %v, want %v", stored.ProcessedAt, testNow)
	}

	interview := f.interviews.interviews[interviewKey(applier.ProviderZoom, testMeetingID)]
	if interview.Status != entity.InterviewCompleted {
		t.Errorf("interview status = %s, want completed", interview.Status)
	}
	if interview.WebhookEventType == nil || *interview.WebhookEventType != "meeting.ended" {
		t.Errorf("webhook event type = %v, want meeting.ended", interview.WebhookEventType)
	}
}

func TestProcessDueEventsRetrySequenceToDeadLetter(t *testing.T) {
	f := newFixture(t)
	// No interview row: resolution fails on every pass.
	event := f.addEvent("meeting.ended", entity.Pending, 0)

	wantBackoffs := []time.Duration{5 * time.Minute, 15 * time.Minute}

	for i, backoff := range wantBackoffs {
		summary, err := f.uc.ProcessDueEvents(context.Background(), 10)
		if err != nil {
			t.Fatalf("pass %d: unexpected error: %v", i+1, err)
		}
		if summary.Failed != 1 || summary.DeadLetters != 0 {
			t.Fatalf("pass %d: summary = %+v, want one reschedule", i+1, summary)
		}

		stored := f.events.events[event.ID]
		if stored.Status != entity.Failed {
			t.Fatalf("pass %d: status = %s, want failed", i+1, stored.Status)
		}
		if stored.Attempts != i+1 {
			t.Fatalf("pass %d: attempts = %d, want %d", i+1, stored.Attempts, i+1)
		}
		if want := f.clock.Add(backoff); stored.NextRetryAt == nil || !stored.NextRetryAt.Equal(want) {
			t.Fatalf("pass %d: next retry at = %v, want %v", i+1, stored.NextRetryAt, want)
		}
		if stored.ErrorMessage == nil {
			t.Fatalf("pass %d: error message must be recorded", i+1)
		}

		// Advance past the backoff window so the next pass sees the event.
		f.clock = stored.NextRetryAt.Add(time.Second)
	}

	// Third failure exhausts maxAttempts=3.
	summary, err := f.uc.ProcessDueEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("final pass: unexpected error: %v", err)
	}
	if summary.DeadLetters != 1 || summary.Failed != 0 {
		t.Fatalf("final pass: summary = %+v, want one dead letter", summary)
	}

	stored := f.events.events[event.ID]
	if stored.Status != entity.DeadLetter {
		t.Errorf("status = %s, want dead_letter", stored.Status)
	}
	if stored.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", stored.Attempts)
	}
	if stored.NextRetryAt != nil {
		t.Errorf("next retry at must be cleared on dead letter, got %v", stored.NextRetryAt)
	}

	// Dead letters never come back on their own.
	summary, err = f.uc.ProcessDueEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("post dead-letter pass: unexpected error: %v", err)
	}
	if summary.Processed != 0 {
		t.Errorf("dead-lettered event was fetched again: %+v", summary)
	}
}

func TestProcessDueEventsUnknownEventTypeIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.addInterview(entity.InterviewScheduled)
	event := f.addEvent("meeting.participant_joined", entity.Pending, 0)

	summary, err := f.uc.ProcessDueEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Succeeded != 1 {
		t.Fatalf("summary = %+v, want success for the unknown event type", summary)
	}

	stored := f.events.events[event.ID]
	if stored.Status != entity.Completed {
		t.Errorf("event status = %s, want completed", stored.Status)
	}
	if stored.Attempts != 0 {
		t.Errorf("attempts = %d, want 0 for a no-op", stored.Attempts)
	}
	if len(f.interviews.applied) != 0 {
		t.Errorf("unknown event type must not mutate the interview, got %d mutations", len(f.interviews.applied))
	}
}

func TestProcessDueEventsUnknownProviderFails(t *testing.T) {
	f := newFixture(t)
	event := f.addEvent("meeting.ended", entity.Pending, 0)
	f.events.events[event.ID].Provider = "teams"

	summary, err := f.uc.ProcessDueEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Failed != 1 {
		t.Fatalf("summary = %+v, want one reschedule", summary)
	}
	if f.events.events[event.ID].Status != entity.Failed {
		t.Errorf("status = %s, want failed", f.events.events[event.ID].Status)
	}
}

func TestProcessDueEventsMissingCorrelationKeyDeadLetters(t *testing.T) {
	f := newFixture(t)
	event := f.addEvent("meeting.ended", entity.Pending, 0)
	f.events.events[event.ID].CorrelationKey = nil

	summary, err := f.uc.ProcessDueEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.DeadLetters != 1 {
		t.Fatalf("summary = %+v, want immediate dead letter", summary)
	}

	stored := f.events.events[event.ID]
	if stored.Status != entity.DeadLetter {
		t.Errorf("status = %s, want dead_letter", stored.Status)
	}
	if stored.ErrorMessage == nil || *stored.ErrorMessage != "missing correlation key" {
		t.Errorf("error message = %v", stored.ErrorMessage)
	}
}

func TestProcessDueEventsBatchIsolation(t *testing.T) {
	f := newFixture(t)
	f.addInterview(entity.InterviewInProgress)

	good := f.addEvent("meeting.ended", entity.Pending, 0)

	bad := f.addEvent("recording.started", entity.Pending, 0)
	missing := "no-such-meeting"
	f.events.events[bad.ID].CorrelationKey = &missing
	f.events.events[bad.ID].CreatedAt = testNow.Add(-2 * time.Hour) // processed first

	summary, err := f.uc.ProcessDueEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Processed != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("summary = %+v, want one success and one reschedule", summary)
	}
	if f.events.events[good.ID].Status != entity.Completed {
		t.Errorf("good event status = %s, want completed", f.events.events[good.ID].Status)
	}
	if f.events.events[bad.ID].Status != entity.Failed {
		t.Errorf("bad event status = %s, want failed", f.events.events[bad.ID].Status)
	}
}

func TestProcessDueEventsRespectsNextRetryAt(t *testing.T) {
	f := newFixture(t)
	f.addInterview(entity.InterviewInProgress)
	event := f.addEvent("meeting.ended", entity.Failed, 1)
	future := testNow.Add(10 * time.Minute)
	f.events.events[event.ID].NextRetryAt = &future

	summary, err := f.uc.ProcessDueEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Processed != 0 {
		t.Errorf("event before its next_retry_at was processed: %+v", summary)
	}
}

func TestIngestEvent(t *testing.T) {
	f := newFixture(t)

	inbound := dto.InboundEvent{
		Provider:       applier.ProviderZoom,
		EventType:      "meeting.started",
		EventID:        "delivery-1",
		CorrelationKey: testMeetingID,
		Payload:        []byte(`{"event":"meeting.started"}`),
	}

	event, created, err := f.uc.IngestEvent(context.Background(), inbound)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Fatal("first delivery must create an event")
	}
	if event.Status != entity.Pending || event.Attempts != 0 || event.MaxAttempts != 3 {
		t.Errorf("event = %+v, want pending with a fresh attempt budget", event)
	}
	if event.CorrelationKey == nil || *event.CorrelationKey != testMeetingID {
		t.Errorf("correlation key = %v, want %s", event.CorrelationKey, testMeetingID)
	}

	// Same (provider, event_id) again: duplicate, no second row.
	_, created, err = f.uc.IngestEvent(context.Background(), inbound)
	if err != nil {
		t.Fatalf("unexpected error on duplicate: %v", err)
	}
	if created {
		t.Fatal("duplicate delivery must not create a second event")
	}
	if len(f.events.events) != 1 {
		t.Fatalf("event rows = %d, want 1", len(f.events.events))
	}
}

func TestRequeueEvent(t *testing.T) {
	f := newFixture(t)
	event := f.addEvent("meeting.ended", entity.Pending, 0)
	stored := f.events.events[event.ID]
	stored.Status = entity.DeadLetter
	stored.Attempts = 3
	msg := "provider timeout"
	stored.ErrorMessage = &msg

	requeued, err := f.uc.RequeueEvent(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if requeued.Status != entity.Failed {
		t.Errorf("status = %s, want failed", requeued.Status)
	}
	if requeued.Attempts != 0 {
		t.Errorf("attempts = %d, want 0", requeued.Attempts)
	}
	if requeued.ErrorMessage != nil {
		t.Errorf("error message = %v, want cleared", requeued.ErrorMessage)
	}
	if want := testNow.Add(time.Minute); requeued.NextRetryAt == nil || !requeued.NextRetryAt.Equal(want) {
		t.Errorf("next retry at = %v, want %v", requeued.NextRetryAt, want)
	}

	if f.events.events[event.ID].Status != entity.Failed {
		t.Errorf("stored status = %s, want failed", f.events.events[event.ID].Status)
	}
}

func TestRequeueEventRejectsNonDeadLetter(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		status entity.Status
	}{
		{name: "pending", status: entity.Pending},
		{name: "processing", status: entity.Processing},
		{name: "completed", status: entity.Completed},
		{name: "failed", status: entity.Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := f.addEvent("meeting.ended", tt.status, 0)

			if _, err := f.uc.RequeueEvent(context.Background(), event.ID); err == nil {
				t.Fatalf("requeue from %s must be a validation error", tt.status)
			}
		})
	}
}

func TestListDeadLettersFilterAndPaging(t *testing.T) {
	f := newFixture(t)

	for i := 0; i < 3; i++ {
		event := f.addEvent("recording.completed", entity.Pending, 0)
		stored := f.events.events[event.ID]
		stored.Status = entity.DeadLetter
		stored.CreatedAt = testNow.Add(-time.Duration(i) * time.Hour)
	}
	other := f.addEvent("meeting.ended", entity.Pending, 0)
	f.events.events[other.ID].Status = entity.DeadLetter

	events, total, err := f.uc.ListDeadLetters(context.Background(), dto.DeadLetterFilter{
		EventType: "recording.completed",
		Page:      1,
		Limit:     2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(events) != 2 {
		t.Fatalf("page size = %d, want 2", len(events))
	}
	if events[0].CreatedAt.Before(events[1].CreatedAt) {
		t.Error("dead letters must be ordered newest first")
	}

	// Limit is capped.
	_, _, err = f.uc.ListDeadLetters(context.Background(), dto.DeadLetterFilter{Page: 1, Limit: 10_000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestReclaimStaleProcessing(t *testing.T) {
	f := newFixture(t)

	stale := f.addEvent("meeting.ended", entity.Pending, 0)
	staleAt := testNow.Add(-time.Hour)
	f.events.events[stale.ID].Status = entity.Processing
	f.events.events[stale.ID].LastAttemptAt = &staleAt

	fresh := f.addEvent("meeting.started", entity.Pending, 0)
	freshAt := testNow.Add(-time.Minute)
	f.events.events[fresh.ID].Status = entity.Processing
	f.events.events[fresh.ID].LastAttemptAt = &freshAt

	count, err := f.uc.ReclaimStaleProcessing(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if count != 1 {
		t.Fatalf("reclaimed = %d, want 1", count)
	}
	if f.events.events[stale.ID].Status != entity.Failed {
		t.Errorf("stale event status = %s, want failed", f.events.events[stale.ID].Status)
	}
	if f.events.events[fresh.ID].Status != entity.Processing {
		t.Errorf("fresh event status = %s, must stay processing", f.events.events[fresh.ID].Status)
	}
}
