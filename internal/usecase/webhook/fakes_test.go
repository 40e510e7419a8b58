package webhook

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/talentwire/interview-webhooks/internal/dto"
	"github.com/talentwire/interview-webhooks/internal/entity"
	"github.com/talentwire/interview-webhooks/pkg/types/errs"
)

// fakeEventRepo mirrors the postgres repo's guarded single-row updates in
// memory, including the zero-rows-affected behavior on a status mismatch.
type fakeEventRepo struct {
	events map[uuid.UUID]*entity.WebhookEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[uuid.UUID]*entity.WebhookEvent)}
}

func (r *fakeEventRepo) put(event *entity.WebhookEvent) {
	copied := *event
	r.events[event.ID] = &copied
}

func (r *fakeEventRepo) Create(_ context.Context, event *entity.WebhookEvent) error {
	r.put(event)
	return nil
}

func (r *fakeEventRepo) ExistsByProviderEventID(_ context.Context, provider, eventID string) (bool, error) {
	for _, e := range r.events {
		if e.Provider == provider && e.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEventRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.WebhookEvent, error) {
	e, ok := r.events[id]
	if !ok {
		return nil, errs.ErrRecordNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEventRepo) FetchDueRetries(_ context.Context, now time.Time, limit int) ([]*entity.WebhookEvent, error) {
	var due []*entity.WebhookEvent
	for _, e := range r.events {
		if e.Attempts >= e.MaxAttempts {
			continue
		}
		ready := e.Status == entity.Pending ||
			(e.Status == entity.Failed && e.NextRetryAt != nil && !e.NextRetryAt.After(now))
		if ready {
			copied := *e
			due = append(due, &copied)
		}
	}

	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })

	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (r *fakeEventRepo) MarkProcessing(_ context.Context, id uuid.UUID, at time.Time) error {
	e, ok := r.events[id]
	if !ok || (e.Status != entity.Pending && e.Status != entity.Failed) {
		return errs.ErrRecordNotFound
	}
	e.Status = entity.Processing
	e.LastAttemptAt = &at
	e.NextRetryAt = nil
	return nil
}

func (r *fakeEventRepo) MarkCompleted(_ context.Context, id uuid.UUID, at time.Time) error {
	e, ok := r.events[id]
	if !ok || e.Status != entity.Processing {
		return errs.ErrRecordNotFound
	}
	e.Status = entity.Completed
	e.ProcessedAt = &at
	return nil
}

func (r *fakeEventRepo) MarkFailed(_ context.Context, id uuid.UUID, attempts int, nextRetryAt time.Time, errorMessage string) error {
	e, ok := r.events[id]
	if !ok || e.Status != entity.Processing {
		return errs.ErrRecordNotFound
	}
	e.Status = entity.Failed
	e.Attempts = attempts
	e.NextRetryAt = &nextRetryAt
	e.ErrorMessage = &errorMessage
	return nil
}

func (r *fakeEventRepo) MarkDeadLetter(_ context.Context, id uuid.UUID, attempts int, errorMessage string) error {
	e, ok := r.events[id]
	if !ok || e.Status != entity.Processing {
		return errs.ErrRecordNotFound
	}
	e.Status = entity.DeadLetter
	e.Attempts = attempts
	e.NextRetryAt = nil
	e.ErrorMessage = &errorMessage
	return nil
}

func (r *fakeEventRepo) Requeue(_ context.Context, id uuid.UUID, nextRetryAt time.Time) error {
	e, ok := r.events[id]
	if !ok || e.Status != entity.DeadLetter {
		return errs.ErrNotDeadLetter
	}
	e.Status = entity.Failed
	e.Attempts = 0
	e.NextRetryAt = &nextRetryAt
	e.ErrorMessage = nil
	return nil
}

func (r *fakeEventRepo) ListDeadLetters(_ context.Context, filter dto.DeadLetterFilter) ([]*entity.WebhookEvent, int, error) {
	var matched []*entity.WebhookEvent
	for _, e := range r.events {
		if e.Status != entity.DeadLetter {
			continue
		}
		if filter.Provider != "" && e.Provider != filter.Provider {
			continue
		}
		if filter.EventType != "" && e.EventType != filter.EventType {
			continue
		}
		copied := *e
		matched = append(matched, &copied)
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	offset := (filter.Page - 1) * filter.Limit
	if offset >= total {
		return nil, total, nil
	}
	end := offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *fakeEventRepo) ReclaimStaleProcessing(_ context.Context, olderThan, nextRetryAt time.Time) (int64, error) {
	var count int64
	for _, e := range r.events {
		if e.Status == entity.Processing && e.LastAttemptAt != nil && e.LastAttemptAt.Before(olderThan) {
			e.Status = entity.Failed
			e.NextRetryAt = &nextRetryAt
			msg := "reclaimed stale processing event"
			e.ErrorMessage = &msg
			count++
		}
	}
	return count, nil
}

type fakeInterviewRepo struct {
	interviews map[string]*entity.Interview
	applied    []*entity.InterviewMutation
	lookupErr  error
	applyErr   error
}

func newFakeInterviewRepo() *fakeInterviewRepo {
	return &fakeInterviewRepo{interviews: make(map[string]*entity.Interview)}
}

func interviewKey(provider, meetingID string) string {
	return provider + "/" + meetingID
}

func (r *fakeInterviewRepo) put(interview *entity.Interview) {
	r.interviews[interviewKey(interview.Provider, interview.ProviderMeetingID)] = interview
}

func (r *fakeInterviewRepo) GetByProviderMeetingID(_ context.Context, provider, meetingID string) (*entity.Interview, error) {
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	interview, ok := r.interviews[interviewKey(provider, meetingID)]
	if !ok {
		return nil, fmt.Errorf("fakeInterviewRepo - GetByProviderMeetingID: %w", errs.ErrRecordNotFound)
	}
	copied := *interview
	return &copied, nil
}

func (r *fakeInterviewRepo) ApplyMutation(_ context.Context, id uuid.UUID, mutation *entity.InterviewMutation) error {
	if r.applyErr != nil {
		return r.applyErr
	}

	for _, interview := range r.interviews {
		if interview.ID != id {
			continue
		}
		if mutation.Status != nil {
			interview.Status = *mutation.Status
		}
		if mutation.RecordingStatus != nil {
			interview.RecordingStatus = *mutation.RecordingStatus
		}
		if mutation.RecordingURL != nil {
			interview.RecordingURL = mutation.RecordingURL
		}
		if mutation.RecordingDuration != nil {
			interview.RecordingDuration = mutation.RecordingDuration
		}
		if mutation.RecordingFileSize != nil {
			interview.RecordingFileSize = mutation.RecordingFileSize
		}
		if mutation.RecordingProcessedAt != nil {
			interview.RecordingProcessedAt = mutation.RecordingProcessedAt
		}
		receivedAt := mutation.WebhookLastReceivedAt
		interview.WebhookLastReceivedAt = &receivedAt
		eventType := mutation.WebhookEventType
		interview.WebhookEventType = &eventType

		r.applied = append(r.applied, mutation)
		return nil
	}

	return fmt.Errorf("fakeInterviewRepo - ApplyMutation: %w", errs.ErrRecordNotFound)
}

type fakeTransactor struct{}

func (fakeTransactor) WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error {
	return f(ctx)
}
