package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/talentwire/interview-webhooks/internal/dto"
	"github.com/talentwire/interview-webhooks/internal/entity"
)

type (
	// WebhookEventRepo is the durable event store. Every mark operation is a
	// single atomic update keyed by event id with a status guard in the WHERE
	// clause, so a concurrent pass racing on the same row loses cleanly.
	WebhookEventRepo interface {
		Create(ctx context.Context, event *entity.WebhookEvent) error
		ExistsByProviderEventID(ctx context.Context, provider, eventID string) (bool, error)
		GetByID(ctx context.Context, id uuid.UUID) (*entity.WebhookEvent, error)
		FetchDueRetries(ctx context.Context, now time.Time, limit int) ([]*entity.WebhookEvent, error)
		MarkProcessing(ctx context.Context, id uuid.UUID, at time.Time) error
		MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, attempts int, nextRetryAt time.Time, errorMessage string) error
		MarkDeadLetter(ctx context.Context, id uuid.UUID, attempts int, errorMessage string) error
		Requeue(ctx context.Context, id uuid.UUID, nextRetryAt time.Time) error
		ListDeadLetters(ctx context.Context, filter dto.DeadLetterFilter) ([]*entity.WebhookEvent, int, error)
		ReclaimStaleProcessing(ctx context.Context, olderThan, nextRetryAt time.Time) (int64, error)
	}

	// InterviewRepo resolves provider correlation keys to interview rows and
	// persists applier mutations. Lookup is pure; ApplyMutation writes only the
	// pipeline-owned columns.
	InterviewRepo interface {
		GetByProviderMeetingID(ctx context.Context, provider, meetingID string) (*entity.Interview, error)
		ApplyMutation(ctx context.Context, id uuid.UUID, mutation *entity.InterviewMutation) error
	}

	// Transactor runs a function inside a single database transaction.
	Transactor interface {
		WithinTransaction(ctx context.Context, f func(ctx context.Context) error) error
	}
)
