package persistent

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/talentwire/interview-webhooks/internal/entity"
	"github.com/talentwire/interview-webhooks/pkg/postgres"
	"github.com/talentwire/interview-webhooks/pkg/types/errs"
)

const (
	// Table
	interviewsTable = "interviews"

	// Columns
	interviewIDColumn                    = "id"
	interviewProviderColumn              = "provider"
	interviewProviderMeetingIDColumn     = "provider_meeting_id"
	interviewStatusColumn                = "status"
	interviewRecordingStatusColumn       = "recording_status"
	interviewRecordingURLColumn          = "recording_url"
	interviewRecordingDurationColumn     = "recording_duration"
	interviewRecordingFileSizeColumn     = "recording_file_size"
	interviewRecordingProcessedAtColumn  = "recording_processed_at"
	interviewWebhookLastReceivedAtColumn = "webhook_last_received_at"
	interviewWebhookEventTypeColumn      = "webhook_event_type"
)

type InterviewRepo struct {
	*postgres.Postgres
}

func NewInterviewRepo(pg *postgres.Postgres) *InterviewRepo {
	return &InterviewRepo{pg}
}

func (r *InterviewRepo) GetByProviderMeetingID(ctx context.Context, provider, meetingID string) (*entity.Interview, error) {
	sql, args, err := r.Builder.
		Select(
			interviewIDColumn,
			interviewProviderColumn,
			interviewProviderMeetingIDColumn,
			interviewStatusColumn,
			interviewRecordingStatusColumn,
			interviewRecordingURLColumn,
			interviewRecordingDurationColumn,
			interviewRecordingFileSizeColumn,
			interviewRecordingProcessedAtColumn,
			interviewWebhookLastReceivedAtColumn,
			interviewWebhookEventTypeColumn,
		).
		From(interviewsTable).
		Where(squirrel.And{
			squirrel.Eq{interviewProviderColumn: provider},
			squirrel.Eq{interviewProviderMeetingIDColumn: meetingID},
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("InterviewRepo - GetByProviderMeetingID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var interview entity.Interview
	err = executor.QueryRow(ctx, sql, args...).Scan(
		&interview.ID,
		&interview.Provider,
		&interview.ProviderMeetingID,
		&interview.Status,
		&interview.RecordingStatus,
		&interview.RecordingURL,
		&interview.RecordingDuration,
		&interview.RecordingFileSize,
		&interview.RecordingProcessedAt,
		&interview.WebhookLastReceivedAt,
		&interview.WebhookEventType,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("InterviewRepo - GetByProviderMeetingID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("InterviewRepo - GetByProviderMeetingID - executor.QueryRow: %w", err)
	}

	return &interview, nil
}

// ApplyMutation writes only the non-nil fields of the mutation plus the two
// observability columns, which are written on every applied event.
func (r *InterviewRepo) ApplyMutation(ctx context.Context, id uuid.UUID, mutation *entity.InterviewMutation) error {
	q := r.Builder.
		Update(interviewsTable).
		Set(interviewWebhookLastReceivedAtColumn, mutation.WebhookLastReceivedAt).
		Set(interviewWebhookEventTypeColumn, mutation.WebhookEventType)

	if mutation.Status != nil {
		q = q.Set(interviewStatusColumn, *mutation.Status)
	}
	if mutation.RecordingStatus != nil {
		q = q.Set(interviewRecordingStatusColumn, *mutation.RecordingStatus)
	}
	if mutation.RecordingURL != nil {
		q = q.Set(interviewRecordingURLColumn, *mutation.RecordingURL)
	}
	if mutation.RecordingDuration != nil {
		q = q.Set(interviewRecordingDurationColumn, *mutation.RecordingDuration)
	}
	if mutation.RecordingFileSize != nil {
		q = q.Set(interviewRecordingFileSizeColumn, *mutation.RecordingFileSize)
	}
	if mutation.RecordingProcessedAt != nil {
		q = q.Set(interviewRecordingProcessedAtColumn, *mutation.RecordingProcessedAt)
	}

	sql, args, err := q.Where(squirrel.Eq{interviewIDColumn: id}).ToSql()
	if err != nil {
		return fmt.Errorf("InterviewRepo - ApplyMutation - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("InterviewRepo - ApplyMutation - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("InterviewRepo - ApplyMutation: %w", errs.ErrRecordNotFound)
	}

	return nil
}
