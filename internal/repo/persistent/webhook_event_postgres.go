package persistent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/talentwire/interview-webhooks/internal/dto"
	"github.com/talentwire/interview-webhooks/internal/entity"
	"github.com/talentwire/interview-webhooks/pkg/postgres"
	"github.com/talentwire/interview-webhooks/pkg/types/errs"
)

const (
	// Table
	eventsTable = "webhook_events"

	// Columns
	eventIDColumn             = "id"
	eventProviderColumn       = "provider"
	eventTypeColumn           = "event_type"
	eventProviderIDColumn     = "event_id"
	eventCorrelationKeyColumn = "correlation_key"
	eventPayloadColumn        = "payload"
	eventStatusColumn         = "status"
	eventAttemptsColumn       = "attempts"
	eventMaxAttemptsColumn    = "max_attempts"
	eventNextRetryAtColumn    = "next_retry_at"
	eventLastAttemptAtColumn  = "last_attempt_at"
	eventProcessedAtColumn    = "processed_at"
	eventErrorMessageColumn   = "error_message"
	eventCreatedAtColumn      = "created_at"
)

const reclaimedErrorMessage = "reclaimed stale processing event"

var eventColumns = []string{
	eventIDColumn,
	eventProviderColumn,
	eventTypeColumn,
	eventProviderIDColumn,
	eventCorrelationKeyColumn,
	eventPayloadColumn,
	eventStatusColumn,
	eventAttemptsColumn,
	eventMaxAttemptsColumn,
	eventNextRetryAtColumn,
	eventLastAttemptAtColumn,
	eventProcessedAtColumn,
	eventErrorMessageColumn,
	eventCreatedAtColumn,
}

type WebhookEventRepo struct {
	*postgres.Postgres
}

func NewWebhookEventRepo(pg *postgres.Postgres) *WebhookEventRepo {
	return &WebhookEventRepo{pg}
}

func (r *WebhookEventRepo) Create(ctx context.Context, event *entity.WebhookEvent) error {
	sql, args, err := r.Builder.
		Insert(eventsTable).
		Columns(
			eventIDColumn,
			eventProviderColumn,
			eventTypeColumn,
			eventProviderIDColumn,
			eventCorrelationKeyColumn,
			eventPayloadColumn,
			eventStatusColumn,
			eventAttemptsColumn,
			eventMaxAttemptsColumn,
			eventCreatedAtColumn,
		).
		Values(
			event.ID,
			event.Provider,
			event.EventType,
			event.EventID,
			event.CorrelationKey,
			event.Payload,
			event.Status,
			event.Attempts,
			event.MaxAttempts,
			event.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - Create - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	_, err = executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - Create - executor.Exec: %w", err)
	}

	return nil
}

func (r *WebhookEventRepo) ExistsByProviderEventID(ctx context.Context, provider, eventID string) (bool, error) {
	sql, args, err := r.Builder.
		Select("1").
		From(eventsTable).
		Where(squirrel.And{
			squirrel.Eq{eventProviderColumn: provider},
			squirrel.Eq{eventProviderIDColumn: eventID},
		}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("WebhookEventRepo - ExistsByProviderEventID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var one int
	err = executor.QueryRow(ctx, sql, args...).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("WebhookEventRepo - ExistsByProviderEventID - executor.QueryRow: %w", err)
	}

	return true, nil
}

func (r *WebhookEventRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.WebhookEvent, error) {
	sql, args, err := r.Builder.
		Select(eventColumns...).
		From(eventsTable).
		Where(squirrel.Eq{eventIDColumn: id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("WebhookEventRepo - GetByID - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var event entity.WebhookEvent
	err = executor.QueryRow(ctx, sql, args...).Scan(scanTargets(&event)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("WebhookEventRepo - GetByID: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("WebhookEventRepo - GetByID - executor.QueryRow: %w", err)
	}

	return &event, nil
}

// FetchDueRetries returns events ready for an attempt: freshly ingested pending
// rows and failed rows whose backoff window has elapsed, both below their
// attempt ceiling. Creation order keeps the scan stable; no priority scheme.
func (r *WebhookEventRepo) FetchDueRetries(ctx context.Context, now time.Time, limit int) ([]*entity.WebhookEvent, error) {
	sql, args, err := r.Builder.
		Select(eventColumns...).
		From(eventsTable).
		Where(squirrel.And{
			squirrel.Or{
				squirrel.Eq{eventStatusColumn: entity.Pending},
				squirrel.And{
					squirrel.Eq{eventStatusColumn: entity.Failed},
					squirrel.LtOrEq{eventNextRetryAtColumn: now},
				},
			},
			squirrel.Expr(eventAttemptsColumn + " < " + eventMaxAttemptsColumn),
		}).
		OrderBy(eventCreatedAtColumn + " ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("WebhookEventRepo - FetchDueRetries - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("WebhookEventRepo - FetchDueRetries - executor.Query: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.WebhookEvent, 0, limit)
	for rows.Next() {
		var event entity.WebhookEvent
		err = rows.Scan(scanTargets(&event)...)
		if err != nil {
			return nil, fmt.Errorf("WebhookEventRepo - FetchDueRetries - rows.Scan: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("WebhookEventRepo - FetchDueRetries - rows.Err: %w", err)
	}

	return events, nil
}

// MarkProcessing claims an event for one attempt. The status guard makes the
// claim atomic: a second pass racing on the same row affects zero rows and
// gets ErrRecordNotFound.
func (r *WebhookEventRepo) MarkProcessing(ctx context.Context, id uuid.UUID, at time.Time) error {
	sql, args, err := r.Builder.
		Update(eventsTable).
		Set(eventStatusColumn, entity.Processing).
		Set(eventLastAttemptAtColumn, at).
		Set(eventNextRetryAtColumn, nil).
		Where(squirrel.And{
			squirrel.Eq{eventIDColumn: id},
			squirrel.Eq{eventStatusColumn: []entity.Status{entity.Pending, entity.Failed}},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - MarkProcessing - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - MarkProcessing - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("WebhookEventRepo - MarkProcessing: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *WebhookEventRepo) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	sql, args, err := r.Builder.
		Update(eventsTable).
		Set(eventStatusColumn, entity.Completed).
		Set(eventProcessedAtColumn, at).
		Where(squirrel.And{
			squirrel.Eq{eventIDColumn: id},
			squirrel.Eq{eventStatusColumn: entity.Processing},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - MarkCompleted - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - MarkCompleted - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("WebhookEventRepo - MarkCompleted: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *WebhookEventRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, nextRetryAt time.Time, errorMessage string) error {
	sql, args, err := r.Builder.
		Update(eventsTable).
		Set(eventStatusColumn, entity.Failed).
		Set(eventAttemptsColumn, attempts).
		Set(eventNextRetryAtColumn, nextRetryAt).
		Set(eventErrorMessageColumn, errorMessage).
		Where(squirrel.And{
			squirrel.Eq{eventIDColumn: id},
			squirrel.Eq{eventStatusColumn: entity.Processing},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - MarkFailed - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - MarkFailed - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("WebhookEventRepo - MarkFailed: %w", errs.ErrRecordNotFound)
	}

	return nil
}

func (r *WebhookEventRepo) MarkDeadLetter(ctx context.Context, id uuid.UUID, attempts int, errorMessage string) error {
	sql, args, err := r.Builder.
		Update(eventsTable).
		Set(eventStatusColumn, entity.DeadLetter).
		Set(eventAttemptsColumn, attempts).
		Set(eventNextRetryAtColumn, nil).
		Set(eventErrorMessageColumn, errorMessage).
		Where(squirrel.And{
			squirrel.Eq{eventIDColumn: id},
			squirrel.Eq{eventStatusColumn: entity.Processing},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - MarkDeadLetter - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - MarkDeadLetter - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("WebhookEventRepo - MarkDeadLetter: %w", errs.ErrRecordNotFound)
	}

	return nil
}

// Requeue puts a dead-lettered event back on the retry path with a fresh
// attempt budget. Only valid from dead_letter; anything else affects zero rows.
func (r *WebhookEventRepo) Requeue(ctx context.Context, id uuid.UUID, nextRetryAt time.Time) error {
	sql, args, err := r.Builder.
		Update(eventsTable).
		Set(eventStatusColumn, entity.Failed).
		Set(eventAttemptsColumn, 0).
		Set(eventNextRetryAtColumn, nextRetryAt).
		Set(eventErrorMessageColumn, nil).
		Where(squirrel.And{
			squirrel.Eq{eventIDColumn: id},
			squirrel.Eq{eventStatusColumn: entity.DeadLetter},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - Requeue - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("WebhookEventRepo - Requeue - executor.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("WebhookEventRepo - Requeue: %w", errs.ErrNotDeadLetter)
	}

	return nil
}

func (r *WebhookEventRepo) ListDeadLetters(ctx context.Context, filter dto.DeadLetterFilter) ([]*entity.WebhookEvent, int, error) {
	where := squirrel.And{squirrel.Eq{eventStatusColumn: entity.DeadLetter}}
	if filter.Provider != "" {
		where = append(where, squirrel.Eq{eventProviderColumn: filter.Provider})
	}
	if filter.EventType != "" {
		where = append(where, squirrel.Eq{eventTypeColumn: filter.EventType})
	}

	countSQL, countArgs, err := r.Builder.
		Select("COUNT(*)").
		From(eventsTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("WebhookEventRepo - ListDeadLetters - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	var total int
	err = executor.QueryRow(ctx, countSQL, countArgs...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("WebhookEventRepo - ListDeadLetters - executor.QueryRow: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit

	sql, args, err := r.Builder.
		Select(eventColumns...).
		From(eventsTable).
		Where(where).
		OrderBy(eventCreatedAtColumn + " DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("WebhookEventRepo - ListDeadLetters - r.Builder.ToSql: %w", err)
	}

	rows, err := executor.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("WebhookEventRepo - ListDeadLetters - executor.Query: %w", err)
	}
	defer rows.Close()

	events := make([]*entity.WebhookEvent, 0, filter.Limit)
	for rows.Next() {
		var event entity.WebhookEvent
		err = rows.Scan(scanTargets(&event)...)
		if err != nil {
			return nil, 0, fmt.Errorf("WebhookEventRepo - ListDeadLetters - rows.Scan: %w", err)
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("WebhookEventRepo - ListDeadLetters - rows.Err: %w", err)
	}

	return events, total, nil
}

// ReclaimStaleProcessing moves rows stranded in processing by a crashed pass
// back to failed so the normal retry loop picks them up again.
func (r *WebhookEventRepo) ReclaimStaleProcessing(ctx context.Context, olderThan, nextRetryAt time.Time) (int64, error) {
	sql, args, err := r.Builder.
		Update(eventsTable).
		Set(eventStatusColumn, entity.Failed).
		Set(eventNextRetryAtColumn, nextRetryAt).
		Set(eventErrorMessageColumn, reclaimedErrorMessage).
		Where(squirrel.And{
			squirrel.Eq{eventStatusColumn: entity.Processing},
			squirrel.Lt{eventLastAttemptAtColumn: olderThan},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("WebhookEventRepo - ReclaimStaleProcessing - r.Builder.ToSql: %w", err)
	}

	executor := r.GetExecutor(ctx)

	tag, err := executor.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("WebhookEventRepo - ReclaimStaleProcessing - executor.Exec: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanTargets(event *entity.WebhookEvent) []any {
	return []any{
		&event.ID,
		&event.Provider,
		&event.EventType,
		&event.EventID,
		&event.CorrelationKey,
		&event.Payload,
		&event.Status,
		&event.Attempts,
		&event.MaxAttempts,
		&event.NextRetryAt,
		&event.LastAttemptAt,
		&event.ProcessedAt,
		&event.ErrorMessage,
		&event.CreatedAt,
	}
}
