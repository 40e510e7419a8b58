package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/talentwire/interview-webhooks/internal/dto"
	"github.com/talentwire/interview-webhooks/internal/entity"
	"github.com/talentwire/interview-webhooks/internal/metrics"
	"github.com/talentwire/interview-webhooks/internal/repo"
	"github.com/talentwire/interview-webhooks/internal/usecase/applier"
	"github.com/talentwire/interview-webhooks/pkg/logger"
	"github.com/talentwire/interview-webhooks/pkg/types/errs"
)

const (
	// Delay applied to a manually requeued dead letter.
	requeueDelay = time.Minute

	defaultListLimit = 20
	maxListLimit     = 100
)

type outcome int

const (
	outcomeSucceeded outcome = iota
	outcomeRescheduled
	outcomeDeadLettered
	outcomeSkipped
)

type WebhookUseCase struct {
	eventRepo     repo.WebhookEventRepo
	interviewRepo repo.InterviewRepo
	registry      *applier.Registry
	transactor    repo.Transactor

	maxAttempts int
	staleAfter  time.Duration

	logger logger.Interface
	now    func() time.Time
}

func New(
	eventRepo repo.WebhookEventRepo,
	interviewRepo repo.InterviewRepo,
	registry *applier.Registry,
	transactor repo.Transactor,
	l logger.Interface,
	maxAttempts int,
	staleAfter time.Duration,
) *WebhookUseCase {
	return &WebhookUseCase{
		eventRepo:     eventRepo,
		interviewRepo: interviewRepo,
		registry:      registry,
		transactor:    transactor,
		maxAttempts:   maxAttempts,
		staleAfter:    staleAfter,
		logger:        l,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// IngestEvent stores one inbound provider callback as a pending row. The
// second return value is false when the delivery is a duplicate of an already
// stored (provider, event_id) pair.
func (uc *WebhookUseCase) IngestEvent(ctx context.Context, inbound dto.InboundEvent) (*entity.WebhookEvent, bool, error) {
	event := &entity.WebhookEvent{
		ID:          uuid.New(),
		Provider:    inbound.Provider,
		EventType:   inbound.EventType,
		EventID:     inbound.EventID,
		Payload:     inbound.Payload,
		Status:      entity.Pending,
		Attempts:    0,
		MaxAttempts: uc.maxAttempts,
		CreatedAt:   uc.now(),
	}
	if inbound.CorrelationKey != "" {
		key := inbound.CorrelationKey
		event.CorrelationKey = &key
	}

	var duplicate bool

	// Dedup check and insert in one transaction so two concurrent deliveries
	// of the same event cannot both pass the existence check.
	err := uc.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := uc.eventRepo.ExistsByProviderEventID(ctx, inbound.Provider, inbound.EventID)
		if err != nil {
			return fmt.Errorf("WebhookUseCase - IngestEvent - uc.eventRepo.ExistsByProviderEventID: %w", err)
		}
		if exists {
			duplicate = true
			return nil
		}

		if err := uc.eventRepo.Create(ctx, event); err != nil {
			return fmt.Errorf("WebhookUseCase - IngestEvent - uc.eventRepo.Create: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("WebhookUseCase - IngestEvent - uc.transactor.WithinTransaction: %w", err)
	}

	if duplicate {
		metrics.EventsDuplicate.WithLabelValues(inbound.Provider).Inc()
		uc.logger.Info("duplicate webhook delivery ignored, provider=%s event_id=%s", inbound.Provider, inbound.EventID)

		return nil, false, nil
	}

	metrics.EventsIngested.WithLabelValues(inbound.Provider).Inc()

	return event, true, nil
}

// ProcessDueEvents runs one retry-processor pass: fetch up to batchSize due
// events and drive each through resolve -> apply -> persist. A failure in one
// event never aborts the rest of the batch.
func (uc *WebhookUseCase) ProcessDueEvents(ctx context.Context, batchSize int) (dto.ProcessSummary, error) {
	var summary dto.ProcessSummary

	events, err := uc.eventRepo.FetchDueRetries(ctx, uc.now(), batchSize)
	if err != nil {
		return summary, fmt.Errorf("WebhookUseCase - ProcessDueEvents - uc.eventRepo.FetchDueRetries: %w", err)
	}

	for _, event := range events {
		summary.Processed++
		metrics.EventsProcessed.Inc()

		switch uc.processEvent(ctx, event) {
		case outcomeSucceeded:
			summary.Succeeded++
			metrics.EventsSucceeded.Inc()
		case outcomeRescheduled:
			summary.Failed++
			metrics.EventsRescheduled.Inc()
		case outcomeDeadLettered:
			summary.DeadLetters++
			metrics.EventsDeadLettered.Inc()
		case outcomeSkipped:
			// Lost the claim race to a concurrent pass; nothing to count.
		}
	}

	return summary, nil
}

func (uc *WebhookUseCase) processEvent(ctx context.Context, event *entity.WebhookEvent) outcome {
	err := uc.eventRepo.MarkProcessing(ctx, event.ID, uc.now())
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			uc.logger.Debug("webhook event already claimed, id=%s", event.ID)
			return outcomeSkipped
		}
		uc.logger.Error(err, "WebhookUseCase - processEvent - uc.eventRepo.MarkProcessing")

		return outcomeSkipped
	}

	handler, known := uc.registry.Lookup(event.Provider, event.EventType)
	if !known {
		if uc.registry.KnownProvider(event.Provider) {
			// Providers grow their event vocabulary over time. An event type
			// we do not handle is a successful no-op, never a dead letter.
			uc.logger.Warn("unknown event type, completing as no-op, provider=%s event_type=%s id=%s",
				event.Provider, event.EventType, event.ID)

			return uc.complete(ctx, event)
		}

		return uc.fail(ctx, event, fmt.Errorf("%w: %s", errs.ErrUnknownProvider, event.Provider))
	}

	if event.CorrelationKey == nil || *event.CorrelationKey == "" {
		// Without a correlation key the event can never be matched to an
		// interview, so retrying is pointless.
		uc.logger.Warn("webhook event has no correlation key, dead-lettering, provider=%s event_type=%s id=%s",
			event.Provider, event.EventType, event.ID)

		return uc.deadLetter(ctx, event, event.Attempts+1, "missing correlation key")
	}

	interview, err := uc.interviewRepo.GetByProviderMeetingID(ctx, event.Provider, *event.CorrelationKey)
	if err != nil {
		if errors.Is(err, errs.ErrRecordNotFound) {
			// Retryable per policy, but unrecoverable without operator help;
			// logged distinctly for triage.
			uc.logger.Warn("no interview matches correlation key, provider=%s key=%s id=%s",
				event.Provider, *event.CorrelationKey, event.ID)
		}

		return uc.fail(ctx, event, err)
	}

	mutation, err := handler(event.Payload, interview, uc.now())
	if err != nil {
		return uc.fail(ctx, event, err)
	}

	if err := uc.interviewRepo.ApplyMutation(ctx, interview.ID, mutation); err != nil {
		return uc.fail(ctx, event, err)
	}

	return uc.complete(ctx, event)
}

func (uc *WebhookUseCase) complete(ctx context.Context, event *entity.WebhookEvent) outcome {
	if err := uc.eventRepo.MarkCompleted(ctx, event.ID, uc.now()); err != nil {
		uc.logger.Error(err, "WebhookUseCase - complete - uc.eventRepo.MarkCompleted")

		return outcomeSkipped
	}

	return outcomeSucceeded
}

func (uc *WebhookUseCase) fail(ctx context.Context, event *entity.WebhookEvent, cause error) outcome {
	attempts := event.Attempts + 1

	if ShouldDeadLetter(attempts, event.MaxAttempts) {
		return uc.deadLetter(ctx, event, attempts, cause.Error())
	}

	nextRetryAt := uc.now().Add(NextRetryDelay(attempts))

	if err := uc.eventRepo.MarkFailed(ctx, event.ID, attempts, nextRetryAt, cause.Error()); err != nil {
		uc.logger.Error(err, "WebhookUseCase - fail - uc.eventRepo.MarkFailed")

		return outcomeSkipped
	}

	uc.logger.Info("webhook event rescheduled, id=%s attempts=%d next_retry_at=%s", event.ID, attempts, nextRetryAt)

	return outcomeRescheduled
}

func (uc *WebhookUseCase) deadLetter(ctx context.Context, event *entity.WebhookEvent, attempts int, message string) outcome {
	if err := uc.eventRepo.MarkDeadLetter(ctx, event.ID, attempts, message); err != nil {
		uc.logger.Error(err, "WebhookUseCase - deadLetter - uc.eventRepo.MarkDeadLetter")

		return outcomeSkipped
	}

	uc.logger.Warn("webhook event dead-lettered, id=%s attempts=%d error=%s", event.ID, attempts, message)

	return outcomeDeadLettered
}

// ListDeadLetters pages through dead-lettered events, newest first.
func (uc *WebhookUseCase) ListDeadLetters(ctx context.Context, filter dto.DeadLetterFilter) ([]*entity.WebhookEvent, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}

	events, total, err := uc.eventRepo.ListDeadLetters(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("WebhookUseCase - ListDeadLetters - uc.eventRepo.ListDeadLetters: %w", err)
	}

	return events, total, nil
}

// RequeueEvent puts a dead-lettered event back on the retry path: status
// failed, attempts reset to zero, error message cleared, next attempt shortly.
func (uc *WebhookUseCase) RequeueEvent(ctx context.Context, id uuid.UUID) (*entity.WebhookEvent, error) {
	event, err := uc.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("WebhookUseCase - RequeueEvent - uc.eventRepo.GetByID: %w", err)
	}

	if event.Status != entity.DeadLetter {
		return nil, fmt.Errorf("WebhookUseCase - RequeueEvent: %w", errs.ErrNotDeadLetter)
	}

	nextRetryAt := uc.now().Add(requeueDelay)

	if err := uc.eventRepo.Requeue(ctx, id, nextRetryAt); err != nil {
		return nil, fmt.Errorf("WebhookUseCase - RequeueEvent - uc.eventRepo.Requeue: %w", err)
	}

	metrics.EventsRequeued.Inc()
	uc.logger.Info("dead letter requeued, id=%s next_retry_at=%s", id, nextRetryAt)

	event.Status = entity.Failed
	event.Attempts = 0
	event.NextRetryAt = &nextRetryAt
	event.ErrorMessage = nil

	return event, nil
}

// ReclaimStaleProcessing resets rows stuck in processing longer than the
// configured threshold back to failed. Rows get stuck when a pass crashes
// between marking processing and the next state update.
func (uc *WebhookUseCase) ReclaimStaleProcessing(ctx context.Context) (int64, error) {
	olderThan := uc.now().Add(-uc.staleAfter)

	count, err := uc.eventRepo.ReclaimStaleProcessing(ctx, olderThan, uc.now())
	if err != nil {
		return 0, fmt.Errorf("WebhookUseCase - ReclaimStaleProcessing - uc.eventRepo.ReclaimStaleProcessing: %w", err)
	}

	if count > 0 {
		metrics.EventsReclaimed.Add(float64(count))
		uc.logger.Warn("reclaimed stale processing events, count=%d", count)
	}

	return count, nil
}
