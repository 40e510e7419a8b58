package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/talentwire/interview-webhooks/internal/dto"
	"github.com/talentwire/interview-webhooks/internal/entity"
)

type (
	WebhookUseCase interface {
		IngestEvent(ctx context.Context, inbound dto.InboundEvent) (*entity.WebhookEvent, bool, error)
		ProcessDueEvents(ctx context.Context, batchSize int) (dto.ProcessSummary, error)
		ListDeadLetters(ctx context.Context, filter dto.DeadLetterFilter) ([]*entity.WebhookEvent, int, error)
		RequeueEvent(ctx context.Context, id uuid.UUID) (*entity.WebhookEvent, error)
		ReclaimStaleProcessing(ctx context.Context) (int64, error)
	}
)
