package v1

import (
	"github.com/talentwire/interview-webhooks/internal/usecase"
	"github.com/talentwire/interview-webhooks/pkg/logger"
)

type V1 struct {
	webhook usecase.WebhookUseCase
	logger  logger.Interface

	zoomSecretToken string
	internalToken   string
	batchSize       int
}
