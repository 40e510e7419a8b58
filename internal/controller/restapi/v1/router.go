package v1

import (
	"github.com/gofiber/fiber/v2"
	"github.com/talentwire/interview-webhooks/config"
	"github.com/talentwire/interview-webhooks/internal/usecase"
	"github.com/talentwire/interview-webhooks/pkg/logger"
)

func NewWebhookRoutes(apiV1Group fiber.Router, cfg *config.Config, webhook usecase.WebhookUseCase, l logger.Interface) {
	r := &V1{
		webhook:         webhook,
		logger:          l,
		zoomSecretToken: cfg.Webhook.ZoomSecretToken,
		internalToken:   cfg.Webhook.InternalToken,
		batchSize:       cfg.RetryWorker.BatchSize,
	}

	{
		// Ingestion
		apiV1Group.Post("/webhooks/zoom", r.zoomWebhook)

		// Scheduler trigger
		apiV1Group.Post("/webhooks/process", r.processEvents)

		// Dead-letter administration
		apiV1Group.Get("/dead-letters", r.listDeadLetters)
		apiV1Group.Post("/dead-letters/:id/requeue", r.requeueDeadLetter)
	}
}
