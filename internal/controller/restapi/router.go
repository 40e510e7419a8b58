package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/talentwire/interview-webhooks/config"
	v1 "github.com/talentwire/interview-webhooks/internal/controller/restapi/v1"
	"github.com/talentwire/interview-webhooks/internal/usecase"
	"github.com/talentwire/interview-webhooks/pkg/logger"
)

// @title Interview webhook pipeline
// @version 1.0.0
// @host localhost:8080
// @BasePath /v1
func NewRouter(app *fiber.App, cfg *config.Config, webhook usecase.WebhookUseCase, l logger.Interface) {
	// Swagger
	if cfg.Swagger.Enabled {
		app.Get("/swagger/*", swagger.HandlerDefault)
	}

	// Prometheus
	if cfg.Metrics.Enabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{"status": "ok"})
	})

	// Routers
	apiV1Group := app.Group("/v1")
	{
		v1.NewWebhookRoutes(apiV1Group, cfg, webhook, l)
	}
}
