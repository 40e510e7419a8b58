package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/talentwire/interview-webhooks/config"
	"github.com/talentwire/interview-webhooks/internal/controller/restapi"
	retryworker "github.com/talentwire/interview-webhooks/internal/controller/worker/retry"
	"github.com/talentwire/interview-webhooks/internal/repo/persistent"
	"github.com/talentwire/interview-webhooks/internal/usecase/applier"
	"github.com/talentwire/interview-webhooks/internal/usecase/webhook"
	"github.com/talentwire/interview-webhooks/pkg/httpserver"
	"github.com/talentwire/interview-webhooks/pkg/logger"
	"github.com/talentwire/interview-webhooks/pkg/postgres"
)

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Repository

	// postgres
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - postgres.New: %w", err))
	}
	defer pg.Close()

	// Use-Case

	// webhook pipeline use-case
	webhookUseCase := webhook.New(
		persistent.NewWebhookEventRepo(pg),
		persistent.NewInterviewRepo(pg),
		applier.NewRegistry(),
		pg,
		l,
		cfg.Webhook.MaxAttempts,
		cfg.RetryWorker.StaleAfter,
	)

	// Retry Worker
	retryWorker := retryworker.New(
		webhookUseCase,
		l,
		cfg.RetryWorker.PollInterval,
		cfg.RetryWorker.ReclaimInterval,
		cfg.RetryWorker.ProcessBatchTimeout,
		cfg.RetryWorker.BatchSize,
	)

	// HTTP Server
	httpServer := httpserver.New(l, httpserver.Port(cfg.HTTP.Port), httpserver.Prefork(cfg.HTTP.UsePreforkMode))
	restapi.NewRouter(httpServer.App, cfg, webhookUseCase, l)

	// Start Components
	if cfg.RetryWorker.Enabled {
		err = retryWorker.Start(ctx)
		if err != nil {
			l.Fatal(fmt.Errorf("app - Run - retryWorker.Start: %w", err))
		}
	}
	httpServer.Start()

	// Waiting Signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: %s", s.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}

	rwShutdownCtx, rwShutdownCancel := context.WithTimeout(ctx, cfg.RetryWorker.ShutdownTimeout)
	defer rwShutdownCancel()
	err = retryWorker.Shutdown(rwShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - retryWorker.Shutdown: %w", err))
	}
}
