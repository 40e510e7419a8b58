package retry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/talentwire/interview-webhooks/internal/usecase"
	"github.com/talentwire/interview-webhooks/pkg/logger"
)

// Worker drives the retry processor from inside the process. Deployments that
// prefer an external cron can disable it and hit the HTTP trigger instead;
// both paths share the same use-case pass.
type Worker struct {
	webhook usecase.WebhookUseCase
	logger  logger.Interface

	pollInterval        time.Duration
	reclaimInterval     time.Duration
	processBatchTimeout time.Duration
	batchSize           int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started atomic.Bool
}

func New(
	webhook usecase.WebhookUseCase,
	l logger.Interface,
	pollInterval time.Duration,
	reclaimInterval time.Duration,
	processBatchTimeout time.Duration,
	batchSize int,
) *Worker {
	return &Worker{
		webhook:             webhook,
		logger:              l,
		pollInterval:        pollInterval,
		reclaimInterval:     reclaimInterval,
		processBatchTimeout: processBatchTimeout,
		batchSize:           batchSize,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return fmt.Errorf("retry Worker - Start - worker already started")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)

	// 1. retry-processor pass over due events
	w.worker(w.pollInterval, func() {
		batchCtx, batchCancel := context.WithTimeout(w.ctx, w.processBatchTimeout)
		defer batchCancel()

		summary, err := w.webhook.ProcessDueEvents(batchCtx, w.batchSize)
		if err != nil {
			w.logger.Error(err, "retry Worker - Start - worker - w.webhook.ProcessDueEvents")

			return
		}

		if summary.Processed > 0 {
			w.logger.Info("retry pass done, processed=%d succeeded=%d failed=%d dead_letters=%d",
				summary.Processed, summary.Succeeded, summary.Failed, summary.DeadLetters)
		}
	})

	// 2. sweep for rows stranded in processing by a crashed pass
	w.worker(w.reclaimInterval, func() {
		_, err := w.webhook.ReclaimStaleProcessing(w.ctx)
		if err != nil {
			w.logger.Error(err, "retry Worker - Start - worker - w.webhook.ReclaimStaleProcessing")
		}
	})

	return nil
}

func (w *Worker) worker(interval time.Duration, task func()) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-w.ctx.Done():
				return
			case <-ticker.C:
				task()
			}
		}
	}()
}

func (w *Worker) Shutdown(ctx context.Context) error {
	if !w.started.Load() {
		return nil
	}

	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})

	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return nil
	}
}
