package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type (
	Config struct {
		HTTP        HTTP
		Log         Log
		PG          PG
		Webhook     Webhook
		RetryWorker RetryWorker
		Metrics     Metrics
		Swagger     Swagger
	}

	HTTP struct {
		Port           string `env:"HTTP_PORT,required"`
		UsePreforkMode bool   `env:"HTTP_USE_PREFORK_MODE" envDefault:"false"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL,required"`
	}

	PG struct {
		PoolMax int    `env:"PG_POOL_MAX,required"`
		URL     string `env:"PG_URL,required"`
	}

	Webhook struct {
		ZoomSecretToken string `env:"ZOOM_WEBHOOK_SECRET_TOKEN,required"`
		InternalToken   string `env:"WEBHOOK_INTERNAL_TOKEN,required"`
		MaxAttempts     int    `env:"WEBHOOK_MAX_ATTEMPTS" envDefault:"3"`
	}

	RetryWorker struct {
		Enabled             bool          `env:"RETRY_WORKER_ENABLED" envDefault:"true"`
		PollInterval        time.Duration `env:"RETRY_WORKER_POLL_INTERVAL" envDefault:"30s"`
		ReclaimInterval     time.Duration `env:"RETRY_WORKER_RECLAIM_INTERVAL" envDefault:"5m"`
		StaleAfter          time.Duration `env:"RETRY_WORKER_STALE_AFTER" envDefault:"15m"`
		ProcessBatchTimeout time.Duration `env:"RETRY_WORKER_PROCESS_BATCH_TIMEOUT" envDefault:"30s"`
		ShutdownTimeout     time.Duration `env:"RETRY_WORKER_SHUTDOWN_TIMEOUT" envDefault:"5s"`
		BatchSize           int           `env:"RETRY_WORKER_BATCH_SIZE" envDefault:"10"`
	}

	Metrics struct {
		Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
	}

	Swagger struct {
		Enabled bool `env:"SWAGGER_ENABLED" envDefault:"false"`
	}
)

func New() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	return cfg, nil
}
