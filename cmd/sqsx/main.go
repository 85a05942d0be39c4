// Command sqsx drains a queue, logging every message it receives.
//
// The backend is chosen with SQSX_BACKEND:
//
//	sqs     Amazon SQS or a compatible service (SQS_* and AWS_* variables)
//	redis   Redis-backed emulation (REDIS_URL)
//	memory  in-process queue, useful to smoke test the configuration
//
// Consumer tunables are read from the SQSX_* variables of queue.Config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/dmitrymomot/sqsx/core/config"
	"github.com/dmitrymomot/sqsx/core/health"
	"github.com/dmitrymomot/sqsx/core/logger"
	"github.com/dmitrymomot/sqsx/core/queue"
	redisq "github.com/dmitrymomot/sqsx/integration/database/redis"
	"github.com/dmitrymomot/sqsx/integration/sqs"
)

type appConfig struct {
	Backend  string `env:"SQSX_BACKEND" envDefault:"sqs"`
	QueueURL string `env:"SQS_QUEUE_URL,required"`
	LogLevel string `env:"SQSX_LOG_LEVEL" envDefault:"info"`
	Env      string `env:"SQSX_ENV" envDefault:"development"`

	// HealthAddr enables the liveness and readiness probes when set, e.g. ":8081".
	HealthAddr string `env:"SQSX_HEALTH_ADDR"`
}

func main() {
	ctx := context.Background()

	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	log := newLogger(cfg)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("consumer stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	var queueCfg queue.Config
	if err := config.Load(&queueCfg); err != nil {
		return fmt.Errorf("load queue config: %w", err)
	}

	svc, checks, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	q, err := queue.NewRawQueueFromConfig(queueCfg, svc, cfg.QueueURL,
		queue.RawHandlerFunc(func(ctx context.Context, queueURL string, msg queue.Message) error {
			attrs := []slog.Attr{
				logger.QueueURL(queueURL),
				logger.MessageID(msg.ID),
				logger.RetryCount(msg.RetryCount()),
				slog.Int("body_size", len(msg.Body)),
			}
			if name, ok := msg.TaskName(); ok {
				attrs = append(attrs, logger.TaskName(name))
			}
			log.LogAttrs(ctx, slog.LevelInfo, "message drained", attrs...)
			return nil
		}),
		queue.WithLogger(log.With(logger.Component("queue"))),
	)
	if err != nil {
		return err
	}

	if cfg.HealthAddr != "" {
		srv := newHealthServer(cfg.HealthAddr, log, append(checks, q.Healthcheck)...)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("health server failed", logger.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	return q.Consume(ctx, queueCfg.ConsumeOptions()...)
}

func newHealthServer(addr string, log *slog.Logger, checks ...health.Check) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", health.Liveness)
	mux.Handle("GET /health/ready", health.Readiness(log, checks...))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// newService builds the queue service of the configured backend along with
// the readiness checks of its dependencies.
func newService(ctx context.Context, cfg appConfig) (queue.Service, []health.Check, error) {
	switch cfg.Backend {
	case "sqs":
		var sqsCfg sqs.Config
		if err := config.Load(&sqsCfg); err != nil {
			return nil, nil, fmt.Errorf("load sqs config: %w", err)
		}
		svc, err := sqs.New(ctx, sqsCfg)
		if err != nil {
			return nil, nil, err
		}
		check := sqs.Healthcheck(svc, cfg.QueueURL)
		if err := check(ctx); err != nil {
			return nil, nil, err
		}
		return svc, []health.Check{check}, nil

	case "redis":
		var redisCfg redisq.Config
		if err := config.Load(&redisCfg); err != nil {
			return nil, nil, fmt.Errorf("load redis config: %w", err)
		}
		client, err := redisq.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		svc, err := redisq.NewQueueService(client)
		if err != nil {
			return nil, nil, err
		}
		return svc, []health.Check{redisq.Healthcheck(client)}, nil

	case "memory":
		return queue.NewMemoryService(queue.WithAutoCreateQueues()), nil, nil
	}

	return nil, nil, errors.New("unknown backend: " + cfg.Backend)
}

func newLogger(cfg appConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := []logger.Option{logger.WithDevelopment("sqsx")}
	if cfg.Env == "production" {
		opts = []logger.Option{logger.WithProduction("sqsx")}
	}
	return logger.New(append(opts, logger.WithLevel(level))...)
}
