// Package main 异步任务执行器入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"adjacent-api/internal/config"
	"adjacent-api/internal/infrastructure/eino/callback"
	"adjacent-api/internal/infrastructure/messaging"
	"adjacent-api/internal/wire"
	"adjacent-api/pkg/logger"
	"adjacent-api/pkg/tracer"
)

// 死信流监控周期
const monitorInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "job-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Init(ctx, tracer.Config{
		ServiceName:    "job-worker",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Env,
		Endpoint:       cfg.Observability.Tracing.Endpoint,
		SampleRate:     cfg.Observability.Tracing.SampleRate,
		Enabled:        cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	callback.Init()

	worker, cleanup, err := wire.InitializeWorker(cfg)
	if err != nil {
		return fmt.Errorf("initialize worker: %w", err)
	}
	defer cleanup()

	worker.Consumer.RegisterHandler(messaging.TypePipelineRun, func(ctx context.Context, msg *messaging.Message) error {
		var payload messaging.PipelineJobMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return err
		}
		if payload.UserID == "" {
			payload.UserID = msg.UserID
		}
		if rid := msg.GetMetadata("request_id"); rid != "" {
			ctx = logger.WithContext(ctx, logger.RequestIDKey, rid)
		}
		return worker.Service.ExecuteJob(ctx, &payload)
	})

	if err := worker.Consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	go worker.Consumer.Monitor(ctx, monitorInterval, 0)

	log := logger.FromContext(ctx)
	log.Info("job-worker started", "stream", messaging.StreamPipelineRun, "llm_mock", cfg.LLM.Mock)

	<-ctx.Done()

	log.Info("job-worker shutting down")
	worker.Consumer.Stop()
	return nil
}
