package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/onglesrivieres/salon360-sub000/internal/app"
	"github.com/onglesrivieres/salon360-sub000/internal/catalog"
	"github.com/onglesrivieres/salon360-sub000/internal/importer"
	jobmetrics "github.com/onglesrivieres/salon360-sub000/internal/jobs"
	"github.com/onglesrivieres/salon360-sub000/internal/observability"
	"github.com/onglesrivieres/salon360-sub000/internal/platform/cache"
	"github.com/onglesrivieres/salon360-sub000/internal/platform/db"
	"github.com/onglesrivieres/salon360-sub000/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: int32(cfg.WorkerConcurrency) + 2})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	statuses := importer.NewStatusStore(redisClient, cfg.ImportStatusTTL)
	service := importer.NewService(catalog.NewRepository(pool), importer.ServiceConfig{
		MaxRows: cfg.ImportMaxRows,
	}, importer.Notifiers{importer.LogNotifier{Logger: logger}, statuses}, metrics, logger)
	importJob := importer.NewJob(service, statuses, jobmetrics.NewMetrics(metrics.Registerer()), logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cache.QueueOpt(cfg.RedisAddr),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInventoryImport, Handler: importJob.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
