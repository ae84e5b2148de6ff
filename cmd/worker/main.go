package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Glebrito/Analisediaria/internal/app"
	"github.com/Glebrito/Analisediaria/internal/observability"
	"github.com/Glebrito/Analisediaria/internal/platform/cache"
	"github.com/Glebrito/Analisediaria/internal/platform/db"
	"github.com/Glebrito/Analisediaria/jobs"
	"github.com/Glebrito/Analisediaria/report"
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
	metrics := observability.NewMetrics()

	var pool *pgxpool.Pool
	if cfg.SourceDriver == app.DriverPostgres {
		pool, err = db.New(ctx, cfg.PGDSN, 0)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
	}

	redisClient := cache.Optional(ctx, cfg.RedisAddr, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	deps := app.StackDeps{Logger: logger, Redis: redisClient, Recorder: metrics}
	if pool != nil {
		deps.Postgres = pool
	}
	stack, err := app.BuildStack(cfg, deps)
	if err != nil {
		logger.Error("build report stack", slog.Any("error", err))
		os.Exit(1)
	}

	pdfClient := report.NewClient(cfg.GotenbergURL, 0)
	renderer, err := report.NewRenderer(pdfClient)
	if err != nil {
		logger.Error("init renderer", slog.Any("error", err))
		os.Exit(1)
	}
	reportJob := jobs.NewReportJob(jobs.ReportJobConfig{
		Reports:    stack.Service,
		Renderer:   renderer,
		StorageDir: cfg.ReportStorageDir,
		Logger:     logger,
		Metrics:    metrics.Jobs(),
	})
	warmupJob := jobs.NewTablesWarmupJob(stack.Cache, logger, metrics.Jobs())

	warmupTask, err := jobs.NewTablesWarmupTask("schedule")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cache.QueueOpt(cfg.RedisAddr),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Location:    cfg.Location(),
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReportGenerate, Handler: reportJob.Handle},
			{Type: jobs.TaskTablesWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: jobs.WarmupSchedule, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(1), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server", slog.Any("error", err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
