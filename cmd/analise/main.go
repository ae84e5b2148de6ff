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
	commissionhttp "github.com/Glebrito/Analisediaria/internal/commission/http"
	"github.com/Glebrito/Analisediaria/internal/observability"
	"github.com/Glebrito/Analisediaria/internal/platform/cache"
	"github.com/Glebrito/Analisediaria/internal/platform/db"
	"github.com/Glebrito/Analisediaria/internal/source"
	"github.com/Glebrito/Analisediaria/jobs"
	"github.com/Glebrito/Analisediaria/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool, source.Schema); err != nil {
			logger.Error("install schema", slog.Any("error", err))
			os.Exit(1)
		}
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
	stack.Cache.ListenForInvalidation(ctx)

	reportClient := report.NewClient(cfg.GotenbergURL, 0)
	renderer, err := report.NewRenderer(reportClient)
	if err != nil {
		logger.Error("init renderer", slog.Any("error", err))
		os.Exit(1)
	}
	reportHandler := report.NewHandler(reportClient, logger)

	queueOpt := cache.QueueOpt(cfg.RedisAddr)
	jobClient, err := jobs.NewClient(queueOpt)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(queueOpt)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	commissionHandler := commissionhttp.NewHandler(commissionhttp.Config{
		Logger:  logger,
		Service: stack.Service,
		PDF:     renderer,
		Jobs:    jobClient,
		Cache:   stack.Cache,
		Timeout: cfg.AppRequestTimeout,
	})

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		Metrics:           metrics,
		CommissionHandler: commissionHandler,
		ReportHandler:     reportHandler,
		JobHandler:        jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("source", cfg.SourceDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
