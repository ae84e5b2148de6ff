package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/Glebrito/Analisediaria/internal/jobs"
)

// CacheRefresher invalidates and reloads the table cache.
type CacheRefresher interface {
	Refresh(ctx context.Context) (int64, error)
}

// TablesWarmupJob keeps the table cache hot during business hours.
type TablesWarmupJob struct {
	Cache   CacheRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	Timeout time.Duration
}

// NewTablesWarmupJob wires dependencies for the warmup handler.
func NewTablesWarmupJob(cache CacheRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *TablesWarmupJob {
	return &TablesWarmupJob{Cache: cache, Logger: logger, Metrics: metrics, Timeout: 2 * time.Minute}
}

// Handle processes warmup tasks.
func (j *TablesWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cache == nil {
		return errors.New("tables warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskTablesWarmup)
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskTablesWarmup), slog.String("reason", payload.Reason))

	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}
	started := time.Now()
	version, err := j.Cache.Refresh(ctx)
	if err != nil {
		logger.Error("refresh table cache", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("table cache warmed", slog.Int64("version", version), slog.Duration("duration", time.Since(started)))
	return tracker.End(nil)
}
