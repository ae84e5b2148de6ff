package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/commission/export"
	jobmetrics "github.com/Glebrito/Analisediaria/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReportGenerator builds commission reports.
type ReportGenerator interface {
	Generate(ctx context.Context, req commission.Request) (commission.Report, error)
}

// DocumentRenderer converts seller documents to PDF.
type DocumentRenderer interface {
	RenderStatistical(ctx context.Context, doc export.StatisticalDocument) ([]byte, error)
	RenderCommission(ctx context.Context, doc export.CommissionDocument) ([]byte, error)
}

// ReportJobConfig wires dependencies required by the report job.
type ReportJobConfig struct {
	Reports    ReportGenerator
	Renderer   DocumentRenderer
	StorageDir string
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
}

// ReportJob renders queued seller documents to disk.
type ReportJob struct {
	reports    ReportGenerator
	renderer   DocumentRenderer
	storageDir string
	logger     *slog.Logger
	metrics    *jobmetrics.Metrics
}

// NewReportJob constructs a ReportJob handler.
func NewReportJob(cfg ReportJobConfig) *ReportJob {
	return &ReportJob{
		reports:    cfg.Reports,
		renderer:   cfg.Renderer,
		storageDir: cfg.StorageDir,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
	}
}

// ArtifactPath is where a job's PDF lands.
func ArtifactPath(dir, id string, kind export.Kind) string {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join(os.TempDir(), "analise-reports")
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.pdf", kind, id))
}

// Handle fulfils the asynq.HandlerFunc contract.
func (j *ReportJob) Handle(ctx context.Context, task *asynq.Task) (resultErr error) {
	if j == nil || j.reports == nil || j.renderer == nil {
		return errors.New("report job: not configured")
	}
	var payload ReportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.ID == "" {
		return asynq.SkipRetry
	}
	kind, err := export.ParseKind(payload.Kind)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	period, err := payloadPeriod(payload)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	tracker := j.jobMetrics().Track(TaskReportGenerate)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	logger := j.log().With(slog.String("report_id", payload.ID), slog.String("seller", payload.Seller), slog.String("kind", string(kind)))

	category := commission.Category(payload.Category)
	report, err := j.reports.Generate(ctx, commission.Request{Period: period, Category: category})
	if err != nil {
		if errors.Is(err, commission.ErrUnknownCategory) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Error("generate report", slog.Any("error", err))
		return err
	}

	pdf, err := j.render(ctx, report, category, payload.Seller, kind)
	if err != nil {
		if errors.Is(err, export.ErrSellerNotFound) {
			logger.Warn("seller missing from report")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	path := ArtifactPath(j.storageDir, payload.ID, kind)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return err
	}
	if w := task.ResultWriter(); w != nil {
		_, _ = w.Write([]byte(path))
	}
	j.jobMetrics().AddArtifact(string(kind))
	logger.Info("report ready", slog.String("file", path), slog.Int("bytes", len(pdf)))
	return nil
}

func (j *ReportJob) render(ctx context.Context, report commission.Report, category commission.Category, seller string, kind export.Kind) ([]byte, error) {
	if kind == export.KindCommission {
		doc, err := export.BuildCommission(report, category, seller)
		if err != nil {
			return nil, err
		}
		return j.renderer.RenderCommission(ctx, doc)
	}
	doc, err := export.BuildStatistical(report, category, seller)
	if err != nil {
		return nil, err
	}
	return j.renderer.RenderStatistical(ctx, doc)
}

func payloadPeriod(p ReportPayload) (commission.Period, error) {
	start, err := commission.ParseDay(p.Start)
	if err != nil {
		return commission.Period{}, err
	}
	end, err := commission.ParseDay(p.End)
	if err != nil {
		return commission.Period{}, err
	}
	return commission.NewPeriod(start, end)
}

func (j *ReportJob) log() *slog.Logger {
	if j.logger != nil {
		return j.logger.With(slog.String("job", TaskReportGenerate))
	}
	return slog.Default().With(slog.String("job", TaskReportGenerate))
}

func (j *ReportJob) jobMetrics() *jobmetrics.Metrics {
	if j.metrics != nil {
		return j.metrics
	}
	return defaultJobMetrics
}
