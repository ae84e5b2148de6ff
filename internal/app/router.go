package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	commissionhttp "github.com/Glebrito/Analisediaria/internal/commission/http"
	"github.com/Glebrito/Analisediaria/internal/observability"
	"github.com/Glebrito/Analisediaria/jobs"
	"github.com/Glebrito/Analisediaria/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	CommissionHandler *commissionhttp.Handler
	ReportHandler     *report.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with the service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.CommissionHandler != nil {
		params.CommissionHandler.MountRoutes(r)
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}
