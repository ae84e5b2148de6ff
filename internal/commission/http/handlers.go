package commissionhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/commission/export"
	"github.com/Glebrito/Analisediaria/internal/normalize"
	"github.com/Glebrito/Analisediaria/internal/platform/httpx"
	"github.com/Glebrito/Analisediaria/internal/source"
	"github.com/Glebrito/Analisediaria/jobs"
)

const defaultRequestTimeout = 30 * time.Second

// ReportService defines the report contract used by the handler.
type ReportService interface {
	Generate(ctx context.Context, req commission.Request) (commission.Report, error)
	Categories(ctx context.Context, p commission.Period) ([]commission.Roster, error)
}

// PDFService renders seller documents to PDF bytes.
type PDFService interface {
	RenderStatistical(ctx context.Context, doc export.StatisticalDocument) ([]byte, error)
	RenderCommission(ctx context.Context, doc export.CommissionDocument) ([]byte, error)
}

// Enqueuer queues asynchronous PDF generation.
type Enqueuer interface {
	EnqueueReport(ctx context.Context, payload jobs.ReportPayload) (jobs.ReportPayload, error)
}

// CacheBumper invalidates the table cache.
type CacheBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// Config collects the handler dependencies. Only Service is required.
type Config struct {
	Logger  *slog.Logger
	Service ReportService
	PDF     PDFService
	Jobs    Enqueuer
	Cache   CacheBumper
	Timeout time.Duration
}

// Handler serves the commission report API.
type Handler struct {
	logger   *slog.Logger
	service  ReportService
	pdf      PDFService
	jobs     Enqueuer
	cache    CacheBumper
	timeout  time.Duration
	validate *validator.Validate
	csvPool  sync.Pool
}

// NewHandler constructs the commission HTTP handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRequestTimeout
	}
	h := &Handler{
		logger:   cfg.Logger,
		service:  cfg.Service,
		pdf:      cfg.PDF,
		jobs:     cfg.Jobs,
		cache:    cfg.Cache,
		timeout:  cfg.Timeout,
		validate: validator.New(),
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

type periodQuery struct {
	Start    string `json:"start" validate:"required,datetime=02/01/2006"`
	End      string `json:"end" validate:"required,datetime=02/01/2006"`
	Category string `json:"category" validate:"omitempty,max=64"`
}

type pdfQuery struct {
	periodQuery
	Seller string `json:"seller" validate:"required,max=128"`
	Kind   string `json:"kind" validate:"omitempty,oneof=statistical commission"`
}

type csvQuery struct {
	periodQuery
	Section string `validate:"omitempty,oneof=aggregates details summary"`
}

type jobResponse struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	Seller string `json:"seller"`
	Status string `json:"status"`
}

func (h *Handler) handleCategories(w http.ResponseWriter, r *http.Request) {
	q := readPeriod(r)
	period, err := h.period(q)
	if err != nil {
		h.fail(w, "categories", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rosters, err := h.service.Categories(ctx, period)
	if err != nil {
		h.fail(w, "categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"period":     period.String(),
		"categories": rosters,
	})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	report, _, ok := h.generate(w, r, readPeriod(r))
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	q := csvQuery{periodQuery: readPeriod(r), Section: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("section")))}
	if err := h.validate.Struct(q); err != nil {
		h.fail(w, "csv", invalid(err))
		return
	}
	section, err := export.ParseCSVSection(q.Section)
	if err != nil {
		h.fail(w, "csv", invalid(err))
		return
	}
	report, period, ok := h.generate(w, r, q.periodQuery)
	if !ok {
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()
	if err := export.WriteCSV(buf, report, section); err != nil {
		h.fail(w, "write csv", err)
		return
	}
	filename := fmt.Sprintf("comissao-%s-%s.csv", section, periodSlug(period))
	httpx.Attachment(w, "text/csv; charset=utf-8", filename, buf.Bytes())
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", "pdf renderer not configured")
		return
	}
	query := r.URL.Query()
	q := pdfQuery{
		periodQuery: readPeriod(r),
		Seller:      strings.TrimSpace(query.Get("seller")),
		Kind:        strings.TrimSpace(query.Get("kind")),
	}
	if err := h.validate.Struct(q); err != nil {
		h.fail(w, "pdf", invalid(err))
		return
	}
	kind, err := export.ParseKind(q.Kind)
	if err != nil {
		h.fail(w, "pdf", invalid(err))
		return
	}
	report, _, ok := h.generate(w, r, q.periodQuery)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	category := commission.Category(q.Category)
	var pdf []byte
	if kind == export.KindCommission {
		doc, err := export.BuildCommission(report, category, q.Seller)
		if err != nil {
			h.fail(w, "pdf", err)
			return
		}
		pdf, err = h.pdf.RenderCommission(ctx, doc)
		if err != nil {
			h.fail(w, "render pdf", err)
			return
		}
	} else {
		doc, err := export.BuildStatistical(report, category, q.Seller)
		if err != nil {
			h.fail(w, "pdf", err)
			return
		}
		pdf, err = h.pdf.RenderStatistical(ctx, doc)
		if err != nil {
			h.fail(w, "render pdf", err)
			return
		}
	}
	filename := fmt.Sprintf("%s-%s.pdf", kind, nameSlug(q.Seller))
	httpx.Attachment(w, "application/pdf", filename, pdf)
}

func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue Unavailable", "job queue not configured")
		return
	}
	var q pdfQuery
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&q); err != nil {
		h.fail(w, "enqueue", fmt.Errorf("%w: malformed body: %v", httpx.ErrValidation, err))
		return
	}
	q.Seller = strings.TrimSpace(q.Seller)
	if err := h.validate.Struct(q); err != nil {
		h.fail(w, "enqueue", invalid(err))
		return
	}
	kind, err := export.ParseKind(q.Kind)
	if err != nil {
		h.fail(w, "enqueue", invalid(err))
		return
	}
	if _, err := h.period(q.periodQuery); err != nil {
		h.fail(w, "enqueue", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	queued, err := h.jobs.EnqueueReport(ctx, jobs.ReportPayload{
		Start:    q.Start,
		End:      q.End,
		Category: q.Category,
		Seller:   q.Seller,
		Kind:     string(kind),
	})
	if err != nil {
		h.fail(w, "enqueue", err)
		return
	}
	h.logger.Info("report queued", slog.String("report_id", queued.ID), slog.String("seller", queued.Seller))
	httpx.JSON(w, http.StatusAccepted, jobResponse{ID: queued.ID, Kind: queued.Kind, Seller: queued.Seller, Status: "queued"})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Cache Unavailable", "table cache not configured")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	version, err := h.cache.Bump(ctx)
	if err != nil {
		h.fail(w, "cache refresh", err)
		return
	}
	h.logger.Info("table cache bumped", slog.Int64("version", version))
	httpx.JSON(w, http.StatusOK, map[string]int64{"version": version})
}

// generate validates the period query and runs the report, writing the
// failure response itself.
func (h *Handler) generate(w http.ResponseWriter, r *http.Request, q periodQuery) (commission.Report, commission.Period, bool) {
	period, err := h.period(q)
	if err != nil {
		h.fail(w, "report", err)
		return commission.Report{}, commission.Period{}, false
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.service.Generate(ctx, commission.Request{Period: period, Category: commission.Category(q.Category)})
	if err != nil {
		h.fail(w, "report", err)
		return commission.Report{}, commission.Period{}, false
	}
	return report, period, true
}

func (h *Handler) period(q periodQuery) (commission.Period, error) {
	if err := h.validate.Struct(q); err != nil {
		return commission.Period{}, invalid(err)
	}
	start, err := commission.ParseDay(q.Start)
	if err != nil {
		return commission.Period{}, err
	}
	end, err := commission.ParseDay(q.End)
	if err != nil {
		return commission.Period{}, err
	}
	return commission.NewPeriod(start, end)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, httpx.ErrValidation):
	case errors.Is(err, commission.ErrInvalidRange):
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, commission.ErrUnknownCategory), errors.Is(err, export.ErrSellerNotFound):
		err = fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		h.logger.Warn(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusGatewayTimeout, "Timeout", "report generation timed out")
		return
	case errors.Is(err, source.ErrSourceUnavailable):
		h.logger.Warn(op, slog.Any("error", err))
		err = fmt.Errorf("%w: %v", httpx.ErrUnavailable, err)
	default:
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func readPeriod(r *http.Request) periodQuery {
	query := r.URL.Query()
	return periodQuery{
		Start:    strings.TrimSpace(query.Get("start")),
		End:      strings.TrimSpace(query.Get("end")),
		Category: strings.TrimSpace(query.Get("category")),
	}
}

func invalid(err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fmt.Sprintf("%s (%s)", strings.ToLower(fe.Field()), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", httpx.ErrValidation, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
}

func periodSlug(p commission.Period) string {
	return p.Start.Time().Format("20060102") + "-" + p.End.Time().Format("20060102")
}

func nameSlug(name string) string {
	slug := strings.ToLower(strings.ReplaceAll(normalize.NormalizeName(name), " ", "-"))
	if slug == "" {
		return "vendedor"
	}
	return slug
}
