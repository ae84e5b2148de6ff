package commission

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Loader fetches one consistent generation of raw tables.
type Loader interface {
	LoadTables(ctx context.Context) (Tables, error)
}

// Recorder receives run metrics. Implementations must be safe for concurrent
// use.
type Recorder interface {
	ObserveReport(category string, elapsed time.Duration, err error)
	RecordDegradation(kind, table string, n int)
}

// Service loads tables and runs the engine for callers.
type Service struct {
	loader   Loader
	engine   *Engine
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds the service. recorder may be nil.
func NewService(loader Loader, engine *Engine, recorder Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{loader: loader, engine: engine, recorder: recorder, logger: logger, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Options exposes the engine configuration echoed in reports.
func (s *Service) Options() Options {
	return s.engine.Options()
}

// Generate validates the request, fetches the tables once and builds the
// report.
func (s *Service) Generate(ctx context.Context, req Request) (report Report, err error) {
	started := s.now()
	defer func() {
		if s.recorder != nil {
			s.recorder.ObserveReport(string(req.Category), s.now().Sub(started), err)
		}
	}()

	if _, err = NewPeriod(req.Period.Start, req.Period.End); err != nil {
		return Report{}, err
	}
	tables, err := s.loader.LoadTables(ctx)
	if err != nil {
		s.logger.Error("commission tables", slog.Any("error", err))
		return Report{}, fmt.Errorf("commission: load tables: %w", err)
	}
	report, err = s.engine.Build(ctx, tables, req)
	if err != nil {
		return Report{}, err
	}
	report.GeneratedAt = started.UTC()
	s.record(report.Diagnostics)
	return report, nil
}

// Categories lists the categories and sellers active in the period.
func (s *Service) Categories(ctx context.Context, p Period) ([]Roster, error) {
	if _, err := NewPeriod(p.Start, p.End); err != nil {
		return nil, err
	}
	tables, err := s.loader.LoadTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("commission: load tables: %w", err)
	}
	rosters, diag := s.engine.Categories(tables, p)
	s.record(diag)
	return rosters, nil
}

func (s *Service) record(diag Diagnostics) {
	if s.recorder == nil {
		return
	}
	for _, d := range diag.Degradations() {
		s.recorder.RecordDegradation(d.Kind, d.Table, d.Count)
	}
}
