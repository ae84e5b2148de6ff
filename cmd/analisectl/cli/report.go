package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/commission/export"
	"github.com/Glebrito/Analisediaria/internal/source"
)

// ReportGenerator computes commission reports.
type ReportGenerator interface {
	Generate(ctx context.Context, req commission.Request) (commission.Report, error)
}

// ReportCLI prints reports computed from the configured table source.
type ReportCLI struct {
	reports ReportGenerator
}

// NewReportCLI constructs the report command.
func NewReportCLI(reports ReportGenerator) (*ReportCLI, error) {
	if reports == nil {
		return nil, errors.New("report cli: generator required")
	}
	return &ReportCLI{reports: reports}, nil
}

// Output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ReportOptions configures the report command.
type ReportOptions struct {
	Start    string
	End      string
	Category string
	Seller   string
	Format   string
	Section  string
	Stdout   io.Writer
	Stderr   io.Writer
}

// ReportCommand computes one report and writes it to Stdout.
func (c *ReportCLI) ReportCommand(ctx context.Context, opts ReportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatCSV {
		fmt.Fprintf(opts.Stderr, "report: invalid --format %q (expected json or csv)\n", opts.Format)
		return 1
	}
	section, err := export.ParseCSVSection(opts.Section)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "report: invalid --section %q (expected aggregates, details or summary)\n", opts.Section)
		return 1
	}
	period, err := parsePeriod(opts.Start, opts.End)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return 1
	}

	report, err := c.reports.Generate(ctx, commission.Request{
		Period:   period,
		Category: commission.Category(strings.TrimSpace(opts.Category)),
		Seller:   strings.TrimSpace(opts.Seller),
	})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "report: %v\n", err)
		return exitCode(err)
	}

	if format == FormatCSV {
		if err := export.WriteCSV(opts.Stdout, report, section); err != nil {
			fmt.Fprintf(opts.Stderr, "report: write csv: %v\n", err)
			return 1
		}
		return 0
	}
	enc := json.NewEncoder(opts.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		fmt.Fprintf(opts.Stderr, "report: encode json: %v\n", err)
		return 1
	}
	return 0
}

// dayLayout is the only form the period flags take, the same one the HTTP
// query accepts. Spreadsheet cells are more lenient.
const dayLayout = "02/01/2006"

// parsePeriod reads dd/mm/yyyy bounds.
func parsePeriod(start, end string) (commission.Period, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return commission.Period{}, errors.New("--start and --end are required (dd/mm/yyyy)")
	}
	from, err := parseFlagDay(start)
	if err != nil {
		return commission.Period{}, fmt.Errorf("invalid --start %q (expected dd/mm/yyyy)", start)
	}
	to, err := parseFlagDay(end)
	if err != nil {
		return commission.Period{}, fmt.Errorf("invalid --end %q (expected dd/mm/yyyy)", end)
	}
	return commission.NewPeriod(from, to)
}

func parseFlagDay(raw string) (commission.Day, error) {
	raw = strings.TrimSpace(raw)
	if _, err := time.Parse(dayLayout, raw); err != nil {
		return commission.Day{}, err
	}
	return commission.ParseDay(raw)
}

// exitCode separates bad input (2) from unavailable sources (3).
func exitCode(err error) int {
	switch {
	case errors.Is(err, commission.ErrInvalidRange), errors.Is(err, commission.ErrUnknownCategory):
		return 2
	case errors.Is(err, source.ErrSourceUnavailable):
		return 3
	}
	return 1
}
