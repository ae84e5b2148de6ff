package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/source"
	"github.com/Glebrito/Analisediaria/jobs"
)

type stubReports struct {
	req commission.Request
	err error
}

func (s *stubReports) Generate(ctx context.Context, req commission.Request) (commission.Report, error) {
	s.req = req
	if s.err != nil {
		return commission.Report{}, s.err
	}
	return commission.Report{Period: req.Period, Days: req.Period.Days()}, nil
}

func TestReportCommandJSON(t *testing.T) {
	reports := &stubReports{}
	cli, err := NewReportCLI(reports)
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := cli.ReportCommand(context.Background(), ReportOptions{
		Start:    "01/03/2025",
		End:      "31/03/2025",
		Category: " Transferistas ",
		Stdout:   stdout,
		Stderr:   stderr,
	})
	require.Zero(t, code, stderr.String())
	require.Equal(t, commission.CategoryTransfer, reports.req.Category)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &decoded))
	require.EqualValues(t, 31, decoded["days"])
}

func TestReportCommandRejectsInput(t *testing.T) {
	cli, err := NewReportCLI(&stubReports{})
	require.NoError(t, err)

	cases := map[string]ReportOptions{
		"missing end": {Start: "01/03/2025"},
		"iso date":    {Start: "2025-03-01", End: "31/03/2025"},
		"inverted":    {Start: "31/03/2025", End: "01/03/2025"},
		"format":      {Start: "01/03/2025", End: "31/03/2025", Format: "xml"},
		"section":     {Start: "01/03/2025", End: "31/03/2025", Format: "csv", Section: "totals"},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			stderr := new(bytes.Buffer)
			opts.Stdout = new(bytes.Buffer)
			opts.Stderr = stderr
			require.Equal(t, 1, cli.ReportCommand(context.Background(), opts))
			require.True(t, strings.HasPrefix(stderr.String(), "report: "))
		})
	}
}

func TestParsePeriodOnlyTakesDayMonthYear(t *testing.T) {
	period, err := parsePeriod(" 01/03/2025", "31/03/2025 ")
	require.NoError(t, err)
	require.Equal(t, 31, period.Days())

	for _, raw := range []string{"2025-03-01", "1/3/2025", "01-03-2025", "01/03/25"} {
		_, err := parsePeriod(raw, "31/03/2025")
		require.Error(t, err, raw)
	}
}

func TestReportCommandExitCodes(t *testing.T) {
	opts := func() ReportOptions {
		return ReportOptions{Start: "01/03/2025", End: "31/03/2025", Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}
	}
	cases := map[error]int{
		fmt.Errorf("%w: %q", commission.ErrUnknownCategory, "Pilotos"): 2,
		fmt.Errorf("%w: sales", source.ErrSourceUnavailable):           3,
		errors.New("boom"): 1,
	}
	for cause, want := range cases {
		cli, err := NewReportCLI(&stubReports{err: cause})
		require.NoError(t, err)
		require.Equal(t, want, cli.ReportCommand(context.Background(), opts()), cause.Error())
	}
}

func TestReportCommandCSV(t *testing.T) {
	cli, err := NewReportCLI(&stubReports{})
	require.NoError(t, err)
	stdout := new(bytes.Buffer)
	code := cli.ReportCommand(context.Background(), ReportOptions{
		Start:   "01/03/2025",
		End:     "31/03/2025",
		Format:  "csv",
		Section: "summary",
		Stdout:  stdout,
		Stderr:  new(bytes.Buffer),
	})
	require.Zero(t, code)
	require.NotEmpty(t, stdout.String())
	require.NotContains(t, stdout.String(), "{")
}

type stubQueue struct {
	payload jobs.ReportPayload
	warmups []string
	err     error
}

func (s *stubQueue) EnqueueReport(ctx context.Context, p jobs.ReportPayload) (jobs.ReportPayload, error) {
	if s.err != nil {
		return jobs.ReportPayload{}, s.err
	}
	p.ID = "job-1"
	s.payload = p
	return p, nil
}

func (s *stubQueue) EnqueueWarmup(ctx context.Context, reason string) error {
	s.warmups = append(s.warmups, reason)
	return s.err
}

type stubInspector struct {
	err error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.QueueInfo{Queue: queue, Pending: 2, Retry: 1}, nil
}

func TestEnqueueCommand(t *testing.T) {
	queue := &stubQueue{}
	cli := NewJobsCLI(queue, nil)
	stdout := new(bytes.Buffer)
	code := cli.EnqueueCommand(context.Background(), EnqueueOptions{
		Start:  "01/03/2025",
		End:    "31/03/2025",
		Seller: " João Silva ",
		Kind:   "commission",
		Stdout: stdout,
		Stderr: new(bytes.Buffer),
	})
	require.Zero(t, code)
	require.Equal(t, "João Silva", queue.payload.Seller)
	require.Equal(t, "commission", queue.payload.Kind)
	require.Contains(t, stdout.String(), "queued job-1 commission report for João Silva (reports)")
}

func TestEnqueueCommandValidation(t *testing.T) {
	queue := &stubQueue{}
	cli := NewJobsCLI(queue, nil)
	cases := map[string]EnqueueOptions{
		"seller": {Start: "01/03/2025", End: "31/03/2025"},
		"kind":   {Start: "01/03/2025", End: "31/03/2025", Seller: "Ana", Kind: "invoice"},
		"period": {Start: "31/03/2025", End: "01/03/2025", Seller: "Ana"},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			opts.Stdout = new(bytes.Buffer)
			opts.Stderr = new(bytes.Buffer)
			require.Equal(t, 1, cli.EnqueueCommand(context.Background(), opts))
		})
	}
	require.Empty(t, queue.payload.Seller)

	stderr := new(bytes.Buffer)
	require.Equal(t, 1, NewJobsCLI(nil, nil).EnqueueCommand(context.Background(), EnqueueOptions{Stderr: stderr}))
	require.Contains(t, stderr.String(), "queue not configured")
}

func TestWarmupCommand(t *testing.T) {
	queue := &stubQueue{}
	stdout := new(bytes.Buffer)
	require.Zero(t, NewJobsCLI(queue, nil).WarmupCommand(context.Background(), stdout, new(bytes.Buffer)))
	require.Equal(t, []string{"manual"}, queue.warmups)
}

func TestQueueCommand(t *testing.T) {
	cli := NewJobsCLI(nil, stubInspector{})
	stdout := new(bytes.Buffer)
	require.Zero(t, cli.QueueCommand(context.Background(), QueueOptions{JSONOutput: true, Stdout: stdout, Stderr: new(bytes.Buffer)}))

	var stats []jobs.QueueStats
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &stats))
	require.Len(t, stats, 2)
	require.Equal(t, jobs.QueueReports, stats[0].Queue)
	require.Equal(t, 2, stats[0].Pending)

	stdout.Reset()
	require.Zero(t, cli.QueueCommand(context.Background(), QueueOptions{Stdout: stdout, Stderr: new(bytes.Buffer)}))
	require.True(t, strings.HasPrefix(stdout.String(), "QUEUE"))
	require.Contains(t, stdout.String(), "default")

	stderr := new(bytes.Buffer)
	failing := NewJobsCLI(nil, stubInspector{err: errors.New("redis down")})
	require.Equal(t, 1, failing.QueueCommand(context.Background(), QueueOptions{Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "redis down")
}

func writeCSV(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".csv"), []byte(body), 0o600))
}

func TestImportCommand(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "sellers", "Vendedor,Cargo\nAna,Desks\nBruno,Online\n")
	writeCSV(t, dir, "rates", "Vendedor,Meta\nAna,1000\n")

	var got source.Bundle
	cli, err := NewImportCLI(func(ctx context.Context, b source.Bundle) (int, error) {
		got = b
		rows := 0
		for _, tbl := range b {
			rows += len(tbl.Rows)
		}
		return rows, nil
	})
	require.NoError(t, err)

	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := cli.ImportCommand(context.Background(), ImportOptions{Dir: dir, Stdout: stdout, Stderr: stderr})
	require.Zero(t, code, stderr.String())
	require.Len(t, got, 2)
	require.Len(t, got[source.TableSellers].Rows, 2)
	require.Contains(t, stdout.String(), "skip sales: no file")
	require.Contains(t, stdout.String(), "imported 2 tables, 3 rows")
}

func TestImportCommandSelectionAndDryRun(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "sellers", "Vendedor,Cargo\nAna,Desks\n")
	writeCSV(t, dir, "rates", "Vendedor,Meta\nAna,1000\n")

	calls := 0
	cli, err := NewImportCLI(func(ctx context.Context, b source.Bundle) (int, error) {
		calls++
		require.Len(t, b, 1)
		return 1, nil
	})
	require.NoError(t, err)

	require.Zero(t, cli.ImportCommand(context.Background(), ImportOptions{Dir: dir, Tables: "sellers, sellers", Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}))
	require.Zero(t, cli.ImportCommand(context.Background(), ImportOptions{Dir: dir, Tables: "rates", DryRun: true, Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}))
	require.Equal(t, 1, calls)

	stderr := new(bytes.Buffer)
	require.Equal(t, 1, cli.ImportCommand(context.Background(), ImportOptions{Dir: dir, Tables: "invoices", Stdout: new(bytes.Buffer), Stderr: stderr}))
	require.Contains(t, stderr.String(), "unknown table")

	require.Equal(t, 1, cli.ImportCommand(context.Background(), ImportOptions{Dir: filepath.Join(dir, "missing"), Stdout: new(bytes.Buffer), Stderr: new(bytes.Buffer)}))
}

func TestNewCLIsRequireDependencies(t *testing.T) {
	_, err := NewReportCLI(nil)
	require.Error(t, err)
	_, err = NewImportCLI(nil)
	require.Error(t, err)
}
