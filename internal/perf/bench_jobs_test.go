package perf

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/commission/export"
	jobmetrics "github.com/Glebrito/Analisediaria/internal/jobs"
	"github.com/Glebrito/Analisediaria/jobs"
)

type staticLoader struct {
	tables commission.Tables
}

func (l staticLoader) LoadTables(context.Context) (commission.Tables, error) {
	return l.tables, nil
}

type nopRenderer struct{}

func (nopRenderer) RenderStatistical(context.Context, export.StatisticalDocument) ([]byte, error) {
	return []byte("%PDF-1.7"), nil
}

func (nopRenderer) RenderCommission(context.Context, export.CommissionDocument) ([]byte, error) {
	return []byte("%PDF-1.7"), nil
}

func reportTask(t *testing.T, seller, kind string) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(jobs.ReportPayload{ID: seller + kind, Start: "01/03/2025", End: "31/03/2025", Seller: seller, Kind: kind})
	require.NoError(t, err)
	return asynq.NewTask(jobs.TaskReportGenerate, data)
}

func TestReportJobThroughputAndReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	service := commission.NewService(staticLoader{tables: monthTables(8, 2)}, newEngine(2), nil, nil)
	job := jobs.NewReportJob(jobs.ReportJobConfig{
		Reports:    service,
		Renderer:   nopRenderer{},
		StorageDir: t.TempDir(),
		Metrics:    metrics,
	})

	for i := 0; i < 8; i++ {
		seller := "Vendedor 00" + string(rune('0'+i))
		for _, kind := range []string{"statistical", "commission"} {
			require.NoError(t, job.Handle(context.Background(), reportTask(t, seller, kind)))
		}
	}
	// unknown sellers are rejected without retry
	require.Error(t, job.Handle(context.Background(), reportTask(t, "Ninguém", "statistical")))

	families, err := reg.Gather()
	require.NoError(t, err)

	success := metricValue(t, families, "analise_jobs_total", map[string]string{"job": jobs.TaskReportGenerate, "status": "success"})
	failure := metricValue(t, families, "analise_jobs_total", map[string]string{"job": jobs.TaskReportGenerate, "status": "failure"})
	require.Equal(t, 16.0, success)
	require.Equal(t, 1.0, failure)
	require.GreaterOrEqual(t, success/(success+failure), 0.9)

	require.Equal(t, 8.0, metricValue(t, families, "analise_report_artifacts_total", map[string]string{"kind": "commission"}))
	mean := histogramMean(t, families, "analise_job_duration_seconds", map[string]string{"job": jobs.TaskReportGenerate})
	require.Less(t, mean, 2.0, "report job mean duration above budget")
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.GetLabel()) != len(labels) {
		return false
	}
	for _, lp := range metric.GetLabel() {
		if val, ok := labels[lp.GetName()]; !ok || lp.GetValue() != val {
			return false
		}
	}
	return true
}
