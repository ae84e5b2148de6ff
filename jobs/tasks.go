package jobs

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueReports holds PDF generation, which is slower than cache work.
	QueueReports = "reports"

	// TaskReportGenerate renders a seller document to the report storage.
	TaskReportGenerate = "commission:report.generate"
	// TaskTablesWarmup reloads the table cache.
	TaskTablesWarmup = "commission:tables.warmup"

	// WarmupSchedule runs the warmup every 5 minutes during business hours.
	WarmupSchedule = "*/5 8-19 * * 1-6"
)

// ErrInvalidPayload is returned when a task payload cannot be queued.
var ErrInvalidPayload = errors.New("jobs: invalid payload")

// ReportPayload describes one queued seller document.
type ReportPayload struct {
	ID       string `json:"id"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category,omitempty"`
	Seller   string `json:"seller"`
	Kind     string `json:"kind"`
}

// NewReportTask constructs a report generation task, assigning an id when
// the payload carries none.
func NewReportTask(payload ReportPayload) (*asynq.Task, ReportPayload, error) {
	if strings.TrimSpace(payload.Seller) == "" || payload.Start == "" || payload.End == "" {
		return nil, payload, ErrInvalidPayload
	}
	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, payload, err
	}
	return asynq.NewTask(TaskReportGenerate, data, asynq.TaskID(payload.ID), asynq.MaxRetry(3)), payload, nil
}

// WarmupPayload tags why the cache was refreshed.
type WarmupPayload struct {
	Reason string `json:"reason"`
}

// NewTablesWarmupTask constructs the cache warmup task.
func NewTablesWarmupTask(reason string) (*asynq.Task, error) {
	if reason == "" {
		reason = "schedule"
	}
	data, err := json.Marshal(WarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTablesWarmup, data), nil
}
