package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/Glebrito/Analisediaria/internal/commission/export"
	"github.com/Glebrito/Analisediaria/jobs"
)

// Enqueuer submits background tasks.
type Enqueuer interface {
	EnqueueReport(ctx context.Context, payload jobs.ReportPayload) (jobs.ReportPayload, error)
	EnqueueWarmup(ctx context.Context, reason string) error
}

// JobsCLI wraps manual management helpers for the asynq queues.
type JobsCLI struct {
	queue     Enqueuer
	inspector jobs.QueueInspector
}

// NewJobsCLI builds the helpers. Either dependency may be nil when the
// matching commands are not used.
func NewJobsCLI(queue Enqueuer, inspector jobs.QueueInspector) *JobsCLI {
	return &JobsCLI{queue: queue, inspector: inspector}
}

// EnqueueOptions configures a report job submission.
type EnqueueOptions struct {
	Start    string
	End      string
	Category string
	Seller   string
	Kind     string
	Stdout   io.Writer
	Stderr   io.Writer
}

// EnqueueCommand submits a PDF report job and prints its id.
func (c *JobsCLI) EnqueueCommand(ctx context.Context, opts EnqueueOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if c == nil || c.queue == nil {
		fmt.Fprintln(opts.Stderr, "enqueue: queue not configured")
		return 1
	}
	if strings.TrimSpace(opts.Seller) == "" {
		fmt.Fprintln(opts.Stderr, "enqueue: --seller is required")
		return 1
	}
	kind, err := export.ParseKind(strings.TrimSpace(opts.Kind))
	if err != nil {
		fmt.Fprintf(opts.Stderr, "enqueue: invalid --kind %q (expected statistical or commission)\n", opts.Kind)
		return 1
	}
	if _, err := parsePeriod(opts.Start, opts.End); err != nil {
		fmt.Fprintf(opts.Stderr, "enqueue: %v\n", err)
		return 1
	}

	payload, err := c.queue.EnqueueReport(ctx, jobs.ReportPayload{
		Start:    strings.TrimSpace(opts.Start),
		End:      strings.TrimSpace(opts.End),
		Category: strings.TrimSpace(opts.Category),
		Seller:   strings.TrimSpace(opts.Seller),
		Kind:     string(kind),
	})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "enqueue: %v\n", err)
		return 1
	}
	fmt.Fprintf(opts.Stdout, "queued %s %s report for %s (%s)\n", payload.ID, payload.Kind, payload.Seller, jobs.QueueReports)
	return 0
}

// WarmupCommand asks the worker to reload the table cache.
func (c *JobsCLI) WarmupCommand(ctx context.Context, stdout, stderr io.Writer) int {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	if c == nil || c.queue == nil {
		fmt.Fprintln(stderr, "warmup: queue not configured")
		return 1
	}
	if err := c.queue.EnqueueWarmup(ctx, "manual"); err != nil {
		fmt.Fprintf(stderr, "warmup: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "queued table cache warmup")
	return 0
}

// QueueOptions configures the queue inspection command.
type QueueOptions struct {
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// QueueCommand prints the state of the report and default queues.
func (c *JobsCLI) QueueCommand(ctx context.Context, opts QueueOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if c == nil || c.inspector == nil {
		fmt.Fprintln(opts.Stderr, "queue: inspector not configured")
		return 1
	}
	stats, err := jobs.Stats(c.inspector, jobs.QueueReports, jobs.QueueDefault)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "queue: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(opts.Stderr, "queue: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	if err := renderQueueHuman(opts.Stdout, stats); err != nil {
		fmt.Fprintf(opts.Stderr, "queue: %v\n", err)
		return 1
	}
	return 0
}

func renderQueueHuman(out io.Writer, stats []jobs.QueueStats) error {
	if len(stats) == 0 {
		return errors.New("no queues found")
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tRETRY\tARCHIVED\tCOMPLETED")
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Retry, s.Archived, s.Completed)
	}
	return tw.Flush()
}
