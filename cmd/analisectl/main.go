package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Glebrito/Analisediaria/cmd/analisectl/cli"
	"github.com/Glebrito/Analisediaria/internal/app"
	"github.com/Glebrito/Analisediaria/internal/platform/cache"
	"github.com/Glebrito/Analisediaria/internal/platform/db"
	"github.com/Glebrito/Analisediaria/internal/source"
	"github.com/Glebrito/Analisediaria/jobs"
)

const usage = `usage: analisectl <command> [flags]

commands:
  report   compute a report and print it as JSON or CSV
  enqueue  queue a PDF report job
  warmup   queue a table cache warmup
  queue    show queue counters
  import   copy CSV exports into the Postgres mirror
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 1
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}
	logger := app.NewLogger(cfg)

	switch args[0] {
	case "report":
		return runReport(ctx, cfg, logger, args[1:], stdout, stderr)
	case "enqueue":
		return runEnqueue(ctx, cfg, args[1:], stdout, stderr)
	case "warmup":
		return withJobs(cfg, stderr, func(c *cli.JobsCLI) int {
			return c.WarmupCommand(ctx, stdout, stderr)
		})
	case "queue":
		return runQueue(ctx, cfg, args[1:], stdout, stderr)
	case "import":
		return runImport(ctx, cfg, logger, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	}
	fmt.Fprintf(stderr, "analisectl: unknown command %q\n\n%s", args[0], usage)
	return 1
}

func runReport(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.ReportOptions{Stdout: stdout, Stderr: stderr}
	fs.StringVar(&opts.Start, "start", "", "first day (dd/mm/yyyy)")
	fs.StringVar(&opts.End, "end", "", "last day (dd/mm/yyyy)")
	fs.StringVar(&opts.Category, "category", "", "restrict to one seller category")
	fs.StringVar(&opts.Seller, "seller", "", "restrict to one seller")
	fs.StringVar(&opts.Format, "format", cli.FormatJSON, "json or csv")
	fs.StringVar(&opts.Section, "section", "", "csv section: aggregates, details or summary")
	driver := fs.String("source", cfg.SourceDriver, "table source: sheets, postgres or csv")
	fs.StringVar(&cfg.CSVDir, "dir", cfg.CSVDir, "csv source directory")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	cfg.SourceDriver = *driver
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 1
	}

	deps := app.StackDeps{Logger: logger}
	if cfg.SourceDriver == app.DriverPostgres {
		pool, err := db.New(ctx, cfg.PGDSN, 0)
		if err != nil {
			fmt.Fprintf(stderr, "report: %v\n", err)
			return 3
		}
		defer pool.Close()
		deps.Postgres = pool
	}
	if redisClient := cache.Optional(ctx, cfg.RedisAddr, logger); redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		deps.Redis = redisClient
	}
	stack, err := app.BuildStack(cfg, deps)
	if err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 1
	}
	reportCLI, err := cli.NewReportCLI(stack.Service)
	if err != nil {
		fmt.Fprintf(stderr, "report: %v\n", err)
		return 1
	}
	return reportCLI.ReportCommand(ctx, opts)
}

func runEnqueue(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("enqueue", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.EnqueueOptions{Stdout: stdout, Stderr: stderr}
	fs.StringVar(&opts.Start, "start", "", "first day (dd/mm/yyyy)")
	fs.StringVar(&opts.End, "end", "", "last day (dd/mm/yyyy)")
	fs.StringVar(&opts.Category, "category", "", "seller category")
	fs.StringVar(&opts.Seller, "seller", "", "seller name")
	fs.StringVar(&opts.Kind, "kind", "statistical", "statistical or commission")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return withJobs(cfg, stderr, func(c *cli.JobsCLI) int {
		return c.EnqueueCommand(ctx, opts)
	})
}

func runQueue(ctx context.Context, cfg *app.Config, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("queue", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.QueueOptions{Stdout: stdout, Stderr: stderr}
	fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return withJobs(cfg, stderr, func(c *cli.JobsCLI) int {
		return c.QueueCommand(ctx, opts)
	})
}

func withJobs(cfg *app.Config, stderr io.Writer, fn func(*cli.JobsCLI) int) int {
	redisOpt := cache.QueueOpt(cfg.RedisAddr)
	client, err := jobs.NewClient(redisOpt)
	if err != nil {
		fmt.Fprintf(stderr, "jobs: %v\n", err)
		return 1
	}
	defer func() { _ = client.Close() }()
	inspector := asynq.NewInspector(redisOpt)
	defer func() { _ = inspector.Close() }()
	return fn(cli.NewJobsCLI(client, inspector))
}

func runImport(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.ImportOptions{Stdout: stdout, Stderr: stderr}
	fs.StringVar(&opts.Dir, "dir", cfg.CSVDir, "directory holding {table}.csv files")
	fs.StringVar(&opts.Tables, "tables", "", "comma separated tables (default all)")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "read files without writing")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	var pool *pgxpool.Pool
	mirror := func(ctx context.Context, bundle source.Bundle) (int, error) {
		if err := db.EnsureSchema(ctx, pool, source.Schema); err != nil {
			return 0, err
		}
		rows := 0
		err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
			n, err := source.Mirror(ctx, tx, bundle)
			rows = n
			return err
		})
		return rows, err
	}
	if !opts.DryRun {
		var err error
		pool, err = db.New(ctx, cfg.PGDSN, 4)
		if err != nil {
			fmt.Fprintf(stderr, "import: %v\n", err)
			return 3
		}
		defer pool.Close()
	}

	importCLI, err := cli.NewImportCLI(mirror)
	if err != nil {
		fmt.Fprintf(stderr, "import: %v\n", err)
		return 1
	}
	code := importCLI.ImportCommand(ctx, opts)
	if code == 0 && !opts.DryRun {
		bumpCache(ctx, cfg, logger)
	}
	return code
}

// bumpCache invalidates cached tables after the mirror changed.
func bumpCache(ctx context.Context, cfg *app.Config, logger *slog.Logger) {
	redisClient := cache.Optional(ctx, cfg.RedisAddr, logger)
	if redisClient == nil {
		return
	}
	defer func() { _ = redisClient.Close() }()
	cached := source.NewCachedProvider(source.CSVProvider{}, redisClient, cfg.TableCacheTTL, logger)
	if ver, err := cached.Bump(ctx); err != nil {
		logger.Warn("bump table cache", slog.Any("error", err))
	} else {
		logger.Info("table cache bumped", slog.Int64("version", ver))
	}
}
