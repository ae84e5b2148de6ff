package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Glebrito/Analisediaria/internal/source"
)

// MirrorFunc persists a bundle and returns the number of rows written.
type MirrorFunc func(ctx context.Context, bundle source.Bundle) (int, error)

// ImportCLI copies CSV exports into the Postgres mirror.
type ImportCLI struct {
	mirror MirrorFunc
}

// NewImportCLI constructs the import command.
func NewImportCLI(mirror MirrorFunc) (*ImportCLI, error) {
	if mirror == nil {
		return nil, errors.New("import cli: mirror required")
	}
	return &ImportCLI{mirror: mirror}, nil
}

// ImportOptions configures the import command.
type ImportOptions struct {
	Dir    string
	Tables string
	DryRun bool
	Stdout io.Writer
	Stderr io.Writer
}

// ImportCommand reads {dir}/{table}.csv files and replaces the mirrored
// tables in one transaction.
func (c *ImportCLI) ImportCommand(ctx context.Context, opts ImportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if strings.TrimSpace(opts.Dir) == "" {
		fmt.Fprintln(opts.Stderr, "import: --dir is required")
		return 1
	}
	if info, err := os.Stat(opts.Dir); err != nil || !info.IsDir() {
		fmt.Fprintf(opts.Stderr, "import: %q is not a directory\n", opts.Dir)
		return 1
	}
	selected, err := selectTables(opts.Tables)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}

	all, err := source.Load(ctx, source.CSVProvider{Dir: opts.Dir})
	if err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}
	bundle := make(source.Bundle, len(selected))
	for _, name := range selected {
		t := all[name]
		if t.Empty() && len(t.Headers) == 0 {
			fmt.Fprintf(opts.Stdout, "skip %s: no file\n", name)
			continue
		}
		bundle[name] = t
		fmt.Fprintf(opts.Stdout, "read %s: %d rows\n", name, len(t.Rows))
	}
	if len(bundle) == 0 {
		fmt.Fprintln(opts.Stderr, "import: nothing to import")
		return 1
	}
	if opts.DryRun {
		fmt.Fprintln(opts.Stdout, "dry run, nothing written")
		return 0
	}

	rows, err := c.mirror(ctx, bundle)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}
	fmt.Fprintf(opts.Stdout, "imported %d tables, %d rows\n", len(bundle), rows)
	return 0
}

// selectTables parses a comma separated table list; empty means all.
func selectTables(raw string) ([]source.TableName, error) {
	if strings.TrimSpace(raw) == "" {
		return source.AllTables, nil
	}
	var out []source.TableName
	seen := make(map[source.TableName]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, err := source.ParseTableName(part)
		if err != nil {
			return nil, err
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("--tables lists no table")
	}
	return out, nil
}
