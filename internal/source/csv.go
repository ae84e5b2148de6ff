package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Glebrito/Analisediaria/internal/sheet"
)

// CSVProvider reads {dir}/{table}.csv files.
type CSVProvider struct {
	Dir string
}

// Path returns the file backing a table.
func (p CSVProvider) Path(name TableName) string {
	return filepath.Join(p.Dir, string(name)+".csv")
}

// Fetch reads one table. A missing file is an empty table, which the engine
// treats like an empty worksheet.
func (p CSVProvider) Fetch(ctx context.Context, name TableName) (sheet.Table, error) {
	if err := ctx.Err(); err != nil {
		return sheet.Table{}, err
	}
	f, err := os.Open(p.Path(name))
	if os.IsNotExist(err) {
		return sheet.Table{Name: string(name)}, nil
	}
	if err != nil {
		return sheet.Table{}, fmt.Errorf("source: open %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()
	return ReadCSV(string(name), f)
}
