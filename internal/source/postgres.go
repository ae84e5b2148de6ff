package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Glebrito/Analisediaria/internal/sheet"
)

// Schema creates the tables the Postgres provider reads.
const Schema = `
CREATE TABLE IF NOT EXISTS sheet_headers (
    tab        TEXT PRIMARY KEY,
    headers    JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS sheet_rows (
    tab      TEXT NOT NULL REFERENCES sheet_headers(tab) ON DELETE CASCADE,
    position INT  NOT NULL,
    data     JSONB NOT NULL,
    PRIMARY KEY (tab, position)
);`

const (
	selectHeaders = `SELECT headers FROM sheet_headers WHERE tab = $1`
	selectRows    = `SELECT data FROM sheet_rows WHERE tab = $1 ORDER BY position`
	deleteRows    = `DELETE FROM sheet_rows WHERE tab = $1`
	upsertHeaders = `INSERT INTO sheet_headers (tab, headers, updated_at) VALUES ($1, $2, now())
ON CONFLICT (tab) DO UPDATE SET headers = EXCLUDED.headers, updated_at = now()`
	insertRow = `INSERT INTO sheet_rows (tab, position, data) VALUES ($1, $2, $3)`
)

const undefinedTable = "42P01"

// Querier is the subset of pgxpool.Pool the provider reads through.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresProvider reads tables mirrored into sheet_headers/sheet_rows.
type PostgresProvider struct {
	db Querier
}

// NewPostgresProvider wraps a pool or transaction.
func NewPostgresProvider(db Querier) *PostgresProvider {
	return &PostgresProvider{db: db}
}

// Fetch loads one table. A tab never mirrored is an empty table.
func (p *PostgresProvider) Fetch(ctx context.Context, name TableName) (sheet.Table, error) {
	t := sheet.Table{Name: string(name)}

	var rawHeaders []byte
	err := p.db.QueryRow(ctx, selectHeaders, string(name)).Scan(&rawHeaders)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, nil
	}
	if err != nil {
		return sheet.Table{}, pgError(name, err)
	}
	if err := json.Unmarshal(rawHeaders, &t.Headers); err != nil {
		return sheet.Table{}, fmt.Errorf("source: decode %s headers: %w", name, err)
	}

	rows, err := p.db.Query(ctx, selectRows, string(name))
	if err != nil {
		return sheet.Table{}, pgError(name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return sheet.Table{}, fmt.Errorf("source: scan %s row: %w", name, err)
		}
		row := sheet.Row{}
		if err := json.Unmarshal(raw, &row); err != nil {
			return sheet.Table{}, fmt.Errorf("source: decode %s row: %w", name, err)
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return sheet.Table{}, pgError(name, err)
	}
	return t, nil
}

// Store replaces the mirrored copy of a table inside tx.
func Store(ctx context.Context, tx pgx.Tx, name TableName, t sheet.Table) error {
	headers, err := json.Marshal(t.Headers)
	if err != nil {
		return fmt.Errorf("source: encode %s headers: %w", name, err)
	}
	if _, err := tx.Exec(ctx, upsertHeaders, string(name), headers); err != nil {
		return pgError(name, err)
	}
	if _, err := tx.Exec(ctx, deleteRows, string(name)); err != nil {
		return pgError(name, err)
	}
	batch := &pgx.Batch{}
	for i, row := range t.Rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("source: encode %s row %d: %w", name, i, err)
		}
		batch.Queue(insertRow, string(name), i, raw)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return pgError(name, err)
	}
	return nil
}

func pgError(name TableName, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s: schema not installed: %w", ErrSourceUnavailable, name, err)
	}
	return fmt.Errorf("source: query %s: %w", name, err)
}

// Mirror stores every table of b inside tx and returns the number of rows
// written.
func Mirror(ctx context.Context, tx pgx.Tx, b Bundle) (int, error) {
	rows := 0
	for _, name := range AllTables {
		t, ok := b[name]
		if !ok {
			continue
		}
		if err := Store(ctx, tx, name, t); err != nil {
			return rows, err
		}
		rows += len(t.Rows)
	}
	return rows, nil
}
