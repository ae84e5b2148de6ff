// Package sheet holds the raw tabular form of spreadsheet tabs and the column
// resolver that maps each source's headers onto canonical fields.
package sheet

import (
	"strings"

	"github.com/spf13/cast"
)

// Row is one record keyed by the source header text.
type Row map[string]any

// Table is a fetched tab: header order plus records.
type Table struct {
	Name    string   `json:"name"`
	Headers []string `json:"headers"`
	Rows    []Row    `json:"rows"`
}

// Empty reports whether the table carries no records.
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// HasHeader reports whether header is present verbatim.
func (t Table) HasHeader(header string) bool {
	for _, h := range t.Headers {
		if h == header {
			return true
		}
	}
	return false
}

// Get returns the raw cell for a header, nil when absent.
func (r Row) Get(header string) any {
	if r == nil || header == "" {
		return nil
	}
	return r[header]
}

// Text returns the cell as trimmed text.
func (r Row) Text(header string) string {
	return strings.TrimSpace(cast.ToString(r.Get(header)))
}

// FromRecords builds a table from a header row and positional records, the
// shape CSV exports arrive in. Short records are padded with empty cells.
func FromRecords(name string, header []string, records [][]string) Table {
	headers := make([]string, len(header))
	for i, h := range header {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		row := make(Row, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = ""
			}
		}
		rows = append(rows, row)
	}
	return Table{Name: name, Headers: headers, Rows: rows}
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
