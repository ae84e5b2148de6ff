package sheet

import (
	"fmt"
	"sort"
	"strings"
)

// Field names a canonical column.
type Field string

// Aliases maps a canonical field to the header spellings accepted for it, in
// priority order.
type Aliases map[Field][]string

// Schema describes what a decoder needs from a table. Min is the number of
// fields that must resolve before the table is usable.
type Schema struct {
	Table  string
	Fields Aliases
	Min    int
}

// Resolution is the outcome of matching a schema against real headers.
type Resolution struct {
	Columns map[Field]string
	Missing []Field
}

// Resolve picks, for each field, the first alias present in headers.
func Resolve(headers []string, aliases Aliases) Resolution {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}
	res := Resolution{Columns: make(map[Field]string, len(aliases))}
	for field, candidates := range aliases {
		found := false
		for _, alias := range candidates {
			if _, ok := present[alias]; ok {
				res.Columns[field] = alias
				found = true
				break
			}
		}
		if !found {
			res.Missing = append(res.Missing, field)
		}
	}
	sort.Slice(res.Missing, func(i, j int) bool { return res.Missing[i] < res.Missing[j] })
	return res
}

// Satisfies reports whether at least min fields resolved.
func (r Resolution) Satisfies(min int) bool {
	return len(r.Columns) >= min
}

// Has reports whether field resolved.
func (r Resolution) Has(field Field) bool {
	_, ok := r.Columns[field]
	return ok
}

// Column returns the resolved header for field, or "".
func (r Resolution) Column(field Field) string {
	return r.Columns[field]
}

// Cell reads field from row through the resolution.
func (r Resolution) Cell(row Row, field Field) any {
	return row.Get(r.Columns[field])
}

// Text reads field from row as trimmed text.
func (r Resolution) Text(row Row, field Field) string {
	return row.Text(r.Columns[field])
}

// Bind resolves the schema against a table. A schema that is not satisfied
// yields a *MissingColumnError together with the partial resolution.
func (s Schema) Bind(t Table) (Resolution, error) {
	res := Resolve(t.Headers, s.Fields)
	if !res.Satisfies(s.Min) {
		return res, &MissingColumnError{Table: s.Table, Missing: res.Missing, Resolved: len(res.Columns), Required: s.Min}
	}
	return res, nil
}

// MissingColumnError reports a table that lacks required columns. It is a
// degraded condition: the affected computation yields no records.
type MissingColumnError struct {
	Table    string
	Missing  []Field
	Resolved int
	Required int
}

func (e *MissingColumnError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("sheet: table %q resolved %d of %d required columns (missing: %s)", e.Table, e.Resolved, e.Required, strings.Join(names, ", "))
}
