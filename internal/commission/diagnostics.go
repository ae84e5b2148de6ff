package commission

import (
	"errors"
	"sort"

	"github.com/Glebrito/Analisediaria/internal/sheet"
)

// Degradation kinds reported in Diagnostics and metrics.
const (
	KindMissingColumns = "missing_columns"
	KindUnparseable    = "unparseable_value"
	KindLookupMiss     = "lookup_miss"
)

// Lookup miss subjects.
const (
	MissRate      = "rate"
	MissTarget    = "target"
	MissInclusive = "inclusive_flag"
	MissDaily     = "daily_target"
)

// MissingColumns describes a table that degraded to no records.
type MissingColumns struct {
	Table    string   `json:"table"`
	Missing  []string `json:"missing"`
	Resolved int      `json:"resolved"`
	Required int      `json:"required"`
}

// MissRecord is a join that found no record. The numeric result is the same
// as a matched zero; the miss is kept so the two can be told apart.
type MissRecord struct {
	Subject string `json:"subject"`
	Seller  string `json:"seller"`
	Key     string `json:"key"`
}

// Diagnostics collects every degraded condition met while building a report.
type Diagnostics struct {
	MissingColumns   []MissingColumns     `json:"missing_columns,omitempty"`
	Unparseable      map[string]int       `json:"unparseable,omitempty"`
	LookupMisses     []MissRecord         `json:"lookup_misses,omitempty"`
	InclusiveMatches map[LookupResult]int `json:"inclusive_matches,omitempty"`

	seen map[MissRecord]struct{}
}

// Degradation is one counted condition, flattened for metrics.
type Degradation struct {
	Kind  string
	Table string
	Count int
}

func (d *Diagnostics) missing(err error) {
	var mce *sheet.MissingColumnError
	if !errors.As(err, &mce) {
		return
	}
	names := make([]string, len(mce.Missing))
	for i, f := range mce.Missing {
		names[i] = string(f)
	}
	d.MissingColumns = append(d.MissingColumns, MissingColumns{
		Table:    mce.Table,
		Missing:  names,
		Resolved: mce.Resolved,
		Required: mce.Required,
	})
}

func (d *Diagnostics) unparseable(table string, n int) {
	if n == 0 {
		return
	}
	if d.Unparseable == nil {
		d.Unparseable = make(map[string]int)
	}
	d.Unparseable[table] += n
}

func (d *Diagnostics) miss(subject, seller, key string) {
	m := MissRecord{Subject: subject, Seller: seller, Key: key}
	if d.seen == nil {
		d.seen = make(map[MissRecord]struct{})
	}
	if _, dup := d.seen[m]; dup {
		return
	}
	d.seen[m] = struct{}{}
	d.LookupMisses = append(d.LookupMisses, m)
}

func (d *Diagnostics) inclusive(res LookupResult) {
	if d.InclusiveMatches == nil {
		d.InclusiveMatches = make(map[LookupResult]int)
	}
	d.InclusiveMatches[res]++
}

// Degradations flattens the diagnostics into countable entries, sorted by
// kind then table.
func (d Diagnostics) Degradations() []Degradation {
	var out []Degradation
	for _, m := range d.MissingColumns {
		out = append(out, Degradation{Kind: KindMissingColumns, Table: m.Table, Count: 1})
	}
	for table, n := range d.Unparseable {
		out = append(out, Degradation{Kind: KindUnparseable, Table: table, Count: n})
	}
	misses := map[string]int{}
	for _, m := range d.LookupMisses {
		misses[m.Subject]++
	}
	for subject, n := range misses {
		out = append(out, Degradation{Kind: KindLookupMiss, Table: subject, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Table < out[j].Table
	})
	return out
}

// Empty reports whether nothing degraded.
func (d Diagnostics) Empty() bool {
	return len(d.MissingColumns) == 0 && len(d.Unparseable) == 0 && len(d.LookupMisses) == 0
}
