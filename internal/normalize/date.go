package normalize

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

const isoLayout = "2006-01-02"

// ParseDate reads dd/mm/yyyy or yyyy-mm-dd, ignoring a trailing time part.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if date, _, found := strings.Cut(s, " "); found {
		s = date
	}
	if date, _, found := strings.Cut(s, "T"); found {
		s = date
	}
	layout := "2006-1-2"
	if strings.Contains(s, "/") {
		layout = "2/1/2006"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DateValue reads a date cell that may already be a time.Time.
func DateValue(v any) (time.Time, bool) {
	switch x := v.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if x.IsZero() {
			return time.Time{}, false
		}
		y, m, d := x.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return ParseDate(cast.ToString(v))
}

// ISODate rewrites a date cell as yyyy-mm-dd.
func ISODate(v any) (string, bool) {
	t, ok := DateValue(v)
	if !ok {
		return "", false
	}
	return t.Format(isoLayout), true
}

// FormatDate renders t as dd/mm/yyyy.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
