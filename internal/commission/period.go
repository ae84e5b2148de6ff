package commission

import (
	"fmt"
	"time"

	"github.com/Glebrito/Analisediaria/internal/normalize"
)

// Day is a calendar day as the sheets store it: separate day, month and year.
type Day struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

// DayOf converts a time into a Day.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Day: d, Month: int(m), Year: y}
}

// ParseDay reads "dd/mm/yyyy" or "yyyy-mm-dd".
func ParseDay(s string) (Day, error) {
	t, ok := normalize.ParseDate(s)
	if !ok {
		return Day{}, fmt.Errorf("%w: cannot read date %q", ErrInvalidRange, s)
	}
	return DayOf(t), nil
}

// Time returns the day at midnight UTC.
func (d Day) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Valid reports whether the triple names a real calendar day.
func (d Day) Valid() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 || d.Year < 1 {
		return false
	}
	return DayOf(d.Time()) == d
}

func (d Day) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// Period is an inclusive range of days. Construct it with NewPeriod.
type Period struct {
	Start Day `json:"start"`
	End   Day `json:"end"`
}

// NewPeriod validates the range. Start after end is rejected, never swapped.
func NewPeriod(start, end Day) (Period, error) {
	if !start.Valid() {
		return Period{}, fmt.Errorf("%w: start %s is not a calendar date", ErrInvalidRange, start)
	}
	if !end.Valid() {
		return Period{}, fmt.Errorf("%w: end %s is not a calendar date", ErrInvalidRange, end)
	}
	if start.Time().After(end.Time()) {
		return Period{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start, end)
	}
	return Period{Start: start, End: end}, nil
}

// Match reports whether a day/month/year row falls in the period.
//
// In FilterIndependent mode each component is compared against both bounds on
// its own, so 28/01 is outside 25/01..05/02 because 28 > 5.
func (p Period) Match(day, month, year int, mode FilterMode) bool {
	if mode == FilterCalendar {
		d := Day{Day: day, Month: month, Year: year}
		if !d.Valid() {
			return false
		}
		return p.ContainsDate(d.Time())
	}
	return between(year, p.Start.Year, p.End.Year) &&
		between(month, p.Start.Month, p.End.Month) &&
		between(day, p.Start.Day, p.End.Day)
}

// MatchMonth reports whether a monthly record (target tables) falls in the
// period: year within the year bounds and month within the month bounds.
func (p Period) MatchMonth(month, year int) bool {
	return between(year, p.Start.Year, p.End.Year) && between(month, p.Start.Month, p.End.Month)
}

// CoversSellerMonth reports whether a roster month belongs to the period,
// following the calendar across year boundaries.
func (p Period) CoversSellerMonth(month, year int) bool {
	ys, ye := p.Start.Year, p.End.Year
	if ys == ye {
		return year == ys && between(month, p.Start.Month, p.End.Month)
	}
	return (year == ys && month >= p.Start.Month) ||
		(year == ye && month <= p.End.Month) ||
		(year > ys && year < ye)
}

// ContainsDate reports whether t's calendar day lies in the period.
func (p Period) ContainsDate(t time.Time) bool {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return !day.Before(p.Start.Time()) && !day.After(p.End.Time())
}

// Days returns the number of calendar days in the period, bounds included.
func (p Period) Days() int {
	return int(p.End.Time().Sub(p.Start.Time()).Hours()/24) + 1
}

func (p Period) String() string {
	return p.Start.String() + " a " + p.End.String()
}

func between(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
