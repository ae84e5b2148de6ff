package commission

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPeriod(t *testing.T, start, end string) Period {
	t.Helper()
	s, err := ParseDay(start)
	require.NoError(t, err)
	e, err := ParseDay(end)
	require.NoError(t, err)
	p, err := NewPeriod(s, e)
	require.NoError(t, err)
	return p
}

func TestNewPeriodRejectsInvertedRange(t *testing.T) {
	_, err := NewPeriod(Day{Day: 10, Month: 3, Year: 2025}, Day{Day: 9, Month: 3, Year: 2025})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRange))

	_, err = NewPeriod(Day{Day: 31, Month: 2, Year: 2025}, Day{Day: 9, Month: 3, Year: 2025})
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = ParseDay("not a date")
	assert.ErrorIs(t, err, ErrInvalidRange)

	p, err := NewPeriod(Day{Day: 9, Month: 3, Year: 2025}, Day{Day: 9, Month: 3, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Days())
}

func TestIndependentTripleFilter(t *testing.T) {
	p := mustPeriod(t, "25/01/2025", "05/02/2025")

	assert.False(t, p.Match(28, 1, 2025, FilterIndependent), "28 Jan is outside: day 28 > end day 5")
	assert.False(t, p.Match(3, 2, 2025, FilterIndependent), "3 Feb is outside: day 3 < start day 25")
	assert.False(t, p.Match(25, 1, 2025, FilterIndependent))

	same := mustPeriod(t, "01/01/2025", "31/03/2025")
	assert.True(t, same.Match(15, 2, 2025, FilterIndependent))
	assert.False(t, same.Match(15, 4, 2025, FilterIndependent))
	assert.False(t, same.Match(15, 2, 2024, FilterIndependent))
}

func TestCalendarFilter(t *testing.T) {
	p := mustPeriod(t, "25/01/2025", "05/02/2025")

	assert.True(t, p.Match(28, 1, 2025, FilterCalendar))
	assert.True(t, p.Match(3, 2, 2025, FilterCalendar))
	assert.True(t, p.Match(25, 1, 2025, FilterCalendar))
	assert.True(t, p.Match(5, 2, 2025, FilterCalendar))
	assert.False(t, p.Match(24, 1, 2025, FilterCalendar))
	assert.False(t, p.Match(6, 2, 2025, FilterCalendar))
	assert.False(t, p.Match(30, 2, 2025, FilterCalendar))
}

func TestPeriodDaysAndContainment(t *testing.T) {
	p := mustPeriod(t, "25/12/2024", "05/01/2025")
	assert.Equal(t, 12, p.Days())
	assert.True(t, p.ContainsDate(time.Date(2025, 1, 5, 23, 59, 0, 0, time.UTC)))
	assert.True(t, p.ContainsDate(time.Date(2024, 12, 25, 0, 0, 0, 0, time.UTC)))
	assert.False(t, p.ContainsDate(time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "25/12/2024 a 05/01/2025", p.String())
}

func TestMonthMatchers(t *testing.T) {
	cross := mustPeriod(t, "01/11/2024", "28/02/2025")

	assert.True(t, cross.CoversSellerMonth(11, 2024))
	assert.True(t, cross.CoversSellerMonth(12, 2024))
	assert.True(t, cross.CoversSellerMonth(1, 2025))
	assert.True(t, cross.CoversSellerMonth(2, 2025))
	assert.False(t, cross.CoversSellerMonth(10, 2024))
	assert.False(t, cross.CoversSellerMonth(3, 2025))

	// target tables use independent month bounds: 11..2 is empty
	assert.False(t, cross.MatchMonth(12, 2024))

	within := mustPeriod(t, "01/02/2025", "31/03/2025")
	assert.True(t, within.MatchMonth(2, 2025))
	assert.True(t, within.MatchMonth(3, 2025))
	assert.False(t, within.MatchMonth(4, 2025))
	assert.True(t, within.CoversSellerMonth(3, 2025))
	assert.False(t, within.CoversSellerMonth(3, 2024))

	multi := mustPeriod(t, "01/06/2023", "30/06/2025")
	assert.True(t, multi.CoversSellerMonth(1, 2024))
}

func TestParseModes(t *testing.T) {
	mode, err := ParseFilterMode("")
	require.NoError(t, err)
	assert.Equal(t, FilterIndependent, mode)
	mode, err = ParseFilterMode(" Calendar ")
	require.NoError(t, err)
	assert.Equal(t, FilterCalendar, mode)
	_, err = ParseFilterMode("fuzzy")
	assert.ErrorIs(t, err, ErrUnknownFilterMode)

	policy, err := ParseMatchPolicy("normalized")
	require.NoError(t, err)
	assert.Equal(t, MatchNormalized, policy.For(MatchExact))
	policy, err = ParseMatchPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MatchFold, policy.For(MatchFold))
	_, err = ParseMatchPolicy("loose")
	assert.ErrorIs(t, err, ErrUnknownMatchPolicy)
}
