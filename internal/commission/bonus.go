package commission

import (
	"github.com/shopspring/decimal"

	"github.com/Glebrito/Analisediaria/internal/normalize"
)

// bracket maps an attainment floor (percentage points) to a bonus rate.
type bracket struct {
	floor decimal.Decimal
	rate  decimal.Decimal
}

// brackets are ordered highest first; the first floor reached wins.
var brackets = []bracket{
	{decimal.NewFromInt(150), decimal.RequireFromString("0.05")},
	{decimal.NewFromInt(120), decimal.RequireFromString("0.04")},
	{decimal.NewFromInt(100), decimal.RequireFromString("0.03")},
	{decimal.NewFromInt(90), decimal.RequireFromString("0.02")},
	{decimal.NewFromInt(80), decimal.RequireFromString("0.01")},
}

// BonusRate maps attainment in percentage points to a bonus rate fraction.
func BonusRate(attainment decimal.Decimal) decimal.Decimal {
	for _, b := range brackets {
		if attainment.GreaterThanOrEqual(b.floor) {
			return b.rate
		}
	}
	return decimal.Zero
}

// BonusRateText reads a displayed attainment such as "105,50%". Unreadable
// text earns no bonus.
func BonusRateText(s string) decimal.Decimal {
	points, ok := normalize.ParsePercentPoints(s)
	if !ok {
		return decimal.Zero
	}
	return BonusRate(points)
}

// BonusRates holds the per-seller bonus rates of one report run, one map per
// track. Sellers absent from a map earn no bonus on that track.
type BonusRates struct {
	Standard  map[string]decimal.Decimal
	Inclusive map[string]decimal.Decimal
}

// NewBonusRates collects the bonus rates of the given aggregates.
func NewBonusRates(aggregates ...[]SellerAggregate) BonusRates {
	rates := BonusRates{
		Standard:  map[string]decimal.Decimal{},
		Inclusive: map[string]decimal.Decimal{},
	}
	for _, group := range aggregates {
		for _, a := range group {
			switch a.Track {
			case TrackInclusive:
				rates.Inclusive[a.Seller] = a.BonusRate
			default:
				rates.Standard[a.Seller] = a.BonusRate
			}
		}
	}
	return rates
}

// For returns seller's rate on track: an exact name hit first, then the first
// entry whose normalized name matches.
func (b BonusRates) For(seller string, track Track) decimal.Decimal {
	m := b.Standard
	if track == TrackInclusive {
		m = b.Inclusive
	}
	if r, ok := m[seller]; ok {
		return r
	}
	key := normalize.NormalizeName(seller)
	if key == "" {
		return decimal.Zero
	}
	best := ""
	found := false
	for name := range m {
		if normalize.NormalizeName(name) != key {
			continue
		}
		if !found || name < best {
			best, found = name, true
		}
	}
	if !found {
		return decimal.Zero
	}
	return m[best]
}
