package commission

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ResolveTarget sums the monthly targets of seller over the period's year and
// month ranges. No matching record yields zero.
func ResolveTarget(records []SellerRecord, seller string, p Period, match NameMatch) decimal.Decimal {
	return sumTargets(records, seller, p, match, func(r SellerRecord) decimal.Decimal { return r.Target })
}

// ResolveInclusiveTarget is ResolveTarget over the all-inclusive target column.
func ResolveInclusiveTarget(records []SellerRecord, seller string, p Period, match NameMatch) decimal.Decimal {
	return sumTargets(records, seller, p, match, func(r SellerRecord) decimal.Decimal { return r.InclusiveTarget })
}

func sumTargets(records []SellerRecord, seller string, p Period, match NameMatch, value func(SellerRecord) decimal.Decimal) decimal.Decimal {
	key := match.Key(seller)
	total := decimal.Zero
	for _, r := range records {
		if match.Key(r.Name) != key || !p.MatchMonth(r.Month, r.Year) {
			continue
		}
		total = total.Add(value(r))
	}
	return total
}

// HasTarget reports whether any monthly target record of seller falls in the
// period, telling a missing target apart from a zero one.
func HasTarget(records []SellerRecord, seller string, p Period, match NameMatch) bool {
	key := match.Key(seller)
	for _, r := range records {
		if match.Key(r.Name) == key && p.MatchMonth(r.Month, r.Year) {
			return true
		}
	}
	return false
}

// DailyTargetResult carries the resolved daily goal and how it was found.
type DailyTargetResult struct {
	Total   decimal.Decimal
	Daily   decimal.Decimal
	InRange bool
	Found   bool
	Record  DailyTarget
}

// ResolveDailyTarget picks the most recent daily target of seller dated inside
// the period, falling back to the seller's most recent target overall, and
// multiplies it by the number of days in the period. Records without a
// readable date only serve as a last resort, in sheet order.
func ResolveDailyTarget(targets []DailyTarget, seller string, p Period, match NameMatch) DailyTargetResult {
	key := match.Key(seller)
	var (
		inRange, latest, undated *DailyTarget
	)
	for i := range targets {
		t := &targets[i]
		if match.Key(t.Seller) != key {
			continue
		}
		if t.Date.IsZero() {
			if undated == nil {
				undated = t
			}
			continue
		}
		if p.ContainsDate(t.Date) && (inRange == nil || t.Date.After(inRange.Date)) {
			inRange = t
		}
		if latest == nil || t.Date.After(latest.Date) {
			latest = t
		}
	}

	res := DailyTargetResult{Total: decimal.Zero, Daily: decimal.Zero}
	pick := inRange
	if pick != nil {
		res.InRange = true
	} else if latest != nil {
		pick = latest
	} else {
		pick = undated
	}
	if pick == nil {
		return res
	}
	res.Found = true
	res.Record = *pick
	res.Daily = pick.Amount
	res.Total = pick.Amount.Mul(decimal.NewFromInt(int64(p.Days())))
	return res
}

// AverageTicket divides sales by passengers; zero passengers yields zero.
func AverageTicket(sales, passengers decimal.Decimal) decimal.Decimal {
	if passengers.IsZero() {
		return decimal.Zero
	}
	return sales.DivRound(passengers, 8)
}

// Attainment expresses ticket against target in percentage points. A target
// of zero or below yields zero.
func Attainment(averageTicket, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.Zero
	}
	return averageTicket.Mul(hundred).DivRound(target, 8)
}
