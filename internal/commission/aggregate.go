package commission

import (
	"github.com/shopspring/decimal"

	"github.com/Glebrito/Analisediaria/internal/normalize"
)

// NameMatch selects how a seller name is compared with a row's name.
type NameMatch int

const (
	// MatchExact compares names byte for byte.
	MatchExact NameMatch = iota
	// MatchFold trims and upper-cases both sides.
	MatchFold
	// MatchNormalized compares NormalizeName forms.
	MatchNormalized
)

// Key returns the comparison key of name under the rule.
func (m NameMatch) Key(name string) string {
	switch m {
	case MatchFold:
		return normalize.FoldName(name)
	case MatchNormalized:
		return normalize.NormalizeName(name)
	}
	return name
}

// Same reports whether a and b name the same seller under the rule.
func (m NameMatch) Same(a, b string) bool {
	return m.Key(a) == m.Key(b)
}

func (m NameMatch) String() string {
	switch m {
	case MatchFold:
		return "fold"
	case MatchNormalized:
		return "normalized"
	}
	return "exact"
}

// SumBySeller sums amount over the rows that keep accepts, grouped by the
// requested sellers. Every requested seller is present in the result; sellers
// with no rows map to zero. Rows whose key matches no requested seller are
// ignored. When two requested sellers share a key both receive the sum.
func SumBySeller[T any](sellers []string, rows []T, key func(T) string, match NameMatch, amount func(T) decimal.Decimal, keep func(T) bool) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal, len(sellers))
	byKey := make(map[string]decimal.Decimal, len(sellers))
	for _, s := range sellers {
		totals[s] = decimal.Zero
		byKey[match.Key(s)] = decimal.Zero
	}
	for _, row := range rows {
		if keep != nil && !keep(row) {
			continue
		}
		k := match.Key(key(row))
		sum, ok := byKey[k]
		if !ok {
			continue
		}
		byKey[k] = sum.Add(amount(row))
	}
	for _, s := range sellers {
		totals[s] = byKey[match.Key(s)]
	}
	return totals
}

// salesInPeriod keeps the sales rows inside the period.
func salesInPeriod(rows []SaleRecord, p Period, mode FilterMode) []SaleRecord {
	out := make([]SaleRecord, 0, len(rows))
	for _, r := range rows {
		if p.Match(r.Day, r.Month, r.Year, mode) {
			out = append(out, r)
		}
	}
	return out
}

func passengersInPeriod(rows []PassengerRecord, p Period, mode FilterMode) []PassengerRecord {
	out := make([]PassengerRecord, 0, len(rows))
	for _, r := range rows {
		if p.Match(r.Day, r.Month, r.Year, mode) {
			out = append(out, r)
		}
	}
	return out
}

// TrackSales sums in-house Valor Real per seller for one track. Rows whose
// all-inclusive cell is blank or unreadable count on neither track.
func TrackSales(sellers []string, rows []SaleRecord, track Track, match NameMatch) map[string]decimal.Decimal {
	want := normalize.FlagNo
	if track == TrackInclusive {
		want = normalize.FlagYes
	}
	return SumBySeller(sellers, rows,
		func(r SaleRecord) string { return r.Seller },
		match,
		func(r SaleRecord) decimal.Decimal { return r.RealAmount },
		func(r SaleRecord) bool { return r.Service == ServiceInHouse && r.AllInclusive == want },
	)
}

// TrackPassengers sums passenger counts per guide for one track.
func TrackPassengers(sellers []string, rows []PassengerRecord, track Track, match NameMatch) map[string]decimal.Decimal {
	want := normalize.FlagNo
	if track == TrackInclusive {
		want = normalize.FlagYes
	}
	return SumBySeller(sellers, rows,
		func(r PassengerRecord) string { return r.Guide },
		match,
		func(r PassengerRecord) decimal.Decimal { return r.Passengers },
		func(r PassengerRecord) bool { return r.AllInclusive == want },
	)
}

// ChannelSales sums Valor Final per seller for one service type.
func ChannelSales(sellers []string, rows []SaleRecord, service ServiceType, match NameMatch) map[string]decimal.Decimal {
	return SumBySeller(sellers, rows,
		func(r SaleRecord) string { return r.Seller },
		match,
		func(r SaleRecord) decimal.Decimal { return r.FinalAmount },
		func(r SaleRecord) bool { return r.Service == service },
	)
}
