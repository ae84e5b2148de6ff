package commission

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summarize reduces enriched rows to one summary per seller, sorted by name.
// GrandTotal is the sum of the four component totals, so it equals the sum of
// the rows' TotalCommission exactly.
func Summarize(rows []SaleTransaction) []CommissionSummary {
	bySeller := make(map[string]*CommissionSummary)
	order := make([]string, 0)
	for _, r := range rows {
		s, ok := bySeller[r.Seller]
		if !ok {
			s = &CommissionSummary{
				Seller:         r.Seller,
				TotalSales:     decimal.Zero,
				InHouse:        decimal.Zero,
				ThirdParty:     decimal.Zero,
				Bonus:          decimal.Zero,
				InclusiveBonus: decimal.Zero,
			}
			bySeller[r.Seller] = s
			order = append(order, r.Seller)
		}
		s.TotalSales = s.TotalSales.Add(r.Amount)
		s.InHouse = s.InHouse.Add(r.InHouseCommission)
		s.ThirdParty = s.ThirdParty.Add(r.ThirdPartyCommission)
		s.Bonus = s.Bonus.Add(r.BonusCommission)
		s.InclusiveBonus = s.InclusiveBonus.Add(r.InclusiveBonusCommission)
		s.Rows++
	}
	sort.Strings(order)
	out := make([]CommissionSummary, 0, len(order))
	for _, name := range order {
		s := bySeller[name]
		s.GrandTotal = s.InHouse.Add(s.ThirdParty).Add(s.Bonus).Add(s.InclusiveBonus)
		out = append(out, *s)
	}
	return out
}

// SummaryTotals folds several summaries into one footer line.
func SummaryTotals(summaries []CommissionSummary) CommissionSummary {
	total := CommissionSummary{
		Seller:         "Total",
		TotalSales:     decimal.Zero,
		InHouse:        decimal.Zero,
		ThirdParty:     decimal.Zero,
		Bonus:          decimal.Zero,
		InclusiveBonus: decimal.Zero,
		GrandTotal:     decimal.Zero,
	}
	for _, s := range summaries {
		total.TotalSales = total.TotalSales.Add(s.TotalSales)
		total.InHouse = total.InHouse.Add(s.InHouse)
		total.ThirdParty = total.ThirdParty.Add(s.ThirdParty)
		total.Bonus = total.Bonus.Add(s.Bonus)
		total.InclusiveBonus = total.InclusiveBonus.Add(s.InclusiveBonus)
		total.GrandTotal = total.GrandTotal.Add(s.GrandTotal)
		total.Rows += s.Rows
	}
	return total
}
