package commission

import (
	"context"
	"log/slog"
	"runtime"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Enricher classifies commission-detail rows and computes their commission
// components. All inputs are read-only, so rows are enriched in parallel.
type Enricher struct {
	ThirdParty ServiceSet
	Rates      RateBook
	Inclusive  InclusiveIndex
	Bonus      BonusRates
	Workers    int
	Logger     *slog.Logger
}

// Enrich returns a copy of rows with classification, rates and commission
// components filled in. Output order matches input order.
func (e Enricher) Enrich(ctx context.Context, rows []SaleTransaction) ([]SaleTransaction, error) {
	out := make([]SaleTransaction, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(rows) {
		workers = len(rows)
	}
	chunk := (len(rows) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rows); start += chunk {
		end := min(start+chunk, len(rows))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				out[i] = e.EnrichRow(rows[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// EnrichRow enriches a single row.
func (e Enricher) EnrichRow(row SaleTransaction) SaleTransaction {
	row.Classification = e.ThirdParty.Classify(row.Service)

	isoDate := ""
	if !row.Date.IsZero() {
		isoDate = row.Date.Format("2006-01-02")
	}
	row.AllInclusive, row.InclusiveMatch = e.Inclusive.Lookup(isoDate, row.Seller, row.Reservation)

	rates := e.Rates.Lookup(row.Seller, int(row.Date.Month()), row.Date.Year())
	row.RateFound = rates.Found
	row.InHouseRate = rates.InHouse
	row.ThirdPartyRate = rates.ThirdParty
	row.BonusRate = e.Bonus.For(row.Seller, TrackStandard)
	row.InclusiveBonusRate = e.Bonus.For(row.Seller, TrackInclusive)

	row.InHouseCommission = decimal.Zero
	row.ThirdPartyCommission = decimal.Zero
	row.BonusCommission = decimal.Zero
	row.InclusiveBonusCommission = decimal.Zero

	switch row.Classification {
	case ServiceThirdParty:
		row.ThirdPartyCommission = row.Amount.Mul(row.ThirdPartyRate)
	case ServiceInHouse:
		row.InHouseCommission = row.Amount.Mul(row.InHouseRate)
		if row.AllInclusive {
			row.InclusiveBonusCommission = row.Amount.Mul(row.InclusiveBonusRate)
		} else {
			row.BonusCommission = row.Amount.Mul(row.BonusRate)
		}
	}
	row.TotalCommission = row.InHouseCommission.
		Add(row.ThirdPartyCommission).
		Add(row.BonusCommission).
		Add(row.InclusiveBonusCommission)

	if e.Logger != nil && (!rates.Found || row.InclusiveMatch != LookupExact) {
		e.Logger.Debug("commission row lookup",
			slog.String("seller", row.Seller),
			slog.String("date", isoDate),
			slog.String("reservation", row.Reservation),
			slog.Bool("rate_found", rates.Found),
			slog.String("inclusive_match", string(row.InclusiveMatch)),
		)
	}
	return row
}
