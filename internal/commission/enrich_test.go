package commission

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func march(day int) time.Time {
	return time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC)
}

func joaoEnricher() Enricher {
	return Enricher{
		ThirdParty: NewServiceSet([]string{"Passeio de Barco ", "Mergulho"}),
		Rates: NewRateBook([]SellerRecord{
			{Name: "João Silva", Month: 3, Year: 2025, InHouseRate: d("0.10"), ThirdPartyRate: d("0.05")},
			{Name: "JOAO SILVA", Month: 3, Year: 2025, InHouseRate: d("0.50"), ThirdPartyRate: d("0.50")},
		}),
		Inclusive: NewInclusiveIndex([]SalesDetail{
			{Date: "2025-03-10", Seller: "João Silva", Reservation: "R-1", AllInclusive: false},
			{Date: "2025-03-11", Seller: "João Silva", Reservation: "R-2", AllInclusive: true},
			{Date: "2025-03-11", Seller: "João Silva", Reservation: "R-3", AllInclusive: false},
		}),
		Bonus: BonusRates{
			Standard:  map[string]decimal.Decimal{"João Silva": BonusRate(d("105"))},
			Inclusive: map[string]decimal.Decimal{"João Silva": BonusRate(d("125"))},
		},
		Workers: 2,
	}
}

func TestEnrichInHouseStandardSale(t *testing.T) {
	row := joaoEnricher().EnrichRow(SaleTransaction{
		Date: march(10), Seller: "João Silva", Reservation: "R-1", Service: "City Tour", Amount: d("1000.00"),
	})

	assert.Equal(t, ServiceInHouse, row.Classification)
	assert.False(t, row.AllInclusive)
	assert.Equal(t, LookupExact, row.InclusiveMatch)
	assert.True(t, row.RateFound)
	assertDec(t, "100", row.InHouseCommission)
	assertDec(t, "30", row.BonusCommission)
	assertDec(t, "0", row.ThirdPartyCommission)
	assertDec(t, "0", row.InclusiveBonusCommission)
	assertDec(t, "130", row.TotalCommission)
}

func TestEnrichThirdPartySale(t *testing.T) {
	row := joaoEnricher().EnrichRow(SaleTransaction{
		Date: march(10), Seller: "João Silva", Reservation: "R-1", Service: "Passeio de Barco", Amount: d("200"),
	})

	assert.Equal(t, ServiceThirdParty, row.Classification)
	assertDec(t, "10", row.ThirdPartyCommission)
	assertDec(t, "0", row.InHouseCommission)
	assertDec(t, "0", row.BonusCommission)
	assertDec(t, "0", row.InclusiveBonusCommission)
	assertDec(t, "10", row.TotalCommission)
}

func TestEnrichInclusiveSale(t *testing.T) {
	e := joaoEnricher()

	exact := e.EnrichRow(SaleTransaction{Date: march(11), Seller: "João Silva", Reservation: "R-2", Service: "City Tour", Amount: d("100")})
	assert.True(t, exact.AllInclusive)
	assert.Equal(t, LookupExact, exact.InclusiveMatch)
	assertDec(t, "0", exact.BonusCommission)
	assertDec(t, "4", exact.InclusiveBonusCommission)
	assertDec(t, "14", exact.TotalCommission)

	// unknown reservation falls back to the first sale of that date and seller
	fallback := e.EnrichRow(SaleTransaction{Date: march(11), Seller: "joao silva", Reservation: "R-9", Service: "City Tour", Amount: d("100")})
	assert.Equal(t, LookupDateSeller, fallback.InclusiveMatch)
	assert.True(t, fallback.AllInclusive)

	miss := e.EnrichRow(SaleTransaction{Date: march(12), Seller: "João Silva", Reservation: "R-1", Service: "City Tour", Amount: d("100")})
	assert.Equal(t, LookupMiss, miss.InclusiveMatch)
	assert.False(t, miss.AllInclusive)
	assertDec(t, "3", miss.BonusCommission)
}

func TestEnrichRateMissIsZero(t *testing.T) {
	row := joaoEnricher().EnrichRow(SaleTransaction{Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), Seller: "João Silva", Service: "City Tour", Amount: d("100")})
	assert.False(t, row.RateFound)
	assertDec(t, "0", row.InHouseCommission)
	assertDec(t, "3", row.TotalCommission)
}

func TestEnrichPreservesOrderAndExclusivity(t *testing.T) {
	e := joaoEnricher()
	services := []string{"City Tour", "Mergulho", "Passeio de Barco"}
	reservations := []string{"R-1", "R-2", "R-3", "R-4"}
	rows := make([]SaleTransaction, 0, 97)
	for i := 0; i < 97; i++ {
		rows = append(rows, SaleTransaction{
			Date:        march(10 + i%3),
			Seller:      "João Silva",
			Reservation: reservations[i%len(reservations)],
			Service:     services[i%len(services)],
			Amount:      decimal.NewFromInt(int64(10 + i)),
		})
	}

	out, err := e.Enrich(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, out, len(rows))

	total := decimal.Zero
	for i, r := range out {
		assert.Equal(t, rows[i].Amount, r.Amount, "row %d moved", i)
		assert.False(t, !r.InHouseCommission.IsZero() && !r.ThirdPartyCommission.IsZero(), fmt.Sprintf("row %d has both rate components", i))
		assert.False(t, !r.BonusCommission.IsZero() && !r.InclusiveBonusCommission.IsZero(), fmt.Sprintf("row %d has both bonus components", i))
		if r.Classification == ServiceThirdParty {
			assert.True(t, r.BonusCommission.IsZero() && r.InclusiveBonusCommission.IsZero())
		}
		total = total.Add(r.TotalCommission)
	}

	summaries := Summarize(out)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].GrandTotal.Equal(total))
	assert.Equal(t, 97, summaries[0].Rows)
}

func TestEnrichCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := joaoEnricher().Enrich(ctx, []SaleTransaction{{Date: march(10), Seller: "João Silva", Amount: d("1")}})
	require.ErrorIs(t, err, context.Canceled)

	out, err := joaoEnricher().Enrich(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummarizeMatchesRows(t *testing.T) {
	rows := []SaleTransaction{
		{Seller: "Bia", Amount: d("10"), InHouseCommission: d("1.005"), BonusCommission: d("0.333"), TotalCommission: d("1.338")},
		{Seller: "Ana", Amount: d("20"), ThirdPartyCommission: d("2.5"), TotalCommission: d("2.5")},
		{Seller: "Bia", Amount: d("5"), InHouseCommission: d("0.5"), InclusiveBonusCommission: d("0.25"), TotalCommission: d("0.75")},
	}
	got := Summarize(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "Ana", got[0].Seller)
	assert.Equal(t, "Bia", got[1].Seller)

	for _, s := range got {
		sum := decimal.Zero
		for _, r := range rows {
			if r.Seller == s.Seller {
				sum = sum.Add(r.TotalCommission)
			}
		}
		assert.Truef(t, sum.Equal(s.GrandTotal), "%s: rows %s, summary %s", s.Seller, sum, s.GrandTotal)
	}
	assertDec(t, "15", got[1].TotalSales)
	assertDec(t, "1.505", got[1].InHouse)

	totals := SummaryTotals(got)
	assertDec(t, "35", totals.TotalSales)
	assertDec(t, "4.588", totals.GrandTotal)
	assert.Equal(t, 3, totals.Rows)
}
