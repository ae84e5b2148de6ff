// Package export renders commission reports as CSV and as the per-seller
// documents printed to PDF.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/normalize"
)

// CSVSection selects which part of a report is exported.
type CSVSection string

const (
	SectionAggregates CSVSection = "aggregates"
	SectionDetails    CSVSection = "details"
	SectionSummary    CSVSection = "summary"
)

// ParseCSVSection defaults to the aggregates grid.
func ParseCSVSection(raw string) (CSVSection, error) {
	switch CSVSection(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SectionAggregates:
		return SectionAggregates, nil
	case SectionDetails:
		return SectionDetails, nil
	case SectionSummary:
		return SectionSummary, nil
	}
	return "", fmt.Errorf("export: unknown csv section %q", raw)
}

// WriteCSV writes one section of the report.
func WriteCSV(w io.Writer, report commission.Report, section CSVSection) error {
	switch section {
	case SectionDetails:
		return WriteDetailsCSV(w, report)
	case SectionSummary:
		return WriteSummaryCSV(w, report)
	default:
		return WriteAggregatesCSV(w, report)
	}
}

// WriteAggregatesCSV emits seller metrics for ticketed categories and the
// channel split for Desks/Online.
func WriteAggregatesCSV(w io.Writer, report commission.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Tipo de Vendedor", "Vendedor", "Trilha", "Vendas", "Paxs In", "Ticket Médio", "Meta", "Alcance de Meta", "Premiação", "Vendas Luck", "Vendas Terceiros", "Meta Diária"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, section := range report.Sections {
		for _, agg := range append(append([]commission.SellerAggregate(nil), section.Standard...), section.Inclusive...) {
			premium := ""
			if section.BonusEligible {
				premium = normalize.FormatRate(agg.BonusRate)
			}
			if err := writer.Write([]string{
				string(section.Category),
				agg.Seller,
				trackLabel(agg.Track),
				normalize.FormatCurrency(agg.SalesTotal),
				passengers(agg.PassengerTotal),
				normalize.FormatCurrency(agg.AverageTicket),
				normalize.FormatCurrency(agg.Target),
				normalize.FormatPercent(agg.Attainment),
				premium,
				"", "", "",
			}); err != nil {
				return err
			}
		}
		for _, ch := range section.Channel {
			if err := writer.Write([]string{
				string(section.Category),
				ch.Seller,
				"",
				normalize.FormatCurrency(ch.InHouseSales.Add(ch.ThirdPartySales)),
				"", "",
				normalize.FormatCurrency(ch.Target),
				"", "",
				normalize.FormatCurrency(ch.InHouseSales),
				normalize.FormatCurrency(ch.ThirdPartySales),
				normalize.FormatCurrency(ch.DailyTarget),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDetailsCSV emits every enriched commission row.
func WriteDetailsCSV(w io.Writer, report commission.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Tipo de Vendedor", "Data da Venda", "Vendedor", "Código da Reserva", "Serviço", "Valor da Venda", "Venda All Inclusive", "Tipo de Serviço", "Comissão Luck", "Comissão Terceiros", "Premiação", "Premiação All Inclusive", "Valor Comissão Luck", "Valor Comissão Terceiros", "Valor Comissão Premiação", "Valor Comissão Premiação All Inclusive", "Valor Total de Comissão"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, section := range report.Sections {
		for _, row := range section.Details {
			if err := writer.Write([]string{
				string(section.Category),
				normalize.FormatDate(row.Date),
				row.Seller,
				row.Reservation,
				row.Service,
				normalize.FormatCurrency(row.Amount),
				yesNo(row.AllInclusive),
				string(row.Classification),
				normalize.FormatRate(row.InHouseRate),
				normalize.FormatRate(row.ThirdPartyRate),
				normalize.FormatRate(row.BonusRate),
				normalize.FormatRate(row.InclusiveBonusRate),
				normalize.FormatCurrency(row.InHouseCommission),
				normalize.FormatCurrency(row.ThirdPartyCommission),
				normalize.FormatCurrency(row.BonusCommission),
				normalize.FormatCurrency(row.InclusiveBonusCommission),
				normalize.FormatCurrency(row.TotalCommission),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSummaryCSV emits per-seller commission totals with a footer per
// category.
func WriteSummaryCSV(w io.Writer, report commission.Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"Tipo de Vendedor", "Vendedor", "Valor Total de Venda", "Valor Total Comissão Luck", "Valor Total Comissão Terceiros", "Valor Total Comissão Premiação", "Valor Total Comissão Premiação AI", "Valor Total de Comissão"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, section := range report.Sections {
		if len(section.Summaries) == 0 {
			continue
		}
		for _, s := range append(append([]commission.CommissionSummary(nil), section.Summaries...), section.Totals) {
			if err := writer.Write(summaryRecord(section.Category, s)); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func summaryRecord(category commission.Category, s commission.CommissionSummary) []string {
	return []string{
		string(category),
		s.Seller,
		normalize.FormatCurrency(s.TotalSales),
		normalize.FormatCurrency(s.InHouse),
		normalize.FormatCurrency(s.ThirdParty),
		normalize.FormatCurrency(s.Bonus),
		normalize.FormatCurrency(s.InclusiveBonus),
		normalize.FormatCurrency(s.GrandTotal),
	}
}

func trackLabel(t commission.Track) string {
	if t == commission.TrackInclusive {
		return "All Inclusive"
	}
	return "Sem Adicionais"
}

func yesNo(b bool) string {
	if b {
		return "Sim"
	}
	return "Não"
}

func passengers(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return normalize.FormatNumber(d)
}
