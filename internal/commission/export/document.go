package export

import (
	"errors"
	"fmt"
	"time"

	"github.com/Glebrito/Analisediaria/internal/commission"
	"github.com/Glebrito/Analisediaria/internal/normalize"
)

// DetailRowsPerPage is how many detail rows fit one landscape page.
const DetailRowsPerPage = 25

// ErrSellerNotFound reports a document request for a seller absent from the
// report.
var ErrSellerNotFound = errors.New("export: seller not in report")

// Kind selects a per-seller document.
type Kind string

const (
	KindStatistical Kind = "statistical"
	KindCommission  Kind = "commission"
)

// ParseKind defaults to the statistical document.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case "", KindStatistical:
		return KindStatistical, nil
	case KindCommission:
		return KindCommission, nil
	}
	return "", fmt.Errorf("export: unknown document kind %q", raw)
}

// Line is one label/value row of a grid.
type Line struct {
	Label string
	Value string
	Total bool
}

// Grid is a titled two-column table.
type Grid struct {
	Title string
	Lines []Line
}

// Header is shared by both documents.
type Header struct {
	Title       string
	Seller      string
	Category    commission.Category
	Period      string
	GeneratedAt time.Time
}

// StatisticalDocument is the seller's metrics and commission summary.
type StatisticalDocument struct {
	Header
	Standard  *Grid
	Inclusive *Grid
	Summary   Grid
}

// CommissionDocument is the seller's detail rows, paginated.
type CommissionDocument struct {
	Header
	Columns []string
	Pages   [][][]string
	Summary Grid
}

// Rows counts detail rows across pages.
func (d CommissionDocument) Rows() int {
	n := 0
	for _, page := range d.Pages {
		n += len(page)
	}
	return n
}

// locate finds the seller's section. An empty category searches every
// section.
func locate(report commission.Report, category commission.Category, seller string) (commission.Section, string, error) {
	for _, section := range report.Sections {
		if category != "" && section.Category != category {
			continue
		}
		for _, name := range section.Sellers {
			if name == seller || normalize.NormalizeName(name) == normalize.NormalizeName(seller) {
				return section, name, nil
			}
		}
	}
	return commission.Section{}, "", fmt.Errorf("%w: %s", ErrSellerNotFound, seller)
}

func header(title string, report commission.Report, section commission.Section, seller string) Header {
	return Header{
		Title:       title,
		Seller:      seller,
		Category:    section.Category,
		Period:      report.Period.String(),
		GeneratedAt: report.GeneratedAt,
	}
}

// BuildStatistical assembles the statistical document of one seller.
func BuildStatistical(report commission.Report, category commission.Category, seller string) (StatisticalDocument, error) {
	section, name, err := locate(report, category, seller)
	if err != nil {
		return StatisticalDocument{}, err
	}
	doc := StatisticalDocument{Header: header("RELATÓRIO ESTATÍSTICO", report, section, name)}

	if agg, ok := findAggregate(section.Standard, name); ok {
		doc.Standard = metricGrid("Vendas Luck Sem Adicionais", "", agg, section.BonusEligible)
	}
	if agg, ok := findAggregate(section.Inclusive, name); ok {
		doc.Inclusive = metricGrid("Vendas Luck Sem Adicionais All Inclusive", " All Inclusive", agg, section.BonusEligible)
	}
	doc.Summary = summaryGrid(findSummary(section, name), section.BonusEligible)
	return doc, nil
}

// BuildCommission assembles the commission detail document of one seller.
func BuildCommission(report commission.Report, category commission.Category, seller string) (CommissionDocument, error) {
	section, name, err := locate(report, category, seller)
	if err != nil {
		return CommissionDocument{}, err
	}
	doc := CommissionDocument{
		Header:  header("RELATÓRIO DE COMISSÃO", report, section, name),
		Columns: detailColumns(section.BonusEligible),
		Summary: summaryGrid(findSummary(section, name), section.BonusEligible),
	}
	var page [][]string
	for _, row := range section.Details {
		if row.Seller != name {
			continue
		}
		page = append(page, detailCells(row, section.BonusEligible))
		if len(page) == DetailRowsPerPage {
			doc.Pages = append(doc.Pages, page)
			page = nil
		}
	}
	if len(page) > 0 {
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}

func findAggregate(aggs []commission.SellerAggregate, seller string) (commission.SellerAggregate, bool) {
	for _, agg := range aggs {
		if agg.Seller == seller {
			return agg, true
		}
	}
	return commission.SellerAggregate{}, false
}

func findSummary(section commission.Section, seller string) commission.CommissionSummary {
	for _, s := range section.Summaries {
		if s.Seller == seller {
			return s
		}
	}
	return commission.CommissionSummary{Seller: seller}
}

func metricGrid(title, suffix string, agg commission.SellerAggregate, bonus bool) *Grid {
	grid := &Grid{Title: title, Lines: []Line{
		{Label: title, Value: normalize.FormatCurrency(agg.SalesTotal)},
		{Label: "Paxs In" + suffix, Value: passengers(agg.PassengerTotal)},
		{Label: "Ticket Médio" + suffix, Value: normalize.FormatCurrency(agg.AverageTicket)},
		{Label: "Meta" + suffix, Value: normalize.FormatCurrency(agg.Target)},
		{Label: "Alcance de Meta" + suffix, Value: normalize.FormatPercent(agg.Attainment)},
	}}
	if bonus {
		grid.Lines = append(grid.Lines, Line{Label: "Premiação" + suffix, Value: normalize.FormatRate(agg.BonusRate)})
	}
	return grid
}

func summaryGrid(s commission.CommissionSummary, bonus bool) Grid {
	grid := Grid{Title: "Resumo de Comissão", Lines: []Line{
		{Label: "Valor Total de Venda", Value: normalize.FormatCurrency(s.TotalSales)},
		{Label: "Valor Total Comissão Luck", Value: normalize.FormatCurrency(s.InHouse)},
		{Label: "Valor Total Comissão Terceiros", Value: normalize.FormatCurrency(s.ThirdParty)},
	}}
	if bonus {
		grid.Lines = append(grid.Lines,
			Line{Label: "Valor Total Comissão Premiação", Value: normalize.FormatCurrency(s.Bonus)},
			Line{Label: "Valor Total Comissão Premiação AI", Value: normalize.FormatCurrency(s.InclusiveBonus)},
		)
	}
	grid.Lines = append(grid.Lines, Line{Label: "VALOR TOTAL DE COMISSÃO", Value: normalize.FormatCurrency(s.GrandTotal), Total: true})
	return grid
}

func detailColumns(bonus bool) []string {
	cols := []string{"Data da Venda", "Código da Reserva", "Serviço", "Valor da Venda", "Venda All Inclusive", "Tipo de Serviço", "Comissão Luck", "Comissão Terceiros"}
	if bonus {
		cols = append(cols, "Premiação", "Premiação All Inclusive")
	}
	cols = append(cols, "Valor Comissão Luck", "Valor Comissão Terceiros")
	if bonus {
		cols = append(cols, "Valor Comissão Premiação", "Valor Comissão Premiação All Inclusive")
	}
	return append(cols, "Valor Total de Comissão")
}

func detailCells(row commission.SaleTransaction, bonus bool) []string {
	cells := []string{
		normalize.FormatDate(row.Date),
		row.Reservation,
		row.Service,
		normalize.FormatCurrency(row.Amount),
		yesNo(row.AllInclusive),
		string(row.Classification),
		normalize.FormatRate(row.InHouseRate),
		normalize.FormatRate(row.ThirdPartyRate),
	}
	if bonus {
		cells = append(cells, normalize.FormatRate(row.BonusRate), normalize.FormatRate(row.InclusiveBonusRate))
	}
	cells = append(cells, normalize.FormatCurrency(row.InHouseCommission), normalize.FormatCurrency(row.ThirdPartyCommission))
	if bonus {
		cells = append(cells, normalize.FormatCurrency(row.BonusCommission), normalize.FormatCurrency(row.InclusiveBonusCommission))
	}
	return append(cells, normalize.FormatCurrency(row.TotalCommission))
}
