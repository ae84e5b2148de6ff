package commission

import (
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Glebrito/Analisediaria/internal/normalize"
	"github.com/Glebrito/Analisediaria/internal/sheet"
)

// Decoder turns raw tables into typed records. A table whose schema does not
// resolve decodes to no records; rows with unreadable keys are dropped. Both
// are recorded in the Diagnostics passed to each call.
type Decoder struct {
	Catalog        sheet.Catalog
	PassengerScale decimal.Decimal
	Logger         *slog.Logger
}

// NewDecoder returns a decoder over catalog. A zero scale means counts are
// stored as-is.
func NewDecoder(catalog sheet.Catalog, passengerScale decimal.Decimal, logger *slog.Logger) Decoder {
	if catalog == nil {
		catalog = sheet.DefaultCatalog()
	}
	if !passengerScale.IsPositive() {
		passengerScale = decimal.NewFromInt(1)
	}
	return Decoder{Catalog: catalog, PassengerScale: passengerScale, Logger: logger}
}

func (d Decoder) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Decoder) bind(t sheet.Table, schema string, diag *Diagnostics) (sheet.Resolution, bool) {
	if t.Empty() {
		return sheet.Resolution{}, false
	}
	res, err := d.Catalog.Schema(schema).Bind(t)
	if err != nil {
		diag.missing(err)
		d.logger().Warn("table degraded to empty", slog.String("table", t.Name), slog.String("schema", schema), slog.Any("error", err))
		return res, false
	}
	return res, true
}

func (d Decoder) dropped(table string, n int, diag *Diagnostics) {
	if n == 0 {
		return
	}
	diag.unparseable(table, n)
	d.logger().Warn("rows dropped", slog.String("table", table), slog.Int("rows", n))
}

type dayFields struct {
	day, month, year int
}

func readDay(res sheet.Resolution, row sheet.Row) (dayFields, bool) {
	day, ok := normalize.Int(res.Cell(row, sheet.FieldDay))
	if !ok {
		return dayFields{}, false
	}
	month, ok := normalize.MonthToNumber(res.Cell(row, sheet.FieldMonth))
	if !ok {
		return dayFields{}, false
	}
	year, ok := normalize.Int(res.Cell(row, sheet.FieldYear))
	if !ok {
		return dayFields{}, false
	}
	return dayFields{day: day, month: month, year: year}, true
}

func readMonth(res sheet.Resolution, row sheet.Row) (int, int, bool) {
	month, ok := normalize.MonthToNumber(res.Cell(row, sheet.FieldMonth))
	if !ok {
		return 0, 0, false
	}
	year, ok := normalize.Int(res.Cell(row, sheet.FieldYear))
	if !ok {
		return 0, 0, false
	}
	return month, year, true
}

// Sellers decodes the roster/target table.
func (d Decoder) Sellers(t sheet.Table, diag *Diagnostics) []SellerRecord {
	res, ok := d.bind(t, sheet.SchemaSellers, diag)
	if !ok {
		return nil
	}
	out := make([]SellerRecord, 0, len(t.Rows))
	bad := 0
	for _, row := range t.Rows {
		name := res.Text(row, sheet.FieldSeller)
		if name == "" {
			continue
		}
		month, year, ok := readMonth(res, row)
		if !ok {
			bad++
			continue
		}
		out = append(out, SellerRecord{
			Name:            name,
			Category:        Category(res.Text(row, sheet.FieldCategory)),
			Month:           month,
			Year:            year,
			Target:          normalize.ParseCurrencyValue(res.Cell(row, sheet.FieldTarget)),
			InclusiveTarget: normalize.ParseCurrencyValue(res.Cell(row, sheet.FieldInclusiveTarget)),
		})
	}
	d.dropped(t.Name, bad, diag)
	return out
}

// Rates decodes the commission rate table.
func (d Decoder) Rates(t sheet.Table, diag *Diagnostics) []SellerRecord {
	res, ok := d.bind(t, sheet.SchemaRates, diag)
	if !ok {
		return nil
	}
	out := make([]SellerRecord, 0, len(t.Rows))
	bad := 0
	for _, row := range t.Rows {
		name := res.Text(row, sheet.FieldSeller)
		if name == "" {
			continue
		}
		month, year, ok := readMonth(res, row)
		if !ok {
			bad++
			continue
		}
		rec := SellerRecord{Name: name, Month: month, Year: year, InHouseRate: decimal.Zero, ThirdPartyRate: decimal.Zero}
		if rate, ok := normalize.PercentageValue(res.Cell(row, sheet.FieldInHouseRate)); ok {
			rec.InHouseRate, rec.HasInHouseRate = rate, true
		}
		if rate, ok := normalize.PercentageValue(res.Cell(row, sheet.FieldThirdPartyRate)); ok {
			rec.ThirdPartyRate, rec.HasThirdPartyRate = rate, true
		}
		out = append(out, rec)
	}
	d.dropped(t.Name, bad, diag)
	return out
}

// Sales decodes the sales-facts table for the ticketed tracks (Valor Real).
func (d Decoder) Sales(t sheet.Table, diag *Diagnostics) []SaleRecord {
	return d.sales(t, sheet.SchemaSales, diag)
}

// ChannelSales decodes the sales-facts table for Desks/Online (Valor Final).
func (d Decoder) ChannelSales(t sheet.Table, diag *Diagnostics) []SaleRecord {
	return d.sales(t, sheet.SchemaChannelSales, diag)
}

func (d Decoder) sales(t sheet.Table, schema string, diag *Diagnostics) []SaleRecord {
	res, ok := d.bind(t, schema, diag)
	if !ok {
		return nil
	}
	out := make([]SaleRecord, 0, len(t.Rows))
	bad := 0
	for _, row := range t.Rows {
		seller := res.Text(row, sheet.FieldSeller)
		if seller == "" {
			continue
		}
		day, ok := readDay(res, row)
		if !ok {
			bad++
			continue
		}
		out = append(out, SaleRecord{
			Day:          day.day,
			Month:        day.month,
			Year:         day.year,
			Seller:       seller,
			RealAmount:   normalize.ParseCurrencyValue(res.Cell(row, sheet.FieldRealAmount)),
			FinalAmount:  normalize.ParseCurrencyValue(res.Cell(row, sheet.FieldFinalAmount)),
			Service:      ParseServiceType(res.Text(row, sheet.FieldServiceType)),
			AllInclusive: normalize.ParseFlag(res.Cell(row, sheet.FieldAllInclusive)),
		})
	}
	d.dropped(t.Name, bad, diag)
	return out
}

// SalesDetails decodes the sales-facts table as the all-inclusive cross
// reference.
func (d Decoder) SalesDetails(t sheet.Table, diag *Diagnostics) []SalesDetail {
	res, ok := d.bind(t, sheet.SchemaSalesDetail, diag)
	if !ok {
		return nil
	}
	out := make([]SalesDetail, 0, len(t.Rows))
	for _, row := range t.Rows {
		iso, ok := normalize.ISODate(res.Cell(row, sheet.FieldDate))
		if !ok {
			continue
		}
		out = append(out, SalesDetail{
			Date:         iso,
			Seller:       res.Text(row, sheet.FieldSeller),
			Reservation:  res.Text(row, sheet.FieldReservation),
			AllInclusive: normalize.Truthy(res.Cell(row, sheet.FieldAllInclusive)),
		})
	}
	return out
}

// Passengers decodes the passenger table, dividing counts by the configured
// scale.
func (d Decoder) Passengers(t sheet.Table, diag *Diagnostics) []PassengerRecord {
	res, ok := d.bind(t, sheet.SchemaPassengers, diag)
	if !ok {
		return nil
	}
	scale := d.PassengerScale
	if !scale.IsPositive() {
		scale = decimal.NewFromInt(1)
	}
	out := make([]PassengerRecord, 0, len(t.Rows))
	bad := 0
	for _, row := range t.Rows {
		guide := res.Text(row, sheet.FieldGuide)
		if guide == "" {
			continue
		}
		day, ok := readDay(res, row)
		if !ok {
			bad++
			continue
		}
		out = append(out, PassengerRecord{
			Guide:        guide,
			Passengers:   normalize.ParseCount(res.Cell(row, sheet.FieldPassengers)).Div(scale),
			AllInclusive: normalize.ParseFlag(res.Cell(row, sheet.FieldAllInclusive)),
			Day:          day.day,
			Month:        day.month,
			Year:         day.year,
		})
	}
	d.dropped(t.Name, bad, diag)
	return out
}

// DailyTargets decodes the daily target table. Undated rows are kept with a
// zero date.
func (d Decoder) DailyTargets(t sheet.Table, diag *Diagnostics) []DailyTarget {
	res, ok := d.bind(t, sheet.SchemaDailyTargets, diag)
	if !ok {
		return nil
	}
	out := make([]DailyTarget, 0, len(t.Rows))
	for _, row := range t.Rows {
		seller := res.Text(row, sheet.FieldSeller)
		if seller == "" {
			continue
		}
		date, _ := normalize.DateValue(res.Cell(row, sheet.FieldDate))
		out = append(out, DailyTarget{
			Seller: seller,
			Date:   date,
			Amount: normalize.ParseCurrencyValue(res.Cell(row, sheet.FieldDailyTarget)),
		})
	}
	return out
}

// Transactions decodes the commission-detail table. Rows without a readable
// sale date are dropped.
func (d Decoder) Transactions(t sheet.Table, diag *Diagnostics) []SaleTransaction {
	res, ok := d.bind(t, sheet.SchemaCommissions, diag)
	if !ok {
		return nil
	}
	out := make([]SaleTransaction, 0, len(t.Rows))
	bad := 0
	for _, row := range t.Rows {
		date, ok := normalize.DateValue(res.Cell(row, sheet.FieldDate))
		if !ok {
			bad++
			continue
		}
		out = append(out, SaleTransaction{
			Date:        date,
			Seller:      res.Text(row, sheet.FieldSeller),
			Reservation: res.Text(row, sheet.FieldReservation),
			Service:     res.Text(row, sheet.FieldService),
			Amount:      normalize.ParseCurrencyValue(res.Cell(row, sheet.FieldAmount)),
		})
	}
	d.dropped(t.Name, bad, diag)
	return out
}

// Services reads the third-party service list from "Nome do Serviço", or the
// first column when that header is absent.
func (d Decoder) Services(t sheet.Table) []string {
	if t.Empty() {
		return nil
	}
	res := sheet.Resolve(t.Headers, d.Catalog.Schema(sheet.SchemaServices).Fields)
	column := res.Column(sheet.FieldService)
	if column == "" && len(t.Headers) > 0 {
		column = t.Headers[0]
	}
	out := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if name := strings.TrimSpace(row.Text(column)); name != "" {
			out = append(out, name)
		}
	}
	return out
}
