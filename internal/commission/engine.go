package commission

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Glebrito/Analisediaria/internal/normalize"
	"github.com/Glebrito/Analisediaria/internal/sheet"
)

// Tables is one fetch generation of raw inputs. The engine never mutates it.
type Tables struct {
	Sellers      sheet.Table
	Sales        sheet.Table
	Passengers   sheet.Table
	DailyTargets sheet.Table
	Rates        sheet.Table
	Commissions  sheet.Table
	Services     sheet.Table
}

// Options tunes the engine.
type Options struct {
	FilterMode  FilterMode
	MatchPolicy MatchPolicy
	Workers     int
}

// Request selects what a report covers. Category and Seller are optional.
type Request struct {
	Period   Period
	Category Category
	Seller   string
}

// Roster lists the sellers of one category active in the period.
type Roster struct {
	Category Category `json:"category"`
	Sellers  []string `json:"sellers"`
}

// Section is the report of one category.
type Section struct {
	Category        Category            `json:"category"`
	BonusEligible   bool                `json:"bonus_eligible"`
	Sellers         []string            `json:"sellers"`
	Standard        []SellerAggregate   `json:"standard,omitempty"`
	Inclusive       []SellerAggregate   `json:"inclusive,omitempty"`
	StandardTotals  *CategoryTotals     `json:"standard_totals,omitempty"`
	InclusiveTotals *CategoryTotals     `json:"inclusive_totals,omitempty"`
	Channel         []ChannelAggregate  `json:"channel,omitempty"`
	Details         []SaleTransaction   `json:"details"`
	Summaries       []CommissionSummary `json:"summaries"`
	Totals          CommissionSummary   `json:"totals"`
}

// Report is the full result of one run.
type Report struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Period      Period      `json:"period"`
	Days        int         `json:"days"`
	FilterMode  FilterMode  `json:"filter_mode"`
	MatchPolicy MatchPolicy `json:"match_policy"`
	Sections    []Section   `json:"sections"`
	Diagnostics Diagnostics `json:"diagnostics"`
}

// Section returns the section of category, if present.
func (r Report) Section(category Category) (Section, bool) {
	for _, s := range r.Sections {
		if s.Category == category {
			return s, true
		}
	}
	return Section{}, false
}

// Engine runs the computation pipeline over already-fetched tables.
type Engine struct {
	decoder Decoder
	opts    Options
	logger  *slog.Logger
}

// NewEngine constructs an engine.
func NewEngine(decoder Decoder, opts Options, logger *slog.Logger) *Engine {
	if opts.FilterMode == "" {
		opts.FilterMode = FilterIndependent
	}
	if opts.MatchPolicy == "" {
		opts.MatchPolicy = PolicySource
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{decoder: decoder, opts: opts, logger: logger}
}

// Options returns the engine configuration.
func (e *Engine) Options() Options {
	return e.opts
}

// inputs are the decoded tables of one run.
type inputs struct {
	sellers      []SellerRecord
	rates        []SellerRecord
	sales        []SaleRecord
	channelSales []SaleRecord
	details      []SalesDetail
	passengers   []PassengerRecord
	dailyTargets []DailyTarget
	transactions []SaleTransaction
	services     []string
}

func (e *Engine) decode(t Tables, diag *Diagnostics) inputs {
	d := e.decoder
	return inputs{
		sellers:      d.Sellers(t.Sellers, diag),
		rates:        d.Rates(t.Rates, diag),
		sales:        d.Sales(t.Sales, diag),
		channelSales: d.ChannelSales(t.Sales, diag),
		details:      d.SalesDetails(t.Sales, diag),
		passengers:   d.Passengers(t.Passengers, diag),
		dailyTargets: d.DailyTargets(t.DailyTargets, diag),
		transactions: d.Transactions(t.Commissions, diag),
		services:     d.Services(t.Services),
	}
}

// Categories lists the categories with sellers active in the period, in
// display order.
func (e *Engine) Categories(t Tables, p Period) ([]Roster, Diagnostics) {
	var diag Diagnostics
	sellers := e.decoder.Sellers(t.Sellers, &diag)
	return rosters(sellers, p), diag
}

func rosters(records []SellerRecord, p Period) []Roster {
	byCat := map[Category][]string{}
	seen := map[Category]map[string]struct{}{}
	var cats []Category
	for _, r := range records {
		if r.Category == "" || !p.CoversSellerMonth(r.Month, r.Year) {
			continue
		}
		if _, ok := seen[r.Category]; !ok {
			seen[r.Category] = map[string]struct{}{}
			cats = append(cats, r.Category)
		}
		if _, dup := seen[r.Category][r.Name]; dup {
			continue
		}
		seen[r.Category][r.Name] = struct{}{}
		byCat[r.Category] = append(byCat[r.Category], r.Name)
	}
	SortCategories(cats)
	out := make([]Roster, 0, len(cats))
	for _, c := range cats {
		out = append(out, Roster{Category: c, Sellers: byCat[c]})
	}
	return out
}

// Build computes the report for req over the tables.
func (e *Engine) Build(ctx context.Context, t Tables, req Request) (Report, error) {
	if _, err := NewPeriod(req.Period.Start, req.Period.End); err != nil {
		return Report{}, err
	}
	report := Report{
		Period:      req.Period,
		Days:        req.Period.Days(),
		FilterMode:  e.opts.FilterMode,
		MatchPolicy: e.opts.MatchPolicy,
	}
	in := e.decode(t, &report.Diagnostics)

	all := rosters(in.sellers, req.Period)
	selected := make([]Roster, 0, len(all))
	for _, r := range all {
		if req.Category != "" && r.Category != req.Category {
			continue
		}
		if req.Seller != "" {
			r.Sellers = pickSeller(r.Sellers, req.Seller)
			if len(r.Sellers) == 0 {
				continue
			}
		}
		selected = append(selected, r)
	}
	if req.Category != "" && len(selected) == 0 {
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownCategory, req.Category)
	}

	report.Sections = make([]Section, 0, len(selected))
	for _, r := range selected {
		section, err := e.section(ctx, in, r, req.Period, &report.Diagnostics)
		if err != nil {
			return Report{}, err
		}
		report.Sections = append(report.Sections, section)
	}

	e.logger.Info("commission report built",
		slog.String("period", req.Period.String()),
		slog.String("filter_mode", string(e.opts.FilterMode)),
		slog.Int("sections", len(report.Sections)),
		slog.Int("lookup_misses", len(report.Diagnostics.LookupMisses)),
	)
	return report, nil
}

func pickSeller(sellers []string, want string) []string {
	key := normalize.NormalizeName(want)
	for _, s := range sellers {
		if normalize.NormalizeName(s) == key {
			return []string{s}
		}
	}
	return nil
}

func (e *Engine) section(ctx context.Context, in inputs, r Roster, p Period, diag *Diagnostics) (Section, error) {
	s := Section{
		Category:      r.Category,
		BonusEligible: r.Category.BonusEligible(),
		Sellers:       r.Sellers,
	}
	bonus := BonusRates{}
	switch {
	case r.Category.Ticketed():
		e.ticketed(&s, in, p, diag)
		if s.BonusEligible {
			bonus = NewBonusRates(s.Standard, s.Inclusive)
		}
	case r.Category.Channel():
		e.channel(&s, in, p, diag)
	}

	details, err := e.details(ctx, in, r.Sellers, p, bonus, diag)
	if err != nil {
		return Section{}, err
	}
	s.Details = details
	s.Summaries = Summarize(details)
	s.Totals = SummaryTotals(s.Summaries)
	return s, nil
}

func (e *Engine) ticketed(s *Section, in inputs, p Period, diag *Diagnostics) {
	match := e.opts.MatchPolicy.For(MatchExact)
	sales := salesInPeriod(in.sales, p, e.opts.FilterMode)
	pax := passengersInPeriod(in.passengers, p, e.opts.FilterMode)

	for _, track := range []Track{TrackStandard, TrackInclusive} {
		salesBy := TrackSales(s.Sellers, sales, track, match)
		paxBy := TrackPassengers(s.Sellers, pax, track, match)
		aggs := make([]SellerAggregate, 0, len(s.Sellers))
		for _, seller := range s.Sellers {
			target := ResolveTarget(in.sellers, seller, p, match)
			if track == TrackInclusive {
				target = ResolveInclusiveTarget(in.sellers, seller, p, match)
			} else if !HasTarget(in.sellers, seller, p, match) {
				diag.miss(MissTarget, seller, p.String())
			}
			agg := SellerAggregate{
				Seller:         seller,
				Category:       s.Category,
				Track:          track,
				SalesTotal:     salesBy[seller],
				PassengerTotal: paxBy[seller],
				Target:         target,
				BonusRate:      decimal.Zero,
			}
			agg.AverageTicket = AverageTicket(agg.SalesTotal, agg.PassengerTotal)
			agg.Attainment = Attainment(agg.AverageTicket, agg.Target)
			agg.MetTarget = agg.Attainment.GreaterThanOrEqual(hundred)
			if s.BonusEligible {
				agg.BonusRate = BonusRate(agg.Attainment)
			}
			aggs = append(aggs, agg)
		}
		totals := CategoryTotalsOf(track, aggs)
		if track == TrackInclusive {
			s.Inclusive, s.InclusiveTotals = aggs, &totals
		} else {
			s.Standard, s.StandardTotals = aggs, &totals
		}
	}
}

// CategoryTotalsOf builds the category card: summed sales and passengers, the
// ticket they imply, and the first seller's target.
func CategoryTotalsOf(track Track, aggs []SellerAggregate) CategoryTotals {
	t := CategoryTotals{
		Track:          track,
		SalesTotal:     decimal.Zero,
		PassengerTotal: decimal.Zero,
		Target:         decimal.Zero,
	}
	for _, a := range aggs {
		t.SalesTotal = t.SalesTotal.Add(a.SalesTotal)
		t.PassengerTotal = t.PassengerTotal.Add(a.PassengerTotal)
	}
	if len(aggs) > 0 {
		t.Target = aggs[0].Target
	}
	t.AverageTicket = AverageTicket(t.SalesTotal, t.PassengerTotal)
	t.Attainment = Attainment(t.AverageTicket, t.Target)
	return t
}

func (e *Engine) channel(s *Section, in inputs, p Period, diag *Diagnostics) {
	match := e.opts.MatchPolicy.For(MatchFold)
	sales := salesInPeriod(in.channelSales, p, e.opts.FilterMode)
	inHouse := ChannelSales(s.Sellers, sales, ServiceInHouse, match)
	thirdParty := ChannelSales(s.Sellers, sales, ServiceThirdParty, match)

	s.Channel = make([]ChannelAggregate, 0, len(s.Sellers))
	for _, seller := range s.Sellers {
		daily := ResolveDailyTarget(in.dailyTargets, seller, p, match)
		if !daily.Found {
			diag.miss(MissDaily, seller, p.String())
		}
		if !HasTarget(in.sellers, seller, p, match) {
			diag.miss(MissTarget, seller, p.String())
		}
		s.Channel = append(s.Channel, ChannelAggregate{
			Seller:          seller,
			Category:        s.Category,
			InHouseSales:    inHouse[seller],
			ThirdPartySales: thirdParty[seller],
			DailyTarget:     daily.Total,
			Target:          ResolveTarget(in.sellers, seller, p, match),
		})
	}
}

func (e *Engine) details(ctx context.Context, in inputs, sellers []string, p Period, bonus BonusRates, diag *Diagnostics) ([]SaleTransaction, error) {
	match := e.opts.MatchPolicy.For(MatchExact)
	wanted := make(map[string]struct{}, len(sellers))
	for _, s := range sellers {
		wanted[match.Key(s)] = struct{}{}
	}
	rows := make([]SaleTransaction, 0)
	for _, t := range in.transactions {
		if !p.ContainsDate(t.Date) {
			continue
		}
		if _, ok := wanted[match.Key(t.Seller)]; !ok {
			continue
		}
		rows = append(rows, t)
	}

	enricher := Enricher{
		ThirdParty: NewServiceSet(in.services),
		Rates:      NewRateBook(in.rates),
		Inclusive:  NewInclusiveIndex(in.details),
		Bonus:      bonus,
		Workers:    e.opts.Workers,
		Logger:     e.logger,
	}
	enriched, err := enricher.Enrich(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("commission: enrich rows: %w", err)
	}

	for _, r := range enriched {
		diag.inclusive(r.InclusiveMatch)
		if !r.RateFound {
			diag.miss(MissRate, r.Seller, r.Date.Format("01/2006"))
		}
		if r.InclusiveMatch == LookupMiss {
			diag.miss(MissInclusive, r.Seller, r.Date.Format("2006-01-02")+" "+r.Reservation)
		}
	}

	sort.SliceStable(enriched, func(i, j int) bool {
		return enriched[i].Date.After(enriched[j].Date)
	})
	return enriched, nil
}
