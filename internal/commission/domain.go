package commission

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Glebrito/Analisediaria/internal/normalize"
)

// Category groups sellers by role.
type Category string

const (
	// CategoryDesks covers counter sellers.
	CategoryDesks Category = "Desks"
	// CategoryOnline covers remote sellers.
	CategoryOnline Category = "Online"
	// CategoryTransfer covers transfer agents, the only bonus-eligible role.
	CategoryTransfer Category = "Transferistas"
	// CategoryGuide covers tour guides.
	CategoryGuide Category = "Guias"
)

var categoryRank = map[Category]int{
	CategoryDesks:    0,
	CategoryOnline:   1,
	CategoryTransfer: 2,
	CategoryGuide:    3,
}

// Channel reports whether the category is measured by channel sales
// (in-house vs third-party) instead of average ticket.
func (c Category) Channel() bool {
	return c == CategoryDesks || c == CategoryOnline
}

// Ticketed reports whether the category runs the standard and all-inclusive
// average-ticket tracks.
func (c Category) Ticketed() bool {
	return c == CategoryTransfer || c == CategoryGuide
}

// BonusEligible reports whether attainment earns a bonus rate.
func (c Category) BonusEligible() bool {
	return c == CategoryTransfer
}

// SortCategories orders categories Desks, Online, Transferistas, Guias, then
// any other label alphabetically.
func SortCategories(cats []Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		ri, iKnown := categoryRank[cats[i]]
		rj, jKnown := categoryRank[cats[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		case jKnown:
			return false
		}
		return cats[i] < cats[j]
	})
}

// ServiceType classifies a sale by who fulfils it.
type ServiceType string

const (
	// ServiceInHouse is fulfilled by the company ("Luck").
	ServiceInHouse ServiceType = "Luck"
	// ServiceThirdParty is resold from an external provider.
	ServiceThirdParty ServiceType = "Terceiro"
	// ServiceOther is any unrecognised label.
	ServiceOther ServiceType = ""
)

// ParseServiceType reads the "Tipo de Serviço" cell.
func ParseServiceType(s string) ServiceType {
	switch normalize.NormalizeName(s) {
	case "LUCK":
		return ServiceInHouse
	case "TERCEIRO", "TERCEIROS":
		return ServiceThirdParty
	}
	return ServiceOther
}

// Track separates standard sales from all-inclusive package sales.
type Track string

const (
	TrackStandard  Track = "standard"
	TrackInclusive Track = "all_inclusive"
)

// SellerRecord is one row of the seller roster, target or rate tables.
type SellerRecord struct {
	Name              string          `json:"name"`
	Category          Category        `json:"category,omitempty"`
	Month             int             `json:"month"`
	Year              int             `json:"year"`
	Target            decimal.Decimal `json:"target"`
	InclusiveTarget   decimal.Decimal `json:"inclusive_target"`
	InHouseRate       decimal.Decimal `json:"in_house_rate"`
	ThirdPartyRate    decimal.Decimal `json:"third_party_rate"`
	HasInHouseRate    bool            `json:"-"`
	HasThirdPartyRate bool            `json:"-"`
}

// SaleRecord is one row of the sales-facts table.
type SaleRecord struct {
	Day          int
	Month        int
	Year         int
	Seller       string
	RealAmount   decimal.Decimal
	FinalAmount  decimal.Decimal
	Service      ServiceType
	AllInclusive normalize.Flag
}

// PassengerRecord is one row of the passenger table.
type PassengerRecord struct {
	Guide        string
	Passengers   decimal.Decimal
	AllInclusive normalize.Flag
	Day          int
	Month        int
	Year         int
}

// DailyTarget is a per-day sales goal for a seller.
type DailyTarget struct {
	Seller string
	Date   time.Time
	Amount decimal.Decimal
}

// SalesDetail is the cross-reference used to flag all-inclusive sales.
type SalesDetail struct {
	Date         string
	Seller       string
	Reservation  string
	AllInclusive bool
}

// SaleTransaction is one commission-detail row, raw fields first and the
// enriched fields after.
type SaleTransaction struct {
	Date        time.Time       `json:"date"`
	Seller      string          `json:"seller"`
	Reservation string          `json:"reservation"`
	Service     string          `json:"service"`
	Amount      decimal.Decimal `json:"amount"`

	AllInclusive             bool            `json:"all_inclusive"`
	InclusiveMatch           LookupResult    `json:"inclusive_match"`
	Classification           ServiceType     `json:"classification"`
	RateFound                bool            `json:"rate_found"`
	InHouseRate              decimal.Decimal `json:"in_house_rate"`
	ThirdPartyRate           decimal.Decimal `json:"third_party_rate"`
	BonusRate                decimal.Decimal `json:"bonus_rate"`
	InclusiveBonusRate       decimal.Decimal `json:"inclusive_bonus_rate"`
	InHouseCommission        decimal.Decimal `json:"in_house_commission"`
	ThirdPartyCommission     decimal.Decimal `json:"third_party_commission"`
	BonusCommission          decimal.Decimal `json:"bonus_commission"`
	InclusiveBonusCommission decimal.Decimal `json:"inclusive_bonus_commission"`
	TotalCommission          decimal.Decimal `json:"total_commission"`
}

// SellerAggregate is one seller's metrics on one track.
type SellerAggregate struct {
	Seller         string          `json:"seller"`
	Category       Category        `json:"category"`
	Track          Track           `json:"track"`
	SalesTotal     decimal.Decimal `json:"sales_total"`
	PassengerTotal decimal.Decimal `json:"passenger_total"`
	AverageTicket  decimal.Decimal `json:"average_ticket"`
	Target         decimal.Decimal `json:"target"`
	Attainment     decimal.Decimal `json:"attainment"`
	BonusRate      decimal.Decimal `json:"bonus_rate"`
	MetTarget      bool            `json:"met_target"`
}

// ChannelAggregate is one Desks/Online seller's sales split.
type ChannelAggregate struct {
	Seller          string          `json:"seller"`
	Category        Category        `json:"category"`
	InHouseSales    decimal.Decimal `json:"in_house_sales"`
	ThirdPartySales decimal.Decimal `json:"third_party_sales"`
	DailyTarget     decimal.Decimal `json:"daily_target"`
	Target          decimal.Decimal `json:"target"`
}

// CategoryTotals is the card shown above a ticketed category's grid.
type CategoryTotals struct {
	Track          Track           `json:"track"`
	SalesTotal     decimal.Decimal `json:"sales_total"`
	PassengerTotal decimal.Decimal `json:"passenger_total"`
	AverageTicket  decimal.Decimal `json:"average_ticket"`
	Target         decimal.Decimal `json:"target"`
	Attainment     decimal.Decimal `json:"attainment"`
}

// CommissionSummary reduces a seller's enriched rows.
type CommissionSummary struct {
	Seller         string          `json:"seller"`
	TotalSales     decimal.Decimal `json:"total_sales"`
	InHouse        decimal.Decimal `json:"in_house"`
	ThirdParty     decimal.Decimal `json:"third_party"`
	Bonus          decimal.Decimal `json:"bonus"`
	InclusiveBonus decimal.Decimal `json:"inclusive_bonus"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Rows           int             `json:"rows"`
}

// FilterMode selects how the period filter compares day/month/year rows.
type FilterMode string

const (
	// FilterIndependent compares day, month and year against the bounds
	// separately, reproducing historical reports.
	FilterIndependent FilterMode = "independent"
	// FilterCalendar compares composed calendar dates.
	FilterCalendar FilterMode = "calendar"
)

// ParseFilterMode validates a configured mode; blank means independent.
func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterIndependent:
		return FilterIndependent, nil
	case FilterCalendar:
		return FilterCalendar, nil
	}
	return "", ErrUnknownFilterMode
}

// MatchPolicy selects how seller names are joined across tables.
type MatchPolicy string

const (
	// PolicySource keeps each join's historical rule.
	PolicySource MatchPolicy = "source"
	// PolicyNormalized joins every table on NormalizeName.
	PolicyNormalized MatchPolicy = "normalized"
)

// ParseMatchPolicy validates a configured policy; blank means source.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch MatchPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySource:
		return PolicySource, nil
	case PolicyNormalized:
		return PolicyNormalized, nil
	}
	return "", ErrUnknownMatchPolicy
}

// For returns the match rule a join site uses under the policy.
func (p MatchPolicy) For(site NameMatch) NameMatch {
	if p == PolicyNormalized {
		return MatchNormalized
	}
	return site
}

var (
	// ErrInvalidRange occurs when the period start falls after its end or a
	// bound is not a calendar date.
	ErrInvalidRange = errors.New("commission: invalid period range")
	// ErrUnknownFilterMode occurs for unsupported filter modes.
	ErrUnknownFilterMode = errors.New("commission: unknown period filter mode")
	// ErrUnknownMatchPolicy occurs for unsupported name match policies.
	ErrUnknownMatchPolicy = errors.New("commission: unknown name match policy")
	// ErrUnknownCategory occurs when a report asks for a category with no
	// sellers in the period.
	ErrUnknownCategory = errors.New("commission: unknown seller category")
)
