package commission

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Glebrito/Analisediaria/internal/normalize"
)

type rateKey struct {
	seller string
	month  int
	year   int
}

// RateBook indexes commission rates by normalized seller, month and year. The
// first record for a key wins, as in the sheet.
type RateBook struct {
	index map[rateKey]SellerRecord
}

// NewRateBook builds the index from rate records.
func NewRateBook(records []SellerRecord) RateBook {
	index := make(map[rateKey]SellerRecord, len(records))
	for _, r := range records {
		k := rateKey{seller: normalize.NormalizeName(r.Name), month: r.Month, year: r.Year}
		if k.seller == "" {
			continue
		}
		if _, ok := index[k]; ok {
			continue
		}
		index[k] = r
	}
	return RateBook{index: index}
}

// RateResult is a rate lookup outcome. Found distinguishes a matched zero from
// a miss.
type RateResult struct {
	InHouse    decimal.Decimal
	ThirdParty decimal.Decimal
	Found      bool
}

// Lookup finds seller's rates for a month. Unset rate cells read as zero.
func (b RateBook) Lookup(seller string, month, year int) RateResult {
	r, ok := b.index[rateKey{seller: normalize.NormalizeName(seller), month: month, year: year}]
	if !ok {
		return RateResult{InHouse: decimal.Zero, ThirdParty: decimal.Zero}
	}
	return RateResult{InHouse: r.InHouseRate, ThirdParty: r.ThirdPartyRate, Found: true}
}

// Len returns the number of indexed keys.
func (b RateBook) Len() int {
	return len(b.index)
}

// ServiceSet is the list of services sold on behalf of third parties.
type ServiceSet map[string]struct{}

// NewServiceSet builds the set from the raw list, trimming each name.
func NewServiceSet(names []string) ServiceSet {
	set := make(ServiceSet, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

// Classify returns ServiceThirdParty when service is listed, ServiceInHouse
// otherwise. Matching is exact after trimming.
func (s ServiceSet) Classify(service string) ServiceType {
	if _, ok := s[strings.TrimSpace(service)]; ok {
		return ServiceThirdParty
	}
	return ServiceInHouse
}
