package commission

import (
	"strings"

	"github.com/Glebrito/Analisediaria/internal/normalize"
)

// LookupResult records how an all-inclusive lookup was resolved.
type LookupResult string

const (
	// LookupExact matched date, seller and reservation.
	LookupExact LookupResult = "exact"
	// LookupDateSeller matched date and seller only; the first such sale
	// decided the flag.
	LookupDateSeller LookupResult = "date_seller"
	// LookupMiss found nothing; the sale is treated as standard.
	LookupMiss LookupResult = "miss"
)

type detailKey struct {
	date   string
	seller string
}

type fullKey struct {
	detailKey
	reservation string
}

// InclusiveIndex answers whether a sale belongs to an all-inclusive package,
// joining on the sales-detail cross reference.
type InclusiveIndex struct {
	exact      map[fullKey]bool
	dateSeller map[detailKey]bool
}

// NewInclusiveIndex indexes the cross reference. For duplicate keys the first
// record in sheet order wins.
func NewInclusiveIndex(details []SalesDetail) InclusiveIndex {
	idx := InclusiveIndex{
		exact:      make(map[fullKey]bool, len(details)),
		dateSeller: make(map[detailKey]bool, len(details)),
	}
	for _, d := range details {
		dk := detailKey{date: d.Date, seller: normalize.NormalizeName(d.Seller)}
		if dk.date == "" || dk.seller == "" {
			continue
		}
		if _, ok := idx.dateSeller[dk]; !ok {
			idx.dateSeller[dk] = d.AllInclusive
		}
		res := strings.TrimSpace(d.Reservation)
		if res == "" {
			continue
		}
		fk := fullKey{detailKey: dk, reservation: res}
		if _, ok := idx.exact[fk]; !ok {
			idx.exact[fk] = d.AllInclusive
		}
	}
	return idx
}

// Lookup resolves the flag for a sale. isoDate is yyyy-mm-dd.
func (idx InclusiveIndex) Lookup(isoDate, seller, reservation string) (bool, LookupResult) {
	dk := detailKey{date: isoDate, seller: normalize.NormalizeName(seller)}
	if dk.date == "" || dk.seller == "" {
		return false, LookupMiss
	}
	if res := strings.TrimSpace(reservation); res != "" {
		if flag, ok := idx.exact[fullKey{detailKey: dk, reservation: res}]; ok {
			return flag, LookupExact
		}
	}
	if flag, ok := idx.dateSeller[dk]; ok {
		return flag, LookupDateSeller
	}
	return false, LookupMiss
}

// Len returns the number of date/seller keys indexed.
func (idx InclusiveIndex) Len() int {
	return len(idx.dateSeller)
}
