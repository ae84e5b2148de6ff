// Package normalize converts the loosely formatted cells found in the sales
// spreadsheets (pt-BR currency, percentages, month names, dates, yes/no flags
// and person names) into canonical values.
package normalize

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

const currencySymbol = "R$"

var hundred = decimal.NewFromInt(100)

// ParseCurrency reads a pt-BR formatted amount such as "R$ 1.234,56".
// Unparseable input yields zero.
func ParseCurrency(s string) decimal.Decimal {
	d, _ := parseLocaleNumber(strings.ReplaceAll(s, currencySymbol, ""))
	return d
}

// ParseCurrencyValue accepts a raw cell, typed or textual.
func ParseCurrencyValue(v any) decimal.Decimal {
	d, _ := Number(v)
	return d
}

// Number coerces a cell into a decimal. The boolean reports whether the cell
// held a usable number; empty and malformed cells return false.
func Number(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return x, true
	case string:
		return parseLocaleNumber(strings.ReplaceAll(x, currencySymbol, ""))
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case bool:
		return decimal.Zero, false
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// FormatCurrency renders d as "R$ 1.234,56".
func FormatCurrency(d decimal.Decimal) string {
	return currencySymbol + " " + formatLocale(d)
}

// FormatNumber renders d with two decimals using pt-BR separators.
func FormatNumber(d decimal.Decimal) string {
	return formatLocale(d)
}

func formatLocale(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	lead := len(intPart) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(intPart[:lead])
	for i := lead; i < len(intPart); i += 3 {
		b.WriteByte('.')
		b.WriteString(intPart[i : i+3])
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// parseLocaleNumber handles "1.234,56", "1234,5", "1234.50" and "1.234".
// A single dot followed by one or two digits and no comma is a decimal point;
// every other dot is a thousands separator.
func parseLocaleNumber(s string) (decimal.Decimal, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\t':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, false
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else if strings.Count(s, ".") == 1 {
		_, frac, _ := strings.Cut(s, ".")
		if len(frac) > 2 {
			s = strings.ReplaceAll(s, ".", "")
		}
	} else {
		s = strings.ReplaceAll(s, ".", "")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
