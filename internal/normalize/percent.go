package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePercentage converts "10%" or "2,5 %" into a fraction (0.10, 0.025).
// Unparseable input yields zero.
func ParsePercentage(s string) decimal.Decimal {
	d, ok := percentPoints(s)
	if !ok {
		return decimal.Zero
	}
	return d.Div(hundred)
}

// PercentageValue reads a rate cell. Numbers are treated as percentage points,
// so 10 and "10%" both mean 0.10. The boolean is false for blank or malformed
// cells.
func PercentageValue(v any) (decimal.Decimal, bool) {
	if s, ok := v.(string); ok {
		d, ok := percentPoints(s)
		if !ok {
			return decimal.Zero, false
		}
		return d.Div(hundred), true
	}
	d, ok := Number(v)
	if !ok {
		return decimal.Zero, false
	}
	return d.Div(hundred), true
}

// ParsePercentPoints reads "105,50%" as 105.50.
func ParsePercentPoints(s string) (decimal.Decimal, bool) {
	return percentPoints(s)
}

// FormatPercent renders percentage points as "105,50%".
func FormatPercent(points decimal.Decimal) string {
	return strings.Replace(points.StringFixed(2), ".", ",", 1) + "%"
}

// FormatRate renders a fraction as whole percentage points: 0.03 -> "3%".
func FormatRate(rate decimal.Decimal) string {
	points := rate.Mul(hundred)
	if points.Equal(points.Truncate(0)) {
		return points.StringFixed(0) + "%"
	}
	return strings.Replace(points.StringFixed(2), ".", ",", 1) + "%"
}

func percentPoints(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
