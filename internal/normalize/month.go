package normalize

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

var monthNames = map[string]int{
	"janeiro":   1,
	"fevereiro": 2,
	"marco":     3,
	"abril":     4,
	"maio":      5,
	"junho":     6,
	"julho":     7,
	"agosto":    8,
	"setembro":  9,
	"outubro":   10,
	"novembro":  11,
	"dezembro":  12,
	// seen in older sheets
	"decembro": 12,
}

// MonthNames lists the display names indexed by month number - 1.
var MonthNames = [12]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// MonthToNumber accepts 1..12 (as number or text) or a Portuguese month name
// with or without diacritics. It returns (0, false) for anything else.
func MonthToNumber(v any) (int, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if n, ok := Int(s); ok {
			return checkMonth(n)
		}
		n, ok := monthNames[strings.ToLower(StripAccents(s))]
		return n, ok
	}
	n, ok := Int(v)
	if !ok {
		return 0, false
	}
	return checkMonth(n)
}

func checkMonth(n int) (int, bool) {
	if n < 1 || n > 12 {
		return 0, false
	}
	return n, true
}

// Int reads whole numbers from cells: 7, 7.0, "07", " 2025 ", "2025.0".
func Int(v any) (int, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}
