package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Flag is a yes/no cell that may also be blank or unreadable.
type Flag int

const (
	// FlagUnknown marks blank or unrecognised cells.
	FlagUnknown Flag = iota
	FlagNo
	FlagYes
)

var (
	yesWords = map[string]struct{}{"sim": {}, "yes": {}, "1": {}, "true": {}, "s": {}, "y": {}}
	noWords  = map[string]struct{}{"nao": {}, "no": {}, "0": {}, "false": {}, "n": {}}
)

// ParseFlag reads "Sim"/"Não" style cells.
func ParseFlag(v any) Flag {
	s := strings.ToLower(StripAccents(strings.TrimSpace(cast.ToString(v))))
	if _, ok := yesWords[s]; ok {
		return FlagYes
	}
	if _, ok := noWords[s]; ok {
		return FlagNo
	}
	return FlagUnknown
}

// Truthy reports whether the cell reads as yes. Blank cells are false.
func Truthy(v any) bool {
	return ParseFlag(v) == FlagYes
}

// Label renders the flag the way the sheets write it.
func (f Flag) Label() string {
	switch f {
	case FlagYes:
		return "Sim"
	case FlagNo:
		return "Não"
	default:
		return ""
	}
}

// ParseCount reads a passenger count; blanks and garbage are zero.
func ParseCount(v any) decimal.Decimal {
	d, ok := Number(v)
	if !ok {
		return decimal.Zero
	}
	return d
}
