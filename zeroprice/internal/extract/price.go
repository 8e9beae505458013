package extract

import (
	"strconv"
	"strings"
)

// ParseHiddenPrice parses the machine-readable price the shop renders in a
// hidden element ("1,200.00", "0"). ok is false for empty or unparseable
// text.
func ParseHiddenPrice(s string) (value float64, ok bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

var currencyStripper = strings.NewReplacer("€", "", "$", "", ",", "")

// ParseVisiblePrice parses the human-readable price. A sale renders the
// old and new prices together ("€1,200.00 €0.00"); the last token is the
// current one.
func ParseVisiblePrice(s string) (value float64, ok bool) {
	fields := strings.Fields(currencyStripper.Replace(s))
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[len(fields)-1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ResolvePrice prefers the hidden price and falls back to the visible one.
func ResolvePrice(hidden, visible string) (float64, bool) {
	if v, ok := ParseHiddenPrice(hidden); ok {
		return v, true
	}
	return ParseVisiblePrice(visible)
}
