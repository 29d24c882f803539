package steam

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnparsablePrice = errors.New("unparsable price")

// ParsePrice parses a Steam market price string such as "R$ 1.234,56",
// "$12.34", "0,03€" or "12,--€" into a decimal.
//
// Currency symbols and spaces are dropped. When both separators appear the
// rightmost one is the decimal mark; a lone separator followed by one or
// two digits is a decimal mark, otherwise it groups thousands.
func ParsePrice(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, "--", "00")

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	digits := strings.Trim(b.String(), ".,")
	if digits == "" {
		return decimal.Zero, ErrUnparsablePrice
	}

	lastComma := strings.LastIndex(digits, ",")
	lastDot := strings.LastIndex(digits, ".")

	decimalMark := byte(0)
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			decimalMark = ','
		} else {
			decimalMark = '.'
		}
	case lastComma >= 0:
		if isDecimalTail(digits, lastComma) && strings.Count(digits, ",") == 1 {
			decimalMark = ','
		}
	case lastDot >= 0:
		if isDecimalTail(digits, lastDot) && strings.Count(digits, ".") == 1 {
			decimalMark = '.'
		}
	}

	var normalized strings.Builder
	for i := 0; i < len(digits); i++ {
		c := digits[i]
		switch {
		case c >= '0' && c <= '9':
			normalized.WriteByte(c)
		case c == decimalMark && i == strings.LastIndexByte(digits, decimalMark):
			normalized.WriteByte('.')
		}
	}

	d, err := decimal.NewFromString(normalized.String())
	if err != nil {
		return decimal.Zero, ErrUnparsablePrice
	}
	return d, nil
}

func isDecimalTail(s string, sep int) bool {
	tail := len(s) - sep - 1
	return tail == 1 || tail == 2
}

// parseVolume parses "1,234" style counts
func parseVolume(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int(r-'0')
		}
	}
	return n
}
