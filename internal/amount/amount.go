// Package amount parses in-world currency amounts such as "1.5K" or "2,000,000".
package amount

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotNumeric is returned when the text holds no parseable number.
// Callers must treat it as "no amount found", never as a zero stake.
var ErrNotNumeric = errors.New("amount is not numeric")

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	billion  = decimal.NewFromInt(1_000_000_000)
)

// Parse converts a currency token into its magnitude.
// Everything except digits and the decimal point is stripped; a trailing
// K, M or B (any case) multiplies the value. Empty input yields zero.
func Parse(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, nil
	}

	var digits strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return decimal.Zero, ErrNotNumeric
	}

	value, err := decimal.NewFromString(digits.String())
	if err != nil {
		return decimal.Zero, ErrNotNumeric
	}

	switch strings.ToUpper(text[len(text)-1:]) {
	case "K":
		value = value.Mul(thousand)
	case "M":
		value = value.Mul(million)
	case "B":
		value = value.Mul(billion)
	}
	return value, nil
}

// Floor returns the whole-unit amount the world-chat pay command accepts.
func Floor(d decimal.Decimal) int64 {
	return d.Floor().IntPart()
}

// Format renders a whole-unit amount with thousands separators, e.g. 1,500.
func Format(d decimal.Decimal) string {
	s := d.Floor().String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
