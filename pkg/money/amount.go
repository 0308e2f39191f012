// Package money holds the fixed-precision arithmetic used for every NAV computation.
//
// Money values carry 2 decimal places and ownership fractions carry 6. Every computed
// value is rounded half away from zero (ROUND_HALF_UP for both signs) at its target scale.
// Nothing here goes through float64.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MoneyScale is the number of decimal places kept for monetary amounts.
	MoneyScale int32 = 2
	// PctScale is the number of decimal places kept for ownership fractions.
	PctScale int32 = 6
)

// Zero is the zero amount at money scale.
var Zero = decimal.Zero

// Round rounds d to money scale.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// RoundPct rounds d to ownership scale.
func RoundPct(d decimal.Decimal) decimal.Decimal {
	return d.Round(PctScale)
}

// Add returns a+b at money scale.
func Add(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.Add(b))
}

// Sub returns a-b at money scale.
func Sub(a, b decimal.Decimal) decimal.Decimal {
	return Round(a.Sub(b))
}

// Sum adds all values at money scale. An empty input sums to zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := Zero
	for _, v := range values {
		total = total.Add(Round(v))
	}
	return Round(total)
}

// Ratio returns num/den at ownership scale.
// A zero denominator yields zero rather than an error.
func Ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, PctScale)
}

// Share returns total*pct at money scale.
func Share(total, pct decimal.Decimal) decimal.Decimal {
	return Round(total.Mul(pct))
}

// Parse converts a human-readable amount string ("1500", "-12.5") to a money-scale decimal.
func Parse(amountStr string) (decimal.Decimal, error) {
	amountStr = strings.TrimSpace(amountStr)
	if amountStr == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}

	d, err := decimal.NewFromString(amountStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount format: %w", err)
	}

	return Round(d), nil
}

// MustParse is Parse for constants and tests. It panics on malformed input.
func MustParse(amountStr string) decimal.Decimal {
	d, err := Parse(amountStr)
	if err != nil {
		panic(err)
	}
	return d
}

// Equal compares two amounts at money scale.
func Equal(a, b decimal.Decimal) bool {
	return Round(a).Equal(Round(b))
}

// Format renders d at money scale with thousands separators, e.g. "-1,234,567.80".
func Format(d decimal.Decimal) string {
	str := Round(d).StringFixed(MoneyScale)

	sign := ""
	if strings.HasPrefix(str, "-") {
		sign = "-"
		str = str[1:]
	}

	intPart, decPart, _ := strings.Cut(str, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + b.String() + "." + decPart
}

// FormatSigned is Format with an explicit "+" on positive values.
func FormatSigned(d decimal.Decimal) string {
	if Round(d).IsPositive() {
		return "+" + Format(d)
	}
	return Format(d)
}
