package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (paise).
type Money = int64

// CurrencySymbol prefixes formatted amounts. All prices are rupee amounts;
// multi-currency is out of scope.
const CurrencySymbol = "₹"

var hundred = decimal.NewFromInt(100)

// FromDecimal converts a rupee amount into paise, rounding half-up.
func FromDecimal(amount decimal.Decimal) Money {
	return amount.Mul(hundred).Round(0).IntPart()
}

// ToDecimal converts paise into a rupee amount with two decimal places.
func ToDecimal(m Money) decimal.Decimal {
	return decimal.New(m, -2)
}

// ParseAmount parses a stringified rupee amount ("19200.00") into paise.
// Fractions beyond two decimals are rounded half-up.
func ParseAmount(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("pricing: empty amount")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("pricing: parse amount %q: %w", value, err)
	}
	return FromDecimal(d), nil
}

// FormatAmount renders paise as a plain two-decimal string without a symbol,
// matching the stringified amounts exchanged with admin forms.
func FormatAmount(m Money) string {
	return ToDecimal(m).StringFixed(2)
}

// Format renders paise for display with the currency symbol and Indian digit
// grouping (₹1,19,200.00).
func Format(m Money) string {
	s := FormatAmount(m)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	grouped := groupIndian(whole)
	var b strings.Builder
	if negative {
		b.WriteString("-")
	}
	b.WriteString(CurrencySymbol)
	b.WriteString(grouped)
	b.WriteString(".")
	b.WriteString(frac)
	return b.String()
}

// groupIndian applies the lakh/crore grouping: the last three digits form one
// group, every two digits before that form another.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(append(groups, tail), ",")
}
