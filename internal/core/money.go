// Package core holds the ledger domain: transactions, months, members,
// balance calculation, the credit ledger and the closure allocator.
//
// All monetary values are integer euro cents so that sums stay exact; the
// two-decimal rounding the ledger requires is structural, never floating.
package core

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode"
)

// Money is a euro amount in cents. It may be negative where the context
// allows it (balances, manual credits); transaction amounts must be positive.
type Money struct {
	Cents int64
}

// MarshalJSON encodes Money as a bare integer cent count.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(m.Cents, 10)), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	var cents int64
	if err := json.Unmarshal(data, &cents); err != nil {
		return ErrInvalidAmount
	}
	m.Cents = cents
	return nil
}

// Euros returns the euro value as a float64 for display purposes only.
func (m Money) Euros() float64 {
	return float64(m.Cents) / 100.0
}

// Validate requires a strictly positive amount (transaction semantics).
func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// FormatEuros renders cents as a French currency string, e.g. "194,50 €".
func FormatEuros(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := strconv.FormatInt(cents/100, 10) + "," +
		strconv.FormatInt(cents%100/10, 10) + strconv.FormatInt(cents%10, 10)
	if neg {
		return "-" + s + " €"
	}
	return s + " €"
}

// ParseDecimalToCents converts a decimal string to positive cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted; the third
// decimal place is rounded half-up. Zero, negative and malformed values
// are rejected.
func ParseDecimalToCents(s string) (int64, error) {
	cents, err := ParseSignedDecimalToCents(s)
	if err != nil {
		return 0, err
	}
	if cents <= 0 {
		return 0, ErrInvalidAmount
	}
	return cents, nil
}

// ParseSignedDecimalToCents is ParseDecimalToCents with an optional leading
// sign and zero allowed, for manual credits and allocation inputs.
func ParseSignedDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")

	sign := int64(1)
	switch {
	case strings.HasPrefix(s, "-"):
		sign = -1
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	if intPart == "0" && fracPart == "" && len(parts) == 2 {
		return 0, ErrInvalidAmount
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = (1<<63 - 1) / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}

	// First two fractional digits, half-up rounding on the third.
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	return sign * (iv*100 + frac), nil
}
