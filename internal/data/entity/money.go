package entity

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is a fixed-point amount in minor units (two decimals).
type Money int64

const minorPerUnit = 100

func NewMoney(units, cents int64) Money {
	return Money(units*minorPerUnit + cents)
}

// ParseMoney parses "125", "125.5" or "125.50". More than two decimals is rejected.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if !isDigits(whole) || (hasFrac && (!isDigits(frac) || len(frac) > 2)) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	if units > (math.MaxInt64-cents)/minorPerUnit {
		return 0, fmt.Errorf("invalid amount %q: out of range", s)
	}

	m := NewMoney(units, cents)
	if negative {
		m = -m
	}
	return m, nil
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/minorPerUnit, v%minorPerUnit)
}

// Mul multiplies by a whole quantity.
func (m Money) Mul(n int) Money {
	return m * Money(n)
}

// ApplyPercentDiscount takes pct percent off, never going below zero.
// The discount amount is truncated, so the customer never pays a fraction less.
func (m Money) ApplyPercentDiscount(pct int) Money {
	if pct <= 0 {
		return m
	}
	off := m * Money(pct) / 100
	if off >= m {
		return 0
	}
	return m - off
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both "12.50" and 12.5.
func (m *Money) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = s
	}

	parsed, err := ParseMoney(raw)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
