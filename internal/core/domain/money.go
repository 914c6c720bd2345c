package domain

import (
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in cents.
type Money int64

// MoneyFromFloat converts a decimal amount, rounding to the nearest cent.
func MoneyFromFloat(amount float64) Money {
	return Money(math.Round(amount * 100))
}

// Multiply scales m by factor and rounds to the nearest cent, half away from zero.
func (m Money) Multiply(factor float64) Money {
	return Money(math.Round(float64(m) * factor))
}

// Float64 returns the decimal amount.
func (m Money) Float64() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes a 2-decimal number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("decode money %q: %w", string(data), err)
	}
	*m = MoneyFromFloat(v)
	return nil
}
