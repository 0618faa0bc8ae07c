// Package core holds the ledger's domain types.
//
// Amounts are carried as signed int64 cents; floating point is only used
// at the display boundary.
package core

import "fmt"

// Money is a signed monetary amount in cents.
type Money struct {
	Cents int64
}

// DecimalString renders the amount with fixed two-decimal precision
// ("-12.50", "0.00"). Used for fingerprints and ledger rows so that a
// cent amount always maps to exactly one textual form.
func (m Money) DecimalString() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// Abs returns the magnitude in cents.
func (m Money) Abs() int64 {
	if m.Cents < 0 {
		return -m.Cents
	}
	return m.Cents
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// IsZero reports whether the amount is exactly zero cents.
func (m Money) IsZero() bool {
	return m.Cents == 0
}
