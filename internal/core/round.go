// Package core holds the domain records and the pure derivation formulas
// of the charging ledger.
//
// This file contains number parsing and rounding utilities. All derived
// figures are rounded to a fixed display precision: 2 decimals for currency
// and energy, 3 for unit prices, 0 for distances, 1 for ecological figures.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseDecimal converts a user-supplied decimal string to a float64.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rejects negative values. Returns ErrInvalidPrice for anything that does
// not parse to a non-negative number.
//
// Examples:
//   ParseDecimal("12.34") -> 12.34, nil
//   ParseDecimal("12,34") -> 12.34, nil
//   ParseDecimal("-1")    -> 0, ErrInvalidPrice
func ParseDecimal(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidPrice
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidPrice
	}
	if f < 0 {
		return 0, ErrInvalidPrice
	}
	return f, nil
}

// ParseOptionalDecimal is ParseDecimal for fields the user may leave blank:
// an empty string yields nil.
func ParseOptionalDecimal(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	f, err := ParseDecimal(s)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

// Round0 rounds to whole units (km).
func Round0(v float64) float64 { return roundTo(v, 0) }

// Round1 rounds to 1 decimal (ecological figures).
func Round1(v float64) float64 { return roundTo(v, 1) }

// Round2 rounds to 2 decimals (currency, energy).
func Round2(v float64) float64 { return roundTo(v, 2) }

// Round3 rounds to 3 decimals (unit prices, €/kWh).
func Round3(v float64) float64 { return roundTo(v, 3) }
