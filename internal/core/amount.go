// Package core holds the emission domain types and the pure aggregation
// rules that operate on them.
//
// This file contains parsing and conversion for kgCO2e quantities.
// Amounts are stored as integer milligrams to keep sums exact and to
// preserve strict limit comparisons down to the smallest parsed digit;
// kilogram floats only appear at the serialization edge.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseDecimalToMilligrams converts a decimal kgCO2e string to
// milligrams with half-up rounding on the seventh decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative values are rejected; zero is allowed.
//
// Examples:
//
//	ParseDecimalToMilligrams("1.5")      -> 1_500_000, nil
//	ParseDecimalToMilligrams("0,25")     -> 250_000, nil
//	ParseDecimalToMilligrams("100.0001") -> 100_000_100, nil
func ParseDecimalToMilligrams(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		// Signed values rejected: emissions are non-negative readings
		return 0, ErrInvalidAmount
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
	if intPart == "0" && fracPart == "" {
		// bare "." or ","
		if len(parts) == 2 {
			return 0, ErrInvalidAmount
		}
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
	kg, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Prevent overflow when multiplying by 1e6
	const maxSafeKg = (1<<63 - 1) / 1_000_000
	if kg > maxSafeKg {
		return 0, ErrInvalidAmount
	}
	// Take the first six fractional digits; half-up on the seventh
	var fracMilligrams int64
	scale := int64(100_000)
	for i := 0; i < len(fracPart) && i < 6; i++ {
		fracMilligrams += int64(fracPart[i]-'0') * scale
		scale /= 10
	}
	if len(fracPart) > 6 && fracPart[6] >= '5' {
		fracMilligrams++
	}
	return kg*1_000_000 + fracMilligrams, nil
}

// ParseAmount parses a decimal kgCO2e string into an Amount.
func ParseAmount(s string) (Amount, error) {
	mg, err := ParseDecimalToMilligrams(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Milligrams: mg}, nil
}

// Kilograms returns the kgCO2e value as a float64 for serialization.
// Use milligrams for arithmetic to avoid floating-point drift.
func (a Amount) Kilograms() float64 {
	return float64(a.Milligrams) / 1_000_000.0
}
