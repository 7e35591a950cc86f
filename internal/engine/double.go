package engine

import (
	"strconv"
	"strings"
)

// Double magnitude bounds. Zero is always valid; other magnitudes must
// fall inside [doubleMinMagnitude, doubleMaxMagnitude].
const (
	doubleMaxMagnitude = 1.79e308
	doubleMinMagnitude = 2.23e-308
)

// validDouble reports whether f is inside the accepted double range.
func validDouble(f float64) bool {
	if f == 0 {
		return true
	}
	m := f
	if m < 0 {
		m = -m
	}
	return m >= doubleMinMagnitude && m <= doubleMaxMagnitude
}

// formatDouble renders the canonical decimal representation of a double:
// at most 15 significant digits when that string round-trips to the same
// float64, otherwise the full shortest round-trip form. Exponents render
// without a plus sign or leading zeros (1.79E308, not 1.79E+308).
func formatDouble(f float64) string {
	capped := cleanExponent(strconv.FormatFloat(f, 'G', 15, 64))
	if p, err := strconv.ParseFloat(capped, 64); err == nil && p == f {
		return capped
	}
	return cleanExponent(strconv.FormatFloat(f, 'G', -1, 64))
}

// cleanExponent strips the plus sign and leading zeros from the exponent
// part of a formatted float.
func cleanExponent(s string) string {
	e := strings.IndexByte(s, 'E')
	if e < 0 {
		return s
	}
	mantissa, exp := s[:e], s[e+1:]
	neg := false
	if strings.HasPrefix(exp, "+") {
		exp = exp[1:]
	} else if strings.HasPrefix(exp, "-") {
		neg = true
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}
	if neg {
		exp = "-" + exp
	}
	return mantissa + "E" + exp
}
