package engine

import (
	"math"
	"strconv"
	"testing"
)

func TestValidDouble(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want bool
	}{
		{"zero", 0, true},
		{"one", 1, true},
		{"negative", -123.5, true},
		{"max magnitude", 1.79e308, true},
		{"above max", 1.7976931348623157e308, false},
		{"min magnitude", 2.23e-308, true},
		{"below min", 2.2e-308, false},
		{"negative max", -1.79e308, true},
		{"negative overflow", -1.7976931348623157e308, false},
		{"infinity", math.Inf(1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validDouble(tt.in); got != tt.want {
				t.Errorf("validDouble(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDouble(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{"zero", 0, "0"},
		{"integer valued", 12345, "12345"},
		{"plain decimal", 12345.123456789, "12345.123456789"},
		{"negative decimal", -0.5, "-0.5"},
		{"max magnitude", 1.79e308, "1.79E308"},
		{"min magnitude", 2.23e-308, "2.23E-308"},
		// 2^63-1 does not survive the 15-digit cap, so the full
		// round-trip form applies.
		{"long max", float64(math.MaxInt64), "9.223372036854776E18"},
		{"small exponent", 1e21, "1E21"},
		{"negative exponent", 1.5e-10, "1.5E-10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDouble(tt.in); got != tt.want {
				t.Errorf("formatDouble(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatDoubleRoundTrip(t *testing.T) {
	// The canonical form must re-parse to the identical float64.
	values := []float64{0, 1, -1, 12345.123456789, 1.79e308, 2.23e-308, float64(math.MaxInt64), 0.1, 1.0 / 3.0}
	for _, v := range values {
		s := formatDouble(v)
		back, err := strconv.ParseFloat(s, 64)
		if err != nil {
			t.Fatalf("formatDouble(%v) = %q does not parse: %v", v, s, err)
		}
		if back != v {
			t.Errorf("formatDouble(%v) = %q re-parses to %v", v, s, back)
		}
	}
}
