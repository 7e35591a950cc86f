package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	valid := Config{Backend: BackendSQLite, Limits: DefaultLimits()}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"empty backend", func(c *Config) { c.Backend = "" }, ErrBackendEmpty},
		{"unknown backend", func(c *Config) { c.Backend = "postgres" }, ErrBackendUnknown},
		{"zero property cap", func(c *Config) { c.Limits.MaxPropertiesPerEntity = 0 }, ErrLimitsInvalid},
		{"negative top max", func(c *Config) { c.Limits.TopMax = -1 }, ErrLimitsInvalid},
		{"default above max", func(c *Config) { c.Limits.DefaultTop = c.Limits.TopMax + 1 }, ErrLimitsInvalid},
		{"datetime bounds inverted", func(c *Config) { c.Limits.DatetimeMin = c.Limits.DatetimeMax }, ErrLimitsInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			if err := c.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()
	if l.DatetimeMin >= l.DatetimeMax {
		t.Error("datetime bounds inverted")
	}
	if l.DefaultTop > l.TopMax {
		t.Error("default page exceeds the maximum")
	}
}
