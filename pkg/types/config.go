package types

import "errors"

// Config holds backend selection and engine limits.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`
	Limits  Limits `json:"limits" yaml:"limits"`
}

// Supported backend names.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Limits are the configured bounds the engine enforces. The zero value is
// not usable; call DefaultLimits or fill every field.
type Limits struct {
	// MaxPropertiesPerEntity bounds the total declared plus dynamic
	// property count of one instance.
	MaxPropertiesPerEntity int `json:"max_properties_per_entity" yaml:"max_properties_per_entity"`

	// TopMax and SkipMax bound the $top and $skip query parameters.
	TopMax  int `json:"top_max" yaml:"top_max"`
	SkipMax int `json:"skip_max" yaml:"skip_max"`

	// DefaultTop is the page size applied when $top is absent.
	DefaultTop int `json:"default_top" yaml:"default_top"`

	// DatetimeMin and DatetimeMax bound Edm.DateTime epoch millis,
	// inclusive on both ends.
	DatetimeMin int64 `json:"datetime_min" yaml:"datetime_min"`
	DatetimeMax int64 `json:"datetime_max" yaml:"datetime_max"`
}

// DefaultLimits returns the stock engine limits.
func DefaultLimits() Limits {
	return Limits{
		MaxPropertiesPerEntity: 400,
		TopMax:                 10000,
		SkipMax:                100000,
		DefaultTop:             25,
		DatetimeMin:            -6847804800000,
		DatetimeMax:            253402300799999,
	}
}

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrLimitsInvalid  = errors.New("limits must be positive and ordered")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite: true,
	BackendMemory: true,
}

// Validate checks that the Config is well-formed, returning a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	l := c.Limits
	if l.MaxPropertiesPerEntity <= 0 || l.TopMax <= 0 || l.SkipMax <= 0 || l.DefaultTop <= 0 {
		return ErrLimitsInvalid
	}
	if l.DefaultTop > l.TopMax || l.DatetimeMin >= l.DatetimeMax {
		return ErrLimitsInvalid
	}
	return nil
}
