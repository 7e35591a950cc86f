package engine

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tessellate-io/strata/pkg/types"
)

// SysUTCDateTime is the reserved DateTime literal resolved to the current
// instant at write time.
const SysUTCDateTime = "SYSUTCDATETIME()"

// maxValueLength bounds the byte length of one string value.
const maxValueLength = 1024 * 50

var (
	dateTimeRe = regexp.MustCompile(`^/Date\((-?[0-9]+)\)/$`)
	nameRe     = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]{0,127}$`)
)

// ValidName reports whether s is usable as a schema or property name.
// Engine-managed names (double-underscore prefix) are reserved.
func ValidName(s string) bool {
	return nameRe.MatchString(s) && !strings.HasPrefix(s, "__")
}

// coercer validates and canonicalizes raw payload values against declared
// types. One coercer serves one write operation; now pins the instant that
// SYSUTCDATETIME() resolves to so every occurrence in a payload agrees.
type coercer struct {
	schema types.SchemaProvider
	limits types.Limits
	now    time.Time
}

// propDecl is the common shape of Property and ComplexTypeProperty.
type propDecl struct {
	name     string
	typ      string
	nullable bool
	def      any
	list     bool
}

func declOf(p *types.Property) propDecl {
	return propDecl{
		name:     p.Name,
		typ:      p.Type,
		nullable: p.Nullable,
		def:      p.DefaultValue,
		list:     p.CollectionKind == types.CollectionKindList,
	}
}

func ctpDeclOf(p *types.ComplexTypeProperty) propDecl {
	return propDecl{
		name:     p.Name,
		typ:      p.Type,
		nullable: p.Nullable,
		def:      p.DefaultValue,
		list:     p.CollectionKind == types.CollectionKindList,
	}
}

// coerce canonicalizes a supplied value. A null value takes the declared
// default when one is configured; otherwise null is preserved for nullable
// declarations and rejected for the rest.
func (c *coercer) coerce(d propDecl, raw any) (any, *types.Error) {
	if raw == nil {
		if d.def != nil {
			return c.coerceScalar(d.name, d.typ, d.def)
		}
		if d.nullable {
			return nil, nil
		}
		return nil, types.RequestFieldFormatError(d.name)
	}
	if d.list {
		return c.coerceList(d, raw)
	}
	if types.IsEdmType(d.typ) {
		return c.coerceScalar(d.name, d.typ, raw)
	}
	return c.coerceComplex(d.name, d.typ, raw)
}

// missing resolves a declared property with no supplied value on a full
// write: the default when configured, null when nullable, otherwise a
// required-field error.
func (c *coercer) missing(d propDecl) (any, *types.Error) {
	if d.def != nil {
		return c.coerceScalar(d.name, d.typ, d.def)
	}
	if d.nullable {
		return nil, nil
	}
	return nil, types.InputRequiredFieldMissing(d.name)
}

// coerceList validates a homogeneous array. Null elements are preserved
// positionally; one invalid element invalidates the whole value.
func (c *coercer) coerceList(d propDecl, raw any) (any, *types.Error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, types.RequestFieldFormatError(d.name)
	}
	out := make([]any, len(arr))
	for i, el := range arr {
		if el == nil {
			out[i] = nil
			continue
		}
		var v any
		var err *types.Error
		if types.IsEdmType(d.typ) {
			v, err = c.coerceScalar(d.name, d.typ, el)
		} else {
			v, err = c.coerceComplex(d.name, d.typ, el)
		}
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *coercer) coerceScalar(name, typ string, raw any) (any, *types.Error) {
	switch typ {
	case types.EdmString:
		s, ok := raw.(string)
		if !ok || len(s) > maxValueLength {
			return nil, types.RequestFieldFormatError(name)
		}
		return s, nil

	case types.EdmInt32:
		return c.coerceInt32(name, raw)

	case types.EdmDouble, types.EdmSingle:
		return c.coerceDouble(name, raw)

	case types.EdmBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, types.RequestFieldFormatError(name)
		}
		return b, nil

	case types.EdmDateTime:
		return c.coerceDateTime(name, raw)

	default:
		return nil, types.RequestFieldFormatError(name)
	}
}

// coerceInt32 accepts native integers inside the int32 range. Strings are
// never accepted as Int32, even when they look numeric.
func (c *coercer) coerceInt32(name string, raw any) (any, *types.Error) {
	var v int64
	switch n := raw.(type) {
	case int:
		v = int64(n)
	case int32:
		v = int64(n)
	case int64:
		v = n
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, types.RequestFieldFormatError(name)
		}
		v = i
	case float64:
		if math.Trunc(n) != n {
			return nil, types.RequestFieldFormatError(name)
		}
		v = int64(n)
	default:
		return nil, types.RequestFieldFormatError(name)
	}
	if v < math.MinInt32 || v > math.MaxInt32 {
		return nil, types.RequestFieldFormatError(name)
	}
	return v, nil
}

// coerceDouble accepts native numbers and numeric strings, range-checks
// the magnitude, and stores the canonical decimal representation.
func (c *coercer) coerceDouble(name string, raw any) (any, *types.Error) {
	var f float64
	switch n := raw.(type) {
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case float64:
		f = n
	case json.Number:
		p, err := n.Float64()
		if err != nil {
			return nil, types.RequestFieldFormatError(name)
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, types.RequestFieldFormatError(name)
		}
		f = p
	default:
		return nil, types.RequestFieldFormatError(name)
	}
	if !validDouble(f) {
		return nil, types.RequestFieldFormatError(name)
	}
	return json.Number(formatDouble(f)), nil
}

// coerceDateTime accepts "/Date(<millis>)/" and the SYSUTCDATETIME()
// literal, storing epoch millis. The millis must fall inside the
// configured range, inclusive on both bounds.
func (c *coercer) coerceDateTime(name string, raw any) (any, *types.Error) {
	s, ok := raw.(string)
	if !ok {
		return nil, types.RequestFieldFormatError(name)
	}
	if s == SysUTCDateTime {
		return c.now.UnixMilli(), nil
	}
	m := dateTimeRe.FindStringSubmatch(s)
	if m == nil {
		return nil, types.RequestFieldFormatError(name)
	}
	millis, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return nil, types.RequestFieldFormatError(name)
	}
	if millis < c.limits.DatetimeMin || millis > c.limits.DatetimeMax {
		return nil, types.RequestFieldFormatError(name)
	}
	return millis, nil
}

// coerceComplex validates a nested complex value by recursively applying
// the property contract of the declared ComplexType. Keys not declared on
// the type are rejected; declared properties absent from the value resolve
// through the usual default/nullable/required rules.
func (c *coercer) coerceComplex(name, typName string, raw any) (any, *types.Error) {
	ct, ok := c.schema.ComplexType(typName)
	if !ok {
		return nil, types.RequestFieldFormatError(name)
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, types.RequestFieldFormatError(name)
	}
	for k := range m {
		if ct.Property(k) == nil {
			return nil, types.RequestFieldFormatError(k)
		}
	}
	out := make(map[string]any, len(ct.Properties))
	for _, ctp := range ct.Properties {
		d := ctpDeclOf(ctp)
		raw, supplied := m[ctp.Name]
		var v any
		var err *types.Error
		if supplied {
			v, err = c.coerce(d, raw)
		} else {
			v, err = c.missing(d)
		}
		if err != nil {
			return nil, err
		}
		out[ctp.Name] = v
	}
	return out, nil
}

// coerceDynamic canonicalizes a value for an undeclared property. The type
// is inferred from the literal; nested objects and arrays are not accepted
// dynamically, only through a declared schema.
func (c *coercer) coerceDynamic(name string, raw any) (any, *types.Error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if len(v) > maxValueLength {
			return nil, types.RequestFieldFormatError(name)
		}
		return v, nil
	case bool:
		return v, nil
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if math.Trunc(v) == v && v >= math.MinInt64 && v <= math.MaxInt64 && math.Abs(v) < 1e15 {
			return int64(v), nil
		}
		if !validDouble(v) {
			return nil, types.RequestFieldFormatError(name)
		}
		return json.Number(formatDouble(v)), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil || !validDouble(f) {
			return nil, types.RequestFieldFormatError(name)
		}
		return json.Number(formatDouble(f)), nil
	default:
		return nil, types.RequestFieldFormatError(name)
	}
}
