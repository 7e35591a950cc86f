package types

import (
	"encoding/json"
	"strings"
)

// StoreQuery is the native query handed to an EntityStore. The engine's
// query package builds it from raw $filter/$orderby/$top/$skip/$inlinecount
// input; stores execute it natively (SQL pushdown) or fall back to scanning
// with Filter.Match.
type StoreQuery struct {
	Filter    Filter
	Sort      *SortSpec
	Top       int
	Skip      int
	NeedCount bool

	// IDs, when non-nil, restricts results to the given ids. Used for
	// navigation-property listings.
	IDs []string
}

// SortSpec orders results by one property. Ties always break by entity id
// ascending so pagination stays deterministic.
type SortSpec struct {
	Property   string
	Descending bool
}

// Filter is a predicate over entity instances. Match is the in-memory
// correctness fallback; stores are free to translate the concrete filter
// types into native queries instead.
type Filter interface {
	Match(e *Entity) bool
}

// EqFilter matches instances whose property equals Value. Value is in
// canonical form; a nil Value matches properties that are explicitly null
// (present with a null value), never absent ones.
type EqFilter struct {
	Property string
	Value    any
}

// Match implements Filter.
func (f *EqFilter) Match(e *Entity) bool {
	v, ok := e.Properties[f.Property]
	if !ok {
		return false
	}
	return EqualValues(v, f.Value)
}

// StartsWithFilter matches string properties with the given prefix.
type StartsWithFilter struct {
	Property string
	Prefix   string
}

// Match implements Filter.
func (f *StartsWithFilter) Match(e *Entity) bool {
	s, ok := e.Properties[f.Property].(string)
	return ok && strings.HasPrefix(s, f.Prefix)
}

// SubstringOfFilter matches string properties containing the given
// substring.
type SubstringOfFilter struct {
	Property string
	Substr   string
}

// Match implements Filter.
func (f *SubstringOfFilter) Match(e *Entity) bool {
	s, ok := e.Properties[f.Property].(string)
	return ok && strings.Contains(s, f.Substr)
}

// EqualValues compares two canonical values. Numeric forms (int64 and
// json.Number) compare by value across representations; everything else
// compares by type and identity.
func EqualValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := numericValue(a); aok {
		bf, bok := numericValue(b)
		return bok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return false
	}
}

// LessValues orders two canonical values for sorting: null first, then
// booleans (false before true), then numbers, then strings. Cross-class
// comparisons order by class.
func LessValues(a, b any) bool {
	ca, cb := valueClass(a), valueClass(b)
	if ca != cb {
		return ca < cb
	}
	switch ca {
	case classBool:
		return !a.(bool) && b.(bool)
	case classNumber:
		af, _ := numericValue(a)
		bf, _ := numericValue(b)
		return af < bf
	case classString:
		return a.(string) < b.(string)
	default:
		return false
	}
}

const (
	classNull = iota
	classBool
	classNumber
	classString
	classOther
)

func valueClass(v any) int {
	switch v.(type) {
	case nil:
		return classNull
	case bool:
		return classBool
	case int64, json.Number:
		return classNumber
	case string:
		return classString
	default:
		return classOther
	}
}

func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
