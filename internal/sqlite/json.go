package sqlite

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tessellate-io/strata/pkg/types"
)

// encodeProperties renders the canonical property map as the stored JSON
// document. Canonical values marshal losslessly: int64 and json.Number
// both emit bare numbers, so the decimal text of a double survives
// unchanged.
func encodeProperties(props map[string]any) ([]byte, error) {
	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("encoding properties: %w", err)
	}
	return data, nil
}

// decodeProperties hydrates a stored document back into canonical form.
// Numbers decode through json.Number; integer-valued tokens normalize to
// int64 and the rest stay json.Number, preserving their decimal text.
func decodeProperties(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var props map[string]any
	if err := dec.Decode(&props); err != nil {
		return nil, fmt.Errorf("decoding properties: %w: %v", types.ErrInvalidData, err)
	}
	return normalizeMap(props), nil
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		return t
	case map[string]any:
		return normalizeMap(t)
	case []any:
		for i, el := range t {
			t[i] = normalizeValue(el)
		}
		return t
	default:
		return v
	}
}
