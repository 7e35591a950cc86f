package types

import "time"

// Reserved payload field names. "__id" may be supplied on create to choose
// the entity id; the rest are engine-managed and rejected on input.
const (
	FieldID        = "__id"
	FieldPublished = "__published"
	FieldUpdated   = "__updated"
	FieldMetadata  = "__metadata"
)

// Entity is one dynamically-typed instance of an EntityType.
//
// Properties holds a mix of declared (schema-validated) and dynamic entries
// in canonical form: string, int64 (Edm.Int32 and Edm.DateTime millis),
// json.Number (Edm.Double/Edm.Single decimal text), bool, nil, []any and
// map[string]any for list and complex values. Published is set once at
// create and never recomputed; Updated and Version change on every
// successful write.
type Entity struct {
	ID         string
	Type       string
	Properties map[string]any
	Published  time.Time
	Updated    time.Time
	Version    int64
}

// Clone returns a deep copy. Store implementations hand out clones so
// callers can never mutate stored state in place.
func (e *Entity) Clone() *Entity {
	out := *e
	out.Properties = cloneValue(e.Properties).(map[string]any)
	return &out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}
