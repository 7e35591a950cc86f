package engine

import (
	"fmt"

	"github.com/tessellate-io/strata/pkg/types"
)

// FormatDateTime renders epoch millis in the wire form "/Date(m)/".
func FormatDateTime(millis int64) string {
	return fmt.Sprintf("/Date(%d)/", millis)
}

// SerializeEntity renders an instance as the client-visible document:
// the reserved fields plus every property in its wire form. Declared
// DateTime values travel as "/Date(m)/" strings; everything else is
// already JSON-shaped in canonical form.
func SerializeEntity(schema types.SchemaProvider, e *types.Entity) map[string]any {
	et, _ := schema.EntityType(e.Type)
	out := make(map[string]any, len(e.Properties)+3)
	out[types.FieldID] = e.ID
	out[types.FieldPublished] = FormatDateTime(e.Published.UnixMilli())
	out[types.FieldUpdated] = FormatDateTime(e.Updated.UnixMilli())
	for name, v := range e.Properties {
		var decl *types.Property
		if et != nil {
			decl = et.Property(name)
		}
		if decl == nil {
			out[name] = v
			continue
		}
		out[name] = serializeDeclared(schema, decl.Type, decl.CollectionKind == types.CollectionKindList, v)
	}
	return out
}

func serializeDeclared(schema types.SchemaProvider, typ string, list bool, v any) any {
	if v == nil {
		return nil
	}
	if list {
		arr, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(arr))
		for i, el := range arr {
			out[i] = serializeDeclared(schema, typ, false, el)
		}
		return out
	}
	switch typ {
	case types.EdmDateTime:
		if millis, ok := v.(int64); ok {
			return FormatDateTime(millis)
		}
		return v
	case types.EdmString, types.EdmInt32, types.EdmDouble, types.EdmSingle, types.EdmBoolean:
		return v
	default:
		return serializeComplex(schema, typ, v)
	}
}

func serializeComplex(schema types.SchemaProvider, typName string, v any) any {
	ct, ok := schema.ComplexType(typName)
	if !ok {
		return v
	}
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	out := make(map[string]any, len(m))
	for name, val := range m {
		ctp := ct.Property(name)
		if ctp == nil {
			out[name] = val
			continue
		}
		out[name] = serializeDeclared(schema, ctp.Type, ctp.CollectionKind == types.CollectionKindList, val)
	}
	return out
}
