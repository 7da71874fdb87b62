package schema

import (
	"encoding/json"
	"fmt"
)

// MarshalJSON serializes the schema as a map of keys to type names, with
// nested objects expanded.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}

	raw := make(map[string]any, len(s))
	for key, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("field %s: type is nil", key)
		}
		raw[key] = describe(typ)
	}
	return json.Marshal(raw)
}

func describe(t Type) any {
	switch v := t.(type) {
	case *ObjectType:
		return v.fields
	case *OptionalType:
		if obj, ok := v.inner.(*ObjectType); ok {
			return map[string]any{"optional": obj.fields}
		}
	}
	return t.Name()
}
