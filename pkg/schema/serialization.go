package schema

import (
	"encoding/json"
	"fmt"
)

// Describe returns the schema as key to type name, as shown by node catalogs.
func (s Schema) Describe() map[string]string {
	out := make(map[string]string, len(s))
	for key, typ := range s {
		out[key] = typ.Name()
	}
	return out
}

// MarshalJSON serializes the schema as a map of field names to type strings.
func (s Schema) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	for key, typ := range s {
		if typ == nil {
			return nil, fmt.Errorf("field %s: type is nil", key)
		}
	}
	return json.Marshal(s.Describe())
}

// UnmarshalJSON deserializes the schema from a map of field names to type strings.
func (s *Schema) UnmarshalJSON(data []byte) error {
	if s == nil {
		return fmt.Errorf("schema: UnmarshalJSON on nil pointer")
	}
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTypeMap(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
