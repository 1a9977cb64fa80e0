package schema

import (
	"fmt"
	"sort"
)

// Schema is a map of config keys to their expected types.
type Schema map[string]Type

// Keys returns the declared keys in sorted order.
func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks data against the schema: required keys must be present, present
// keys must match their type and undeclared keys are rejected. All failures are
// returned, ordered by key.
func Validate(schema Schema, data map[string]any) error {
	errs := validate("", schema, data)
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

func validate(prefix string, schema Schema, data map[string]any) []error {
	var errs []error
	for _, key := range schema.Keys() {
		typ := schema[key]
		value, exists := data[key]
		if !exists || value == nil {
			if !IsOptional(typ) {
				errs = append(errs, &ValidationError{Key: prefix + key, Reason: "required"})
			}
			continue
		}
		if obj, ok := unwrap(typ).(*ObjectType); ok {
			m, isMap := asMap(value)
			if !isMap {
				errs = append(errs, &ValidationError{Key: prefix + key, Reason: fmt.Sprintf("expected object, got %T", value), Value: value})
				continue
			}
			errs = append(errs, validate(prefix+key+".", obj.fields, m)...)
			continue
		}
		if err := typ.Validate(value); err != nil {
			errs = append(errs, &ValidationError{Key: prefix + key, Reason: err.Error(), Value: value})
		}
	}

	var unknown []string
	for key := range data {
		if _, ok := schema[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, &ValidationError{Key: prefix + key, Reason: "unknown field"})
	}
	return errs
}
