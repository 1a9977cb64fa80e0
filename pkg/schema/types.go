package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int?").
	Name() string
	// Validate checks if a value conforms to this type.
	Validate(value any) error
}

// StringType validates string values.
type StringType struct{}

func (t *StringType) Name() string { return "string" }

func (t *StringType) Validate(value any) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

// IntType validates integer values. Whole floats are accepted since JSON decodes
// every number as float64.
type IntType struct{}

func (t *IntType) Name() string { return "int" }

func (t *IntType) Validate(value any) error {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	case float64:
		if v == float64(int64(v)) {
			return nil
		}
		return fmt.Errorf("expected int, got float (not a whole number)")
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
}

// FloatType validates numeric values.
type FloatType struct{}

func (t *FloatType) Name() string { return "float" }

func (t *FloatType) Validate(value any) error {
	switch value.(type) {
	case float32, float64, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return nil
	default:
		return fmt.Errorf("expected float, got %T", value)
	}
}

// BoolType validates boolean values.
type BoolType struct{}

func (t *BoolType) Name() string { return "bool" }

func (t *BoolType) Validate(value any) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected bool, got %T", value)
	}
	return nil
}

// AnyType accepts every non-nil value. Used for literal values such as a
// condition's comparison operand.
type AnyType struct{}

func (t *AnyType) Name() string             { return "any" }
func (t *AnyType) Validate(value any) error { return nil }

// MapType validates free-form string-keyed objects (component params, query params).
type MapType struct{}

func (t *MapType) Name() string { return "map" }

func (t *MapType) Validate(value any) error {
	if _, ok := asMap(value); !ok {
		return fmt.Errorf("expected object, got %T", value)
	}
	return nil
}

// SliceType validates slices of a specific element type.
type SliceType struct {
	elemType Type
}

func (t *SliceType) Name() string {
	return fmt.Sprintf("[%s]", t.elemType.Name())
}

func (t *SliceType) Validate(value any) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected slice, got %T", value)
	}
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if err := t.elemType.Validate(elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

// EnumType validates a string against a closed set of values.
type EnumType struct {
	values []string
}

func (t *EnumType) Name() string { return "enum(" + strings.Join(t.values, "|") + ")" }

func (t *EnumType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	for _, v := range t.values {
		if v == s {
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(t.values, ", "))
}

// ObjectType validates a nested object against its own closed schema.
type ObjectType struct {
	fields Schema
}

func (t *ObjectType) Name() string { return "object" }

func (t *ObjectType) Validate(value any) error {
	m, ok := asMap(value)
	if !ok {
		return fmt.Errorf("expected object, got %T", value)
	}
	if errs := validate("", t.fields, m); len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// OptionalType marks a key that may be absent.
type OptionalType struct {
	inner Type
}

func (t *OptionalType) Name() string             { return t.inner.Name() + "?" }
func (t *OptionalType) Validate(value any) error { return t.inner.Validate(value) }

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// --- Factory Functions ---

func String() Type { return &StringType{} }
func Int() Type    { return &IntType{} }
func Float() Type  { return &FloatType{} }
func Bool() Type   { return &BoolType{} }
func Any() Type    { return &AnyType{} }
func Map() Type    { return &MapType{} }

// Slice creates a slice type validator for elements of the given type.
func Slice(elemType Type) Type {
	return &SliceType{elemType: elemType}
}

// Enum accepts exactly one of values.
func Enum(values ...string) Type {
	return &EnumType{values: values}
}

// Object validates a nested object.
func Object(fields Schema) Type {
	return &ObjectType{fields: fields}
}

// Optional allows the key to be absent or null.
func Optional(t Type) Type {
	if IsOptional(t) {
		return t
	}
	return &OptionalType{inner: t}
}

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}

// IsOptional reports whether t was wrapped with Optional.
func IsOptional(t Type) bool {
	_, ok := t.(*OptionalType)
	return ok
}

func unwrap(t Type) Type {
	if o, ok := t.(*OptionalType); ok {
		return o.inner
	}
	return t
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, e := range m {
			out[fmt.Sprint(k)] = e
		}
		return out, true
	}
	return nil, false
}

// ParseType converts a type name back to a Type. Supports string, int, float,
// bool, any, map, [T], enum(a|b) and a trailing ? for optional keys. Object
// and custom types cannot be parsed back.
func ParseType(typeStr string) (Type, error) {
	if strings.HasSuffix(typeStr, "?") {
		inner, err := ParseType(strings.TrimSuffix(typeStr, "?"))
		if err != nil {
			return nil, err
		}
		return Optional(inner), nil
	}
	if len(typeStr) > 2 && typeStr[0] == '[' && typeStr[len(typeStr)-1] == ']' {
		elemType, err := ParseType(typeStr[1 : len(typeStr)-1])
		if err != nil {
			return nil, fmt.Errorf("invalid slice element type: %w", err)
		}
		return Slice(elemType), nil
	}
	if strings.HasPrefix(typeStr, "enum(") && strings.HasSuffix(typeStr, ")") {
		body := strings.TrimSuffix(strings.TrimPrefix(typeStr, "enum("), ")")
		if body == "" {
			return nil, fmt.Errorf("empty enum")
		}
		return Enum(strings.Split(body, "|")...), nil
	}

	switch typeStr {
	case "string":
		return String(), nil
	case "int":
		return Int(), nil
	case "float":
		return Float(), nil
	case "bool":
		return Bool(), nil
	case "any":
		return Any(), nil
	case "map":
		return Map(), nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", typeStr)
	}
}

// ParseTypeMap converts a map of field names to type strings into a Schema.
func ParseTypeMap(typeMap map[string]string) (Schema, error) {
	result := make(Schema)
	for key, typeStr := range typeMap {
		t, err := ParseType(typeStr)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		result[key] = t
	}
	return result, nil
}
