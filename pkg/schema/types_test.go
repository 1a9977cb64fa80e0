package schema

import (
	"encoding/json"
	"testing"
)

func TestScalarTypes(t *testing.T) {
	tests := []struct {
		typ     Type
		name    string
		value   any
		wantErr bool
	}{
		{String(), "string", "hello", false},
		{String(), "string", 42, true},
		{Int(), "int", 42, false},
		{Int(), "int", float64(42), false},
		{Int(), "int", 42.5, true},
		{Int(), "int", "42", true},
		{Float(), "float", 3, false},
		{Float(), "float", 3.5, false},
		{Float(), "float", "3.5", true},
		{Bool(), "bool", true, false},
		{Bool(), "bool", "true", true},
		{Any(), "any", []any{1}, false},
		{Map(), "map", map[string]any{"a": 1}, false},
		{Map(), "map", map[any]any{"a": 1}, false},
		{Map(), "map", []any{}, true},
	}

	for _, tt := range tests {
		if tt.typ.Name() != tt.name {
			t.Errorf("Name() = %q, want %q", tt.typ.Name(), tt.name)
		}
		err := tt.typ.Validate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("%s.Validate(%v) error = %v, wantErr %v", tt.name, tt.value, err, tt.wantErr)
		}
	}
}

func TestSliceType(t *testing.T) {
	typ := Slice(String())
	if typ.Name() != "[string]" {
		t.Errorf("Name() = %q", typ.Name())
	}
	if err := typ.Validate([]any{"a", "b"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := typ.Validate([]any{"a", 2}); err == nil {
		t.Error("expected element error")
	}
	if err := typ.Validate("a"); err == nil {
		t.Error("expected slice error")
	}
}

func TestEnumType(t *testing.T) {
	typ := Enum("info", "warning")
	if typ.Name() != "enum(info|warning)" {
		t.Errorf("Name() = %q", typ.Name())
	}
	if err := typ.Validate("info"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := typ.Validate("fatal"); err == nil {
		t.Error("expected error for value outside the enum")
	}
}

func TestOptional(t *testing.T) {
	typ := Optional(Int())
	if typ.Name() != "int?" {
		t.Errorf("Name() = %q", typ.Name())
	}
	if !IsOptional(typ) || IsOptional(Int()) {
		t.Error("IsOptional mismatch")
	}
	if Optional(typ) != typ {
		t.Error("Optional should not wrap twice")
	}
}

func TestParseType(t *testing.T) {
	for _, s := range []string{"string", "int?", "[float]", "enum(a|b)", "[enum(x|y)]?", "map", "any"} {
		typ, err := ParseType(s)
		if err != nil {
			t.Errorf("ParseType(%q) error = %v", s, err)
			continue
		}
		if typ.Name() != s {
			t.Errorf("ParseType(%q).Name() = %q", s, typ.Name())
		}
	}
	for _, s := range []string{"", "decimal", "enum()", "[nope]"} {
		if _, err := ParseType(s); err == nil {
			t.Errorf("ParseType(%q) should fail", s)
		}
	}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	s := Schema{"source": String(), "limit": Optional(Int()), "align": Optional(Enum("left", "right"))}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"align":"enum(left|right)?","limit":"int?","source":"string"}`
	if string(data) != want {
		t.Errorf("MarshalJSON = %s, want %s", data, want)
	}

	var back Schema
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if len(back) != 3 || back["limit"].Name() != "int?" {
		t.Errorf("unexpected schema: %v", back.Describe())
	}
}
