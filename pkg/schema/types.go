package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Type defines the contract for field validation.
type Type interface {
	// Name returns the human-readable name of the type (e.g., "string", "int").
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

// IntType validates integer values, including whole float64 numbers decoded
// from JSON.
type IntType struct {
	min *int
}

func (t *IntType) Name() string {
	if t.min != nil {
		return fmt.Sprintf("int>=%d", *t.min)
	}
	return "int"
}

func (t *IntType) Validate(value any) error {
	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != float64(int64(v)) {
			return fmt.Errorf("expected int, got float (not a whole number)")
		}
		n = int64(v)
	default:
		return fmt.Errorf("expected int, got %T", value)
	}
	if t.min != nil && n < int64(*t.min) {
		return fmt.Errorf("must be at least %d", *t.min)
	}
	return nil
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

// ObjectType validates a nested object against its own schema.
type ObjectType struct {
	fields Schema
}

func (t *ObjectType) Name() string { return "object" }

func (t *ObjectType) Validate(value any) error {
	m, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("expected object, got %T", value)
	}
	return Validate(t.fields, m)
}

// EnumType accepts one of a fixed set of strings.
type EnumType struct {
	values []string
}

func (t *EnumType) Name() string { return strings.Join(t.values, "|") }

func (t *EnumType) Validate(value any) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	if !slices.Contains(t.values, s) {
		return fmt.Errorf("must be one of %s", t.Name())
	}
	return nil
}

// OptionalType marks a key that may be absent or null.
type OptionalType struct {
	inner Type
}

func (t *OptionalType) Name() string { return t.inner.Name() + "?" }

func (t *OptionalType) Validate(value any) error {
	if value == nil {
		return nil
	}
	return t.inner.Validate(value)
}

// CustomType applies a user-defined validation function.
type CustomType struct {
	name     string
	validate func(any) error
}

func (t *CustomType) Name() string { return t.name }

func (t *CustomType) Validate(value any) error {
	return t.validate(value)
}

// String creates a string type validator.
func String() Type { return &StringType{} }

// Int creates an integer type validator.
func Int() Type { return &IntType{} }

// IntAtLeast creates an integer validator with a lower bound.
func IntAtLeast(min int) Type { return &IntType{min: &min} }

// Bool creates a boolean type validator.
func Bool() Type { return &BoolType{} }

// Object creates a validator for a nested object.
func Object(fields Schema) Type { return &ObjectType{fields: fields} }

// Enum creates a validator that accepts only the given strings.
func Enum(values ...string) Type { return &EnumType{values: values} }

// Optional lets the key be missing.
func Optional(t Type) Type { return &OptionalType{inner: t} }

// Custom creates a custom type validator with a user-defined function.
func Custom(name string, validate func(any) error) Type {
	return &CustomType{name: name, validate: validate}
}
