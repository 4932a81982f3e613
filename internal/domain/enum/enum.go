// Package enum holds the single decode step shared by all persisted status types.
package enum

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Scan decodes a database value into a closed string enum, rejecting unknown values.
func Scan[T ~string](dst *T, src any, valid func(T) bool, typeName string) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*dst = ""
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("%s: unsupported scan type %T", typeName, src)
	}
	val := T(strings.TrimSpace(raw))
	if val != "" && !valid(val) {
		return fmt.Errorf("%s: unknown value %q", typeName, raw)
	}
	*dst = val
	return nil
}

// Value encodes a closed string enum, rejecting unknown values before they reach storage.
func Value[T ~string](v T, valid func(T) bool, typeName string) (driver.Value, error) {
	if v == "" {
		return "", nil
	}
	if !valid(v) {
		return nil, fmt.Errorf("%s: unknown value %q", typeName, string(v))
	}
	return string(v), nil
}

// Parse normalizes raw (trim + upper) and validates it.
func Parse[T ~string](raw string, valid func(T) bool, typeName string) (T, error) {
	v := T(strings.ToUpper(strings.TrimSpace(raw)))
	if !valid(v) {
		return "", fmt.Errorf("%s: unknown value %q", typeName, raw)
	}
	return v, nil
}
