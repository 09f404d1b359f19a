package wire

import (
	"errors"
	"fmt"
)

// ErrFieldType is returned when an object field holds a value of the wrong JSON type.
var ErrFieldType = errors.New("unexpected field type")

// Object reports whether v is a JSON object.
func Object(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// StringField returns the string stored under key. An absent or null field
// yields "" and no error.
func StringField(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string, got %T", ErrFieldType, key, v)
	}
	return s, nil
}

// ObjectField returns the object stored under key, or nil when the field is
// absent or null.
func ObjectField(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q must be an object, got %T", ErrFieldType, key, v)
	}
	return obj, nil
}

// IntField returns the integer stored under key. The second result is false
// when the field is absent or null.
func IntField(m map[string]any, key string) (int64, bool, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, false, nil
	}
	n, ok := Int64(v)
	if !ok {
		return 0, false, fmt.Errorf("%w: %q must be an integer, got %v", ErrFieldType, key, v)
	}
	return n, true, nil
}
