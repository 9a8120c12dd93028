package wmbusparser

import (
	"fmt"
	"strconv"
)

// FieldSet offers typed helpers on top of the decoded attribute map.
type FieldSet struct {
	data map[string]string
}

// FieldSet returns a FieldSet wrapper for the result's attributes.
func (r Result) FieldSet() FieldSet {
	return FieldSet{data: r.Attributes}
}

// Map exposes the underlying map for callers that still need raw access.
func (fs FieldSet) Map() map[string]string {
	return fs.data
}

// Has reports whether the telegram carried the attribute.
func (fs FieldSet) Has(key string) bool {
	_, ok := fs.data[key]
	return ok
}

// String returns the attribute as stored.
func (fs FieldSet) String(key string) (string, error) {
	v, ok := fs.data[key]
	if !ok {
		return "", fmt.Errorf("field %q missing", key)
	}
	return v, nil
}

// Float parses the attribute as a float64.
func (fs FieldSet) Float(key string) (float64, error) {
	v, err := fs.String(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q is not numeric: %w", key, err)
	}
	return f, nil
}

// Int parses the attribute as an int64.
func (fs FieldSet) Int(key string) (int64, error) {
	v, err := fs.String(key)
	if err != nil {
		return 0, err
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("field %q is not integer: %w", key, err)
	}
	return i, nil
}
