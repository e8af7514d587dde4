package models

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that is either present or absent. Absent values are
// omitted when the enclosing field is tagged omitzero, and a JSON null decodes
// as absent.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional wrapping v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the wrapped value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// IsZero reports absence; encoding/json consults it for omitzero fields.
func (o Optional[T]) IsZero() bool {
	return !o.set
}

// OrElse returns the wrapped value, or fallback when absent.
func (o Optional[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = Optional[T]{}
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Optional[T]{value: v, set: true}
	return nil
}
