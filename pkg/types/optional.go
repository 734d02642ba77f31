package types

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes "field omitted" from "field explicitly set to null"
// in partial-update payloads. A zero Optional means the caller never sent the
// field; Set with a nil Value means the caller asked to clear it.
type Optional[T any] struct {
	Set   bool
	Value *T
}

// NewOptional returns a present Optional holding value.
func NewOptional[T any](value T) Optional[T] {
	return Optional[T]{Set: true, Value: &value}
}

// NullOptional returns a present Optional holding an explicit null.
func NullOptional[T any]() Optional[T] {
	return Optional[T]{Set: true}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(data, []byte("null")) {
		o.Value = nil
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
