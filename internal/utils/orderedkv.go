package utils

import (
	"bytes"
	"encoding/json"
)

// OrderedMap is a JSON object that keeps keys in insertion order.
type OrderedMap[T any] struct {
	keys   []string
	values map[string]T
}

func NewOrderedMap[T any](capacity int) *OrderedMap[T] {
	return &OrderedMap[T]{
		keys:   make([]string, 0, capacity),
		values: make(map[string]T, capacity),
	}
}

// Set appends key, or replaces its value in place when already present.
func (om *OrderedMap[T]) Set(key string, value T) {
	if _, ok := om.values[key]; !ok {
		om.keys = append(om.keys, key)
	}
	om.values[key] = value
}

func (om *OrderedMap[T]) Get(key string) (T, bool) {
	v, ok := om.values[key]
	return v, ok
}

func (om *OrderedMap[T]) Keys() []string {
	return om.keys
}

func (om *OrderedMap[T]) Len() int {
	return len(om.keys)
}

func (om *OrderedMap[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range om.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyBytes, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valueBytes, err := json.Marshal(om.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(valueBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
