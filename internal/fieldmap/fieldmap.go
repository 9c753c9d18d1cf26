// Package fieldmap converts between typed records and ordered field maps.
//
// A record is a struct whose exported, directly declared fields are its
// mappable fields. The `fm` struct tag controls the mapping:
//
//	Name  string `fm:"Full Name"`       // wire name override
//	Cache string `fm:"-"`               // never mapped
//	Photo []byte `fm:"Photo,container"` // container field, filled by the client
package fieldmap

import (
	"bytes"
	"encoding/json"
)

// FieldMap is a string-keyed map that remembers insertion order.
type FieldMap struct {
	keys   []string
	values map[string]any
}

func NewFieldMap() *FieldMap {
	return &FieldMap{values: map[string]any{}}
}

// Set stores value under key. An existing key keeps its position.
func (m *FieldMap) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *FieldMap) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *FieldMap) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *FieldMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *FieldMap) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Range calls fn for every entry in order until fn returns false.
func (m *FieldMap) Range(fn func(key string, value any) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Map returns an unordered copy.
func (m *FieldMap) Map() map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}

// MarshalJSON writes the entries as a JSON object in insertion order.
func (m *FieldMap) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	var err error
	i := 0
	m.Range(func(k string, v any) bool {
		if i > 0 {
			b.WriteByte(',')
		}
		i++
		key, _ := json.Marshal(k)
		b.Write(key)
		b.WriteByte(':')
		enc, mErr := json.Marshal(v)
		if mErr != nil {
			err = &SerializationError{Field: k, Value: v, Err: mErr}
			return false
		}
		b.Write(enc)
		return true
	})
	if err != nil {
		return nil, err
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
