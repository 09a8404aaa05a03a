package metadata

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// Metadata is an ordered set of key value pairs.
//
// Entries are either keyed or positional. Positional entries have a decimal integer key assigned on Append.
// Merging metadata overwrites keyed entries and appends positional entries.
type Metadata struct {
	keys   []string
	values map[string]interface{}
	next   int
}

var (
	// Ensure Metadata implements the json.Marshaler interface
	_ json.Marshaler = &Metadata{}
	// Ensure Metadata implements the json.Unmarshaler interface
	_ json.Unmarshaler = &Metadata{}
)

// New return a new Metadata instance without any information
func New() *Metadata {
	return &Metadata{values: map[string]interface{}{}}
}

// FromMap returns a new Metadata instance filled with the map data.
// Positional keys are ordered numerically followed by the other keys in lexical order.
func FromMap(data map[string]interface{}) *Metadata {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iPositional := position(keys[i])
		nj, jPositional := position(keys[j])
		switch {
		case iPositional && jPositional:
			return ni < nj
		case iPositional != jPositional:
			return iPositional
		}
		return keys[i] < keys[j]
	})

	m := New()
	for _, k := range keys {
		m.Set(k, data[k])
	}

	return m
}

// Set sets the value of key overwriting any existing value while keeping its position
func (m *Metadata) Set(key string, val interface{}) *Metadata {
	m.init()
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = val

	if n, ok := position(key); ok && n >= m.next {
		m.next = n + 1
	}

	return m
}

// Append adds a positional entry
func (m *Metadata) Append(val interface{}) *Metadata {
	m.init()
	key := strconv.Itoa(m.next)
	m.keys = append(m.keys, key)
	m.values[key] = val
	m.next++

	return m
}

// Merge adds the entries of other in their order: keyed entries overwrite and positional entries are appended
func (m *Metadata) Merge(other *Metadata) *Metadata {
	m.init()
	if other == nil {
		return m
	}

	for _, k := range other.keys {
		if IsPositional(k) {
			m.Append(other.values[k])
			continue
		}
		m.Set(k, other.values[k])
	}

	return m
}

// Value returns the value associated with key, or nil if no value is associated with key
func (m *Metadata) Value(key string) interface{} {
	if m == nil {
		return nil
	}

	return m.values[key]
}

// Has returns true when a value is associated with key
func (m *Metadata) Has(key string) bool {
	if m == nil {
		return false
	}

	_, found := m.values[key]
	return found
}

// Delete removes key
func (m *Metadata) Delete(key string) *Metadata {
	if m == nil {
		return m
	}
	if _, found := m.values[key]; !found {
		return m
	}

	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}

	return m
}

// Len returns the number of entries
func (m *Metadata) Len() int {
	if m == nil {
		return 0
	}

	return len(m.keys)
}

// Keys returns the keys in order
func (m *Metadata) Keys() []string {
	if m == nil {
		return nil
	}

	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Each calls fn for every entry in order
func (m *Metadata) Each(fn func(key string, val interface{})) {
	if m == nil {
		return
	}

	for _, k := range m.keys {
		fn(k, m.values[k])
	}
}

// AsMap return the Metadata as a map[string]interface{}
func (m *Metadata) AsMap() map[string]interface{} {
	res := make(map[string]interface{}, m.Len())
	m.Each(func(k string, v interface{}) {
		res[k] = v
	})

	return res
}

// Copy returns a shallow copy
func (m *Metadata) Copy() *Metadata {
	c := New()
	if m == nil {
		return c
	}

	c.keys = append(c.keys, m.keys...)
	for k, v := range m.values {
		c.values[k] = v
	}
	c.next = m.next

	return c
}

// MarshalJSON returns the metadata as a json object with the keys in order
func (m *Metadata) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal metadata %s", k)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON reads a json object into the metadata keeping the order of the keys
func (m *Metadata) UnmarshalJSON(data []byte) error {
	*m = Metadata{values: map[string]interface{}{}}

	dec := json.NewDecoder(bytes.NewReader(data))
	t, err := dec.Token()
	if err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	if t != json.Delim('{') {
		return errors.New("failed to parse metadata an object was expected")
	}

	for dec.More() {
		t, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := t.(string)
		if !ok {
			return errors.Errorf("failed to parse metadata unexpected token %v", t)
		}

		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return errors.Wrapf(err, "failed to parse metadata %s", key)
		}
		m.Set(key, v)
	}

	// Discard '}'
	if _, err := dec.Token(); err != nil {
		return err
	}

	return nil
}

func (m *Metadata) init() {
	if m.values == nil {
		m.values = map[string]interface{}{}
	}
}

// IsPositional returns true when key is a positional key
func IsPositional(key string) bool {
	_, ok := position(key)
	return ok
}

func position(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}

	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}

	return n, true
}
