// Package codec converts structs into their structural form (Data) and back.
//
// The conversion is driven by a field descriptor table that is built once per type.
// Field names are taken from the `codec` struct tag or are the lowerCamelCase form of the Go field name.
// The `omitempty` tag option leaves zero values out of the structural form, e.g. `codec:",omitempty"`.
// Embedded structs act as ancestors: their fields are visited after the fields of the embedding struct
// and are shadowed by fields with the same name.
package codec

import (
	"reflect"
	"sort"
	"sync"
)

type (
	// Data is the structural representation of a value: a map of scalars, lists and nested maps
	Data = map[string]interface{}

	// Serializer is implemented by values that can produce their own structural representation
	Serializer interface {
		Serialize() (Data, error)
	}

	// Unserializer is implemented by values that can be rebuilt from their structural representation
	Unserializer interface {
		Unserialize(data Data) error
	}

	// Serializable is a value that can be converted from and into its structural representation
	Serializable interface {
		Serializer
		Unserializer
	}

	// Codec serializes and deserializes structs based on cached field descriptors
	Codec struct {
		mu          sync.RWMutex
		descriptors map[reflect.Type]*descriptor
		schemas     map[reflect.Type]*schema
	}
)

var defaultCodec = New()

// New returns a new Codec with an empty descriptor table
func New() *Codec {
	return &Codec{
		descriptors: map[reflect.Type]*descriptor{},
		schemas:     map[reflect.Type]*schema{},
	}
}

// Register builds and caches the descriptors of the given struct prototypes.
// Registering is optional, descriptors are built on first use, but it allows unsupported fields to be reported early.
func (c *Codec) Register(prototypes ...interface{}) error {
	for _, p := range prototypes {
		t := reflect.TypeOf(p)
		for t != nil && t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		if t == nil || t.Kind() != reflect.Struct {
			return ErrNotAStruct
		}

		if _, err := c.descriptorFor(t); err != nil {
			return err
		}
	}

	return nil
}

// Serialize returns the structural representation of the given struct or pointer to a struct
func (c *Codec) Serialize(obj interface{}) (Data, error) {
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, ErrNotAStruct
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, ErrNotAStruct
	}

	d, err := c.descriptorFor(rv.Type())
	if err != nil {
		return nil, err
	}

	data := make(Data, len(d.fields))
	for _, f := range d.fields {
		fv, err := rv.FieldByIndexErr(f.index)
		if err != nil {
			// The field lives in a nil embedded pointer
			continue
		}
		if f.omitEmpty && fv.IsZero() {
			continue
		}

		v, err := c.encode(fv, f.schema)
		if err != nil {
			return nil, &Error{Type: d.name, Field: f.name, Err: err}
		}
		data[f.name] = v
	}

	return data, nil
}

// Deserialize sets the fields of target, a pointer to a struct, based on the given data.
// Every key in data must match a field of target or of one of its embedded structs.
func (c *Codec) Deserialize(target interface{}, data Data) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}
	sv := rv.Elem()

	d, err := c.descriptorFor(sv.Type())
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// values are decoded into a copy so that target is left untouched on failure
	tmp := reflect.New(sv.Type()).Elem()
	tmp.Set(sv)

	fields := make([]reflect.Value, len(keys))
	values := make([]reflect.Value, len(keys))
	for i, key := range keys {
		f, found := d.field(key)
		if !found {
			return &Error{Type: d.name, Field: key, Err: ErrUnknownField}
		}

		val, err := c.decode(data[key], f.schema)
		if err != nil {
			return &Error{Type: d.name, Field: key, Err: err}
		}

		fv, err := fieldForWrite(tmp, f.index)
		if err != nil {
			return &Error{Type: d.name, Field: key, Err: err}
		}

		fields[i], values[i] = fv, val
	}

	for i, fv := range fields {
		fv.Set(values[i])
	}
	sv.Set(tmp)

	return nil
}

// SerializeValue returns the structural representation of an arbitrary value.
// Structs must implement Serializer, all other values follow the same rules as struct fields.
func (c *Codec) SerializeValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	rv := reflect.ValueOf(v)
	s, err := c.schemaFor(rv.Type())
	if err != nil {
		return nil, err
	}

	return c.encode(rv, s)
}

// Register builds and caches the descriptors of the given prototypes using the default Codec
func Register(prototypes ...interface{}) error {
	return defaultCodec.Register(prototypes...)
}

// Serialize returns the structural representation of obj using the default Codec
func Serialize(obj interface{}) (Data, error) {
	return defaultCodec.Serialize(obj)
}

// Deserialize sets the fields of target based on data using the default Codec
func Deserialize(target interface{}, data Data) error {
	return defaultCodec.Deserialize(target, data)
}

// SerializeValue returns the structural representation of an arbitrary value using the default Codec
func SerializeValue(v interface{}) (interface{}, error) {
	return defaultCodec.SerializeValue(v)
}

// fieldForWrite returns the settable field at index allocating nil embedded pointers on the way
func fieldForWrite(v reflect.Value, index []int) (reflect.Value, error) {
	for i, x := range index {
		if i > 0 && v.Kind() == reflect.Ptr {
			if v.IsNil() {
				if !v.CanSet() {
					return reflect.Value{}, ErrInvalidTarget
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(x)
	}

	return v, nil
}
