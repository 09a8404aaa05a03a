package codec

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/google/uuid"
)

func (c *Codec) encode(v reflect.Value, s *schema) (interface{}, error) {
	switch s.kind {
	case kindScalar:
		return v.Interface(), nil
	case kindBytes:
		if v.IsNil() {
			return nil, nil
		}
		return append([]byte(nil), v.Bytes()...), nil
	case kindUUID:
		return v.Interface().(uuid.UUID).String(), nil
	case kindTime:
		return v.Interface().(time.Time).Format(time.RFC3339), nil
	case kindSerializable:
		return serializerOf(v).Serialize()
	case kindPointer:
		if v.IsNil() {
			return nil, nil
		}
		return c.encode(v.Elem(), s.elem)
	case kindInterface:
		if v.IsNil() {
			return nil, nil
		}
		dynamic := v.Elem()
		ds, err := c.schemaFor(dynamic.Type())
		if err != nil {
			return nil, err
		}
		return c.encode(dynamic, ds)
	case kindList:
		out := make([]interface{}, v.Len())
		for i := range out {
			item, err := c.encode(v.Index(i), s.elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = item
		}
		return out, nil
	case kindMap:
		out := make(map[string]interface{}, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			item, err := c.encode(iter.Value(), s.elem)
			if err != nil {
				return nil, fmt.Errorf("key %s: %w", key, err)
			}
			out[key] = item
		}
		return out, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrNotSerializable, s.typ)
}

func (c *Codec) decode(raw interface{}, s *schema) (reflect.Value, error) {
	t := s.typ

	switch s.kind {
	case kindScalar:
		return convertScalar(raw, t)
	case kindBytes:
		return decodeBytes(raw, t)
	case kindUUID:
		return decodeUUID(raw)
	case kindTime:
		return decodeTime(raw)
	case kindSerializable:
		m, ok := asMap(raw)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: expected a map for %s got %T", ErrInvalidValue, t, raw)
		}
		ptr := reflect.New(t)
		u, ok := ptr.Interface().(Unserializer)
		if !ok {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrNotSerializable, t)
		}
		if err := u.Unserialize(m); err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	case kindPointer:
		if raw == nil {
			return reflect.Zero(t), nil
		}
		ev, err := c.decode(raw, s.elem)
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(ev)
		return ptr, nil
	case kindInterface:
		if raw == nil {
			return reflect.Zero(t), nil
		}
		rv := reflect.ValueOf(raw)
		if !rv.Type().AssignableTo(t) {
			return reflect.Value{}, fmt.Errorf("%w: %T is not assignable to %s", ErrInvalidValue, raw, t)
		}
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out, nil
	case kindList:
		return c.decodeList(raw, s)
	case kindMap:
		return c.decodeMap(raw, s)
	}

	return reflect.Value{}, fmt.Errorf("%w: %s", ErrNotSerializable, t)
}

func (c *Codec) decodeList(raw interface{}, s *schema) (reflect.Value, error) {
	t := s.typ
	items, ok := asList(raw)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: expected a list for %s got %T", ErrNotACollection, t, raw)
	}

	var out reflect.Value
	switch {
	case t.Kind() == reflect.Array:
		if len(items) > t.Len() {
			return reflect.Value{}, fmt.Errorf("%w: %d items do not fit in %s", ErrInvalidValue, len(items), t)
		}
		out = reflect.New(t).Elem()
	case len(items) == 0:
		return reflect.Zero(t), nil
	default:
		out = reflect.MakeSlice(t, len(items), len(items))
	}

	for i, item := range items {
		ev, err := c.decode(item, s.elem)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("index %d: %w", i, err)
		}
		out.Index(i).Set(ev)
	}

	return out, nil
}

func (c *Codec) decodeMap(raw interface{}, s *schema) (reflect.Value, error) {
	t := s.typ
	m, ok := asMap(raw)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%w: expected a map for %s got %T", ErrNotACollection, t, raw)
	}
	if len(m) == 0 {
		return reflect.Zero(t), nil
	}

	out := reflect.MakeMapWithSize(t, len(m))
	for k, item := range m {
		ev, err := c.decode(item, s.elem)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("key %s: %w", k, err)
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
	}

	return out, nil
}

// decodeBytes accepts raw bytes or their base64 form, as produced by encoding/json
func decodeBytes(raw interface{}, t reflect.Type) (reflect.Value, error) {
	var b []byte
	switch r := raw.(type) {
	case nil:
		return reflect.Zero(t), nil
	case []byte:
		b = append([]byte(nil), r...)
	case string:
		var err error
		if b, err = base64.StdEncoding.DecodeString(r); err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
	default:
		return reflect.Value{}, fmt.Errorf("%w: expected bytes or a base64 string got %T", ErrInvalidValue, raw)
	}

	return reflect.ValueOf(b).Convert(t), nil
}

func decodeUUID(raw interface{}) (reflect.Value, error) {
	switch r := raw.(type) {
	case nil:
		return reflect.ValueOf(uuid.New()), nil
	case uuid.UUID:
		return reflect.ValueOf(r), nil
	case string:
		id, err := uuid.Parse(r)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return reflect.ValueOf(id), nil
	}

	return reflect.Value{}, fmt.Errorf("%w: expected a uuid string got %T", ErrInvalidValue, raw)
}

func decodeTime(raw interface{}) (reflect.Value, error) {
	switch r := raw.(type) {
	case nil:
		return reflect.ValueOf(time.Time{}), nil
	case time.Time:
		return reflect.ValueOf(r), nil
	case string:
		tm, err := time.Parse(time.RFC3339, r)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return reflect.ValueOf(tm), nil
	case interface{ Time() time.Time }:
		return reflect.ValueOf(r.Time()), nil
	}

	return reflect.Value{}, fmt.Errorf("%w: expected a RFC3339 string got %T", ErrInvalidValue, raw)
}

func convertScalar(raw interface{}, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}

	if n, ok := raw.(json.Number); ok && isNumber(t.Kind()) {
		if f, err := n.Float64(); err == nil {
			raw = f
		}
		if i, err := n.Int64(); err == nil {
			raw = i
		}
	}

	rv := reflect.ValueOf(raw)
	rt := rv.Type()
	switch {
	case rt == t:
		return rv, nil
	case isNumber(rt.Kind()) && isNumber(t.Kind()):
		out := rv.Convert(t)
		if !fits(rv, out) {
			return reflect.Value{}, fmt.Errorf("%w: %v does not fit in %s", ErrInvalidValue, raw, t)
		}
		return out, nil
	case rt.Kind() == t.Kind() && rt.ConvertibleTo(t):
		return rv.Convert(t), nil
	}

	return reflect.Value{}, fmt.Errorf("%w: %T cannot be converted to %s", ErrInvalidValue, raw, t)
}

// fits reports whether out holds the same number as in, floats are compared at the precision of out
func fits(in, out reflect.Value) bool {
	if in.Kind() == reflect.Float64 && out.Kind() == reflect.Float32 {
		return strconv.FormatFloat(out.Float(), 'g', -1, 32) == strconv.FormatFloat(in.Float(), 'g', -1, 64)
	}

	return out.Convert(in.Type()).Interface() == in.Interface()
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}

	return false
}

func serializerOf(v reflect.Value) Serializer {
	if s, ok := v.Interface().(Serializer); ok {
		return s
	}
	if v.CanAddr() {
		return v.Addr().Interface().(Serializer)
	}

	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	return ptr.Interface().(Serializer)
}

// asMap returns raw as a map[string]interface{} when it is any kind of map with string keys
func asMap(raw interface{}) (map[string]interface{}, bool) {
	if m, ok := raw.(map[string]interface{}); ok {
		return m, true
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}

	m := make(map[string]interface{}, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		m[iter.Key().String()] = iter.Value().Interface()
	}

	return m, true
}

// asList returns raw as a []interface{} when it is any kind of slice or array
func asList(raw interface{}) ([]interface{}, bool) {
	if l, ok := raw.([]interface{}); ok {
		return l, true
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	l := make([]interface{}, rv.Len())
	for i := range l {
		l[i] = rv.Index(i).Interface()
	}

	return l, true
}
