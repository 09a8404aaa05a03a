package codec

import (
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	reflectUtil "github.com/hellofresh/cqrs/internal/reflect"
)

const tagName = "codec"

type kind uint8

const (
	kindUnsupported kind = iota
	kindScalar
	kindSerializable
	kindBytes
	kindUUID
	kindTime
	kindPointer
	kindInterface
	kindList
	kindMap
)

var (
	uuidType       = reflect.TypeOf(uuid.UUID{})
	timeType       = reflect.TypeOf(time.Time{})
	serializerType = reflect.TypeOf((*Serializer)(nil)).Elem()
)

type (
	// schema describes how values of a type are converted
	schema struct {
		kind kind
		typ  reflect.Type
		// elem is the schema of the element for pointers, lists and maps
		elem *schema
	}

	field struct {
		name      string
		index     []int
		schema    *schema
		omitEmpty bool
	}

	// descriptor is the field table of a struct type
	descriptor struct {
		name   string
		fields []field
		byName map[string]int
	}
)

func (d *descriptor) field(name string) (field, bool) {
	i, found := d.byName[name]
	if !found {
		return field{}, false
	}

	return d.fields[i], true
}

func (c *Codec) descriptorFor(t reflect.Type) (*descriptor, error) {
	c.mu.RLock()
	d, found := c.descriptors[t]
	c.mu.RUnlock()
	if found {
		return d, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if d, found := c.descriptors[t]; found {
		return d, nil
	}

	d = &descriptor{
		name:   reflectUtil.FullTypeName(t),
		byName: map[string]int{},
	}
	if err := c.collectFields(d, t, nil, map[reflect.Type]bool{}); err != nil {
		return nil, err
	}
	c.descriptors[t] = d

	return d, nil
}

// collectFields adds the fields of t to d, own fields first followed by the fields of embedded structs
func (c *Codec) collectFields(d *descriptor, t reflect.Type, parentIndex []int, visited map[reflect.Type]bool) error {
	if visited[t] {
		return nil
	}
	visited[t] = true

	type ancestor struct {
		typ   reflect.Type
		index []int
	}
	var ancestors []ancestor

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag, omitEmpty := parseTag(sf.Tag.Get(tagName))
		if tag == "-" {
			continue
		}

		index := make([]int, len(parentIndex)+1)
		copy(index, parentIndex)
		index[len(parentIndex)] = i

		if sf.Anonymous && tag == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct && ft != timeType {
				ancestors = append(ancestors, ancestor{typ: ft, index: index})
				continue
			}
		}

		if !sf.IsExported() {
			continue
		}

		name := tag
		if name == "" {
			name = fieldName(sf.Name)
		}
		if _, shadowed := d.byName[name]; shadowed {
			continue
		}

		s := c.buildSchema(sf.Type)
		if err := s.validate(); err != nil {
			return &Error{Type: d.name, Field: name, Err: err}
		}

		d.byName[name] = len(d.fields)
		d.fields = append(d.fields, field{name: name, index: index, schema: s, omitEmpty: omitEmpty})
	}

	for _, a := range ancestors {
		if err := c.collectFields(d, a.typ, a.index, visited); err != nil {
			return err
		}
	}

	return nil
}

func (c *Codec) schemaFor(t reflect.Type) (*schema, error) {
	c.mu.Lock()
	s := c.buildSchema(t)
	c.mu.Unlock()

	return s, s.validate()
}

// buildSchema returns the schema of t, the caller must hold the write lock
func (c *Codec) buildSchema(t reflect.Type) *schema {
	if s, found := c.schemas[t]; found {
		return s
	}

	s := &schema{typ: t}
	c.schemas[t] = s

	switch {
	case t == uuidType:
		s.kind = kindUUID
		return s
	case t == timeType:
		s.kind = kindTime
		return s
	case t.Kind() != reflect.Ptr && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(serializerType):
		s.kind = kindSerializable
		return s
	}

	switch t.Kind() {
	case reflect.Ptr:
		s.kind = kindPointer
		s.elem = c.buildSchema(t.Elem())
	case reflect.Interface:
		s.kind = kindInterface
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			s.kind = kindBytes
			break
		}
		s.kind = kindList
		s.elem = c.buildSchema(t.Elem())
	case reflect.Array:
		s.kind = kindList
		s.elem = c.buildSchema(t.Elem())
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			s.kind = kindUnsupported
			break
		}
		s.kind = kindMap
		s.elem = c.buildSchema(t.Elem())
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		s.kind = kindScalar
	default:
		s.kind = kindUnsupported
	}

	return s
}

// validate returns ErrNotSerializable when the schema or one of its element schemas is unsupported
func (s *schema) validate() error {
	for cur, depth := s, 0; cur != nil && depth < 32; cur, depth = cur.elem, depth+1 {
		if cur.kind == kindUnsupported {
			return fmt.Errorf("%w: %s", ErrNotSerializable, cur.typ)
		}
	}

	return nil
}

// parseTag splits a codec tag into the field name and the omitempty option
func parseTag(tag string) (string, bool) {
	name, opts, _ := strings.Cut(tag, ",")
	if name == "-" && opts == "" {
		return name, false
	}

	omitEmpty := false
	for _, opt := range strings.Split(opts, ",") {
		if opt == "omitempty" {
			omitEmpty = true
		}
	}

	return name, omitEmpty
}

// fieldName returns the lowerCamelCase form of a Go field name (FirstName => firstName, UUID => uuid, URLPath => urlPath)
func fieldName(name string) string {
	runes := []rune(name)

	upper := 0
	for upper < len(runes) && unicode.IsUpper(runes[upper]) {
		upper++
	}

	switch {
	case upper == 0:
		return name
	case upper == len(runes):
		return strings.ToLower(name)
	case upper > 1:
		upper--
	}

	for i := 0; i < upper; i++ {
		runes[i] = unicode.ToLower(runes[i])
	}

	return string(runes)
}
