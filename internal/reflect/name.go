package reflect

import "reflect"

// FullTypeName returns the full qualified name of a reflect.Type
// The fully qualified name is the combination of the type PkgPath and its Name.
// Unnamed types such as pointers, slices and maps are represented by their String form.
func FullTypeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}

	if name := t.Name(); name != "" {
		if pkgPath := t.PkgPath(); pkgPath != "" {
			return pkgPath + "." + name
		}
		return name
	}

	return t.String()
}

// FullTypeNameOf returns the full qualified name of the given interface
// Pointers are dereferenced so that *T and T share the same name.
func FullTypeNameOf(obj interface{}) string {
	t := reflect.TypeOf(obj)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return FullTypeName(t)
}
