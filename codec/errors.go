package codec

import "errors"

var (
	// ErrNotAStruct occurs when something other than a struct or pointer to a struct is serialized
	ErrNotAStruct = errors.New("cqrs: codec expects a struct or a pointer to a struct")
	// ErrInvalidTarget occurs when the deserialization target is not a non-nil pointer to a struct
	ErrInvalidTarget = errors.New("cqrs: codec target must be a non-nil pointer to a struct")
	// ErrUnknownField occurs when the data contains a key that matches no field
	ErrUnknownField = errors.New("cqrs: field does not exist")
	// ErrNotSerializable occurs when a value has no supported structural representation
	ErrNotSerializable = errors.New("cqrs: value is not serializable")
	// ErrNotACollection occurs when a list or map field receives something that is not a list or map
	ErrNotACollection = errors.New("cqrs: value is not a list or map")
	// ErrInvalidValue occurs when a raw value cannot be converted into the field type
	ErrInvalidValue = errors.New("cqrs: value cannot be converted")
)

// Error is returned when a field of a type cannot be serialized or deserialized
type Error struct {
	Type  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	return "cqrs: codec failed for " + e.Type + "." + e.Field + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}
