package fieldmap

import (
	"errors"
	"fmt"
	"reflect"
)

var errNotStruct = errors.New("record is not a struct")

// ConstructionError is returned when the target type of a conversion
// cannot be default-constructed as a record.
type ConstructionError struct {
	Type reflect.Type
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("fieldmap: cannot construct %v: want struct or pointer to struct", e.Type)
}

// SerializationError is returned when a value has no wire representation.
type SerializationError struct {
	Field string
	Value any
	Err   error
}

func (e *SerializationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("fieldmap: cannot serialize %T: %v", e.Value, e.Err)
	}
	return fmt.Sprintf("fieldmap: field %q: cannot serialize %T: %v", e.Field, e.Value, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// FieldWarning records a map entry that matched a field but could not be
// coerced into it. The field keeps its zero value.
type FieldWarning struct {
	Field string
	Key   string
	Value any
	Err   error
}

func (w FieldWarning) Error() string {
	return fmt.Sprintf("fieldmap: %s <- %q (%T): %v", w.Field, w.Key, w.Value, w.Err)
}

func (w FieldWarning) Unwrap() error { return w.Err }
