package fieldmap

import "reflect"

// ToMap returns the record's mapped fields in declaration order. With
// includeNulls false, nil fields and fields holding their type's zero value
// are left out, so an untouched record maps to an empty FieldMap.
func ToMap(record any, includeNulls bool) (*FieldMap, error) {
	out := NewFieldMap()
	rv, ok, err := structValue(record)
	if err != nil {
		return nil, err
	}
	if !ok {
		return out, nil
	}
	for _, fi := range infoFor(rv.Type()).fields {
		fv := rv.Field(fi.index)
		if !includeNulls && isDefault(fv) {
			continue
		}
		out.Set(fi.wireName, fv.Interface())
	}
	return out, nil
}

// ContainerFields returns the wire names of the record's container fields.
func ContainerFields(record any) []string {
	rv, ok, _ := structValue(record)
	if !ok {
		return nil
	}
	var names []string
	for _, fi := range infoFor(rv.Type()).fields {
		if fi.container {
			names = append(names, fi.wireName)
		}
	}
	return names
}

// SetContainer stores data into the container field named wireName.
// record must be a non-nil pointer to a struct, possibly through further
// pointers (**T is accepted).
func SetContainer(record any, wireName string, data []byte) error {
	rv := reflect.ValueOf(record)
	if rv.Kind() != reflect.Pointer {
		return &ConstructionError{Type: reflect.TypeOf(record)}
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return &ConstructionError{Type: reflect.TypeOf(record)}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return &ConstructionError{Type: reflect.TypeOf(record)}
	}
	fi, ok := infoFor(rv.Type()).find(wireName)
	if !ok || !fi.container {
		return nil
	}
	fv := rv.Field(fi.index)
	if fv.Kind() != reflect.Slice || fv.Type().Elem().Kind() != reflect.Uint8 {
		return FieldWarning{Field: fi.name, Key: wireName, Value: data, Err: errUnsupported}
	}
	fv.SetBytes(data)
	return nil
}
