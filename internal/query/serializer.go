package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"strconv"
	"time"

	"FMQuery/internal/fieldmap"
)

var errUnsupportedValue = errors.New("value has no wire representation")

// SerializeRequest renders the request body: query, limit, offset, sort in
// that order. query is always present; limit and offset are dropped only
// when zero; sort is dropped when empty. Clause values that are numbers
// are sent as text.
func (r *FindRequest[T]) SerializeRequest() ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(`{"query":[`)
	for i, q := range r.query {
		if i > 0 {
			b.WriteByte(',')
		}
		clause, err := serializeClause(q)
		if err != nil {
			return nil, err
		}
		b.Write(clause)
	}
	b.WriteByte(']')

	if r.Limit != 0 {
		b.WriteString(`,"limit":`)
		b.WriteString(strconv.Itoa(r.Limit))
	}
	if r.Offset != 0 {
		b.WriteString(`,"offset":`)
		b.WriteString(strconv.Itoa(r.Offset))
	}
	if len(r.Sort) > 0 {
		enc, err := json.Marshal(r.Sort)
		if err != nil {
			return nil, &fieldmap.SerializationError{Field: "sort", Value: r.Sort, Err: err}
		}
		b.WriteString(`,"sort":`)
		b.Write(enc)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func serializeClause[T any](q Instance[T]) ([]byte, error) {
	fields, err := q.Fields()
	if err != nil {
		return nil, err
	}
	out := fieldmap.NewFieldMap()
	fields.Range(func(k string, v any) bool {
		var tv any
		if tv, err = clauseValue(k, v); err != nil {
			return false
		}
		out.Set(k, tv)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out.MarshalJSON()
}

// clauseValue converts a criterion to its wire form: numbers become text,
// times use the Data API date format, pointers are followed.
func clauseValue(field string, v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		return t.String(), nil
	case time.Time:
		return formatTime(t), nil
	case json.RawMessage:
		return t, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return clauseValue(field, rv.Elem().Interface())
	case reflect.String:
		return rv.String(), nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &fieldmap.SerializationError{Field: field, Value: v, Err: errUnsupportedValue}
		}
		return strconv.FormatFloat(f, 'f', -1, rv.Type().Bits()), nil
	case reflect.Complex64, reflect.Complex128, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return nil, &fieldmap.SerializationError{Field: field, Value: v, Err: errUnsupportedValue}
	}

	enc, err := json.Marshal(v)
	if err != nil {
		return nil, &fieldmap.SerializationError{Field: field, Value: v, Err: err}
	}
	return json.RawMessage(enc), nil
}

func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("01/02/2006")
	}
	return t.Format("01/02/2006 15:04:05")
}
