package fieldmap

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

var errUnsupported = errors.New("unsupported conversion")

// Date and time layouts used by the Data API, tried in order.
var timeLayouts = []string{
	"01/02/2006 15:04:05",
	"01/02/2006",
	"15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToRecord builds a T from src. Keys match declared fields by Go name or
// wire name, ignoring case; unknown keys are ignored. T must be a struct
// or a pointer to a struct, otherwise a *ConstructionError is returned.
//
// Entries that match a field but cannot be coerced into it are reported
// as warnings and leave the field at its zero value.
func ToRecord[T any](src map[string]any) (T, []FieldWarning, error) {
	var out T
	t := reflect.TypeOf((*T)(nil)).Elem()

	var target reflect.Value
	switch {
	case t.Kind() == reflect.Struct:
		target = reflect.ValueOf(&out).Elem()
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		p := reflect.New(t.Elem())
		reflect.ValueOf(&out).Elem().Set(p)
		target = p.Elem()
	default:
		return out, nil, &ConstructionError{Type: t}
	}

	return out, populate(target, src), nil
}

func populate(target reflect.Value, src map[string]any) []FieldWarning {
	info := infoFor(target.Type())

	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []FieldWarning
	for _, key := range keys {
		fi, ok := info.find(key)
		if !ok || fi.container {
			continue
		}
		if err := assign(target.Field(fi.index), src[key]); err != nil {
			warnings = append(warnings, FieldWarning{Field: fi.name, Key: key, Value: src[key], Err: err})
		}
	}
	return warnings
}

func assign(dst reflect.Value, value any) error {
	if value == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	src := reflect.ValueOf(value)
	for src.Kind() == reflect.Pointer {
		if src.IsNil() {
			dst.Set(reflect.Zero(dst.Type()))
			return nil
		}
		src = src.Elem()
	}

	if src.Type().AssignableTo(dst.Type()) {
		dst.Set(src)
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := assign(p.Elem(), src.Interface()); err != nil {
			return err
		}
		dst.Set(p)
		return nil
	}
	if dst.Type() == timeType {
		t, err := toTime(src)
		if err != nil {
			return err
		}
		dst.Set(reflect.ValueOf(t))
		return nil
	}

	switch dst.Kind() {
	case reflect.String:
		s, err := toText(src)
		if err != nil {
			return err
		}
		dst.SetString(s)
	case reflect.Bool:
		b, err := toBool(src)
		if err != nil {
			return err
		}
		dst.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(src)
		if err != nil {
			return err
		}
		if dst.OverflowInt(n) {
			return fmt.Errorf("%d overflows %v", n, dst.Type())
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := toInt(src)
		if err != nil {
			return err
		}
		if n < 0 || dst.OverflowUint(uint64(n)) {
			return fmt.Errorf("%d overflows %v", n, dst.Type())
		}
		dst.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, err := toFloat(src)
		if err != nil {
			return err
		}
		if dst.OverflowFloat(f) {
			return fmt.Errorf("%g overflows %v", f, dst.Type())
		}
		dst.SetFloat(f)
	default:
		if src.Kind() == dst.Kind() && src.Type().ConvertibleTo(dst.Type()) {
			dst.Set(src.Convert(dst.Type()))
			return nil
		}
		return fmt.Errorf("%w: %v into %v", errUnsupported, src.Type(), dst.Type())
	}
	return nil
}

func toText(src reflect.Value) (string, error) {
	switch src.Kind() {
	case reflect.String:
		return src.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(src.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(src.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(src.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(src.Float(), 'f', -1, src.Type().Bits()), nil
	}
	return "", fmt.Errorf("%w: %v into string", errUnsupported, src.Type())
}

func toBool(src reflect.Value) (bool, error) {
	switch src.Kind() {
	case reflect.Bool:
		return src.Bool(), nil
	case reflect.String:
		s := strings.TrimSpace(src.String())
		switch strings.ToLower(s) {
		case "":
			return false, nil
		case "yes", "y":
			return true, nil
		case "no", "n":
			return false, nil
		}
		return strconv.ParseBool(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		f, err := toFloat(src)
		return f != 0, err
	}
	return false, fmt.Errorf("%w: %v into bool", errUnsupported, src.Type())
}

// toInt accepts integers, integral floats and numeric text. Empty text is 0,
// which is how the Data API reports an empty number field.
func toInt(src reflect.Value) (int64, error) {
	switch src.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return src.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := src.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%d overflows int64", u)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return integral(src.Float())
	case reflect.String:
		s := strings.TrimSpace(src.String())
		if s == "" {
			return 0, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return integral(f)
	}
	return 0, fmt.Errorf("%w: %v into integer", errUnsupported, src.Type())
}

func integral(f float64) (int64, error) {
	if f != math.Trunc(f) || f > math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%g is not an integer", f)
	}
	return int64(f), nil
}

func toFloat(src reflect.Value) (float64, error) {
	switch src.Kind() {
	case reflect.Float32, reflect.Float64:
		return src.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(src.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(src.Uint()), nil
	case reflect.String:
		s := strings.TrimSpace(src.String())
		if s == "" {
			return 0, nil
		}
		return strconv.ParseFloat(s, 64)
	}
	return 0, fmt.Errorf("%w: %v into float", errUnsupported, src.Type())
}

func toTime(src reflect.Value) (time.Time, error) {
	if src.Kind() != reflect.String {
		return time.Time{}, fmt.Errorf("%w: %v into time.Time", errUnsupported, src.Type())
	}
	s := strings.TrimSpace(src.String())
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}
