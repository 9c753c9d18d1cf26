package fieldmap

import (
	"reflect"
	"strings"
	"sync"
	"time"
)

const tagName = "fm"

var timeType = reflect.TypeOf(time.Time{})

type fieldInfo struct {
	index     int
	name      string
	wireName  string
	container bool
}

type typeInfo struct {
	fields []fieldInfo
	// lowercased Go name or wire name -> position in fields; first declared wins
	lookup map[string]int
}

// reflect.Type -> *typeInfo
var typeCache sync.Map

func infoFor(t reflect.Type) *typeInfo {
	if v, ok := typeCache.Load(t); ok {
		return v.(*typeInfo)
	}
	v, _ := typeCache.LoadOrStore(t, buildTypeInfo(t))
	return v.(*typeInfo)
}

func buildTypeInfo(t reflect.Type) *typeInfo {
	info := &typeInfo{lookup: map[string]int{}}
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		// promoted fields belong to the embedded type, not to t
		if sf.Anonymous || !sf.IsExported() {
			continue
		}
		tag, hasTag := sf.Tag.Lookup(tagName)
		if tag == "-" {
			continue
		}
		fi := fieldInfo{index: i, name: sf.Name, wireName: sf.Name}
		if hasTag {
			name, opts, _ := strings.Cut(tag, ",")
			if name = strings.TrimSpace(name); name != "" {
				fi.wireName = name
			}
			for _, o := range strings.Split(opts, ",") {
				if strings.TrimSpace(o) == "container" {
					fi.container = true
				}
			}
		}
		pos := len(info.fields)
		info.fields = append(info.fields, fi)
		for _, key := range []string{strings.ToLower(fi.name), strings.ToLower(fi.wireName)} {
			if _, taken := info.lookup[key]; !taken {
				info.lookup[key] = pos
			}
		}
	}
	return info
}

func (ti *typeInfo) find(key string) (fieldInfo, bool) {
	pos, ok := ti.lookup[strings.ToLower(key)]
	if !ok {
		return fieldInfo{}, false
	}
	return ti.fields[pos], true
}

// isDefault reports whether v is nil or the zero value of its type.
func isDefault(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return v.IsNil()
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Complex64, reflect.Complex128:
		return v.Complex() == 0
	case reflect.String:
		return v.Len() == 0
	case reflect.Struct:
		if v.Type() == timeType {
			return v.Interface().(time.Time).IsZero()
		}
		return v.IsZero()
	case reflect.Array:
		return v.IsZero()
	}
	return false
}

// structValue dereferences pointers down to a struct value. ok is false for
// nil records; err is set when the record is not a struct.
func structValue(record any) (v reflect.Value, ok bool, err error) {
	v = reflect.ValueOf(record)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return v, false, nil
		}
		v = v.Elem()
	}
	if !v.IsValid() {
		return v, false, nil
	}
	if v.Kind() != reflect.Struct {
		return v, false, &SerializationError{Value: record, Err: errNotStruct}
	}
	return v, true, nil
}
