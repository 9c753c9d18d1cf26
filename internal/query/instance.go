package query

import (
	"sort"

	"FMQuery/internal/fieldmap"
)

const omitKey = "omit"

// Instance is one clause of a find: a set of field criteria that either
// selects matching records or, when omit is set, removes them.
type Instance[T any] struct {
	criteria T
	omit     bool
}

func NewInstance[T any](criteria T, omit bool) Instance[T] {
	return Instance[T]{criteria: criteria, omit: omit}
}

func (q Instance[T]) Criteria() T { return q.criteria }

func (q Instance[T]) IsOmit() bool { return q.omit }

// Fields returns the clause as a field map. Generic maps are used as they
// are, with keys in sorted order; typed records go through fieldmap.ToMap
// with zero values dropped. Omit clauses get an extra "omit": "true".
func (q Instance[T]) Fields() (*fieldmap.FieldMap, error) {
	var out *fieldmap.FieldMap
	switch c := any(q.criteria).(type) {
	case *fieldmap.FieldMap:
		out = fieldmap.NewFieldMap()
		c.Range(func(k string, v any) bool {
			out.Set(k, v)
			return true
		})
	case map[string]any:
		out = fieldmap.NewFieldMap()
		for _, k := range sortedKeys(c) {
			out.Set(k, c[k])
		}
	case map[string]string:
		out = fieldmap.NewFieldMap()
		for _, k := range sortedKeys(c) {
			out.Set(k, c[k])
		}
	default:
		var err error
		if out, err = fieldmap.ToMap(q.criteria, false); err != nil {
			return nil, err
		}
	}
	if q.omit {
		out.Set(omitKey, "true")
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
