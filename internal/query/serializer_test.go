package query

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"FMQuery/internal/fieldmap"
)

type testUser struct {
	Id      int
	Name    string
	Email   string `fm:"Email Address"`
	Created time.Time
	Notes   string `fm:"-"`
}

func serialize[T any](t *testing.T, r *FindRequest[T]) string {
	t.Helper()
	out, err := r.SerializeRequest()
	if err != nil {
		t.Fatalf("SerializeRequest: %v", err)
	}
	if !json.Valid(out) {
		t.Fatalf("invalid JSON: %s", out)
	}
	return string(out)
}

func TestSerialize_EmptyQueryKeepsArrayAndDefaults(t *testing.T) {
	r := NewFindRequest[map[string]any]("layout")
	got := serialize(t, r)
	want := `{"query":[],"limit":100,"offset":1}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSerialize_ZeroLimitAndOffsetAreSuppressed(t *testing.T) {
	r := &FindRequest[map[string]any]{Layout: "layout"}
	if got := serialize(t, r); got != `{"query":[]}` {
		t.Fatalf("unexpected body: %s", got)
	}
}

func TestSerialize_DictionaryClausesWithOmit(t *testing.T) {
	r := NewFindRequest[map[string]string]("layout")
	r.AddQuery(map[string]string{"Name": "fuzzzerd"}, false)
	r.AddQuery(map[string]string{"Name": "Admin"}, true)

	got := serialize(t, r)
	want := `{"query":[{"Name":"fuzzzerd"},{"Name":"Admin","omit":"true"}],"limit":100,"offset":1}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSerialize_TypedRecordNumbersAsText(t *testing.T) {
	r := NewFindRequest[testUser]("Users")
	r.Limit = 5
	r.AddQuery(testUser{Id: 1, Notes: "never sent"}, false)

	got := serialize(t, r)
	want := `{"query":[{"Id":"1"}],"limit":5,"offset":1}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSerialize_TypedRecordUsesWireNamesAndDates(t *testing.T) {
	r := NewFindRequest[*testUser]("Users")
	r.AddQuery(&testUser{
		Name:    "Buzz",
		Email:   "buzz@example.com",
		Created: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}, true)

	got := serialize(t, r)
	want := `{"query":[{"Name":"Buzz","Email Address":"buzz@example.com","Created":"03/15/2024","omit":"true"}],"limit":100,"offset":1}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSerialize_SortAfterPaging(t *testing.T) {
	r := NewFindRequest[map[string]any]("layout")
	r.AddQuery(map[string]any{"Name": "=Buzz"}, false)
	r.AddSort("Name", Descend)
	r.AddSort("Id", Ascend)
	r.LoadContainerData = true

	got := serialize(t, r)
	want := `{"query":[{"Name":"=Buzz"}],"limit":100,"offset":1,"sort":[{"fieldName":"Name","sortOrder":"descend"},{"fieldName":"Id","sortOrder":"ascend"}]}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSerialize_ClauseValueKinds(t *testing.T) {
	type code uint8
	n := 42
	r := NewFindRequest[map[string]any]("layout")
	r.Limit = 0
	r.Offset = 0
	r.AddQuery(map[string]any{
		"a": 2.5,
		"b": code(7),
		"c": json.Number("10"),
		"d": &n,
		"e": true,
		"f": nil,
		"g": time.Date(2024, 1, 2, 13, 4, 5, 0, time.UTC),
		"h": []string{"x"},
	}, false)

	got := serialize(t, r)
	want := `{"query":[{"a":"2.5","b":"7","c":"10","d":"42","e":true,"f":null,"g":"01/02/2024 13:04:05","h":["x"]}]}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSerialize_CallerOmitKeyKeptWhenFlagUnset(t *testing.T) {
	r := NewFindRequest[map[string]string]("layout")
	r.AddQuery(map[string]string{"Name": "Admin", "omit": "true"}, false)

	got := serialize(t, r)
	want := `{"query":[{"Name":"Admin","omit":"true"}],"limit":100,"offset":1}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSerialize_FieldMapCriteriaKeepOrder(t *testing.T) {
	fm := fieldmap.NewFieldMap()
	fm.Set("Zeta", 1)
	fm.Set("Alpha", "a")
	r := NewFindRequest[*fieldmap.FieldMap]("layout")
	r.AddQuery(fm, true)

	got := serialize(t, r)
	want := `{"query":[{"Zeta":"1","Alpha":"a","omit":"true"}],"limit":100,"offset":1}`
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if fm.Len() != 2 {
		t.Fatalf("criteria mutated: %v", fm.Keys())
	}
}

func TestSerialize_UnsupportedValueFails(t *testing.T) {
	for name, v := range map[string]any{
		"complex": complex(1, 2),
		"chan":    make(chan int),
		"nan":     func() float64 { z := 0.0; return z / z }(),
	} {
		r := NewFindRequest[map[string]any]("layout")
		r.AddQuery(map[string]any{"bad": v}, false)
		_, err := r.SerializeRequest()
		var serr *fieldmap.SerializationError
		if !errors.As(err, &serr) {
			t.Fatalf("%s: expected SerializationError, got %v", name, err)
		}
		if serr.Field != "bad" {
			t.Fatalf("%s: unexpected field %q", name, serr.Field)
		}
	}
}

func TestQuery_ReturnsCopyInOrder(t *testing.T) {
	r := NewFindRequest[map[string]string]("layout")
	r.AddQuery(map[string]string{"n": "1"}, false)
	r.AddQuery(map[string]string{"n": "2"}, true)

	q := r.Query()
	if len(q) != 2 || q[0].Criteria()["n"] != "1" || !q[1].IsOmit() {
		t.Fatalf("unexpected clauses: %+v", q)
	}
	q[0] = NewInstance(map[string]string{"n": "x"}, true)
	if r.Query()[0].IsOmit() {
		t.Fatalf("Query() exposed internal slice")
	}
}

func TestValidateLayout(t *testing.T) {
	var ierr *InvalidRequestError
	if err := ValidateLayout("  "); !errors.As(err, &ierr) {
		t.Fatalf("expected InvalidRequestError, got %v", err)
	}
	if err := ValidateLayout("Users"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
