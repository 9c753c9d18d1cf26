package fieldmap

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type user struct {
	ID     int `fm:"id"`
	Name   string
	Email  string `fm:"Email Address"`
	Active bool
	Joined time.Time
	Score  *float64
	Cache  string `fm:"-"`
	Photo  []byte `fm:"Photo,container"`
}

type base struct {
	Created string
}

type withBase struct {
	base
	Extra  string
	hidden int
}

func TestToMap_ZeroRecordIsEmpty(t *testing.T) {
	fm, err := ToMap(user{}, false)
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if fm.Len() != 0 {
		t.Fatalf("expected empty map, got %v", fm.Keys())
	}
}

func TestToMap_IncludeNullsKeepsDeclarationOrder(t *testing.T) {
	fm, err := ToMap(&user{}, true)
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	want := []string{"id", "Name", "Email Address", "Active", "Joined", "Score", "Photo"}
	if diff := cmp.Diff(want, fm.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestToMap_DropsDefaultsOnly(t *testing.T) {
	score := 0.0
	fm, err := ToMap(user{ID: 1, Name: "Buzz", Score: &score, Cache: "x"}, false)
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	want := map[string]any{"id": 1, "Name": "Buzz", "Score": &score}
	if diff := cmp.Diff(want, fm.Map()); diff != "" {
		t.Fatalf("map mismatch (-want +got):\n%s", diff)
	}
}

func TestToMap_SkipsEmbeddedAndUnexported(t *testing.T) {
	fm, err := ToMap(withBase{base: base{Created: "now"}, Extra: "e", hidden: 3}, true)
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	if diff := cmp.Diff([]string{"Extra"}, fm.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestToMap_NilAndNonStruct(t *testing.T) {
	var u *user
	fm, err := ToMap(u, true)
	if err != nil || fm.Len() != 0 {
		t.Fatalf("nil record: got %v, %v", fm.Keys(), err)
	}

	_, err = ToMap(42, true)
	var serr *SerializationError
	if !errors.As(err, &serr) {
		t.Fatalf("expected SerializationError, got %v", err)
	}
}

func TestToRecord_MatchesNamesIgnoringCase(t *testing.T) {
	src := map[string]any{
		"ID":            "7",
		"name":          "Buzz",
		"EMAIL ADDRESS": "buzz@example.com",
		"active":        "1",
		"Joined":        "03/15/2024",
		"score":         "2.5",
		"cache":         "ignored",
		"Unknown":       "ignored",
	}
	got, warnings, err := ToRecord[user](src)
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	score := 2.5
	want := user{
		ID:     7,
		Name:   "Buzz",
		Email:  "buzz@example.com",
		Active: true,
		Joined: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Score:  &score,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestToRecord_CoercionFailuresAreWarnings(t *testing.T) {
	got, warnings, err := ToRecord[user](map[string]any{"id": "abc", "Name": "ok", "Active": []int{1}})
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
	if warnings[0].Field != "Active" || warnings[1].Field != "ID" {
		t.Fatalf("unexpected warning fields: %v", warnings)
	}
	if got.ID != 0 || got.Name != "ok" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestToRecord_EmptyNumberTextIsZero(t *testing.T) {
	got, warnings, err := ToRecord[user](map[string]any{"id": "", "Joined": ""})
	if err != nil || len(warnings) != 0 {
		t.Fatalf("got warnings=%v err=%v", warnings, err)
	}
	if got.ID != 0 || !got.Joined.IsZero() {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestToRecord_PointerTarget(t *testing.T) {
	got, _, err := ToRecord[*user](map[string]any{"id": json.Number("12")})
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if got == nil || got.ID != 12 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestToRecord_ConstructionError(t *testing.T) {
	var cerr *ConstructionError
	if _, _, err := ToRecord[int](map[string]any{"a": 1}); !errors.As(err, &cerr) {
		t.Fatalf("expected ConstructionError for int, got %v", err)
	}
	if _, _, err := ToRecord[map[string]any](nil); !errors.As(err, &cerr) {
		t.Fatalf("expected ConstructionError for map, got %v", err)
	}
}

func TestToRecord_ContainerFieldsAreNotAssigned(t *testing.T) {
	got, warnings, err := ToRecord[user](map[string]any{"Photo": "https://host/Streaming_SSL/1.jpg"})
	if err != nil || len(warnings) != 0 {
		t.Fatalf("got warnings=%v err=%v", warnings, err)
	}
	if got.Photo != nil {
		t.Fatalf("container field should stay nil, got %q", got.Photo)
	}
	if diff := cmp.Diff([]string{"Photo"}, ContainerFields(&got)); diff != "" {
		t.Fatalf("container fields (-want +got):\n%s", diff)
	}
	if err := SetContainer(&got, "photo", []byte("jpeg")); err != nil {
		t.Fatalf("SetContainer: %v", err)
	}
	if string(got.Photo) != "jpeg" {
		t.Fatalf("container not set: %q", got.Photo)
	}
}

func TestSetContainer_ThroughPointerRecord(t *testing.T) {
	u := &user{Name: "Admin"}
	if err := SetContainer(&u, "Photo", []byte("jpeg")); err != nil {
		t.Fatalf("SetContainer(**user): %v", err)
	}
	if string(u.Photo) != "jpeg" {
		t.Fatalf("container not set: %q", u.Photo)
	}

	var cerr *ConstructionError
	var nilUser *user
	if err := SetContainer(&nilUser, "Photo", nil); !errors.As(err, &cerr) {
		t.Fatalf("expected ConstructionError for nil inner pointer, got %v", err)
	}
	if err := SetContainer(user{}, "Photo", nil); !errors.As(err, &cerr) {
		t.Fatalf("expected ConstructionError for non-pointer, got %v", err)
	}
}

func TestRoundTrip_PreservesMappedKeys(t *testing.T) {
	src := map[string]any{"id": "3", "Name": "Admin", "Email Address": "a@b", "Active": true, "Extra": "dropped"}

	first, _, err := ToRecord[user](src)
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	fm, err := ToMap(first, true)
	if err != nil {
		t.Fatalf("ToMap: %v", err)
	}
	second, _, err := ToRecord[user](fm.Map())
	if err != nil {
		t.Fatalf("ToRecord: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("round trip mismatch (-first +second):\n%s", diff)
	}
	if second.ID != 3 || second.Name != "Admin" || second.Email != "a@b" || !second.Active {
		t.Fatalf("mapped keys lost: %+v", second)
	}
}

func TestFieldMap_MarshalKeepsOrder(t *testing.T) {
	fm := NewFieldMap()
	fm.Set("b", 1)
	fm.Set("a", "x")
	fm.Set("b", 2)
	fm.Set("c", nil)
	fm.Delete("c")
	out, err := json.Marshal(fm)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(out); got != `{"b":2,"a":"x"}` {
		t.Fatalf("unexpected JSON: %s", got)
	}
}

func TestFieldMap_MarshalUnsupportedValue(t *testing.T) {
	fm := NewFieldMap()
	fm.Set("ch", make(chan int))
	_, err := fm.MarshalJSON()
	var serr *SerializationError
	if !errors.As(err, &serr) || serr.Field != "ch" {
		t.Fatalf("expected SerializationError for ch, got %v", err)
	}
}

func TestTypeCache_ConcurrentFirstUse(t *testing.T) {
	type fresh struct {
		A int
		B string `fm:"bee"`
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fm, err := ToMap(fresh{A: 1, B: "x"}, false)
			if err != nil || fm.Len() != 2 {
				t.Errorf("ToMap: %v %v", fm.Keys(), err)
			}
		}()
	}
	wg.Wait()
}
