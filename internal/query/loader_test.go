package query

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const usersFind = `
layout: Users
limit: 10
sort:
  - field: Name
    order: descend
query:
  - fields:
      Name: fuzzzerd
      Id: 7
  - fields: {Name: Admin}
    omit: true
`

func TestLoadFindRequest_KeepsFieldOrder(t *testing.T) {
	req, err := LoadFindRequest([]byte(usersFind))
	if err != nil {
		t.Fatalf("LoadFindRequest: %v", err)
	}
	if req.Layout != "Users" {
		t.Fatalf("unexpected layout: %q", req.Layout)
	}
	out, err := req.SerializeRequest()
	if err != nil {
		t.Fatalf("SerializeRequest: %v", err)
	}
	want := `{"query":[{"Name":"fuzzzerd","Id":"7"},{"Name":"Admin","omit":"true"}],"limit":10,"offset":1,"sort":[{"fieldName":"Name","sortOrder":"descend"}]}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestLoadFindRequestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "find.yml")
	if err := os.WriteFile(path, []byte(usersFind), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	req, err := LoadFindRequestFile(path)
	if err != nil {
		t.Fatalf("LoadFindRequestFile: %v", err)
	}
	if len(req.Query()) != 2 {
		t.Fatalf("expected 2 clauses, got %d", len(req.Query()))
	}
}

func TestLoadFindRequest_Rejects(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"unknown key":   {"layout: x\nlimt: 3\n", "limt"},
		"fields list":   {"query:\n  - fields: [a, b]\n", "must be a mapping"},
		"sort no field": {"sort:\n  - order: asc\n", "field is required"},
		"sort order":    {"sort:\n  - field: a\n    order: up\n", "unknown sort order"},
	}
	for name, tc := range cases {
		_, err := LoadFindRequest([]byte(tc.in))
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %v", name, tc.want, err)
		}
	}
}

func TestLoadFindRequest_EmptyDocument(t *testing.T) {
	req, err := LoadFindRequest(nil)
	if err != nil {
		t.Fatalf("LoadFindRequest: %v", err)
	}
	if req.Limit != DefaultLimit || req.Offset != DefaultOffset || len(req.Query()) != 0 {
		t.Fatalf("unexpected request: %+v", req)
	}
}
