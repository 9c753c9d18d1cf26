// Package query models Data API find requests and renders them to the wire.
package query

import (
	"fmt"
	"strings"
)

const (
	DefaultLimit  = 100
	DefaultOffset = 1 // the Data API counts records from 1
)

type SortOrder string

const (
	Ascend  SortOrder = "ascend"
	Descend SortOrder = "descend"
)

// ParseSortOrder accepts the wire names and their common spellings.
// An empty string means ascending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascend", "asc", "ascending":
		return Ascend, nil
	case "descend", "desc", "descending":
		return Descend, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

type Sort struct {
	FieldName string    `json:"fieldName"`
	SortOrder SortOrder `json:"sortOrder"`
}

// FindRequest describes a find against one layout. Clauses are evaluated
// by the server in the order they were added; no clauses means all records.
// Layout and LoadContainerData never appear in the request body.
type FindRequest[T any] struct {
	Layout            string
	Limit             int
	Offset            int
	Sort              []Sort
	LoadContainerData bool

	query []Instance[T]
}

func NewFindRequest[T any](layout string) *FindRequest[T] {
	return &FindRequest[T]{
		Layout: layout,
		Limit:  DefaultLimit,
		Offset: DefaultOffset,
	}
}

// AddQuery appends a find clause, or an omit clause when omit is true.
func (r *FindRequest[T]) AddQuery(criteria T, omit bool) {
	r.query = append(r.query, NewInstance(criteria, omit))
}

func (r *FindRequest[T]) AddSort(fieldName string, order SortOrder) {
	r.Sort = append(r.Sort, Sort{FieldName: fieldName, SortOrder: order})
}

// Query returns a copy of the clauses in insertion order.
func (r *FindRequest[T]) Query() []Instance[T] {
	out := make([]Instance[T], len(r.query))
	copy(out, r.query)
	return out
}
