package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type wireRequest struct {
	Layout            string           `json:"layout"`
	Query             []map[string]any `json:"query"`
	Limit             *int             `json:"limit"`
	Offset            *int             `json:"offset"`
	Sort              []Sort           `json:"sort"`
	LoadContainerData bool             `json:"loadContainerData"`
}

// ParseFindRequest reads a find document in wire form. The document may
// also carry "layout" and "loadContainerData", which travel outside the
// body when the request is sent. An "omit" entry in a clause becomes the
// clause's omit flag. Absent limit and offset keep their defaults.
func ParseFindRequest(data []byte) (*FindRequest[map[string]any], error) {
	var w wireRequest
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return nil, fmt.Errorf("decode find request: %w", err)
	}

	req := NewFindRequest[map[string]any](w.Layout)
	req.LoadContainerData = w.LoadContainerData
	if w.Limit != nil {
		req.Limit = *w.Limit
	}
	if w.Offset != nil {
		req.Offset = *w.Offset
	}
	for i, s := range w.Sort {
		order, err := ParseSortOrder(string(s.SortOrder))
		if err != nil {
			return nil, fmt.Errorf("sort[%d]: %w", i, err)
		}
		req.AddSort(s.FieldName, order)
	}
	for i, clause := range w.Query {
		omit, err := takeOmit(clause)
		if err != nil {
			return nil, fmt.Errorf("query[%d]: %w", i, err)
		}
		req.AddQuery(clause, omit)
	}
	return req, nil
}

func takeOmit(clause map[string]any) (bool, error) {
	v, ok := clause[omitKey]
	if !ok {
		return false, nil
	}
	var omit bool
	switch t := v.(type) {
	case bool:
		omit = t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			omit = true
		case "false", "":
		default:
			return false, fmt.Errorf("omit must be \"true\" or \"false\", got %q", t)
		}
	default:
		return false, fmt.Errorf("omit must be a string, got %T", v)
	}
	delete(clause, omitKey)
	return omit, nil
}
