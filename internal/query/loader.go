package query

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"FMQuery/internal/fieldmap"
)

// requestFile is the YAML form of a find request.
type requestFile struct {
	Layout            string       `yaml:"layout"`
	Limit             *int         `yaml:"limit"`
	Offset            *int         `yaml:"offset"`
	LoadContainerData bool         `yaml:"load_container_data"`
	Sort              []sortFile   `yaml:"sort"`
	Query             []clauseFile `yaml:"query"`
}

type sortFile struct {
	Field string `yaml:"field"`
	Order string `yaml:"order"`
}

type clauseFile struct {
	// kept as a node so the field order in the file is the order on the wire
	Fields yaml.Node `yaml:"fields"`
	Omit   bool      `yaml:"omit"`
}

func LoadFindRequestFile(path string) (*FindRequest[*fieldmap.FieldMap], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	req, err := LoadFindRequest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return req, nil
}

// LoadFindRequest parses a YAML find request. Unknown keys are rejected.
func LoadFindRequest(data []byte) (*FindRequest[*fieldmap.FieldMap], error) {
	var f requestFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}

	req := NewFindRequest[*fieldmap.FieldMap](f.Layout)
	req.LoadContainerData = f.LoadContainerData
	if f.Limit != nil {
		req.Limit = *f.Limit
	}
	if f.Offset != nil {
		req.Offset = *f.Offset
	}
	for i, s := range f.Sort {
		if s.Field == "" {
			return nil, fmt.Errorf("sort[%d]: field is required", i)
		}
		order, err := ParseSortOrder(s.Order)
		if err != nil {
			return nil, fmt.Errorf("sort[%d]: %w", i, err)
		}
		req.AddSort(s.Field, order)
	}
	for i, c := range f.Query {
		fields, err := nodeFields(&c.Fields)
		if err != nil {
			return nil, fmt.Errorf("query[%d]: %w", i, err)
		}
		req.AddQuery(fields, c.Omit)
	}
	return req, nil
}

func nodeFields(n *yaml.Node) (*fieldmap.FieldMap, error) {
	out := fieldmap.NewFieldMap()
	if n.Kind == 0 {
		return out, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: fields must be a mapping", n.Line)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		var v any
		if err := val.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: field %q: %w", val.Line, key.Value, err)
		}
		out.Set(key.Value, v)
	}
	return out, nil
}
