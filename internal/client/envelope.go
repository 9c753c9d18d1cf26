package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

const (
	codeOK        = "0"
	codeNoRecords = "401"
)

type Message struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DataInfo struct {
	Database         string `json:"database"`
	Layout           string `json:"layout"`
	Table            string `json:"table"`
	TotalRecordCount int    `json:"totalRecordCount"`
	FoundCount       int    `json:"foundCount"`
	ReturnedCount    int    `json:"returnedCount"`
}

// Record is one row of a find response. Numbers in FieldData are
// json.Number values.
type Record struct {
	RecordID   string                      `json:"recordId"`
	ModID      string                      `json:"modId"`
	FieldData  map[string]any              `json:"fieldData"`
	PortalData map[string][]map[string]any `json:"portalData,omitempty"`
}

// Portal returns the related rows of the named portal.
func (r Record) Portal(name string) []map[string]any {
	return r.PortalData[name]
}

type FindResponse struct {
	Data     []Record
	DataInfo *DataInfo
	Messages []Message
}

type envelope struct {
	Response struct {
		Token    string    `json:"token"`
		Data     []Record  `json:"data"`
		DataInfo *DataInfo `json:"dataInfo"`
	} `json:"response"`
	Messages []Message `json:"messages"`
}

func decodeEnvelope(body []byte) (*envelope, error) {
	var env envelope
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}

func (e *envelope) code() (string, string) {
	if len(e.Messages) == 0 {
		return "", ""
	}
	return e.Messages[0].Code, e.Messages[0].Message
}

// noRecords reports the Data API's "no records match" answer, which is a
// successful empty find rather than a failure.
func (e *envelope) noRecords() bool {
	code, _ := e.code()
	return code == codeNoRecords
}

func (e *envelope) err(status int) error {
	code, msg := e.code()
	if status >= http.StatusOK && status < http.StatusMultipleChoices && (code == "" || code == codeOK) {
		return nil
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RemoteError{Status: status, Code: code, Message: msg}
}

func (e *envelope) findResponse() *FindResponse {
	data := e.Response.Data
	if data == nil {
		data = []Record{}
	}
	return &FindResponse{Data: data, DataInfo: e.Response.DataInfo, Messages: e.Messages}
}
