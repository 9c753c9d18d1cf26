package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"FMQuery/internal/fieldmap"
	"FMQuery/internal/logger"
	"FMQuery/internal/query"
)

// Send posts a serialized find body to the layout's _find endpoint and
// returns the raw response. A "no records match" answer is returned as a
// normal response.
func (c *Client) Send(ctx context.Context, body []byte, layout string) ([]byte, error) {
	if err := query.ValidateLayout(layout); err != nil {
		return nil, err
	}
	raw, status, err := c.call(ctx, http.MethodPost, c.layoutURL(layout)+"/_find", body)
	if err != nil {
		return nil, err
	}
	return checkRaw(raw, status)
}

// getRange fetches records without criteria. The Data API rejects a _find
// with an empty query, so a find with no clauses is sent this way.
func (c *Client) getRange(ctx context.Context, layout string, limit, offset int, sort []query.Sort) ([]byte, error) {
	q := url.Values{}
	if limit != 0 {
		q.Set("_limit", strconv.Itoa(limit))
	}
	if offset != 0 {
		q.Set("_offset", strconv.Itoa(offset))
	}
	if len(sort) > 0 {
		enc, err := json.Marshal(sort)
		if err != nil {
			return nil, err
		}
		q.Set("_sort", string(enc))
	}
	target := c.layoutURL(layout) + "/records"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	raw, status, err := c.call(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return checkRaw(raw, status)
}

func checkRaw(raw []byte, status int) ([]byte, error) {
	env, err := decodeEnvelope(raw)
	if err != nil {
		if status >= http.StatusOK && status < http.StatusMultipleChoices {
			return nil, err
		}
		return nil, &RemoteError{Status: status, Message: strings.TrimSpace(string(raw))}
	}
	if env.noRecords() {
		return raw, nil
	}
	if err := env.err(status); err != nil {
		return nil, err
	}
	return raw, nil
}

// FindRaw sends req and returns the decoded envelope. The layout is checked
// before anything is serialized or sent.
func FindRaw[T any](ctx context.Context, c *Client, req *query.FindRequest[T]) (*FindResponse, error) {
	if err := query.ValidateLayout(req.Layout); err != nil {
		return nil, err
	}

	var raw []byte
	if len(req.Query()) == 0 {
		var err error
		if raw, err = c.getRange(ctx, req.Layout, req.Limit, req.Offset, req.Sort); err != nil {
			return nil, err
		}
	} else {
		body, err := req.SerializeRequest()
		if err != nil {
			return nil, err
		}
		logger.DebugCtx(ctx, "find_request", map[string]any{
			"layout": req.Layout,
			"body":   json.RawMessage(body),
		})
		if raw, err = c.Send(ctx, body, req.Layout); err != nil {
			return nil, err
		}
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return nil, err
	}
	return env.findResponse(), nil
}

type hydrateConfig[R any] struct {
	recordID func(*R, int)
	modID    func(*R, int)
}

type HydrateOption[R any] func(*hydrateConfig[R])

// WithRecordID hands each hydrated record its server record id.
func WithRecordID[R any](fn func(*R, int)) HydrateOption[R] {
	return func(h *hydrateConfig[R]) { h.recordID = fn }
}

// WithModID hands each hydrated record its modification count.
func WithModID[R any](fn func(*R, int)) HydrateOption[R] {
	return func(h *hydrateConfig[R]) { h.modID = fn }
}

// Find sends req and hydrates every returned record into an R. A find that
// matches nothing yields an empty slice and no error.
func Find[R any, T any](ctx context.Context, c *Client, req *query.FindRequest[T], opts ...HydrateOption[R]) ([]R, error) {
	resp, err := FindRaw(ctx, c, req)
	if err != nil {
		return nil, err
	}
	var hc hydrateConfig[R]
	for _, opt := range opts {
		opt(&hc)
	}

	out := make([]R, 0, len(resp.Data))
	for _, rec := range resp.Data {
		r, warnings, err := fieldmap.ToRecord[R](rec.FieldData)
		if err != nil {
			return nil, err
		}
		logWarnings(ctx, req.Layout, rec.RecordID, warnings)
		if hc.recordID != nil {
			hc.recordID(&r, atoi(rec.RecordID))
		}
		if hc.modID != nil {
			hc.modID(&r, atoi(rec.ModID))
		}
		if req.LoadContainerData {
			if err := c.loadContainers(ctx, &r, rec.FieldData); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// HydratePortal converts the rows of a portal into typed records.
func HydratePortal[R any](rec Record, portal string) ([]R, []fieldmap.FieldWarning, error) {
	rows := rec.Portal(portal)
	out := make([]R, 0, len(rows))
	var all []fieldmap.FieldWarning
	for _, row := range rows {
		r, warnings, err := fieldmap.ToRecord[R](row)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, warnings...)
		out = append(out, r)
	}
	return out, all, nil
}

// loadContainers downloads the data behind every container field of r.
// r points at the hydrated record; for pointer record types that is a **T.
func (c *Client) loadContainers(ctx context.Context, r any, fieldData map[string]any) error {
	for _, name := range fieldmap.ContainerFields(r) {
		src, _ := lookupFold(fieldData, name).(string)
		if src == "" {
			continue
		}
		data, err := c.fetchContainer(ctx, src)
		if err != nil {
			return fmt.Errorf("container %q: %w", name, err)
		}
		if err := fieldmap.SetContainer(r, name, data); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) fetchContainer(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	body, status, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &RemoteError{Status: status, Message: http.StatusText(status)}
	}
	return body, nil
}

func lookupFold(m map[string]any, key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func logWarnings(ctx context.Context, layout, recordID string, warnings []fieldmap.FieldWarning) {
	for _, w := range warnings {
		logger.WarnCtx(ctx, "field_coercion_failed", map[string]any{
			"layout":    layout,
			"record_id": recordID,
			"field":     w.Field,
			"key":       w.Key,
			"error":     w.Err.Error(),
		})
	}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// IsInvalidRequest reports whether err means the request could not be routed.
func IsInvalidRequest(err error) bool {
	var ierr *query.InvalidRequestError
	return errors.As(err, &ierr)
}
