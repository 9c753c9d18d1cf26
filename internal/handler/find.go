package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"FMQuery/internal/client"
	"FMQuery/internal/fieldmap"
	"FMQuery/internal/logger"
	"FMQuery/internal/query"
)

// RecordStore is the snapshot store behind /api/records.
type RecordStore interface {
	SaveRecords(ctx context.Context, layout string, recs []client.Record) error
	ListRecords(ctx context.Context, layout string, limit, offset int) ([]client.Record, error)
}

type Handler struct {
	Client *client.Client
	Store  RecordStore // optional
}

type findResponse struct {
	Data     []client.Record  `json:"data"`
	DataInfo *client.DataInfo `json:"dataInfo,omitempty"`
}

// FindHandler accepts a find document in wire form plus "layout" and sends
// it to the Data API. Found records are also saved when a store is set.
func (h *Handler) FindHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		logger.WarnCtx(ctx, "method_not_allowed", map[string]any{
			"endpoint": "/api/find",
			"method":   r.Method,
		})
		http.Error(w, "Only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.WarnCtx(ctx, "read_body_failed", map[string]any{
			"endpoint": "/api/find",
			"error":    err.Error(),
		})
		http.Error(w, "Failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}
	req, err := query.ParseFindRequest(body)
	if err != nil {
		logger.WarnCtx(ctx, "invalid_json", map[string]any{
			"endpoint": "/api/find",
			"error":    err.Error(),
		})
		http.Error(w, "Invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	logger.InfoCtx(ctx, "request", map[string]any{
		"endpoint": "/api/find",
		"layout":   req.Layout,
		"clauses":  len(req.Query()),
	})

	resp, err := client.FindRaw(ctx, h.Client, req)
	if err != nil {
		writeFindError(ctx, w, err)
		return
	}

	if h.Store != nil && len(resp.Data) > 0 {
		if err := h.Store.SaveRecords(ctx, req.Layout, resp.Data); err != nil {
			logger.WarnCtx(ctx, "snapshot_save_failed", map[string]any{
				"layout": req.Layout,
				"error":  err.Error(),
			})
		}
	}

	writeJSON(ctx, w, findResponse{Data: resp.Data, DataInfo: resp.DataInfo})
}

func writeFindError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		ierr *query.InvalidRequestError
		serr *fieldmap.SerializationError
		rerr *client.RemoteError
	)
	status := http.StatusInternalServerError
	msg := "Failed to find records: " + err.Error()
	switch {
	case errors.As(err, &ierr), errors.As(err, &serr):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.As(err, &rerr):
		status = http.StatusBadGateway
		msg = fmt.Sprintf("Data API error %s: %s", rerr.Code, rerr.Message)
	}
	logger.ErrorCtx(ctx, "find_error", map[string]any{
		"endpoint": "/api/find",
		"status":   status,
		"error":    err.Error(),
	})
	http.Error(w, msg, status)
}

func writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorCtx(ctx, "write_response_failed", map[string]any{
			"error": err.Error(),
		})
	}
}
