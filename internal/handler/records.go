package handler

import (
	"net/http"
	"strconv"

	"FMQuery/internal/logger"
	"FMQuery/internal/query"
)

// RecordsHandler lists snapshot records: GET /api/records?layout=L&limit=N&offset=N.
func (h *Handler) RecordsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		http.Error(w, "Only GET allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Store == nil {
		http.Error(w, "Snapshot store is not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	layout := q.Get("layout")
	if err := query.ValidateLayout(layout); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := intParam(q.Get("limit"), query.DefaultLimit)
	if err != nil {
		http.Error(w, "Invalid limit: "+err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := intParam(q.Get("offset"), query.DefaultOffset)
	if err != nil {
		http.Error(w, "Invalid offset: "+err.Error(), http.StatusBadRequest)
		return
	}

	recs, err := h.Store.ListRecords(ctx, layout, limit, offset)
	if err != nil {
		logger.ErrorCtx(ctx, "snapshot_list_failed", map[string]any{
			"layout": layout,
			"error":  err.Error(),
		})
		http.Error(w, "Failed to list records: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(ctx, w, findResponse{Data: recs})
}

func intParam(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
