package router

import (
	"net/http"

	"github.com/google/uuid"

	"FMQuery/internal/config"
	"FMQuery/internal/handler"
	"FMQuery/internal/logger"
)

const requestIDHeader = "X-Request-ID"

// InitRoutes registers the proxy endpoints on mux.
func InitRoutes(mux *http.ServeMux, cfg *config.Config, h *handler.Handler) {
	cors := newCORSPolicy(cfg.CORS)
	mux.HandleFunc("/api/find", cors.wrap(withRequestID(withLogging(h.FindHandler))))
	mux.HandleFunc("/api/records", cors.wrap(withRequestID(withLogging(h.RecordsHandler))))
}

// withRequestID reuses the caller's X-Request-ID or issues a new one, echoes
// it on the response and puts it in the request context for logging.
func withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, rid)
		next(w, r.WithContext(logger.WithRequestID(r.Context(), rid)))
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		ctx := r.Context()
		fields := map[string]any{
			"method": r.Method,
			"path":   r.URL.Path,
			"status": sw.status,
		}
		switch {
		case sw.status >= 500:
			logger.ErrorCtx(ctx, "response", fields)
		case sw.status >= 400:
			logger.WarnCtx(ctx, "response", fields)
		default:
			logger.InfoCtx(ctx, "response", fields)
		}
	}
}
