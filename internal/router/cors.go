package router

import (
	"net/http"
	"strings"

	"FMQuery/internal/config"
)

// corsPolicy is the parsed form of config.CORSConfig.
type corsPolicy struct {
	origins     map[string]struct{}
	wildcard    bool
	credentials bool
}

func newCORSPolicy(cfg config.CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:     make(map[string]struct{}),
		credentials: cfg.AllowCredentials,
	}
	for _, o := range strings.Split(cfg.AllowOrigin, ",") {
		o = strings.TrimSpace(o)
		switch o {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.origins[o] = struct{}{}
		}
	}
	// nothing configured means anyone
	if len(p.origins) == 0 {
		p.wildcard = true
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for the request
// origin ("" to omit it) and whether the response varies by Origin.
func (p *corsPolicy) allowOrigin(origin string) (string, bool) {
	if p.wildcard {
		if p.credentials && origin != "" {
			return origin, true
		}
		return "*", false
	}
	if _, ok := p.origins[origin]; ok && origin != "" {
		return origin, true
	}
	return "", true
}

// wrap adds CORS headers and answers preflight requests.
func (p *corsPolicy) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		value, vary := p.allowOrigin(r.Header.Get("Origin"))
		if value != "" {
			h.Set("Access-Control-Allow-Origin", value)
		}
		if vary {
			h.Set("Vary", "Origin")
		}
		if p.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+requestIDHeader)
		h.Set("Access-Control-Expose-Headers", requestIDHeader)
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}
