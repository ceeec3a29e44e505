// Package server provides the HTTP middleware shared by the API server.
package server

import (
	"net/http"
	"path/filepath"
	"strings"
)

// AbsPath returns path made absolute for log output, or path unchanged when
// that fails.
func AbsPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// OriginAllowed reports whether origin matches allowed. An empty list
// allows every origin. Entries are exact origins, "*", or "*.domain" for
// any subdomain of domain.
func OriginAllowed(origin string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
		if domain, ok := strings.CutPrefix(a, "*."); ok && strings.HasSuffix(origin, "."+domain) {
			return true
		}
	}
	return false
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string // empty allows every origin as "*"
}

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-API-Key, X-Request-ID"
)

// CORSMiddlewareWithConfig answers preflight requests and adds CORS headers
// for allowed origins. Requests from other origins get no CORS headers, and
// their preflights are refused with 403.
func CORSMiddlewareWithConfig(cfg CORSConfig, next http.Handler) http.Handler {
	open := len(cfg.AllowedOrigins) == 0
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		preflight := r.Method == http.MethodOptions
		origin := r.Header.Get("Origin")

		switch {
		case open:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case OriginAllowed(origin, cfg.AllowedOrigins):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		case preflight:
			w.WriteHeader(http.StatusForbidden)
			return
		default:
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Methods", corsMethods)
		w.Header().Set("Access-Control-Allow-Headers", corsHeaders)
		if preflight {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
