package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{"https://a.example.com", nil, true},
		{"", []string{"https://a.example.com"}, false},
		{"https://a.example.com", []string{"https://a.example.com"}, true},
		{"https://b.example.com", []string{"https://a.example.com"}, false},
		{"https://b.example.com", []string{"*.example.com"}, true},
		{"https://badexample.com", []string{"*.example.com"}, false},
		{"https://anything", []string{"*"}, true},
	}
	for _, tt := range tests {
		if got := OriginAllowed(tt.origin, tt.allowed); got != tt.want {
			t.Errorf("OriginAllowed(%q, %v) = %v, want %v", tt.origin, tt.allowed, got, tt.want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	restricted := []string{"https://example.com", "*.trusted.org"}

	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantCreds   bool
		wantMethods bool
		wantCalled  bool
	}{
		{"open get", nil, http.MethodGet, "https://any.com", http.StatusOK, "*", false, true, true},
		{"open preflight", nil, http.MethodOptions, "https://any.com", http.StatusNoContent, "*", false, true, false},
		{"allowed get", restricted, http.MethodGet, "https://example.com", http.StatusOK, "https://example.com", true, true, true},
		{"wildcard subdomain", restricted, http.MethodGet, "https://app.trusted.org", http.StatusOK, "https://app.trusted.org", true, true, true},
		{"allowed preflight", restricted, http.MethodOptions, "https://example.com", http.StatusNoContent, "https://example.com", true, true, false},
		{"other origin get", restricted, http.MethodGet, "https://evil.com", http.StatusOK, "", false, false, true},
		{"other origin preflight", restricted, http.MethodOptions, "https://evil.com", http.StatusForbidden, "", false, false, false},
		{"no origin", restricted, http.MethodGet, "", http.StatusOK, "", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := CORSMiddlewareWithConfig(CORSConfig{AllowedOrigins: tt.allowed},
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					called = true
					w.WriteHeader(http.StatusOK)
				}))
			req := httptest.NewRequest(tt.method, "/documents", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tt.wantCreds {
				t.Errorf("credentials = %v, want %v", got, tt.wantCreds)
			}
			if got := w.Header().Get("Access-Control-Allow-Methods") != ""; got != tt.wantMethods {
				t.Errorf("methods header present = %v, want %v", got, tt.wantMethods)
			}
		})
	}
}

func TestAbsPath(t *testing.T) {
	if got := AbsPath("study.db"); !filepath.IsAbs(got) {
		t.Errorf("AbsPath(study.db) = %q, want absolute", got)
	}
	if got := AbsPath("/tmp/x.db"); got != "/tmp/x.db" {
		t.Errorf("AbsPath(/tmp/x.db) = %q", got)
	}
}
