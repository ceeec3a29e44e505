package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
)

// AuthConfig maps API keys to the users they act for.
type AuthConfig struct {
	// Keys maps API keys to user ids. Empty disables authentication.
	Keys map[string]string
	// DefaultUser is the identity of every request when authentication is
	// disabled.
	DefaultUser string
}

// Enabled reports whether requests must carry an API key.
func (c AuthConfig) Enabled() bool {
	return len(c.Keys) > 0
}

// publicPaths never require a key.
var publicPaths = map[string]bool{"/": true, "/health": true}

type keyEntry struct {
	key  []byte
	user string
}

// keyring checks presented keys against every configured key in constant
// time.
type keyring []keyEntry

func newKeyring(keys map[string]string) keyring {
	ring := make(keyring, 0, len(keys))
	for k, u := range keys {
		ring = append(ring, keyEntry{key: []byte(k), user: u})
	}
	return ring
}

func (ring keyring) lookup(presented string) (string, bool) {
	var user string
	found := false
	p := []byte(presented)
	for _, e := range ring {
		if subtle.ConstantTimeCompare(p, e.key) == 1 {
			user, found = e.user, true
		}
	}
	return user, found
}

// presentedKey reads the key from X-API-Key, or from an
// "Authorization: Bearer" header.
func presentedKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// AuthMiddleware stores the caller's user id in the request context with
// logging.WithUserID. Without configured keys every request runs as
// DefaultUser; otherwise a known key is required everywhere but / and
// /health.
func AuthMiddleware(cfg AuthConfig, next http.Handler) http.Handler {
	ring := newKeyring(cfg.Keys)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		user := cfg.DefaultUser
		if cfg.Enabled() {
			key := presentedKey(r)
			var ok bool
			if user, ok = ring.lookup(key); !ok {
				reason, msg := "invalid API key", "Invalid API key"
				if key == "" {
					reason, msg = "missing API key", "Missing X-API-Key header"
				}
				logging.SecurityEvent("unauthorized_request", "auth", "path", r.URL.Path, "reason", reason)
				respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", msg)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(logging.WithUserID(r.Context(), user)))
	})
}
