// Package config holds the runtime configuration shared by the CLI and the
// HTTP server.
//
// Values are bound by the kong CLI from flags, JUNIPER_STUDY_* environment
// variables and an optional JSON configuration file; Default supplies the
// rest and Validate is called once before anything is opened.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/FocuswithJustin/JuniperStudy/core/cache"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
)

// EnvPrefix is the prefix of every environment variable the CLI reads.
const EnvPrefix = "JUNIPER_STUDY"

// MinAPIKeyLength is the shortest API key Validate accepts.
const MinAPIKeyLength = 16

// Config is the application configuration.
type Config struct {
	DatabasePath   string        `json:"database"`
	// User owns everything created from the CLI, and every API request
	// when authentication is disabled.
	User           string        `json:"user"`
	LogLevel       string        `json:"log_level"`
	LogFormat      string        `json:"log_format"`
	Translation    string        `json:"translation"`
	CacheSize      int           `json:"cache_size"`
	AnchorCacheTTL time.Duration `json:"anchor_cache_ttl"`
	Server         Server        `json:"server"`
}

// Server configures the HTTP API.
type Server struct {
	Port int `json:"port"`
	// APIKeys maps an API key to the user id it authenticates. Empty
	// disables authentication.
	APIKeys           map[string]string `json:"-"`
	AllowedOrigins    []string          `json:"allowed_origins,omitempty"`
	RateLimitRequests int               `json:"rate_limit_requests"` // per minute, 0 = disabled
	RateLimitBurst    int               `json:"rate_limit_burst"`
	TLS               TLS               `json:"tls"`
}

// TLS holds TLS/HTTPS configuration.
type TLS struct {
	Enabled  bool   `json:"enabled"`
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		DatabasePath:   "juniper-study.db",
		User:           "local",
		LogLevel:       "info",
		LogFormat:      "text",
		Translation:    "RSVCE",
		CacheSize:      cache.DefaultSize,
		AnchorCacheTTL: 5 * time.Minute,
		Server: Server{
			Port:           8082,
			RateLimitBurst: 10,
		},
	}
}

// AuthEnabled reports whether the API requires an X-API-Key header.
func (s Server) AuthEnabled() bool {
	return len(s.APIKeys) > 0
}

// Validate checks the configuration and returns the first problem found as
// a ValidationError.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabasePath) == "" {
		return errors.NewValidation("database", "a database path is required")
	}
	if strings.TrimSpace(c.User) == "" {
		return errors.NewValidation("user", "a default user is required")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidation("log_level", err.Error())
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return errors.NewValidation("log_format", err.Error())
	}
	if strings.TrimSpace(c.Translation) == "" {
		return errors.NewValidation("translation", "a default translation is required")
	}
	if c.CacheSize < 0 {
		return errors.NewValidation("cache_size", "must not be negative")
	}
	if c.AnchorCacheTTL < 0 {
		return errors.NewValidation("anchor_cache_ttl", "must not be negative")
	}
	return c.Server.Validate()
}

// Validate checks the server section.
func (s Server) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return errors.NewValidation("port", fmt.Sprintf("%d is not a TCP port", s.Port))
	}
	for key, user := range s.APIKeys {
		if len(key) < MinAPIKeyLength {
			return errors.NewValidation("api_keys",
				fmt.Sprintf("API key for %q must be at least %d characters (got %d)", user, MinAPIKeyLength, len(key)))
		}
		if strings.TrimSpace(user) == "" {
			return errors.NewValidation("api_keys", "every API key must name a user")
		}
	}
	if s.RateLimitRequests < 0 || s.RateLimitBurst < 0 {
		return errors.NewValidation("rate_limit", "must not be negative")
	}
	if s.TLS.Enabled {
		if s.TLS.CertFile == "" || s.TLS.KeyFile == "" {
			return errors.NewValidation("tls", "TLS enabled but cert or key file not specified")
		}
		for _, f := range []string{s.TLS.CertFile, s.TLS.KeyFile} {
			if _, err := os.Stat(f); err != nil {
				return &errors.ValidationError{Field: "tls", Value: f, Message: "file not found", Err: err}
			}
		}
	}
	return nil
}

// Users returns the distinct user ids that hold an API key.
func (s Server) Users() []string {
	seen := make(map[string]bool, len(s.APIKeys))
	var out []string
	for _, u := range s.APIKeys {
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}
