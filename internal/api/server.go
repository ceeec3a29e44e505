// Package api provides the Juniper Study REST API server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/FocuswithJustin/JuniperStudy/internal/config"
	"github.com/FocuswithJustin/JuniperStudy/internal/library"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
	"github.com/FocuswithJustin/JuniperStudy/internal/server"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Server serves a library over HTTP.
type Server struct {
	cfg       config.Server
	user      string
	lib       *library.Library
	hub       *Hub
	limiter   *RateLimiter
	startTime time.Time
}

// New builds a server for lib. cfg.Server configures transport and
// security; cfg.User is the identity of every request when no API keys are
// configured.
func New(cfg config.Config, lib *library.Library) *Server {
	s := &Server{
		cfg:       cfg.Server,
		user:      cfg.User,
		lib:       lib,
		hub:       NewHub(),
		startTime: time.Now(),
	}
	if cfg.Server.RateLimitRequests > 0 {
		burst := cfg.Server.RateLimitBurst
		if burst == 0 {
			burst = 10
		}
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.Server.RateLimitRequests,
			BurstSize:         burst,
		})
	}
	return s
}

// Hub returns the server's event hub.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler wrapped in the middleware chain:
// logging, CORS, rate limiting, authentication and security headers, from
// outermost to innermost.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), s.routes())

	handler = AuthMiddleware(AuthConfig{Keys: s.cfg.APIKeys, DefaultUser: s.user}, handler)

	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}

	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)

	return logging.CombinedMiddleware(handler)
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)
	if s.limiter != nil {
		defer s.limiter.Close()
	}

	s.logStartup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.cfg.TLS.Enabled {
			errCh <- srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) logStartup() {
	protocol := "http"
	wsProtocol := "ws"
	if s.cfg.TLS.Enabled {
		protocol = "https"
		wsProtocol = "wss"
		logging.Info("TLS enabled", "cert_file", server.AbsPath(s.cfg.TLS.CertFile))
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	logging.ServerStartup("rest_api", protocol, s.cfg.Port, "websocket_protocol", wsProtocol)

	if s.cfg.AuthEnabled() {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", true,
			"users", len(s.cfg.Users()))
	} else {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", false,
			"note", "all requests run as "+s.user)
	}
	if s.limiter != nil {
		logging.Info("rate limiting enabled",
			"requests_per_minute", s.limiter.cfg.RequestsPerMinute,
			"burst_size", s.limiter.cfg.BurstSize)
	}
	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*) - consider restricting for production")
	}
}

// routes configures all HTTP routes.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("POST /documents/import-bundle", s.handleImportBundle)
	mux.HandleFunc("GET /documents/{id}", s.handleGetDocument)
	mux.HandleFunc("PATCH /documents/{id}", s.handleRenameDocument)
	mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)
	mux.HandleFunc("GET /documents/{id}/export", s.handleExportDocument)
	mux.HandleFunc("GET /documents/{id}/aliases", s.handleDocumentAliases)
	mux.HandleFunc("GET /documents/{id}/anchors", s.handleDocumentAnchors)

	mux.HandleFunc("POST /imports", s.handleImport)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/edits", s.handleEditSession)
	mux.HandleFunc("POST /sessions/{id}/commit", s.handleCommitSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDiscardSession)

	mux.HandleFunc("GET /aliases/presets", s.handlePresets)
	mux.HandleFunc("GET /aliases/prefix-check", s.handlePrefixCheck)
	mux.HandleFunc("POST /aliases", s.handleCreateAlias)
	mux.HandleFunc("POST /aliases/preset", s.handleCreatePresetAlias)
	mux.HandleFunc("PUT /aliases/{id}", s.handleUpdateAlias)
	mux.HandleFunc("DELETE /aliases/{id}", s.handleDeleteAlias)

	mux.HandleFunc("POST /resolve", s.handleResolve)
	mux.HandleFunc("POST /autolink", s.handleAutoLink)
	mux.HandleFunc("POST /unlink", s.handleUnlink)
	mux.HandleFunc("POST /references", s.handleReferences)

	mux.HandleFunc("POST /anchors", s.handleCreateAnchor)
	mux.HandleFunc("DELETE /anchors/{id}", s.handleDeleteAnchor)

	mux.HandleFunc("GET /tree/{kind}", s.handleTree)
	mux.HandleFunc("POST /tree/{kind}/move", s.handleMove)

	mux.HandleFunc("POST /folders", s.handleCreateFolder)
	mux.HandleFunc("PATCH /folders/{id}", s.handleRenameFolder)
	mux.HandleFunc("DELETE /folders/{id}", s.handleDeleteFolder)

	mux.HandleFunc("POST /notes", s.handleCreateNote)
	mux.HandleFunc("GET /notes/{id}", s.handleGetNote)
	mux.HandleFunc("PUT /notes/{id}", s.handleSaveNote)
	mux.HandleFunc("DELETE /notes/{id}", s.handleDeleteNote)
	mux.HandleFunc("GET /notes/{id}/anchors", s.handleNoteAnchors)

	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("POST /navigate", s.handleNavigate)

	return mux
}
