package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/review"
	"github.com/FocuswithJustin/JuniperStudy/core/sqlite"
	"github.com/FocuswithJustin/JuniperStudy/internal/ingest"
	"github.com/FocuswithJustin/JuniperStudy/internal/library"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
	"github.com/FocuswithJustin/JuniperStudy/internal/server"
	"github.com/FocuswithJustin/JuniperStudy/internal/validation"
)

// Version is reported by the root and health endpoints.
var Version = "0.1.0"

// HealthInfo is returned by /health.
type HealthInfo struct {
	Status   string        `json:"status"`
	Version  string        `json:"version"`
	Uptime   string        `json:"uptime"`
	Database string        `json:"database"`
	Driver   sqlite.Driver `json:"driver"`
	Clients  int           `json:"websocket_clients"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]interface{}{
		"name":    "Juniper Study API",
		"version": Version,
		"endpoints": []string{
			"GET /health",
			"GET /documents",
			"GET|PATCH|DELETE /documents/{id}",
			"GET /documents/{id}/export",
			"POST /documents/import-bundle",
			"POST /imports",
			"GET /sessions",
			"GET|DELETE /sessions/{id}",
			"POST /sessions/{id}/edits",
			"POST /sessions/{id}/commit",
			"GET|POST /aliases...",
			"POST /resolve",
			"POST /autolink",
			"POST /unlink",
			"POST /references",
			"POST|DELETE /anchors",
			"GET /tree/{kind}",
			"POST /tree/{kind}/move",
			"POST|PATCH|DELETE /folders",
			"POST|GET|PUT|DELETE /notes",
			"WS /ws",
			"POST /navigate",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := HealthInfo{
		Status:   "healthy",
		Version:  Version,
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
		Database: "ok",
		Driver:   sqlite.CurrentDriver(),
		Clients:  s.hub.ClientCount(),
	}
	status := http.StatusOK
	if err := s.lib.Store().Ping(r.Context()); err != nil {
		logging.ErrorContext(r.Context(), "health check failed", "error", err)
		info.Status = "degraded"
		info.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}
	respond(w, status, info)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.lib.Documents(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, docs, len(docs))
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.lib.Document(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, doc)
}

// RenameRequest renames a document or folder.
type RenameRequest struct {
	Title string `json:"title"`
}

func (s *Server) handleRenameDocument(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := r.PathValue("id")
	if err := s.lib.RenameDocument(r.Context(), id, req.Title); err != nil {
		respondErr(w, r, err)
		return
	}
	doc, err := s.lib.Document(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	doc.Nodes = nil
	respond(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.DeleteDocument(r.Context(), r.PathValue("id")); err != nil {
		respondErr(w, r, err)
		return
	}
	s.publish(r, EventMessage{Type: EventAliasesChanged})
	w.WriteHeader(http.StatusNoContent)
}

// handleExportDocument streams a bundle. ?compress=true selects xz.
func (s *Server) handleExportDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	compress, _ := strconv.ParseBool(r.URL.Query().Get("compress"))

	doc, err := s.lib.Document(r.Context(), id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.lib.Export(r.Context(), &buf, id, compress); err != nil {
		respondErr(w, r, err)
		return
	}

	name, contentType := validation.SanitizeFilename(doc.Title, id)+".json", "application/json"
	if compress {
		name, contentType = name+".xz", "application/x-xz"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

var bundleContentTypes = []string{"application/json", "application/x-xz", "application/octet-stream"}

func (s *Server) handleImportBundle(w http.ResponseWriter, r *http.Request) {
	if !server.ValidateContentType(r.Header.Get("Content-Type"), bundleContentTypes) {
		respondError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Bundles must be application/json or application/x-xz")
		return
	}
	report, err := s.lib.ImportBundle(r.Context(), http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	s.publish(r, EventMessage{Type: EventAliasesChanged, DocumentID: report.Document.ID})
	respond(w, http.StatusCreated, report)
}

// ImportRequest is the body of POST /imports. Data carries raw bytes
// (base64 in JSON) and takes precedence over Text; Filename drives format
// detection.
type ImportRequest struct {
	Title      string  `json:"title"`
	SourceType string  `json:"source_type"`
	FolderID   *string `json:"folder_id,omitempty"`
	Filename   string  `json:"filename"`
	Text       string  `json:"text,omitempty"`
	Data       []byte  `json:"data,omitempty"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Filename != "" {
		if err := validation.ValidateFilename(req.Filename); err != nil {
			respondErr(w, r, err)
			return
		}
	}
	data := req.Data
	if data == nil {
		data = []byte(req.Text)
	}
	src, err := ingest.ReadBytes(req.Filename, data)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	info, err := s.lib.Import(r.Context(), library.ImportRequest{
		Title:      req.Title,
		SourceType: document.SourceType(req.SourceType),
		FolderID:   req.FolderID,
		Source:     src,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.lib.Sessions(r.Context())
	respondList(w, sessions, len(sessions))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.lib.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, info)
}

// EditRequest is a batch of review edits applied in order.
type EditRequest struct {
	Edits []review.Edit `json:"edits"`
}

// EditResponse reports each edit's result and the resulting session.
type EditResponse struct {
	Applied []bool              `json:"applied"`
	Session library.SessionInfo `json:"session"`
}

func (s *Server) handleEditSession(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	applied, info, err := s.lib.Edit(r.Context(), r.PathValue("id"), req.Edits...)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, EditResponse{Applied: applied, Session: info})
}

func (s *Server) handleCommitSession(w http.ResponseWriter, r *http.Request) {
	doc, err := s.lib.Commit(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	s.publish(r, EventMessage{Type: EventSessionCommitted, DocumentID: doc.ID})
	respond(w, http.StatusCreated, doc)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.Discard(r.Context(), r.PathValue("id")); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// publish pushes msg to the caller's connections.
func (s *Server) publish(r *http.Request, msg EventMessage) {
	s.hub.Publish(logging.GetUserID(r.Context()), msg)
}
