package api

import (
	"net/http"

	"github.com/FocuswithJustin/JuniperStudy/core/autolink"
	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

func (s *Server) handleDocumentAliases(w http.ResponseWriter, r *http.Request) {
	aliases, err := s.lib.Aliases(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, aliases, len(aliases))
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	presets := citation.Presets()
	respondList(w, presets, len(presets))
}

// PrefixCheck answers GET /aliases/prefix-check?prefix=...&exclude=...
type PrefixCheck struct {
	Prefix string `json:"prefix"`
	InUse  bool   `json:"in_use"`
}

func (s *Server) handlePrefixCheck(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	prefix := q.Get("prefix")
	if prefix == "" {
		respondErr(w, r, errors.NewValidation("prefix", "prefix is required"))
		return
	}
	inUse, err := s.lib.IsPrefixInUse(r.Context(), prefix, q.Get("exclude"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, PrefixCheck{Prefix: prefix, InUse: inUse})
}

func (s *Server) handleCreateAlias(w http.ResponseWriter, r *http.Request) {
	var in citation.AliasInput
	if !decodeJSON(w, r, &in) {
		return
	}
	alias, err := s.lib.CreateAlias(r.Context(), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	s.publish(r, EventMessage{Type: EventAliasesChanged, DocumentID: alias.DocumentID})
	respond(w, http.StatusCreated, alias)
}

// PresetAliasRequest creates an alias from a named preset.
type PresetAliasRequest struct {
	DocumentID string `json:"document_id"`
	Preset     string `json:"preset"`
	Prefix     string `json:"prefix,omitempty"`
}

func (s *Server) handleCreatePresetAlias(w http.ResponseWriter, r *http.Request) {
	var req PresetAliasRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	alias, err := s.lib.CreateAliasFromPreset(r.Context(), req.DocumentID, req.Preset, req.Prefix)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	s.publish(r, EventMessage{Type: EventAliasesChanged, DocumentID: alias.DocumentID})
	respond(w, http.StatusCreated, alias)
}

func (s *Server) handleUpdateAlias(w http.ResponseWriter, r *http.Request) {
	var in citation.AliasInput
	if !decodeJSON(w, r, &in) {
		return
	}
	alias, err := s.lib.UpdateAlias(r.Context(), r.PathValue("id"), in)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	s.publish(r, EventMessage{Type: EventAliasesChanged, DocumentID: alias.DocumentID})
	respond(w, http.StatusOK, alias)
}

func (s *Server) handleDeleteAlias(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.DeleteAlias(r.Context(), r.PathValue("id")); err != nil {
		respondErr(w, r, err)
		return
	}
	s.publish(r, EventMessage{Type: EventAliasesChanged})
	w.WriteHeader(http.StatusNoContent)
}

// TextRequest carries plain text or an HTML fragment.
type TextRequest struct {
	Text     string `json:"text,omitempty"`
	Fragment string `json:"fragment,omitempty"`
	Token    string `json:"token,omitempty"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	matches, err := s.lib.Resolve(r.Context(), req.Text)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if matches == nil {
		matches = []citation.Match{}
	}
	respondList(w, matches, len(matches))
}

func (s *Server) handleAutoLink(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := s.lib.AutoLink(r.Context(), req.Fragment)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, res)
}

// UnlinkResult reports how many links were removed.
type UnlinkResult struct {
	Fragment string `json:"fragment"`
	Removed  int    `json:"removed"`
}

// handleUnlink removes the link carrying req.Token, or every citation link
// when no token is given.
func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, n, err := autolink.Unlink(req.Fragment, req.Token)
	if err != nil {
		respondErr(w, r, errors.NewParse("html", "", err.Error()))
		return
	}
	respond(w, http.StatusOK, UnlinkResult{Fragment: out, Removed: n})
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	refs, err := autolink.ExtractReferences(req.Fragment)
	if err != nil {
		respondErr(w, r, errors.NewParse("html", "", err.Error()))
		return
	}
	if refs == nil {
		refs = []autolink.LinkRef{}
	}
	respondList(w, refs, len(refs))
}

// AnchorRequest links a paragraph to a note.
type AnchorRequest struct {
	DocumentID string `json:"document_id"`
	NodeID     string `json:"node_id"`
	NoteID     string `json:"note_id"`
	Label      string `json:"display_label,omitempty"`
}

// AnchorResult reports the anchor id and whether it was newly created.
type AnchorResult struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

func (s *Server) handleCreateAnchor(w http.ResponseWriter, r *http.Request) {
	var req AnchorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, created, err := s.lib.CreateAnchor(r.Context(), req.DocumentID, req.NodeID, req.NoteID, req.Label)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		s.publish(r, EventMessage{Type: EventAnchorsChanged, DocumentID: req.DocumentID, NodeID: req.NodeID})
	}
	respond(w, status, AnchorResult{ID: id, Created: created})
}

func (s *Server) handleDeleteAnchor(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.RemoveAnchor(r.Context(), r.PathValue("id")); err != nil {
		respondErr(w, r, err)
		return
	}
	s.publish(r, EventMessage{Type: EventAnchorsChanged})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDocumentAnchors(w http.ResponseWriter, r *http.Request) {
	anchors, err := s.lib.DocumentAnchors(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, anchors, len(anchors))
}

func (s *Server) handleNoteAnchors(w http.ResponseWriter, r *http.Request) {
	anchors, err := s.lib.NoteAnchors(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, anchors, len(anchors))
}

// handleNavigate decodes a link token and asks the caller's open clients to
// show its target. Document targets must belong to the caller.
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req TextRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ref, err := autolink.ParseToken(req.Token)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	msg := EventMessage{Type: EventNavigate, Reference: ref.Token()}
	if ref.Kind == autolink.RefDocument {
		if _, err := s.lib.Document(r.Context(), ref.DocumentID); err != nil {
			respondErr(w, r, err)
			return
		}
		msg.DocumentID, msg.NodeID = ref.DocumentID, ref.NodeID
	}
	s.publish(r, msg)
	respond(w, http.StatusAccepted, ref)
}
