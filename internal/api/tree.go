package api

import (
	"net/http"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/internal/store"
)

// treeKind reads the {kind} path segment.
func treeKind(r *http.Request) (store.FolderKind, error) {
	switch kind := store.FolderKind(r.PathValue("kind")); kind {
	case store.FolderDocuments, store.FolderNotes:
		return kind, nil
	default:
		return "", errors.NewValidation("kind", "tree kind must be documents or notes")
	}
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	kind, err := treeKind(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	tree, err := s.lib.Tree(r.Context(), kind)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, tree, len(tree))
}

// MoveRequest places an entry under ParentID ("" for the root) at Index
// among its new siblings.
type MoveRequest struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id"`
	Index    int    `json:"index"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	kind, err := treeKind(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	var req MoveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := s.lib.Move(r.Context(), kind, req.ID, req.ParentID, req.Index)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, entry)
}

// FolderRequest creates or renames a folder.
type FolderRequest struct {
	Kind     store.FolderKind `json:"kind,omitempty"`
	Name     string           `json:"name"`
	ParentID *string          `json:"parent_id,omitempty"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	f, err := s.lib.CreateFolder(r.Context(), req.Kind, req.Name, req.ParentID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusCreated, f)
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	var req FolderRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.lib.RenameFolder(r.Context(), r.PathValue("id"), req.Name); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.DeleteFolder(r.Context(), r.PathValue("id")); err != nil {
		respondErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NoteRequest creates or saves a note. Content is an HTML fragment.
type NoteRequest struct {
	FolderID *string `json:"folder_id,omitempty"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
}

// NoteResult is a saved note with the number of citations linked on save.
type NoteResult struct {
	store.Note
	Linked int `json:"linked"`
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := s.lib.CreateNote(r.Context(), req.FolderID, req.Title, req.Content)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusCreated, n)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.lib.Note(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, n)
}

func (s *Server) handleSaveNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, linked, err := s.lib.SaveNote(r.Context(), r.PathValue("id"), req.Title, req.Content)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, NoteResult{Note: n, Linked: linked})
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.lib.DeleteNote(r.Context(), r.PathValue("id")); err != nil {
		respondErr(w, r, err)
		return
	}
	s.publish(r, EventMessage{Type: EventAnchorsChanged})
	w.WriteHeader(http.StatusNoContent)
}
