// Package anchor links document paragraphs to notes.
//
// An anchor is unique per (document, node, note) triple. The Service checks
// for an existing triple before inserting, so creating the same anchor twice
// stores one row and reports created=false the second time.
package anchor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/internal/cache"
)

// DefaultCacheTTL bounds how long an anchored-node set is served from cache.
const DefaultCacheTTL = 5 * time.Minute

// Anchor is a persisted link between one paragraph and one note.
type Anchor struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"document_id"`
	NodeID       string    `json:"node_id"`
	NoteID       string    `json:"note_id"`
	DisplayLabel string    `json:"display_label,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists anchors.
type Store interface {
	FindAnchor(ctx context.Context, documentID, nodeID, noteID string) (Anchor, bool, error)
	InsertAnchor(ctx context.Context, a Anchor) error
	DeleteAnchor(ctx context.Context, id string) error
	AnchorsForDocument(ctx context.Context, documentID string) ([]Anchor, error)
	AnchorsForNote(ctx context.Context, noteID string) ([]Anchor, error)
}

// Service creates and queries anchors.
type Service struct {
	store Store
	nodes *cache.TTLCache[string, map[string]bool]
	now   func() time.Time
	newID func() string
}

// NewService returns a service over store. A non-positive ttl uses
// DefaultCacheTTL.
func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		store: store,
		nodes: cache.New[string, map[string]bool](ttl),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Create links nodeID of documentID to noteID. It returns the new anchor id
// and created=true, or ("", false, nil) when the triple already exists.
func (s *Service) Create(ctx context.Context, documentID, nodeID, noteID, label string) (string, bool, error) {
	documentID, nodeID, noteID = strings.TrimSpace(documentID), strings.TrimSpace(nodeID), strings.TrimSpace(noteID)
	switch {
	case documentID == "":
		return "", false, errors.NewValidation("document_id", "document id is required")
	case nodeID == "":
		return "", false, errors.NewValidation("node_id", "node id is required")
	case noteID == "":
		return "", false, errors.NewValidation("note_id", "note id is required")
	}

	if _, exists, err := s.store.FindAnchor(ctx, documentID, nodeID, noteID); err != nil {
		return "", false, err
	} else if exists {
		return "", false, nil
	}

	a := Anchor{
		ID:           s.newID(),
		DocumentID:   documentID,
		NodeID:       nodeID,
		NoteID:       noteID,
		DisplayLabel: label,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.InsertAnchor(ctx, a); err != nil {
		if errors.Is(err, errors.ErrAlreadyExists) {
			return "", false, nil
		}
		return "", false, err
	}
	s.Forget(documentID)
	return a.ID, true, nil
}

// Remove deletes an anchor. Removing a missing anchor is not an error.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.store.DeleteAnchor(ctx, id); err != nil && !errors.Is(err, errors.ErrNotFound) {
		return err
	}
	s.Forget("")
	return nil
}

// Forget drops the cached anchored-node set of documentID, or every set when
// documentID is empty. Owners call it after deleting anchors behind the
// service's back, such as through a cascade.
func (s *Service) Forget(documentID string) {
	if documentID == "" {
		s.nodes.Clear()
		return
	}
	s.nodes.Delete(documentID)
}

// ForDocument lists the anchors on documentID.
func (s *Service) ForDocument(ctx context.Context, documentID string) ([]Anchor, error) {
	return s.store.AnchorsForDocument(ctx, documentID)
}

// ForNote lists the anchors from noteID.
func (s *Service) ForNote(ctx context.Context, noteID string) ([]Anchor, error) {
	return s.store.AnchorsForNote(ctx, noteID)
}

// AnchoredNodes returns the set of node ids in documentID that carry at least
// one anchor. The set is shared with the cache and must not be modified.
func (s *Service) AnchoredNodes(ctx context.Context, documentID string) (map[string]bool, error) {
	if set, ok := s.nodes.Get(documentID); ok {
		return set, nil
	}
	anchors, err := s.store.AnchorsForDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		set[a.NodeID] = true
	}
	s.nodes.Set(documentID, set)
	return set, nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	anchors []Anchor
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// FindAnchor implements Store.
func (m *MemoryStore) FindAnchor(_ context.Context, documentID, nodeID, noteID string) (Anchor, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.anchors {
		if a.DocumentID == documentID && a.NodeID == nodeID && a.NoteID == noteID {
			return a, true, nil
		}
	}
	return Anchor{}, false, nil
}

// InsertAnchor implements Store. A duplicate triple yields ErrAlreadyExists.
func (m *MemoryStore) InsertAnchor(_ context.Context, a Anchor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.anchors {
		if x.DocumentID == a.DocumentID && x.NodeID == a.NodeID && x.NoteID == a.NoteID {
			return errors.Wrap(errors.ErrAlreadyExists, "anchor")
		}
	}
	m.anchors = append(m.anchors, a)
	return nil
}

// DeleteAnchor implements Store.
func (m *MemoryStore) DeleteAnchor(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.anchors {
		if a.ID == id {
			m.anchors = append(m.anchors[:i], m.anchors[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFound("anchor", id)
}

// AnchorsForDocument implements Store.
func (m *MemoryStore) AnchorsForDocument(_ context.Context, documentID string) ([]Anchor, error) {
	return m.filter(func(a Anchor) bool { return a.DocumentID == documentID }), nil
}

// AnchorsForNote implements Store.
func (m *MemoryStore) AnchorsForNote(_ context.Context, noteID string) ([]Anchor, error) {
	return m.filter(func(a Anchor) bool { return a.NoteID == noteID }), nil
}

func (m *MemoryStore) filter(keep func(Anchor) bool) []Anchor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Anchor{}
	for _, a := range m.anchors {
		if keep(a) {
			out = append(out, a)
		}
	}
	return out
}
