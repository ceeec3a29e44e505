package library

import (
	"context"

	"github.com/FocuswithJustin/JuniperStudy/core/anchor"
	"github.com/FocuswithJustin/JuniperStudy/core/autolink"
	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
)

// CreateAlias registers a citation alias for one of the user's documents.
func (l *Library) CreateAlias(ctx context.Context, in citation.AliasInput) (citation.Alias, error) {
	if _, err := l.Document(ctx, in.DocumentID); err != nil {
		return citation.Alias{}, err
	}
	a, err := l.registry.Create(ctx, in)
	if err != nil {
		return citation.Alias{}, err
	}
	logging.AliasChanged(ctx, "create", a.ID, a.Prefix, "document_id", a.DocumentID)
	return a, nil
}

// CreateAliasFromPreset registers a preset alias for one of the user's
// documents. A non-empty prefix overrides the preset's.
func (l *Library) CreateAliasFromPreset(ctx context.Context, documentID, preset, prefix string) (citation.Alias, error) {
	if _, err := l.Document(ctx, documentID); err != nil {
		return citation.Alias{}, err
	}
	a, err := l.registry.CreateFromPreset(ctx, documentID, preset, prefix)
	if err != nil {
		return citation.Alias{}, err
	}
	logging.AliasChanged(ctx, "create", a.ID, a.Prefix, "preset", preset)
	return a, nil
}

// UpdateAlias rewrites an alias on one of the user's documents.
func (l *Library) UpdateAlias(ctx context.Context, id string, in citation.AliasInput) (citation.Alias, error) {
	if _, err := l.alias(ctx, id); err != nil {
		return citation.Alias{}, err
	}
	if _, err := l.Document(ctx, in.DocumentID); err != nil {
		return citation.Alias{}, err
	}
	a, err := l.registry.Update(ctx, id, in)
	if err != nil {
		return citation.Alias{}, err
	}
	logging.AliasChanged(ctx, "update", a.ID, a.Prefix)
	return a, nil
}

// DeleteAlias removes an alias from one of the user's documents.
func (l *Library) DeleteAlias(ctx context.Context, id string) error {
	a, err := l.alias(ctx, id)
	if err != nil {
		return err
	}
	if err := l.registry.Delete(ctx, id); err != nil {
		return err
	}
	logging.AliasChanged(ctx, "delete", a.ID, a.Prefix)
	return nil
}

func (l *Library) alias(ctx context.Context, id string) (citation.Alias, error) {
	a, err := l.registry.Get(ctx, id)
	if err != nil {
		return citation.Alias{}, err
	}
	if _, err := l.Document(ctx, a.DocumentID); err != nil {
		return citation.Alias{}, err
	}
	return a, nil
}

// Aliases lists the user's aliases in resolution order, or only those of
// documentID when it is non-empty.
func (l *Library) Aliases(ctx context.Context, documentID string) ([]citation.Alias, error) {
	if documentID != "" {
		if _, err := l.Document(ctx, documentID); err != nil {
			return nil, err
		}
		return l.registry.ListForDocument(ctx, documentID)
	}
	owned, err := l.ownedDocuments(ctx)
	if err != nil {
		return nil, err
	}
	all, err := l.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]citation.Alias, 0, len(all))
	for _, a := range all {
		if owned(a.DocumentID) {
			out = append(out, a)
		}
	}
	return out, nil
}

// IsPrefixInUse reports whether another alias already holds prefix.
// Prefixes are unique across users.
func (l *Library) IsPrefixInUse(ctx context.Context, prefix, excludeID string) (bool, error) {
	return l.registry.IsPrefixInUse(ctx, prefix, excludeID)
}

// ownedDocuments returns a filter admitting the user's documents.
func (l *Library) ownedDocuments(ctx context.Context) (citation.Eligible, error) {
	docs, err := l.store.ListDocuments(ctx, owner(ctx))
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(docs))
	for _, d := range docs {
		ids[d.ID] = true
	}
	return func(id string) bool { return ids[id] }, nil
}

// ownedFinder restricts a resolver to aliases on the user's documents.
type ownedFinder struct {
	resolver *citation.Resolver
	eligible citation.Eligible
}

func (f ownedFinder) FindMatches(ctx context.Context, text string) ([]citation.Match, error) {
	return f.resolver.FindMatchesIn(ctx, text, f.eligible)
}

func (l *Library) finder(ctx context.Context) (ownedFinder, error) {
	owned, err := l.ownedDocuments(ctx)
	if err != nil {
		return ownedFinder{}, err
	}
	return ownedFinder{resolver: l.resolver, eligible: owned}, nil
}

// Resolve returns every citation found in text. Only aliases on the user's
// documents match.
func (l *Library) Resolve(ctx context.Context, text string) ([]citation.Match, error) {
	f, err := l.finder(ctx)
	if err != nil {
		return nil, err
	}
	return f.FindMatches(ctx, text)
}

// AutoLink links the citations in an HTML fragment. Only aliases on the
// user's documents match.
func (l *Library) AutoLink(ctx context.Context, fragment string) (autolink.Result, error) {
	f, err := l.finder(ctx)
	if err != nil {
		return autolink.Result{}, err
	}
	res, err := autolink.New(f).AutoLink(ctx, fragment)
	if err != nil {
		return autolink.Result{}, err
	}
	logging.AutoLinked(ctx, res.LinkedCount, len(fragment))
	return res, nil
}

// CreateAnchor links a node of one of the user's documents to one of the
// user's notes. created is false when the link already existed.
func (l *Library) CreateAnchor(ctx context.Context, documentID, nodeID, noteID, label string) (id string, created bool, err error) {
	doc, err := l.Document(ctx, documentID)
	if err != nil {
		return "", false, err
	}
	if !hasNode(doc, nodeID) {
		return "", false, errors.NewNotFound("node", nodeID)
	}
	if _, err := l.Note(ctx, noteID); err != nil {
		return "", false, err
	}
	return l.anchors.Create(ctx, documentID, nodeID, noteID, label)
}

func hasNode(doc *document.Document, nodeID string) bool {
	for _, n := range doc.Nodes {
		if n.NodeID() == nodeID {
			return true
		}
	}
	return false
}

// DocumentAnchors lists the anchors on one of the user's documents.
func (l *Library) DocumentAnchors(ctx context.Context, documentID string) ([]anchor.Anchor, error) {
	if _, err := l.Document(ctx, documentID); err != nil {
		return nil, err
	}
	return l.anchors.ForDocument(ctx, documentID)
}

// NoteAnchors lists the anchors made from one of the user's notes.
func (l *Library) NoteAnchors(ctx context.Context, noteID string) ([]anchor.Anchor, error) {
	if _, err := l.Note(ctx, noteID); err != nil {
		return nil, err
	}
	return l.anchors.ForNote(ctx, noteID)
}

// RemoveAnchor deletes an anchor. Removing a missing anchor succeeds.
func (l *Library) RemoveAnchor(ctx context.Context, id string) error {
	a, err := l.store.GetAnchor(ctx, id)
	if errors.Is(err, errors.ErrNotFound) {
		_, err = requireOwner(ctx)
		return err
	}
	if err != nil {
		return err
	}
	if _, err := l.Note(ctx, a.NoteID); err != nil {
		return err
	}
	return l.anchors.Remove(ctx, id)
}
