package library

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/core/parse"
	"github.com/FocuswithJustin/JuniperStudy/core/review"
	"github.com/FocuswithJustin/JuniperStudy/internal/ingest"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
)

// ImportRequest describes a source to parse into a review session.
type ImportRequest struct {
	Title      string
	SourceType document.SourceType
	FolderID   *string
	Source     ingest.Source
}

// SessionInfo describes a pending review session.
type SessionInfo struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	SourceType  document.SourceType `json:"source_type"`
	SourceHash  string              `json:"source_hash"`
	Stats       parse.Stats         `json:"stats"`
	DuplicateOf string              `json:"duplicate_of,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	State       review.State        `json:"state"`
}

// pending is a review session waiting for commit. mu makes the session
// single-writer.
type pending struct {
	mu      sync.Mutex
	owner   string
	info    SessionInfo
	folder  *string
	session *review.Session
}

func (p *pending) snapshot() SessionInfo {
	info := p.info
	info.State = p.session.Snapshot()
	return info
}

// Import parses req.Source and opens a review session for the user in ctx.
// Importing bytes that already produced one of the user's documents is
// allowed; the existing document is reported in DuplicateOf.
func (l *Library) Import(ctx context.Context, req ImportRequest) (SessionInfo, error) {
	user, err := requireOwner(ctx)
	if err != nil {
		return SessionInfo{}, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Source.Title
	}
	if title == "" {
		return SessionInfo{}, errors.NewValidation("title", "document title is required")
	}
	if req.SourceType == "" {
		req.SourceType = document.SourceGeneric
	}
	if _, err := document.ParseSourceType(string(req.SourceType)); err != nil {
		return SessionInfo{}, err
	}

	result := parse.Parse(req.Source.Text, req.SourceType)
	logging.ParseCompleted(ctx, string(req.SourceType), result.Stats.Lines,
		result.Stats.Structural, result.Stats.Citable, result.Stats.Dropped,
		"title", title, "format", string(req.Source.Format), "duplicates", result.Stats.Duplicates)

	p := &pending{
		owner:  user,
		folder: req.FolderID,
		info: SessionInfo{
			ID:         l.newID(),
			Title:      title,
			SourceType: req.SourceType,
			SourceHash: req.Source.Hash,
			Stats:      result.Stats,
			CreatedAt:  l.now().UTC(),
		},
		session: review.NewSession(result.Nodes),
	}
	if dup, ok, err := l.store.FindDocumentByHash(ctx, user, req.Source.Hash); err != nil {
		return SessionInfo{}, err
	} else if ok {
		p.info.DuplicateOf = dup.ID
	}

	l.mu.Lock()
	l.sessions[p.info.ID] = p
	l.mu.Unlock()
	return p.snapshot(), nil
}

// lookup returns the user's session id.
func (l *Library) lookup(ctx context.Context, id string) (*pending, error) {
	user, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	p, ok := l.sessions[id]
	l.mu.Unlock()
	if !ok || p.owner != user {
		return nil, errors.NewNotFound("review session", id)
	}
	return p, nil
}

// Session returns the current state of a review session.
func (l *Library) Session(ctx context.Context, id string) (SessionInfo, error) {
	p, err := l.lookup(ctx, id)
	if err != nil {
		return SessionInfo{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot(), nil
}

// Sessions lists the user's open review sessions.
func (l *Library) Sessions(ctx context.Context) []SessionInfo {
	user := owner(ctx)
	l.mu.Lock()
	var mine []*pending
	for _, p := range l.sessions {
		if user != "" && p.owner == user {
			mine = append(mine, p)
		}
	}
	l.mu.Unlock()

	out := make([]SessionInfo, 0, len(mine))
	for _, p := range mine {
		p.mu.Lock()
		info := p.info
		p.mu.Unlock()
		out = append(out, info)
	}
	sortSessions(out)
	return out
}

// Edit applies edits in order to a review session. Edits that the session
// rejects leave it unchanged and are reported as false in applied.
func (l *Library) Edit(ctx context.Context, id string, edits ...review.Edit) (applied []bool, info SessionInfo, err error) {
	p, err := l.lookup(ctx, id)
	if err != nil {
		return nil, SessionInfo{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	applied = make([]bool, len(edits))
	for i, e := range edits {
		ok, err := e.Apply(p.session)
		if err != nil {
			return applied, p.snapshot(), err
		}
		applied[i] = ok
	}
	return applied, p.snapshot(), nil
}

// Commit canonicalises a review session and stores it as a document. The
// session is closed only when the document was stored.
func (l *Library) Commit(ctx context.Context, id string) (*document.Document, error) {
	p, err := l.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	nodes, err := p.session.Canonicalize(l.newID)
	if err != nil {
		return nil, err
	}
	doc := &document.Document{
		ID:         l.newID(),
		OwnerID:    p.owner,
		Title:      p.info.Title,
		SourceType: p.info.SourceType,
		SourceHash: p.info.SourceHash,
		FolderID:   p.folder,
		Nodes:      nodes,
	}
	doc.Order, err = l.appendOrder(ctx, p.owner, doc.FolderID)
	if err != nil {
		return nil, err
	}
	if err := l.store.CommitDocument(ctx, doc); err != nil {
		return nil, err
	}
	l.resolver.Cache().Invalidate()

	l.mu.Lock()
	delete(l.sessions, id)
	l.mu.Unlock()
	logging.SessionCommitted(ctx, id, doc.ID, len(doc.Nodes), "citable", doc.TotalCitableNodes())
	return doc, nil
}

// Discard closes a review session without storing anything.
func (l *Library) Discard(ctx context.Context, id string) error {
	if _, err := l.lookup(ctx, id); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.sessions, id)
	l.mu.Unlock()
	return nil
}
