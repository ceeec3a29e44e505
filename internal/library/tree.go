package library

import (
	"context"
	"sort"
	"strings"

	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/core/order"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
	"github.com/FocuswithJustin/JuniperStudy/internal/store"
)

// EntryType is the kind of a tree entry.
type EntryType string

// Tree entry types.
const (
	EntryFolder   EntryType = "folder"
	EntryDocument EntryType = "document"
	EntryNote     EntryType = "note"
)

// TreeEntry is one node of a user's folder tree.
type TreeEntry struct {
	ID       string       `json:"id"`
	Type     EntryType    `json:"type"`
	Name     string       `json:"name"`
	Order    float64      `json:"order"`
	Children []*TreeEntry `json:"children,omitempty"`
}

// treeOf loads one of the user's trees (documents or notes) as a forest
// plus display names and entry types.
func (l *Library) treeOf(ctx context.Context, user string, kind store.FolderKind) (*order.Forest, map[string]TreeEntry, error) {
	folders, err := l.store.ListFolders(ctx, user, kind)
	if err != nil {
		return nil, nil, err
	}
	forest := order.NewForest()
	meta := make(map[string]TreeEntry)
	for _, f := range folders {
		forest.Put(order.Item{ID: f.ID, ParentID: deref(f.ParentID), Order: f.Order, CreatedAt: f.CreatedAt})
		meta[f.ID] = TreeEntry{ID: f.ID, Type: EntryFolder, Name: f.Name}
	}

	switch kind {
	case store.FolderDocuments:
		docs, err := l.store.ListDocuments(ctx, user)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range docs {
			forest.Put(order.Item{ID: d.ID, ParentID: deref(d.FolderID), Order: d.Order, CreatedAt: d.CreatedAt})
			meta[d.ID] = TreeEntry{ID: d.ID, Type: EntryDocument, Name: d.Title}
		}
	case store.FolderNotes:
		notes, err := l.store.ListNotes(ctx, user)
		if err != nil {
			return nil, nil, err
		}
		for _, n := range notes {
			forest.Put(order.Item{ID: n.ID, ParentID: deref(n.FolderID), Order: n.Order, CreatedAt: n.CreatedAt})
			meta[n.ID] = TreeEntry{ID: n.ID, Type: EntryNote, Name: n.Title}
		}
	}
	return forest, meta, nil
}

// Tree returns the user's folder tree of the given kind with documents or
// notes as leaves, siblings in display order.
func (l *Library) Tree(ctx context.Context, kind store.FolderKind) ([]*TreeEntry, error) {
	user := owner(ctx)
	if user == "" {
		return []*TreeEntry{}, nil
	}
	forest, meta, err := l.treeOf(ctx, user, kind)
	if err != nil {
		return nil, err
	}
	var build func(parent string) []*TreeEntry
	build = func(parent string) []*TreeEntry {
		out := []*TreeEntry{}
		for _, it := range forest.Children(parent) {
			e := meta[it.ID]
			e.Order = it.Order
			if e.Type == EntryFolder {
				e.Children = build(it.ID)
			}
			out = append(out, &e)
		}
		return out
	}
	return build(""), nil
}

// appendOrder returns a key that places a new entry after every existing
// sibling under folderID in the user's document tree.
func (l *Library) appendOrder(ctx context.Context, user string, folderID *string) (float64, error) {
	forest, _, err := l.treeOf(ctx, user, store.FolderDocuments)
	if err != nil {
		return 0, err
	}
	return forest.InsertionOrder(deref(folderID), forest.Len(), ""), nil
}

// CreateFolder adds a folder at the end of parentID's children.
func (l *Library) CreateFolder(ctx context.Context, kind store.FolderKind, name string, parentID *string) (store.Folder, error) {
	user, err := requireOwner(ctx)
	if err != nil {
		return store.Folder{}, err
	}
	forest, meta, err := l.treeOf(ctx, user, kind)
	if err != nil {
		return store.Folder{}, err
	}
	if p := deref(parentID); p != "" {
		if e, ok := meta[p]; !ok || e.Type != EntryFolder {
			return store.Folder{}, errors.NewNotFound("folder", p)
		}
	}
	f := store.Folder{
		ID:       l.newID(),
		OwnerID:  user,
		Kind:     kind,
		Name:     strings.TrimSpace(name),
		ParentID: parentID,
		Order:    forest.InsertionOrder(deref(parentID), forest.Len(), ""),
	}
	if err := l.store.CreateFolder(ctx, &f); err != nil {
		return store.Folder{}, err
	}
	return f, nil
}

// Move re-parents an entry of the user's tree under parentID ("" for the
// root) at a sibling index. Only the moved entry's order key changes.
// Moving a folder into itself or one of its descendants is rejected.
func (l *Library) Move(ctx context.Context, kind store.FolderKind, id, parentID string, index int) (TreeEntry, error) {
	user, err := requireOwner(ctx)
	if err != nil {
		return TreeEntry{}, err
	}
	forest, meta, err := l.treeOf(ctx, user, kind)
	if err != nil {
		return TreeEntry{}, err
	}
	e, ok := meta[id]
	if !ok {
		return TreeEntry{}, errors.NewNotFound(string(kind)+" entry", id)
	}
	if parentID != "" && meta[parentID].Type != EntryFolder {
		return TreeEntry{}, errors.NewNotFound("folder", parentID)
	}

	it, err := forest.Move(id, parentID, index)
	if err != nil {
		return TreeEntry{}, err
	}
	var parent *string
	if parentID != "" {
		parent = &parentID
	}
	switch e.Type {
	case EntryFolder:
		err = l.store.PlaceFolder(ctx, id, parent, it.Order)
	case EntryDocument:
		err = l.store.PlaceDocument(ctx, id, parent, it.Order)
	case EntryNote:
		err = l.store.PlaceNote(ctx, id, parent, it.Order)
	}
	if err != nil {
		return TreeEntry{}, err
	}
	logging.DebugContext(ctx, "tree entry moved", "id", id, "parent_id", parentID, "order", it.Order)
	e.Order = it.Order
	return e, nil
}

// CreateNote adds a note at the end of folderID. The content is auto-linked
// before it is stored.
func (l *Library) CreateNote(ctx context.Context, folderID *string, title, content string) (store.Note, error) {
	user, err := requireOwner(ctx)
	if err != nil {
		return store.Note{}, err
	}
	forest, meta, err := l.treeOf(ctx, user, store.FolderNotes)
	if err != nil {
		return store.Note{}, err
	}
	if p := deref(folderID); p != "" && meta[p].Type != EntryFolder {
		return store.Note{}, errors.NewNotFound("folder", p)
	}
	linked, err := l.AutoLink(ctx, content)
	if err != nil {
		return store.Note{}, err
	}
	n := store.Note{
		ID:       l.newID(),
		OwnerID:  user,
		FolderID: folderID,
		Title:    strings.TrimSpace(title),
		Content:  linked.Fragment,
		Order:    forest.InsertionOrder(deref(folderID), forest.Len(), ""),
	}
	if err := l.store.CreateNote(ctx, &n); err != nil {
		return store.Note{}, err
	}
	return n, nil
}

// Note loads one of the user's notes.
func (l *Library) Note(ctx context.Context, id string) (store.Note, error) {
	user, err := requireOwner(ctx)
	if err != nil {
		return store.Note{}, err
	}
	n, err := l.store.GetNote(ctx, id)
	if err != nil {
		return store.Note{}, err
	}
	if n.OwnerID != user {
		return store.Note{}, errors.NewNotFound("note", id)
	}
	return n, nil
}

// SaveNote replaces a note's title and content, auto-linking the content.
// It returns the number of citations newly linked.
func (l *Library) SaveNote(ctx context.Context, id, title, content string) (store.Note, int, error) {
	n, err := l.Note(ctx, id)
	if err != nil {
		return store.Note{}, 0, err
	}
	linked, err := l.AutoLink(ctx, content)
	if err != nil {
		return store.Note{}, 0, err
	}
	if err := l.store.UpdateNote(ctx, id, strings.TrimSpace(title), linked.Fragment); err != nil {
		return store.Note{}, 0, err
	}
	n.Title, n.Content = strings.TrimSpace(title), linked.Fragment
	return n, linked.LinkedCount, nil
}

// DeleteNote removes one of the user's notes with its anchors.
func (l *Library) DeleteNote(ctx context.Context, id string) error {
	if _, err := l.Note(ctx, id); err != nil {
		return err
	}
	if err := l.store.DeleteNote(ctx, id); err != nil {
		return err
	}
	l.anchors.Forget("")
	return nil
}

// Documents lists the user's documents without nodes.
func (l *Library) Documents(ctx context.Context) ([]document.Document, error) {
	return l.store.ListDocuments(ctx, owner(ctx))
}

// Document loads one of the user's documents with its nodes.
func (l *Library) Document(ctx context.Context, id string) (*document.Document, error) {
	user, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	d, err := l.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.OwnerID != user {
		return nil, errors.NewNotFound("document", id)
	}
	return d, nil
}

// RenameDocument changes the title of one of the user's documents.
func (l *Library) RenameDocument(ctx context.Context, id, title string) error {
	if _, err := l.Document(ctx, id); err != nil {
		return err
	}
	return l.store.RenameDocument(ctx, id, title)
}

// DeleteDocument removes one of the user's documents. Its aliases and
// anchors go with it, so the resolver cache is invalidated.
func (l *Library) DeleteDocument(ctx context.Context, id string) error {
	if _, err := l.Document(ctx, id); err != nil {
		return err
	}
	if err := l.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	l.resolver.Cache().Invalidate()
	l.anchors.Forget(id)
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func sortSessions(s []SessionInfo) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.Before(s[j].CreatedAt)
		}
		return s[i].ID < s[j].ID
	})
}

// RenameFolder renames one of the user's folders.
func (l *Library) RenameFolder(ctx context.Context, id, name string) error {
	if _, err := l.folder(ctx, id); err != nil {
		return err
	}
	return l.store.RenameFolder(ctx, id, name)
}

// DeleteFolder removes one of the user's folders. Its contents move to the
// root.
func (l *Library) DeleteFolder(ctx context.Context, id string) error {
	if _, err := l.folder(ctx, id); err != nil {
		return err
	}
	return l.store.DeleteFolder(ctx, id)
}

func (l *Library) folder(ctx context.Context, id string) (store.Folder, error) {
	user, err := requireOwner(ctx)
	if err != nil {
		return store.Folder{}, err
	}
	f, err := l.store.GetFolder(ctx, id)
	if err != nil {
		return store.Folder{}, err
	}
	if f.OwnerID != user {
		return store.Folder{}, errors.NewNotFound("folder", id)
	}
	return f, nil
}
