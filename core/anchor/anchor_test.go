package anchor

import (
	"context"
	"testing"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

type countingStore struct {
	*MemoryStore
	docQueries int
}

func (c *countingStore) AnchorsForDocument(ctx context.Context, documentID string) ([]Anchor, error) {
	c.docQueries++
	return c.MemoryStore.AnchorsForDocument(ctx, documentID)
}

func TestCreate_Uniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, 0)

	id, created, err := svc.Create(ctx, "doc", "n1", "note", "CCC 1")
	if err != nil || !created || id == "" {
		t.Fatalf("first Create() = %q, %v, %v", id, created, err)
	}
	id2, created, err := svc.Create(ctx, "doc", "n1", "note", "other label")
	if err != nil || created || id2 != "" {
		t.Errorf("second Create() = %q, %v, %v; want \"\", false, nil", id2, created, err)
	}
	all, _ := svc.ForDocument(ctx, "doc")
	if len(all) != 1 || all[0].ID != id || all[0].DisplayLabel != "CCC 1" {
		t.Errorf("ForDocument() = %+v", all)
	}

	if _, created, _ := svc.Create(ctx, "doc", "n1", "note-2", ""); !created {
		t.Error("different note should create a new anchor")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(NewMemoryStore(), 0)
	tests := []struct{ doc, node, note string }{
		{"", "n", "x"},
		{"d", " ", "x"},
		{"d", "n", ""},
	}
	for _, tt := range tests {
		if _, _, err := svc.Create(context.Background(), tt.doc, tt.node, tt.note, ""); !errors.IsValidation(err) {
			t.Errorf("Create(%q, %q, %q) error = %v, want validation", tt.doc, tt.node, tt.note, err)
		}
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), 0)
	id, _, _ := svc.Create(ctx, "doc", "n1", "note", "")

	if err := svc.Remove(ctx, id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := svc.Remove(ctx, id); err != nil {
		t.Errorf("Remove() of missing anchor error = %v", err)
	}
	if got, _ := svc.ForNote(ctx, "note"); len(got) != 0 {
		t.Errorf("ForNote() after remove = %+v", got)
	}
}

func TestAnchoredNodes_Cached(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemoryStore: NewMemoryStore()}
	svc := NewService(store, 0)
	svc.Create(ctx, "doc", "n1", "note-a", "")
	svc.Create(ctx, "doc", "n2", "note-a", "")
	svc.Create(ctx, "other", "n9", "note-b", "")

	set, err := svc.AnchoredNodes(ctx, "doc")
	if err != nil {
		t.Fatal(err)
	}
	if len(set) != 2 || !set["n1"] || !set["n2"] || set["n9"] {
		t.Errorf("AnchoredNodes() = %v", set)
	}
	svc.AnchoredNodes(ctx, "doc")
	if store.docQueries != 1 {
		t.Errorf("store queried %d times, want 1", store.docQueries)
	}

	svc.Create(ctx, "doc", "n3", "note-c", "")
	set, _ = svc.AnchoredNodes(ctx, "doc")
	if !set["n3"] || store.docQueries != 2 {
		t.Errorf("create did not invalidate: set=%v queries=%d", set, store.docQueries)
	}

	svc.Create(ctx, "other", "n8", "note-c", "")
	svc.AnchoredNodes(ctx, "doc")
	if store.docQueries != 2 {
		t.Errorf("create on another document invalidated doc: queries=%d", store.docQueries)
	}

	svc.Forget("")
	svc.AnchoredNodes(ctx, "doc")
	if store.docQueries != 3 {
		t.Errorf("Forget did not drop the set: queries=%d", store.docQueries)
	}
}

func TestForNote(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), 0)
	svc.Create(ctx, "d1", "n1", "note", "")
	svc.Create(ctx, "d2", "n5", "note", "")
	svc.Create(ctx, "d2", "n5", "elsewhere", "")

	got, err := svc.ForNote(ctx, "note")
	if err != nil || len(got) != 2 {
		t.Errorf("ForNote() = %+v, %v", got, err)
	}
	if empty, _ := svc.ForNote(ctx, "none"); empty == nil || len(empty) != 0 {
		t.Errorf("ForNote(none) = %#v, want empty slice", empty)
	}
}
