package order

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// Item is one node of an ordered tree: a folder, a note or a document.
type Item struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Order     float64   `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Forest is an arena of items indexed by id. Child lists are derived from
// ParentID and rebuilt lazily after a change, so items never hold pointers to
// each other. An item whose parent is missing is treated as a root.
type Forest struct {
	mu       sync.RWMutex
	items    map[string]Item
	children map[string][]string // parent id -> sorted child ids; "" holds roots
	stale    bool
}

// NewForest builds a forest from items. Later duplicates replace earlier ones.
func NewForest(items ...Item) *Forest {
	f := &Forest{items: make(map[string]Item, len(items)), stale: true}
	for _, it := range items {
		f.items[it.ID] = it
	}
	return f
}

// Len returns the number of items.
func (f *Forest) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}

// Get returns the item with id.
func (f *Forest) Get(id string) (Item, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	it, ok := f.items[id]
	return it, ok
}

// Put inserts or replaces an item.
func (f *Forest) Put(it Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[it.ID] = it
	f.stale = true
}

// Remove deletes an item. Its children become roots until they are moved or
// removed themselves.
func (f *Forest) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, id)
	f.stale = true
}

// Children returns the children of parentID sorted by (Order, CreatedAt, ID).
// An empty parentID returns the roots.
func (f *Forest) Children(parentID string) []Item {
	f.mu.Lock()
	f.rebuild()
	ids := f.children[parentID]
	out := make([]Item, len(ids))
	for i, id := range ids {
		out[i] = f.items[id]
	}
	f.mu.Unlock()
	return out
}

// Roots returns the top-level items.
func (f *Forest) Roots() []Item {
	return f.Children("")
}

// Ancestors returns the parent chain of id, nearest first.
func (f *Forest) Ancestors(id string) []Item {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []Item
	seen := map[string]bool{id: true}
	cur, ok := f.items[id]
	for ok && cur.ParentID != "" && !seen[cur.ParentID] {
		seen[cur.ParentID] = true
		cur, ok = f.items[cur.ParentID]
		if ok {
			out = append(out, cur)
		}
	}
	return out
}

// InsertionOrder returns the key for an item dropped at index among the
// children of parentID. The moving item, if already a child, is left out of
// the sibling list first. Indexes past the end append.
func (f *Forest) InsertionOrder(parentID string, index int, movingID string) float64 {
	var siblings []Item
	for _, it := range f.Children(parentID) {
		if it.ID != movingID {
			siblings = append(siblings, it)
		}
	}
	if index < 0 {
		index = 0
	}
	if index > len(siblings) {
		index = len(siblings)
	}
	var before, after *float64
	if index > 0 {
		before = &siblings[index-1].Order
	}
	if index < len(siblings) {
		after = &siblings[index].Order
	}
	return Between(before, after)
}

// Move re-parents id under parentID at index and returns the updated item.
// Moving an item under itself or one of its descendants is rejected.
func (f *Forest) Move(id, parentID string, index int) (Item, error) {
	it, ok := f.Get(id)
	if !ok {
		return Item{}, errors.NewNotFound("item", id)
	}
	if parentID != "" {
		if parentID == id {
			return Item{}, errors.NewValidation("parent_id", "an item cannot contain itself")
		}
		if _, ok := f.Get(parentID); !ok {
			return Item{}, errors.NewNotFound("parent", parentID)
		}
		for _, a := range f.Ancestors(parentID) {
			if a.ID == id {
				return Item{}, errors.NewValidation("parent_id",
					fmt.Sprintf("%s is inside %s", parentID, id))
			}
		}
	}
	it.ParentID = parentID
	it.Order = f.InsertionOrder(parentID, index, id)
	f.Put(it)
	return it, nil
}

// rebuild recomputes the child lists. Callers hold the write lock.
func (f *Forest) rebuild() {
	if !f.stale {
		return
	}
	f.children = make(map[string][]string)
	for id, it := range f.items {
		parent := it.ParentID
		if _, ok := f.items[parent]; !ok {
			parent = ""
		}
		f.children[parent] = append(f.children[parent], id)
	}
	for _, ids := range f.children {
		sort.Slice(ids, func(i, j int) bool {
			a, b := f.items[ids[i]], f.items[ids[j]]
			if a.Order != b.Order {
				return a.Order < b.Order
			}
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.ID < b.ID
		})
	}
	f.stale = false
}
