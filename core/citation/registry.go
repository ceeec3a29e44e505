package citation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// AliasLister is the read side the Resolver needs.
type AliasLister interface {
	// ListAliases returns every alias ordered by priority descending, ties
	// in insertion order.
	ListAliases(ctx context.Context) ([]Alias, error)
}

// AliasStore persists aliases.
type AliasStore interface {
	AliasLister
	GetAlias(ctx context.Context, id string) (Alias, error)
	InsertAlias(ctx context.Context, a Alias) error
	UpdateAlias(ctx context.Context, a Alias) error
	DeleteAlias(ctx context.Context, id string) error
}

// Invalidator is notified after every successful alias mutation.
type Invalidator interface {
	Invalidate()
}

// Registry validates alias changes and keeps the resolver cache coherent.
type Registry struct {
	mu    sync.Mutex // serialises prefix check and write
	store AliasStore
	cache Invalidator
	now   func() time.Time
	newID func() string
}

// NewRegistry returns a registry over store. cache may be nil.
func NewRegistry(store AliasStore, cache Invalidator) *Registry {
	return &Registry{
		store: store,
		cache: cache,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (r *Registry) invalidate() {
	if r.cache != nil {
		r.cache.Invalidate()
	}
}

// IsPrefixInUse reports whether any alias other than excludeID uses prefix,
// compared case-insensitively.
func (r *Registry) IsPrefixInUse(ctx context.Context, prefix, excludeID string) (bool, error) {
	aliases, err := r.store.ListAliases(ctx)
	if err != nil {
		return false, err
	}
	return prefixTaken(aliases, prefix, excludeID), nil
}

func prefixTaken(aliases []Alias, prefix, excludeID string) bool {
	prefix = strings.TrimSpace(prefix)
	for _, a := range aliases {
		if a.ID != excludeID && strings.EqualFold(a.Prefix, prefix) {
			return true
		}
	}
	return false
}

func prefixInUse(prefix string) error {
	return &errors.ValidationError{
		Field:   "prefix",
		Value:   prefix,
		Message: "prefix " + prefix + " is already used by another alias",
		Err:     ErrPrefixInUse,
	}
}

// Create validates and stores a new alias.
func (r *Registry) Create(ctx context.Context, in AliasInput) (Alias, error) {
	in, err := in.normalize()
	if err != nil {
		return Alias{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	inUse, err := r.IsPrefixInUse(ctx, in.Prefix, "")
	if err != nil {
		return Alias{}, err
	}
	if inUse {
		return Alias{}, prefixInUse(in.Prefix)
	}

	now := r.now().UTC()
	a := Alias{
		ID:              r.newID(),
		DocumentID:      in.DocumentID,
		Prefix:          in.Prefix,
		Pattern:         in.Pattern,
		NumberExtractor: in.NumberExtractor,
		DisplayFormat:   in.DisplayFormat,
		Priority:        in.Priority,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.store.InsertAlias(ctx, a); err != nil {
		return Alias{}, err
	}
	r.invalidate()
	return a, nil
}

// CreateFromPreset creates an alias from a named preset. A non-empty
// customPrefix replaces the preset's default prefix throughout.
func (r *Registry) CreateFromPreset(ctx context.Context, documentID, presetName, customPrefix string) (Alias, error) {
	p, ok := PresetByName(presetName)
	if !ok {
		return Alias{}, &errors.ValidationError{Field: "preset", Value: presetName, Message: "unknown preset"}
	}
	in := p.Apply(customPrefix)
	in.DocumentID = documentID
	return r.Create(ctx, in)
}

// Update replaces the editable fields of alias id.
func (r *Registry) Update(ctx context.Context, id string, in AliasInput) (Alias, error) {
	in, err := in.normalize()
	if err != nil {
		return Alias{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.store.GetAlias(ctx, id)
	if err != nil {
		return Alias{}, err
	}
	inUse, err := r.IsPrefixInUse(ctx, in.Prefix, id)
	if err != nil {
		return Alias{}, err
	}
	if inUse {
		return Alias{}, prefixInUse(in.Prefix)
	}

	current.DocumentID = in.DocumentID
	current.Prefix = in.Prefix
	current.Pattern = in.Pattern
	current.NumberExtractor = in.NumberExtractor
	current.DisplayFormat = in.DisplayFormat
	current.Priority = in.Priority
	current.UpdatedAt = r.now().UTC()
	if err := r.store.UpdateAlias(ctx, current); err != nil {
		return Alias{}, err
	}
	r.invalidate()
	return current, nil
}

// Delete removes alias id.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.store.DeleteAlias(ctx, id); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

// Get returns alias id.
func (r *Registry) Get(ctx context.Context, id string) (Alias, error) {
	return r.store.GetAlias(ctx, id)
}

// List returns all aliases in resolver order.
func (r *Registry) List(ctx context.Context) ([]Alias, error) {
	return r.store.ListAliases(ctx)
}

// ListForDocument returns the aliases targeting documentID in resolver order.
func (r *Registry) ListForDocument(ctx context.Context, documentID string) ([]Alias, error) {
	all, err := r.store.ListAliases(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Alias, 0, len(all))
	for _, a := range all {
		if a.DocumentID == documentID {
			out = append(out, a)
		}
	}
	return out, nil
}

// MemoryStore is an in-process AliasStore.
type MemoryStore struct {
	mu      sync.RWMutex
	aliases []Alias // insertion order
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ListAliases implements AliasLister.
func (m *MemoryStore) ListAliases(_ context.Context) ([]Alias, error) {
	m.mu.RLock()
	out := make([]Alias, len(m.aliases))
	copy(out, m.aliases)
	m.mu.RUnlock()
	SortAliases(out)
	return out, nil
}

// GetAlias implements AliasStore.
func (m *MemoryStore) GetAlias(_ context.Context, id string) (Alias, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.aliases {
		if a.ID == id {
			return a, nil
		}
	}
	return Alias{}, errors.NewNotFound("alias", id)
}

// InsertAlias implements AliasStore. It enforces prefix uniqueness the way
// the SQL schema does.
func (m *MemoryStore) InsertAlias(_ context.Context, a Alias) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prefixTaken(m.aliases, a.Prefix, "") {
		return prefixInUse(a.Prefix)
	}
	m.aliases = append(m.aliases, a)
	return nil
}

// UpdateAlias implements AliasStore.
func (m *MemoryStore) UpdateAlias(_ context.Context, a Alias) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prefixTaken(m.aliases, a.Prefix, a.ID) {
		return prefixInUse(a.Prefix)
	}
	for i := range m.aliases {
		if m.aliases[i].ID == a.ID {
			m.aliases[i] = a
			return nil
		}
	}
	return errors.NewNotFound("alias", a.ID)
}

// DeleteAlias implements AliasStore.
func (m *MemoryStore) DeleteAlias(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.aliases {
		if m.aliases[i].ID == id {
			m.aliases = append(m.aliases[:i], m.aliases[i+1:]...)
			return nil
		}
	}
	return errors.NewNotFound("alias", id)
}
