// Package library ties the document pipeline together: it parses imported
// sources into review sessions, commits reviewed sessions to the store,
// keeps the citation resolver coherent and manages the folder and note
// trees of each user.
//
// Every per-user operation takes the user id from the request context
// (logging.WithUserID). A context without a user sees an empty library.
package library

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/JuniperStudy/core/anchor"
	"github.com/FocuswithJustin/JuniperStudy/core/autolink"
	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
	"github.com/FocuswithJustin/JuniperStudy/internal/store"
)

// Options configures a Library.
type Options struct {
	// CacheSize bounds the resolver lookup cache.
	CacheSize int
	// Translation labels scripture references found in notes.
	Translation string
	// AnchorCacheTTL bounds how long anchored-node sets are reused.
	AnchorCacheTTL time.Duration
}

// Library is the application service behind the CLI and the HTTP API.
type Library struct {
	store    *store.Store
	registry *citation.Registry
	resolver *citation.Resolver
	anchors  *anchor.Service

	mu       sync.Mutex
	sessions map[string]*pending

	now   func() time.Time
	newID func() string
}

// New builds a library over st.
func New(st *store.Store, opts Options) *Library {
	cache := citation.NewCache(opts.CacheSize)
	translation := opts.Translation
	if translation == "" {
		translation = autolink.DefaultTranslation
	}
	resolver := citation.NewResolver(st, st, cache,
		citation.WithScripture(citation.NewScriptureMatcher(translation)))
	return &Library{
		store:    st,
		registry: citation.NewRegistry(st, cache),
		resolver: resolver,
		anchors:  anchor.NewService(st, opts.AnchorCacheTTL),
		sessions: make(map[string]*pending),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Store returns the underlying store.
func (l *Library) Store() *store.Store { return l.store }

// Resolver returns the citation resolver.
func (l *Library) Resolver() *citation.Resolver { return l.resolver }

// Anchors returns the anchor service.
func (l *Library) Anchors() *anchor.Service { return l.anchors }

// owner returns the user id carried by ctx.
func owner(ctx context.Context) string {
	return logging.GetUserID(ctx)
}

// requireOwner fails with ErrUnauthorized when ctx carries no user.
func requireOwner(ctx context.Context) (string, error) {
	if u := owner(ctx); u != "" {
		return u, nil
	}
	return "", errors.Wrap(errors.ErrUnauthorized, "no user in context")
}
