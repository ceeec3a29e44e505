package citation

import (
	"context"
	"sync"

	"github.com/FocuswithJustin/JuniperStudy/core/cache"
)

type lookupKey struct {
	documentID string
	number     int
}

type lookupResult struct {
	nodeID string
	found  bool
}

// Cache memoises the compiled alias set and node lookups for a Resolver.
// It is an explicit object so every owner controls its lifetime; tests build
// a fresh one each. Invalidate drops everything at once.
type Cache struct {
	mu      sync.Mutex
	aliases []*compiledAlias
	loaded  bool
	lookups *cache.LRU[lookupKey, lookupResult]
}

// NewCache returns an empty cache holding at most size node lookups.
func NewCache(size int) *Cache {
	return &Cache{lookups: cache.New[lookupKey, lookupResult](size)}
}

// Invalidate implements Invalidator.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.aliases = nil
	c.loaded = false
	c.lookups.Reset()
	c.mu.Unlock()
}

// Stats reports node lookup statistics.
func (c *Cache) Stats() cache.Stats {
	return c.lookups.Stats()
}

// compiledAliases returns the cached alias set, loading it from lister on a
// miss. A load that races with Invalidate is returned but not kept.
func (c *Cache) compiledAliases(ctx context.Context, lister AliasLister) ([]*compiledAlias, error) {
	c.mu.Lock()
	if c.loaded {
		out := c.aliases
		c.mu.Unlock()
		return out, nil
	}
	gen := c.lookups.Generation()
	c.mu.Unlock()

	aliases, err := lister.ListAliases(ctx)
	if err != nil {
		return nil, err
	}
	compiled := make([]*compiledAlias, 0, len(aliases))
	for _, a := range aliases {
		ca, err := compile(a)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, ca)
	}

	c.mu.Lock()
	if c.lookups.Generation() == gen {
		c.aliases = compiled
		c.loaded = true
	}
	c.mu.Unlock()
	return compiled, nil
}

// lookup resolves (documentID, number) through nodes, caching the answer,
// including misses.
func (c *Cache) lookup(ctx context.Context, nodes NodeLookup, documentID string, number int) (string, bool, error) {
	key := lookupKey{documentID: documentID, number: number}
	if r, ok := c.lookups.Get(key); ok {
		return r.nodeID, r.found, nil
	}
	gen := c.lookups.Generation()
	nodeID, found, err := nodes.CitableNodeID(ctx, documentID, number)
	if err != nil {
		return "", false, err
	}
	c.lookups.Store(gen, key, lookupResult{nodeID: nodeID, found: found})
	return nodeID, found, nil
}
