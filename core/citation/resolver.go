package citation

import (
	"context"
	"math"
	"sort"
)

// NodeLookup finds the citable node carrying a paragraph number.
type NodeLookup interface {
	CitableNodeID(ctx context.Context, documentID string, number int) (nodeID string, found bool, err error)
}

// MatchKind distinguishes document citations from Bible references.
type MatchKind string

// Match kinds.
const (
	KindDocument  MatchKind = "document"
	KindScripture MatchKind = "scripture"
)

// Match is one citation found in text. Start and End are byte offsets.
type Match struct {
	Text       string        `json:"text"`
	Start      int           `json:"start"`
	End        int           `json:"end"`
	Kind       MatchKind     `json:"kind"`
	AliasID    string        `json:"alias_id,omitempty"`
	DocumentID string        `json:"document_id,omitempty"`
	Number     int           `json:"number,omitempty"`
	NodeID     string        `json:"node_id,omitempty"`
	Resolved   bool          `json:"resolved"`
	Display    string        `json:"display,omitempty"`
	Scripture  *ScriptureRef `json:"scripture,omitempty"`
}

// Eligible reports whether aliases targeting documentID may match.
type Eligible func(documentID string) bool

// Resolver finds and resolves citations.
type Resolver struct {
	aliases   AliasLister
	nodes     NodeLookup
	cache     *Cache
	scripture *ScriptureMatcher
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithScripture enables Bible reference matching.
func WithScripture(m *ScriptureMatcher) ResolverOption {
	return func(r *Resolver) { r.scripture = m }
}

// NewResolver returns a resolver. A nil cache gets a private one.
func NewResolver(aliases AliasLister, nodes NodeLookup, c *Cache, opts ...ResolverOption) *Resolver {
	if c == nil {
		c = NewCache(0)
	}
	r := &Resolver{aliases: aliases, nodes: nodes, cache: c}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Cache returns the resolver's cache so owners can invalidate it.
func (r *Resolver) Cache() *Cache {
	return r.cache
}

type candidate struct {
	start, end int
	priority   int
	rank       int
	alias      *compiledAlias
	scripture  *ScriptureRef
}

// FindMatches returns the non-overlapping citations in text ordered by
// Start. On overlap the higher-priority alias wins; among equal priorities the
// earlier span wins, then the longer one, then the alias listed first.
// Scripture references rank below every alias.
func (r *Resolver) FindMatches(ctx context.Context, text string) ([]Match, error) {
	return r.FindMatchesIn(ctx, text, nil)
}

// FindMatchesIn is FindMatches over the aliases whose document passes
// eligible. A nil eligible admits every alias.
func (r *Resolver) FindMatchesIn(ctx context.Context, text string, eligible Eligible) ([]Match, error) {
	if text == "" {
		return nil, nil
	}
	aliases, err := r.cache.compiledAliases(ctx, r.aliases)
	if err != nil {
		return nil, err
	}

	var cands []candidate
	for rank, a := range aliases {
		if eligible != nil && !eligible(a.DocumentID) {
			continue
		}
		for _, loc := range a.pattern.FindAllStringIndex(text, -1) {
			if loc[0] == loc[1] {
				continue
			}
			cands = append(cands, candidate{start: loc[0], end: loc[1], priority: a.Priority, rank: rank, alias: a})
		}
	}
	if r.scripture != nil {
		for _, h := range r.scripture.find(text) {
			ref := h.ref
			cands = append(cands, candidate{start: h.start, end: h.end, priority: math.MinInt, rank: len(aliases), scripture: &ref})
		}
	}

	selected := selectNonOverlapping(cands)

	matches := make([]Match, 0, len(selected))
	for _, c := range selected {
		m, err := r.resolve(ctx, text, c)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func selectNonOverlapping(cands []candidate) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.priority != b.priority {
			return a.priority > b.priority
		}
		if a.start != b.start {
			return a.start < b.start
		}
		if la, lb := a.end-a.start, b.end-b.start; la != lb {
			return la > lb
		}
		return a.rank < b.rank
	})

	var kept []candidate
	for _, c := range cands {
		overlaps := false
		for _, k := range kept {
			if c.start < k.end && k.start < c.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

func (r *Resolver) resolve(ctx context.Context, text string, c candidate) (Match, error) {
	m := Match{Text: text[c.start:c.end], Start: c.start, End: c.end}
	if c.scripture != nil {
		m.Kind = KindScripture
		m.Scripture = c.scripture
		m.Resolved = true
		m.Display = c.scripture.String()
		return m, nil
	}

	m.Kind = KindDocument
	m.AliasID = c.alias.ID
	m.DocumentID = c.alias.DocumentID
	n, ok := c.alias.number(m.Text)
	if !ok {
		return m, nil
	}
	m.Number = n
	m.Display = c.alias.Display(n)
	if r.nodes == nil {
		return m, nil
	}
	nodeID, found, err := r.cache.lookup(ctx, r.nodes, c.alias.DocumentID, n)
	if err != nil {
		return Match{}, err
	}
	m.NodeID = nodeID
	m.Resolved = found
	return m, nil
}

// Resolve returns the first citation in text, if any.
func (r *Resolver) Resolve(ctx context.Context, text string) (Match, bool, error) {
	matches, err := r.FindMatches(ctx, text)
	if err != nil || len(matches) == 0 {
		return Match{}, false, err
	}
	return matches[0], true, nil
}
