// Package autolink rewrites rich-text note fragments so citations become
// links, and back.
//
// Fragments are parsed into an HTML node tree, never a live document. Text
// already inside a resolved citation link is skipped, so linking is
// idempotent. Unresolved links are retried and replaced once their target
// paragraph exists.
package autolink

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

// Link markup.
const (
	LinkClass       = "citation-link"
	UnresolvedClass = "citation-unresolved"
	TokenAttr       = "data-citation"
)

// DefaultTranslation tags scripture links whose match carries none.
const DefaultTranslation = "RSVCE"

// Finder returns ordered, non-overlapping citations in a text run.
type Finder interface {
	FindMatches(ctx context.Context, text string) ([]citation.Match, error)
}

// Result is the output of AutoLink.
type Result struct {
	Fragment    string `json:"fragment"`
	LinkedCount int    `json:"linked_count"`
}

// Linker links citations found by a Finder.
type Linker struct {
	finder Finder
}

// New returns a linker over finder, usually a *citation.Resolver.
func New(finder Finder) *Linker {
	return &Linker{finder: finder}
}

// AutoLink wraps every citation in fragment's text in a link element. The
// fragment is returned byte-for-byte unchanged when nothing was linked.
func (l *Linker) AutoLink(ctx context.Context, fragment string) (Result, error) {
	root, err := parseFragment(fragment)
	if err != nil {
		return Result{}, err
	}

	var runs, unresolved []*html.Node
	walk(root, func(n *html.Node) bool {
		if isUnresolvedLink(n) {
			unresolved = append(unresolved, n)
			return false
		}
		if n.Type == html.ElementNode && skipSubtree(n) {
			return false
		}
		if n.Type == html.TextNode && strings.TrimSpace(n.Data) != "" {
			runs = append(runs, n)
		}
		return true
	})

	linked := 0
	for _, a := range unresolved {
		ok, err := l.retry(ctx, a)
		if err != nil {
			return Result{}, err
		}
		if ok {
			linked++
		}
	}
	for _, run := range runs {
		matches, err := l.finder.FindMatches(ctx, run.Data)
		if err != nil {
			return Result{}, err
		}
		if len(matches) == 0 {
			continue
		}
		rewriteRun(run, matches)
		linked += len(matches)
	}

	if linked == 0 {
		return Result{Fragment: fragment}, nil
	}
	out, err := render(root)
	if err != nil {
		return Result{}, err
	}
	return Result{Fragment: out, LinkedCount: linked}, nil
}

// retry replaces an unresolved link whose whole text now resolves.
func (l *Linker) retry(ctx context.Context, a *html.Node) (bool, error) {
	text := textContent(a)
	matches, err := l.finder.FindMatches(ctx, text)
	if err != nil {
		return false, err
	}
	if len(matches) != 1 {
		return false, nil
	}
	m := matches[0]
	if !m.Resolved || m.Start != 0 || m.End != len(text) {
		return false, nil
	}
	a.Parent.InsertBefore(linkNode(m), a)
	a.Parent.RemoveChild(a)
	return true, nil
}

func isUnresolvedLink(n *html.Node) bool {
	if !isCitationLink(n) {
		return false
	}
	class, _ := attr(n, "class")
	for _, c := range strings.Fields(class) {
		if c == UnresolvedClass {
			return true
		}
	}
	return false
}

// skipSubtree reports whether text under n must be left alone.
func skipSubtree(n *html.Node) bool {
	if hasAttr(n, TokenAttr) {
		return true
	}
	switch n.DataAtom {
	case atom.A, atom.Script, atom.Style, atom.Code, atom.Pre:
		return true
	}
	return false
}

// rewriteRun replaces a text node with text interleaved with links.
func rewriteRun(run *html.Node, matches []citation.Match) {
	parent := run.Parent
	text := run.Data
	pos := 0
	for _, m := range matches {
		if m.Start < pos || m.End > len(text) {
			continue
		}
		if m.Start > pos {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[pos:m.Start]}, run)
		}
		parent.InsertBefore(linkNode(m), run)
		pos = m.End
	}
	if pos < len(text) {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: text[pos:]}, run)
	}
	parent.RemoveChild(run)
}

// ReferenceFor returns the reference a match links to.
func ReferenceFor(m citation.Match) Reference {
	if m.Kind == citation.KindScripture && m.Scripture != nil {
		ref := *m.Scripture
		if ref.Translation == "" {
			ref.Translation = DefaultTranslation
		}
		return Reference{Kind: RefScripture, Scripture: &ref}
	}
	ref := Reference{Kind: RefDocument, DocumentID: m.DocumentID, NodeID: m.NodeID}
	if m.NodeID == "" {
		ref.Number = m.Number
	}
	return ref
}

func linkNode(m citation.Match) *html.Node {
	class := LinkClass
	attrs := []html.Attribute{}
	if !m.Resolved {
		class += " " + UnresolvedClass
	}
	attrs = append(attrs,
		html.Attribute{Key: "class", Val: class},
		html.Attribute{Key: TokenAttr, Val: ReferenceFor(m).Token()},
		html.Attribute{Key: "href", Val: "#"},
	)
	if !m.Resolved {
		attrs = append(attrs, html.Attribute{Key: "title", Val: unresolvedTitle(m)})
	}
	a := &html.Node{Type: html.ElementNode, Data: "a", DataAtom: atom.A, Attr: attrs}
	a.AppendChild(&html.Node{Type: html.TextNode, Data: m.Text})
	return a
}

func unresolvedTitle(m citation.Match) string {
	if m.Display != "" {
		return m.Display + " was not found in the target document"
	}
	return "Citation could not be resolved"
}

// Unlink replaces citation links with their plain text. An empty token
// removes every citation link. It returns the new fragment and the number of
// links removed.
func Unlink(fragment, token string) (string, int, error) {
	root, err := parseFragment(fragment)
	if err != nil {
		return "", 0, err
	}
	var links []*html.Node
	walk(root, func(n *html.Node) bool {
		if isCitationLink(n) {
			if v, _ := attr(n, TokenAttr); token == "" || v == token {
				links = append(links, n)
			}
			return false
		}
		return true
	})
	if len(links) == 0 {
		return fragment, 0, nil
	}
	for _, a := range links {
		parent := a.Parent
		for c := a.FirstChild; c != nil; {
			next := c.NextSibling
			a.RemoveChild(c)
			parent.InsertBefore(c, a)
			c = next
		}
		parent.RemoveChild(a)
	}
	out, err := render(root)
	if err != nil {
		return "", 0, err
	}
	return out, len(links), nil
}

// LinkRef is one citation link found in a fragment.
type LinkRef struct {
	Token     string    `json:"token"`
	Text      string    `json:"text"`
	Reference Reference `json:"reference"`
}

// ExtractReferences decodes the token of every citation link in fragment, in
// document order. Links whose token does not parse are skipped.
func ExtractReferences(fragment string) ([]LinkRef, error) {
	root, err := parseFragment(fragment)
	if err != nil {
		return nil, err
	}
	var out []LinkRef
	walk(root, func(n *html.Node) bool {
		if !isCitationLink(n) {
			return true
		}
		tok, _ := attr(n, TokenAttr)
		ref, err := ParseToken(tok)
		if err == nil {
			out = append(out, LinkRef{Token: tok, Text: textContent(n), Reference: ref})
		}
		return false
	})
	return out, nil
}

func isCitationLink(n *html.Node) bool {
	return n.Type == html.ElementNode && hasAttr(n, TokenAttr)
}

func parseFragment(fragment string) (*html.Node, error) {
	container := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), container)
	if err != nil {
		return nil, errors.NewParse("html", "", err.Error())
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	return root, nil
}

func render(root *html.Node) (string, error) {
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", errors.Wrap(err, "render fragment")
		}
	}
	return buf.String(), nil
}

// walk visits n's descendants depth first. Returning false from visit skips
// the node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if visit(c) {
			walk(c, visit)
		}
		c = next
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attr(n, key)
	return ok
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
