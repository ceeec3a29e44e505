package autolink

import (
	"context"
	"strings"
	"testing"

	"github.com/FocuswithJustin/JuniperStudy/core/citation"
)

type nodeTable map[string]map[int]string

func (t nodeTable) CitableNodeID(_ context.Context, documentID string, number int) (string, bool, error) {
	id, ok := t[documentID][number]
	return id, ok, nil
}

func newLinker(t *testing.T) *Linker {
	t.Helper()
	cache := citation.NewCache(0)
	store := citation.NewMemoryStore()
	reg := citation.NewRegistry(store, cache)
	if _, err := reg.CreateFromPreset(context.Background(), "doc-ccc", "ccc", ""); err != nil {
		t.Fatal(err)
	}
	nodes := nodeTable{"doc-ccc": {17: "n17", 27: "n27"}}
	res := citation.NewResolver(store, nodes, cache, citation.WithScripture(citation.NewScriptureMatcher("RSVCE")))
	return New(res)
}

func TestAutoLink(t *testing.T) {
	l := newLinker(t)
	in := `<p>As CCC 27 says, and John 3:16 too.</p>`
	res, err := l.AutoLink(context.Background(), in)
	if err != nil {
		t.Fatalf("AutoLink() error = %v", err)
	}
	if res.LinkedCount != 2 {
		t.Errorf("LinkedCount = %d, want 2", res.LinkedCount)
	}
	for _, want := range []string{
		`<a class="citation-link" data-citation="doc:doc-ccc#n27" href="#">CCC 27</a>`,
		`<a class="citation-link" data-citation="bible:RSVCE/John/3/16" href="#">John 3:16</a>`,
		`<p>As `,
		` says, and `,
		` too.</p>`,
	} {
		if !strings.Contains(res.Fragment, want) {
			t.Errorf("fragment %q missing %q", res.Fragment, want)
		}
	}
}

func TestAutoLink_Unresolved(t *testing.T) {
	l := newLinker(t)
	res, err := l.AutoLink(context.Background(), `CCC 2000`)
	if err != nil {
		t.Fatal(err)
	}
	if res.LinkedCount != 1 {
		t.Fatalf("LinkedCount = %d", res.LinkedCount)
	}
	if !strings.Contains(res.Fragment, `class="citation-link citation-unresolved"`) ||
		!strings.Contains(res.Fragment, `data-citation="doc:doc-ccc?n=2000"`) ||
		!strings.Contains(res.Fragment, `title="CCC 2000 was not found in the target document"`) {
		t.Errorf("fragment = %q", res.Fragment)
	}
}

func TestAutoLink_Idempotent(t *testing.T) {
	l := newLinker(t)
	ctx := context.Background()
	first, err := l.AutoLink(ctx, `<p>CCC 17 and <em>CCC 27</em></p>`)
	if err != nil {
		t.Fatal(err)
	}
	if first.LinkedCount != 2 {
		t.Fatalf("first LinkedCount = %d", first.LinkedCount)
	}
	second, err := l.AutoLink(ctx, first.Fragment)
	if err != nil {
		t.Fatal(err)
	}
	if second.LinkedCount != 0 || second.Fragment != first.Fragment {
		t.Errorf("second pass linked %d, fragment changed: %q", second.LinkedCount, second.Fragment)
	}
}

func TestAutoLink_UpgradesUnresolved(t *testing.T) {
	ctx := context.Background()
	cache := citation.NewCache(0)
	store := citation.NewMemoryStore()
	if _, err := citation.NewRegistry(store, cache).CreateFromPreset(ctx, "doc-ccc", "ccc", ""); err != nil {
		t.Fatal(err)
	}
	nodes := nodeTable{"doc-ccc": {17: "n17"}}
	l := New(citation.NewResolver(store, nodes, cache))

	first, err := l.AutoLink(ctx, `<p>CCC 17, CCC 2000 and CCC 3000</p>`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(first.Fragment, UnresolvedClass) != 2 {
		t.Fatalf("first pass = %q", first.Fragment)
	}
	if again, _ := l.AutoLink(ctx, first.Fragment); again.LinkedCount != 0 || again.Fragment != first.Fragment {
		t.Errorf("unchanged targets relinked: %+v", again)
	}

	nodes["doc-ccc"][2000] = "n2000"
	cache.Invalidate()
	second, err := l.AutoLink(ctx, first.Fragment)
	if err != nil {
		t.Fatal(err)
	}
	if second.LinkedCount != 1 {
		t.Errorf("LinkedCount = %d, want 1", second.LinkedCount)
	}
	for _, want := range []string{
		`<a class="citation-link" data-citation="doc:doc-ccc#n2000" href="#">CCC 2000</a>`,
		`data-citation="doc:doc-ccc?n=3000"`,
		`data-citation="doc:doc-ccc#n17"`,
	} {
		if !strings.Contains(second.Fragment, want) {
			t.Errorf("fragment %q missing %q", second.Fragment, want)
		}
	}
	if strings.Count(second.Fragment, UnresolvedClass) != 1 {
		t.Errorf("fragment = %q, want one unresolved link", second.Fragment)
	}
}

func TestAutoLink_ScriptureRange(t *testing.T) {
	l := newLinker(t)
	res, err := l.AutoLink(context.Background(), `Read 1 Cor 13:4-7.`)
	if err != nil {
		t.Fatal(err)
	}
	refs, _ := ExtractReferences(res.Fragment)
	if len(refs) != 1 {
		t.Fatalf("refs = %+v in %q", refs, res.Fragment)
	}
	if s := refs[0].Reference.Scripture; s == nil || s.Verse != 4 || s.VerseEnd != 7 {
		t.Errorf("scripture = %+v, token %q", s, refs[0].Token)
	}
}

func TestAutoLink_SkipsCodeAndPlainLinks(t *testing.T) {
	l := newLinker(t)
	in := `<code>CCC 17</code><a href="/x">CCC 27</a>`
	res, err := l.AutoLink(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if res.LinkedCount != 0 || res.Fragment != in {
		t.Errorf("AutoLink() = %+v", res)
	}
}

func TestUnlink(t *testing.T) {
	l := newLinker(t)
	ctx := context.Background()
	linked, _ := l.AutoLink(ctx, `<p>CCC 17 and CCC 27</p>`)

	out, n, err := Unlink(linked.Fragment, "doc:doc-ccc#n17")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || strings.Contains(out, "n17") || !strings.Contains(out, "n27") {
		t.Errorf("Unlink(token) = %q, %d", out, n)
	}

	out, n, _ = Unlink(linked.Fragment, "")
	if n != 2 || out != `<p>CCC 17 and CCC 27</p>` {
		t.Errorf("Unlink(all) = %q, %d", out, n)
	}

	unresolved, _ := l.AutoLink(ctx, `<p>CCC 2000 and CCC 3000</p>`)
	out, n, _ = Unlink(unresolved.Fragment, "doc:doc-ccc?n=2000")
	if n != 1 || !strings.Contains(out, "doc:doc-ccc?n=3000") || strings.Contains(out, "n=2000") {
		t.Errorf("Unlink(unresolved token) = %q, %d", out, n)
	}

	out, n, _ = Unlink(`<p>plain</p>`, "")
	if n != 0 || out != `<p>plain</p>` {
		t.Errorf("Unlink(no links) = %q, %d", out, n)
	}
}

func TestExtractReferences(t *testing.T) {
	l := newLinker(t)
	linked, _ := l.AutoLink(context.Background(), `CCC 17, Rom 8:28`)
	refs, err := ExtractReferences(linked.Fragment + `<a data-citation="garbage">x</a>`)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2: %+v", len(refs), refs)
	}
	if refs[0].Reference.Kind != RefDocument || refs[0].Reference.NodeID != "n17" || refs[0].Text != "CCC 17" {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if s := refs[1].Reference.Scripture; refs[1].Reference.Kind != RefScripture || s == nil || s.Book != "Rom" || s.Verse != 28 {
		t.Errorf("refs[1] = %+v", refs[1])
	}
}

func TestTokenRoundTrip(t *testing.T) {
	refs := []Reference{
		{Kind: RefDocument, DocumentID: "3f2b8c1e-0000-4000-8000-000000000001"},
		{Kind: RefDocument, DocumentID: "doc-1", NodeID: "node-9"},
		{Kind: RefDocument, DocumentID: "odd/id#with:chars", NodeID: "n 1"},
		{Kind: RefDocument, DocumentID: "doc:doc"},
		{Kind: RefDocument, DocumentID: "doc-ccc", Number: 2000},
		{Kind: RefDocument, DocumentID: "why?n=1", Number: 5},
		{Kind: RefScripture, Scripture: &citation.ScriptureRef{Translation: "RSVCE", Book: "1Cor", Chapter: 13, Verse: 4}},
		{Kind: RefScripture, Scripture: &citation.ScriptureRef{Translation: "NABRE", Book: "Ps", Chapter: 119, Verse: 105}},
		{Kind: RefScripture, Scripture: &citation.ScriptureRef{Translation: "RSVCE", Book: "1Cor", Chapter: 13, Verse: 4, VerseEnd: 7}},
	}
	for _, want := range refs {
		tok := want.Token()
		got, err := ParseToken(tok)
		if err != nil {
			t.Errorf("ParseToken(%q) error = %v", tok, err)
			continue
		}
		if got.Kind != want.Kind || got.DocumentID != want.DocumentID || got.NodeID != want.NodeID || got.Number != want.Number {
			t.Errorf("ParseToken(%q) = %+v, want %+v", tok, got, want)
		}
		if want.Scripture != nil && (got.Scripture == nil || *got.Scripture != *want.Scripture) {
			t.Errorf("ParseToken(%q) scripture = %+v, want %+v", tok, got.Scripture, want.Scripture)
		}
	}
}

func TestParseTokenRejects(t *testing.T) {
	for _, tok := range []string{"", "doc:", "bible:RSVCE/John/3", "bible:RSVCE/John/x/1", "http://x", "doc:a#b#c",
		"doc:a?n=0", "doc:a?n=x", "doc:a#b?n=1", "bible:RSVCE/John/3/7-4", "bible:RSVCE/John/3/4-x"} {
		if _, err := ParseToken(tok); err == nil {
			t.Errorf("ParseToken(%q) succeeded", tok)
		}
	}
}
