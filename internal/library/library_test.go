package library

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/core/review"
	"github.com/FocuswithJustin/JuniperStudy/internal/ingest"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
	"github.com/FocuswithJustin/JuniperStudy/internal/store"
)

const catechismText = "PART ONE: INTRO\n27. The desire for God is written in the human heart.\n28. In many ways men have expressed their quest for God."

func newLibrary(t *testing.T) *Library {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "study.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st, Options{CacheSize: 64})
}

func as(user string) context.Context {
	return logging.WithUserID(context.Background(), user)
}

func source(t *testing.T, text string) ingest.Source {
	t.Helper()
	src, err := ingest.ReadBytes("ccc.txt", []byte(text))
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func importAndCommit(t *testing.T, l *Library, ctx context.Context) *document.Document {
	t.Helper()
	info, err := l.Import(ctx, ImportRequest{SourceType: document.SourceCatechism, Source: source(t, catechismText)})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	doc, err := l.Commit(ctx, info.ID)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	return doc
}

func TestImportReviewCommit(t *testing.T) {
	l := newLibrary(t)
	ctx := as("alice")

	info, err := l.Import(ctx, ImportRequest{SourceType: document.SourceCatechism, Source: source(t, catechismText)})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if info.Title != "ccc" || info.Stats.Citable != 2 || len(info.State.Nodes) != 3 {
		t.Fatalf("Import() = %+v", info)
	}
	if got := l.Sessions(ctx); len(got) != 1 || got[0].ID != info.ID {
		t.Errorf("Sessions() = %v", got)
	}
	if got := l.Sessions(as("bob")); len(got) != 0 {
		t.Errorf("bob sees %d sessions", len(got))
	}
	if _, err := l.Session(as("bob"), info.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Session() as bob = %v, want not found", err)
	}

	heading := info.State.Nodes[0].TempID
	applied, after, err := l.Edit(ctx, info.ID,
		review.Edit{Op: review.OpMergeNext, NodeID: heading},
		review.Edit{Op: review.OpReclassify, NodeID: heading, Type: review.TypeStructural, Level: document.LevelBook},
	)
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if applied[0] || !applied[1] {
		t.Errorf("applied = %v, want [false true]", applied)
	}
	if !after.State.IsDirty || after.State.Nodes[0].Level != document.LevelBook {
		t.Errorf("state after edit = %+v", after.State)
	}

	doc, err := l.Commit(ctx, info.ID)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if doc.TotalCitableNodes() != 2 {
		t.Errorf("TotalCitableNodes() = %d, want 2", doc.TotalCitableNodes())
	}
	if c, ok := doc.FindByNumber(2); !ok || !strings.HasPrefix(c.Content, "In many ways") {
		t.Errorf("FindByNumber(2) = %v, %v; reclassify renumbers", c, ok)
	}
	if _, err := l.Session(ctx, info.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("session still open after commit: %v", err)
	}

	docs, err := l.Documents(ctx)
	if err != nil || len(docs) != 1 || docs[0].ID != doc.ID {
		t.Errorf("Documents() = %v, %v", docs, err)
	}
	if docs, _ := l.Documents(context.Background()); len(docs) != 0 {
		t.Errorf("anonymous Documents() = %v, want empty", docs)
	}
	if _, err := l.Document(as("bob"), doc.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Document() as bob = %v, want not found", err)
	}

	again, err := l.Import(ctx, ImportRequest{SourceType: document.SourceCatechism, Source: source(t, catechismText)})
	if err != nil || again.DuplicateOf != doc.ID {
		t.Errorf("re-import DuplicateOf = %q, %v; want %q", again.DuplicateOf, err, doc.ID)
	}
	if err := l.Discard(ctx, again.ID); err != nil {
		t.Errorf("Discard() = %v", err)
	}
}

func TestImportRejects(t *testing.T) {
	l := newLibrary(t)
	src := source(t, catechismText)

	if _, err := l.Import(context.Background(), ImportRequest{Source: src}); !errors.Is(err, errors.ErrUnauthorized) {
		t.Errorf("anonymous Import() = %v, want unauthorized", err)
	}
	if _, err := l.Import(as("alice"), ImportRequest{SourceType: "sermon", Source: src}); !errors.IsValidation(err) {
		t.Errorf("Import(bad source type) = %v, want validation", err)
	}
	src.Title = ""
	if _, err := l.Import(as("alice"), ImportRequest{Source: src}); !errors.IsValidation(err) {
		t.Errorf("Import(no title) = %v, want validation", err)
	}
}

func TestCommitFailureKeepsSession(t *testing.T) {
	l := newLibrary(t)
	ctx := as("alice")
	info, err := l.Import(ctx, ImportRequest{SourceType: document.SourceCatechism, Source: source(t, catechismText)})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := l.Edit(ctx, info.ID, review.Edit{Op: review.OpEditContent, NodeID: info.State.Nodes[1].TempID, Content: "  "}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Commit(ctx, info.ID); !errors.IsValidation(err) {
		t.Fatalf("Commit() = %v, want validation error", err)
	}
	if _, err := l.Session(ctx, info.ID); err != nil {
		t.Errorf("session closed after failed commit: %v", err)
	}
}

func TestAliasesResolveAndNotes(t *testing.T) {
	l := newLibrary(t)
	ctx := as("alice")
	doc := importAndCommit(t, l, ctx)

	if _, err := l.CreateAliasFromPreset(as("bob"), doc.ID, "ccc", ""); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("bob CreateAliasFromPreset() = %v, want not found", err)
	}
	a, err := l.CreateAliasFromPreset(ctx, doc.ID, "ccc", "")
	if err != nil {
		t.Fatalf("CreateAliasFromPreset() error = %v", err)
	}
	if inUse, _ := l.IsPrefixInUse(ctx, "ccc", ""); !inUse {
		t.Error("IsPrefixInUse(ccc) = false")
	}

	matches, err := l.Resolve(ctx, "See CCC 27 and CCC 99, also John 3:16.")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 3 {
		t.Fatalf("Resolve() = %d matches, want 3", len(matches))
	}
	c27, _ := doc.FindByNumber(27)
	if !matches[0].Resolved || matches[0].NodeID != c27.ID {
		t.Errorf("CCC 27 = %+v", matches[0])
	}
	if matches[1].Resolved {
		t.Errorf("CCC 99 resolved: %+v", matches[1])
	}
	if matches[2].Kind != citation.KindScripture {
		t.Errorf("third match kind = %s, want scripture", matches[2].Kind)
	}

	note, err := l.CreateNote(ctx, nil, "Reading", "<p>Compare CCC 28.</p>")
	if err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	if !strings.Contains(note.Content, `class="citation-link"`) {
		t.Errorf("note content not linked: %s", note.Content)
	}
	saved, linked, err := l.SaveNote(ctx, note.ID, "Reading", note.Content+"<p>CCC 27</p>")
	if err != nil || linked != 1 {
		t.Errorf("SaveNote() linked = %d, %v; want 1", linked, err)
	}
	if strings.Count(saved.Content, `class="citation-link"`) != 2 {
		t.Errorf("saved content = %s", saved.Content)
	}

	id, created, err := l.CreateAnchor(ctx, doc.ID, c27.ID, note.ID, "CCC 27")
	if err != nil || !created {
		t.Fatalf("CreateAnchor() = %q, %v, %v", id, created, err)
	}
	if _, created, _ := l.CreateAnchor(ctx, doc.ID, c27.ID, note.ID, "CCC 27"); created {
		t.Error("duplicate anchor created")
	}
	if _, _, err := l.CreateAnchor(ctx, doc.ID, "no-such-node", note.ID, ""); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("CreateAnchor(missing node) = %v, want not found", err)
	}
	if err := l.RemoveAnchor(as("bob"), id); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("bob RemoveAnchor() = %v, want not found", err)
	}
	if list, _ := l.NoteAnchors(ctx, note.ID); len(list) != 1 {
		t.Errorf("NoteAnchors() = %v", list)
	}
	if err := l.RemoveAnchor(ctx, id); err != nil {
		t.Errorf("RemoveAnchor() = %v", err)
	}
	if err := l.RemoveAnchor(ctx, id); err != nil {
		t.Errorf("second RemoveAnchor() = %v, want nil", err)
	}

	if err := l.DeleteAlias(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	matches, _ = l.Resolve(ctx, "CCC 27")
	if len(matches) != 0 {
		t.Errorf("Resolve() after alias delete = %v", matches)
	}
}

func TestCitationsStayWithOwner(t *testing.T) {
	l := newLibrary(t)
	alice, bob := as("alice"), as("bob")
	aliceDoc := importAndCommit(t, l, alice)
	bobDoc := importAndCommit(t, l, bob)
	if _, err := l.CreateAliasFromPreset(alice, aliceDoc.ID, "ccc", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := l.CreateAliasFromPreset(bob, bobDoc.ID, "ccc", "Catechism"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		ctx  context.Context
		text string
		want string
	}{
		{"alice own alias", alice, "CCC 27", aliceDoc.ID},
		{"alice cannot use bob alias", alice, "Catechism 27", ""},
		{"bob cannot use alice alias", bob, "CCC 27", ""},
		{"bob own alias", bob, "Catechism 27", bobDoc.ID},
		{"no user", context.Background(), "CCC 27", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := l.Resolve(tt.ctx, tt.text)
			if err != nil {
				t.Fatal(err)
			}
			if tt.want == "" {
				if len(matches) != 0 {
					t.Errorf("Resolve(%q) = %+v, want none", tt.text, matches)
				}
				return
			}
			if len(matches) != 1 || matches[0].DocumentID != tt.want || !matches[0].Resolved {
				t.Errorf("Resolve(%q) = %+v, want document %s", tt.text, matches, tt.want)
			}
		})
	}

	fragment := "<p>CCC 27 and Catechism 27</p>"
	res, err := l.AutoLink(bob, fragment)
	if err != nil {
		t.Fatal(err)
	}
	if res.LinkedCount != 1 || strings.Contains(res.Fragment, aliceDoc.ID) || !strings.Contains(res.Fragment, bobDoc.ID) {
		t.Errorf("bob AutoLink() = %d %s", res.LinkedCount, res.Fragment)
	}

	if got, err := l.Aliases(bob, ""); err != nil || len(got) != 1 || got[0].DocumentID != bobDoc.ID {
		t.Errorf("bob Aliases() = %+v, %v", got, err)
	}
	if _, err := l.Aliases(bob, aliceDoc.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("bob Aliases(alice doc) = %v, want not found", err)
	}
	if got, _ := l.Aliases(alice, aliceDoc.ID); len(got) != 1 {
		t.Errorf("alice Aliases(own doc) = %+v", got)
	}
	if inUse, _ := l.IsPrefixInUse(bob, "ccc", ""); !inUse {
		t.Error("prefixes must stay unique across users")
	}
}

func TestTreeMove(t *testing.T) {
	l := newLibrary(t)
	ctx := as("alice")

	lent, err := l.CreateFolder(ctx, store.FolderNotes, "Lent", nil)
	if err != nil {
		t.Fatal(err)
	}
	week, err := l.CreateFolder(ctx, store.FolderNotes, "Week 1", &lent.ID)
	if err != nil {
		t.Fatal(err)
	}
	n1, _ := l.CreateNote(ctx, nil, "first", "")
	n2, _ := l.CreateNote(ctx, nil, "second", "")

	if _, err := l.Move(ctx, store.FolderNotes, lent.ID, week.ID, 0); !errors.IsValidation(err) {
		t.Errorf("Move(folder into child) = %v, want validation", err)
	}
	if _, err := l.Move(ctx, store.FolderNotes, n1.ID, n2.ID, 0); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Move(into note) = %v, want not found", err)
	}
	if _, err := l.Move(ctx, store.FolderNotes, n2.ID, "", 0); err != nil {
		t.Fatalf("Move(n2 to front) = %v", err)
	}
	if _, err := l.Move(ctx, store.FolderNotes, n1.ID, week.ID, 0); err != nil {
		t.Fatalf("Move(n1 into week) = %v", err)
	}

	tree, err := l.Tree(ctx, store.FolderNotes)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range tree {
		names = append(names, e.Name)
	}
	if strings.Join(names, ",") != "second,Lent" {
		t.Fatalf("roots = %v, want [second Lent]", names)
	}
	inner := tree[1].Children
	if len(inner) != 1 || inner[0].Name != "Week 1" || len(inner[0].Children) != 1 || inner[0].Children[0].ID != n1.ID {
		t.Errorf("Lent subtree = %+v", inner)
	}
	if other, _ := l.Tree(as("bob"), store.FolderNotes); len(other) != 0 {
		t.Errorf("bob tree = %v", other)
	}

	if err := l.DeleteFolder(as("bob"), lent.ID); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("bob DeleteFolder() = %v", err)
	}
	if err := l.RenameFolder(ctx, lent.ID, "Easter"); err != nil {
		t.Fatal(err)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		l := newLibrary(t)
		ctx := as("alice")
		doc := importAndCommit(t, l, ctx)
		if _, err := l.CreateAlias(ctx, citation.AliasInput{DocumentID: doc.ID, Prefix: "CCC"}); err != nil {
			t.Fatal(err)
		}
		if _, err := l.CreateAlias(ctx, citation.AliasInput{DocumentID: doc.ID, Prefix: "Catechism"}); err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if err := l.Export(ctx, &buf, doc.ID, compress); err != nil {
			t.Fatalf("Export(compress=%v) error = %v", compress, err)
		}
		if compress != bytes.HasPrefix(buf.Bytes(), xzMagic) {
			t.Errorf("compress=%v but xz magic = %v", compress, !compress)
		}

		report, err := l.ImportBundle(as("bob"), &buf)
		if err != nil {
			t.Fatalf("ImportBundle() error = %v", err)
		}
		if report.Document.ID == doc.ID || report.Document.OwnerID != "bob" {
			t.Errorf("imported document = %s owned by %s", report.Document.ID, report.Document.OwnerID)
		}
		if report.Document.TotalCitableNodes() != 2 {
			t.Errorf("imported citable nodes = %d", report.Document.TotalCitableNodes())
		}
		if len(report.Aliases) != 0 || len(report.Skipped) != 2 {
			t.Errorf("aliases = %v, skipped = %v; want both skipped", report.Aliases, report.Skipped)
		}
	}
}

func TestImportBundleRejects(t *testing.T) {
	l := newLibrary(t)
	ctx := as("alice")
	tests := []string{
		"not json",
		`{"version": 99, "document": {"id": "x"}}`,
		`{"version": 1}`,
	}
	for _, in := range tests {
		if _, err := l.ImportBundle(ctx, strings.NewReader(in)); err == nil {
			t.Errorf("ImportBundle(%q) succeeded", in)
		}
	}
}
