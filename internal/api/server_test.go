package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/review"
	"github.com/FocuswithJustin/JuniperStudy/internal/config"
	"github.com/FocuswithJustin/JuniperStudy/internal/library"
	"github.com/FocuswithJustin/JuniperStudy/internal/store"
)

const catechismText = "PART ONE: INTRO\n27. The desire for God is written in the human heart.\n28. In many ways men have expressed their quest for God."

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "study.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, library.New(st, library.Options{CacheSize: 64}))
}

// call sends body as JSON and returns the recorder.
func call(t *testing.T, h http.Handler, method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// decode unwraps the response envelope into data.
func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var env struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return env.APIResponse
}

func mustStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d; body = %s", w.Code, want, w.Body.String())
	}
}

// commitCatechism imports and commits the sample text through the API.
func commitCatechism(t *testing.T, h http.Handler) document.Document {
	t.Helper()
	w := call(t, h, http.MethodPost, "/imports", ImportRequest{
		Title:      "Catechism",
		SourceType: "catechism",
		Filename:   "ccc.txt",
		Text:       catechismText,
	})
	mustStatus(t, w, http.StatusCreated)
	var info library.SessionInfo
	decode(t, w, &info)

	w = call(t, h, http.MethodPost, "/sessions/"+info.ID+"/commit", nil)
	mustStatus(t, w, http.StatusCreated)
	var doc document.Document
	decode(t, w, &doc)
	return doc
}

func TestRootAndHealth(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	w := call(t, h, http.MethodGet, "/", nil)
	mustStatus(t, w, http.StatusOK)

	w = call(t, h, http.MethodGet, "/health", nil)
	mustStatus(t, w, http.StatusOK)
	var info HealthInfo
	decode(t, w, &info)
	if info.Status != "healthy" || info.Database != "ok" {
		t.Errorf("health = %+v", info)
	}
	if w.Header().Get("Content-Security-Policy") == "" {
		t.Error("security headers missing")
	}

	w = call(t, h, http.MethodGet, "/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", w.Code)
	}
}

func TestImportReviewCommit(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	w := call(t, h, http.MethodPost, "/imports", ImportRequest{
		SourceType: "catechism",
		Filename:   "Catechism.txt",
		Text:       catechismText,
	})
	mustStatus(t, w, http.StatusCreated)
	var info library.SessionInfo
	decode(t, w, &info)
	if info.Title != "Catechism" {
		t.Errorf("title = %q, want name-derived title", info.Title)
	}
	if info.Stats.Citable != 2 {
		t.Errorf("citable = %d, want 2", info.Stats.Citable)
	}

	w = call(t, h, http.MethodGet, "/sessions", nil)
	mustStatus(t, w, http.StatusOK)
	if env := decode(t, w, nil); env.Meta.Total != 1 {
		t.Errorf("sessions total = %d, want 1", env.Meta.Total)
	}

	first := info.State.Nodes[0].TempID
	w = call(t, h, http.MethodPost, "/sessions/"+info.ID+"/edits", EditRequest{
		Edits: []review.Edit{
			{Op: review.OpEditContent, NodeID: first, Content: "Part One"},
			{Op: review.OpSelect, NodeID: "missing"},
		},
	})
	mustStatus(t, w, http.StatusOK)
	var edited EditResponse
	decode(t, w, &edited)
	if len(edited.Applied) != 2 || !edited.Applied[0] {
		t.Errorf("applied = %v", edited.Applied)
	}
	if edited.Session.State.Nodes[0].Content != "Part One" || !edited.Session.State.IsDirty {
		t.Errorf("session after edit = %+v", edited.Session.State.Nodes[0])
	}

	w = call(t, h, http.MethodPost, "/sessions/"+info.ID+"/edits", EditRequest{
		Edits: []review.Edit{{Op: "explode"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown op status = %d, want 400", w.Code)
	}

	w = call(t, h, http.MethodPost, "/sessions/"+info.ID+"/commit", nil)
	mustStatus(t, w, http.StatusCreated)
	var doc document.Document
	decode(t, w, &doc)
	if doc.TotalCitableNodes() != 2 {
		t.Errorf("citable nodes = %d, want 2", doc.TotalCitableNodes())
	}

	w = call(t, h, http.MethodGet, "/sessions/"+info.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("committed session status = %d, want 404", w.Code)
	}

	w = call(t, h, http.MethodGet, "/documents", nil)
	mustStatus(t, w, http.StatusOK)
	var docs []document.Document
	decode(t, w, &docs)
	if len(docs) != 1 || docs[0].ID != doc.ID {
		t.Errorf("documents = %+v", docs)
	}

	w = call(t, h, http.MethodPatch, "/documents/"+doc.ID, RenameRequest{Title: "CCC"})
	mustStatus(t, w, http.StatusOK)
	var renamed document.Document
	decode(t, w, &renamed)
	if renamed.Title != "CCC" {
		t.Errorf("renamed title = %q", renamed.Title)
	}

	w = call(t, h, http.MethodDelete, "/documents/"+doc.ID, nil)
	mustStatus(t, w, http.StatusNoContent)
	w = call(t, h, http.MethodGet, "/documents/"+doc.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("deleted document status = %d, want 404", w.Code)
	}
}

func TestImportRejects(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"unknown field", map[string]string{"bogus": "x"}, http.StatusBadRequest},
		{"bad source type", ImportRequest{Title: "T", SourceType: "poetry", Text: "1. a"}, http.StatusBadRequest},
		{"bad xml", ImportRequest{Title: "T", Filename: "a.xml", Text: "<a><b></a>"}, http.StatusBadRequest},
		{"no title", ImportRequest{Text: "1. a"}, http.StatusBadRequest},
		{"bad filename", ImportRequest{Title: "T", Filename: "../x.txt", Text: "1. a"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(t, h, http.MethodPost, "/imports", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.want, w.Body.String())
			}
			if env := decode(t, w, nil); env.Success || env.Error == nil {
				t.Errorf("envelope = %+v, want error", env)
			}
		})
	}
}

func TestAliasesAndResolve(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	doc := commitCatechism(t, h)

	w := call(t, h, http.MethodGet, "/aliases/presets", nil)
	mustStatus(t, w, http.StatusOK)

	w = call(t, h, http.MethodPost, "/aliases/preset", PresetAliasRequest{DocumentID: doc.ID, Preset: "ccc"})
	mustStatus(t, w, http.StatusCreated)
	var alias citation.Alias
	decode(t, w, &alias)
	if alias.Prefix != "CCC" {
		t.Errorf("prefix = %q, want CCC", alias.Prefix)
	}

	w = call(t, h, http.MethodPost, "/aliases", citation.AliasInput{DocumentID: doc.ID, Prefix: "ccc"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("duplicate prefix status = %d, want 400", w.Code)
	}

	w = call(t, h, http.MethodGet, "/aliases/prefix-check?prefix=ccc", nil)
	mustStatus(t, w, http.StatusOK)
	var check PrefixCheck
	decode(t, w, &check)
	if !check.InUse {
		t.Error("prefix-check in_use = false")
	}
	w = call(t, h, http.MethodGet, "/aliases/prefix-check?prefix=ccc&exclude="+alias.ID, nil)
	decode(t, w, &check)
	if check.InUse {
		t.Error("prefix-check excluding own alias in_use = true")
	}

	w = call(t, h, http.MethodPost, "/resolve", TextRequest{Text: "See CCC 27 and John 3:16."})
	mustStatus(t, w, http.StatusOK)
	var matches []citation.Match
	decode(t, w, &matches)
	if len(matches) != 2 || !matches[0].Resolved || matches[0].DocumentID != doc.ID {
		t.Fatalf("matches = %+v", matches)
	}
	if matches[1].Kind != citation.KindScripture {
		t.Errorf("second match kind = %s", matches[1].Kind)
	}

	w = call(t, h, http.MethodPost, "/autolink", TextRequest{Fragment: "<p>See CCC 28.</p>"})
	mustStatus(t, w, http.StatusOK)
	var linked struct {
		Fragment    string `json:"fragment"`
		LinkedCount int    `json:"linked_count"`
	}
	decode(t, w, &linked)
	if linked.LinkedCount != 1 || !strings.Contains(linked.Fragment, "citation-link") {
		t.Fatalf("autolink = %+v", linked)
	}

	w = call(t, h, http.MethodPost, "/references", TextRequest{Fragment: linked.Fragment})
	mustStatus(t, w, http.StatusOK)
	var refs []struct {
		Token string `json:"token"`
	}
	decode(t, w, &refs)
	if len(refs) != 1 {
		t.Fatalf("references = %+v", refs)
	}

	w = call(t, h, http.MethodPost, "/unlink", TextRequest{Fragment: linked.Fragment, Token: refs[0].Token})
	mustStatus(t, w, http.StatusOK)
	var unlinked UnlinkResult
	decode(t, w, &unlinked)
	if unlinked.Removed != 1 || unlinked.Fragment != "<p>See CCC 28.</p>" {
		t.Errorf("unlink = %+v", unlinked)
	}

	w = call(t, h, http.MethodDelete, "/aliases/"+alias.ID, nil)
	mustStatus(t, w, http.StatusNoContent)
	w = call(t, h, http.MethodPost, "/resolve", TextRequest{Text: "CCC 27"})
	decode(t, w, &matches)
	if len(matches) != 0 {
		t.Errorf("matches after alias delete = %+v", matches)
	}
}

func TestNotesAnchorsAndTree(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	doc := commitCatechism(t, h)

	w := call(t, h, http.MethodPost, "/folders", FolderRequest{Kind: "notes", Name: "Lent"})
	mustStatus(t, w, http.StatusCreated)
	var folder store.Folder
	decode(t, w, &folder)

	w = call(t, h, http.MethodPost, "/notes", NoteRequest{Title: "Reading", Content: "<p>On the heart.</p>"})
	mustStatus(t, w, http.StatusCreated)
	var note store.Note
	decode(t, w, &note)

	w = call(t, h, http.MethodPost, "/tree/notes/move", MoveRequest{ID: note.ID, ParentID: folder.ID})
	mustStatus(t, w, http.StatusOK)

	w = call(t, h, http.MethodGet, "/tree/notes", nil)
	mustStatus(t, w, http.StatusOK)
	var tree []TreeNode
	decode(t, w, &tree)
	if len(tree) != 1 || tree[0].ID != folder.ID || len(tree[0].Children) != 1 || tree[0].Children[0].ID != note.ID {
		t.Errorf("tree = %+v", tree)
	}

	w = call(t, h, http.MethodGet, "/tree/bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", w.Code)
	}

	c27, _ := doc.FindByNumber(27)
	req := AnchorRequest{DocumentID: doc.ID, NodeID: c27.ID, NoteID: note.ID, Label: "CCC 27"}
	w = call(t, h, http.MethodPost, "/anchors", req)
	mustStatus(t, w, http.StatusCreated)
	var anchor AnchorResult
	decode(t, w, &anchor)
	w = call(t, h, http.MethodPost, "/anchors", req)
	mustStatus(t, w, http.StatusOK)

	w = call(t, h, http.MethodGet, "/documents/"+doc.ID+"/anchors", nil)
	if env := decode(t, w, nil); env.Meta.Total != 1 {
		t.Errorf("document anchors = %d, want 1", env.Meta.Total)
	}

	w = call(t, h, http.MethodDelete, "/notes/"+note.ID, nil)
	mustStatus(t, w, http.StatusNoContent)
	w = call(t, h, http.MethodGet, "/notes/"+note.ID+"/anchors", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("anchors of deleted note status = %d, want 404", w.Code)
	}
	w = call(t, h, http.MethodGet, "/documents/"+doc.ID+"/anchors", nil)
	if env := decode(t, w, nil); env.Meta.Total != 0 {
		t.Errorf("document anchors after note delete = %d, want 0", env.Meta.Total)
	}
}

// TreeNode mirrors library.TreeEntry for decoding.
type TreeNode struct {
	ID       string     `json:"id"`
	Children []TreeNode `json:"children"`
}

func TestExportImportBundle(t *testing.T) {
	h := newTestServer(t, nil).Handler()
	doc := commitCatechism(t, h)
	call(t, h, http.MethodPost, "/aliases/preset", PresetAliasRequest{DocumentID: doc.ID, Preset: "ccc"})

	w := call(t, h, http.MethodGet, "/documents/"+doc.ID+"/export?compress=true", nil)
	mustStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "application/x-xz" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="Catechism.json.xz"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	req := httptest.NewRequest(http.MethodPost, "/documents/import-bundle", bytes.NewReader(w.Body.Bytes()))
	req.Header.Set("Content-Type", "application/x-xz")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	mustStatus(t, rec, http.StatusCreated)
	var report library.ImportReport
	decode(t, rec, &report)
	if report.Document.ID == doc.ID {
		t.Error("imported bundle reused the document id")
	}
	if len(report.Skipped) != 1 {
		t.Errorf("skipped = %v, want the taken CCC prefix", report.Skipped)
	}

	req = httptest.NewRequest(http.MethodPost, "/documents/import-bundle", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("text/plain bundle status = %d, want 415", rec.Code)
	}
}

func TestRespondErr(t *testing.T) {
	h := newTestServer(t, nil).Handler()

	tests := []struct {
		method, path string
		body         interface{}
		want         int
	}{
		{http.MethodGet, "/documents/missing", nil, http.StatusNotFound},
		{http.MethodDelete, "/sessions/missing", nil, http.StatusNotFound},
		{http.MethodPost, "/navigate", TextRequest{Token: "nonsense"}, http.StatusBadRequest},
		{http.MethodPost, "/navigate", TextRequest{Token: "doc:missing"}, http.StatusNotFound},
		{http.MethodPost, "/navigate", TextRequest{Token: "bible:RSVCE/John/3/16"}, http.StatusAccepted},
		{http.MethodGet, "/aliases/prefix-check", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := call(t, h, tt.method, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
