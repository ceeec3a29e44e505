package library

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/internal/logging"
)

// BundleVersion is the export format version written by Export.
const BundleVersion = 1

// Bundle is a portable copy of one document and its aliases.
type Bundle struct {
	Version    int                `json:"version"`
	ExportedAt time.Time          `json:"exported_at"`
	Document   *document.Document `json:"document"`
	Aliases    []citation.Alias   `json:"aliases"`
}

// ImportReport describes the result of ImportBundle.
type ImportReport struct {
	Document *document.Document `json:"document"`
	Aliases  []citation.Alias   `json:"aliases"`
	// Skipped lists alias prefixes that were already taken.
	Skipped []string `json:"skipped,omitempty"`
}

// Export writes one of the user's documents and its aliases as JSON,
// xz-compressed when compress is set.
func (l *Library) Export(ctx context.Context, w io.Writer, documentID string, compress bool) error {
	doc, err := l.Document(ctx, documentID)
	if err != nil {
		return err
	}
	aliases, err := l.registry.ListForDocument(ctx, documentID)
	if err != nil {
		return err
	}
	b := Bundle{
		Version:    BundleVersion,
		ExportedAt: l.now().UTC(),
		Document:   doc,
		Aliases:    aliases,
	}

	if !compress {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	xw, err := xz.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "create xz writer")
	}
	if err := json.NewEncoder(xw).Encode(b); err != nil {
		xw.Close()
		return err
	}
	return xw.Close()
}

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// ImportBundle stores a bundle written by Export as a new document of the
// user in ctx. Document and node ids are regenerated; aliases whose prefix
// is already taken are skipped.
func (l *Library) ImportBundle(ctx context.Context, r io.Reader) (ImportReport, error) {
	user, err := requireOwner(ctx)
	if err != nil {
		return ImportReport{}, err
	}
	br := bufio.NewReader(r)
	var src io.Reader = br
	if head, _ := br.Peek(len(xzMagic)); bytes.Equal(head, xzMagic) {
		xr, err := xz.NewReader(br)
		if err != nil {
			return ImportReport{}, &errors.ParseError{Format: "xz", Message: "bundle", Err: err}
		}
		src = xr
	}

	var b Bundle
	if err := json.NewDecoder(src).Decode(&b); err != nil {
		return ImportReport{}, &errors.ParseError{Format: "JSON", Message: "bundle", Err: err}
	}
	if b.Version != BundleVersion {
		return ImportReport{}, errors.NewUnsupported("bundle version", fmt.Sprintf("got %d, want %d", b.Version, BundleVersion))
	}
	if b.Document == nil {
		return ImportReport{}, errors.NewValidation("document", "bundle has no document")
	}

	doc := b.Document
	oldID := doc.ID
	doc.ID, doc.OwnerID, doc.FolderID = l.newID(), user, nil
	for _, n := range doc.Nodes {
		switch v := n.(type) {
		case *document.Structural:
			v.ID = l.newID()
		case *document.Citable:
			v.ID = l.newID()
		}
	}
	if doc.Order, err = l.appendOrder(ctx, user, nil); err != nil {
		return ImportReport{}, err
	}
	if err := l.store.CommitDocument(ctx, doc); err != nil {
		return ImportReport{}, err
	}
	l.resolver.Cache().Invalidate()

	report := ImportReport{Document: doc, Aliases: []citation.Alias{}}
	for _, a := range b.Aliases {
		created, err := l.registry.Create(ctx, citation.AliasInput{
			DocumentID:      doc.ID,
			Prefix:          a.Prefix,
			Pattern:         a.Pattern,
			NumberExtractor: a.NumberExtractor,
			DisplayFormat:   a.DisplayFormat,
			Priority:        a.Priority,
		})
		if errors.Is(err, citation.ErrPrefixInUse) {
			report.Skipped = append(report.Skipped, a.Prefix)
			logging.WarnContext(ctx, "bundle alias skipped", "prefix", a.Prefix, "reason", "prefix in use")
			continue
		}
		if err != nil {
			return report, err
		}
		report.Aliases = append(report.Aliases, created)
	}
	logging.InfoContext(ctx, "bundle imported", "source_document_id", oldID, "document_id", doc.ID,
		"aliases", len(report.Aliases), "skipped", len(report.Skipped))
	return report, nil
}
