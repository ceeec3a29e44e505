package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/FocuswithJustin/JuniperStudy/core/anchor"
	"github.com/FocuswithJustin/JuniperStudy/core/citation"
	"github.com/FocuswithJustin/JuniperStudy/core/document"
	"github.com/FocuswithJustin/JuniperStudy/core/review"
	"github.com/FocuswithJustin/JuniperStudy/internal/ingest"
	"github.com/FocuswithJustin/JuniperStudy/internal/library"
	"github.com/FocuswithJustin/JuniperStudy/internal/store"
	"github.com/FocuswithJustin/JuniperStudy/internal/validation"
)

// DocumentGroup contains document lifecycle operations.
type DocumentGroup struct {
	Import       DocumentImportCmd `cmd:"" help:"Parse a text or XML file and commit it as a document"`
	List         DocumentListCmd   `cmd:"" help:"List documents"`
	Show         DocumentShowCmd   `cmd:"" help:"Print a document with its paragraph numbers"`
	Rename       DocumentRenameCmd `cmd:"" help:"Rename a document"`
	Delete       DocumentDeleteCmd `cmd:"" help:"Delete a document with its aliases and anchors"`
	Export       ExportCmd         `cmd:"" help:"Export a document and its aliases as a bundle"`
	ImportBundle ImportBundleCmd   `cmd:"" name:"import-bundle" help:"Import a bundle written by export"`
}

// DocumentImportCmd imports a file. Review corrections are given as 1-based
// positions in the parsed node list, which --dry-run prints. Without
// --dry-run the corrected session is committed.
type DocumentImportCmd struct {
	Path       string `arg:"" help:"Path to a .txt, .xml or .xz source" type:"existingfile"`
	Title      string `help:"Document title (defaults to the file name)"`
	Type       string `help:"Source type" default:"generic" enum:"scripture,catechism,patristic,treatise,generic"`
	Folder     string `help:"Folder id to place the document in"`
	Ignore     []int  `help:"Positions of parsed nodes to leave out"`
	Merge      []int  `help:"Positions of parsed nodes to merge into the node before them"`
	Resequence bool   `help:"Renumber citable paragraphs 1..n after the edits"`
	DryRun     bool   `help:"Parse, apply the edits and report without committing" name:"dry-run"`
}

// edits maps the position flags onto review edits. Positions refer to the
// list as parsed, so they are resolved to node ids before anything changes.
// abandon discards an import session after err. A failed discard is
// reported alongside err.
func abandon(ctx context.Context, lib *library.Library, id string, err error) error {
	if derr := lib.Discard(ctx, id); derr != nil {
		return errors.Join(err, fmt.Errorf("failed to discard session %s: %w", id, derr))
	}
	return err
}

func (c *DocumentImportCmd) edits(nodes []review.ReviewNode) ([]review.Edit, error) {
	at := func(pos int) (string, error) {
		if pos < 1 || pos > len(nodes) {
			return "", fmt.Errorf("position %d out of range 1..%d", pos, len(nodes))
		}
		return nodes[pos-1].TempID, nil
	}
	var edits []review.Edit
	for _, pos := range c.Ignore {
		id, err := at(pos)
		if err != nil {
			return nil, err
		}
		edits = append(edits, review.Edit{Op: review.OpIgnore, NodeID: id})
	}
	for _, pos := range c.Merge {
		id, err := at(pos)
		if err != nil {
			return nil, err
		}
		edits = append(edits, review.Edit{Op: review.OpMergePrevious, NodeID: id})
	}
	if c.Resequence {
		edits = append(edits, review.Edit{Op: review.OpResequence})
	}
	return edits, nil
}

func (c *DocumentImportCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := validation.ValidatePath(c.Path); err != nil {
		return fmt.Errorf("invalid input path: %w", err)
	}
	src, err := ingest.Read(c.Path)
	if err != nil {
		return fmt.Errorf("failed to read source: %w", err)
	}
	req := library.ImportRequest{
		Title:      c.Title,
		SourceType: document.SourceType(c.Type),
		Source:     src,
	}
	if c.Folder != "" {
		req.FolderID = &c.Folder
	}
	info, err := s.lib.Import(s.ctx, req)
	if err != nil {
		return fmt.Errorf("failed to import: %w", err)
	}

	fmt.Fprintf(out, "Parsed: %s\n", c.Path)
	fmt.Fprintf(out, "  Format: %s\n", src.Format)
	fmt.Fprintf(out, "  BLAKE3: %s\n", src.Hash)
	fmt.Fprintf(out, "  Lines: %d, structural: %d, citable: %d, dropped: %d\n",
		info.Stats.Lines, info.Stats.Structural, info.Stats.Citable, info.Stats.Dropped)
	if info.Stats.Duplicates > 0 {
		fmt.Fprintf(out, "  Warning: duplicate paragraph numbers: %d\n", info.Stats.Duplicates)
	}
	if info.DuplicateOf != "" {
		fmt.Fprintf(out, "  Warning: same source as document %s\n", info.DuplicateOf)
	}

	edits, err := c.edits(info.State.Nodes)
	if err != nil {
		return abandon(s.ctx, s.lib, info.ID, err)
	}
	if len(edits) > 0 {
		applied, next, err := s.lib.Edit(s.ctx, info.ID, edits...)
		if err != nil {
			return abandon(s.ctx, s.lib, info.ID, fmt.Errorf("failed to apply edits: %w", err))
		}
		for i, ok := range applied {
			if !ok {
				fmt.Fprintf(out, "  Skipped: %s %s\n", edits[i].Op, describe(info.State.Nodes, edits[i].NodeID))
			}
		}
		info = next
	}

	if c.DryRun {
		printReview(out, info.State.Nodes)
		return s.lib.Discard(s.ctx, info.ID)
	}
	doc, err := s.lib.Commit(s.ctx, info.ID)
	if err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	fmt.Fprintf(out, "Created: %s (%s)\n", doc.ID, doc.Title)
	return nil
}

// describe names a node by its position in nodes.
func describe(nodes []review.ReviewNode, id string) string {
	for i, n := range nodes {
		if n.TempID == id {
			return fmt.Sprintf("node %d", i+1)
		}
	}
	return "session"
}

func printReview(out io.Writer, nodes []review.ReviewNode) {
	for i, n := range nodes {
		label := string(n.Type)
		if n.DisplayNumber != "" {
			label += " " + n.DisplayNumber
		}
		fmt.Fprintf(out, "%4d  %-16s %s\n", i+1, label, truncate(n.Content, 60))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// DocumentListCmd lists the user's documents.
type DocumentListCmd struct{}

func (c *DocumentListCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	docs, err := s.lib.Documents(s.ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Fprintln(out, "No documents.")
		return nil
	}
	for _, d := range docs {
		fmt.Fprintf(out, "%s  %-10s  %s\n", d.ID, d.SourceType, d.Title)
	}
	return nil
}

// DocumentShowCmd prints a document.
type DocumentShowCmd struct {
	ID string `arg:"" help:"Document id"`
}

func (c *DocumentShowCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	doc, err := s.lib.Document(s.ctx, c.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (%s, %d citable paragraphs)\n\n", doc.Title, doc.SourceType, doc.TotalCitableNodes())
	for _, n := range doc.Nodes {
		switch n := n.(type) {
		case *document.Structural:
			fmt.Fprintf(out, "\n%s [%s]\n", strings.ToUpper(n.Content), n.Level)
		case *document.Citable:
			fmt.Fprintf(out, "[%s] %s\n", n.DisplayNumber, n.Content)
		}
	}
	return nil
}

// DocumentRenameCmd renames a document.
type DocumentRenameCmd struct {
	ID    string `arg:"" help:"Document id"`
	Title string `arg:"" help:"New title"`
}

func (c *DocumentRenameCmd) Run(g *Globals) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()
	return s.lib.RenameDocument(s.ctx, c.ID, c.Title)
}

// DocumentDeleteCmd deletes a document.
type DocumentDeleteCmd struct {
	ID string `arg:"" help:"Document id"`
}

func (c *DocumentDeleteCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.lib.DeleteDocument(s.ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Deleted: %s\n", c.ID)
	return nil
}

// ExportCmd writes a document bundle.
type ExportCmd struct {
	ID       string `arg:"" help:"Document id"`
	Out      string `required:"" help:"Output path" type:"path"`
	Compress bool   `help:"Compress the bundle with xz"`
}

func (c *ExportCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := validation.ValidatePath(c.Out); err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	f, err := os.Create(c.Out)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := s.lib.Export(s.ctx, f, c.ID, c.Compress); err != nil {
		f.Close()
		os.Remove(c.Out)
		return fmt.Errorf("failed to export: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported: %s\n", c.Out)
	return nil
}

// ImportBundleCmd imports an exported bundle as a new document.
type ImportBundleCmd struct {
	Path string `arg:"" help:"Bundle path (.json or .json.xz)" type:"existingfile"`
}

func (c *ImportBundleCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := s.lib.ImportBundle(s.ctx, f)
	if err != nil {
		return fmt.Errorf("failed to import bundle: %w", err)
	}
	fmt.Fprintf(out, "Created: %s (%s)\n", report.Document.ID, report.Document.Title)
	fmt.Fprintf(out, "  Aliases: %d\n", len(report.Aliases))
	for _, p := range report.Skipped {
		fmt.Fprintf(out, "  Skipped alias %s: prefix already in use\n", p)
	}
	return nil
}

// AliasGroup contains alias operations.
type AliasGroup struct {
	Add     AliasAddCmd     `cmd:"" help:"Add a custom citation alias"`
	Preset  AliasPresetCmd  `cmd:"" help:"Add an alias from a preset"`
	Presets AliasPresetsCmd `cmd:"" help:"List alias presets"`
	List    AliasListCmd    `cmd:"" help:"List the aliases of a document"`
	Remove  AliasRemoveCmd  `cmd:"" help:"Remove an alias"`
}

// AliasAddCmd creates an alias. Pattern, extractor and display format
// default from the prefix.
type AliasAddCmd struct {
	Document  string `arg:"" help:"Document id"`
	Prefix    string `arg:"" help:"Citation prefix, e.g. CCC"`
	Pattern   string `help:"Regular expression matching a citation"`
	Extractor string `help:"Regular expression capturing the number"`
	Display   string `help:"Display format; {n} is replaced by the number"`
	Priority  int    `help:"Higher priority wins overlapping matches"`
}

func (c *AliasAddCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.lib.CreateAlias(s.ctx, citation.AliasInput{
		DocumentID:      c.Document,
		Prefix:          c.Prefix,
		Pattern:         c.Pattern,
		NumberExtractor: c.Extractor,
		DisplayFormat:   c.Display,
		Priority:        c.Priority,
	})
	if err != nil {
		return err
	}
	printAlias(out, a)
	return nil
}

// AliasPresetCmd creates an alias from a preset.
type AliasPresetCmd struct {
	Document string `arg:"" help:"Document id"`
	Preset   string `arg:"" help:"Preset name (see alias presets)"`
	Prefix   string `help:"Custom prefix replacing the preset's"`
}

func (c *AliasPresetCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.lib.CreateAliasFromPreset(s.ctx, c.Document, c.Preset, c.Prefix)
	if err != nil {
		return err
	}
	printAlias(out, a)
	return nil
}

// AliasPresetsCmd lists presets.
type AliasPresetsCmd struct{}

func (c *AliasPresetsCmd) Run(out io.Writer) error {
	for _, p := range citation.Presets() {
		fmt.Fprintf(out, "%-10s %s\n", p.Name, p.Description)
	}
	return nil
}

// AliasListCmd lists a document's aliases.
type AliasListCmd struct {
	Document string `arg:"" help:"Document id"`
}

func (c *AliasListCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	aliases, err := s.lib.Aliases(s.ctx, c.Document)
	if err != nil {
		return err
	}
	for _, a := range aliases {
		printAlias(out, a)
	}
	return nil
}

// AliasRemoveCmd removes an alias.
type AliasRemoveCmd struct {
	ID string `arg:"" help:"Alias id"`
}

func (c *AliasRemoveCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.lib.DeleteAlias(s.ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed: %s\n", c.ID)
	return nil
}

func printAlias(out io.Writer, a citation.Alias) {
	fmt.Fprintf(out, "%s  %-8s priority=%d  %s\n", a.ID, a.Prefix, a.Priority, a.Pattern)
}

// ResolveCmd resolves citations in text.
type ResolveCmd struct {
	Text []string `arg:"" help:"Text to scan"`
}

func (c *ResolveCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	matches, err := s.lib.Resolve(s.ctx, strings.Join(c.Text, " "))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, "No citations found.")
		return nil
	}
	for _, m := range matches {
		switch {
		case m.Kind == citation.KindScripture:
			fmt.Fprintf(out, "%q  scripture  %s\n", m.Text, m.Display)
		case m.Resolved:
			fmt.Fprintf(out, "%q  %s  document=%s node=%s\n", m.Text, m.Display, m.DocumentID, m.NodeID)
		default:
			fmt.Fprintf(out, "%q  %s  unresolved\n", m.Text, m.Display)
		}
	}
	return nil
}

// AutolinkCmd links citations in an HTML fragment read from a file or
// stdin ("-").
type AutolinkCmd struct {
	Path string `arg:"" help:"HTML fragment file, or - for stdin" default:"-"`
}

func (c *AutolinkCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	var data []byte
	if c.Path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(c.Path)
	}
	if err != nil {
		return err
	}
	res, err := s.lib.AutoLink(s.ctx, string(data))
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Fragment)
	return nil
}

// NoteGroup contains note operations.
type NoteGroup struct {
	Add  NoteAddCmd  `cmd:"" help:"Create a note from an HTML fragment file"`
	List NoteListCmd `cmd:"" help:"Print the note tree"`
}

// NoteAddCmd creates a note.
type NoteAddCmd struct {
	Title  string `arg:"" help:"Note title"`
	Path   string `arg:"" help:"HTML fragment file" type:"existingfile"`
	Folder string `help:"Folder id"`
}

func (c *NoteAddCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}
	var folder *string
	if c.Folder != "" {
		folder = &c.Folder
	}
	n, err := s.lib.CreateNote(s.ctx, folder, c.Title, string(data))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created: %s (%s)\n", n.ID, n.Title)
	return nil
}

// NoteListCmd prints the note tree.
type NoteListCmd struct{}

func (c *NoteListCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	tree, err := s.lib.Tree(s.ctx, store.FolderNotes)
	if err != nil {
		return err
	}
	printTree(out, tree, 0)
	return nil
}

func printTree(out io.Writer, entries []*library.TreeEntry, depth int) {
	for _, e := range entries {
		fmt.Fprintf(out, "%s%s  %s (%s)\n", strings.Repeat("  ", depth), e.ID, e.Name, e.Type)
		printTree(out, e.Children, depth+1)
	}
}

// AnchorGroup contains anchor operations.
type AnchorGroup struct {
	Add    AnchorAddCmd    `cmd:"" help:"Anchor a note to a paragraph"`
	List   AnchorListCmd   `cmd:"" help:"List anchors of a document or note"`
	Remove AnchorRemoveCmd `cmd:"" help:"Remove an anchor"`
}

// AnchorAddCmd creates an anchor.
type AnchorAddCmd struct {
	Document string `arg:"" help:"Document id"`
	Node     string `arg:"" help:"Paragraph node id"`
	Note     string `arg:"" help:"Note id"`
	Label    string `help:"Display label"`
}

func (c *AnchorAddCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	id, created, err := s.lib.CreateAnchor(s.ctx, c.Document, c.Node, c.Note, c.Label)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "Created: %s\n", id)
	} else {
		fmt.Fprintln(out, "Anchor already exists.")
	}
	return nil
}

// AnchorListCmd lists anchors.
type AnchorListCmd struct {
	Document string `help:"Document id" xor:"target" required:""`
	Note     string `help:"Note id" xor:"target" required:""`
}

func (c *AnchorListCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()

	var list []anchor.Anchor
	if c.Document != "" {
		list, err = s.lib.DocumentAnchors(s.ctx, c.Document)
	} else {
		list, err = s.lib.NoteAnchors(s.ctx, c.Note)
	}
	if err != nil {
		return err
	}
	for _, a := range list {
		fmt.Fprintf(out, "%s  node=%s note=%s  %s\n", a.ID, a.NodeID, a.NoteID, a.DisplayLabel)
	}
	return nil
}

// AnchorRemoveCmd removes an anchor.
type AnchorRemoveCmd struct {
	ID string `arg:"" help:"Anchor id"`
}

func (c *AnchorRemoveCmd) Run(g *Globals, out io.Writer) error {
	s, err := open(context.Background(), g.config())
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.lib.RemoveAnchor(s.ctx, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed: %s\n", c.ID)
	return nil
}
