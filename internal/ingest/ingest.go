// Package ingest reads source texts for the line parser.
//
// Plain text is passed through, .xz files are decompressed, and XML sources
// (OSIS, TEI, XHTML) are flattened to one block of text per heading,
// paragraph or verse element. Every source carries the BLAKE3 hash of the
// bytes as received, which the library uses to spot repeated imports.
package ingest

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
	"github.com/FocuswithJustin/JuniperStudy/internal/validation"
)

// Format identifies how a source was decoded.
type Format string

// Source formats.
const (
	FormatText Format = "text"
	FormatXML  Format = "xml"
)

// MaxSourceSize bounds both the raw and the decompressed size of a source.
const MaxSourceSize = 64 << 20

// BlockQuery selects the XML elements that become text blocks.
const BlockQuery = `//head|//title|//h1|//h2|//h3|//h4|//h5|//h6|//p|//verse`

var blockExpr = xpath.MustCompile(BlockQuery)

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// Source is a decoded source text.
type Source struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Format     Format `json:"format"`
	Compressed bool   `json:"compressed"`
	Text       string `json:"-"`
	Hash       string `json:"hash"`
	Size       int    `json:"size"`
}

// Read loads and decodes the file at path.
func Read(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return Source{}, errors.Wrapf(err, "open source %s", path)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxSourceSize+1))
	if err != nil {
		return Source{}, errors.Wrapf(err, "read source %s", path)
	}
	return ReadBytes(filepath.Base(path), data)
}

// ReadBytes decodes data. name is used for format detection by extension
// and for the suggested title.
func ReadBytes(name string, data []byte) (Source, error) {
	if len(data) > MaxSourceSize {
		return Source{}, errors.NewValidation("source", fmt.Sprintf("source exceeds %d bytes", MaxSourceSize))
	}
	sum := blake3.Sum256(data)
	src := Source{
		Name: name,
		Hash: hex.EncodeToString(sum[:]),
		Size: len(data),
	}

	inner := strings.ToLower(name)
	if bytes.HasPrefix(data, xzMagic) || strings.HasSuffix(inner, ".xz") {
		plain, err := decompress(data)
		if err != nil {
			return Source{}, &errors.ParseError{Format: "xz", Path: name, Message: "decompress", Err: err}
		}
		data = plain
		src.Compressed = true
		inner = strings.TrimSuffix(inner, ".xz")
	}

	if isXML(inner, data) {
		text, title, err := extractXML(data)
		if err != nil {
			return Source{}, &errors.ParseError{Format: "XML", Path: name, Message: "extract text", Err: err}
		}
		src.Format, src.Text, src.Title = FormatXML, text, title
	} else {
		if !validation.IsLikelyText(data) {
			return Source{}, errors.NewValidation("source", name+" is not a text or XML file")
		}
		src.Format, src.Text = FormatText, normalizeText(data)
	}
	if src.Title == "" {
		src.Title = titleFromName(name)
	}
	return src, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	plain, err := io.ReadAll(io.LimitReader(r, MaxSourceSize+1))
	if err != nil {
		return nil, err
	}
	if len(plain) > MaxSourceSize {
		return nil, fmt.Errorf("decompressed source exceeds %d bytes", MaxSourceSize)
	}
	return plain, nil
}

func isXML(name string, data []byte) bool {
	switch filepath.Ext(name) {
	case ".xml", ".xhtml", ".osis", ".tei":
		return true
	case ".txt", ".text":
		return false
	}
	head := bytes.TrimLeft(bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF")), " \t\r\n")
	return bytes.HasPrefix(head, []byte("<?xml"))
}

// normalizeText strips a byte order mark, replaces invalid UTF-8 and unifies
// line endings.
func normalizeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	s := string(data)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// extractXML returns one block per selected element, separated by blank
// lines, and the text of the first title element. Elements nested inside
// another selected element are skipped so no text is emitted twice.
func extractXML(data []byte) (text, title string, err error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return "", "", err
	}
	nodes := xmlquery.QuerySelectorAll(root, blockExpr)
	selected := make(map[*xmlquery.Node]bool, len(nodes))
	for _, n := range nodes {
		selected[n] = true
	}

	var blocks []string
	for _, n := range nodes {
		if hasSelectedAncestor(n, selected) {
			continue
		}
		block := strings.Join(strings.Fields(n.InnerText()), " ")
		if block == "" {
			continue
		}
		if title == "" && n.Data == "title" {
			title = block
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n"), title, nil
}

func hasSelectedAncestor(n *xmlquery.Node, selected map[*xmlquery.Node]bool) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if selected[p] {
			return true
		}
	}
	return false
}

// titleFromName turns "ccc-part-one.txt.xz" into "ccc-part-one".
func titleFromName(name string) string {
	base := filepath.Base(name)
	for {
		switch ext := strings.ToLower(filepath.Ext(base)); ext {
		case ".xz", ".txt", ".text", ".xml", ".xhtml", ".osis", ".tei":
			base = base[:len(base)-len(ext)]
		default:
			return base
		}
	}
}
