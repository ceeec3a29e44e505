package ingest

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/JuniperStudy/core/errors"
)

func compress(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(data)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const sampleXML = `<?xml version="1.0"?>
<doc>
  <title>On Prayer</title>
  <div>
    <head>CHAPTER I</head>
    <p>1. Prayer is the raising
       of one's mind and heart to God.</p>
    <p>2. Humility is the <i>foundation</i> of prayer.</p>
    <p>   </p>
  </div>
</doc>`

func TestReadBytesText(t *testing.T) {
	src, err := ReadBytes("Confessions.txt", []byte("\xEF\xBB\xBFBOOK ONE\r\n1. Great art thou\r\n"))
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	if src.Format != FormatText || src.Compressed {
		t.Errorf("Format = %s, Compressed = %v", src.Format, src.Compressed)
	}
	if src.Text != "BOOK ONE\n1. Great art thou\n" {
		t.Errorf("Text = %q", src.Text)
	}
	if src.Title != "Confessions" {
		t.Errorf("Title = %q, want Confessions", src.Title)
	}
	if len(src.Hash) != 64 {
		t.Errorf("Hash = %q, want 64 hex chars", src.Hash)
	}
}

func TestReadBytesXML(t *testing.T) {
	src, err := ReadBytes("prayer.xml", []byte(sampleXML))
	if err != nil {
		t.Fatalf("ReadBytes() error = %v", err)
	}
	want := "On Prayer\n\nCHAPTER I\n\n1. Prayer is the raising of one's mind and heart to God.\n\n2. Humility is the foundation of prayer."
	if src.Text != want {
		t.Errorf("Text =\n%q\nwant\n%q", src.Text, want)
	}
	if src.Title != "On Prayer" || src.Format != FormatXML {
		t.Errorf("Title = %q, Format = %s", src.Title, src.Format)
	}
}

func TestReadBytesNestedBlocks(t *testing.T) {
	src, err := ReadBytes("x.osis", []byte(`<osis><p>In the beginning <verse>was the Word</verse></p></osis>`))
	if err != nil {
		t.Fatal(err)
	}
	if src.Text != "In the beginning was the Word" {
		t.Errorf("Text = %q, nested verse emitted twice?", src.Text)
	}
}

func TestReadBytesXZ(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		title  string
	}{
		{"catechism.txt.xz", "1. The Father", FormatText, "catechism"},
		{"prayer.xml.xz", sampleXML, FormatXML, "On Prayer"},
		{"no-extension", "1. sniffed by magic", FormatText, "no-extension"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := compress(t, tt.data)
			src, err := ReadBytes(tt.name, raw)
			if err != nil {
				t.Fatalf("ReadBytes() error = %v", err)
			}
			if !src.Compressed || src.Format != tt.format || src.Title != tt.title {
				t.Errorf("got Compressed=%v Format=%s Title=%q", src.Compressed, src.Format, src.Title)
			}
			if src.Size != len(raw) {
				t.Errorf("Size = %d, want raw size %d", src.Size, len(raw))
			}
		})
	}
}

func TestHashIdentifiesRawBytes(t *testing.T) {
	a, _ := ReadBytes("a.txt", []byte("1. same"))
	b, _ := ReadBytes("b.txt", []byte("1. same"))
	c, _ := ReadBytes("c.txt", []byte("1. other"))
	if a.Hash != b.Hash {
		t.Error("identical bytes hashed differently")
	}
	if a.Hash == c.Hash {
		t.Error("different bytes hashed the same")
	}
}

func TestReadBytesErrors(t *testing.T) {
	var perr *errors.ParseError
	if _, err := ReadBytes("bad.xz", []byte("not xz")); !errors.As(err, &perr) || perr.Format != "xz" {
		t.Errorf("bad xz error = %v", err)
	}
	if _, err := ReadBytes("bad.xml", []byte("<a><b></a>")); !errors.As(err, &perr) || perr.Format != "XML" {
		t.Errorf("bad xml error = %v", err)
	}
	if _, err := ReadBytes("scan.txt", []byte{0x01, 0x02, 0x03, 0x00, 0x04}); !errors.IsValidation(err) {
		t.Errorf("binary source error = %v, want validation", err)
	}
	big := make([]byte, MaxSourceSize+1)
	if _, err := ReadBytes("big.txt", big); !errors.IsValidation(err) {
		t.Errorf("oversized error = %v, want validation", err)
	}
}

func TestRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "St. Augustine.txt")
	if err := os.WriteFile(path, []byte("1. Late have I loved thee"), 0o600); err != nil {
		t.Fatal(err)
	}
	src, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if src.Title != "St. Augustine" || !strings.HasPrefix(src.Text, "1. Late") {
		t.Errorf("Read() = %+v", src)
	}
	if _, err := Read(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("Read(missing) succeeded")
	}
}
