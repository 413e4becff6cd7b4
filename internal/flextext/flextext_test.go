package flextext

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
)

func newParser() *parser.Parser {
	reg := wsys.NewRegistry(wsys.MustNew("en", "en", ""))
	reg.Register(wsys.MustNew("grc", "el", ""))
	return parser.New(reg, lexicon.NewMemory(), nil,
		parser.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// glossedText builds a parsed text with a glossed word and a glossed phrase.
func glossedText(t *testing.T, p *parser.Parser) *corpus.Text {
	t.Helper()
	var b ftext.Builder
	b.Append("1", "en", "Verse Number")
	b.Append(" In the beginning God created the heavens, said ", "en", "")
	b.Append("λόγος", "grc", "")
	b.Append(". Amen.", "en", "")

	text := corpus.NewText("Genesis")
	para := corpus.NewParagraph(b.String())
	text.AddParagraph(para)
	p.Reparse(para)

	gloss := func(form, gls string) {
		for _, ref := range p.WordOccurrencesIn(para) {
			if ref.Occurrence.Text() != form {
				continue
			}
			a := ref.Occurrence.Wordform().AddAnalysis("n", "")
			if err := ref.Segment.SetOccurrence(ref.Index, lexicon.OfGloss(a.AddGloss("en", gls))); err != nil {
				t.Fatal(err)
			}
			return
		}
		t.Fatalf("word %q not found", form)
	}
	gloss("beginning", "start")

	for _, ref := range p.WordOccurrencesIn(para) {
		if ref.Occurrence.Text() == "the" && strings.HasPrefix(para.Contents().Slice(ref.Min, para.Contents().Len()), "the heavens") {
			if _, err := p.JoinWords(ref.Segment, ref.Index, 2); err != nil {
				t.Fatalf("JoinWords() error = %v", err)
			}
			break
		}
	}
	gloss("the heavens", "sky")
	return text
}

func glossOf(p *parser.Parser, para *corpus.Paragraph, form string) string {
	for _, ref := range p.WordOccurrencesIn(para) {
		if ref.Occurrence.Text() == form {
			if g := ref.Occurrence.Gloss(); g != nil {
				return g.Text
			}
		}
	}
	return ""
}

func TestExport_Document(t *testing.T) {
	p := newParser()
	text := glossedText(t, p)

	var buf bytes.Buffer
	if err := Export(&buf, p, text); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<document version="2"`,
		`<item type="title" lang="en">Genesis</item>`,
		`<item type="segnum" lang="en">1.1</item>`,
		`<item type="txt" lang="en">beginning</item>`,
		`<item type="pos" lang="en">n</item>`,
		`<item type="gls" lang="en">start</item>`,
		`<item type="txt" lang="en">the heavens</item>`,
		`<item type="punct" lang="en" style="Verse Number">1</item>`,
		`<item type="punct" lang="grc">λόγος</item>`,
		`<language lang="grc"></language>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %s", want)
		}
	}
}

func TestImport_RoundTrip(t *testing.T) {
	src := newParser()
	text := glossedText(t, src)

	var buf bytes.Buffer
	if err := Export(&buf, src, text); err != nil {
		t.Fatal(err)
	}

	dst := newParser()
	res, err := Import(&buf, "gen.flextext", dst)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Attached != 2 || res.Dropped != 0 {
		t.Errorf("Attached = %d, Dropped = %d; want 2, 0", res.Attached, res.Dropped)
	}
	if len(res.Texts) != 1 {
		t.Fatalf("got %d texts", len(res.Texts))
	}
	got := res.Texts[0]
	if got.ID != text.ID || got.Title != "Genesis" {
		t.Errorf("text = %s %q", got.ID, got.Title)
	}

	orig, para := text.Paragraph(0), got.Paragraph(0)
	if !orig.Contents().Equal(para.Contents()) {
		t.Fatalf("contents differ:\n got %v\nwant %v", para.Contents(), orig.Contents())
	}
	if g := glossOf(dst, para, "beginning"); g != "start" {
		t.Errorf("gloss of beginning = %q", g)
	}
	if g := glossOf(dst, para, "the heavens"); g != "sky" {
		t.Errorf("gloss of phrase = %q", g)
	}

	// The imported annotations survive a reparse.
	report := dst.ForceReparse(para)
	if report.Lost != 0 {
		t.Errorf("reparse lost %d analyses", report.Lost)
	}
	if g := glossOf(dst, para, "beginning"); g != "start" {
		t.Errorf("gloss after reparse = %q", g)
	}
}

func TestImport_DropsUnmatchedWords(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="utf-8"?>
<document version="2">
  <interlinear-text>
    <item type="title" lang="en">Contractions</item>
    <paragraphs>
      <paragraph>
        <phrases>
          <phrase>
            <words>
              <word><item type="txt" lang="en">don't</item><item type="gls" lang="en">do not</item></word>
              <word><item type="punct" lang="en"> </item></word>
              <word><item type="txt" lang="en">go</item><item type="gls" lang="en">leave</item></word>
              <word><item type="punct" lang="en">.</item></word>
            </words>
          </phrase>
        </phrases>
      </paragraph>
    </paragraphs>
  </interlinear-text>
</document>`

	p := newParser()
	res, err := Import(strings.NewReader(doc), "", p)
	if err != nil {
		t.Fatal(err)
	}
	if res.Attached != 1 || res.Dropped != 1 {
		t.Errorf("Attached = %d, Dropped = %d; want 1, 1", res.Attached, res.Dropped)
	}
	para := res.Texts[0].Paragraph(0)
	if got := para.Contents().Text(); got != "don't go." {
		t.Errorf("text = %q", got)
	}
	if g := glossOf(p, para, "go"); g != "leave" {
		t.Errorf("gloss of go = %q", g)
	}
}

func TestImport_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed", `<document><interlinear-text>`},
		{"no texts", `<document version="2"></document>`},
		{"gloss without txt", `<document><interlinear-text><paragraphs><paragraph><phrases><phrase><words>
			<word><item type="gls" lang="en">x</item></word></words></phrase></phrases></paragraph></paragraphs></interlinear-text></document>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Import(strings.NewReader(tt.doc), "bad.flextext", newParser())
			var perr *errors.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error = %v, want ParseError", err)
			}
			if perr.Format != "flextext" {
				t.Errorf("Format = %q", perr.Format)
			}
		})
	}
}

func TestFiles_Compressed(t *testing.T) {
	for _, name := range []string{"gen.flextext", "gen.flextext.xz"} {
		t.Run(name, func(t *testing.T) {
			src := newParser()
			text := glossedText(t, src)
			path := filepath.Join(t.TempDir(), name)

			if err := ExportFile(path, src, text); err != nil {
				t.Fatalf("ExportFile() error = %v", err)
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			xzMagic := []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
			if IsCompressed(path) != bytes.HasPrefix(raw, xzMagic) {
				t.Errorf("compressed = %v, file starts %x", IsCompressed(path), raw[:6])
			}

			res, err := ImportFile(path, newParser())
			if err != nil {
				t.Fatalf("ImportFile() error = %v", err)
			}
			if !res.Texts[0].Paragraph(0).Contents().Equal(text.Paragraph(0).Contents()) {
				t.Error("contents differ after file round trip")
			}
		})
	}

	_, err := ImportFile(filepath.Join(t.TempDir(), "missing.flextext"), newParser())
	var ioErr *errors.IOError
	if !errors.As(err, &ioErr) {
		t.Errorf("missing file error = %v, want IOError", err)
	}
}
