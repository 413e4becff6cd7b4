package markup

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
)

const genesis = `\id Genesis
\c 1
\p \v 1 In the beginning God created the heavens and the earth.
\v 2 The word \ws grc λόγος\ws* is Greek.
\rem ignored
\p \v 3 And God said.
`

func testRegistry() *wsys.Registry {
	reg := wsys.NewRegistry(wsys.MustNew("en", "en", ""))
	reg.Register(wsys.MustNew("grc", "el", ""))
	return reg
}

func testOptions() Options {
	return Options{WritingSystem: "en", Registry: testRegistry()}
}

func TestParseString_Document(t *testing.T) {
	texts, err := ParseString(genesis, "gen.sfm", testOptions())
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if len(texts) != 1 || texts[0].Title != "Genesis" {
		t.Fatalf("texts = %+v", texts)
	}
	paras := texts[0].Paragraphs()
	if len(paras) != 2 {
		t.Fatalf("got %d paragraphs, want 2", len(paras))
	}

	want := "1 1 In the beginning God created the heavens and the earth. 2 The word λόγος is Greek."
	if got := paras[0].Contents().Text(); got != want {
		t.Errorf("paragraph 0 = %q\nwant          %q", got, want)
	}
	if got := paras[1].Contents().Text(); got != "3 And God said." {
		t.Errorf("paragraph 1 = %q", got)
	}

	var styles []string
	var foreign []string
	s := paras[0].Contents()
	for _, r := range s.Runs() {
		if r.Style != "" {
			styles = append(styles, r.Style+":"+s.Slice(r.Min, r.Lim))
		}
		if r.WS == "grc" {
			foreign = append(foreign, s.Slice(r.Min, r.Lim))
		}
	}
	wantStyles := []string{"Chapter Number:1", "Verse Number:1", "Verse Number:2"}
	if strings.Join(styles, "|") != strings.Join(wantStyles, "|") {
		t.Errorf("label runs = %q, want %q", styles, wantStyles)
	}
	if len(foreign) != 1 || foreign[0] != "λόγος" {
		t.Errorf("grc runs = %q", foreign)
	}
}

func TestParseString_Inline(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"collapses white space", "\\p one   two\n\tthree  ", "one two three"},
		{"hard break", `\p first line\br second line`, "first line\u2028second line"},
		{"break swallows following space", "\\p a \\br   b", "a\u2028b"},
		{"escaped backslash", `\p C:\\path`, `C:\path`},
		{"implicit paragraph", "plain words", "plain words"},
		{"verse range", `\p \v 1-3 Text`, "1-3 Text"},
		{"verse glued to text", `\p \v 4Text`, "4Text"},
		{"trailing comment", "\\p kept \\rem dropped\n", "kept"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			texts, err := ParseString(tt.src, "", testOptions())
			if err != nil {
				t.Fatalf("ParseString() error = %v", err)
			}
			if len(texts) != 1 || len(texts[0].Paragraphs()) != 1 {
				t.Fatalf("want one text with one paragraph, got %+v", texts)
			}
			if got := texts[0].Paragraph(0).Contents().Text(); got != tt.want {
				t.Errorf("text = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseString_TextsAndTitles(t *testing.T) {
	src := "\\p before any id\n\\id First\n\\p one\n\\id  Second Book \n\\p two\n\\p three\n"
	texts, err := ParseString(src, "", Options{Title: "Loose", WritingSystem: "en"})
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, tx := range texts {
		got = append(got, tx.Title)
	}
	if strings.Join(got, "|") != "Loose|First|Second Book" {
		t.Fatalf("titles = %q", got)
	}
	if n := len(texts[2].Paragraphs()); n != 2 {
		t.Errorf("Second Book has %d paragraphs, want 2", n)
	}
}

func TestParseString_EmptyParagraphsDropped(t *testing.T) {
	texts, err := ParseString("\\id T\n\\p\n\\p   \n\\p x\n", "", testOptions())
	if err != nil {
		t.Fatal(err)
	}
	if n := len(texts[0].Paragraphs()); n != 1 {
		t.Errorf("got %d paragraphs, want 1", n)
	}
}

func TestParseString_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantLine int
	}{
		{"unknown marker", "\\id T\n\\p fine\n\\q2 poetry\n", 3},
		{"unknown writing system", "\\p a\n\\ws xyz word\\ws*\n", 2},
		{"verse without number", "\\p \\v abc\n", 1},
		{"unclosed writing system", "\\p \\ws grc λόγος\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseString(tt.src, "bad.sfm", testOptions())
			if err == nil {
				t.Fatal("expected an error")
			}
			var perr *errors.ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("error %T is not a ParseError: %v", err, err)
			}
			if perr.Format != "markup" || perr.Path != "bad.sfm" {
				t.Errorf("ParseError = %+v", perr)
			}
			if tt.wantLine > 0 && perr.Line != tt.wantLine {
				t.Errorf("Line = %d, want %d (%v)", perr.Line, tt.wantLine, err)
			}
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	src := genesis + "\\p Line one.\\br Line two has a \\\\ backslash.\n"
	texts, err := ParseString(src, "", testOptions())
	if err != nil {
		t.Fatal(err)
	}
	out := FormatString("en", texts...)
	again, err := ParseString(out, "", testOptions())
	if err != nil {
		t.Fatalf("re-parse of %q: %v", out, err)
	}
	if len(again) != 1 || again[0].Title != "Genesis" {
		t.Fatalf("texts = %+v", again)
	}
	a, b := texts[0].Paragraphs(), again[0].Paragraphs()
	if len(a) != len(b) {
		t.Fatalf("got %d paragraphs, want %d\n%s", len(b), len(a), out)
	}
	for i := range a {
		if !a[i].Contents().Equal(b[i].Contents()) {
			t.Errorf("paragraph %d:\n got %v\nwant %v", i, b[i].Contents(), a[i].Contents())
		}
	}
}

func TestFormat_PlainString(t *testing.T) {
	var b ftext.Builder
	b.Append("Hello ", "en", "")
	b.Append("κόσμε", "grc", "")
	b.Append(".", "en", "")
	texts, err := ParseString(`\id Hi`, "", testOptions())
	if err != nil {
		t.Fatal(err)
	}
	texts[0].AddParagraph(corpus.NewParagraph(b.String()))

	want := "\\id Hi\n\\p Hello \\ws grc κόσμε\\ws*.\n"
	if got := FormatString("en", texts...); got != want {
		t.Errorf("FormatString() = %q, want %q", got, want)
	}
}

func TestParsedMarkup_Segments(t *testing.T) {
	texts, err := ParseString(genesis, "", testOptions())
	if err != nil {
		t.Fatal(err)
	}
	para := texts[0].Paragraph(0)
	p := parser.New(testRegistry(), lexicon.NewMemory(), nil,
		parser.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		parser.WithLabelStyles(ChapterStyle, VerseStyle))

	views := p.SegmentsFor(para)
	var got []string
	for _, v := range views {
		got = append(got, v.Text)
	}
	want := []string{"1 1 ", "In the beginning God created the heavens and the earth. ", "2 ", "The word λόγος is Greek."}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("segments = %q\nwant       %q", got, want)
	}
	if views[0].Kind != parser.SpanLabel || views[2].Kind != parser.SpanLabel {
		t.Errorf("label segments have kinds %v and %v", views[0].Kind, views[2].Kind)
	}

	// The Greek word is not word-forming in an English paragraph.
	for _, ref := range p.WordOccurrencesIn(para) {
		if ref.Occurrence.Text() == "λόγος" {
			t.Errorf("foreign word reported as a word occurrence at %d", ref.Min)
		}
	}
}
