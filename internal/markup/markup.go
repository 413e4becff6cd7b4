// Package markup reads and writes a small SFM-style text format:
//
//	\id Genesis
//	\c 1
//	\p \v 1 In the beginning God created the heavens and the earth.
//	\v 2 The word \ws grc λόγος\ws* is Greek.\br A new line.
//	\rem comments run to the end of the line
//
// \id starts a new text, \p a new paragraph. \c and \v insert chapter and
// verse labels, \ws wraps a run in another writing system and \br inserts a
// hard line break. Source white space, including newlines, collapses to a
// single space; a literal backslash is written \\.
package markup

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
)

// Character styles given to label runs.
const (
	ChapterStyle = "Chapter Number"
	VerseStyle   = "Verse Number"
)

// LineSeparator is the hard line break written for \br.
const LineSeparator = "\u2028"

// DefaultTitle names a text that has no \id line.
const DefaultTitle = "untitled"

//nolint:govet // participle grammar tags are not standard struct tags
type document struct {
	Items []*item `@@*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type item struct {
	Pos lexer.Position

	Comment *string      `  @Comment`
	ID      *idLine      `| @@`
	Para    bool         `| @Para`
	Chapter *string      `| Chapter Space @Number`
	Verse   *string      `| Verse Space @Number`
	Foreign *foreignSpan `| @@`
	Break   bool         `| @Break`
	Unknown *string      `| @Unknown`
	Text    *string      `| @(Word | Number | Escaped)`
	Space   bool         `| @(Space | Newline)`
}

//nolint:govet // participle grammar tags are not standard struct tags
type idLine struct {
	Title []string `Id @(Space | Word | Number | Escaped)*`
}

//nolint:govet // participle grammar tags are not standard struct tags
type foreignSpan struct {
	WS   string   `WSOpen Space @Word Space?`
	Body []string `@(Space | Newline | Word | Number | Escaped)*`
	End  bool     `@WSClose`
}

// markupLexer tokenizes markup source. Order matters: specific markers must
// come before Unknown, and WSClose before WSOpen.
var markupLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `\\rem\b[^\n]*`},
	{Name: "Id", Pattern: `\\id\b`},
	{Name: "Para", Pattern: `\\p\b`},
	{Name: "Chapter", Pattern: `\\c\b`},
	{Name: "Verse", Pattern: `\\v\b`},
	{Name: "WSClose", Pattern: `\\ws\*`},
	{Name: "WSOpen", Pattern: `\\ws\b`},
	{Name: "Break", Pattern: `\\br\b`},
	{Name: "Escaped", Pattern: `\\\\`},
	{Name: "Unknown", Pattern: `\\[A-Za-z0-9]*\*?`},
	{Name: "Newline", Pattern: `\r?\n`},
	{Name: "Space", Pattern: `[ \t]+`},
	{Name: "Number", Pattern: `[0-9]+(?:-[0-9]+)?`},
	{Name: "Word", Pattern: `[^\\\s]+`},
})

var markupParser = participle.MustBuild[document](
	participle.Lexer(markupLexer),
)

// Options control how markup is read.
type Options struct {
	// Title names content that appears before the first \id.
	Title string

	// WritingSystem is the writing system of ordinary text and labels.
	WritingSystem string

	// Registry, when set, rejects \ws runs naming unknown writing systems.
	Registry *wsys.Registry
}

// ParseFile reads the markup file at path.
func ParseFile(path string, opts Options) ([]*corpus.Text, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	return Parse(f, path, opts)
}

// Parse reads markup from r. path is used in error messages only.
func Parse(r io.Reader, path string, opts Options) ([]*corpus.Text, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return ParseString(string(src), path, opts)
}

// ParseString reads markup held in src.
func ParseString(src, path string, opts Options) ([]*corpus.Text, error) {
	doc, err := markupParser.ParseString(path, src)
	if err != nil {
		return nil, grammarError(path, err)
	}

	b := newTextBuilder(opts)
	for _, it := range doc.Items {
		if err := b.item(it); err != nil {
			perr := errors.NewParse("markup", path, err.Error())
			perr.Line = it.Pos.Line
			return nil, perr
		}
	}
	return b.finish(), nil
}

func grammarError(path string, err error) error {
	perr := errors.NewParse("markup", path, err.Error())
	perr.Err = err
	var pe participle.Error
	if errors.As(err, &pe) {
		perr.Message = pe.Message()
		perr.Line = pe.Position().Line
	}
	return perr
}

type textBuilder struct {
	opts  Options
	texts []*corpus.Text
	cur   *corpus.Text

	para    *paragraphBuilder
	chapter string
}

func newTextBuilder(opts Options) *textBuilder {
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	return &textBuilder{opts: opts}
}

func (b *textBuilder) item(it *item) error {
	switch {
	case it.Comment != nil:
	case it.ID != nil:
		b.closeParagraph()
		b.chapter = ""
		title := unescape(strings.TrimSpace(strings.Join(it.ID.Title, "")))
		if title == "" {
			title = b.opts.Title
		}
		b.cur = corpus.NewText(title)
		b.texts = append(b.texts, b.cur)
	case it.Para:
		b.closeParagraph()
		b.openParagraph()
	case it.Chapter != nil:
		b.closeParagraph()
		b.chapter = *it.Chapter
	case it.Verse != nil:
		b.paragraph().label(*it.Verse, VerseStyle)
	case it.Foreign != nil:
		ws := it.Foreign.WS
		if b.opts.Registry != nil {
			if _, ok := b.opts.Registry.Get(ws); !ok {
				return fmt.Errorf("unknown writing system %q", ws)
			}
		}
		p := b.paragraph()
		for _, tok := range it.Foreign.Body {
			if strings.TrimSpace(tok) == "" {
				p.space(ws)
				continue
			}
			p.text(unescape(tok), ws)
		}
	case it.Break:
		b.paragraph().hardBreak()
	case it.Unknown != nil:
		return fmt.Errorf("unknown marker %s", *it.Unknown)
	case it.Text != nil:
		b.paragraph().text(unescape(*it.Text), b.opts.WritingSystem)
	case it.Space:
		if b.para != nil {
			b.para.space(b.opts.WritingSystem)
		}
	}
	return nil
}

func (b *textBuilder) text() *corpus.Text {
	if b.cur == nil {
		b.cur = corpus.NewText(b.opts.Title)
		b.texts = append(b.texts, b.cur)
	}
	return b.cur
}

// paragraph returns the open paragraph, opening one implicitly.
func (b *textBuilder) paragraph() *paragraphBuilder {
	if b.para == nil {
		b.openParagraph()
	}
	return b.para
}

func (b *textBuilder) openParagraph() {
	b.para = &paragraphBuilder{ws: b.opts.WritingSystem}
	if b.chapter != "" {
		b.para.label(b.chapter, ChapterStyle)
		b.para.space(b.opts.WritingSystem)
		b.chapter = ""
	}
}

func (b *textBuilder) closeParagraph() {
	if b.para == nil {
		return
	}
	if b.para.b.Len() > 0 {
		b.text().AddParagraph(corpus.NewParagraph(b.para.b.String()))
	}
	b.para = nil
}

func (b *textBuilder) finish() []*corpus.Text {
	b.closeParagraph()
	if b.chapter != "" {
		b.openParagraph()
		b.closeParagraph()
	}
	return b.texts
}

// paragraphBuilder collapses white space: a space is written only between
// two pieces of content, never after a hard break. The space takes the
// writing system of the white space that produced it.
type paragraphBuilder struct {
	b       ftext.Builder
	ws      string
	pending bool
	spaceWS string
	broken  bool
}

func (p *paragraphBuilder) space(ws string) {
	if p.b.Len() == 0 || p.broken || p.pending {
		return
	}
	p.pending = true
	p.spaceWS = ws
}

func (p *paragraphBuilder) flush() {
	if p.pending {
		p.b.Append(" ", p.spaceWS, "")
		p.pending = false
	}
}

func (p *paragraphBuilder) text(s, ws string) {
	if s == "" {
		return
	}
	p.flush()
	p.b.Append(s, ws, "")
	p.broken = false
}

func (p *paragraphBuilder) label(s, style string) {
	p.flush()
	p.b.Append(s, p.ws, style)
	p.broken = false
}

func (p *paragraphBuilder) hardBreak() {
	p.pending = false
	p.b.Append(LineSeparator, p.ws, "")
	p.broken = true
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\\`, `\`)
}
