package markup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
)

// Ref addresses a chapter, a verse or a verse range within a text.
type Ref struct {
	Chapter int

	// Verse is 0 for a whole chapter.
	Verse int

	// VerseEnd is the last verse of a range, or 0.
	VerseEnd int
}

//nolint:govet // participle grammar tags are not standard struct tags
type refGrammar struct {
	Chapter int        `@Int`
	Verses  *versePart `( ":" @@ )?`
}

//nolint:govet // participle grammar tags are not standard struct tags
type versePart struct {
	Verse int  `@Int`
	End   *int `( "-" @Int )?`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `[:\-]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Whitespace"),
)

// ParseRef parses "3", "3:16" or "3:16-18".
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, errors.NewValidation("ref", "empty reference")
	}
	g, err := refParser.ParseString("", s)
	if err != nil {
		return Ref{}, &errors.ValidationError{Field: "ref", Value: s, Message: "expected chapter[:verse[-verse]]", Err: err}
	}
	r := Ref{Chapter: g.Chapter}
	if g.Verses != nil {
		r.Verse = g.Verses.Verse
		if g.Verses.End != nil {
			r.VerseEnd = *g.Verses.End
		}
	}
	if r.Chapter == 0 || (r.Verse == 0 && g.Verses != nil) {
		return Ref{}, errors.NewValidation("ref", fmt.Sprintf("%q: chapters and verses start at 1", s))
	}
	if r.VerseEnd != 0 && r.VerseEnd < r.Verse {
		return Ref{}, errors.NewValidation("ref", fmt.Sprintf("%q: range ends before it starts", s))
	}
	return r, nil
}

// String formats r the way ParseRef reads it.
func (r Ref) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(r.Chapter))
	if r.Verse > 0 {
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(r.Verse))
		if r.VerseEnd > r.Verse {
			sb.WriteString("-")
			sb.WriteString(strconv.Itoa(r.VerseEnd))
		}
	}
	return sb.String()
}

// overlaps reports whether verses first..last of chapter fall within r.
func (r Ref) overlaps(chapter, first, last int) bool {
	if chapter != r.Chapter {
		return false
	}
	if r.Verse == 0 {
		return true
	}
	end := max(r.Verse, r.VerseEnd)
	return first <= end && last >= r.Verse
}

// Passage is one located text segment.
type Passage struct {
	Paragraph int
	Chapter   int
	Verse     int
	View      parser.SegmentView
}

// Locate returns the text segments of t that fall under r, following the
// chapter and verse labels in reading order. Text before the first chapter
// label belongs to chapter 1; text before the first verse label of a chapter
// is matched only by whole-chapter references.
func Locate(p *parser.Parser, t *corpus.Text, r Ref) []Passage {
	var (
		out         []Passage
		chapter     = 1
		first, last int
	)
	for pi, para := range t.Paragraphs() {
		contents := para.Contents()
		for _, view := range p.SegmentsFor(para) {
			if view.Kind == parser.SpanLabel {
				chapter, first, last = followLabels(contents, view.Begin, view.End, chapter, first, last)
				continue
			}
			if r.overlaps(chapter, first, last) {
				out = append(out, Passage{Paragraph: pi, Chapter: chapter, Verse: first, View: view})
			}
		}
	}
	return out
}

// followLabels updates the running chapter and verse range from the label
// runs within [from, to).
func followLabels(contents *ftext.String, from, to, chapter, first, last int) (int, int, int) {
	for _, run := range contents.Runs() {
		a, b := max(run.Min, from), min(run.Lim, to)
		if a >= b {
			continue
		}
		label := strings.TrimSpace(contents.Slice(a, b))
		switch run.Style {
		case ChapterStyle:
			if n, err := strconv.Atoi(label); err == nil {
				chapter, first, last = n, 0, 0
			}
		case VerseStyle:
			lo, hi, ok := strings.Cut(label, "-")
			n, err := strconv.Atoi(lo)
			if err != nil {
				continue
			}
			first, last = n, n
			if ok {
				if m, err := strconv.Atoi(hi); err == nil && m >= n {
					last = m
				}
			}
		}
	}
	return chapter, first, last
}
