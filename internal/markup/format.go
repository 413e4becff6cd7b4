package markup

import (
	"bufio"
	"io"
	"strings"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
)

// Format writes texts as markup. Runs in writing system ws are written as
// plain text; other unstyled runs are wrapped in \ws markers.
func Format(w io.Writer, ws string, texts ...*corpus.Text) error {
	bw := bufio.NewWriter(w)
	for _, t := range texts {
		bw.WriteString(`\id ` + escape(t.Title) + "\n")
		for _, p := range t.Paragraphs() {
			formatParagraph(bw, ws, p.Contents())
		}
	}
	return bw.Flush()
}

// FormatString returns texts formatted as markup.
func FormatString(ws string, texts ...*corpus.Text) string {
	var sb strings.Builder
	Format(&sb, ws, texts...)
	return sb.String()
}

func formatParagraph(bw *bufio.Writer, ws string, s *ftext.String) {
	runs := s.Runs()
	start := 0
	if len(runs) > 0 && runs[0].Style == ChapterStyle {
		bw.WriteString(`\c ` + s.Slice(runs[0].Min, runs[0].Lim) + "\n")
		start = 1
		// The space after a leading chapter label is implied by \c.
		if len(runs) > 1 && runs[1].Style == "" && strings.HasPrefix(s.Slice(runs[1].Min, runs[1].Lim), " ") {
			runs[1].Min++
		}
	}
	bw.WriteString(`\p `)
	for _, r := range runs[start:] {
		text := s.Slice(r.Min, r.Lim)
		switch {
		case r.Style == ChapterStyle:
			bw.WriteString("\n" + `\c ` + text + "\n" + `\p `)
		case r.Style == VerseStyle:
			bw.WriteString(`\v ` + text)
		case r.WS != ws && r.WS != "":
			bw.WriteString(`\ws ` + r.WS + " " + escape(text) + `\ws*`)
		default:
			bw.WriteString(escape(text))
		}
	}
	bw.WriteString("\n")
}

var escaper = strings.NewReplacer(`\`, `\\`, LineSeparator, `\br `, "\n", `\br `)

func escape(s string) string {
	return escaper.Replace(s)
}
