package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/logging"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/markup"
)

// GlossAddCmd glosses a word or phrase everywhere it occurs in a text.
type GlossAddCmd struct {
	Text  string `arg:"" help:"Text ID or title"`
	Word  string `arg:"" help:"Word, or words separated by spaces to gloss as a phrase"`
	Gloss string `arg:"" help:"Gloss text"`
	POS   string `name:"pos" help:"Grammatical category of the analysis"`
	Lang  string `help:"Writing system of the gloss (default: configured default)"`
	Ref   string `help:"Only occurrences within chapter[:verse[-verse]]"`
}

func (c *GlossAddCmd) Run(ctx context.Context, g *Globals) error {
	w, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	t, err := w.store.FindText(ctx, w.repo, c.Text)
	if err != nil {
		return err
	}
	words := strings.Fields(c.Word)
	if len(words) == 0 {
		return errors.NewValidation("word", "empty")
	}
	lang := c.Lang
	if lang == "" {
		lang = w.cfg.DefaultWritingSystem
	}

	var within map[*corpus.Segment]bool
	if c.Ref != "" {
		ref, err := markup.ParseRef(c.Ref)
		if err != nil {
			return err
		}
		within = make(map[*corpus.Segment]bool)
		for _, ps := range markup.Locate(w.parser, t, ref) {
			within[ps.View.Segment] = true
		}
	}

	gs := glosser{p: w.parser, words: words, pos: c.POS, lang: lang, text: c.Gloss, glosses: make(map[*lexicon.Wordform]*lexicon.Gloss)}
	count := 0
	for _, para := range t.Paragraphs() {
		count += gs.paragraph(para, within)
	}
	if count == 0 {
		return errors.NewNotFound("word", c.Word)
	}
	if err := w.store.Save(ctx, w.repo, t); err != nil {
		return err
	}
	fmt.Fprintf(g.stdout(), "glossed %d occurrence(s) of %q as %q\n", count, c.Word, c.Gloss)
	return nil
}

// GlossBreakCmd splits a phrase back into its words wherever it occurs,
// dropping the phrase's gloss at those occurrences.
type GlossBreakCmd struct {
	Text   string `arg:"" help:"Text ID or title"`
	Phrase string `arg:"" help:"Phrase to split"`
}

func (c *GlossBreakCmd) Run(ctx context.Context, g *Globals) error {
	w, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	t, err := w.store.FindText(ctx, w.repo, c.Text)
	if err != nil {
		return err
	}
	phrase := strings.Join(strings.Fields(c.Phrase), " ")
	s := w.parser.Session()

	count := 0
	for _, para := range t.Paragraphs() {
		refs := w.parser.WordOccurrencesIn(para)
		// Right to left, so splitting does not shift the indices still to visit.
		for i := len(refs) - 1; i >= 0; i-- {
			wf := refs[i].Occurrence.Wordform()
			if !wf.IsPhrase() || s.Lower(wf.WS, wf.Form) != s.Lower(wf.WS, phrase) {
				continue
			}
			if !refs[i].Occurrence.IsTrivial() {
				if err := refs[i].Segment.SetOccurrence(refs[i].Index, lexicon.OfWordform(wf)); err != nil {
					return err
				}
			}
			if err := w.parser.BreakPhrase(refs[i].Segment, refs[i].Index); err != nil {
				return err
			}
			count++
		}
	}
	if count == 0 {
		return errors.NewNotFound("phrase", phrase)
	}
	if err := w.store.Save(ctx, w.repo, t); err != nil {
		return err
	}
	fmt.Fprintf(g.stdout(), "split %d occurrence(s) of %q\n", count, phrase)
	return nil
}

// glosser attaches one gloss to every match of a word sequence.
type glosser struct {
	p       *parser.Parser
	words   []string
	pos     string
	lang    string
	text    string
	glosses map[*lexicon.Wordform]*lexicon.Gloss
}

// paragraph glosses the matches in para, joining multi-word matches into
// phrases first, and returns how many it glossed.
func (g *glosser) paragraph(para *corpus.Paragraph, within map[*corpus.Segment]bool) int {
	count := 0
	from := 0
	for {
		refs := g.p.WordOccurrencesIn(para)
		at, n := g.next(refs, from, within)
		if at < 0 {
			return count
		}
		ref := refs[at]
		occ := ref.Occurrence
		if n > 1 {
			joined, err := g.p.JoinWords(ref.Segment, ref.Index, n)
			if err != nil {
				logging.Debug("phrase_join_skipped", "paragraph", para.ID, "at", ref.Min, "error", err)
				from = ref.Lim
				continue
			}
			occ = joined
		}
		if err := ref.Segment.SetOccurrence(ref.Index, lexicon.OfGloss(g.gloss(occ.Wordform()))); err == nil {
			count++
		}
		from = refs[at+n-1].Lim
	}
}

// next finds the first match starting at or after offset from. It returns
// the index of its first word and the number of word occurrences it covers.
func (g *glosser) next(refs []parser.OccurrenceRef, from int, within map[*corpus.Segment]bool) (int, int) {
	phrase := strings.Join(g.words, " ")
	for i, ref := range refs {
		if ref.Min < from || (within != nil && !within[ref.Segment]) {
			continue
		}
		ws := ref.Occurrence.Wordform().WS
		if g.equal(ws, ref.Occurrence.Text(), phrase) {
			return i, 1
		}
		if len(g.words) == 1 || i+len(g.words) > len(refs) {
			continue
		}
		match := true
		for k, word := range g.words {
			r := refs[i+k]
			if r.Segment != ref.Segment || !g.equal(ws, r.Occurrence.Text(), word) {
				match = false
				break
			}
		}
		if match {
			return i, len(g.words)
		}
	}
	return -1, 0
}

func (g *glosser) equal(ws, a, b string) bool {
	s := g.p.Session()
	return s.Lower(ws, a) == s.Lower(ws, b)
}

// gloss returns the gloss for wf, reusing a matching analysis and gloss
// already in the lexicon.
func (g *glosser) gloss(wf *lexicon.Wordform) *lexicon.Gloss {
	if gl, ok := g.glosses[wf]; ok {
		return gl
	}
	var analysis *lexicon.Analysis
	for _, a := range wf.Analyses() {
		if a.Category != g.pos {
			continue
		}
		analysis = a
		for _, gl := range a.Glosses() {
			if gl.WS == g.lang && gl.Text == g.text {
				g.glosses[wf] = gl
				return gl
			}
		}
	}
	if analysis == nil {
		analysis = wf.AddAnalysis(g.pos, "")
	}
	gl := analysis.AddGloss(g.lang, g.text)
	g.glosses[wf] = gl
	return gl
}

// writeInterlinear prints a segment followed by one line per word with its
// category and gloss.
func writeInterlinear(w io.Writer, p *parser.Parser, para *corpus.Paragraph, view parser.SegmentView) {
	fmt.Fprintln(w, strings.TrimSpace(view.Text))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	contents := para.Contents()
	for _, ref := range p.WordOccurrencesIn(para) {
		if ref.Segment != view.Segment {
			continue
		}
		category, gloss := "", ""
		if a := ref.Occurrence.Analysis(); a != nil {
			category = a.Category
		}
		if gl := ref.Occurrence.Gloss(); gl != nil {
			gloss = gl.Text
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", contents.Slice(ref.Min, ref.Lim), category, gloss)
	}
	tw.Flush()
	fmt.Fprintln(w)
}
