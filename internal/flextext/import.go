package flextext

import (
	"fmt"
	"io"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
)

var (
	textsExpr      = xpath.MustCompile("/document/interlinear-text")
	titleExpr      = xpath.MustCompile("item[@type='title']")
	paragraphsExpr = xpath.MustCompile("paragraphs/paragraph")
	wordsExpr      = xpath.MustCompile("phrases/phrase/words/word")
	itemsExpr      = xpath.MustCompile("item")
)

// annotation is a glossed or categorised word read from a file, located by
// its byte range in the rebuilt paragraph.
type annotation struct {
	min, lim int
	pos      string
	gloss    string
	glossWS  string
}

// Result describes an import.
type Result struct {
	Texts []*corpus.Text

	// Attached counts annotations reattached to word occurrences.
	Attached int

	// Dropped counts annotations whose word could not be found after parsing.
	Dropped int
}

// Import reads a .flextext document. Paragraph text is rebuilt from the txt
// and punct items, parsed with p, and pos/gls items are attached to the
// resulting word occurrences as analyses and glosses.
func Import(r io.Reader, path string, p *parser.Parser) (*Result, error) {
	root, err := xmlquery.Parse(r)
	if err != nil {
		perr := errors.NewParse("flextext", path, err.Error())
		perr.Err = err
		return nil, perr
	}

	nodes := xmlquery.QuerySelectorAll(root, textsExpr)
	if len(nodes) == 0 {
		return nil, errors.NewParse("flextext", path, "no interlinear-text elements")
	}

	res := &Result{}
	for i, tn := range nodes {
		title := fmt.Sprintf("text %d", i+1)
		if n := xmlquery.QuerySelector(tn, titleExpr); n != nil && strings.TrimSpace(n.InnerText()) != "" {
			title = strings.TrimSpace(n.InnerText())
		}
		var t *corpus.Text
		if guid := tn.SelectAttr("guid"); guid != "" {
			t = corpus.RestoreText(guid, title)
		} else {
			t = corpus.NewText(title)
		}

		var pending [][]annotation
		for _, pn := range xmlquery.QuerySelectorAll(tn, paragraphsExpr) {
			contents, anns, err := readParagraph(pn)
			if err != nil {
				return nil, errors.NewParse("flextext", path, err.Error())
			}
			var para *corpus.Paragraph
			if guid := pn.SelectAttr("guid"); guid != "" {
				para = corpus.RestoreParagraph(guid, contents)
			} else {
				para = corpus.NewParagraph(contents)
			}
			t.AddParagraph(para)
			pending = append(pending, anns)
		}

		p.ReparseText(t, false)
		for pi, para := range t.Paragraphs() {
			for _, ann := range pending[pi] {
				if attach(p, para, ann) {
					res.Attached++
				} else {
					res.Dropped++
				}
			}
		}
		res.Texts = append(res.Texts, t)
	}
	return res, nil
}

func readParagraph(pn *xmlquery.Node) (*ftext.String, []annotation, error) {
	var (
		b    ftext.Builder
		anns []annotation
	)
	for _, wn := range xmlquery.QuerySelectorAll(pn, wordsExpr) {
		var ann annotation
		found := false
		for _, in := range xmlquery.QuerySelectorAll(wn, itemsExpr) {
			text := in.InnerText()
			lang := in.SelectAttr("lang")
			switch in.SelectAttr("type") {
			case ItemText:
				if text == "" {
					continue
				}
				ann.min = b.Len()
				b.Append(text, lang, "")
				ann.lim = b.Len()
				found = true
			case ItemPunct:
				b.Append(text, lang, in.SelectAttr("style"))
			case ItemGloss:
				ann.gloss, ann.glossWS = strings.TrimSpace(text), lang
			case ItemPOS:
				ann.pos = strings.TrimSpace(text)
			}
		}
		if !found && (ann.gloss != "" || ann.pos != "") {
			return nil, nil, fmt.Errorf("word %q has an annotation but no txt item", wn.SelectAttr("guid"))
		}
		if found && (ann.gloss != "" || ann.pos != "") {
			anns = append(anns, ann)
		}
	}
	return b.String(), anns, nil
}

// attach finds the word occurrence covering ann and replaces it with an
// analysis or gloss occurrence. A span covering several words is joined
// into a phrase first.
func attach(p *parser.Parser, para *corpus.Paragraph, ann annotation) bool {
	refs := p.WordOccurrencesIn(para)
	at := -1
	for i, ref := range refs {
		if ref.Min == ann.min {
			at = i
			break
		}
	}
	if at < 0 {
		return false
	}
	ref := refs[at]
	occ := ref.Occurrence

	switch {
	case ref.Lim < ann.lim:
		count := 0
		for _, r := range refs[at:] {
			if r.Segment != ref.Segment || r.Lim > ann.lim {
				break
			}
			count++
		}
		if refs[at+count-1].Lim != ann.lim {
			return false
		}
		joined, err := p.JoinWords(ref.Segment, ref.Index, count)
		if err != nil {
			return false
		}
		occ = joined
	case ref.Lim > ann.lim:
		return false
	}

	wf := occ.Wordform()
	a := findAnalysis(wf, ann)
	if a == nil {
		a = wf.AddAnalysis(ann.pos, "")
	}
	annotated := lexicon.OfAnalysis(a)
	if ann.gloss != "" {
		g := findGloss(a, ann)
		if g == nil {
			g = a.AddGloss(ann.glossWS, ann.gloss)
		}
		annotated = lexicon.OfGloss(g)
	}
	return ref.Segment.SetOccurrence(ref.Index, annotated) == nil
}

// findAnalysis returns an analysis with the same category that already
// carries the wanted gloss, or any with that category when no gloss is wanted.
func findAnalysis(wf *lexicon.Wordform, ann annotation) *lexicon.Analysis {
	for _, a := range wf.Analyses() {
		if a.Category != ann.pos {
			continue
		}
		if ann.gloss == "" || findGloss(a, ann) != nil {
			return a
		}
	}
	return nil
}

func findGloss(a *lexicon.Analysis, ann annotation) *lexicon.Gloss {
	for _, g := range a.Glosses() {
		if g.WS == ann.glossWS && g.Text == ann.gloss {
			return g
		}
	}
	return nil
}
