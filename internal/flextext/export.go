// Package flextext reads and writes FLEx interlinear text (.flextext) files.
//
// Each segment becomes a phrase, each occurrence a word. Words carry a "txt"
// item and, when analysed, "pos" and "gls" items; everything else is written
// as "punct" items that hold the exact source text, white space included, so
// that importing a file rebuilds the paragraph text byte for byte. Label text
// keeps its character style in a "style" attribute.
package flextext

import (
	"encoding/xml"
	"fmt"
	"io"
	"sort"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
)

// Item types.
const (
	ItemTitle  = "title"
	ItemSegnum = "segnum"
	ItemText   = "txt"
	ItemPunct  = "punct"
	ItemGloss  = "gls"
	ItemPOS    = "pos"
)

type xDocument struct {
	XMLName xml.Name `xml:"document"`
	Version string   `xml:"version,attr"`
	Space   string   `xml:"xml:space,attr,omitempty"`
	Texts   []xText  `xml:"interlinear-text"`
}

type xText struct {
	GUID       string       `xml:"guid,attr,omitempty"`
	Items      []xItem      `xml:"item"`
	Paragraphs []xParagraph `xml:"paragraphs>paragraph"`
	Languages  []xLanguage  `xml:"languages>language"`
}

type xParagraph struct {
	GUID    string    `xml:"guid,attr,omitempty"`
	Phrases []xPhrase `xml:"phrases>phrase"`
}

type xPhrase struct {
	GUID  string  `xml:"guid,attr,omitempty"`
	Items []xItem `xml:"item"`
	Words []xWord `xml:"words>word"`
}

type xWord struct {
	GUID  string  `xml:"guid,attr,omitempty"`
	Items []xItem `xml:"item"`
}

type xItem struct {
	Type  string `xml:"type,attr"`
	Lang  string `xml:"lang,attr"`
	Style string `xml:"style,attr,omitempty"`
	Text  string `xml:",chardata"`
}

type xLanguage struct {
	Lang string `xml:"lang,attr"`
}

// Export writes texts as a .flextext document. Stale paragraphs are
// reparsed first.
func Export(w io.Writer, p *parser.Parser, texts ...*corpus.Text) error {
	doc := xDocument{Version: "2", Space: "preserve"}
	for _, t := range texts {
		doc.Texts = append(doc.Texts, exportText(p, t))
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding flextext: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func exportText(p *parser.Parser, t *corpus.Text) xText {
	x := xText{GUID: t.ID}
	langs := make(map[string]bool)

	for pi, para := range t.Paragraphs() {
		xp := xParagraph{GUID: para.ID}
		contents := para.Contents()
		for _, run := range contents.Runs() {
			langs[run.WS] = true
		}
		for _, view := range p.SegmentsFor(para) {
			xp.Phrases = append(xp.Phrases, exportSegment(contents, view, pi))
		}
		x.Paragraphs = append(x.Paragraphs, xp)
	}

	titleLang := ""
	for _, para := range t.Paragraphs() {
		if titleLang = para.Contents().FirstWritingSystem(); titleLang != "" {
			break
		}
	}
	x.Items = []xItem{{Type: ItemTitle, Lang: titleLang, Text: t.Title}}

	ids := make([]string, 0, len(langs))
	for id := range langs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		x.Languages = append(x.Languages, xLanguage{Lang: id})
	}
	return x
}

func exportSegment(contents *ftext.String, view parser.SegmentView, paraIndex int) xPhrase {
	seg := view.Segment
	ph := xPhrase{
		GUID:  seg.ID,
		Items: []xItem{{Type: ItemSegnum, Lang: contents.WritingSystemAt(view.Begin), Text: fmt.Sprintf("%d.%d", paraIndex+1, view.Index+1)}},
	}
	spans := seg.Spans()
	for i, occ := range seg.Occurrences() {
		from, to := seg.Begin()+spans[i].Min, seg.Begin()+spans[i].Lim
		if occ.IsWord() {
			ph.Words = append(ph.Words, exportWord(contents, occ, from, to))
			continue
		}
		ph.Words = append(ph.Words, exportPunct(contents, from, to)...)
	}
	return ph
}

func exportWord(contents *ftext.String, occ lexicon.Occurrence, from, to int) xWord {
	wf := occ.Wordform()
	w := xWord{
		GUID:  wf.ID,
		Items: []xItem{{Type: ItemText, Lang: wf.WS, Text: contents.Slice(from, to)}},
	}
	if a := occ.Analysis(); a != nil && a.Category != "" {
		w.Items = append(w.Items, xItem{Type: ItemPOS, Lang: wf.WS, Text: a.Category})
	}
	if g := occ.Gloss(); g != nil {
		w.Items = append(w.Items, xItem{Type: ItemGloss, Lang: g.WS, Text: g.Text})
	}
	return w
}

// exportPunct splits a non-word span at run boundaries so each piece keeps
// its writing system and style.
func exportPunct(contents *ftext.String, from, to int) []xWord {
	var out []xWord
	for _, run := range contents.Runs() {
		a, b := max(run.Min, from), min(run.Lim, to)
		if a >= b {
			continue
		}
		out = append(out, xWord{Items: []xItem{{
			Type:  ItemPunct,
			Lang:  run.WS,
			Style: run.Style,
			Text:  contents.Slice(a, b),
		}}})
	}
	return out
}
