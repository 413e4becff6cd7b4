// Package concordance indexes the word occurrences of parsed texts by their
// lower-cased form.
package concordance

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
)

// Ref locates one occurrence of a word.
type Ref struct {
	Text      string // text title
	Paragraph int    // paragraph index within the text
	Segment   int    // segment index within the paragraph
	Offset    int    // byte offset within the paragraph
	Literal   string // the word as written
	Analysed  bool   // the occurrence carries an analysis or gloss
	Gloss     string
}

// Entry is one concordance key with its references in text order.
type Entry struct {
	Key  string
	Refs []Ref
}

// Concordance maps lower-cased wordforms to their occurrences.
type Concordance struct {
	p       *parser.Parser
	entries map[string]*Entry
}

// Build indexes every word occurrence of texts, reparsing stale paragraphs.
func Build(p *parser.Parser, texts ...*corpus.Text) *Concordance {
	c := &Concordance{p: p, entries: make(map[string]*Entry)}
	for _, t := range texts {
		for pi, para := range t.Paragraphs() {
			contents := para.Contents()
			for _, ref := range p.WordOccurrencesIn(para) {
				wf := ref.Occurrence.Wordform()
				key := p.Session().Lower(wf.WS, wf.Form)
				e, ok := c.entries[key]
				if !ok {
					e = &Entry{Key: key}
					c.entries[key] = e
				}
				r := Ref{
					Text:      t.Title,
					Paragraph: pi,
					Segment:   ref.SegmentIndex,
					Offset:    ref.Min,
					Literal:   contents.Slice(ref.Min, ref.Lim),
					Analysed:  !ref.Occurrence.IsTrivial(),
				}
				if g := ref.Occurrence.Gloss(); g != nil {
					r.Gloss = g.Text
				}
				e.Refs = append(e.Refs, r)
			}
		}
	}
	return c
}

// Len returns the number of distinct keys.
func (c *Concordance) Len() int {
	return len(c.entries)
}

// Lookup returns the references of word, lower-cased in writing system ws.
func (c *Concordance) Lookup(ws, word string) []Ref {
	e, ok := c.entries[c.p.Session().Lower(ws, word)]
	if !ok {
		return nil
	}
	return append([]Ref(nil), e.Refs...)
}

// Entries returns all entries sorted by key.
func (c *Concordance) Entries() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ByFrequency returns all entries, most frequent first, ties by key.
func (c *Concordance) ByFrequency() []Entry {
	out := c.Entries()
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].Refs) > len(out[j].Refs) })
	return out
}

// Write prints entries as an aligned table.
func Write(w io.Writer, entries []Entry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t(%d)\t\t\n", e.Key, len(e.Refs))
		for _, r := range e.Refs {
			mark := ""
			if r.Analysed {
				mark = "*"
			}
			fmt.Fprintf(tw, "\t%s %d.%d@%d\t%s%s\t%s\n", r.Text, r.Paragraph+1, r.Segment+1, r.Offset, r.Literal, mark, r.Gloss)
		}
	}
	return tw.Flush()
}
