package parser

import (
	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
)

// SegmentView describes one segment of a parsed paragraph.
type SegmentView struct {
	Segment  *corpus.Segment
	Index    int
	Begin    int
	End      int
	Text     string
	Boundary int
	Kind     SpanKind
}

// OccurrenceRef locates one occurrence in a parsed paragraph. Min and Lim
// are absolute offsets into the paragraph text.
type OccurrenceRef struct {
	Segment      *corpus.Segment
	SegmentIndex int
	Index        int
	Min          int
	Lim          int
	Occurrence   lexicon.Occurrence
}

// SegmentsFor returns the segments of para, reparsing first if its parse is
// stale.
func (p *Parser) SegmentsFor(para *corpus.Paragraph) []SegmentView {
	if para == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	spans := p.currentSpans(para)
	segs := para.Segments()
	views := make([]SegmentView, len(segs))
	for i, seg := range segs {
		views[i] = SegmentView{
			Segment:  seg,
			Index:    i,
			Begin:    seg.Begin(),
			End:      para.SegmentEnd(i),
			Text:     seg.Text(),
			Boundary: spans[i].Boundary,
			Kind:     spans[i].Kind,
		}
	}
	return views
}

// currentSpans reparses para when needed and returns spans matching its
// segments one to one.
func (p *Parser) currentSpans(para *corpus.Paragraph) []SegmentSpan {
	p.reparseLocked(para, false)
	cls := p.classifier(para)
	spans := NewSegmenter(cls).Segments(0, cls.Len())
	if len(spans) != len(para.Segments()) {
		// The marker was current but the stored segmentation came from
		// different label styles.
		p.reparseLocked(para, true)
	}
	return spans
}

// WordOccurrencesIn returns every word occurrence of para in document order,
// reparsing first if its parse is stale.
func (p *Parser) WordOccurrencesIn(para *corpus.Paragraph) []OccurrenceRef {
	if para == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentSpans(para)
	return collect(para, lexicon.Occurrence.IsWord)
}

// AnalysisOccurrencesIn returns the word occurrences of para that carry an
// analysis or gloss, in document order.
func (p *Parser) AnalysisOccurrencesIn(para *corpus.Paragraph) []OccurrenceRef {
	if para == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentSpans(para)
	return collect(para, func(o lexicon.Occurrence) bool {
		return o.IsWord() && !o.IsTrivial()
	})
}

func collect(para *corpus.Paragraph, keep func(lexicon.Occurrence) bool) []OccurrenceRef {
	var out []OccurrenceRef
	for si, seg := range para.Segments() {
		occs, spans := seg.Occurrences(), seg.Spans()
		for i, occ := range occs {
			if !keep(occ) {
				continue
			}
			out = append(out, OccurrenceRef{
				Segment:      seg,
				SegmentIndex: si,
				Index:        i,
				Min:          seg.Begin() + spans[i].Min,
				Lim:          seg.Begin() + spans[i].Lim,
				Occurrence:   occ,
			})
		}
	}
	return out
}
