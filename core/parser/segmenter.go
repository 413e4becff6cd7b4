package parser

import (
	"unicode"
)

// SpanKind tells what produced a segment span.
type SpanKind uint8

// Segment span kinds.
const (
	SpanText SpanKind = iota
	SpanLabel
	SpanBreak
)

func (k SpanKind) String() string {
	switch k {
	case SpanLabel:
		return "label"
	case SpanBreak:
		return "break"
	default:
		return "text"
	}
}

// SegmentSpan is one segment found by the Segmenter. Boundary is the offset
// of the end-of-sentence character that closed the segment, or the start of
// the following segment, or -1 for a last segment with no end-of-sentence.
type SegmentSpan struct {
	Min      int
	Lim      int
	Boundary int
	Kind     SpanKind
}

// State is a state of the segment boundary machine.
type State uint8

// Machine states.
const (
	AwaitingFirstLetter State = iota
	BuildingSegment
	FoundEosChar
	FoundBlankAfterEos
	FoundNonBlankAfterBlankAfterEos
	ProcessingLabel
)

func (s State) String() string {
	switch s {
	case AwaitingFirstLetter:
		return "AwaitingFirstLetter"
	case BuildingSegment:
		return "BuildingSegment"
	case FoundEosChar:
		return "FoundEosChar"
	case FoundBlankAfterEos:
		return "FoundBlankAfterEos"
	case FoundNonBlankAfterBlankAfterEos:
		return "FoundNonBlankAfterBlankAfterEos"
	case ProcessingLabel:
		return "ProcessingLabel"
	}
	return "State(?)"
}

// Segmenter partitions classified text into segment spans.
type Segmenter struct {
	c *Classifier
}

// NewSegmenter returns a segmenter over c.
func NewSegmenter(c *Classifier) Segmenter {
	return Segmenter{c: c}
}

// IsEOS reports whether the character at off ends a sentence. Periods inside
// a run of periods, the first period of an exact three-period ellipsis and a
// period between two decimal digits do not.
func (sg Segmenter) IsEOS(off int) bool {
	r, size := sg.c.RuneAt(off)
	if size == 0 {
		return false
	}
	if r != '.' {
		return r == '?' || r == '!' || unicode.Is(unicode.Sentence_Terminal, r)
	}
	if prev, _ := sg.c.RuneBefore(off); prev == '.' {
		return false
	}
	dots := 0
	for o := off; o < sg.c.Len() && sg.c.raw[o] == '.'; o++ {
		dots++
	}
	if dots == 3 {
		return false
	}
	prev, _ := sg.c.RuneBefore(off)
	next, _ := sg.c.RuneAt(off + 1)
	return !(unicode.IsDigit(prev) && unicode.IsDigit(next))
}

// Segments partitions [min, lim) into segment spans covering the range
// without gaps or overlaps.
func (sg Segmenter) Segments(min, lim int) []SegmentSpan {
	if min < 0 {
		min = 0
	}
	if lim > sg.c.Len() {
		lim = sg.c.Len()
	}
	if min >= lim {
		return nil
	}

	m := &machine{sg: sg, state: AwaitingFirstLetter, start: min}
	for off := min; off < lim; {
		cls, size := sg.c.ClassAt(off)
		if size == 0 {
			break
		}
		if off+size > lim {
			size = lim - off
		}
		m.step(off, cls, size)
		off += size
	}
	m.finish(lim)
	return m.result()
}

type transition func(m *machine, off int, cls Class, size int)

var transitions = [...]transition{
	AwaitingFirstLetter:             (*machine).awaitingFirstLetter,
	BuildingSegment:                 (*machine).buildingSegment,
	FoundEosChar:                    (*machine).foundEosChar,
	FoundBlankAfterEos:              (*machine).foundBlankAfterEos,
	FoundNonBlankAfterBlankAfterEos: (*machine).foundNonBlankAfterBlankAfterEos,
	ProcessingLabel:                 (*machine).processingLabel,
}

// machine is the mutable state of one Segments call.
type machine struct {
	sg    Segmenter
	state State
	spans []SegmentSpan

	// start of the open segment
	start int
	// eos is the offset of the end-of-sentence character of the open segment
	eos int
	// boundary is where the open segment ends if the next one starts here
	boundary int
}

func (m *machine) step(off int, cls Class, size int) {
	switch {
	case cls == ClassBreak:
		m.hardBreak(off, size)
	case cls == ClassLabel && m.state != ProcessingLabel:
		m.enterLabel(off)
	default:
		transitions[m.state](m, off, cls, size)
	}
}

// emit closes a span. A Boundary of -2 is filled in by result.
func (m *machine) emit(min, lim, boundary int, kind SpanKind) {
	if lim <= min {
		return
	}
	m.spans = append(m.spans, SegmentSpan{Min: min, Lim: lim, Boundary: boundary, Kind: kind})
}

// closeOpen ends whatever is open at off.
func (m *machine) closeOpen(off int) {
	switch m.state {
	case AwaitingFirstLetter:
		m.attachPending(off)
	case ProcessingLabel:
		m.emit(m.start, off, -2, SpanLabel)
	case FoundEosChar, FoundBlankAfterEos, FoundNonBlankAfterBlankAfterEos:
		m.emit(m.start, off, m.eos, SpanText)
	default:
		m.emit(m.start, off, -2, SpanText)
	}
}

// attachPending gives letterless material before a hard break or the end of
// text to the preceding segment. A break segment is never extended, so then
// the material stands alone.
func (m *machine) attachPending(off int) {
	if off <= m.start {
		return
	}
	if n := len(m.spans); n > 0 && m.spans[n-1].Kind != SpanBreak && m.spans[n-1].Lim == m.start {
		m.spans[n-1].Lim = off
		return
	}
	m.emit(m.start, off, -2, SpanText)
}

func (m *machine) hardBreak(off, size int) {
	m.closeOpen(off)
	m.emit(off, off+size, -2, SpanBreak)
	m.start = off + size
	m.state = AwaitingFirstLetter
}

// enterLabel opens a label segment. Letterless material awaiting a letter
// joins it; anything else is closed first.
func (m *machine) enterLabel(off int) {
	if m.state != AwaitingFirstLetter {
		m.closeOpen(off)
		m.start = off
	}
	m.state = ProcessingLabel
}

func (m *machine) openAt(off int, cls Class) {
	m.start = off
	if cls == ClassWord {
		m.state = BuildingSegment
	} else {
		m.state = AwaitingFirstLetter
	}
}

func (m *machine) awaitingFirstLetter(off int, cls Class, size int) {
	if cls == ClassWord {
		m.state = BuildingSegment
	}
}

func (m *machine) buildingSegment(off int, cls Class, size int) {
	if cls == ClassPunct && m.sg.IsEOS(off) {
		m.eos = off
		m.boundary = off + size
		m.state = FoundEosChar
	}
}

func (m *machine) foundEosChar(off int, cls Class, size int) {
	switch cls {
	case ClassWhite:
		m.boundary = off + size
		m.state = FoundBlankAfterEos
	case ClassWord:
		// "3.a" or "e.g": the period did not end the sentence after all.
		m.state = BuildingSegment
	default:
		m.boundary = off + size
	}
}

func (m *machine) foundBlankAfterEos(off int, cls Class, size int) {
	switch cls {
	case ClassWhite:
		m.boundary = off + size
	case ClassWord:
		m.emit(m.start, off, m.eos, SpanText)
		m.openAt(off, cls)
	default:
		m.boundary = off
		m.state = FoundNonBlankAfterBlankAfterEos
	}
}

func (m *machine) foundNonBlankAfterBlankAfterEos(off int, cls Class, size int) {
	if cls != ClassWord {
		return
	}
	m.emit(m.start, m.boundary, m.eos, SpanText)
	m.start = m.boundary
	m.state = BuildingSegment
}

func (m *machine) processingLabel(off int, cls Class, size int) {
	if cls == ClassWhite || cls == ClassLabel {
		return
	}
	m.emit(m.start, off, -2, SpanLabel)
	m.openAt(off, cls)
}

func (m *machine) finish(lim int) {
	m.closeOpen(lim)
}

// result fills in boundaries that point at the following segment.
func (m *machine) result() []SegmentSpan {
	for i := range m.spans {
		if m.spans[i].Boundary != -2 {
			continue
		}
		if i+1 < len(m.spans) {
			m.spans[i].Boundary = m.spans[i+1].Min
		} else {
			m.spans[i].Boundary = -1
		}
	}
	return m.spans
}
