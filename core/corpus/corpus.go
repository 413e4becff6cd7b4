// Package corpus holds the containers that own text: a Text owns Paragraphs,
// a Paragraph owns its formatted contents and an ordered list of Segments, and
// a Segment owns an ordered list of occurrences.
//
// Containers are plain mutable values. They are not safe for concurrent
// mutation; callers serialize edits and reparses per paragraph.
package corpus

import (
	"encoding/binary"
	"encoding/hex"
	"sort"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
)

// Text is an ordered collection of paragraphs with a title.
type Text struct {
	ID         string
	Title      string
	paragraphs []*Paragraph
}

// NewText creates an empty text with a fresh ID.
func NewText(title string) *Text {
	return RestoreText(uuid.NewString(), title)
}

// RestoreText creates an empty text with a known ID.
func RestoreText(id, title string) *Text {
	return &Text{ID: id, Title: title}
}

// Paragraphs returns the paragraphs in order.
func (t *Text) Paragraphs() []*Paragraph {
	return append([]*Paragraph(nil), t.paragraphs...)
}

// AddParagraph appends p and makes t its owner.
func (t *Text) AddParagraph(p *Paragraph) {
	p.owner = t
	t.paragraphs = append(t.paragraphs, p)
}

// Paragraph returns the i-th paragraph, or nil when out of range.
func (t *Text) Paragraph(i int) *Paragraph {
	if i < 0 || i >= len(t.paragraphs) {
		return nil
	}
	return t.paragraphs[i]
}

// Paragraph is one block of formatted text and its segmentation.
type Paragraph struct {
	ID       string
	contents *ftext.String
	segments []*Segment
	marker   string
	owner    *Text

	// broken holds IDs of phrase wordforms a user split in this paragraph.
	broken map[string]bool
}

// NewParagraph creates a paragraph with a fresh ID.
func NewParagraph(contents *ftext.String) *Paragraph {
	return RestoreParagraph(uuid.NewString(), contents)
}

// RestoreParagraph creates a paragraph with a known ID.
func RestoreParagraph(id string, contents *ftext.String) *Paragraph {
	if contents == nil {
		contents = &ftext.String{}
	}
	return &Paragraph{ID: id, contents: contents}
}

// Text returns the owning text, if any.
func (p *Paragraph) Text() *Text {
	return p.owner
}

// Contents returns the paragraph's formatted text.
func (p *Paragraph) Contents() *ftext.String {
	return p.contents
}

// SetContents replaces the paragraph's text. Existing segments are kept until
// the next reparse reconciles them.
func (p *Paragraph) SetContents(s *ftext.String) {
	if s == nil {
		s = &ftext.String{}
	}
	p.contents = s
}

// SuppressPhrase stops the phrase wordform id from being recognised in p
// again.
func (p *Paragraph) SuppressPhrase(id string) {
	if p.broken == nil {
		p.broken = make(map[string]bool)
	}
	p.broken[id] = true
}

// AllowPhrase lifts a suppression set by SuppressPhrase.
func (p *Paragraph) AllowPhrase(id string) {
	delete(p.broken, id)
}

// PhraseSuppressed reports whether the phrase wordform id is suppressed in p.
func (p *Paragraph) PhraseSuppressed(id string) bool {
	return p.broken[id]
}

// SuppressedPhrases returns the suppressed phrase IDs, sorted.
func (p *Paragraph) SuppressedPhrases() []string {
	ids := make([]string, 0, len(p.broken))
	for id := range p.broken {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Segments returns the segments in order.
func (p *Paragraph) Segments() []*Segment {
	return append([]*Segment(nil), p.segments...)
}

// SetSegments replaces the segment list and takes ownership of each segment.
func (p *Paragraph) SetSegments(segs []*Segment) {
	for _, s := range segs {
		s.owner = p
	}
	p.segments = append([]*Segment(nil), segs...)
}

// NewSegment creates an unattached segment owned by p.
func (p *Paragraph) NewSegment(begin int) *Segment {
	return p.RestoreSegment(uuid.NewString(), begin)
}

// RestoreSegment creates an unattached segment with a known ID.
func (p *Paragraph) RestoreSegment(id string, begin int) *Segment {
	return &Segment{ID: id, begin: begin, owner: p}
}

// SegmentEnd returns where segment i ends: the next segment's begin, or the
// end of the text for the last one.
func (p *Paragraph) SegmentEnd(i int) int {
	if i+1 < len(p.segments) {
		return p.segments[i+1].begin
	}
	return p.contents.Len()
}

// ContentHash returns the BLAKE3 digest of the paragraph's text and runs.
func (p *Paragraph) ContentHash() string {
	h := blake3.New()
	var buf [8]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		_, _ = h.Write(buf[:])
		_, _ = h.Write([]byte(s))
	}
	writeString(p.contents.Text())
	for _, r := range p.contents.Runs() {
		binary.LittleEndian.PutUint64(buf[:], uint64(r.Lim))
		_, _ = h.Write(buf[:])
		writeString(r.WS)
		writeString(r.Style)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// ParseIsCurrent reports whether the segmentation was computed from the
// current contents.
func (p *Paragraph) ParseIsCurrent() bool {
	return p.marker != "" && p.marker == p.ContentHash()
}

// MarkParsed records that the segmentation matches the current contents.
func (p *Paragraph) MarkParsed() {
	p.marker = p.ContentHash()
}

// InvalidateParse clears the parse marker.
func (p *Paragraph) InvalidateParse() {
	p.marker = ""
}

// ParseMarker returns the stored marker, empty when never parsed.
func (p *Paragraph) ParseMarker() string {
	return p.marker
}

// RestoreParseMarker sets the marker loaded from storage.
func (p *Paragraph) RestoreParseMarker(marker string) {
	p.marker = marker
}

// Span is a byte range relative to the owning segment's begin offset.
type Span struct {
	Min int
	Lim int
}

// Len returns the span length.
func (s Span) Len() int {
	return s.Lim - s.Min
}

// Segment is a sentence or label sized part of a paragraph.
type Segment struct {
	ID    string
	begin int
	occs  []lexicon.Occurrence
	spans []Span
	owner *Paragraph
}

// Paragraph returns the owning paragraph.
func (s *Segment) Paragraph() *Paragraph {
	return s.owner
}

// Begin returns the segment's start offset in the paragraph.
func (s *Segment) Begin() int {
	return s.begin
}

// SetBegin moves the segment's start offset.
func (s *Segment) SetBegin(begin int) {
	s.begin = begin
}

// Index returns the segment's position in its paragraph, or -1.
func (s *Segment) Index() int {
	if s.owner == nil {
		return -1
	}
	for i, o := range s.owner.segments {
		if o == s {
			return i
		}
	}
	return -1
}

// End returns the segment's end offset, or its begin when unattached.
func (s *Segment) End() int {
	i := s.Index()
	if i < 0 {
		return s.begin
	}
	return s.owner.SegmentEnd(i)
}

// Text returns the literal text of the segment.
func (s *Segment) Text() string {
	if s.owner == nil {
		return ""
	}
	return s.owner.contents.Slice(s.begin, s.End())
}

// Len returns the number of occurrences.
func (s *Segment) Len() int {
	return len(s.occs)
}

// Occurrences returns the occurrences in order.
func (s *Segment) Occurrences() []lexicon.Occurrence {
	return append([]lexicon.Occurrence(nil), s.occs...)
}

// Spans returns the relative span of each occurrence.
func (s *Segment) Spans() []Span {
	return append([]Span(nil), s.spans...)
}

// At returns occurrence i and its relative span.
func (s *Segment) At(i int) (lexicon.Occurrence, Span, bool) {
	if i < 0 || i >= len(s.occs) {
		return lexicon.Occurrence{}, Span{}, false
	}
	return s.occs[i], s.spans[i], true
}

// SetOccurrences replaces the occurrence sequence. occs and spans are
// parallel and must have the same length.
func (s *Segment) SetOccurrences(occs []lexicon.Occurrence, spans []Span) {
	errors.Assertf(len(occs) == len(spans), "segment %s: %d occurrences, %d spans", s.ID, len(occs), len(spans))
	s.occs = append([]lexicon.Occurrence(nil), occs...)
	s.spans = append([]Span(nil), spans...)
}

// SetOccurrence replaces occurrence i without moving its span. Both the old
// and new occurrence must name the same wordform.
func (s *Segment) SetOccurrence(i int, occ lexicon.Occurrence) error {
	if i < 0 || i >= len(s.occs) {
		return errors.NewValidation("index", "occurrence index out of range")
	}
	if !s.occs[i].IsWord() || occ.Wordform() != s.occs[i].Wordform() {
		return errors.NewValidation("occurrence", "replacement must refine the same wordform")
	}
	s.occs[i] = occ
	return nil
}

// SameOccurrences reports whether the segment already holds exactly occs at spans.
func (s *Segment) SameOccurrences(occs []lexicon.Occurrence, spans []Span) bool {
	if len(occs) != len(s.occs) || len(spans) != len(s.spans) {
		return false
	}
	for i := range occs {
		if occs[i] != s.occs[i] || spans[i] != s.spans[i] {
			return false
		}
	}
	return true
}
