package parser

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/logging"
)

// DefaultDriftTolerance is the largest word-ordinal distance across which an
// analysed occurrence may still be reattached.
const DefaultDriftTolerance = 100

// DefaultLabelStyles are the styles marking chapter and verse numbers.
var DefaultLabelStyles = []string{"Chapter Number", "Verse Number"}

// Option configures a Parser.
type Option func(*Parser)

// WithDriftTolerance overrides DefaultDriftTolerance. Non-positive values are ignored.
func WithDriftTolerance(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.drift = n
		}
	}
}

// WithLabelStyles replaces the set of label styles.
func WithLabelStyles(styles ...string) Option {
	return func(p *Parser) {
		p.labels = make(map[string]bool, len(styles))
		for _, s := range styles {
			p.labels[s] = true
		}
	}
}

// WithLogger sets the logger used for parse summaries and analysis loss.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// Report describes one paragraph reparse.
type Report struct {
	Paragraph string
	// Changed is true when any segment or occurrence was replaced.
	Changed bool
	// Skipped is true when the paragraph was already current.
	Skipped  bool
	Segments int
	// Reused counts analysed occurrences reattached to the new tokenization.
	Reused int
	// Lost counts analysed occurrences that could not be reattached.
	Lost int
	// PhraseHits counts known phrases recognised without a prior occurrence.
	PhraseHits int
}

// TextReport aggregates the reports of every paragraph in a text.
type TextReport struct {
	Paragraphs int
	Changed    int
	Skipped    int
	Segments   int
	Reused     int
	Lost       int
	PhraseHits int
}

func (t *TextReport) add(r Report) {
	t.Paragraphs++
	if r.Changed {
		t.Changed++
	}
	if r.Skipped {
		t.Skipped++
	}
	t.Segments += r.Segments
	t.Reused += r.Reused
	t.Lost += r.Lost
	t.PhraseHits += r.PhraseHits
}

// Parser segments paragraphs and reconciles their occurrences. Calls are
// serialized by an internal mutex, so one Parser may be shared, but a
// paragraph must not be edited while it is being reparsed.
type Parser struct {
	mu      sync.Mutex
	reg     *wsys.Registry
	repo    lexicon.Repository
	session *Session
	drift   int
	labels  map[string]bool
	logger  *slog.Logger
}

// New creates a parser. A nil session starts a fresh one; the session is
// bound to repo.
func New(reg *wsys.Registry, repo lexicon.Repository, session *Session, opts ...Option) *Parser {
	if reg == nil {
		reg = wsys.NewRegistry(nil)
	}
	if session == nil {
		session = NewSession(reg)
	}
	p := &Parser{
		reg:     reg,
		repo:    repo,
		session: session,
		drift:   DefaultDriftTolerance,
		logger:  logging.GetLogger(),
	}
	WithLabelStyles(DefaultLabelStyles...)(p)
	for _, opt := range opts {
		opt(p)
	}
	session.Bind(repo)
	return p
}

// Session returns the parse session.
func (p *Parser) Session() *Session {
	return p.session
}

// Registry returns the writing system registry.
func (p *Parser) Registry() *wsys.Registry {
	return p.reg
}

// Repository returns the lexicon repository.
func (p *Parser) Repository() lexicon.Repository {
	return p.repo
}

// DriftTolerance returns the configured drift tolerance.
func (p *Parser) DriftTolerance() int {
	return p.drift
}

// Reparse brings para's segmentation up to date and reports whether anything
// changed.
func (p *Parser) Reparse(para *corpus.Paragraph) bool {
	return p.ReparseParagraph(para).Changed
}

// ReparseParagraph reparses para unless its parse is already current.
func (p *Parser) ReparseParagraph(para *corpus.Paragraph) Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reparseLocked(para, false)
}

// ForceReparse reparses para even if its parse is current.
func (p *Parser) ForceReparse(para *corpus.Paragraph) Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reparseLocked(para, true)
}

// ReparseText reparses every paragraph of t in order.
func (p *Parser) ReparseText(t *corpus.Text, force bool) TextReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	var total TextReport
	for _, para := range t.Paragraphs() {
		total.add(p.reparseLocked(para, force))
	}
	return total
}

func (p *Parser) reparseLocked(para *corpus.Paragraph, force bool) Report {
	if para == nil {
		return Report{}
	}
	if !force && para.ParseIsCurrent() {
		return Report{Paragraph: para.ID, Skipped: true, Segments: len(para.Segments())}
	}
	r := p.newReparse(para)
	report := r.run()
	para.MarkParsed()

	logging.ParseSummary(p.logger, para.ID, report.Segments, report.Reused, report.Changed)
	if report.Lost > 0 {
		logging.AnalysisLoss(p.logger, para.ID, report.Lost)
	}
	return report
}

func (p *Parser) classifier(para *corpus.Paragraph) *Classifier {
	return NewClassifier(para.Contents(), p.reg, p.labels)
}

// priorOcc is an analysed occurrence from before the reparse.
type priorOcc struct {
	occ     lexicon.Occurrence
	form    string
	ordinal int
	used    bool
}

// reparse holds the working state of one paragraph reparse.
type reparse struct {
	p    *Parser
	para *corpus.Paragraph
	cls  *Classifier
	sc   Scanner

	prior []priorOcc
	// byKey maps a lower-cased first word to unconsumed indices into prior,
	// ascending.
	byKey   map[string][]int
	phrases map[string][]*lexicon.Wordform
	ordinal int
	report  Report
}

func (p *Parser) newReparse(para *corpus.Paragraph) *reparse {
	cls := p.classifier(para)
	r := &reparse{
		p:      p,
		para:   para,
		cls:    cls,
		sc:     NewScanner(cls, p.session),
		byKey:  make(map[string][]int),
		report: Report{Paragraph: para.ID},
	}
	r.snapshot()
	r.loadPhrases()
	return r
}

// snapshot records the analysed word occurrences in document order with
// their word ordinals. A phrase counts as one word.
func (r *reparse) snapshot() {
	ordinal := 0
	for _, seg := range r.para.Segments() {
		for _, occ := range seg.Occurrences() {
			if !occ.IsWord() {
				continue
			}
			if !occ.IsTrivial() {
				key := r.firstWordKey(occ.Text())
				r.byKey[key] = append(r.byKey[key], len(r.prior))
				r.prior = append(r.prior, priorOcc{occ: occ, form: occ.Text(), ordinal: ordinal})
			}
			ordinal++
		}
	}
}

// loadPhrases indexes the repository's multi-word forms by first word,
// longest first.
func (r *reparse) loadPhrases() {
	r.phrases = make(map[string][]*lexicon.Wordform)
	for _, ph := range r.p.repo.Phrases(r.cls.PrimaryID()) {
		key := r.firstWordKey(ph.Form)
		r.phrases[key] = append(r.phrases[key], ph)
	}
	for _, list := range r.phrases {
		sort.SliceStable(list, func(i, j int) bool {
			if len(list[i].Form) != len(list[j].Form) {
				return len(list[i].Form) > len(list[j].Form)
			}
			return list[i].Form < list[j].Form
		})
	}
}

func (r *reparse) firstWordKey(form string) string {
	if i := strings.IndexFunc(form, unicode.IsSpace); i >= 0 {
		form = form[:i]
	}
	return r.sc.Lower(form)
}

func (r *reparse) run() Report {
	spans := NewSegmenter(r.cls).Segments(0, r.cls.Len())
	old := r.para.Segments()
	changed := len(old) != len(spans)

	segs := make([]*corpus.Segment, len(spans))
	for i, sp := range spans {
		if i < len(old) {
			segs[i] = old[i]
			if segs[i].Begin() != sp.Min {
				segs[i].SetBegin(sp.Min)
				changed = true
			}
			continue
		}
		segs[i] = r.para.NewSegment(sp.Min)
	}
	r.para.SetSegments(segs)
	r.p.session.forget(r.para.ID)

	for i, sp := range spans {
		occs, rel := r.segmentOccurrences(sp)
		if !segs[i].SameOccurrences(occs, rel) {
			segs[i].SetOccurrences(occs, rel)
			changed = true
		}
		for j, occ := range occs {
			if occ.IsWord() {
				r.p.session.touch(occ.Wordform(), Ref{Paragraph: r.para.ID, Segment: segs[i].ID, Index: j})
			}
		}
	}

	for _, po := range r.prior {
		if !po.used {
			r.report.Lost++
		}
	}
	r.report.Changed = changed
	r.report.Segments = len(spans)
	return r.report
}

// segmentOccurrences tokenizes one segment span into punctuation and word
// occurrences whose spans tile the segment exactly.
func (r *reparse) segmentOccurrences(sp SegmentSpan) ([]lexicon.Occurrence, []corpus.Span) {
	var (
		occs []lexicon.Occurrence
		rel  []corpus.Span
	)
	add := func(occ lexicon.Occurrence, min, lim int) {
		occs = append(occs, occ)
		rel = append(rel, corpus.Span{Min: min - sp.Min, Lim: lim - sp.Min})
	}
	punct := func(min, lim int) {
		add(lexicon.OfPunctuation(r.p.repo.FindOrCreatePunctuation(r.cls.raw[min:lim])), min, lim)
	}

	pos := sp.Min
	for {
		w, ok := r.sc.NextWord(pos, sp.Lim)
		if !ok {
			break
		}
		if w.Min > pos {
			punct(pos, w.Min)
		}
		occ, lim := r.wordAt(w, sp.Lim)
		add(occ, w.Min, lim)
		pos = lim
	}
	if pos < sp.Lim {
		punct(pos, sp.Lim)
	}
	return occs, rel
}

// wordAt chooses the occurrence for the word w: a reattached analysed
// occurrence, a known phrase, or the plain wordform. It returns the occurrence
// and where it ends.
func (r *reparse) wordAt(w Word, segLim int) (lexicon.Occurrence, int) {
	key := r.sc.Lower(w.Text)
	defer func() { r.ordinal++ }()

	if occ, lim, ok := r.reuse(key, w, segLim); ok {
		r.report.Reused++
		return occ, lim
	}
	if ph, lim, ok := r.phraseAt(key, w, segLim); ok {
		r.report.PhraseHits++
		return lexicon.OfWordform(ph), lim
	}
	return lexicon.OfWordform(r.p.repo.FindOrCreateWordform(w.Text, r.cls.PrimaryID())), w.Lim
}

// reuse looks for the analysed occurrence keyed by key whose old ordinal is
// closest to the current one.
func (r *reparse) reuse(key string, w Word, segLim int) (lexicon.Occurrence, int, bool) {
	list := r.byKey[key]
	if len(list) == 0 {
		return lexicon.Occurrence{}, 0, false
	}
	i := r.ordinal
	best, dist := -1, 0
	for n, idx := range list {
		d := abs(r.prior[idx].ordinal - i)
		if best < 0 || d < dist {
			best, dist = n, d
		}
	}
	if dist > r.p.drift {
		return lexicon.Occurrence{}, 0, false
	}

	c := &r.prior[list[best]]
	end, ok := r.sc.MatchWordAt(c.form, w.Min, segLim)
	if !ok {
		return lexicon.Occurrence{}, 0, false
	}
	// The candidate lies ahead of us: if the same word comes again nearer to
	// the candidate's old position, leave the candidate for that one.
	if c.ordinal > i {
		if k, ok := r.sc.NextOccurrenceOf(key, w.Lim, r.cls.Len()); ok && abs(i+1+k-c.ordinal) < dist {
			return lexicon.Occurrence{}, 0, false
		}
	}

	c.used = true
	r.byKey[key] = list[best+1:]
	return c.occ, end, true
}

// phraseAt finds the longest known phrase starting at w that fits in the
// segment, was not broken by hand in this paragraph and does not swallow a
// word with a live analysed candidate.
func (r *reparse) phraseAt(key string, w Word, segLim int) (*lexicon.Wordform, int, bool) {
	for _, ph := range r.phrases[key] {
		if r.para.PhraseSuppressed(ph.ID) {
			continue
		}
		end, ok := r.sc.MatchWordAt(ph.Form, w.Min, segLim)
		if !ok {
			continue
		}
		if r.analysedWithin(w.Lim, end) {
			continue
		}
		return ph, end, true
	}
	return nil, 0, false
}

func (r *reparse) analysedWithin(from, lim int) bool {
	ordinal := r.ordinal + 1
	for _, inner := range r.sc.Words(from, lim) {
		for _, idx := range r.byKey[r.sc.Lower(inner.Text)] {
			if abs(r.prior[idx].ordinal-ordinal) <= r.p.drift {
				return true
			}
		}
		ordinal++
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// JoinWords replaces count adjacent word occurrences of seg, starting at
// occurrence index first and separated only by white space, with one
// occurrence of the multi-word wordform they spell. Words that carry an
// analysis cannot be joined, and the paragraph's parse must be current.
func (p *Parser) JoinWords(seg *corpus.Segment, first, count int) (lexicon.Occurrence, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if count < 2 {
		return lexicon.Occurrence{}, errors.NewValidation("count", "a phrase needs at least two words")
	}
	para := seg.Paragraph()
	if para == nil || seg.Index() < 0 {
		return lexicon.Occurrence{}, errors.NewValidation("segment", "segment is not attached to a paragraph")
	}
	if !para.ParseIsCurrent() {
		return lexicon.Occurrence{}, errors.NewValidation("segment", "parse is stale; reparse the paragraph first")
	}
	occs, spans := seg.Occurrences(), seg.Spans()
	if first < 0 || first >= len(occs) || !occs[first].IsWord() {
		return lexicon.Occurrence{}, errors.NewValidation("first", "occurrence is not a word")
	}

	last, words := first, 0
	for i := first; i < len(occs) && words < count; i++ {
		occ := occs[i]
		switch {
		case occ.IsWord():
			if !occ.IsTrivial() {
				return lexicon.Occurrence{}, &errors.ValidationError{Field: "first", Value: occ.Text(), Message: "word carries an analysis"}
			}
			words++
			last = i
		case strings.TrimSpace(occ.Text()) == "":
		default:
			return lexicon.Occurrence{}, &errors.ValidationError{Field: "first", Value: occ.Text(), Message: "words are not separated by white space only"}
		}
	}
	if words < count {
		return lexicon.Occurrence{}, errors.NewValidation("count", "not enough words in segment")
	}

	cls := p.classifier(para)
	min, lim := seg.Begin()+spans[first].Min, seg.Begin()+spans[last].Lim
	phrase := lexicon.OfWordform(p.repo.FindOrCreateWordform(cls.raw[min:lim], cls.PrimaryID()))
	para.AllowPhrase(phrase.Wordform().ID)

	newOccs := append(append(occs[:first:first], phrase), occs[last+1:]...)
	newSpans := append(append(spans[:first:first], corpus.Span{Min: spans[first].Min, Lim: spans[last].Lim}), spans[last+1:]...)
	seg.SetOccurrences(newOccs, newSpans)
	return phrase, nil
}

// BreakPhrase splits the phrase occurrence at index back into single-word
// occurrences. The phrase wordform stays in the repository but is no longer
// recognised in this paragraph until JoinWords joins it there again.
func (p *Parser) BreakPhrase(seg *corpus.Segment, index int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	occ, span, ok := seg.At(index)
	if !ok {
		return errors.NewValidation("index", "occurrence index out of range")
	}
	if w := occ.Wordform(); w == nil || !w.IsPhrase() {
		return &errors.ValidationError{Field: "index", Value: occ.Text(), Message: "occurrence is not a phrase"}
	}
	if !occ.IsTrivial() {
		return &errors.ValidationError{Field: "index", Value: occ.Text(), Message: "phrase carries an analysis"}
	}
	para := seg.Paragraph()
	if para == nil || seg.Index() < 0 {
		return errors.NewValidation("segment", "segment is not attached to a paragraph")
	}
	if !para.ParseIsCurrent() {
		return errors.NewValidation("segment", "parse is stale; reparse the paragraph first")
	}

	cls := p.classifier(para)
	sc := NewScanner(cls, p.session)
	min, lim := seg.Begin()+span.Min, seg.Begin()+span.Lim

	var (
		parts []lexicon.Occurrence
		rel   []corpus.Span
	)
	add := func(o lexicon.Occurrence, a, b int) {
		parts = append(parts, o)
		rel = append(rel, corpus.Span{Min: a - seg.Begin(), Lim: b - seg.Begin()})
	}
	pos := min
	for _, w := range sc.Words(min, lim) {
		if w.Min > pos {
			add(lexicon.OfPunctuation(p.repo.FindOrCreatePunctuation(cls.raw[pos:w.Min])), pos, w.Min)
		}
		add(lexicon.OfWordform(p.repo.FindOrCreateWordform(w.Text, cls.PrimaryID())), w.Min, w.Lim)
		pos = w.Lim
	}
	if pos < lim {
		add(lexicon.OfPunctuation(p.repo.FindOrCreatePunctuation(cls.raw[pos:lim])), pos, lim)
	}

	occs, spans := seg.Occurrences(), seg.Spans()
	seg.SetOccurrences(
		append(append(occs[:index:index], parts...), occs[index+1:]...),
		append(append(spans[:index:index], rel...), spans[index+1:]...),
	)
	para.SuppressPhrase(occ.Wordform().ID)
	return nil
}
