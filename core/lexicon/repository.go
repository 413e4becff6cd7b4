package lexicon

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Repository finds or creates canonical lexicon objects.
type Repository interface {
	// FindWordform looks up the wordform for an exact form in writing system ws.
	FindWordform(form, ws string) (*Wordform, bool)

	// FindOrCreateWordform returns the canonical wordform, creating it if absent.
	FindOrCreateWordform(form, ws string) *Wordform

	// FindOrCreatePunctuation returns the canonical punctuation form for text.
	FindOrCreatePunctuation(text string) *Punctuation

	// Phrases returns the multi-word wordforms known in writing system ws.
	Phrases(ws string) []*Wordform
}

type wordformKey struct {
	form string
	ws   string
}

func keyFor(form, ws string) wordformKey {
	return wordformKey{form: norm.NFC.String(form), ws: ws}
}

// Memory is an in-memory Repository. Forms are compared after NFC
// normalization, so composed and decomposed spellings share one wordform.
// It is safe for concurrent use.
type Memory struct {
	mu        sync.RWMutex
	wordforms map[wordformKey]*Wordform
	order     []*Wordform
	byID      map[string]*Wordform
	punct     map[string]*Punctuation
	punctByID map[string]*Punctuation
	phrases   map[string][]*Wordform
}

// NewMemory creates an empty repository.
func NewMemory() *Memory {
	return &Memory{
		wordforms: make(map[wordformKey]*Wordform),
		byID:      make(map[string]*Wordform),
		punct:     make(map[string]*Punctuation),
		punctByID: make(map[string]*Punctuation),
		phrases:   make(map[string][]*Wordform),
	}
}

// FindWordform implements Repository.
func (m *Memory) FindWordform(form, ws string) (*Wordform, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wordforms[keyFor(form, ws)]
	return w, ok
}

// FindOrCreateWordform implements Repository.
func (m *Memory) FindOrCreateWordform(form, ws string) *Wordform {
	if w, ok := m.FindWordform(form, ws); ok {
		return w
	}
	return m.RestoreWordform(uuid.NewString(), form, ws)
}

// RestoreWordform inserts a wordform with a known ID. An existing wordform
// with the same form and writing system wins.
func (m *Memory) RestoreWordform(id, form, ws string) *Wordform {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyFor(form, ws)
	if w, ok := m.wordforms[k]; ok {
		return w
	}
	w := &Wordform{ID: id, Form: form, WS: ws}
	m.wordforms[k] = w
	m.byID[id] = w
	m.order = append(m.order, w)
	if w.IsPhrase() {
		m.phrases[ws] = append(m.phrases[ws], w)
	}
	return w
}

// FindOrCreatePunctuation implements Repository.
func (m *Memory) FindOrCreatePunctuation(text string) *Punctuation {
	m.mu.RLock()
	p, ok := m.punct[text]
	m.mu.RUnlock()
	if ok {
		return p
	}
	return m.RestorePunctuation(uuid.NewString(), text)
}

// RestorePunctuation inserts a punctuation form with a known ID.
func (m *Memory) RestorePunctuation(id, text string) *Punctuation {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.punct[text]; ok {
		return p
	}
	p := &Punctuation{ID: id, Text: text}
	m.punct[text] = p
	m.punctByID[id] = p
	return p
}

// Phrases implements Repository.
func (m *Memory) Phrases(ws string) []*Wordform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Wordform(nil), m.phrases[ws]...)
}

// Wordforms returns all wordforms in creation order.
func (m *Memory) Wordforms() []*Wordform {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Wordform(nil), m.order...)
}

// Punctuations returns all punctuation forms sorted by text.
func (m *Memory) Punctuations() []*Punctuation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Punctuation, 0, len(m.punct))
	for _, p := range m.punct {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// WordformByID returns the wordform with the given ID.
func (m *Memory) WordformByID(id string) (*Wordform, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.byID[id]
	return w, ok
}

// PunctuationByID returns the punctuation form with the given ID.
func (m *Memory) PunctuationByID(id string) (*Punctuation, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.punctByID[id]
	return p, ok
}

// AnalysisByID searches every wordform for the analysis with the given ID.
func (m *Memory) AnalysisByID(id string) (*Analysis, bool) {
	for _, w := range m.Wordforms() {
		for _, a := range w.analyses {
			if a.ID == id {
				return a, true
			}
		}
	}
	return nil, false
}

// GlossByID searches every analysis for the gloss with the given ID.
func (m *Memory) GlossByID(id string) (*Gloss, bool) {
	for _, w := range m.Wordforms() {
		for _, a := range w.analyses {
			for _, g := range a.glosses {
				if g.ID == id {
					return g, true
				}
			}
		}
	}
	return nil, false
}

// Resolve rebuilds an occurrence from a kind and object ID.
func (m *Memory) Resolve(kind Kind, id string) (Occurrence, bool) {
	switch kind {
	case KindWordform:
		if w, ok := m.WordformByID(id); ok {
			return OfWordform(w), true
		}
	case KindAnalysis:
		if a, ok := m.AnalysisByID(id); ok {
			return OfAnalysis(a), true
		}
	case KindGloss:
		if g, ok := m.GlossByID(id); ok {
			return OfGloss(g), true
		}
	case KindPunctuation:
		if p, ok := m.PunctuationByID(id); ok {
			return OfPunctuation(p), true
		}
	}
	return Occurrence{}, false
}
