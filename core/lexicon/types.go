// Package lexicon holds the canonical linguistic objects that text occurrences
// point at: wordforms, their analyses and glosses, and punctuation forms.
package lexicon

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Wordform is the canonical object for one literal form in one writing system.
// Multi-word forms ("phrases") contain white space.
type Wordform struct {
	ID       string
	Form     string
	WS       string
	analyses []*Analysis
}

// IsPhrase reports whether the form spans more than one word.
func (w *Wordform) IsPhrase() bool {
	return strings.ContainsFunc(w.Form, unicode.IsSpace)
}

// Analyses returns the analyses owned by the wordform.
func (w *Wordform) Analyses() []*Analysis {
	return append([]*Analysis(nil), w.analyses...)
}

// AddAnalysis records a human morphological analysis of the wordform.
func (w *Wordform) AddAnalysis(category, morphemes string) *Analysis {
	return w.RestoreAnalysis(uuid.NewString(), category, morphemes)
}

// RestoreAnalysis attaches an analysis with a known ID, used when loading.
func (w *Wordform) RestoreAnalysis(id, category, morphemes string) *Analysis {
	a := &Analysis{ID: id, Category: category, Morphemes: morphemes, owner: w}
	w.analyses = append(w.analyses, a)
	return a
}

// Analysis is a morphological parse of a wordform.
type Analysis struct {
	ID        string
	Category  string
	Morphemes string
	owner     *Wordform
	glosses   []*Gloss
}

// Wordform returns the owning wordform.
func (a *Analysis) Wordform() *Wordform {
	return a.owner
}

// Glosses returns the glosses owned by the analysis.
func (a *Analysis) Glosses() []*Gloss {
	return append([]*Gloss(nil), a.glosses...)
}

// AddGloss records a meaning for the analysis in writing system ws.
func (a *Analysis) AddGloss(ws, text string) *Gloss {
	return a.RestoreGloss(uuid.NewString(), ws, text)
}

// RestoreGloss attaches a gloss with a known ID, used when loading.
func (a *Analysis) RestoreGloss(id, ws, text string) *Gloss {
	g := &Gloss{ID: id, WS: ws, Text: text, owner: a}
	a.glosses = append(a.glosses, g)
	return g
}

// Gloss is a meaning attached to an analysis.
type Gloss struct {
	ID    string
	WS    string
	Text  string
	owner *Analysis
}

// Analysis returns the owning analysis.
func (g *Gloss) Analysis() *Analysis {
	return g.owner
}

// Punctuation is a canonical non-word span of text.
type Punctuation struct {
	ID   string
	Text string
}
