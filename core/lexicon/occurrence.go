package lexicon

import "fmt"

// Kind identifies which object an Occurrence refers to.
type Kind uint8

// Occurrence kinds.
const (
	KindNone Kind = iota
	KindWordform
	KindAnalysis
	KindGloss
	KindPunctuation
)

func (k Kind) String() string {
	switch k {
	case KindWordform:
		return "wordform"
	case KindAnalysis:
		return "analysis"
	case KindGloss:
		return "gloss"
	case KindPunctuation:
		return "punctuation"
	default:
		return "none"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k := KindWordform; k <= KindPunctuation; k++ {
		if k.String() == s {
			return k, true
		}
	}
	return KindNone, false
}

// Occurrence is one slot in a segment: exactly one of a wordform, analysis,
// gloss or punctuation reference. Occurrences are comparable; two are equal
// when they reference the same object.
type Occurrence struct {
	wf *Wordform
	an *Analysis
	gl *Gloss
	pu *Punctuation
}

// OfWordform returns a trivial occurrence of w.
func OfWordform(w *Wordform) Occurrence { return Occurrence{wf: w} }

// OfAnalysis returns an occurrence selecting analysis a.
func OfAnalysis(a *Analysis) Occurrence { return Occurrence{an: a} }

// OfGloss returns an occurrence selecting gloss g.
func OfGloss(g *Gloss) Occurrence { return Occurrence{gl: g} }

// OfPunctuation returns a punctuation occurrence.
func OfPunctuation(p *Punctuation) Occurrence { return Occurrence{pu: p} }

// Kind returns what the occurrence refers to.
func (o Occurrence) Kind() Kind {
	switch {
	case o.wf != nil:
		return KindWordform
	case o.an != nil:
		return KindAnalysis
	case o.gl != nil:
		return KindGloss
	case o.pu != nil:
		return KindPunctuation
	default:
		return KindNone
	}
}

// IsZero reports whether the occurrence references nothing.
func (o Occurrence) IsZero() bool {
	return o.Kind() == KindNone
}

// IsWord reports whether the occurrence is a wordform, analysis or gloss.
func (o Occurrence) IsWord() bool {
	k := o.Kind()
	return k == KindWordform || k == KindAnalysis || k == KindGloss
}

// IsTrivial reports whether the occurrence is a bare wordform reference.
func (o Occurrence) IsTrivial() bool {
	return o.wf != nil
}

// Wordform walks the owner chain to the wordform, or nil for punctuation.
func (o Occurrence) Wordform() *Wordform {
	switch {
	case o.wf != nil:
		return o.wf
	case o.an != nil:
		return o.an.Wordform()
	case o.gl != nil:
		if a := o.gl.Analysis(); a != nil {
			return a.Wordform()
		}
	}
	return nil
}

// Analysis returns the selected analysis, or the gloss's owner.
func (o Occurrence) Analysis() *Analysis {
	if o.an != nil {
		return o.an
	}
	if o.gl != nil {
		return o.gl.Analysis()
	}
	return nil
}

// Gloss returns the selected gloss, if any.
func (o Occurrence) Gloss() *Gloss {
	return o.gl
}

// Punctuation returns the punctuation form, if any.
func (o Occurrence) Punctuation() *Punctuation {
	return o.pu
}

// Text returns the literal form referenced by the occurrence.
func (o Occurrence) Text() string {
	if o.pu != nil {
		return o.pu.Text
	}
	if w := o.Wordform(); w != nil {
		return w.Form
	}
	return ""
}

// ID returns the ID of the referenced object.
func (o Occurrence) ID() string {
	switch {
	case o.wf != nil:
		return o.wf.ID
	case o.an != nil:
		return o.an.ID
	case o.gl != nil:
		return o.gl.ID
	case o.pu != nil:
		return o.pu.ID
	}
	return ""
}

func (o Occurrence) String() string {
	if o.IsZero() {
		return "none"
	}
	return fmt.Sprintf("%s(%q)", o.Kind(), o.Text())
}
