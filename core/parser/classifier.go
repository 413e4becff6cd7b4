// Package parser segments paragraphs into sentences and words and reconciles
// the result with the occurrences a paragraph held before it was edited, so
// that analyses recorded against the old tokenization survive a reparse.
//
// The pipeline runs leaf first: a Classifier answers per-offset character
// questions, a Scanner walks words, a Segmenter finds sentence boundaries and
// the Parser drives all three and performs reuse.
package parser

import (
	"unicode"
	"unicode/utf8"

	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
)

// Class is the coarse category of a character for segmentation.
type Class uint8

// Character classes.
const (
	ClassWhite Class = iota
	ClassWord
	ClassPunct
	ClassLabel
	ClassBreak
)

func (c Class) String() string {
	switch c {
	case ClassWhite:
		return "white"
	case ClassWord:
		return "word"
	case ClassPunct:
		return "punct"
	case ClassLabel:
		return "label"
	case ClassBreak:
		return "break"
	}
	return "unknown"
}

// Hard line break characters. Each is always a segment of its own.
const (
	LineSeparator = '\u2028'
	Newline       = '\n'
)

// IsHardBreak reports whether r forces a segment of its own.
func IsHardBreak(r rune) bool {
	return r == LineSeparator || r == Newline
}

// runInfo is the classification context shared by every offset of one run.
type runInfo struct {
	run     ftext.Run
	wsID    string
	ws      *wsys.WritingSystem
	label   bool
	primary bool
}

// Classifier answers character questions about one formatted string. The
// writing system and label status are resolved once per run; a Classifier is
// immutable after construction and may be shared.
type Classifier struct {
	text      *ftext.String
	raw       string
	runs      []runInfo
	primaryID string
	primary   *wsys.WritingSystem
}

// NewClassifier prepares a classifier for text. Runs whose style is in labels
// are label runs. Runs without a resolvable writing system use the registry
// default.
func NewClassifier(text *ftext.String, reg *wsys.Registry, labels map[string]bool) *Classifier {
	if reg == nil {
		reg = wsys.NewRegistry(nil)
	}
	def := reg.Default()
	c := &Classifier{text: text, raw: text.Text()}

	c.primaryID = text.FirstWritingSystem()
	if c.primaryID == "" {
		c.primaryID = def.ID
	}
	c.primary = reg.Resolve(c.primaryID)

	for _, r := range text.Runs() {
		id := r.WS
		if id == "" {
			id = def.ID
		}
		c.runs = append(c.runs, runInfo{
			run:     r,
			wsID:    id,
			ws:      reg.Resolve(id),
			label:   labels[r.Style],
			primary: id == c.primaryID,
		})
	}
	return c
}

// Text returns the classified string.
func (c *Classifier) Text() *ftext.String {
	return c.text
}

// Len returns the length of the text in bytes.
func (c *Classifier) Len() int {
	return len(c.raw)
}

// PrimaryID returns the ID of the paragraph's primary writing system.
func (c *Classifier) PrimaryID() string {
	return c.primaryID
}

// Primary returns the primary writing system.
func (c *Classifier) Primary() *wsys.WritingSystem {
	return c.primary
}

func (c *Classifier) infoAt(off int) (runInfo, bool) {
	_, idx, ok := c.text.RunAt(off)
	if !ok || idx >= len(c.runs) {
		return runInfo{}, false
	}
	return c.runs[idx], true
}

// RuneAt decodes the character at off. size is 0 when off is out of range.
func (c *Classifier) RuneAt(off int) (r rune, size int) {
	if off < 0 || off >= len(c.raw) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeRuneInString(c.raw[off:])
}

// RuneBefore decodes the character ending at off.
func (c *Classifier) RuneBefore(off int) (r rune, size int) {
	if off <= 0 || off > len(c.raw) {
		return utf8.RuneError, 0
	}
	return utf8.DecodeLastRuneInString(c.raw[:off])
}

// ClassAt classifies the character at off and returns its size. Out of range
// offsets classify as white space with size 0.
func (c *Classifier) ClassAt(off int) (Class, int) {
	r, size := c.RuneAt(off)
	if size == 0 {
		return ClassWhite, 0
	}
	if IsHardBreak(r) {
		return ClassBreak, size
	}
	info, _ := c.infoAt(off)
	switch {
	case info.label:
		return ClassLabel, size
	case unicode.IsSpace(r):
		return ClassWhite, size
	case info.ws.IsWordForming(r):
		return ClassWord, size
	default:
		return ClassPunct, size
	}
}

// IsWordForming reports whether the character at off can be part of a word of
// the primary writing system. Text in other writing systems never is.
func (c *Classifier) IsWordForming(off int) bool {
	cls, size := c.ClassAt(off)
	if size == 0 || cls != ClassWord {
		return false
	}
	info, _ := c.infoAt(off)
	return info.primary
}

// IsLabel reports whether off lies in a label run.
func (c *Classifier) IsLabel(off int) bool {
	cls, _ := c.ClassAt(off)
	return cls == ClassLabel
}

// WritingSystemAt returns the writing system governing off, falling back to
// the primary one.
func (c *Classifier) WritingSystemAt(off int) *wsys.WritingSystem {
	if info, ok := c.infoAt(off); ok {
		return info.ws
	}
	return c.primary
}
