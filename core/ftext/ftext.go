// Package ftext models formatted paragraph text: a UTF-8 string partitioned into
// contiguous runs, each carrying a writing system and an optional character style.
//
// All offsets are UTF-8 byte offsets into the text.
package ftext

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
)

// Run is a maximal range of text sharing one writing system and style.
type Run struct {
	Min   int    `json:"min"`
	Lim   int    `json:"lim"`
	WS    string `json:"ws"`
	Style string `json:"style,omitempty"`
}

// Len returns the length of the run in bytes.
func (r Run) Len() int {
	return r.Lim - r.Min
}

// sameProps reports whether two runs carry identical formatting.
func (r Run) sameProps(o Run) bool {
	return r.WS == o.WS && r.Style == o.Style
}

// String is an immutable formatted text value.
type String struct {
	text string
	runs []Run
}

// New builds a String from text and runs. Runs must be non-empty, in order,
// contiguous, cover the whole text and start on rune boundaries.
func New(text string, runs []Run) (*String, error) {
	if text == "" {
		return &String{}, nil
	}
	if len(runs) == 0 {
		return nil, errors.NewValidation("runs", "non-empty text needs at least one run")
	}
	pos := 0
	for i, r := range runs {
		if r.Min != pos {
			return nil, errors.NewValidation("runs", fmt.Sprintf("run %d starts at %d, want %d", i, r.Min, pos))
		}
		if r.Lim <= r.Min || r.Lim > len(text) {
			return nil, errors.NewValidation("runs", fmt.Sprintf("run %d has bad limit %d", i, r.Lim))
		}
		if !utf8.RuneStart(text[r.Min]) {
			return nil, errors.NewValidation("runs", fmt.Sprintf("run %d splits a character at %d", i, r.Min))
		}
		pos = r.Lim
	}
	if pos != len(text) {
		return nil, errors.NewValidation("runs", fmt.Sprintf("runs end at %d, text length %d", pos, len(text)))
	}
	return &String{text: text, runs: append([]Run(nil), runs...)}, nil
}

// Plain returns text formatted as a single run in writing system ws.
func Plain(text, ws string) *String {
	var b Builder
	b.Append(text, ws, "")
	return b.String()
}

// Text returns the raw characters.
func (s *String) Text() string {
	if s == nil {
		return ""
	}
	return s.text
}

// Len returns the text length in bytes.
func (s *String) Len() int {
	if s == nil {
		return 0
	}
	return len(s.text)
}

// Runs returns a copy of the runs.
func (s *String) Runs() []Run {
	if s == nil {
		return nil
	}
	return append([]Run(nil), s.runs...)
}

// RunCount returns the number of runs.
func (s *String) RunCount() int {
	if s == nil {
		return 0
	}
	return len(s.runs)
}

// RunAt returns the run containing offset off and its index. An offset equal to
// the text length resolves to the last run. ok is false for empty text or an
// out-of-range offset.
func (s *String) RunAt(off int) (run Run, index int, ok bool) {
	if s == nil || len(s.runs) == 0 || off < 0 || off > len(s.text) {
		return Run{}, -1, false
	}
	if off == len(s.text) {
		last := len(s.runs) - 1
		return s.runs[last], last, true
	}
	lo, hi := 0, len(s.runs)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		r := s.runs[mid]
		switch {
		case off < r.Min:
			hi = mid - 1
		case off >= r.Lim:
			lo = mid + 1
		default:
			return r, mid, true
		}
	}
	return Run{}, -1, false
}

// WritingSystemAt returns the writing system at off, or "" when unknown.
func (s *String) WritingSystemAt(off int) string {
	r, _, ok := s.RunAt(off)
	if !ok {
		return ""
	}
	return r.WS
}

// FirstWritingSystem returns the first non-empty writing system in the text.
func (s *String) FirstWritingSystem() string {
	if s == nil {
		return ""
	}
	for _, r := range s.runs {
		if r.WS != "" {
			return r.WS
		}
	}
	return ""
}

// Slice returns the text in [min, lim), clamped to the string. Inverted or
// empty ranges yield "".
func (s *String) Slice(min, lim int) string {
	n := s.Len()
	if min < 0 {
		min = 0
	}
	if lim > n {
		lim = n
	}
	if min >= lim {
		return ""
	}
	return s.text[min:lim]
}

// Equal reports whether two strings have the same text and formatting.
func (s *String) Equal(o *String) bool {
	if s.Text() != o.Text() || s.RunCount() != o.RunCount() {
		return false
	}
	for i := range s.Runs() {
		if s.runs[i] != o.runs[i] {
			return false
		}
	}
	return true
}

// Replace returns a copy with [min, lim) replaced by text. Inserted text takes
// the formatting of the character before min, or of the first run when min is 0.
func (s *String) Replace(min, lim int, text string) *String {
	n := s.Len()
	if min < 0 {
		min = 0
	}
	if lim > n {
		lim = n
	}
	if lim < min {
		lim = min
	}

	var props Run
	probe := min - 1
	if probe < 0 {
		probe = 0
	}
	if r, _, ok := s.RunAt(probe); ok {
		props = r
	}

	var b Builder
	for _, r := range s.Runs() {
		if r.Min < min {
			b.Append(s.text[r.Min:minInt(r.Lim, min)], r.WS, r.Style)
		}
	}
	b.Append(text, props.WS, props.Style)
	for _, r := range s.Runs() {
		if r.Lim > lim {
			b.Append(s.text[maxInt(r.Min, lim):r.Lim], r.WS, r.Style)
		}
	}
	return b.String()
}

// String implements fmt.Stringer for debugging.
func (s *String) String() string {
	if s == nil {
		return "<nil>"
	}
	var sb strings.Builder
	for i, r := range s.runs {
		if i > 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "%s:%q", r.WS, s.text[r.Min:r.Lim])
		if r.Style != "" {
			fmt.Fprintf(&sb, "[%s]", r.Style)
		}
	}
	return sb.String()
}

// Builder assembles a String run by run.
type Builder struct {
	sb   strings.Builder
	runs []Run
}

// Append adds text with the given formatting. Adjacent appends with the same
// formatting are merged into one run; empty text is ignored.
func (b *Builder) Append(text, ws, style string) {
	if text == "" {
		return
	}
	min := b.sb.Len()
	b.sb.WriteString(text)
	r := Run{Min: min, Lim: b.sb.Len(), WS: ws, Style: style}
	if n := len(b.runs); n > 0 && b.runs[n-1].sameProps(r) {
		b.runs[n-1].Lim = r.Lim
		return
	}
	b.runs = append(b.runs, r)
}

// Len returns the number of bytes appended so far.
func (b *Builder) Len() int {
	return b.sb.Len()
}

// String returns the assembled value.
func (b *Builder) String() *String {
	return &String{text: b.sb.String(), runs: append([]Run(nil), b.runs...)}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
