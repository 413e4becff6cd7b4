package parser

import (
	"strings"

	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
)

// Word is a maximal run of word-forming characters, [Min, Lim) in bytes.
type Word struct {
	Min  int
	Lim  int
	Text string
}

// Scanner walks the words of a classified text. It holds no cursor: every
// method takes a position and returns the next one, so a Scanner value can be
// copied and used from several call sites at once.
type Scanner struct {
	c       *Classifier
	session *Session
}

// NewScanner returns a scanner over c that folds case through session.
func NewScanner(c *Classifier, session *Session) Scanner {
	if session == nil {
		session = NewSession(nil)
	}
	return Scanner{c: c, session: session}
}

// Lower folds s with the primary writing system's rules, memoized per session.
func (s Scanner) Lower(text string) string {
	return s.session.Lower(s.c.PrimaryID(), text)
}

// NextWord returns the first word at or after from that ends by lim. Label
// runs, foreign writing systems and punctuation are skipped. Asking to resume
// beyond the end of the text is a caller bug and panics.
func (s Scanner) NextWord(from, lim int) (Word, bool) {
	n := s.c.Len()
	errors.Assertf(from <= n, "word scan resumed at %d past end of text %d", from, n)
	if from < 0 {
		from = 0
	}
	if lim > n {
		lim = n
	}

	off := from
	for off < lim && !s.c.IsWordForming(off) {
		off += s.step(off)
	}
	if off >= lim {
		return Word{}, false
	}
	min := off
	for off < lim && s.c.IsWordForming(off) {
		off += s.step(off)
	}
	if off > lim {
		off = lim
	}
	return Word{Min: min, Lim: off, Text: s.c.raw[min:off]}, true
}

// Words returns every word in [from, lim).
func (s Scanner) Words(from, lim int) []Word {
	var out []Word
	for {
		w, ok := s.NextWord(from, lim)
		if !ok {
			return out
		}
		out = append(out, w)
		from = w.Lim
	}
}

// MatchesWordInText reports whether candidate occurs at offset at, ignoring
// case and normalization, and ends on a word boundary no later than lim. A
// candidate "cat" does not match the start of "category".
func (s Scanner) MatchesWordInText(candidate string, at, lim int) bool {
	_, ok := s.MatchWordAt(candidate, at, lim)
	return ok
}

// MatchWordAt is MatchesWordInText that also returns where the match ends in
// the text. The text may spell candidate in a different normalization form,
// so the end is found by walking word ends rather than by candidate's length.
func (s Scanner) MatchWordAt(candidate string, at, lim int) (int, bool) {
	if candidate == "" || at < 0 || at > s.c.Len() {
		return 0, false
	}
	want := s.Lower(candidate)
	for from := at; ; {
		w, ok := s.NextWord(from, lim)
		if !ok || (from == at && w.Min != at) {
			return 0, false
		}
		got := s.Lower(s.c.raw[at:w.Lim])
		if got == want {
			return w.Lim, true
		}
		if !strings.HasPrefix(want, got) {
			return 0, false
		}
		from = w.Lim
	}
}

// NextOccurrenceOf counts the words between from and until that precede the
// next word whose lower-cased text equals target. ok is false when target
// does not occur in the range.
func (s Scanner) NextOccurrenceOf(target string, from, until int) (count int, ok bool) {
	if target == "" {
		return 0, false
	}
	for {
		w, found := s.NextWord(from, until)
		if !found {
			return 0, false
		}
		if s.Lower(w.Text) == target {
			return count, true
		}
		count++
		from = w.Lim
	}
}

// step returns the size of the character at off, at least 1.
func (s Scanner) step(off int) int {
	if _, size := s.c.RuneAt(off); size > 0 {
		return size
	}
	return 1
}
