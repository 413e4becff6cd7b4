package parser

import (
	"testing"

	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
)

func scanner(pieces ...piece) Scanner {
	return NewScanner(classify(pieces...), NewSession(testRegistry()))
}

func wordTexts(ws []Word) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Text
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNextWord(t *testing.T) {
	tests := []struct {
		name   string
		pieces []piece
		want   []string
	}{
		{"plain", []piece{plain("Hello, world!")}, []string{"Hello", "world"}},
		{"digits", []piece{plain("It costs 3.50 dollars.")}, []string{"It", "costs", "3", "50", "dollars"}},
		{"label skipped", []piece{verse("3"), plain("And God said")}, []string{"And", "God", "said"}},
		{"label between letters", []piece{plain("ab"), verse("4"), plain("cd")}, []string{"ab", "cd"}},
		{"foreign skipped", []piece{plain("the "), piece{text: "λόγος", ws: "grc"}, plain(" word")}, []string{"the", "word"}},
		{"combining marks", []piece{plain("café noir")}, []string{"café", "noir"}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scanner(tt.pieces...)
			got := wordTexts(s.Words(0, s.c.Len()))
			if !equalStrings(got, tt.want) {
				t.Errorf("Words() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNextWord_Range(t *testing.T) {
	s := scanner(plain("alpha beta gamma"))

	w, ok := s.NextWord(2, 16)
	if !ok || w.Text != "pha" || w.Min != 2 || w.Lim != 5 {
		t.Errorf("NextWord(2) = %+v, %v", w, ok)
	}
	w, ok = s.NextWord(5, 8)
	if !ok || w.Text != "be" || w.Lim != 8 {
		t.Errorf("NextWord limited = %+v, %v", w, ok)
	}
	if _, ok := s.NextWord(16, 16); ok {
		t.Error("NextWord at end should find nothing")
	}
	if _, ok := s.NextWord(-4, 3); !ok {
		t.Error("negative from should clamp to 0")
	}
}

func TestNextWord_PastEndPanics(t *testing.T) {
	s := scanner(plain("abc"))
	defer func() {
		err, ok := recover().(error)
		if !ok || !errors.Is(err, errors.ErrInternal) {
			t.Errorf("recover() = %v, want invariant error", err)
		}
	}()
	s.NextWord(4, 10)
}

func TestMatchesWordInText(t *testing.T) {
	s := scanner(plain("The category of Cat. in the house"))
	tests := []struct {
		candidate string
		at        int
		lim       int
		want      bool
	}{
		{"the", 0, 33, true},
		{"cat", 4, 33, false},
		{"category", 4, 33, true},
		{"cat", 16, 33, true},
		{"in the", 21, 33, true},
		{"in the house", 21, 30, false},
		{"in th", 21, 33, false},
		{"", 0, 33, false},
		{"the", -1, 33, false},
	}
	for _, tt := range tests {
		if got := s.MatchesWordInText(tt.candidate, tt.at, tt.lim); got != tt.want {
			t.Errorf("MatchesWordInText(%q, %d, %d) = %v, want %v", tt.candidate, tt.at, tt.lim, got, tt.want)
		}
	}
}

func TestNextOccurrenceOf(t *testing.T) {
	s := scanner(plain("so the quick fox saw The end"))
	n := s.c.Len()
	tests := []struct {
		target    string
		from      int
		wantCount int
		wantOK    bool
	}{
		{"the", 0, 1, true},
		{"the", 6, 3, true},
		{"end", 0, 6, true},
		{"dog", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, tt := range tests {
		count, ok := s.NextOccurrenceOf(tt.target, tt.from, n)
		if count != tt.wantCount || ok != tt.wantOK {
			t.Errorf("NextOccurrenceOf(%q, %d) = %d, %v; want %d, %v", tt.target, tt.from, count, ok, tt.wantCount, tt.wantOK)
		}
	}
}

func TestScanner_LowerUsesPrimaryWritingSystem(t *testing.T) {
	session := NewSession(testRegistry())
	tr := NewScanner(NewClassifier(ftext.Plain("KIZ", "tr"), testRegistry(), nil), session)
	en := NewScanner(NewClassifier(ftext.Plain("KIZ", "en"), testRegistry(), nil), session)

	if got := tr.Lower("KIZ"); got != "kız" {
		t.Errorf("tr Lower = %q, want kız", got)
	}
	if got := en.Lower("KIZ"); got != "kiz" {
		t.Errorf("en Lower = %q, want kiz", got)
	}
	tr.Lower("KIZ")
	if st := session.LowerStats(); st.Hits != 1 || st.Misses != 2 {
		t.Errorf("memo stats = %+v, want 1 hit 2 misses", st)
	}
}
