package parser

import (
	"testing"

	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
)

func TestSession_Touched(t *testing.T) {
	p, repo := newTestParser()
	pa := para("the cat saw the dog")
	p.Reparse(pa)

	touched := p.Session().Touched()
	var forms []string
	for _, tc := range touched {
		forms = append(forms, tc.Wordform.Form)
	}
	if want := []string{"the", "cat", "saw", "dog"}; !equalStrings(forms, want) {
		t.Fatalf("touched = %q, want %q", forms, want)
	}
	the, _ := repo.FindWordform("the", "en")
	if touched[0].Wordform != the || len(touched[0].Refs) != 2 {
		t.Errorf("touched[0] = %+v", touched[0])
	}
	if r := touched[0].Refs[1]; r.Paragraph != pa.ID || r.Index != 6 {
		t.Errorf("second ref = %+v", r)
	}

	p.ForceReparse(pa)
	if refs := p.Session().Touched()[0].Refs; len(refs) != 2 {
		t.Errorf("reparse duplicated refs: %d", len(refs))
	}

	pa.SetContents(pa.Contents().Replace(0, 4, ""))
	p.Reparse(pa)
	if refs := p.Session().Touched()[0].Refs; len(refs) != 1 {
		t.Errorf("refs after removing a word = %d, want 1", len(refs))
	}
}

func TestSession_BindClearsOnRepositoryChange(t *testing.T) {
	session := NewSession(testRegistry())
	repoA := lexicon.NewMemory()
	a := New(testRegistry(), repoA, session, WithLogger(discardLogger()))
	a.Reparse(para("alpha beta"))
	if len(session.Touched()) != 2 {
		t.Fatalf("touched = %d", len(session.Touched()))
	}

	session.Bind(repoA)
	if len(session.Touched()) != 2 {
		t.Error("rebinding the same repository must keep the table")
	}

	New(testRegistry(), lexicon.NewMemory(), session, WithLogger(discardLogger()))
	if len(session.Touched()) != 0 {
		t.Error("binding another repository must clear the table")
	}
}

func TestSession_Reset(t *testing.T) {
	session := NewSession(nil)
	session.Lower("en", "ABC")
	session.Lower("en", "ABC")
	if st := session.LowerStats(); st.Hits != 1 {
		t.Fatalf("stats = %+v", st)
	}
	session.touch(lexicon.NewMemory().FindOrCreateWordform("x", "en"), Ref{Paragraph: "p"})
	session.touch(nil, Ref{})

	session.Reset()
	if st := session.LowerStats(); st.Hits != 0 || st.Misses != 0 || st.Size != 0 {
		t.Errorf("stats after Reset = %+v", st)
	}
	if len(session.Touched()) != 0 {
		t.Error("Reset should clear touched wordforms")
	}
}
