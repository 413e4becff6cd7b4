package parser

import (
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/FocuswithJustin/JuniperInterlinear/core/cache"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
)

type lowerKey struct {
	ws   string
	text string
}

// Ref locates one word occurrence produced during a session.
type Ref struct {
	Paragraph string
	Segment   string
	Index     int
}

// Touch lists where a wordform occurred in the current session.
type Touch struct {
	Wordform *lexicon.Wordform
	Refs     []Ref
}

// Session holds the state shared by the reparses of one logical operation:
// the case-folding memo and the table of wordforms the parses touched. The
// touched table belongs to one repository and is cleared when the session is
// bound to another. A Session is safe for concurrent use.
type Session struct {
	reg   *wsys.Registry
	lower *cache.Memo[lowerKey, string]

	mu      sync.Mutex
	repo    lexicon.Repository
	touched map[*lexicon.Wordform]int
	order   []Touch
}

// NewSession creates a session that folds case with the writing systems in reg.
func NewSession(reg *wsys.Registry) *Session {
	if reg == nil {
		reg = wsys.NewRegistry(nil)
	}
	s := &Session{reg: reg}
	s.Reset()
	return s
}

// Reset starts a new session: both the memo and the touched table are emptied.
func (s *Session) Reset() {
	reg := s.reg
	lower := cache.NewMemo(cache.Config{}, func(k lowerKey) string {
		return norm.NFC.String(reg.Resolve(k.ws).ToLower(k.text))
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lower = lower
	s.touched = make(map[*lexicon.Wordform]int)
	s.order = nil
}

// Bind ties the touched table to repo, clearing it if the session was bound
// to a different repository.
func (s *Session) Bind(repo lexicon.Repository) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.repo == repo {
		return
	}
	s.repo = repo
	s.touched = make(map[*lexicon.Wordform]int)
	s.order = nil
}

// Lower folds text to lower case under the rules of writing system ws and
// composes it to NFC, so canonically equivalent spellings fold alike.
func (s *Session) Lower(ws, text string) string {
	s.mu.Lock()
	lower := s.lower
	s.mu.Unlock()
	return lower.Get(lowerKey{ws: ws, text: text})
}

// LowerStats reports the memo's hit and miss counts.
func (s *Session) LowerStats() cache.Stats {
	s.mu.Lock()
	lower := s.lower
	s.mu.Unlock()
	return lower.Stats()
}

func (s *Session) touch(w *lexicon.Wordform, ref Ref) {
	if w == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.touched[w]
	if !ok {
		i = len(s.order)
		s.touched[w] = i
		s.order = append(s.order, Touch{Wordform: w})
	}
	s.order[i].Refs = append(s.order[i].Refs, ref)
}

// forget drops the references a paragraph contributed so a reparse of it
// does not list them twice.
func (s *Session) forget(paragraphID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.order {
		refs := s.order[i].Refs[:0]
		for _, r := range s.order[i].Refs {
			if r.Paragraph != paragraphID {
				refs = append(refs, r)
			}
		}
		s.order[i].Refs = refs
	}
}

// Touched returns the wordforms touched in this session in first-touch order.
// Wordforms whose references were all superseded are omitted.
func (s *Session) Touched() []Touch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Touch, 0, len(s.order))
	for _, t := range s.order {
		if len(t.Refs) == 0 {
			continue
		}
		out = append(out, Touch{Wordform: t.Wordform, Refs: append([]Ref(nil), t.Refs...)})
	}
	return out
}
