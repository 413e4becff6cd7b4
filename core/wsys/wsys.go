// Package wsys describes writing systems: how a script decides which characters
// form words and how text in it is case-folded.
package wsys

import (
	"fmt"
	"sort"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
)

// WritingSystem is one language/script pairing used to tag text runs.
type WritingSystem struct {
	// ID is the identifier used on text runs (e.g. "en", "grc", "tr").
	ID string

	// Tag is the BCP-47 tag driving case conversion.
	Tag language.Tag

	// extra holds characters that form words in addition to letters, marks and digits.
	extra map[rune]bool
}

// New creates a writing system. tag is parsed as BCP-47; wordForming lists
// extra word-forming characters such as an apostrophe used as a glottal stop.
func New(id, tag, wordForming string) (*WritingSystem, error) {
	if id == "" {
		return nil, errors.NewValidation("id", "writing system id is empty")
	}
	if tag == "" {
		tag = id
	}
	t, err := language.Parse(tag)
	if err != nil {
		return nil, &errors.ValidationError{Field: "tag", Value: tag, Message: "not a BCP-47 tag", Err: err}
	}
	ws := &WritingSystem{ID: id, Tag: t}
	for _, r := range wordForming {
		if ws.extra == nil {
			ws.extra = make(map[rune]bool)
		}
		ws.extra[r] = true
	}
	return ws, nil
}

// MustNew is New that panics on error, for tests and static tables.
func MustNew(id, tag, wordForming string) *WritingSystem {
	ws, err := New(id, tag, wordForming)
	if err != nil {
		panic(fmt.Sprintf("wsys: %v", err))
	}
	return ws
}

// IsWordForming reports whether r can be part of a word. Letters, combining
// marks and digits always are; numerals count so numbered tokens stay words.
func (ws *WritingSystem) IsWordForming(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.M, r) {
		return true
	}
	return ws != nil && ws.extra[r]
}

// WordFormingOverrides returns the extra word-forming characters, sorted.
func (ws *WritingSystem) WordFormingOverrides() string {
	rs := make([]rune, 0, len(ws.extra))
	for r := range ws.extra {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
	return string(rs)
}

// ToLower lower-cases s using the writing system's language rules.
// cases.Caser is stateful, so one is built per call.
func (ws *WritingSystem) ToLower(s string) string {
	tag := language.Und
	if ws != nil {
		tag = ws.Tag
	}
	return cases.Lower(tag).String(s)
}

// Registry resolves writing-system identifiers. It is safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]*WritingSystem
	def  *WritingSystem
}

// NewRegistry creates a registry whose fallback is def. A nil def falls back
// to an undetermined-language system with id "und".
func NewRegistry(def *WritingSystem) *Registry {
	if def == nil {
		def = &WritingSystem{ID: "und", Tag: language.Und}
	}
	r := &Registry{byID: make(map[string]*WritingSystem), def: def}
	r.byID[def.ID] = def
	return r
}

// Register adds or replaces a writing system.
func (r *Registry) Register(ws *WritingSystem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[ws.ID] = ws
}

// Get returns the writing system with the given id.
func (r *Registry) Get(id string) (*WritingSystem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ws, ok := r.byID[id]
	return ws, ok
}

// Default returns the fallback writing system.
func (r *Registry) Default() *WritingSystem {
	return r.def
}

// Resolve returns the writing system for id, degrading to the default when
// id is empty or unknown.
func (r *Registry) Resolve(id string) *WritingSystem {
	if ws, ok := r.Get(id); ok {
		return ws
	}
	return r.def
}

// IDs returns all registered identifiers, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
