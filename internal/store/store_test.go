package store_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
	"github.com/FocuswithJustin/JuniperInterlinear/core/sqlite"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/store"
)

func newParser(repo *lexicon.Memory) *parser.Parser {
	reg := wsys.NewRegistry(wsys.MustNew("en", "en", ""))
	return parser.New(reg, repo, nil, parser.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func openStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "interlinear.db")
	s, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// sampleText builds "1 In the beginning God created. And it was good." with a
// verse label, parses it, and glosses "beginning".
func sampleText(t *testing.T, repo *lexicon.Memory) (*corpus.Text, *lexicon.Gloss) {
	t.Helper()
	var b ftext.Builder
	b.Append("1", "en", "Verse Number")
	b.Append(" In the beginning God created. And it was good.", "en", "")

	text := corpus.NewText("Genesis")
	para := corpus.NewParagraph(b.String())
	text.AddParagraph(para)

	p := newParser(repo)
	require.True(t, p.Reparse(para))

	var gloss *lexicon.Gloss
	for _, ref := range p.WordOccurrencesIn(para) {
		if ref.Occurrence.Text() == "beginning" {
			a := ref.Occurrence.Wordform().AddAnalysis("n", "begin-ing")
			gloss = a.AddGloss("en", "start")
			require.NoError(t, ref.Segment.SetOccurrence(ref.Index, lexicon.OfGloss(gloss)))
		}
	}
	require.NotNil(t, gloss)
	return text, gloss
}

func TestOpen_FreshDatabase(t *testing.T) {
	s, path := openStore(t)
	assert.Equal(t, path, s.Path())

	texts, err := s.ListTexts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestOpen_NewerSchemaRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "future.db")
	db := sqlite.MustOpen(path)
	_, err := db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = store.Open(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupported), "got %v", err)
}

func TestOpen_MigratesVersion1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v1.db")
	db := sqlite.MustOpen(path)
	_, err := db.Exec(`CREATE TABLE paragraphs (
		id           TEXT PRIMARY KEY,
		text_id      TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		contents     TEXT NOT NULL,
		runs         TEXT NOT NULL,
		parse_marker TEXT NOT NULL DEFAULT ''
	);
	INSERT INTO paragraphs (id, text_id, seq, contents, runs) VALUES ('p1', 't1', 0, 'x', '[]');
	PRAGMA user_version = 1;`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := store.Open(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	db = sqlite.MustOpen(path)
	defer db.Close()
	var broken string
	require.NoError(t, db.QueryRow("SELECT broken_phrases FROM paragraphs WHERE id = 'p1'").Scan(&broken))
	assert.Equal(t, "[]", broken)
	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, store.SchemaVersion, version)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, path := openStore(t)

	repo := lexicon.NewMemory()
	text, gloss := sampleText(t, repo)
	require.NoError(t, s.Save(ctx, repo, text))
	require.NoError(t, s.Close())

	s2, err := store.Open(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	loadedRepo, err := s2.LoadLexicon(ctx)
	require.NoError(t, err)
	assert.Len(t, loadedRepo.Wordforms(), len(repo.Wordforms()))
	assert.Len(t, loadedRepo.Punctuations(), len(repo.Punctuations()))

	loaded, err := s2.LoadText(ctx, loadedRepo, text.ID)
	require.NoError(t, err)
	assert.Equal(t, "Genesis", loaded.Title)
	require.Len(t, loaded.Paragraphs(), 1)

	orig := text.Paragraph(0)
	got := loaded.Paragraph(0)
	assert.Equal(t, orig.ID, got.ID)
	assert.True(t, orig.Contents().Equal(got.Contents()))
	assert.True(t, got.ParseIsCurrent(), "parse marker should survive a round trip")
	require.Len(t, got.Segments(), len(orig.Segments()))

	for i, seg := range got.Segments() {
		want := orig.Segments()[i]
		assert.Equal(t, want.ID, seg.ID)
		assert.Equal(t, want.Begin(), seg.Begin())
		assert.Equal(t, want.Spans(), seg.Spans())
		require.Equal(t, want.Len(), seg.Len())
		for j, occ := range seg.Occurrences() {
			assert.Equal(t, want.Occurrences()[j].ID(), occ.ID(), "segment %d occurrence %d", i, j)
			assert.Equal(t, want.Occurrences()[j].Kind(), occ.Kind())
		}
	}

	loadedGloss, ok := loadedRepo.GlossByID(gloss.ID)
	require.True(t, ok)
	assert.Equal(t, "start", loadedGloss.Text)
	assert.Equal(t, "begin-ing", loadedGloss.Analysis().Morphemes)

	// A loaded, current text reparses as a no-op and keeps the gloss.
	p := newParser(loadedRepo)
	report := p.ForceReparse(got)
	assert.False(t, report.Changed)
	assert.Zero(t, report.Lost)
}

func TestSave_ResaveKeepsAnalyses(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	repo := lexicon.NewMemory()
	text, gloss := sampleText(t, repo)
	require.NoError(t, s.Save(ctx, repo, text))

	text.Title = "Genesis 1"
	gloss.Analysis().AddGloss("fr", "commencement")
	require.NoError(t, s.Save(ctx, repo, text))

	loadedRepo, err := s.LoadLexicon(ctx)
	require.NoError(t, err)
	g, ok := loadedRepo.GlossByID(gloss.ID)
	require.True(t, ok)
	assert.Len(t, g.Analysis().Glosses(), 2)

	texts, err := s.ListTexts(ctx)
	require.NoError(t, err)
	require.Len(t, texts, 1)
	assert.Equal(t, store.TextInfo{ID: text.ID, Title: "Genesis 1", Paragraphs: 1}, texts[0])
}

func TestSave_EditedTextReplacesParagraphs(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	repo := lexicon.NewMemory()
	text, _ := sampleText(t, repo)
	require.NoError(t, s.Save(ctx, repo, text))

	extra := corpus.NewParagraph(ftext.Plain("Second paragraph.", "en"))
	text.AddParagraph(extra)
	newParser(repo).Reparse(extra)
	require.NoError(t, s.Save(ctx, repo, text))

	loaded, err := s.LoadText(ctx, repo, text.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Paragraphs(), 2)
	assert.Equal(t, "Second paragraph.", loaded.Paragraph(1).Contents().Text())
}

func TestFindText(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	repo := lexicon.NewMemory()
	text, _ := sampleText(t, repo)
	require.NoError(t, s.Save(ctx, repo, text))

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"by id", text.ID, nil},
		{"by title", "Genesis", nil},
		{"missing", "Exodus", errors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindText(ctx, repo, tt.key)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, text.ID, got.ID)
		})
	}
}

func TestLoadText_UnresolvedReferencesInvalidateParse(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	repo := lexicon.NewMemory()
	text, _ := sampleText(t, repo)
	require.NoError(t, s.Save(ctx, repo, text))

	// An empty lexicon resolves nothing.
	loaded, err := s.LoadText(ctx, lexicon.NewMemory(), text.ID)
	require.NoError(t, err)
	para := loaded.Paragraph(0)
	assert.False(t, para.ParseIsCurrent())
	for _, seg := range para.Segments() {
		assert.Zero(t, seg.Len())
	}
}

func TestDeleteText(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	repo := lexicon.NewMemory()
	text, _ := sampleText(t, repo)
	require.NoError(t, s.Save(ctx, repo, text))

	require.NoError(t, s.DeleteText(ctx, text.ID))
	_, err := s.LoadText(ctx, repo, text.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)

	err = s.DeleteText(ctx, text.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)

	// The lexicon outlives the text.
	loadedRepo, err := s.LoadLexicon(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, loadedRepo.Wordforms())
}

func TestSaveLoad_BrokenPhraseStaysBroken(t *testing.T) {
	ctx := context.Background()
	s, _ := openStore(t)

	repo := lexicon.NewMemory()
	p := newParser(repo)
	text := corpus.NewText("Phrases")
	text.AddParagraph(corpus.NewParagraph(ftext.Plain("He went in the house.", "en")))
	p.ReparseText(text, false)

	para := text.Paragraph(0)
	in := p.WordOccurrencesIn(para)[2]
	phrase, err := p.JoinWords(in.Segment, in.Index, 2)
	require.NoError(t, err)
	joined := p.WordOccurrencesIn(para)[2]
	require.NoError(t, p.BreakPhrase(joined.Segment, joined.Index))
	require.NoError(t, s.Save(ctx, repo, text))

	loadedRepo, err := s.LoadLexicon(ctx)
	require.NoError(t, err)
	loaded, err := s.LoadText(ctx, loadedRepo, text.ID)
	require.NoError(t, err)
	lp := loaded.Paragraph(0)
	assert.Equal(t, []string{phrase.Wordform().ID}, lp.SuppressedPhrases())

	q := newParser(loadedRepo)
	report := q.ReparseText(loaded, true)
	assert.Zero(t, report.PhraseHits)
	var words []string
	for _, ref := range q.WordOccurrencesIn(lp) {
		words = append(words, lp.Contents().Slice(ref.Min, ref.Lim))
	}
	assert.Equal(t, []string{"He", "went", "in", "the", "house"}, words)
}
