// Package store persists a lexicon and its texts in a SQLite database.
//
// The lexicon (wordforms, analyses, glosses, punctuation) is saved with
// upserts so IDs stay stable across saves. A text is saved by replacing its
// paragraphs wholesale; segments and occurrences cascade with them. Each
// occurrence is stored as a (kind, id) reference into the lexicon and is
// resolved against a lexicon.Memory when the text is loaded.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FocuswithJustin/JuniperInterlinear/core/cache"
	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/sqlite"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/logging"
)

// SchemaVersion is written to PRAGMA user_version.
const SchemaVersion = 2

// migrations bring a database at version k-1 up to version k.
var migrations = map[int]string{
	2: `ALTER TABLE paragraphs ADD COLUMN broken_phrases TEXT NOT NULL DEFAULT '[]'`,
}

const schema = `
CREATE TABLE IF NOT EXISTS wordforms (
	id   TEXT PRIMARY KEY,
	form TEXT NOT NULL,
	ws   TEXT NOT NULL,
	seq  INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS analyses (
	id          TEXT PRIMARY KEY,
	wordform_id TEXT NOT NULL REFERENCES wordforms(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	morphemes   TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS glosses (
	id          TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	ws          TEXT NOT NULL,
	text        TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS punctuation (
	id   TEXT PRIMARY KEY,
	text TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS texts (
	id    TEXT PRIMARY KEY,
	title TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS paragraphs (
	id           TEXT PRIMARY KEY,
	text_id      TEXT NOT NULL REFERENCES texts(id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	contents     TEXT NOT NULL,
	runs         TEXT NOT NULL,
	parse_marker TEXT NOT NULL DEFAULT '',
	broken_phrases TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE IF NOT EXISTS segments (
	id           TEXT PRIMARY KEY,
	paragraph_id TEXT NOT NULL REFERENCES paragraphs(id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	begin_offset INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS occurrences (
	segment_id TEXT NOT NULL REFERENCES segments(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	ref        TEXT NOT NULL,
	span_min   INTEGER NOT NULL,
	span_lim   INTEGER NOT NULL,
	PRIMARY KEY (segment_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_paragraphs_text ON paragraphs(text_id, seq);
CREATE INDEX IF NOT EXISTS idx_segments_paragraph ON segments(paragraph_id, seq);
CREATE INDEX IF NOT EXISTS idx_texts_title ON texts(title);
`

// TextInfo summarizes a stored text.
type TextInfo struct {
	ID         string
	Title      string
	Paragraphs int
}

// Store is a SQLite-backed repository of texts and their lexicon.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	start := time.Now()
	db, err := sqlite.OpenFile(ctx, path)
	if err != nil {
		return nil, err
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		db.Close()
		return nil, errors.NewIO("open", path, err)
	}
	if version > SchemaVersion {
		db.Close()
		return nil, errors.NewUnsupported("schema", fmt.Sprintf("database schema version %d is newer than %d", version, SchemaVersion))
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, errors.NewIO("migrate", path, err)
	}
	// A fresh database (version 0) already has the current schema.
	for v := version + 1; version > 0 && v <= SchemaVersion; v++ {
		if _, err := db.ExecContext(ctx, migrations[v]); err != nil {
			db.Close()
			return nil, errors.NewIO(fmt.Sprintf("migrate to %d", v), path, err)
		}
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
		db.Close()
		return nil, errors.NewIO("migrate", path, err)
	}

	logging.StoreOperation(ctx, "open", path, time.Since(start), "driver", sqlite.DriverName())
	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.path
}

// Save writes the whole lexicon of repo and then each text, in one
// transaction.
func (s *Store) Save(ctx context.Context, repo *lexicon.Memory, texts ...*corpus.Text) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewIO("save", s.path, err)
	}
	defer tx.Rollback()

	if err := saveLexicon(ctx, tx, repo); err != nil {
		return errors.NewIO("save lexicon", s.path, err)
	}
	for _, t := range texts {
		if err := saveText(ctx, tx, t); err != nil {
			return errors.NewIO("save text "+t.ID, s.path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.NewIO("save", s.path, err)
	}

	logging.StoreOperation(ctx, "save", s.path, time.Since(start),
		"wordforms", len(repo.Wordforms()), "texts", len(texts))
	return nil
}

func saveLexicon(ctx context.Context, tx *sql.Tx, repo *lexicon.Memory) error {
	wfStmt, err := tx.PrepareContext(ctx, `INSERT INTO wordforms (id, form, ws, seq) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET form = excluded.form, ws = excluded.ws, seq = excluded.seq`)
	if err != nil {
		return err
	}
	defer wfStmt.Close()

	anStmt, err := tx.PrepareContext(ctx, `INSERT INTO analyses (id, wordform_id, seq, category, morphemes) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET wordform_id = excluded.wordform_id, seq = excluded.seq,
			category = excluded.category, morphemes = excluded.morphemes`)
	if err != nil {
		return err
	}
	defer anStmt.Close()

	glStmt, err := tx.PrepareContext(ctx, `INSERT INTO glosses (id, analysis_id, seq, ws, text) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET analysis_id = excluded.analysis_id, seq = excluded.seq,
			ws = excluded.ws, text = excluded.text`)
	if err != nil {
		return err
	}
	defer glStmt.Close()

	for i, w := range repo.Wordforms() {
		if _, err := wfStmt.ExecContext(ctx, w.ID, w.Form, w.WS, i); err != nil {
			return err
		}
		for j, a := range w.Analyses() {
			if _, err := anStmt.ExecContext(ctx, a.ID, w.ID, j, a.Category, a.Morphemes); err != nil {
				return err
			}
			for k, g := range a.Glosses() {
				if _, err := glStmt.ExecContext(ctx, g.ID, a.ID, k, g.WS, g.Text); err != nil {
					return err
				}
			}
		}
	}

	puStmt, err := tx.PrepareContext(ctx, `INSERT INTO punctuation (id, text) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET text = excluded.text`)
	if err != nil {
		return err
	}
	defer puStmt.Close()
	for _, p := range repo.Punctuations() {
		if _, err := puStmt.ExecContext(ctx, p.ID, p.Text); err != nil {
			return err
		}
	}
	return nil
}

func saveText(ctx context.Context, tx *sql.Tx, t *corpus.Text) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO texts (id, title) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title`, t.ID, t.Title); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM paragraphs WHERE text_id = ?", t.ID); err != nil {
		return err
	}

	paraStmt, err := tx.PrepareContext(ctx, `INSERT INTO paragraphs (id, text_id, seq, contents, runs, parse_marker, broken_phrases)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer paraStmt.Close()
	segStmt, err := tx.PrepareContext(ctx, "INSERT INTO segments (id, paragraph_id, seq, begin_offset) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer segStmt.Close()
	occStmt, err := tx.PrepareContext(ctx, `INSERT INTO occurrences (segment_id, seq, kind, ref, span_min, span_lim)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer occStmt.Close()

	for i, p := range t.Paragraphs() {
		runs, err := json.Marshal(p.Contents().Runs())
		if err != nil {
			return err
		}
		broken, err := json.Marshal(p.SuppressedPhrases())
		if err != nil {
			return err
		}
		if _, err := paraStmt.ExecContext(ctx, p.ID, t.ID, i, p.Contents().Text(), string(runs), p.ParseMarker(), string(broken)); err != nil {
			return err
		}
		for j, seg := range p.Segments() {
			if _, err := segStmt.ExecContext(ctx, seg.ID, p.ID, j, seg.Begin()); err != nil {
				return err
			}
			spans := seg.Spans()
			for k, occ := range seg.Occurrences() {
				if occ.IsZero() {
					continue
				}
				if _, err := occStmt.ExecContext(ctx, seg.ID, k, occ.Kind().String(), occ.ID(), spans[k].Min, spans[k].Lim); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// LoadLexicon reads the stored lexicon into a new repository.
func (s *Store) LoadLexicon(ctx context.Context) (*lexicon.Memory, error) {
	repo := lexicon.NewMemory()
	if err := s.LoadLexiconInto(ctx, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

// LoadLexiconInto merges the stored lexicon into repo. A stored wordform
// whose form and writing system repo already knows is merged into the
// existing object.
func (s *Store) LoadLexiconInto(ctx context.Context, repo *lexicon.Memory) error {
	start := time.Now()

	wordforms := make(map[string]*lexicon.Wordform)
	rows, err := s.db.QueryContext(ctx, "SELECT id, form, ws FROM wordforms ORDER BY seq")
	if err != nil {
		return errors.NewIO("load lexicon", s.path, err)
	}
	for rows.Next() {
		var id, form, ws string
		if err := rows.Scan(&id, &form, &ws); err != nil {
			rows.Close()
			return errors.NewIO("load lexicon", s.path, err)
		}
		wordforms[id] = repo.RestoreWordform(id, form, ws)
	}
	if err := closeRows(rows); err != nil {
		return errors.NewIO("load lexicon", s.path, err)
	}

	analyses := make(map[string]*lexicon.Analysis)
	rows, err = s.db.QueryContext(ctx, "SELECT id, wordform_id, category, morphemes FROM analyses ORDER BY wordform_id, seq")
	if err != nil {
		return errors.NewIO("load lexicon", s.path, err)
	}
	for rows.Next() {
		var id, wfID, category, morphemes string
		if err := rows.Scan(&id, &wfID, &category, &morphemes); err != nil {
			rows.Close()
			return errors.NewIO("load lexicon", s.path, err)
		}
		w, ok := wordforms[wfID]
		if !ok {
			continue
		}
		if _, known := repo.AnalysisByID(id); known {
			continue
		}
		analyses[id] = w.RestoreAnalysis(id, category, morphemes)
	}
	if err := closeRows(rows); err != nil {
		return errors.NewIO("load lexicon", s.path, err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, analysis_id, ws, text FROM glosses ORDER BY analysis_id, seq")
	if err != nil {
		return errors.NewIO("load lexicon", s.path, err)
	}
	for rows.Next() {
		var id, anID, ws, text string
		if err := rows.Scan(&id, &anID, &ws, &text); err != nil {
			rows.Close()
			return errors.NewIO("load lexicon", s.path, err)
		}
		if a, ok := analyses[anID]; ok {
			a.RestoreGloss(id, ws, text)
		}
	}
	if err := closeRows(rows); err != nil {
		return errors.NewIO("load lexicon", s.path, err)
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, text FROM punctuation")
	if err != nil {
		return errors.NewIO("load lexicon", s.path, err)
	}
	for rows.Next() {
		var id, text string
		if err := rows.Scan(&id, &text); err != nil {
			rows.Close()
			return errors.NewIO("load lexicon", s.path, err)
		}
		repo.RestorePunctuation(id, text)
	}
	if err := closeRows(rows); err != nil {
		return errors.NewIO("load lexicon", s.path, err)
	}

	logging.StoreOperation(ctx, "load_lexicon", s.path, time.Since(start),
		"wordforms", len(wordforms), "analyses", len(analyses))
	return nil
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	return rows.Close()
}

// ListTexts returns every stored text ordered by title.
func (s *Store) ListTexts(ctx context.Context) ([]TextInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT t.id, t.title, COUNT(p.id)
		FROM texts t LEFT JOIN paragraphs p ON p.text_id = t.id
		GROUP BY t.id, t.title ORDER BY t.title, t.id`)
	if err != nil {
		return nil, errors.NewIO("list texts", s.path, err)
	}
	var out []TextInfo
	for rows.Next() {
		var info TextInfo
		if err := rows.Scan(&info.ID, &info.Title, &info.Paragraphs); err != nil {
			rows.Close()
			return nil, errors.NewIO("list texts", s.path, err)
		}
		out = append(out, info)
	}
	if err := closeRows(rows); err != nil {
		return nil, errors.NewIO("list texts", s.path, err)
	}
	return out, nil
}

// FindText loads the text whose ID or title is key.
func (s *Store) FindText(ctx context.Context, repo *lexicon.Memory, key string) (*corpus.Text, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM texts WHERE id = ? OR title = ? ORDER BY id = ? DESC LIMIT 1",
		key, key, key).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("text", key)
	}
	if err != nil {
		return nil, errors.NewIO("find text", s.path, err)
	}
	return s.LoadText(ctx, repo, id)
}

type refKey struct {
	kind lexicon.Kind
	id   string
}

// LoadText reads text id, resolving occurrences against repo. A paragraph
// with an occurrence that repo cannot resolve loses that occurrence and has
// its parse marker cleared so the next reparse rebuilds it.
func (s *Store) LoadText(ctx context.Context, repo *lexicon.Memory, id string) (*corpus.Text, error) {
	start := time.Now()

	var title string
	err := s.db.QueryRowContext(ctx, "SELECT title FROM texts WHERE id = ?", id).Scan(&title)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("text", id)
	}
	if err != nil {
		return nil, errors.NewIO("load text", s.path, err)
	}
	t := corpus.RestoreText(id, title)

	rows, err := s.db.QueryContext(ctx, "SELECT id, contents, runs, parse_marker, broken_phrases FROM paragraphs WHERE text_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, errors.NewIO("load text", s.path, err)
	}
	for rows.Next() {
		var pid, contents, runsJSON, marker, brokenJSON string
		if err := rows.Scan(&pid, &contents, &runsJSON, &marker, &brokenJSON); err != nil {
			rows.Close()
			return nil, errors.NewIO("load text", s.path, err)
		}
		var runs []ftext.Run
		if err := json.Unmarshal([]byte(runsJSON), &runs); err != nil {
			rows.Close()
			return nil, errors.NewParse("sqlite", s.path, fmt.Sprintf("paragraph %s: bad runs: %v", pid, err))
		}
		str, err := ftext.New(contents, runs)
		if err != nil {
			rows.Close()
			return nil, errors.NewParse("sqlite", s.path, fmt.Sprintf("paragraph %s: %v", pid, err))
		}
		var broken []string
		if err := json.Unmarshal([]byte(brokenJSON), &broken); err != nil {
			rows.Close()
			return nil, errors.NewParse("sqlite", s.path, fmt.Sprintf("paragraph %s: bad broken phrases: %v", pid, err))
		}
		p := corpus.RestoreParagraph(pid, str)
		p.RestoreParseMarker(marker)
		for _, id := range broken {
			p.SuppressPhrase(id)
		}
		t.AddParagraph(p)
	}
	if err := closeRows(rows); err != nil {
		return nil, errors.NewIO("load text", s.path, err)
	}

	resolved := cache.NewLRUCache[refKey, lexicon.Occurrence](cache.DefaultConfig())
	for _, p := range t.Paragraphs() {
		if err := s.loadSegments(ctx, repo, p, resolved); err != nil {
			return nil, err
		}
	}

	stats := resolved.Stats()
	logging.StoreOperation(ctx, "load_text", s.path, time.Since(start),
		"text", id, "paragraphs", len(t.Paragraphs()), "ref_hits", stats.Hits, "ref_misses", stats.Misses)
	return t, nil
}

func (s *Store) loadSegments(ctx context.Context, repo *lexicon.Memory, p *corpus.Paragraph, resolved cache.Cache[refKey, lexicon.Occurrence]) error {
	rows, err := s.db.QueryContext(ctx, `SELECT s.id, s.begin_offset, o.kind, o.ref, o.span_min, o.span_lim
		FROM segments s LEFT JOIN occurrences o ON o.segment_id = s.id
		WHERE s.paragraph_id = ? ORDER BY s.seq, o.seq`, p.ID)
	if err != nil {
		return errors.NewIO("load segments", s.path, err)
	}

	type pending struct {
		seg   *corpus.Segment
		occs  []lexicon.Occurrence
		spans []corpus.Span
	}
	var segs []*pending
	stale := false
	for rows.Next() {
		var (
			segID    string
			begin    int
			kindName sql.NullString
			ref      sql.NullString
			spanMin  sql.NullInt64
			spanLim  sql.NullInt64
		)
		if err := rows.Scan(&segID, &begin, &kindName, &ref, &spanMin, &spanLim); err != nil {
			rows.Close()
			return errors.NewIO("load segments", s.path, err)
		}
		if len(segs) == 0 || segs[len(segs)-1].seg.ID != segID {
			segs = append(segs, &pending{seg: p.RestoreSegment(segID, begin)})
		}
		if !kindName.Valid {
			continue
		}
		cur := segs[len(segs)-1]
		occ, ok := resolve(repo, resolved, kindName.String, ref.String)
		if !ok {
			stale = true
			continue
		}
		cur.occs = append(cur.occs, occ)
		cur.spans = append(cur.spans, corpus.Span{Min: int(spanMin.Int64), Lim: int(spanLim.Int64)})
	}
	if err := closeRows(rows); err != nil {
		return errors.NewIO("load segments", s.path, err)
	}

	list := make([]*corpus.Segment, len(segs))
	for i, ps := range segs {
		ps.seg.SetOccurrences(ps.occs, ps.spans)
		list[i] = ps.seg
	}
	p.SetSegments(list)
	if stale {
		p.InvalidateParse()
	}
	return nil
}

func resolve(repo *lexicon.Memory, resolved cache.Cache[refKey, lexicon.Occurrence], kindName, id string) (lexicon.Occurrence, bool) {
	kind, ok := lexicon.ParseKind(kindName)
	if !ok {
		return lexicon.Occurrence{}, false
	}
	key := refKey{kind: kind, id: id}
	if occ, ok := resolved.Get(key); ok {
		return occ, true
	}
	occ, ok := repo.Resolve(kind, id)
	if ok {
		resolved.Put(key, occ)
	}
	return occ, ok
}

// DeleteText removes text id and everything it owns. The lexicon is kept.
func (s *Store) DeleteText(ctx context.Context, id string) error {
	start := time.Now()
	res, err := s.db.ExecContext(ctx, "DELETE FROM texts WHERE id = ?", id)
	if err != nil {
		return errors.NewIO("delete text", s.path, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewIO("delete text", s.path, err)
	}
	if n == 0 {
		return errors.NewNotFound("text", id)
	}
	logging.StoreOperation(ctx, "delete_text", s.path, time.Since(start), "text", id)
	return nil
}
