package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/concordance"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/flextext"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/logging"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/markup"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/validation"
)

// ImportCmd reads markup or .flextext files into the database.
type ImportCmd struct {
	Paths   []string `arg:"" help:"Files to import" type:"existingfile"`
	Title   string   `help:"Title for markup without an \\id line"`
	WS      string   `name:"ws" help:"Writing system of markup text (default: configured default)"`
	Replace bool     `help:"Replace stored texts with the same ID or title"`
}

func (c *ImportCmd) Run(ctx context.Context, g *Globals) error {
	w, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	var texts []*corpus.Text
	for _, path := range c.Paths {
		imported, err := c.importFile(w, path)
		if err != nil {
			return err
		}
		texts = append(texts, imported...)
	}
	if err := c.resolveConflicts(ctx, w, texts); err != nil {
		return err
	}
	if err := w.store.Save(ctx, w.repo, texts...); err != nil {
		return err
	}

	out := g.stdout()
	for _, t := range texts {
		fmt.Fprintf(out, "imported %q (%d paragraphs) as %s\n", t.Title, len(t.Paragraphs()), t.ID)
	}
	return nil
}

// resolveConflicts refuses texts whose ID or title is already stored, or
// with --replace deletes the stored ones first.
func (c *ImportCmd) resolveConflicts(ctx context.Context, w *workspace, texts []*corpus.Text) error {
	stored, err := w.store.ListTexts(ctx)
	if err != nil {
		return err
	}
	for _, t := range texts {
		for _, info := range stored {
			if info.ID != t.ID && info.Title != t.Title {
				continue
			}
			if !c.Replace {
				return errors.Wrapf(errors.ErrAlreadyExists, "text %q (use --replace)", info.Title)
			}
			if info.ID != t.ID {
				if err := w.store.DeleteText(ctx, info.ID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *ImportCmd) importFile(w *workspace, path string) ([]*corpus.Text, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, errors.Wrap(err, "invalid input path")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	format, err := validation.DetectFormat(f, path)
	f.Close()
	if err != nil {
		return nil, err
	}

	switch format {
	case validation.FormatFlexText:
		res, err := flextext.ImportFile(path, w.parser)
		if err != nil {
			return nil, errors.Wrapf(err, "import %s", filepath.Base(path))
		}
		if res.Dropped > 0 {
			logging.Warn("annotations_dropped", "path", path, "dropped", res.Dropped, "attached", res.Attached)
		}
		return res.Texts, nil
	default:
		ws := c.WS
		if ws == "" {
			ws = w.cfg.DefaultWritingSystem
		}
		title := c.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		texts, err := markup.ParseFile(path, markup.Options{
			Title:         title,
			WritingSystem: ws,
			Registry:      w.parser.Registry(),
		})
		if err != nil {
			return nil, err
		}
		paragraphs := 0
		for _, t := range texts {
			paragraphs += w.parser.ReparseText(t, false).Paragraphs
		}
		logging.ImportEvent("markup", path, paragraphs, "texts", len(texts))
		return texts, nil
	}
}

// ListCmd lists stored texts.
type ListCmd struct{}

func (c *ListCmd) Run(ctx context.Context, g *Globals) error {
	w, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	infos, err := w.store.ListTexts(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(g.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPARAGRAPHS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", info.ID, info.Title, info.Paragraphs)
	}
	return tw.Flush()
}

// ParseCmd reparses a stored text.
type ParseCmd struct {
	Text  string `arg:"" help:"Text ID or title"`
	Force bool   `help:"Reparse paragraphs whose parse is current"`
}

func (c *ParseCmd) Run(ctx context.Context, g *Globals) error {
	w, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	t, err := w.store.FindText(ctx, w.repo, c.Text)
	if err != nil {
		return err
	}
	ctx = logging.WithTextID(ctx, t.ID)
	report := w.parser.ReparseText(t, c.Force)
	if err := w.store.Save(ctx, w.repo, t); err != nil {
		return err
	}
	logging.InfoContext(ctx, "text_reparsed", "changed", report.Changed, "reused", report.Reused, "lost", report.Lost)
	if report.Lost > 0 {
		logging.WarnContext(ctx, "text_analyses_lost", "lost", report.Lost)
	}
	fmt.Fprintf(g.stdout(), "%s: %d paragraphs, %d changed, %d skipped, %d segments, %d analyses kept, %d lost, %d phrases found\n",
		t.Title, report.Paragraphs, report.Changed, report.Skipped, report.Segments, report.Reused, report.Lost, report.PhraseHits)
	return nil
}

// ShowCmd prints a stored text.
type ShowCmd struct {
	Text string `arg:"" help:"Text ID or title"`
	Ref  string `help:"Only the passage at chapter[:verse[-verse]]"`
	As   string `help:"Output form" enum:"markup,segments,interlinear" default:"markup"`
}

func (c *ShowCmd) Run(ctx context.Context, g *Globals) error {
	w, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	t, err := w.store.FindText(ctx, w.repo, c.Text)
	if err != nil {
		return err
	}

	out := g.stdout()
	if c.Ref != "" {
		ref, err := markup.ParseRef(c.Ref)
		if err != nil {
			return err
		}
		passages := markup.Locate(w.parser, t, ref)
		if len(passages) == 0 {
			return errors.NewNotFound("passage", t.Title+" "+ref.String())
		}
		for _, ps := range passages {
			if c.As == "interlinear" {
				writeInterlinear(out, w.parser, t.Paragraph(ps.Paragraph), ps.View)
				continue
			}
			fmt.Fprintf(out, "%d:%d\t%s\n", ps.Chapter, ps.Verse, strings.TrimSpace(ps.View.Text))
		}
		return nil
	}

	switch c.As {
	case "segments":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for pi, para := range t.Paragraphs() {
			for _, view := range w.parser.SegmentsFor(para) {
				fmt.Fprintf(tw, "%d.%d\t%s\t%d-%d\t%q\n", pi+1, view.Index+1, view.Kind, view.Begin, view.End, view.Text)
			}
		}
		return tw.Flush()
	case "interlinear":
		for _, para := range t.Paragraphs() {
			for _, view := range w.parser.SegmentsFor(para) {
				if view.Kind == parser.SpanText {
					writeInterlinear(out, w.parser, para, view)
				}
			}
		}
		return nil
	default:
		return markup.Format(out, w.cfg.DefaultWritingSystem, t)
	}
}

// ExportCmd writes a stored text to a file.
type ExportCmd struct {
	Text     string `arg:"" help:"Text ID or title"`
	Out      string `short:"o" help:"Output file (default: the title with the format's extension)" type:"path"`
	Format   string `help:"Output format" enum:"flextext,markup" default:"flextext"`
	Compress bool   `help:"Compress .flextext output with xz"`
}

func (c *ExportCmd) Run(ctx context.Context, g *Globals) error {
	w, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	t, err := w.store.FindText(ctx, w.repo, c.Text)
	if err != nil {
		return err
	}

	path := c.Out
	if path == "" {
		name, err := validation.SanitizeFilename(t.Title)
		if err != nil {
			return fmt.Errorf("cannot derive a file name from %q: %w", t.Title, err)
		}
		if c.Format == "markup" {
			path = name + ".sfm"
		} else {
			path = name + ".flextext"
		}
	}
	if c.Format == "flextext" && c.Compress && !flextext.IsCompressed(path) {
		path += flextext.CompressedExt
	}
	if err := validation.ValidatePath(path); err != nil {
		return errors.Wrap(err, "invalid output path")
	}

	if c.Format == "markup" {
		if err := os.WriteFile(path, []byte(markup.FormatString(w.cfg.DefaultWritingSystem, t)), 0o644); err != nil {
			return errors.NewIO("write", path, err)
		}
	} else if err := flextext.ExportFile(path, w.parser, t); err != nil {
		return err
	}
	// Export may have reparsed stale paragraphs.
	if err := w.store.Save(ctx, w.repo, t); err != nil {
		return err
	}
	fmt.Fprintf(g.stdout(), "wrote %s\n", path)
	return nil
}

// ConcordanceCmd prints a word index.
type ConcordanceCmd struct {
	Texts []string `arg:"" help:"Text IDs or titles"`
	Word  string   `help:"Only this word"`
	Top   int      `help:"Only the N most frequent words (0 for all)" default:"0"`
}

func (c *ConcordanceCmd) Run(ctx context.Context, g *Globals) error {
	w, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	texts := make([]*corpus.Text, 0, len(c.Texts))
	for _, key := range c.Texts {
		t, err := w.store.FindText(ctx, w.repo, key)
		if err != nil {
			return err
		}
		texts = append(texts, t)
	}
	conc := concordance.Build(w.parser, texts...)

	var entries []concordance.Entry
	switch {
	case c.Word != "":
		refs := conc.Lookup(w.cfg.DefaultWritingSystem, c.Word)
		if refs == nil {
			return errors.NewNotFound("word", c.Word)
		}
		entries = []concordance.Entry{{Key: w.parser.Session().Lower(w.cfg.DefaultWritingSystem, c.Word), Refs: refs}}
	case c.Top > 0:
		entries = conc.ByFrequency()
		entries = entries[:min(c.Top, len(entries))]
	default:
		entries = conc.Entries()
	}
	return concordance.Write(g.stdout(), entries)
}

// DeleteCmd removes a stored text.
type DeleteCmd struct {
	Text string `arg:"" help:"Text ID or title"`
}

func (c *DeleteCmd) Run(ctx context.Context, g *Globals) error {
	w, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	t, err := w.store.FindText(ctx, w.repo, c.Text)
	if err != nil {
		return err
	}
	if err := w.store.DeleteText(ctx, t.ID); err != nil {
		return err
	}
	fmt.Fprintf(g.stdout(), "deleted %q\n", t.Title)
	return nil
}
