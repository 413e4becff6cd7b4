// Command interlinear imports texts, segments and tokenizes them, and keeps
// word glosses attached while the texts are edited.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/config"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/logging"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/store"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/validation"
)

const version = "0.1.0"

// Globals are flags shared by every command.
type Globals struct {
	Config string `name:"config" short:"c" help:"Configuration file (default $INTERLINEAR_CONFIG or ./interlinear.yaml)" type:"path"`
	DB     string `name:"db" help:"SQLite database, overrides database.path" type:"path"`

	out io.Writer `kong:"-"`
}

// CLI defines the command-line interface for interlinear.
var CLI struct {
	Globals

	// Command groups (noun-first organization)
	Text    TextGroup  `cmd:"" help:"Text import, parsing, display and export"`
	Gloss   GlossGroup `cmd:"" help:"Word and phrase glosses"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// TextGroup contains text operations.
type TextGroup struct {
	Import      ImportCmd      `cmd:"" help:"Import markup (.sfm) or FLEx (.flextext[.xz]) files"`
	List        ListCmd        `cmd:"" help:"List stored texts"`
	Parse       ParseCmd       `cmd:"" help:"Reparse a text, keeping analyses where the words still match"`
	Show        ShowCmd        `cmd:"" help:"Print a text as markup, segments or an interlinear"`
	Export      ExportCmd      `cmd:"" help:"Write a text as .flextext or markup"`
	Concordance ConcordanceCmd `cmd:"" help:"Index the words of one or more texts"`
	Delete      DeleteCmd      `cmd:"" help:"Remove a text from the database"`
}

// GlossGroup contains gloss operations.
type GlossGroup struct {
	Add   GlossAddCmd   `cmd:"" help:"Gloss every occurrence of a word or phrase in a text"`
	Break GlossBreakCmd `cmd:"" help:"Split a phrase back into separate words, dropping its gloss"`
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(g *Globals) error {
	fmt.Fprintf(g.stdout(), "interlinear version %s (schema %d)\n", version, store.SchemaVersion)
	return nil
}

func (g *Globals) stdout() io.Writer {
	if g.out == nil {
		return os.Stdout
	}
	return g.out
}

// workspace is an open database with its lexicon loaded and a parser over it.
type workspace struct {
	cfg    *config.Config
	store  *store.Store
	repo   *lexicon.Memory
	parser *parser.Parser
}

// open loads configuration, initialises logging and opens the database.
func (g *Globals) open(ctx context.Context) (*workspace, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.DB != "" {
		if err := validation.ValidatePath(g.DB); err != nil {
			return nil, errors.Wrap(err, "invalid database path")
		}
		cfg.Database.Path = g.DB
	}
	logging.InitLogger(cfg.LogLevel(), cfg.LogFormat())

	st, err := store.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	repo, err := st.LoadLexicon(ctx)
	if err != nil {
		st.Close()
		return nil, err
	}
	p := parser.New(cfg.Registry(), repo, nil,
		parser.WithDriftTolerance(cfg.Parser.DriftTolerance),
		parser.WithLabelStyles(cfg.Parser.LabelStyles...),
		parser.WithLogger(logging.GetLogger()))

	return &workspace{cfg: cfg, store: st, repo: repo, parser: p}, nil
}

func (w *workspace) Close() error {
	return w.store.Close()
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("interlinear"),
		kong.Description("Interlinear text segmentation with annotation reuse"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.BindTo(context.Background(), (*context.Context)(nil)),
	)
	err := ctx.Run(&CLI.Globals)
	ctx.FatalIfErrorf(err)
}
