package parser

import (
	"io"
	"log/slog"

	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/lexicon"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
)

type piece struct {
	text  string
	ws    string
	style string
}

func plain(text string) piece { return piece{text: text, ws: "en"} }

func verse(n string) piece { return piece{text: n, ws: "en", style: "Verse Number"} }

func chapter(n string) piece { return piece{text: n, ws: "en", style: "Chapter Number"} }

func build(pieces ...piece) *ftext.String {
	var b ftext.Builder
	for _, p := range pieces {
		b.Append(p.text, p.ws, p.style)
	}
	return b.String()
}

func testRegistry() *wsys.Registry {
	reg := wsys.NewRegistry(wsys.MustNew("en", "en", ""))
	reg.Register(wsys.MustNew("grc", "el", ""))
	reg.Register(wsys.MustNew("tr", "tr", ""))
	reg.Register(wsys.MustNew("haw", "haw", "ʻ"))
	return reg
}

func testLabels() map[string]bool {
	return map[string]bool{"Chapter Number": true, "Verse Number": true}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestParser(opts ...Option) (*Parser, *lexicon.Memory) {
	repo := lexicon.NewMemory()
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	return New(testRegistry(), repo, nil, opts...), repo
}

func classify(pieces ...piece) *Classifier {
	return NewClassifier(build(pieces...), testRegistry(), testLabels())
}
