package flextext

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/JuniperInterlinear/core/corpus"
	"github.com/FocuswithJustin/JuniperInterlinear/core/errors"
	"github.com/FocuswithJustin/JuniperInterlinear/core/parser"
	"github.com/FocuswithJustin/JuniperInterlinear/internal/logging"
)

// CompressedExt marks an xz-compressed file.
const CompressedExt = ".xz"

// IsCompressed reports whether path names an xz-compressed file.
func IsCompressed(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), CompressedExt)
}

// ExportFile writes texts to path, compressing with xz when path ends
// in .xz.
func ExportFile(path string, p *parser.Parser, texts ...*corpus.Text) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewIO("close", path, cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	var w io.Writer = bw
	var xw *xz.Writer
	if IsCompressed(path) {
		xw, err = xz.NewWriter(bw)
		if err != nil {
			return errors.NewIO("compress", path, err)
		}
		w = xw
	}

	if err := Export(w, p, texts...); err != nil {
		return errors.NewIO("write", path, err)
	}
	if xw != nil {
		if err := xw.Close(); err != nil {
			return errors.NewIO("compress", path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.NewIO("write", path, err)
	}

	logging.ImportEvent("flextext", path, countParagraphs(texts), "direction", "export", "compressed", xw != nil)
	return nil
}

// ImportFile reads the .flextext (or .flextext.xz) file at path.
func ImportFile(path string, p *parser.Parser) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()

	var r io.Reader = bufio.NewReader(f)
	if IsCompressed(path) {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, errors.NewIO("decompress", path, err)
		}
		r = xr
	}

	res, err := Import(r, path, p)
	if err != nil {
		return nil, err
	}
	logging.ImportEvent("flextext", path, countParagraphs(res.Texts),
		"direction", "import", "attached", res.Attached, "dropped", res.Dropped)
	return res, nil
}

func countParagraphs(texts []*corpus.Text) int {
	n := 0
	for _, t := range texts {
		n += len(t.Paragraphs())
	}
	return n
}
