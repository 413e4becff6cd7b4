package parser

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/JuniperInterlinear/core/ftext"
	"github.com/FocuswithJustin/JuniperInterlinear/core/wsys"
)

func TestClassAt(t *testing.T) {
	c := classify(verse("12"), plain(" Hi, yo\u2028"), piece{text: "λόγος", ws: "grc"}, plain("\n"))
	text := c.Text().Text()

	tests := []struct {
		name string
		off  int
		want Class
	}{
		{"label digit", 0, ClassLabel},
		{"space", 2, ClassWhite},
		{"letter", 3, ClassWord},
		{"comma", 5, ClassPunct},
		{"line separator", strings.Index(text, "\u2028"), ClassBreak},
		{"greek letter", strings.Index(text, "λ"), ClassWord},
		{"newline", strings.Index(text, "\n"), ClassBreak},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, size := c.ClassAt(tt.off)
			if got != tt.want || size == 0 {
				t.Errorf("ClassAt(%d) = %v, %d; want %v", tt.off, got, size, tt.want)
			}
		})
	}

	if cls, size := c.ClassAt(len(text)); cls != ClassWhite || size != 0 {
		t.Errorf("ClassAt(end) = %v, %d", cls, size)
	}
	if cls, size := c.ClassAt(-1); cls != ClassWhite || size != 0 {
		t.Errorf("ClassAt(-1) = %v, %d", cls, size)
	}
}

func TestIsWordForming_PrimaryOnly(t *testing.T) {
	c := classify(plain("see "), piece{text: "λόγος", ws: "grc"})
	if c.PrimaryID() != "en" {
		t.Fatalf("PrimaryID() = %q, want en", c.PrimaryID())
	}
	if !c.IsWordForming(0) {
		t.Error("primary letter should be word-forming")
	}
	if c.IsWordForming(4) {
		t.Error("letters of another writing system are not word-forming for the scan")
	}
	if got := c.WritingSystemAt(4).ID; got != "grc" {
		t.Errorf("WritingSystemAt(4) = %q", got)
	}
	if c.IsWordForming(100) {
		t.Error("out of range is never word-forming")
	}
}

func TestClassifier_Fallbacks(t *testing.T) {
	reg := testRegistry()

	empty := NewClassifier(&ftext.String{}, reg, nil)
	if empty.PrimaryID() != "en" || empty.Primary() != reg.Default() {
		t.Errorf("empty text primary = %q", empty.PrimaryID())
	}

	// An unregistered writing system keeps its id but classifies with the default.
	odd := NewClassifier(ftext.Plain("abc", "xx"), reg, nil)
	if odd.PrimaryID() != "xx" {
		t.Errorf("PrimaryID() = %q, want xx", odd.PrimaryID())
	}
	if !odd.IsWordForming(1) {
		t.Error("unregistered writing system should still classify letters")
	}

	noReg := NewClassifier(ftext.Plain("abc", ""), nil, nil)
	if noReg.PrimaryID() != "und" {
		t.Errorf("nil registry primary = %q, want und", noReg.PrimaryID())
	}
}

func TestClassifier_WordFormingOverrides(t *testing.T) {
	reg := wsys.NewRegistry(wsys.MustNew("haw", "haw", "ʻ"))
	c := NewClassifier(ftext.Plain("Hawaiʻi", "haw"), reg, nil)
	off := strings.Index("Hawaiʻi", "ʻ")
	if !c.IsWordForming(off) {
		t.Error("ʻokina should be word-forming in haw")
	}
	if cls, _ := c.ClassAt(off); cls != ClassWord {
		t.Errorf("ClassAt(okina) = %v", cls)
	}
}
