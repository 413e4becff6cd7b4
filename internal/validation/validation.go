// Package validation checks user-supplied paths, file names, identifiers and
// import files before they reach the store or the readers.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"
)

// Limits on user input.
const (
	// MaxFilenameLength is the maximum allowed filename length.
	MaxFilenameLength = 255
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
	// MaxIdentifierLength bounds writing system ids.
	MaxIdentifierLength = 64
)

// Common validation errors.
var (
	ErrInvalidFilename   = errors.New("invalid filename")
	ErrPathTooLong       = errors.New("path too long")
	ErrFilenameTooLong   = errors.New("filename too long")
	ErrInvalidCharacter  = errors.New("invalid character in path")
	ErrEmptyPath         = errors.New("path cannot be empty")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrFormatMismatch    = errors.New("file content does not match its extension")
	ErrUnknownFormat     = errors.New("unknown import format")
)

// ValidatePath checks a path for length limits and invalid characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// ValidateFilename checks that filename is a single safe path element.
func ValidateFilename(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}
	if len(filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if filename == "." || filename == ".." {
		return fmt.Errorf("%w: reserved name", ErrInvalidFilename)
	}
	if strings.ContainsAny(filename, "/\\") {
		return fmt.Errorf("%w: path separator not allowed", ErrInvalidFilename)
	}
	for _, r := range filename {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidFilename)
		}
	}
	// Names starting with a hyphen read as command flags.
	if strings.HasPrefix(filename, "-") {
		return fmt.Errorf("%w: filename cannot start with hyphen", ErrInvalidFilename)
	}
	return nil
}

// SanitizeFilename turns a text title into a file name: separators become
// underscores, control characters and leading hyphens are dropped.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)

	var cleaned strings.Builder
	for _, r := range name {
		if !unicode.IsControl(r) {
			cleaned.WriteRune(r)
		}
	}
	name = strings.TrimLeft(cleaned.String(), "-")

	if err := ValidateFilename(name); err != nil {
		return "", err
	}
	return name, nil
}

// ValidateIdentifier checks a writing system id: a letter followed by
// letters, digits, hyphens or underscores.
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}
	if len(id) > MaxIdentifierLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidIdentifier, MaxIdentifierLength)
	}
	for i, r := range id {
		switch {
		case unicode.IsLetter(r):
		case i > 0 && (unicode.IsDigit(r) || r == '-' || r == '_'):
		default:
			return fmt.Errorf("%w: %q at byte %d", ErrInvalidIdentifier, r, i)
		}
	}
	return nil
}

// Format is an import file format.
type Format string

const (
	FormatMarkup   Format = "markup"
	FormatFlexText Format = "flextext"
	FormatUnknown  Format = "unknown"
)

// magicBytes are signatures of binary files that are never valid text input.
var magicBytes = []struct {
	name  string
	magic []byte
}{
	{"xz", []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{"gzip", []byte{0x1f, 0x8b}},
	{"zip", []byte{0x50, 0x4b, 0x03, 0x04}},
	{"sqlite", []byte("SQLite format 3")},
}

// FormatFromExtension maps a file name to the import format its extension
// names. A ".xz" suffix is looked through.
func FormatFromExtension(filename string) Format {
	lower := strings.ToLower(filename)
	lower = strings.TrimSuffix(lower, ".xz")
	switch filepath.Ext(lower) {
	case ".flextext":
		return FormatFlexText
	case ".sfm", ".usfm", ".txt":
		return FormatMarkup
	default:
		return FormatUnknown
	}
}

// DetectFormat reads the head of an import file and checks that its content
// agrees with the format its name claims.
func DetectFormat(r io.Reader, filename string) (Format, error) {
	format := FormatFromExtension(filename)
	if format == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%w: %s", ErrUnknownFormat, filepath.Base(filename))
	}

	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]
	detected := detectMagic(buf)

	if strings.HasSuffix(strings.ToLower(filename), ".xz") {
		if detected != "xz" {
			return FormatUnknown, fmt.Errorf("%w: %s is not xz compressed", ErrFormatMismatch, filepath.Base(filename))
		}
		return format, nil
	}
	if detected != "" {
		return FormatUnknown, fmt.Errorf("%w: %s contains %s data", ErrFormatMismatch, filepath.Base(filename), detected)
	}
	if !isLikelyText(buf) {
		return FormatUnknown, fmt.Errorf("%w: %s is not text", ErrFormatMismatch, filepath.Base(filename))
	}
	if format == FormatFlexText && !bytes.HasPrefix(bytes.TrimLeft(bytes.TrimPrefix(buf, []byte("\xef\xbb\xbf")), " \t\r\n"), []byte("<")) {
		return FormatUnknown, fmt.Errorf("%w: %s is not XML", ErrFormatMismatch, filepath.Base(filename))
	}
	return format, nil
}

func detectMagic(buf []byte) string {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.name
		}
	}
	return ""
}

// isLikelyText reports whether buf looks like UTF-8 text. An empty file
// counts as text.
func isLikelyText(buf []byte) bool {
	if len(buf) == 0 {
		return true
	}
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable := 0
	control := 0
	for _, b := range buf {
		if b >= 0x20 || b == '\t' || b == '\n' || b == '\r' {
			printable++
		} else {
			control++
		}
	}
	return float64(printable)/float64(printable+control) > 0.95
}
