package source

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Document is an immutable snapshot of one text document.
type Document struct {
	URI     string
	Path    string
	Version int32
	Text    string

	lineStarts []int
}

func NewDocument(uri, text string, version int32) *Document {
	d := &Document{URI: uri, Path: URIToPath(uri), Version: version, Text: text}
	d.lineStarts = buildLineStarts(text)
	return d
}

// NewDocumentFromPath builds a document for a file on disk.
func NewDocumentFromPath(path string, content []byte) *Document {
	content, _ = removeBOM(content)
	return NewDocument(PathToURI(path), string(content), 0)
}

func buildLineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func removeBOM(content []byte) ([]byte, bool) {
	if len(content) >= 3 && content[0] == 0xEF && content[1] == 0xBB && content[2] == 0xBF {
		return content[3:], true
	}
	return content, false
}

func (d *Document) Bytes() []byte { return []byte(d.Text) }

func (d *Document) LineCount() int { return len(d.lineStarts) }

// Line returns line i without its terminator.
func (d *Document) Line(i int) string {
	if i < 0 || i >= len(d.lineStarts) {
		return ""
	}
	start := d.lineStarts[i]
	end := len(d.Text)
	if i+1 < len(d.lineStarts) {
		end = d.lineStarts[i+1] - 1
	}
	return strings.TrimSuffix(d.Text[start:end], "\r")
}

// Offset converts a byte-column position into a byte offset, clamped to the
// document.
func (d *Document) Offset(p Position) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(d.lineStarts) {
		return len(d.Text)
	}
	line := d.Line(p.Line)
	col := min(max(p.Character, 0), len(line))
	return d.lineStarts[p.Line] + col
}

// PositionAt converts a byte offset to a byte-column position.
func (d *Document) PositionAt(offset int) Position {
	offset = min(max(offset, 0), len(d.Text))
	line := sort.Search(len(d.lineStarts), func(i int) bool { return d.lineStarts[i] > offset }) - 1
	return Position{Line: line, Character: offset - d.lineStarts[line]}
}

// ToUTF16 converts a byte-column position into UTF-16 code units.
func (d *Document) ToUTF16(p Position) Position {
	line := d.Line(p.Line)
	col := min(max(p.Character, 0), len(line))
	units := 0
	for _, r := range line[:col] {
		units += utf16Len(r)
	}
	return Position{Line: p.Line, Character: units}
}

// FromUTF16 converts a UTF-16 position into a byte-column position.
func (d *Document) FromUTF16(p Position) Position {
	line := d.Line(p.Line)
	units := 0
	for i, r := range line {
		if units >= p.Character {
			return Position{Line: p.Line, Character: i}
		}
		units += utf16Len(r)
	}
	return Position{Line: p.Line, Character: len(line)}
}

// RangeToUTF16 converts both ends of r.
func (d *Document) RangeToUTF16(r Range) Range {
	return Range{Start: d.ToUTF16(r.Start), End: d.ToUTF16(r.End)}
}

func utf16Len(r rune) int {
	if r == utf8.RuneError || r <= 0xFFFF {
		return 1
	}
	return 2
}

// Autoload classifies the document location.
func (d *Document) Autoload() Autoload {
	return ClassifyPath(d.Path)
}

// IsAutoloadedFunctionFile reports whether the document lives in a
// functions/ directory.
func (d *Document) IsAutoloadedFunctionFile() bool {
	return d.Autoload().Kind == AutoloadFunctions
}

// Name returns the file base name.
func (d *Document) Name() string {
	if d.Path != "" {
		return filepath.Base(d.Path)
	}
	return d.URI
}
