package source

import (
	"strings"
	"unicode/utf8"
)

// Change is one content change from the client. A nil Range replaces the
// whole document. Range positions are UTF-16 based.
type Change struct {
	Range *Range
	Text  string
}

// Apply returns a new document with changes applied in order and the line
// span touched in the resulting text. full is true when any change replaced
// the entire document.
func (d *Document) Apply(version int32, changes []Change) (next *Document, span LineSpan, full bool) {
	text := d.Text
	span = LineSpan{Start: -1, End: -1}
	for _, change := range changes {
		if change.Range == nil {
			text = change.Text
			full = true
			continue
		}
		start := offsetForPosition(text, change.Range.Start)
		end := offsetForPosition(text, change.Range.End)
		if end < start {
			end = start
		}
		text = text[:start] + change.Text + text[end:]

		first := change.Range.Start.Line
		last := max(change.Range.End.Line, first+strings.Count(change.Text, "\n"))
		if span.Start < 0 || first < span.Start {
			span.Start = first
		}
		span.End = max(span.End, last)
	}
	next = NewDocument(d.URI, text, version)
	if full {
		span = LineSpan{Start: 0, End: next.LineCount() - 1}
	}
	if span.Start < 0 {
		span = LineSpan{}
	}
	return next, span, full
}

// offsetForPosition maps a UTF-16 position onto a byte offset in text.
func offsetForPosition(text string, pos Position) int {
	if pos.Line < 0 || pos.Character < 0 {
		return 0
	}
	line := 0
	i := 0
	for i < len(text) && line < pos.Line {
		if text[i] == '\n' {
			line++
		}
		i++
	}
	if line < pos.Line {
		return len(text)
	}
	units := 0
	for i < len(text) && text[i] != '\n' && units < pos.Character {
		r, size := utf8.DecodeRuneInString(text[i:])
		need := utf16Len(r)
		if units+need > pos.Character {
			break
		}
		units += need
		i += size
	}
	return i
}
