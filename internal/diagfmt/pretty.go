package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"fishls/internal/diag"
	"fishls/internal/source"
)

type palette struct {
	err, warn, info, hint *color.Color
	code, path, gutter    *color.Color
	caret                 *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:    color.New(color.FgRed, color.Bold),
		warn:   color.New(color.FgYellow, color.Bold),
		info:   color.New(color.FgBlue, color.Bold),
		hint:   color.New(color.FgCyan),
		code:   color.New(color.Faint),
		path:   color.New(color.Bold),
		gutter: color.New(color.FgBlue),
		caret:  color.New(color.FgGreen, color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.hint, p.code, p.path, p.gutter, p.caret} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	case diag.SevInfo:
		return p.info
	default:
		return p.hint
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

// Pretty renders every file with a header line followed by its diagnostics:
//
//	<path>:<line>:<col>: <severity>[<code>] <name>: <message>
//
// then the source line with a ^~~~ underline. Files without diagnostics
// are skipped.
func Pretty(w io.Writer, files []File, opts PrettyOpts) {
	p := newPalette(opts.Color)
	first := true
	for _, f := range files {
		if len(f.Diagnostics) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false
		path := displayPath(f.Path, opts.PathMode, opts.BaseDir)
		header := "== " + path + " =="
		if opts.Color {
			header = headerStyle.Render(header)
		}
		fmt.Fprintln(w, header)
		for _, d := range f.Diagnostics {
			prettyOne(w, p, path, f.Doc, d, opts)
		}
	}
}

func prettyOne(w io.Writer, p palette, path string, doc *source.Document, d diag.Diagnostic, opts PrettyOpts) {
	start := d.Range.Start
	fmt.Fprintf(w, "%s:%d:%d: %s%s %s\n",
		p.path.Sprint(path), start.Line+1, column(doc, start),
		p.severity(d.Severity).Sprint(d.Severity.Label()),
		p.code.Sprintf("[%s]", d.Code.ID()),
		d.Message)
	if doc == nil || start.Line >= doc.LineCount() {
		return
	}

	gutterWidth := len(fmt.Sprint(start.Line + 1))
	first := max(start.Line-opts.Context, 0)
	for i := first; i <= start.Line; i++ {
		line := expandTabs(doc.Line(i))
		if opts.Width > 0 {
			line = runewidth.Truncate(line, opts.Width, "...")
		}
		fmt.Fprintf(w, "%s %s\n", p.gutter.Sprintf("%*d |", gutterWidth, i+1), line)
	}

	text := doc.Line(start.Line)
	from := min(start.Character, len(text))
	to := len(text)
	if d.Range.End.Line == start.Line {
		to = min(max(d.Range.End.Character, from), len(text))
	}
	pad := runewidth.StringWidth(expandTabs(text[:from]))
	span := max(runewidth.StringWidth(expandTabs(text[from:to])), 1)
	underline := "^" + strings.Repeat("~", span-1)
	fmt.Fprintf(w, "%s %s%s\n", p.gutter.Sprint(strings.Repeat(" ", gutterWidth)+" |"), strings.Repeat(" ", pad), p.caret.Sprint(underline))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}

// Short renders one line per diagnostic in the stable grep-friendly form.
func Short(w io.Writer, files []File, opts PrettyOpts) {
	for _, f := range files {
		if len(f.Diagnostics) == 0 {
			continue
		}
		fmt.Fprintln(w, diag.FormatShort(displayPath(f.Path, opts.PathMode, opts.BaseDir), f.Diagnostics))
	}
}
