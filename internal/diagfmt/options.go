package diagfmt

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"fishls/internal/diag"
	"fishls/internal/source"
)

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto prints paths below BaseDir relative to it and others as given.
	PathModeAuto PathMode = iota
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// File is the diagnostic result for one analyzed file. Doc is optional; it
// supplies source context and character columns.
type File struct {
	Path        string
	Doc         *source.Document
	Diagnostics []diag.Diagnostic
}

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color    bool
	PathMode PathMode
	BaseDir  string
	// Context is the number of source lines shown above each diagnostic.
	Context int
	// Width caps the rendered source line width; 0 means unlimited.
	Width int
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	PathMode PathMode
	BaseDir  string
	// Max truncates the output per file, not the analysis.
	Max int
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}

func displayPath(path string, mode PathMode, base string) string {
	switch mode {
	case PathModeAbsolute:
		if abs, err := filepath.Abs(path); err == nil {
			return filepath.ToSlash(abs)
		}
	case PathModeBasename:
		return filepath.Base(path)
	case PathModeRelative, PathModeAuto:
		if base == "" {
			break
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			break
		}
		if mode == PathModeAuto && strings.HasPrefix(rel, "..") {
			break
		}
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

// column returns the 1-based character column of p. Positions are kept in
// bytes internally; users count characters.
func column(doc *source.Document, p source.Position) int {
	if doc == nil {
		return p.Character + 1
	}
	line := doc.Line(p.Line)
	if p.Character > len(line) {
		return utf8.RuneCountInString(line) + 1 + (p.Character - len(line))
	}
	return utf8.RuneCountInString(line[:p.Character]) + 1
}
