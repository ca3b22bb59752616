package diagfmt

import (
	"encoding/json"
	"io"

	"fishls/internal/diag"
)

// LocationJSON is a 1-based line/column range.
type LocationJSON struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     int          `json:"code"`
	Name     string       `json:"name"`
	Message  string       `json:"message"`
	Href     string       `json:"href,omitempty"`
	Location LocationJSON `json:"location"`
}

type FileJSON struct {
	Path        string           `json:"path"`
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Truncated   bool             `json:"truncated,omitempty"`
}

// DiagnosticsOutput is the root of the JSON output.
type DiagnosticsOutput struct {
	Files  []FileJSON `json:"files"`
	Count  int        `json:"count"`
	Errors int        `json:"errors"`
}

// BuildDiagnosticsOutput forms the JSON structure without serializing it.
// Every file is listed, including clean ones.
func BuildDiagnosticsOutput(files []File, opts JSONOpts) DiagnosticsOutput {
	out := DiagnosticsOutput{Files: make([]FileJSON, 0, len(files))}
	for _, f := range files {
		path := displayPath(f.Path, opts.PathMode, opts.BaseDir)
		items := f.Diagnostics
		fj := FileJSON{Path: path}
		if opts.Max > 0 && len(items) > opts.Max {
			items = items[:opts.Max]
			fj.Truncated = true
		}
		fj.Diagnostics = make([]DiagnosticJSON, 0, len(items))
		for _, d := range items {
			fj.Diagnostics = append(fj.Diagnostics, DiagnosticJSON{
				Severity: d.Severity.String(),
				Code:     int(d.Code),
				Name:     d.Code.Name(),
				Message:  d.Message,
				Href:     d.Code.Href(),
				Location: LocationJSON{
					File:      path,
					StartLine: d.Range.Start.Line + 1,
					StartCol:  column(f.Doc, d.Range.Start),
					EndLine:   d.Range.End.Line + 1,
					EndCol:    column(f.Doc, d.Range.End),
				},
			})
			if d.Severity == diag.SevError {
				out.Errors++
			}
		}
		out.Count += len(fj.Diagnostics)
		out.Files = append(out.Files, fj)
	}
	return out
}

// JSON writes the indented JSON form of files.
func JSON(w io.Writer, files []File, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(files, opts))
}
