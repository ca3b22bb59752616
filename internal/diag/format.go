package diag

import (
	"fmt"
	"path/filepath"
	"strings"
)

// FormatShort renders diagnostics one per line as
// "<severity> <code> <path>:<line>:<col> <message>" with 1-based positions.
// The input order is preserved.
func FormatShort(path string, diags []Diagnostic) string {
	var b strings.Builder
	path = filepath.ToSlash(path)
	for i, d := range diags {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s",
			d.Severity.Label(), d.Code.ID(), path,
			d.Range.Start.Line+1, d.Range.Start.Character+1,
			sanitizeMessage(d.Message))
		if i < len(diags)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
