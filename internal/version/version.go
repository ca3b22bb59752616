package version

import (
	"strings"

	"github.com/fatih/color"
)

// Build metadata for the fishls binary, overridable via -ldflags.
var (
	// Version is the plain semantic version.
	Version = "0.1.0-dev"

	GitCommit = ""

	// BuildDate is an optional build date in ISO-8601.
	BuildDate = ""
)

var (
	majorColor = color.New(color.FgYellow, color.Bold)
	minorColor = color.New(color.FgGreen, color.Bold)
	patchColor = color.New(color.FgBlue, color.Bold)
)

// Colored renders Version with one color per component. Output follows
// color.NoColor, so it is plain when colors are off.
func Colored() string {
	core, suffix := Version, ""
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core, suffix = core[:i], core[i:]
	}
	parts := strings.SplitN(core, ".", 3)
	if len(parts) != 3 {
		return Version
	}
	return majorColor.Sprint(parts[0]) + "." + minorColor.Sprint(parts[1]) + "." + patchColor.Sprint(parts[2]) + suffix
}

// String is the one-line description used by the server info and the CLI.
func String() string {
	var b strings.Builder
	b.WriteString(Version)
	if commit := strings.TrimSpace(GitCommit); commit != "" {
		if len(commit) > 12 {
			commit = commit[:12]
		}
		b.WriteString(" (" + commit + ")")
	}
	if date := strings.TrimSpace(BuildDate); date != "" {
		b.WriteString(" built " + date)
	}
	return b.String()
}
