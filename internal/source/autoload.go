package source

import (
	"path/filepath"
	"strings"
)

// AutoloadKind tells where fish would load a file from.
type AutoloadKind uint8

const (
	AutoloadNone AutoloadKind = iota
	AutoloadFunctions
	AutoloadConfD
	AutoloadConfig
	AutoloadCompletions
)

var autoloadKindNames = [...]string{
	AutoloadNone:        "none",
	AutoloadFunctions:   "functions",
	AutoloadConfD:       "conf.d",
	AutoloadConfig:      "config",
	AutoloadCompletions: "completions",
}

func (k AutoloadKind) String() string {
	if int(k) < len(autoloadKindNames) {
		return autoloadKindNames[k]
	}
	return "unknown"
}

// Autoload describes a document's autoload location. Name is the file stem,
// which for functions/ files is the function fish expects to find.
type Autoload struct {
	Kind AutoloadKind
	Name string
}

// DefinesGlobalFunctions reports whether top-level functions in this file are
// visible to every fish session.
func (a Autoload) DefinesGlobalFunctions() bool {
	switch a.Kind {
	case AutoloadFunctions, AutoloadConfD, AutoloadConfig:
		return true
	}
	return false
}

// ClassifyPath derives the autoload classification from a file path.
func ClassifyPath(path string) Autoload {
	if path == "" {
		return Autoload{}
	}
	slashed := filepath.ToSlash(path)
	base := filepath.Base(slashed)
	stem := strings.TrimSuffix(base, ".fish")
	dir := filepath.Base(filepath.Dir(slashed))
	switch {
	case base == "config.fish":
		return Autoload{Kind: AutoloadConfig, Name: stem}
	case dir == "functions":
		return Autoload{Kind: AutoloadFunctions, Name: stem}
	case dir == "conf.d":
		return Autoload{Kind: AutoloadConfD, Name: stem}
	case dir == "completions":
		return Autoload{Kind: AutoloadCompletions, Name: stem}
	}
	return Autoload{Kind: AutoloadNone, Name: stem}
}
