package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity. Each level admits the scopes of the
// previous one plus one finer scope.
type Level uint8

const (
	LevelOff    Level = iota // nothing
	LevelError               // heartbeats and error points only
	LevelPhase               // server and document events
	LevelDetail              // plus analysis passes
	LevelDebug               // plus per-node rule events
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a flag or config value to a Level. The empty string
// is LevelOff.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelOff, nil
	}
	for i, name := range levelNames {
		if s == name {
			return Level(i), nil
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	if l < LevelPhase {
		return false
	}
	// phase admits up to ScopeDocument, detail up to ScopePass, debug all
	return scope <= Scope(l-LevelPhase)+ScopeDocument
}

// admits is ShouldEmit with heartbeats and error points always passing
// once tracing is on.
func (l Level) admits(ev *Event) bool {
	if l == LevelOff {
		return false
	}
	return ev.Kind == KindHeartbeat || ev.Name == errorPoint || l.ShouldEmit(ev.Scope)
}
