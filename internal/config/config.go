// Package config loads fishls settings from fishls.toml, fish-lsp
// environment variables and client settings, and publishes them as
// immutable snapshots.
package config

import (
	"fmt"
	"slices"
	"time"

	"fishls/internal/diag"
	"fishls/internal/trace"
)

// FileName is the configuration file searched for upward from the workspace.
const FileName = "fishls.toml"

// DefaultDebounce is the delay between the last edit and a diagnostic run.
const DefaultDebounce = 400 * time.Millisecond

// Handler names accepted by [handlers] enabled/disabled.
const (
	HandlerDiagnostic      = "diagnostic"
	HandlerDefinition      = "definition"
	HandlerReferences      = "references"
	HandlerDocumentSymbol  = "documentSymbol"
	HandlerWorkspaceSymbol = "workspaceSymbol"
	HandlerIndex           = "index"
)

var knownHandlers = []string{
	HandlerDiagnostic,
	HandlerDefinition,
	HandlerReferences,
	HandlerDocumentSymbol,
	HandlerWorkspaceSymbol,
	HandlerIndex,
}

// Config is the complete fishls configuration. Values published through a
// Store are never mutated.
type Config struct {
	Diagnostics Diagnostics `toml:"diagnostics"`
	Handlers    Handlers    `toml:"handlers"`
	Workspace   Workspace   `toml:"workspace"`
	Log         Log         `toml:"log"`
}

type Diagnostics struct {
	DisabledCodes     []int    `toml:"disabled_codes"`
	StrictConditional bool     `toml:"strict_conditional_command_warnings"`
	MaxDiagnostics    int      `toml:"max_diagnostics"`
	Debounce          Duration `toml:"debounce"`
}

type Handlers struct {
	Enabled  []string `toml:"enabled"`
	Disabled []string `toml:"disabled"`
}

type Workspace struct {
	Paths              []string `toml:"paths"`
	MaxBackgroundFiles int      `toml:"max_background_files"`
}

type Log struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Duration decodes TOML strings such as "250ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Diagnostics: Diagnostics{
			StrictConditional: true,
			Debounce:          Duration{DefaultDebounce},
		},
		Workspace: Workspace{MaxBackgroundFiles: 10000},
		Log:       Log{Level: "off"},
	}
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Diagnostics.DisabledCodes = slices.Clone(c.Diagnostics.DisabledCodes)
	out.Handlers.Enabled = slices.Clone(c.Handlers.Enabled)
	out.Handlers.Disabled = slices.Clone(c.Handlers.Disabled)
	out.Workspace.Paths = slices.Clone(c.Workspace.Paths)
	return &out
}

// Validate rejects unknown codes, unknown handlers and negative limits.
func (c *Config) Validate() error {
	for _, n := range c.Diagnostics.DisabledCodes {
		if n < 0 || n > 0xFFFF || !diag.Code(n).IsValid() {
			return fmt.Errorf("diagnostics.disabled_codes: unknown code %d", n)
		}
	}
	if c.Diagnostics.MaxDiagnostics < 0 {
		return fmt.Errorf("diagnostics.max_diagnostics must be >= 0, got %d", c.Diagnostics.MaxDiagnostics)
	}
	if c.Diagnostics.Debounce.Duration < 0 {
		return fmt.Errorf("diagnostics.debounce must be >= 0, got %s", c.Diagnostics.Debounce)
	}
	for _, h := range append(slices.Clone(c.Handlers.Enabled), c.Handlers.Disabled...) {
		if !slices.Contains(knownHandlers, h) {
			return fmt.Errorf("handlers: unknown handler %q", h)
		}
	}
	if c.Workspace.MaxBackgroundFiles < 0 {
		return fmt.Errorf("workspace.max_background_files must be >= 0, got %d", c.Workspace.MaxBackgroundFiles)
	}
	if _, err := trace.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// CodeDisabled reports whether code is switched off by configuration.
func (c *Config) CodeDisabled(code diag.Code) bool {
	return slices.Contains(c.Diagnostics.DisabledCodes, int(code))
}

// EnabledCodes is the registry minus the configuration-disabled codes.
func (c *Config) EnabledCodes() []diag.Code {
	all := diag.AllCodes()
	out := all[:0]
	for _, code := range all {
		if !c.CodeDisabled(code) {
			out = append(out, code)
		}
	}
	return out
}

// HandlerEnabled reports whether the named handler may run. A non-empty
// enabled list is an allow-list; the disabled list always wins.
func (c *Config) HandlerEnabled(name string) bool {
	if slices.Contains(c.Handlers.Disabled, name) {
		return false
	}
	if len(c.Handlers.Enabled) > 0 {
		return slices.Contains(c.Handlers.Enabled, name)
	}
	return true
}

// DebounceDuration falls back to DefaultDebounce when unset.
func (c *Config) DebounceDuration() time.Duration {
	if c.Diagnostics.Debounce.Duration <= 0 {
		return DefaultDebounce
	}
	return c.Diagnostics.Debounce.Duration
}

// TraceLevel returns the parsed log level, or LevelOff when invalid.
func (c *Config) TraceLevel() trace.Level {
	level, err := trace.ParseLevel(c.Log.Level)
	if err != nil {
		return trace.LevelOff
	}
	return level
}
