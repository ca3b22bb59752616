package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment variables understood by the fish language server. Exported
// fish lists arrive joined by spaces; commas and colons are accepted too.
const (
	EnvDisabledCodes      = "fish_lsp_diagnostic_disable_error_codes"
	EnvEnabledHandlers    = "fish_lsp_enabled_handlers"
	EnvDisabledHandlers   = "fish_lsp_disabled_handlers"
	EnvStrictConditional  = "fish_lsp_strict_conditional_command_warnings"
	EnvMaxDiagnostics     = "fish_lsp_max_diagnostics"
	EnvIndexedPaths       = "fish_lsp_all_indexed_paths"
	EnvMaxBackgroundFiles = "fish_lsp_max_background_files"
	EnvLogFile            = "fish_lsp_log_file"

	// envLogFileDeprecated is still read when the new name is unset.
	envLogFileDeprecated = "fish_lsp_logfile"
)

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ',' || r == ':'
	})
}

// ApplyEnv overlays the fish-lsp environment variables onto cfg and
// revalidates it.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDisabledCodes); ok {
		codes := []int{}
		for _, field := range splitList(v) {
			n, err := strconv.Atoi(field)
			if err != nil {
				return fmt.Errorf("%s: invalid code %q", EnvDisabledCodes, field)
			}
			codes = append(codes, n)
		}
		cfg.Diagnostics.DisabledCodes = codes
	}
	if v, ok := lookup(EnvEnabledHandlers); ok {
		cfg.Handlers.Enabled = splitList(v)
	}
	if v, ok := lookup(EnvDisabledHandlers); ok {
		cfg.Handlers.Disabled = splitList(v)
	}
	if v, ok := lookup(EnvStrictConditional); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvStrictConditional, err)
		}
		cfg.Diagnostics.StrictConditional = b
	}
	if v, ok := lookup(EnvMaxDiagnostics); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxDiagnostics, err)
		}
		cfg.Diagnostics.MaxDiagnostics = n
	}
	if v, ok := lookup(EnvIndexedPaths); ok {
		paths := splitPaths(v)
		for i, p := range paths {
			paths[i] = resolvePath(".", p)
		}
		cfg.Workspace.Paths = paths
	}
	if v, ok := lookup(EnvMaxBackgroundFiles); ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMaxBackgroundFiles, err)
		}
		cfg.Workspace.MaxBackgroundFiles = n
	}
	if v, ok := lookup(EnvLogFile); ok && v != "" {
		cfg.Log.File = v
	} else if v, ok := lookup(envLogFileDeprecated); ok && v != "" {
		cfg.Log.File = v
	}
	return cfg.Validate()
}

// splitPaths keeps commas inside paths.
func splitPaths(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ':'
	})
}
