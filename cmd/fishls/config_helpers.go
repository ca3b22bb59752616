package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fishls/internal/analysis"
	"fishls/internal/config"
)

// loadConfig resolves fishls.toml and the environment for startDir and
// applies the global flag overrides.
func loadConfig(cmd *cobra.Command, startDir string) (*config.Config, string, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, "", fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, used, err := config.Resolve(config.Options{Path: path, StartDir: startDir})
	if err != nil {
		return nil, used, err
	}
	if err := applyFlagOverrides(cmd, cfg); err != nil {
		return nil, used, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, used, fmt.Errorf("%s: %w", valueOr(used, "configuration"), err)
	}
	return cfg, used, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("max-diagnostics") {
		maxDiagnostics, err := flags.GetInt("max-diagnostics")
		if err != nil {
			return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
		}
		cfg.Diagnostics.MaxDiagnostics = maxDiagnostics
	}
	return nil
}

// newAnalyzer builds an analyzer around cfg for command-line use.
func newAnalyzer(cfg *config.Config, quiet bool) *analysis.Analyzer {
	logf := func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, "fishls: "+format+"\n", args...)
	}
	if quiet {
		logf = func(string, ...any) {}
	}
	return analysis.New(analysis.Options{Config: config.NewStore(cfg), Logf: logf})
}

func quietFlag(cmd *cobra.Command) (bool, error) {
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return false, fmt.Errorf("failed to get quiet flag: %w", err)
	}
	return quiet, nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
