package main

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"fishls/internal/analysis"
	"fishls/internal/config"
	"fishls/internal/ui"
)

var indexCmd = &cobra.Command{
	Use:   "index [flags] [directory...]",
	Short: "Index fish files and report the workspace symbols found",
	Long: `Index every *.fish file below the given directories, or below the configured
workspace paths when none are given, and print a summary of the global symbols.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().String("ui", "auto", "progress view (auto|on|off)")
	indexCmd.Flags().Int("jobs", 0, "max parallel workers (0=auto)")
}

type indexOutcome struct {
	summary analysis.IndexSummary
	err     error
}

func runIndex(cmd *cobra.Command, args []string) error {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	quiet, err := quietFlag(cmd)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, _, err := loadConfig(cmd, wd)
	if err != nil {
		return err
	}
	roots := indexRoots(args, cfg)
	if len(roots) == 0 {
		return fmt.Errorf("nothing to index: pass a directory or set workspace.paths")
	}

	a := newAnalyzer(cfg, quiet)
	opts := analysis.IndexOptions{MaxFiles: cfg.Workspace.MaxBackgroundFiles, Jobs: jobs}

	var summary analysis.IndexSummary
	if shouldUseTUI(mode, quiet) {
		summary, err = runIndexWithUI(cmd.Context(), a, roots, opts)
	} else {
		summary, err = a.IndexWorkspace(cmd.Context(), roots, opts)
	}
	if err != nil {
		return err
	}
	if !quiet {
		printIndexSummary(cmd.OutOrStdout(), a, summary)
	}
	return nil
}

func indexRoots(args []string, cfg *config.Config) []string {
	if len(args) > 0 {
		return args
	}
	return cfg.Workspace.Paths
}

func runIndexWithUI(ctx context.Context, a *analysis.Analyzer, roots []string, opts analysis.IndexOptions) (analysis.IndexSummary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan analysis.Progress, 256)
	outcomeCh := make(chan indexOutcome, 1)

	go func() {
		opts.Progress = func(p analysis.Progress) { events <- p }
		summary, err := a.IndexWorkspace(ctx, roots, opts)
		outcomeCh <- indexOutcome{summary: summary, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("indexing", events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// the view is gone (finished or interrupted); stop the indexer and keep
	// draining so it never blocks on a send
	cancel()
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.summary, uiErr
	}
	return outcome.summary, outcome.err
}

func printIndexSummary(out io.Writer, a *analysis.Analyzer, summary analysis.IndexSummary) {
	idx := a.Index()
	fmt.Fprintf(out, "indexed %d files (%d failed), %d global symbols in %d documents\n",
		summary.Files, summary.Failed, idx.Len(), len(idx.Documents()))
	if summary.Truncated {
		fmt.Fprintf(out, "stopped at workspace.max_background_files=%d\n", summary.Files)
	}
}
