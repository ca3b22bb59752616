package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fishls/internal/analysis"
	"fishls/internal/source"
	"fishls/internal/symbols"
)

var symbolsCmd = &cobra.Command{
	Use:   "symbols [flags] [query]",
	Short: "Query workspace symbols, or print the outline of one file",
	Long: `Index the workspace (--root, or the configured workspace paths) and list the
global functions and variables whose name starts with query. With --document
the nested outline of that file is printed instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSymbols,
}

func init() {
	symbolsCmd.Flags().StringSlice("root", nil, "workspace roots to index (default: workspace.paths, then the working directory)")
	symbolsCmd.Flags().String("document", "", "print the outline of this file")
	symbolsCmd.Flags().String("format", "text", "output format (text|json)")
}

func runSymbols(cmd *cobra.Command, args []string) error {
	roots, err := cmd.Flags().GetStringSlice("root")
	if err != nil {
		return fmt.Errorf("failed to get root flag: %w", err)
	}
	document, err := cmd.Flags().GetString("document")
	if err != nil {
		return fmt.Errorf("failed to get document flag: %w", err)
	}
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
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
	a := newAnalyzer(cfg, quiet)
	out := cmd.OutOrStdout()

	if document != "" {
		return printOutline(cmd, a, document, format, out)
	}

	if len(roots) == 0 {
		roots = append(roots, cfg.Workspace.Paths...)
	}
	if len(roots) == 0 {
		roots = []string{wd}
	}
	if _, err := a.IndexWorkspace(cmd.Context(), roots, analysis.IndexOptions{MaxFiles: cfg.Workspace.MaxBackgroundFiles}); err != nil {
		return err
	}

	query := ""
	if len(args) == 1 {
		query = args[0]
	}
	found := a.WorkspaceSymbols(query)
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}
	kindColor := color.New(color.FgCyan)
	for _, s := range found {
		path := source.URIToPath(s.Location.URI)
		line := fmt.Sprintf("%-9s %s  %s:%d", kindColor.Sprint(s.Kind), s.Name, path, s.Location.Range.Start.Line+1)
		if s.Container != "" {
			line += "  (in " + s.Container + ")"
		}
		fmt.Fprintln(out, line)
	}
	return nil
}

func printOutline(cmd *cobra.Command, a *analysis.Analyzer, path, format string, out io.Writer) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc := source.NewDocumentFromPath(path, content)
	res, err := a.AnalyzeAs(cmd.Context(), doc, analysis.TriggerCLI)
	if err != nil {
		return err
	}
	outline := res.Forest.DocumentSymbols()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(outline)
	}
	writeOutline(out, outline, 0)
	return nil
}

func writeOutline(out io.Writer, list []symbols.DocumentSymbol, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, s := range list {
		fmt.Fprintf(out, "%s%s %s  %d:%d", indent, s.Kind, s.Name, s.SelectionRange.Start.Line+1, s.SelectionRange.Start.Character+1)
		if s.Detail != "" {
			fmt.Fprintf(out, "  %s", s.Detail)
		}
		fmt.Fprintln(out)
		writeOutline(out, s.Children, depth+1)
	}
}
