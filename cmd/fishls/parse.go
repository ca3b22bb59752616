package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fishls/internal/syntax"
	"fishls/internal/syntax/tsadapter"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file>",
	Short: "Print the syntax tree of a file as an S-expression",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("parser", "fish", "parser to use (fish|tree-sitter-bash)")
}

func runParse(cmd *cobra.Command, args []string) error {
	name, err := cmd.Flags().GetString("parser")
	if err != nil {
		return fmt.Errorf("failed to get parser flag: %w", err)
	}
	var parser syntax.Parser
	switch name {
	case "fish":
		parser = syntax.NewFishParser()
	case "tree-sitter-bash":
		if !tsadapter.IsAvailable() {
			return tsadapter.ErrUnavailable
		}
		parser = tsadapter.NewBash()
	default:
		return fmt.Errorf("unknown parser: %s", name)
	}

	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	tree, err := parser.Parse(cmd.Context(), content)
	if err != nil {
		return fmt.Errorf("parsing failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tree.Root.String())
	if tree.Root.HasError() {
		return fmt.Errorf("%s: syntax errors found", args[0])
	}
	return nil
}
