package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fishls/internal/diag"
)

var codesCmd = &cobra.Command{
	Use:   "codes",
	Short: "List the diagnostic codes",
	Long: `List every diagnostic code with its severity and name. Codes can be silenced
with "# @fish-lsp-disable <code>" comments or diagnostics.disabled_codes.`,
	Args: cobra.NoArgs,
	RunE: runCodes,
}

func init() {
	codesCmd.Flags().String("format", "text", "output format (text|json)")
}

type codeJSON struct {
	Code     int    `json:"code"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Href     string `json:"href,omitempty"`
}

func runCodes(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	codes := diag.AllCodes()
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		list := make([]codeJSON, 0, len(codes))
		for _, c := range codes {
			list = append(list, codeJSON{
				Code:     int(c),
				Name:     c.Name(),
				Severity: c.Severity().Label(),
				Message:  c.Title(),
				Href:     c.Href(),
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	case "text":
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, c := range codes {
			sev := c.Severity().Label()
			if c.Severity() == diag.SevError {
				sev = color.RedString(sev)
			} else {
				sev = color.YellowString(sev)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID(), sev, c.Name(), c.Title())
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}
