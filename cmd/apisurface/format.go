package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jward/apisurface"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
)

// formatExtractText prints the written file and its top-level items.
func formatExtractText(w io.Writer, s CLIExtractSummary) {
	fmt.Fprintln(w, headerStyle.Render("Package "+s.Package))
	if s.Path != "" {
		fmt.Fprintln(w, mutedStyle.Render("Wrote "+s.Path))
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tRELEASE\tMEMBERS\tREFERENCE")
	for _, it := range s.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", it.Name, it.Kind, it.ReleaseTag, it.Members, it.Reference)
	}
	tw.Flush()

	if len(s.Warnings) > 0 {
		fmt.Fprintln(w)
		for _, warn := range s.Warnings {
			fmt.Fprintln(w, warningStyle.Render("warning: "+warn))
		}
	}
}

// formatExportsText formats the export list as aligned columns.
func formatExportsText(w io.Writer, exports []apisurface.ExportInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tLOCAL\tKIND\tMODULE\tCONSUMABLE")
	for _, ex := range exports {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", ex.Name, ex.LocalName, ex.Kind, ex.Module, ex.Consumable)
	}
	tw.Flush()
}

// formatResolutionsText prints one line per reference: the resolved item or
// the failure.
func formatResolutionsText(w io.Writer, results []CLIResolution) {
	for _, r := range results {
		if r.Failure != nil {
			fmt.Fprintf(w, "%s  %s\n", errorStyle.Render("✗ "+r.Reference), r.Failure.Reason+": "+r.Failure.Message)
			continue
		}
		fmt.Fprintf(w, "%s  %s %s\n", successStyle.Render("✓ "+r.Reference), r.Kind, r.Name)
		if r.Excerpt != "" {
			fmt.Fprintln(w, mutedStyle.Render("    "+r.Excerpt))
		}
	}
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case CLIExtractSummary:
		formatExtractText(w, v)
	case []apisurface.ExportInfo:
		formatExportsText(w, v)
	case []CLIResolution:
		formatResolutionsText(w, v)
	case nil:
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// outputResult writes a CLIResult to the command's stdout in the selected
// format.
func outputResult(cmd *cobra.Command, result CLIResult) error {
	w := cmd.OutOrStdout()
	if flagFormat == "text" {
		return outputResultText(w, result)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func outputError(cmd *cobra.Command, command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("Error: "+err.Error()))
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
