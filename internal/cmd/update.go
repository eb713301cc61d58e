package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/helmdeck/internal/ui"
	"github.com/cameronsjo/helmdeck/internal/update"
)

var updateCheckOnly bool

var updateCmd = &cobra.Command{
	Use:     "self-update",
	Aliases: []string{"selfupdate"},
	Short:   "Update helmdeck to the latest version",
	Long: `Downloads the latest helmdeck release from GitHub for this platform and
replaces the running binary.

Examples:
  helmdeck self-update           # Update to latest version
  helmdeck self-update --check   # Check for updates without installing`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func runUpdate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ui.Blue.Fprintf(out, "Current version: %s (%s)\n", version, update.Platform())
	ui.Blue.Fprintln(out, "Checking for updates...")

	if updateCheckOnly {
		rel, err := update.Check(cmd.Context(), version)
		if err != nil {
			return fmt.Errorf("check for updates: %w", err)
		}
		if rel == nil {
			ui.Success("You're running the latest version")
			return nil
		}
		ui.Success("New version available: %s (released %s)", rel.Version, rel.PublishedAt)
		ui.Info("To update, run: helmdeck self-update")
		printChangelog(out, rel.Changelog)
		return nil
	}

	rel, err := update.Apply(cmd.Context(), version)
	if err != nil {
		return err
	}
	if rel == nil {
		ui.Success("You're already running the latest version")
		return nil
	}
	ui.Success("Updated to version %s", rel.Version)
	printChangelog(out, rel.Changelog)
	return nil
}

func printChangelog(w io.Writer, changelog string) {
	lines, omitted := update.Highlights(changelog)
	if len(lines) == 0 {
		return
	}
	fmt.Fprintln(w)
	ui.Yellow.Fprintln(w, "What's new:")
	for _, line := range lines {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if omitted > 0 {
		fmt.Fprintf(w, "  ... (%d more lines)\n", omitted)
	}
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheckOnly, "check", false, "only check for updates, don't install")
	rootCmd.AddCommand(updateCmd)
}
