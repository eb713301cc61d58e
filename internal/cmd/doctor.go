package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/helmdeck/internal/preflight"
	"github.com/cameronsjo/helmdeck/internal/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, editor, state directory, and backend",
	Long: `Runs pre-flight checks:
  - configuration loads and validates
  - the state directory is writable
  - the configured editor is installed
  - the backend answers at the configured URL`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ui.Blue.Fprintln(out, "Running pre-flight checks...")
	fmt.Fprintln(out)

	cfg, err := loadConfig()
	if err != nil {
		ui.Red.Fprintf(out, "  x Configuration: %v\n", err)
		return fmt.Errorf("configuration is invalid")
	}
	source := cfg.File
	if source == "" {
		source = "defaults"
	}
	ui.Green.Fprintf(out, "  * Configuration loaded (%s)\n", source)

	c := newClient(cfg)
	results, sum := preflight.Run(cmd.Context(),
		preflight.StateDir(cfg.StateDir),
		preflight.Editor(cfg.Editor),
		preflight.Backend(cfg.APIURL, func(ctx context.Context) error {
			_, err := c.ListRepositories(ctx)
			return err
		}),
	)
	sum.Passed++

	for _, r := range results {
		switch r.Status {
		case preflight.Pass:
			ui.Green.Fprintf(out, "  * %s: %s\n", r.Name, r.Detail)
		case preflight.Warn:
			ui.Yellow.Fprintf(out, "  ! %s: %s\n", r.Name, r.Detail)
		default:
			ui.Red.Fprintf(out, "  x %s: %s\n", r.Name, r.Detail)
		}
		if r.Hint != "" && r.Status != preflight.Pass {
			ui.Blue.Fprintf(out, "      %s\n", r.Hint)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Passed: %d, Warnings: %d, Failed: %d\n", sum.Passed, sum.Warned, sum.Failed)

	if sum.Failed > 0 {
		return fmt.Errorf("%d check(s) failed", sum.Failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
