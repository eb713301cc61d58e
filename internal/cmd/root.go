// Package cmd provides the CLI commands for helmdeck.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/helmdeck/internal/ui"
)

const version = "0.1.0"

// Global flags.
var (
	flagConfigFile string
	flagAPIURL     string
	flagToken      string
	flagStateDir   string
	flagTimeout    time.Duration
	flagVerbose    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "helmdeck",
	Short: "Manage Helm releases through the helmdeck backend",
	Long: `helmdeck - Helm release management from the terminal

Talks to the helmdeck backend to inspect releases, move them between chart
versions, and edit their values as indented text.

Releases are named namespace/name.

RELEASE COMMANDS
  releases              List releases
    --namespace, -n     Only releases in a namespace
    --has-registry      Only releases with (or without) a registry mapping
  release get <id>      Show one release
  versions <id>         List chart versions available to a release
  upgrade <id>          Move a release to another chart version
  history <id>          Show revision history
  rollback <id>         Return to an earlier revision

REGISTRY COMMANDS
  registry get <id>     Show the registry mapping
  registry set <id> <r> Map a release to a registry
  registry unset <id>   Remove the mapping

REPOSITORY COMMANDS
  repo list             List chart repositories
  repo add <name> <url> Add a repository
  repo remove <name>    Remove a repository
  repo update <name>    Refresh a repository index

VALUES COMMANDS
  values get <id>       Print a release's values as text
  values set <id>       Replace values from a text file
  values edit <id>      Edit values in $EDITOR
  values encode         Convert JSON to text
  values decode         Convert text to JSON
  values lint           Report text that may not mean what it says
  values snapshots <id> List saved copies of earlier values
  values restore <id>   Send a saved copy back to the backend

OTHER
  doctor                Check configuration, editor, and backend
  self-update           Update helmdeck to the latest release`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.Verbose = flagVerbose
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		ui.Fatal("%v", err)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfigFile, "config", "", "config file (default $XDG_CONFIG_HOME/helmdeck/config.yaml)")
	pf.StringVar(&flagAPIURL, "api-url", "", "backend API URL (env HELMDECK_API_URL)")
	pf.StringVar(&flagToken, "token", "", "bearer token (env HELMDECK_TOKEN)")
	pf.StringVar(&flagStateDir, "state-dir", "", "directory for locks and snapshots (env HELMDECK_STATE_DIR)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "per-request timeout (env HELMDECK_TIMEOUT, default 30s)")
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "log backend requests to stderr")

	rootCmd.SetVersionTemplate("helmdeck version {{.Version}}\n")
}
