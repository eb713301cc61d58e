package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/helmdeck/internal/client"
	"github.com/cameronsjo/helmdeck/internal/config"
	"github.com/cameronsjo/helmdeck/internal/edit"
	"github.com/cameronsjo/helmdeck/internal/model"
	"github.com/cameronsjo/helmdeck/internal/snapshot"
	"github.com/cameronsjo/helmdeck/internal/ui"
)

var valuesSnapshotsCmd = &cobra.Command{
	Use:   "snapshots <namespace/name>",
	Short: "List saved copies of a release's earlier values",
	Long: `Every values update made by helmdeck first saves the values it replaces
under the state directory. The newest 20 per release are kept.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		namespace, name, err := model.ParseReleaseID(args[0])
		if err != nil {
			return err
		}
		id := namespace + "/" + name

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		list, err := snapshot.New(cfg.StateDir).List(id)
		if err != nil {
			return fmt.Errorf("list snapshots: %w", err)
		}
		if len(list) == 0 {
			ui.Warning("No snapshots for %s", id)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SNAPSHOT\tCREATED\tKEYS")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%s\t%d\n", s.Name, formatTime(s.Created), s.Keys)
		}
		return w.Flush()
	},
}

var valuesRestoreCmd = &cobra.Command{
	Use:   "restore <namespace/name> [snapshot]",
	Short: "Send a saved copy of earlier values back to the backend",
	Long: `Restores values from a snapshot (default: the newest). The values being
replaced are saved as a new snapshot first, so a restore can be undone.`,
	Args:              cobra.RangeArgs(1, 2),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "latest"
		if len(args) == 2 {
			name = args[1]
		}

		return withClient(cmd, func(ctx context.Context, c *client.Client, cfg *config.Config) error {
			opts := sessionOptions(cfg, false)
			s, err := edit.NewSession(c, args[0], opts)
			if err != nil {
				return err
			}

			doc, err := opts.Snapshots.Load(s.ID(), name)
			if err != nil {
				return err
			}

			if err := s.Open(ctx); err != nil {
				return err
			}
			defer s.Close()

			res, err := s.SubmitDocument(ctx, doc)
			if err != nil {
				return err
			}
			reportResult(s.ID(), res)
			return nil
		})
	},
}

func init() {
	valuesRestoreCmd.Flags().BoolVar(&valuesAllowNoRegistry, "allow-no-registry", false, "allow releases without a registry mapping")

	valuesCmd.AddCommand(valuesSnapshotsCmd)
	valuesCmd.AddCommand(valuesRestoreCmd)
}
