package cmd

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/helmdeck/internal/client"
	"github.com/cameronsjo/helmdeck/internal/config"
	"github.com/cameronsjo/helmdeck/internal/model"
	"github.com/cameronsjo/helmdeck/internal/ui"
	"github.com/cameronsjo/helmdeck/internal/values"
)

var (
	releasesNamespace   string
	releasesHasRegistry bool

	upgradeVersion    string
	upgradeValuesFile string

	rollbackRevision int
)

var releasesCmd = &cobra.Command{
	Use:     "releases",
	Aliases: []string{"ls"},
	Short:   "List releases",
	Long: `Lists releases known to the backend.

Use --has-registry=false to find releases that still need a registry mapping.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := model.ReleaseFilter{Namespace: releasesNamespace}
		if cmd.Flags().Changed("has-registry") {
			filter.HasRegistry = &releasesHasRegistry
		}

		return withClient(cmd, func(ctx context.Context, c *client.Client, _ *config.Config) error {
			releases, err := c.ListReleases(ctx, filter)
			if err != nil {
				return fmt.Errorf("list releases: %w", err)
			}

			if len(releases) == 0 {
				ui.Warning("No releases found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RELEASE\tCHART\tVERSION\tAPP VERSION\tREVISION\tREGISTRY\tSTATUS")
			for _, r := range releases {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					r.ID(), r.Chart, r.ChartVersion, r.AppVersion, r.Revision, yesNo(r.HasRegistry), ui.Status(r.Status))
			}
			return w.Flush()
		})
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Inspect a release",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var releaseGetCmd = &cobra.Command{
	Use:               "get <namespace/name>",
	Short:             "Show one release",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRelease(cmd, args[0], func(ctx context.Context, c *client.Client, namespace, name string) error {
			rel, err := c.GetRelease(ctx, namespace, name)
			if err != nil {
				return fmt.Errorf("get release: %w", err)
			}
			printRelease(cmd, rel)
			return nil
		})
	},
}

var versionsCmd = &cobra.Command{
	Use:               "versions <namespace/name>",
	Short:             "List chart versions available to a release",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRelease(cmd, args[0], func(ctx context.Context, c *client.Client, namespace, name string) error {
			versions, err := c.GetVersions(ctx, namespace, name)
			if err != nil {
				return fmt.Errorf("get versions: %w", err)
			}

			if len(versions) == 0 {
				ui.Warning("No versions found for %s/%s", namespace, name)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "VERSION\tAPP VERSION\tDESCRIPTION")
			for _, v := range versions {
				fmt.Fprintf(w, "%s\t%s\t%s\n", v.Version, v.AppVersion, v.Description)
			}
			return w.Flush()
		})
	},
}

var upgradeCmd = &cobra.Command{
	Use:   "upgrade <namespace/name>",
	Short: "Move a release to another chart version",
	Long: `Upgrades (or downgrades) a release to --version.

With -f, the release's values are replaced by the text in the file
(use - for stdin). Without it the current values are kept.`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if upgradeVersion == "" {
			return fmt.Errorf("--version is required")
		}

		req := model.VersionUpgradeRequest{ChartVersion: upgradeVersion}
		if upgradeValuesFile != "" {
			data, err := readInput(cmd, upgradeValuesFile)
			if err != nil {
				return err
			}
			req.Values = values.Decode(string(data))
			warnFindings(cmd, values.Lint(string(data)))
		}

		return withRelease(cmd, args[0], func(ctx context.Context, c *client.Client, namespace, name string) error {
			rel, err := c.UpgradeRelease(ctx, namespace, name, req)
			if err != nil {
				return fmt.Errorf("upgrade release: %w", err)
			}
			ui.Success("Upgraded %s to %s (revision %d)", rel.ID(), rel.ChartVersion, rel.Revision)
			return nil
		})
	},
}

var historyCmd = &cobra.Command{
	Use:               "history <namespace/name>",
	Short:             "Show revision history",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRelease(cmd, args[0], func(ctx context.Context, c *client.Client, namespace, name string) error {
			history, err := c.GetHistory(ctx, namespace, name)
			if err != nil {
				return fmt.Errorf("get history: %w", err)
			}

			if len(history) == 0 {
				ui.Warning("No history for %s/%s", namespace, name)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "REVISION\tUPDATED\tCHART\tAPP VERSION\tDESCRIPTION\tSTATUS")
			for _, h := range history {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					h.Revision, formatTime(h.Updated), h.Chart, h.AppVersion, h.Description, ui.Status(h.Status))
			}
			return w.Flush()
		})
	},
}

var rollbackCmd = &cobra.Command{
	Use:               "rollback <namespace/name>",
	Short:             "Return a release to an earlier revision",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if rollbackRevision <= 0 {
			return fmt.Errorf("--revision must be a positive revision number")
		}

		return withRelease(cmd, args[0], func(ctx context.Context, c *client.Client, namespace, name string) error {
			rel, err := c.Rollback(ctx, namespace, name, rollbackRevision)
			if err != nil {
				return fmt.Errorf("rollback release: %w", err)
			}
			ui.Success("Rolled back %s to revision %d (now revision %d)", rel.ID(), rollbackRevision, rel.Revision)
			return nil
		})
	},
}

func printRelease(cmd *cobra.Command, rel *model.Release) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Release:\t%s\n", rel.ID())
	fmt.Fprintf(w, "Chart:\t%s\n", rel.Chart)
	fmt.Fprintf(w, "Chart version:\t%s\n", rel.ChartVersion)
	fmt.Fprintf(w, "App version:\t%s\n", rel.AppVersion)
	fmt.Fprintf(w, "Revision:\t%s\n", strconv.Itoa(rel.Revision))
	fmt.Fprintf(w, "Updated:\t%s\n", formatTime(rel.Updated))
	fmt.Fprintf(w, "Registry:\t%s\n", yesNo(rel.HasRegistry))
	fmt.Fprintf(w, "Status:\t%s\n", ui.Status(rel.Status))
	w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func init() {
	releasesCmd.Flags().StringVarP(&releasesNamespace, "namespace", "n", "", "only list releases in this namespace")
	releasesCmd.Flags().BoolVar(&releasesHasRegistry, "has-registry", false, "only list releases with (true) or without (false) a registry mapping")

	upgradeCmd.Flags().StringVar(&upgradeVersion, "version", "", "target chart version (required)")
	upgradeCmd.Flags().StringVarP(&upgradeValuesFile, "values", "f", "", "replace values with this text file (- for stdin)")

	rollbackCmd.Flags().IntVar(&rollbackRevision, "revision", 0, "revision to return to (required)")

	releaseCmd.AddCommand(releaseGetCmd)

	rootCmd.AddCommand(releasesCmd)
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(versionsCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rollbackCmd)
}
