package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/helmdeck/internal/client"
	"github.com/cameronsjo/helmdeck/internal/config"
	"github.com/cameronsjo/helmdeck/internal/model"
	"github.com/cameronsjo/helmdeck/internal/ui"
)

var repoCmd = &cobra.Command{
	Use:     "repo",
	Aliases: []string{"repository"},
	Short:   "Manage chart repositories",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chart repositories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client, _ *config.Config) error {
			repos, err := c.ListRepositories(ctx)
			if err != nil {
				return fmt.Errorf("list repositories: %w", err)
			}

			if len(repos) == 0 {
				ui.Warning("No repositories configured")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tURL")
			for _, r := range repos {
				fmt.Fprintf(w, "%s\t%s\n", r.Name, r.URL)
			}
			return w.Flush()
		})
	},
}

var repoAddCmd = &cobra.Command{
	Use:   "add <name> <url>",
	Short: "Add a chart repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client, _ *config.Config) error {
			if err := c.AddRepository(ctx, model.AddRepositoryRequest{Name: args[0], URL: args[1]}); err != nil {
				return fmt.Errorf("add repository: %w", err)
			}
			ui.Success("Added repository %s", args[0])
			return nil
		})
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:               "remove <name>",
	Aliases:           []string{"rm"},
	Short:             "Remove a chart repository",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeRepoNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client, _ *config.Config) error {
			if err := c.RemoveRepository(ctx, args[0]); err != nil {
				return fmt.Errorf("remove repository: %w", err)
			}
			ui.Success("Removed repository %s", args[0])
			return nil
		})
	},
}

var repoUpdateCmd = &cobra.Command{
	Use:               "update <name>",
	Short:             "Refresh a repository index",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeRepoNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *client.Client, _ *config.Config) error {
			if err := c.UpdateRepository(ctx, args[0]); err != nil {
				return fmt.Errorf("update repository: %w", err)
			}
			ui.Success("Updated repository %s", args[0])
			return nil
		})
	},
}

func init() {
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoAddCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	repoCmd.AddCommand(repoUpdateCmd)

	rootCmd.AddCommand(repoCmd)
}
