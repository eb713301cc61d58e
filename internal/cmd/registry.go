package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/helmdeck/internal/client"
	"github.com/cameronsjo/helmdeck/internal/ui"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Manage release registry mappings",
	Long: `A registry mapping tells the backend where a release's chart is pulled
from. Upgrades and values updates need one.

Commands:
  get     Show the mapping
  set     Create or replace the mapping
  unset   Remove the mapping`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var registryGetCmd = &cobra.Command{
	Use:               "get <namespace/name>",
	Short:             "Show the registry mapping",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRelease(cmd, args[0], func(ctx context.Context, c *client.Client, namespace, name string) error {
			m, err := c.GetRegistry(ctx, namespace, name)
			if errors.Is(err, client.ErrNotFound) {
				ui.Warning("%s/%s has no registry mapping", namespace, name)
				return nil
			}
			if err != nil {
				return fmt.Errorf("get registry: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.Registry)
			return nil
		})
	},
}

var registrySetCmd = &cobra.Command{
	Use:               "set <namespace/name> <registry>",
	Short:             "Map a release to a registry",
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRelease(cmd, args[0], func(ctx context.Context, c *client.Client, namespace, name string) error {
			m, err := c.SetRegistry(ctx, namespace, name, args[1])
			if err != nil {
				return fmt.Errorf("set registry: %w", err)
			}
			ui.Success("Mapped %s/%s to %s", namespace, name, m.Registry)
			return nil
		})
	},
}

var registryUnsetCmd = &cobra.Command{
	Use:               "unset <namespace/name>",
	Aliases:           []string{"rm"},
	Short:             "Remove the registry mapping",
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeReleaseIDs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRelease(cmd, args[0], func(ctx context.Context, c *client.Client, namespace, name string) error {
			if err := c.DeleteRegistry(ctx, namespace, name); err != nil {
				return fmt.Errorf("unset registry: %w", err)
			}
			ui.Success("Removed registry mapping for %s/%s", namespace, name)
			return nil
		})
	},
}

func init() {
	registryCmd.AddCommand(registryGetCmd)
	registryCmd.AddCommand(registrySetCmd)
	registryCmd.AddCommand(registryUnsetCmd)

	rootCmd.AddCommand(registryCmd)
}
