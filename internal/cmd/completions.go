package cmd

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/helmdeck/internal/model"
)

// Completion timeout to avoid hanging shell.
const completionTimeout = 2 * time.Second

// completeReleaseIDs completes the first argument with "namespace/name"
// identifiers from the backend.
func completeReleaseIDs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Don't complete if we already have an argument
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	releases, err := newClient(cfg).ListReleases(ctx, releaseFilterFor(toComplete))
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var ids []string
	for _, r := range releases {
		if strings.HasPrefix(r.ID(), toComplete) {
			ids = append(ids, r.ID())
		}
	}
	return ids, cobra.ShellCompDirectiveNoFileComp
}

// completeRepoNames completes a repository name from the backend.
func completeRepoNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	repos, err := newClient(cfg).ListRepositories(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}

	var names []string
	for _, r := range repos {
		if strings.HasPrefix(r.Name, toComplete) {
			names = append(names, r.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// releaseFilterFor narrows the listing to a namespace once one is typed.
func releaseFilterFor(toComplete string) model.ReleaseFilter {
	if namespace, _, ok := strings.Cut(toComplete, "/"); ok {
		return model.ReleaseFilter{Namespace: namespace}
	}
	return model.ReleaseFilter{}
}
