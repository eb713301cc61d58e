// Package update replaces the running helmdeck binary with the latest
// GitHub release.
package update

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/creativeprojects/go-selfupdate"
)

const (
	repoOwner = "cameronsjo"
	repoName  = "helmdeck"

	// ChangelogLines is how many changelog lines Highlights keeps.
	ChangelogLines = 10
)

// Release describes a published helmdeck version.
type Release struct {
	Version     string
	ReleaseURL  string
	PublishedAt string
	Changelog   string
}

func newUpdater() (*selfupdate.Updater, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("create update source: %w", err)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: source})
	if err != nil {
		return nil, fmt.Errorf("create updater: %w", err)
	}
	return updater, nil
}

// latest returns the newest release newer than currentVersion, or nil when
// currentVersion is up to date.
func latest(ctx context.Context, updater *selfupdate.Updater, currentVersion string) (*selfupdate.Release, error) {
	rel, found, err := updater.DetectLatest(ctx, selfupdate.NewRepositorySlug(repoOwner, repoName))
	if err != nil {
		return nil, fmt.Errorf("detect latest version: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("no releases found for %s/%s", repoOwner, repoName)
	}
	if rel.LessOrEqual(currentVersion) {
		return nil, nil
	}
	return rel, nil
}

func describe(rel *selfupdate.Release) *Release {
	return &Release{
		Version:     rel.Version(),
		ReleaseURL:  rel.URL,
		PublishedAt: rel.PublishedAt.Format("2006-01-02"),
		Changelog:   rel.ReleaseNotes,
	}
}

// Check reports the newer release, if any. A nil release means
// currentVersion is the latest.
func Check(ctx context.Context, currentVersion string) (*Release, error) {
	updater, err := newUpdater()
	if err != nil {
		return nil, err
	}
	rel, err := latest(ctx, updater, currentVersion)
	if err != nil || rel == nil {
		return nil, err
	}
	return describe(rel), nil
}

// Apply downloads the newer release, if any, over the running executable.
// A nil release means nothing was installed.
func Apply(ctx context.Context, currentVersion string) (*Release, error) {
	updater, err := newUpdater()
	if err != nil {
		return nil, err
	}
	rel, err := latest(ctx, updater, currentVersion)
	if err != nil || rel == nil {
		return nil, err
	}

	exe, err := selfupdate.ExecutablePath()
	if err != nil {
		return nil, fmt.Errorf("find executable path: %w", err)
	}
	if err := updater.UpdateTo(ctx, rel, exe); err != nil {
		return nil, fmt.Errorf("update binary: %w", err)
	}
	return describe(rel), nil
}

// Platform returns the running GOOS/GOARCH pair.
func Platform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}

// Highlights returns the first ChangelogLines lines of a changelog and the
// number of lines left out.
func Highlights(changelog string) ([]string, int) {
	changelog = strings.TrimSpace(changelog)
	if changelog == "" {
		return nil, 0
	}
	lines := strings.Split(changelog, "\n")
	if len(lines) <= ChangelogLines {
		return lines, 0
	}
	return lines[:ChangelogLines], len(lines) - ChangelogLines
}
