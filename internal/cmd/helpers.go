package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cameronsjo/helmdeck/internal/client"
	"github.com/cameronsjo/helmdeck/internal/config"
	"github.com/cameronsjo/helmdeck/internal/fileutil"
	"github.com/cameronsjo/helmdeck/internal/model"
	"github.com/cameronsjo/helmdeck/internal/ui"
)

// loadConfig resolves configuration with the global flags applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Overrides{
		ConfigFile: flagConfigFile,
		APIURL:     flagAPIURL,
		Token:      flagToken,
		StateDir:   flagStateDir,
		Timeout:    flagTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newClient(cfg *config.Config) *client.Client {
	opts := []client.Option{
		client.WithTimeout(cfg.Timeout),
		client.WithLogger(ui.Debug),
	}
	if cfg.Token != "" {
		opts = append(opts, client.WithToken(cfg.Token))
	}
	return client.New(cfg.APIURL, opts...)
}

// withClient executes fn with a backend client built from the resolved configuration.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client, cfg *config.Config) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return fn(cmd.Context(), newClient(cfg), cfg)
}

// withRelease parses a release ID argument and executes fn with a client.
func withRelease(cmd *cobra.Command, id string, fn func(ctx context.Context, c *client.Client, namespace, name string) error) error {
	namespace, name, err := model.ParseReleaseID(id)
	if err != nil {
		return err
	}
	return withClient(cmd, func(ctx context.Context, c *client.Client, _ *config.Config) error {
		return fn(ctx, c, namespace, name)
	})
}

// readInput reads path, or the command's stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// writeOutput writes data to path, or to the command's stdout when path is
// empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := fileutil.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	ui.Success("Wrote %s", path)
	return nil
}
