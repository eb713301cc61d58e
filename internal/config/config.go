// Package config resolves helmdeck settings from flags, the environment,
// and an optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIURL is the backend used when nothing else is configured.
	DefaultAPIURL = "http://localhost:8080/api"

	// DefaultTimeout bounds each backend request.
	DefaultTimeout = 30 * time.Second

	// DefaultEditor is used by `values edit` when neither VISUAL nor EDITOR is set.
	DefaultEditor = "vi"
)

// Config holds the resolved helmdeck configuration.
type Config struct {
	// APIURL is the backend base URL, including the /api prefix.
	APIURL string

	// Token is sent as a bearer token when set.
	Token string

	// StateDir holds edit-session lock files and values snapshots.
	StateDir string

	// Timeout bounds each backend request.
	Timeout time.Duration

	// Editor is the command `values edit` runs.
	Editor string

	// File is the config file that was read, or empty if none was found.
	File string
}

// Overrides are values given on the command line. Zero fields are unset.
type Overrides struct {
	ConfigFile string
	APIURL     string
	Token      string
	StateDir   string
	Timeout    time.Duration
}

// fileConfig is the on-disk layout of config.yaml.
type fileConfig struct {
	APIURL   string `yaml:"api_url"`
	Token    string `yaml:"token"`
	StateDir string `yaml:"state_dir"`
	Timeout  string `yaml:"timeout"`
	Editor   string `yaml:"editor"`
}

// Load resolves the configuration. Each setting comes from the first
// source that has it: flags, then environment, then the config file, then
// defaults.
func Load(flags Overrides) (*Config, error) {
	cfg := &Config{
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
		Editor:  DefaultEditor,
	}
	if dir, err := defaultStateDir(); err == nil {
		cfg.StateDir = dir
	}

	path, explicit := flags.ConfigFile, flags.ConfigFile != ""
	if !explicit {
		if p := os.Getenv("HELMDECK_CONFIG"); p != "" {
			path, explicit = p, true
		} else if p, err := DefaultPath(); err == nil {
			path = p
		}
	}
	if path != "" {
		if err := applyFile(cfg, path, explicit); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if flags.APIURL != "" {
		cfg.APIURL = flags.APIURL
	}
	if flags.Token != "" {
		cfg.Token = flags.Token
	}
	if flags.StateDir != "" {
		cfg.StateDir = flags.StateDir
	}
	if flags.Timeout != 0 {
		cfg.Timeout = flags.Timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns the config file location: $XDG_CONFIG_HOME/helmdeck/config.yaml,
// falling back to ~/.config/helmdeck/config.yaml.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "helmdeck", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "helmdeck", "config.yaml"), nil
}

func defaultStateDir() (string, error) {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "helmdeck"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "helmdeck"), nil
}

// applyFile merges the config file at path into cfg. A missing file is an
// error only when it was asked for explicitly.
func applyFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	if fc.APIURL != "" {
		cfg.APIURL = fc.APIURL
	}
	if fc.Token != "" {
		cfg.Token = fc.Token
	}
	if fc.StateDir != "" {
		cfg.StateDir = fc.StateDir
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("parse timeout in %s: %w", path, err)
		}
		cfg.Timeout = d
	}
	if fc.Editor != "" {
		cfg.Editor = fc.Editor
	}
	cfg.File = path
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("HELMDECK_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("HELMDECK_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("HELMDECK_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("HELMDECK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse HELMDECK_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("EDITOR"); v != "" {
		cfg.Editor = v
	}
	// VISUAL wins over EDITOR, as for most terminal tools.
	if v := os.Getenv("VISUAL"); v != "" {
		cfg.Editor = v
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return fmt.Errorf("invalid API URL %q: %w", c.APIURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid API URL %q: must be an absolute http or https URL", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout %s: must be positive", c.Timeout)
	}
	return nil
}
