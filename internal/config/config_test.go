package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every lookup Load makes at an empty temp directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	for _, key := range []string{
		"HELMDECK_CONFIG", "HELMDECK_API_URL", "HELMDECK_TOKEN",
		"HELMDECK_STATE_DIR", "HELMDECK_TIMEOUT", "EDITOR", "VISUAL",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config", "helmdeck", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultEditor, cfg.Editor)
	assert.Equal(t, filepath.Join(dir, "state", "helmdeck"), cfg.StateDir)
	assert.Empty(t, cfg.Token)
	assert.Empty(t, cfg.File)
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `api_url: https://deck.example.com/api
token: file-token
state_dir: /var/lib/helmdeck
timeout: 5s
editor: nano
`)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "https://deck.example.com/api", cfg.APIURL)
	assert.Equal(t, "file-token", cfg.Token)
	assert.Equal(t, "/var/lib/helmdeck", cfg.StateDir)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "nano", cfg.Editor)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "api_url: https://file.example.com/api\ntoken: file-token\ntimeout: 5s\n")
	t.Setenv("HELMDECK_API_URL", "https://env.example.com/api")
	t.Setenv("HELMDECK_TIMEOUT", "10s")

	cfg, err := Load(Overrides{Timeout: 20 * time.Second})
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com/api", cfg.APIURL, "env beats file")
	assert.Equal(t, "file-token", cfg.Token, "file beats default")
	assert.Equal(t, 20*time.Second, cfg.Timeout, "flag beats env")

	cfg, err = Load(Overrides{APIURL: "https://flag.example.com/api", Token: "flag-token"})
	require.NoError(t, err)
	assert.Equal(t, "https://flag.example.com/api", cfg.APIURL)
	assert.Equal(t, "flag-token", cfg.Token)
}

func TestLoad_Editor(t *testing.T) {
	isolate(t)

	t.Setenv("EDITOR", "nano")
	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "nano", cfg.Editor)

	t.Setenv("VISUAL", "code --wait")
	cfg, err = Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "code --wait", cfg.Editor)
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("token: custom\n"), 0644))

	cfg, err := Load(Overrides{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Token)

	t.Setenv("HELMDECK_CONFIG", path)
	cfg, err = Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_ExplicitConfigFileMissing(t *testing.T) {
	dir := isolate(t)

	_, err := Load(Overrides{ConfigFile: filepath.Join(dir, "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		env     map[string]string
		flags   Overrides
		wantErr string
	}{
		{
			name:    "malformed file",
			file:    "api_url: [\n",
			wantErr: "parse config file",
		},
		{
			name:    "bad file timeout",
			file:    "timeout: soon\n",
			wantErr: "parse timeout",
		},
		{
			name:    "bad env timeout",
			env:     map[string]string{"HELMDECK_TIMEOUT": "10"},
			wantErr: "HELMDECK_TIMEOUT",
		},
		{
			name:    "relative URL",
			flags:   Overrides{APIURL: "/api"},
			wantErr: "absolute http or https URL",
		},
		{
			name:    "wrong scheme",
			flags:   Overrides{APIURL: "ftp://deck.example.com/api"},
			wantErr: "absolute http or https URL",
		},
		{
			name:    "negative timeout",
			flags:   Overrides{Timeout: -time.Second},
			wantErr: "must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			if tt.file != "" {
				writeConfig(t, dir, tt.file)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(tt.flags)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	dir := isolate(t)

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config", "helmdeck", "config.yaml"), path)

	t.Setenv("XDG_CONFIG_HOME", "")
	path, err = DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".config", "helmdeck", "config.yaml"), path)
}
