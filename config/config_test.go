package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv(EnvGithubToken, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"github_token": "file-token", "repository": "acme/app"}`), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file-token", cfg.GitHubToken)
	assert.Equal(t, "acme/app", cfg.Repository)
	assert.Equal(t, filepath.Join(dir, "feedback.db"), cfg.DatabasePath)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv(EnvGithubToken, "env-token")
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"github_token": "file-token", "repository": "acme/app", "database_path": "/var/lib/fb.db"}`), 0600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.GitHubToken)
	assert.Equal(t, "/var/lib/fb.db", cfg.DatabasePath)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{`), 0600))
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "failed to parse config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{GitHubToken: "t", Repository: "a/b"}, false},
		{"no token", Config{Repository: "a/b"}, true},
		{"no slash", Config{GitHubToken: "t", Repository: "ab"}, true},
		{"empty owner", Config{GitHubToken: "t", Repository: "/b"}, true},
		{"too many parts", Config{GitHubToken: "t", Repository: "a/b/c"}, true},
		{"empty name", Config{GitHubToken: "t", Repository: "a/"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				if tt.cfg.GitHubToken != "" {
					assert.ErrorContains(t, err, "invalid repository format")
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Setenv(EnvGithubToken, "")
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	require.NoError(t, CreateDefaultConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "example/repo", cfg.Repository)

	// existing files are left alone
	cfg.Repository = "acme/app"
	require.NoError(t, SaveConfig(cfg, path))
	require.NoError(t, CreateDefaultConfig(path))

	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "acme/app", cfg.Repository)
}
