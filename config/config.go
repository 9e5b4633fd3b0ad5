package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/wesm/github-feedback/internal/sync"
)

const (
	// EnvGithubToken is the environment variable name for the GitHub API token
	EnvGithubToken = "FEEDBACK_GITHUB_TOKEN"

	defaultDatabasePath = "feedback.db"
)

// Config represents the application configuration
type Config struct {
	// GitHub API token for authentication (can be set via FEEDBACK_GITHUB_TOKEN env var)
	GitHubToken string `json:"github_token"`

	// Repository that stores feedback, in the format "owner/name"
	Repository string `json:"repository"`

	// Path to the SQLite file holding this device's votes and submissions
	DatabasePath string `json:"database_path"`
}

// Validate checks that owner, repository name and token are all present
func (c *Config) Validate() error {
	var errs []error
	if _, _, err := sync.ParseRepositoryString(c.Repository); err != nil {
		errs = append(errs, err)
	}
	if c.GitHubToken == "" {
		errs = append(errs, fmt.Errorf("github_token is required (or set %s)", EnvGithubToken))
	}
	return errors.Join(errs...)
}

// LoadConfig loads the configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Check for GitHub token in environment variable
	if envToken := os.Getenv(EnvGithubToken); envToken != "" {
		config.GitHubToken = envToken
	}

	if config.DatabasePath == "" {
		config.DatabasePath = defaultDatabasePath
	}

	// Relative database paths live next to the config file
	if !filepath.IsAbs(config.DatabasePath) {
		configDir := filepath.Dir(path)
		config.DatabasePath = filepath.Join(configDir, config.DatabasePath)
	}

	return &config, nil
}

// SaveConfig saves the configuration to a JSON file
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a default configuration file if it doesn't exist
func CreateDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, don't overwrite
	}

	config := &Config{
		GitHubToken:  "",
		Repository:   "example/repo",
		DatabasePath: defaultDatabasePath,
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return SaveConfig(config, path)
}
